package httpclient

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/vaultgram/vaultgram-server/internal/config"
	"golang.org/x/net/proxy"
)

const defaultTimeout = 30 * time.Second

// NewHTTPClient builds the outbound client used for the Bot API chat lookups
// and the TRC20 ledger queries. Without a configured proxy it is a plain
// client with a sane timeout; with one, all dials go through SOCKS5.
func NewHTTPClient(config *config.ProxyConfig) (*http.Client, error) {
	if config == nil || config.Address == "" || config.Port == 0 {
		return &http.Client{Timeout: defaultTimeout}, nil
	}

	addr := fmt.Sprintf("%s:%s", config.Address, strconv.Itoa(config.Port))

	var auth *proxy.Auth
	if config.Username != "" && config.Password != "" {
		auth = &proxy.Auth{User: config.Username, Password: config.Password}
	}

	dialer, err := proxy.SOCKS5("tcp", addr, auth, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("cannot init socks5 proxy client dialer: %w", err)
	}

	httpTransport := &http.Transport{}
	httpTransport.DialContext = func(_ context.Context, network, address string) (net.Conn, error) {
		return dialer.Dial(network, address)
	}

	return &http.Client{Transport: httpTransport, Timeout: defaultTimeout}, nil
}
