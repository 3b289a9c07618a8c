// Package tron queries the TronGrid API for confirmed TRC20 transfers into
// the receiving wallet. It is the external ledger the payment reconciler
// matches pending orders against.
package tron

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/vaultgram/vaultgram-server/internal/config"
)

// usdtScale is the fixed-point scale of USDT on-chain values.
const usdtScale = 1e6

const transferLimit = 20

// Transfer is one confirmed inbound token transfer.
type Transfer struct {
	TxID   string
	From   string
	To     string
	Amount float64 // Scaled to whole USDT.
	At     time.Time
}

type Client struct {
	http     *http.Client
	endpoint string
	apiKey   string
	contract string
}

func NewClient(config *config.PaymentConfig, httpClient *http.Client) *Client {
	return &Client{
		http:     httpClient,
		endpoint: strings.TrimRight(config.Endpoint, "/"),
		apiKey:   config.APIKey,
		contract: config.Contract,
	}
}

// Enabled reports whether the client holds credentials. Without an API key
// the reconciler can still expire orders but never auto-confirm them.
func (c *Client) Enabled() bool {
	return c.apiKey != ""
}

type trc20Response struct {
	Data []struct {
		TransactionID  string `json:"transaction_id"`
		From           string `json:"from"`
		To             string `json:"to"`
		Value          string `json:"value"`
		BlockTimestamp int64  `json:"block_timestamp"`
		TokenInfo      struct {
			Address string `json:"address"`
		} `json:"token_info"`
	} `json:"data"`
}

// Transfers fetches the recent confirmed transfers into the wallet,
// filtered to the configured token contract.
func (c *Client) Transfers(ctx context.Context, wallet string) ([]Transfer, error) {
	url := fmt.Sprintf(
		"%s/v1/accounts/%s/transactions/trc20?limit=%d&contract_address=%s&only_confirmed=true",
		c.endpoint, wallet, transferLimit, c.contract,
	)

	var payload trc20Response
	if err := c.get(ctx, url, &payload); err != nil {
		return nil, err
	}

	transfers := make([]Transfer, 0, len(payload.Data))
	for _, tx := range payload.Data {
		if tx.To != wallet || tx.TokenInfo.Address != c.contract {
			continue
		}
		raw, err := strconv.ParseFloat(tx.Value, 64)
		if err != nil {
			continue
		}
		transfers = append(transfers, Transfer{
			TxID:   tx.TransactionID,
			From:   tx.From,
			To:     tx.To,
			Amount: raw / usdtScale,
			At:     time.UnixMilli(tx.BlockTimestamp).UTC(),
		})
	}
	return transfers, nil
}

type txDetailResponse struct {
	Data []struct {
		RawData struct {
			Data string `json:"data"`
		} `json:"raw_data"`
	} `json:"data"`
}

// Memo fetches the transfer's attached note, best effort: a missing or
// undecodable memo is an empty string, not an error for the caller to act on.
func (c *Client) Memo(ctx context.Context, txID string) (string, error) {
	url := fmt.Sprintf("%s/v1/transactions/%s", c.endpoint, txID)

	var payload txDetailResponse
	if err := c.get(ctx, url, &payload); err != nil {
		return "", err
	}
	if len(payload.Data) == 0 || payload.Data[0].RawData.Data == "" {
		return "", nil
	}

	raw := strings.TrimPrefix(payload.Data[0].RawData.Data, "0x")
	decoded, err := hex.DecodeString(raw)
	if err != nil {
		return "", nil
	}
	return strings.ToValidUTF8(string(decoded), ""), nil
}

func (c *Client) get(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("TRON-PRO-API-KEY", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("trongrid: unexpected status %d for %s", resp.StatusCode, url)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
