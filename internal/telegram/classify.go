package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/vaultgram/vaultgram-server/internal/relay"
)

// classifier resolves a chat's platform policy through the Bot API getChat
// endpoint, consumed over the (optionally proxied) outbound HTTP client.
type classifier struct {
	http     *http.Client
	endpoint string
	token    string
}

var _ relay.Classifier = (*classifier)(nil)

const botAPIEndpoint = "https://api.telegram.org"

func newClassifier(token string, httpClient *http.Client) *classifier {
	return &classifier{
		http:     httpClient,
		endpoint: botAPIEndpoint,
		token:    token,
	}
}

type getChatResponse struct {
	OK     bool `json:"ok"`
	Result struct {
		Type                string `json:"type"`
		Username            string `json:"username"`
		HasProtectedContent bool   `json:"has_protected_content"`
	} `json:"result"`
}

func (c *classifier) Classify(ctx context.Context, chat string) (*relay.ChatInfo, error) {
	// Public slugs go as @slug, internal ids as-is.
	chatID := chat
	if _, err := strconv.ParseInt(chat, 10, 64); err != nil && !strings.HasPrefix(chat, "@") {
		chatID = "@" + chat
	}

	endpoint := fmt.Sprintf("%s/bot%s/getChat?chat_id=%s", c.endpoint, c.token, url.QueryEscape(chatID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload getChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	if !payload.OK {
		return nil, fmt.Errorf("getChat failed for %s: status %d", chat, resp.StatusCode)
	}

	return &relay.ChatInfo{
		Type:      payload.Result.Type,
		Username:  payload.Result.Username,
		Protected: payload.Result.HasProtectedContent,
	}, nil
}
