// Package origin is the client of the delegated personal identity: a
// sidecar agent that holds the user session and exposes message fetch,
// media download, reply-thread iteration and invite joins over a local HTTP
// API. The relay core consumes it behind the relay.Origin interface and
// never sees the messaging network's wire protocol.
package origin

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/vaultgram/vaultgram-server/internal/model"
	"github.com/vaultgram/vaultgram-server/internal/relay"
)

type Agent struct {
	http     *http.Client
	endpoint string
}

var _ relay.Origin = (*Agent)(nil)

func NewAgent(endpoint string, httpClient *http.Client) *Agent {
	return &Agent{
		http:     httpClient,
		endpoint: strings.TrimRight(endpoint, "/"),
	}
}

// wireItem is the agent's JSON form of one message.
type wireItem struct {
	ID              int64  `json:"id"`
	GroupedID       string `json:"grouped_id"`
	Media           string `json:"media"`
	Text            string `json:"text"`
	ForwardFromChat string `json:"forward_from_chat"`
	ForwardFromID   int64  `json:"forward_from_id"`
}

func (w *wireItem) toItem() relay.Item {
	return relay.Item{
		ID:                w.ID,
		GroupedID:         w.GroupedID,
		Media:             parseMediaKind(w.Media),
		Text:              w.Text,
		ForwardedFromChat: w.ForwardFromChat,
		ForwardedFromID:   w.ForwardFromID,
	}
}

func parseMediaKind(s string) model.MediaKind {
	switch s {
	case "", "none":
		return model.MediaNone
	case "photo":
		return model.MediaPhoto
	case "video":
		return model.MediaDocumentVideo
	case "audio":
		return model.MediaDocumentAudio
	case "document":
		return model.MediaDocumentOther
	default:
		return model.MediaUnsupported
	}
}

func (a *Agent) Message(ctx context.Context, chat string, id int64) (*relay.Item, error) {
	query := url.Values{
		"chat": {chat},
		"id":   {strconv.FormatInt(id, 10)},
	}

	var wire wireItem
	found, err := a.get(ctx, "/message", query, &wire)
	if err != nil || !found {
		return nil, err
	}

	item := wire.toItem()
	return &item, nil
}

func (a *Agent) Messages(ctx context.Context, chat string, ids []int64) ([]relay.Item, error) {
	encoded := make([]string, len(ids))
	for i, id := range ids {
		encoded[i] = strconv.FormatInt(id, 10)
	}
	query := url.Values{
		"chat": {chat},
		"ids":  {strings.Join(encoded, ",")},
	}

	var wires []wireItem
	if _, err := a.get(ctx, "/messages", query, &wires); err != nil {
		return nil, err
	}

	items := make([]relay.Item, 0, len(wires))
	for i := range wires {
		items = append(items, wires[i].toItem())
	}
	return items, nil
}

func (a *Agent) ThreadReplies(ctx context.Context, chat string, rootID int64) ([]relay.Item, error) {
	query := url.Values{
		"chat": {chat},
		"root": {strconv.FormatInt(rootID, 10)},
	}

	var wires []wireItem
	if _, err := a.get(ctx, "/replies", query, &wires); err != nil {
		return nil, err
	}

	items := make([]relay.Item, 0, len(wires))
	for i := range wires {
		items = append(items, wires[i].toItem())
	}
	return items, nil
}

func (a *Agent) Download(ctx context.Context, chat string, id int64, dir string) (string, error) {
	query := url.Values{
		"chat": {chat},
		"id":   {strconv.FormatInt(id, 10)},
		"dir":  {dir},
	}

	var result struct {
		Path string `json:"path"`
	}
	found, err := a.post(ctx, "/download", query, &result)
	if err != nil {
		return "", err
	}
	if !found || result.Path == "" {
		return "", fmt.Errorf("origin agent: no media for %s/%d", chat, id)
	}
	return result.Path, nil
}

func (a *Agent) JoinInvite(ctx context.Context, hash string) error {
	query := url.Values{"hash": {hash}}
	_, err := a.post(ctx, "/join", query, nil)
	return err
}

func (a *Agent) get(ctx context.Context, path string, query url.Values, out any) (bool, error) {
	return a.do(ctx, http.MethodGet, path, query, out)
}

func (a *Agent) post(ctx context.Context, path string, query url.Values, out any) (bool, error) {
	return a.do(ctx, http.MethodPost, path, query, out)
}

// do runs one agent call. Status codes map onto the relay error taxonomy so
// the orchestrator can turn them into user replies.
func (a *Agent) do(ctx context.Context, method, path string, query url.Values, out any) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, method, a.endpoint+path+"?"+query.Encode(), nil)
	if err != nil {
		return false, err
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		if out == nil {
			return true, nil
		}
		return true, json.NewDecoder(resp.Body).Decode(out)
	case http.StatusNotFound:
		return false, nil
	case http.StatusAccepted:
		return false, relay.ErrJoinPending
	case http.StatusConflict:
		return false, relay.ErrAlreadyParticipant
	case http.StatusGone:
		return false, relay.ErrInviteInvalid
	case http.StatusForbidden:
		return false, relay.ErrJoinDenied
	case http.StatusUnauthorized:
		return false, relay.ErrUnreachable
	case http.StatusTooManyRequests:
		return false, relay.ErrRateLimited
	default:
		return false, fmt.Errorf("origin agent: unexpected status %d for %s", resp.StatusCode, path)
	}
}
