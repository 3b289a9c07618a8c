package origin

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vaultgram/vaultgram-server/internal/model"
	"github.com/vaultgram/vaultgram-server/internal/relay"
)

func newTestAgent(t *testing.T, handler http.HandlerFunc) *Agent {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewAgent(server.URL, server.Client())
}

func TestMessageFetch(t *testing.T) {
	agent := newTestAgent(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/message", r.URL.Path)
		require.Equal(t, "somechannel", r.URL.Query().Get("chat"))
		require.Equal(t, "5", r.URL.Query().Get("id"))
		fmt.Fprint(w, `{"id":5,"grouped_id":"g1","media":"photo","text":"hi","forward_from_chat":"src","forward_from_id":9}`)
	})

	item, err := agent.Message(context.Background(), "somechannel", 5)
	require.NoError(t, err)
	require.NotNil(t, item)
	require.Equal(t, int64(5), item.ID)
	require.Equal(t, "g1", item.GroupedID)
	require.Equal(t, model.MediaPhoto, item.Media)
	require.True(t, item.Forwarded())
}

func TestMessageMissingIsNil(t *testing.T) {
	agent := newTestAgent(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	item, err := agent.Message(context.Background(), "ch", 5)
	require.NoError(t, err)
	require.Nil(t, item)
}

func TestMessagesRange(t *testing.T) {
	agent := newTestAgent(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/messages", r.URL.Path)
		require.Equal(t, "4,5,6", r.URL.Query().Get("ids"))
		fmt.Fprint(w, `[{"id":4,"grouped_id":"g1","media":"video"},{"id":6,"grouped_id":"g1","media":"document"}]`)
	})

	items, err := agent.Messages(context.Background(), "ch", []int64{4, 5, 6})
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, model.MediaDocumentVideo, items[0].Media)
	require.Equal(t, model.MediaDocumentOther, items[1].Media)
}

func TestThreadReplies(t *testing.T) {
	agent := newTestAgent(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/replies", r.URL.Path)
		require.Equal(t, "10", r.URL.Query().Get("root"))
		fmt.Fprint(w, `[{"id":103,"grouped_id":"cg","media":"photo"},{"id":102,"grouped_id":"cg","media":"photo"}]`)
	})

	items, err := agent.ThreadReplies(context.Background(), "ch", 10)
	require.NoError(t, err)
	require.Len(t, items, 2)
}

func TestDownload(t *testing.T) {
	agent := newTestAgent(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/download", r.URL.Path)
		fmt.Fprint(w, `{"path":"/tmp/stage/5.bin"}`)
	})

	path, err := agent.Download(context.Background(), "ch", 5, "/tmp/stage")
	require.NoError(t, err)
	require.Equal(t, "/tmp/stage/5.bin", path)
}

func TestJoinErrorMapping(t *testing.T) {
	statuses := map[int]error{
		http.StatusOK:              nil,
		http.StatusAccepted:        relay.ErrJoinPending,
		http.StatusConflict:        relay.ErrAlreadyParticipant,
		http.StatusGone:            relay.ErrInviteInvalid,
		http.StatusForbidden:       relay.ErrJoinDenied,
		http.StatusTooManyRequests: relay.ErrRateLimited,
	}

	for status, expected := range statuses {
		agent := newTestAgent(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		})

		err := agent.JoinInvite(context.Background(), "hash")
		if expected == nil {
			require.NoError(t, err, "status %d", status)
		} else {
			require.ErrorIs(t, err, expected, "status %d", status)
		}
	}
}

func TestUnknownMediaKindIsUnsupported(t *testing.T) {
	agent := newTestAgent(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":5,"grouped_id":"0","media":"poll"}`)
	})

	item, err := agent.Message(context.Background(), "ch", 5)
	require.NoError(t, err)
	require.Equal(t, model.MediaUnsupported, item.Media)
}
