package telegram

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestClassifier(t *testing.T, handler http.HandlerFunc) *classifier {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return &classifier{
		http:     server.Client(),
		endpoint: server.URL,
		token:    "TOKEN",
	}
}

func TestClassifyPublicSlug(t *testing.T) {
	c := newTestClassifier(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/botTOKEN/getChat", r.URL.Path)
		require.Equal(t, "@somechannel", r.URL.Query().Get("chat_id"))
		fmt.Fprint(w, `{"ok":true,"result":{"type":"channel","username":"somechannel","has_protected_content":true}}`)
	})

	info, err := c.Classify(context.Background(), "somechannel")
	require.NoError(t, err)
	require.True(t, info.Protected)
	require.True(t, info.Channel())
}

func TestClassifyNumericIDKeptVerbatim(t *testing.T) {
	c := newTestClassifier(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "-1001234", r.URL.Query().Get("chat_id"))
		fmt.Fprint(w, `{"ok":true,"result":{"type":"supergroup"}}`)
	})

	info, err := c.Classify(context.Background(), "-1001234")
	require.NoError(t, err)
	require.False(t, info.Protected)
}

func TestClassifyAPIFailure(t *testing.T) {
	c := newTestClassifier(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"ok":false}`)
	})

	_, err := c.Classify(context.Background(), "nosuch")
	require.Error(t, err)
}

func TestPackageByKey(t *testing.T) {
	pkg, ok := packageByKey("standard")
	require.True(t, ok)
	require.Equal(t, 150, pkg.Quota)
	require.InDelta(t, 5.0, pkg.Price, 0.0001)

	_, ok = packageByKey("platinum")
	require.False(t, ok)
}
