package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vaultgram/vaultgram-server/internal/config"
	"github.com/vaultgram/vaultgram-server/internal/model"
)

func newTestServer(t *testing.T, secret string) *Server {
	t.Helper()

	cfg := &config.Config{
		API: config.APIConfig{
			Host:         "localhost",
			Port:         0,
			Timeout:      30 * time.Second,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  15 * time.Second,
			Secret:       secret,
		},
	}
	return New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t, "")
	srv.AddHealthCheck(func() (bool, map[string]string) {
		return true, map[string]string{"database": "ok"}
	})

	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "ok", body["status"])
}

func TestHealthEndpointDegraded(t *testing.T) {
	srv := newTestServer(t, "")
	srv.AddHealthCheck(func() (bool, map[string]string) {
		return false, map[string]string{"database": "unreachable"}
	})

	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestAdminOrdersRequiresToken(t *testing.T) {
	srv := newTestServer(t, "s3cret")
	srv.AddPendingOrders(func(context.Context) ([]model.Order, error) {
		return []model.Order{{OrderID: "ABC", Status: model.OrderPending}}, nil
	})

	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/orders", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/admin/orders", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/admin/orders", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	rec = httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "ABC")
}

func TestPingHeartbeat(t *testing.T) {
	srv := newTestServer(t, "")

	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}
