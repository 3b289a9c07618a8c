package storage

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vaultgram/vaultgram-server/internal/config"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()

	cfg := &config.Config{
		Database: config.DatabaseConfig{
			Driver:     "sqlite3",
			Connection: filepath.Join(t.TempDir(), "test.db"),
		},
		Quota: config.QuotaConfig{
			DailyFree:    5,
			InviteReward: 5,
			InviteCap:    20,
		},
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := New(cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, s.Close())
	})
	return s
}

func TestStoragePing(t *testing.T) {
	s := newTestStorage(t)
	require.NoError(t, s.Ping(context.Background()))
}

func TestCurrentDateFormat(t *testing.T) {
	require.Regexp(t, `^\d{4}-\d{2}-\d{2}$`, CurrentDate())
}
