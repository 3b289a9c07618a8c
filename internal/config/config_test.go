package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// Setting environment variables.
func setEnvVars(t *testing.T, vars map[string]string) {
	t.Helper()
	for key, value := range vars {
		err := os.Setenv(key, value)
		require.NoError(t, err, "failed to set env var %s", key)

		// Ensure that the env vars are cleared after the test
		t.Cleanup(func() {
			os.Unsetenv(key)
		})
	}
}

func TestConfigTelegramEnv(t *testing.T) {
	setEnvVars(t, map[string]string{
		"TELEGRAM_TOKEN":           "123",
		"TELEGRAM_TIMEOUT":         "10s",
		"TELEGRAM_ARCHIVE_CHAT_ID": "-1001234567890",
		"TELEGRAM_WHITELIST":       "1,2,3",
		"TELEGRAM_ADMIN_ID":        "42",
	})

	actual, err := MustLoadConfig()
	require.NoError(t, err)
	require.NotNil(t, actual)

	require.Equal(t, "123", actual.Telegram.Token)
	require.Equal(t, 10*time.Second, actual.Telegram.Timeout)
	require.Equal(t, int64(-1001234567890), actual.Telegram.ArchiveChatID)
	require.Equal(t, []int64{1, 2, 3}, actual.Telegram.Whitelist)
	require.Equal(t, int64(42), actual.Telegram.AdminID)
}

func TestConfigDefaults(t *testing.T) {
	setEnvVars(t, map[string]string{
		"TELEGRAM_TOKEN":           "token",
		"TELEGRAM_ARCHIVE_CHAT_ID": "-100",
	})

	actual, err := MustLoadConfig()
	require.NoError(t, err)

	require.Equal(t, "sqlite3", actual.Database.Driver)
	require.Equal(t, 5, actual.Quota.DailyFree)
	require.Equal(t, 5, actual.Quota.InviteReward)
	require.Equal(t, 20, actual.Quota.InviteCap)
	require.Equal(t, 10, actual.Relay.GroupWindow)
	require.Equal(t, 60*time.Second, actual.Payment.CheckInterval)
	require.Equal(t, 24*time.Hour, actual.Payment.OrderTimeout)
	require.Equal(t, 80.0, actual.Monitor.CPUThreshold)
	require.Equal(t, 5*time.Second, actual.Monitor.Interval)
}

func TestConfigMissingRequired(t *testing.T) {
	// No TELEGRAM_TOKEN, no config file: refuse to start.
	_, err := MustLoadConfig()
	require.Error(t, err)
}

func TestConfigExplicitPathMissing(t *testing.T) {
	setEnvVars(t, map[string]string{
		"CONFIG_PATH": "/nonexistent/config.yml",
	})

	_, err := MustLoadConfig()
	require.Error(t, err)
}
