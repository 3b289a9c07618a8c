package monitor

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vaultgram/vaultgram-server/internal/config"
)

func newTestMonitor(t *testing.T, thresholds config.MonitorConfig) (*Monitor, *atomic.Bool, string) {
	t.Helper()

	root := t.TempDir()
	flag := &atomic.Bool{}
	m := New(&thresholds, flag, slog.New(slog.NewTextHandler(io.Discard, nil)))
	m.procRoot = root
	return m, flag, root
}

func writeProc(t *testing.T, root, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte(content), 0o600))
}

func TestCPUPercentFromDeltas(t *testing.T) {
	m, _, root := newTestMonitor(t, config.MonitorConfig{})

	writeProc(t, root, "stat", "cpu  100 0 100 800 0 0 0 0\n")
	_, ok := m.cpuPercent()
	require.False(t, ok, "first sample only primes the baseline")

	// +200 busy, +200 idle: 50% busy.
	writeProc(t, root, "stat", "cpu  200 0 200 1000 0 0 0 0\n")
	percent, ok := m.cpuPercent()
	require.True(t, ok)
	require.InDelta(t, 50.0, percent, 0.1)
}

func TestMemoryPercent(t *testing.T) {
	m, _, root := newTestMonitor(t, config.MonitorConfig{})

	writeProc(t, root, "meminfo", "MemTotal: 1000 kB\nMemFree: 100 kB\nMemAvailable: 250 kB\n")
	percent, ok := m.memoryPercent()
	require.True(t, ok)
	require.InDelta(t, 75.0, percent, 0.1)
}

func TestMemoryPercentUnavailable(t *testing.T) {
	m, _, _ := newTestMonitor(t, config.MonitorConfig{})
	_, ok := m.memoryPercent()
	require.False(t, ok)
}

func TestDiskPercentBusiestDevice(t *testing.T) {
	m, _, root := newTestMonitor(t, config.MonitorConfig{})

	writeProc(t, root, "diskstats",
		" 8 0 sda 1 0 1 1 1 0 1 1 0 1000 1\n"+
			" 7 0 loop0 1 0 1 1 1 0 1 1 0 999999 1\n")
	_, ok := m.diskPercent()
	require.False(t, ok, "first sample only primes the baseline")

	m.prevDisk.at = time.Now().Add(-time.Second)
	writeProc(t, root, "diskstats", " 8 0 sda 1 0 1 1 1 0 1 1 0 1400 1\n")
	percent, ok := m.diskPercent()
	require.True(t, ok)
	// 400ms of IO over ~1000ms elapsed.
	require.InDelta(t, 40.0, percent, 5.0)
}

func TestSampleSetsAndClearsFlag(t *testing.T) {
	m, flag, root := newTestMonitor(t, config.MonitorConfig{
		CPUThreshold:    80,
		MemoryThreshold: 80,
		DiskIOThreshold: 80,
	})

	// Memory at 90%: overloaded.
	writeProc(t, root, "meminfo", "MemTotal: 1000 kB\nMemAvailable: 100 kB\n")
	m.sample()
	require.True(t, flag.Load())

	// Memory back to 50%: cleared.
	writeProc(t, root, "meminfo", "MemTotal: 1000 kB\nMemAvailable: 500 kB\n")
	m.sample()
	require.False(t, flag.Load())
}

func TestSampleMissingProcFilesIsCalm(t *testing.T) {
	m, flag, _ := newTestMonitor(t, config.MonitorConfig{
		CPUThreshold:    80,
		MemoryThreshold: 80,
		DiskIOThreshold: 80,
	})

	m.sample()
	require.False(t, flag.Load())
}
