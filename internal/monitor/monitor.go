// Package monitor samples host resource utilization and drives the shared
// overload flag the relay admission path consults. The flag is owned by the
// composition root and written only here.
package monitor

import (
	"bufio"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/vaultgram/vaultgram-server/internal/config"
)

type cpuSample struct {
	busy  uint64
	total uint64
}

type diskSample struct {
	ioMillis map[string]uint64
	at       time.Time
}

type Monitor struct {
	cfg    *config.MonitorConfig
	flag   *atomic.Bool
	logger *slog.Logger

	procRoot string
	prevCPU  *cpuSample
	prevDisk *diskSample
}

func New(cfg *config.MonitorConfig, flag *atomic.Bool, logger *slog.Logger) *Monitor {
	return &Monitor{
		cfg:      cfg,
		flag:     flag,
		logger:   logger,
		procRoot: "/proc",
	}
}

// Run samples on the configured interval until the context ends. Sampling
// failures are logged and skipped, a broken /proc read must not flap the
// flag or kill the loop.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.sample()
		}
	}
}

func (m *Monitor) sample() {
	cpu, cpuOK := m.cpuPercent()
	mem, memOK := m.memoryPercent()
	disk, diskOK := m.diskPercent()

	overloaded := (cpuOK && cpu > m.cfg.CPUThreshold) ||
		(memOK && mem > m.cfg.MemoryThreshold) ||
		(diskOK && disk > m.cfg.DiskIOThreshold)

	if m.flag.Swap(overloaded) != overloaded {
		if overloaded {
			m.logger.Warn("system overloaded, shedding relay load",
				slog.Float64("cpu", cpu),
				slog.Float64("memory", mem),
				slog.Float64("disk_io", disk))
		} else {
			m.logger.Info("system load back to normal",
				slog.Float64("cpu", cpu),
				slog.Float64("memory", mem),
				slog.Float64("disk_io", disk))
		}
	}
}

// cpuPercent derives utilization from consecutive /proc/stat aggregates.
// The first call only primes the baseline.
func (m *Monitor) cpuPercent() (float64, bool) {
	current, err := m.readCPU()
	if err != nil {
		m.logger.Debug("cpu sample failed", slog.String("error", err.Error()))
		return 0, false
	}

	prev := m.prevCPU
	m.prevCPU = current
	if prev == nil || current.total <= prev.total {
		return 0, false
	}

	deltaTotal := current.total - prev.total
	deltaBusy := current.busy - prev.busy
	return float64(deltaBusy) / float64(deltaTotal) * 100, true
}

func (m *Monitor) readCPU() (*cpuSample, error) {
	file, err := os.Open(filepath.Join(m.procRoot, "stat"))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 5 || fields[0] != "cpu" {
			continue
		}

		var sample cpuSample
		for i, field := range fields[1:] {
			value, err := strconv.ParseUint(field, 10, 64)
			if err != nil {
				continue
			}
			sample.total += value
			// idle (3) and iowait (4) do not count as busy.
			if i != 3 && i != 4 {
				sample.busy += value
			}
		}
		return &sample, nil
	}
	return nil, os.ErrNotExist
}

func (m *Monitor) memoryPercent() (float64, bool) {
	file, err := os.Open(filepath.Join(m.procRoot, "meminfo"))
	if err != nil {
		m.logger.Debug("memory sample failed", slog.String("error", err.Error()))
		return 0, false
	}
	defer file.Close()

	var total, available uint64
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		value, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			continue
		}
		switch fields[0] {
		case "MemTotal:":
			total = value
		case "MemAvailable:":
			available = value
		}
	}
	if total == 0 {
		return 0, false
	}
	return (1 - float64(available)/float64(total)) * 100, true
}

// diskPercent approximates device utilization from the time-spent-doing-IO
// counter deltas in /proc/diskstats, taking the busiest device.
func (m *Monitor) diskPercent() (float64, bool) {
	current, err := m.readDisk()
	if err != nil {
		m.logger.Debug("disk sample failed", slog.String("error", err.Error()))
		return 0, false
	}

	prev := m.prevDisk
	m.prevDisk = current
	if prev == nil {
		return 0, false
	}

	elapsed := current.at.Sub(prev.at).Milliseconds()
	if elapsed <= 0 {
		return 0, false
	}

	var busiest float64
	for device, millis := range current.ioMillis {
		before, ok := prev.ioMillis[device]
		if !ok || millis < before {
			continue
		}
		percent := float64(millis-before) / float64(elapsed) * 100
		if percent > busiest {
			busiest = percent
		}
	}
	return busiest, true
}

func (m *Monitor) readDisk() (*diskSample, error) {
	file, err := os.Open(filepath.Join(m.procRoot, "diskstats"))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	sample := &diskSample{ioMillis: map[string]uint64{}, at: time.Now()}
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		// major minor name reads ... ios_in_progress ms_doing_io weighted
		if len(fields) < 13 {
			continue
		}
		name := fields[2]
		if strings.HasPrefix(name, "loop") || strings.HasPrefix(name, "ram") {
			continue
		}
		millis, err := strconv.ParseUint(fields[12], 10, 64)
		if err != nil {
			continue
		}
		sample.ioMillis[name] = millis
	}
	return sample, nil
}
