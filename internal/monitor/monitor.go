package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kula-app/memguard/internal/config"
	"github.com/kula-app/memguard/internal/meminfo"
	"github.com/kula-app/memguard/internal/tuple"
)

// Level is the signal level memory pressure has reached
type Level int

const (
	LevelNone Level = iota
	LevelTerm
	LevelKill
)

func (l Level) String() string {
	switch l {
	case LevelNone:
		return "none"
	case LevelTerm:
		return "SIGTERM"
	case LevelKill:
		return "SIGKILL"
	default:
		return fmt.Sprintf("Level(%d)", int(l))
	}
}

// Evaluate decides the level for the given counters.
// A level is reached when both available memory and free swap are at or below
// their thresholds. When a KiB threshold is set as well as the percent one,
// both have to be reached, so the lower of the two wins.
func Evaluate(info *meminfo.Info, cfg *config.Config) Level {
	kill := func(t tuple.TermKill) int64 { return t.Kill }
	term := func(t tuple.TermKill) int64 { return t.Term }

	if below(info, cfg, kill) {
		return LevelKill
	}
	if below(info, cfg, term) {
		return LevelTerm
	}
	return LevelNone
}

func below(info *meminfo.Info, cfg *config.Config, pick func(tuple.TermKill) int64) bool {
	mem := info.MemAvailablePercent() <= float64(pick(cfg.MemPercent))
	if cfg.MemKiB != nil {
		mem = mem && info.MemAvailableKiB <= pick(*cfg.MemKiB)
	}

	swap := info.SwapFreePercent() <= float64(pick(cfg.SwapPercent))
	if cfg.SwapKiB != nil {
		swap = swap && info.SwapFreeKiB <= pick(*cfg.SwapKiB)
	}

	return mem && swap
}

// Monitor periodically checks memory and reports the signal level
type Monitor struct {
	logger *slog.Logger
	config *config.Config
	read   func(path string) (*meminfo.Info, error)
}

// NewMonitor creates a new monitor
func NewMonitor(logger *slog.Logger, cfg *config.Config) *Monitor {
	return &Monitor{
		logger: logger,
		config: cfg,
		read:   meminfo.Read,
	}
}

// Run starts the monitoring loop and blocks until ctx is canceled
func (m *Monitor) Run(ctx context.Context) error {
	if m.config.ReportInterval <= 0 {
		return fmt.Errorf("report interval must be positive, got %s", m.config.ReportInterval)
	}

	m.logger.Info("starting monitoring loop",
		"interval", m.config.ReportInterval,
		"mem_percent", m.config.MemPercent.String(),
		"swap_percent", m.config.SwapPercent.String())

	// Run initial check immediately
	if _, err := m.CheckOnce(ctx); err != nil {
		m.logger.Error("initial check failed", "error", err)
	}

	ticker := time.NewTicker(m.config.ReportInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("monitoring loop stopped")
			return ctx.Err()
		case <-ticker.C:
			if _, err := m.CheckOnce(ctx); err != nil {
				m.logger.Error("check failed", "error", err)
			}
		}
	}
}

// CheckOnce reads the memory counters once and logs the resulting level
func (m *Monitor) CheckOnce(ctx context.Context) (Level, error) {
	if err := ctx.Err(); err != nil {
		return LevelNone, err
	}

	info, err := m.read(m.config.MeminfoPath)
	if err != nil {
		return LevelNone, fmt.Errorf("failed to read memory counters: %w", err)
	}

	level := Evaluate(info, m.config)
	attrs := []any{
		"signal_level", level.String(),
		"mem_available_percent", fmt.Sprintf("%.1f", info.MemAvailablePercent()),
		"mem_available", config.FormatKiB(info.MemAvailableKiB),
		"mem_total", config.FormatKiB(info.MemTotalKiB),
		"swap_free_percent", fmt.Sprintf("%.1f", info.SwapFreePercent()),
		"swap_free", config.FormatKiB(info.SwapFreeKiB),
		"swap_total", config.FormatKiB(info.SwapTotalKiB),
	}

	switch level {
	case LevelKill:
		m.logger.Error("memory critically low, SIGKILL level reached", attrs...)
	case LevelTerm:
		m.logger.Warn("memory low, SIGTERM level reached", attrs...)
	default:
		m.logger.Info("memory status", attrs...)
	}

	return level, nil
}
