package monitor

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kula-app/memguard/internal/config"
	"github.com/kula-app/memguard/internal/meminfo"
	"github.com/kula-app/memguard/internal/tuple"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name   string
		info   meminfo.Info
		modify func(*config.Config)
		want   Level
	}{
		{
			name: "plenty of memory",
			info: makeInfo(1000, 500, 1000, 900),
			want: LevelNone,
		},
		{
			name: "memory low but swap free",
			info: makeInfo(1000, 50, 1000, 900),
			want: LevelNone,
		},
		{
			name: "memory and swap at term threshold",
			info: makeInfo(1000, 100, 1000, 100),
			want: LevelTerm,
		},
		{
			name: "memory and swap at kill threshold",
			info: makeInfo(1000, 50, 1000, 50),
			want: LevelKill,
		},
		{
			name: "memory at kill, swap at term",
			info: makeInfo(1000, 40, 1000, 80),
			want: LevelTerm,
		},
		{
			name: "no swap counts as exhausted",
			info: makeInfo(1000, 80, 0, 0),
			want: LevelTerm,
		},
		{
			name: "size threshold not reached keeps level none",
			info: makeInfo(1000, 80, 0, 0),
			modify: func(c *config.Config) {
				c.MemKiB = &tuple.TermKill{Term: 60, Kill: 30}
			},
			want: LevelNone,
		},
		{
			name: "size and percent thresholds reached",
			info: makeInfo(1000, 20, 0, 0),
			modify: func(c *config.Config) {
				c.MemKiB = &tuple.TermKill{Term: 60, Kill: 30}
			},
			want: LevelKill,
		},
		{
			name: "swap size threshold",
			info: makeInfo(1000, 20, 1000, 40),
			modify: func(c *config.Config) {
				c.SwapKiB = &tuple.TermKill{Term: 50, Kill: 10}
			},
			want: LevelTerm,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			if tt.modify != nil {
				tt.modify(cfg)
			}
			if got := Evaluate(&tt.info, cfg); got != tt.want {
				t.Errorf("Evaluate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLevel_String(t *testing.T) {
	tests := []struct {
		level Level
		want  string
	}{
		{LevelNone, "none"},
		{LevelTerm, "SIGTERM"},
		{LevelKill, "SIGKILL"},
		{Level(7), "Level(7)"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.level.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMonitor_CheckOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meminfo")
	content := "MemTotal: 1000 kB\nMemAvailable: 40 kB\nSwapTotal: 0 kB\nSwapFree: 0 kB\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	cfg := config.DefaultConfig()
	cfg.MeminfoPath = path

	level, err := NewMonitor(logger, cfg).CheckOnce(context.Background())
	if err != nil {
		t.Fatalf("CheckOnce() error = %v", err)
	}
	if level != LevelKill {
		t.Errorf("CheckOnce() = %v, want %v", level, LevelKill)
	}
	if !strings.Contains(buf.String(), "signal_level=SIGKILL") {
		t.Errorf("log output = %q, want signal_level=SIGKILL", buf.String())
	}
}

func TestMonitor_CheckOnceReadError(t *testing.T) {
	cfg := config.DefaultConfig()
	m := NewMonitor(slog.New(slog.NewTextHandler(os.Stderr, nil)), cfg)
	m.read = func(string) (*meminfo.Info, error) {
		return nil, errors.New("boom")
	}

	if _, err := m.CheckOnce(context.Background()); err == nil || !strings.Contains(err.Error(), "boom") {
		t.Errorf("CheckOnce() error = %v, want wrapped boom", err)
	}
}

func TestMonitor_Run(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.ReportInterval = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calls := 0
	m := NewMonitor(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)), cfg)
	m.read = func(string) (*meminfo.Info, error) {
		calls++
		if calls == 3 {
			cancel()
		}
		info := makeInfo(1000, 500, 1000, 500)
		return &info, nil
	}

	err := m.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
	if calls < 3 {
		t.Errorf("read calls = %v, want at least 3", calls)
	}
}

func TestMonitor_RunRejectsNonPositiveInterval(t *testing.T) {
	tests := []struct {
		name     string
		interval time.Duration
	}{
		{name: "zero", interval: 0},
		{name: "negative", interval: -time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			cfg.ReportInterval = tt.interval

			calls := 0
			m := NewMonitor(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)), cfg)
			m.read = func(string) (*meminfo.Info, error) {
				calls++
				info := makeInfo(1000, 500, 1000, 500)
				return &info, nil
			}

			err := m.Run(context.Background())
			if err == nil || !strings.Contains(err.Error(), "report interval must be positive") {
				t.Errorf("Run() error = %v, want report interval error", err)
			}
			if calls != 0 {
				t.Errorf("read calls = %v, want 0", calls)
			}
		})
	}
}

func makeInfo(memTotal, memAvailable, swapTotal, swapFree int64) meminfo.Info {
	return meminfo.Info{
		MemTotalKiB:     memTotal,
		MemAvailableKiB: memAvailable,
		SwapTotalKiB:    swapTotal,
		SwapFreeKiB:     swapFree,
	}
}
