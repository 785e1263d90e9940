package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/kula-app/memguard/internal/config"
	"github.com/kula-app/memguard/internal/logging"
	"github.com/kula-app/memguard/internal/meminfo"
	"github.com/kula-app/memguard/internal/monitor"
	"github.com/kula-app/memguard/internal/tuple"
)

// Exit codes for invalid threshold options
const (
	exitBadMemPercent  = 15
	exitBadSwapPercent = 16
	exitBadMemSize     = 17
	exitBadSwapSize    = 18
)

// ExitError is an error that carries how the process should exit
type ExitError struct {
	Code int
	Err  error

	// NoColor is the resolved color setting for printing Err
	NoColor bool

	// Silent is set when Err has already been reported, e.g. by the flag package
	Silent bool
}

func (e *ExitError) Error() string {
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// The run function is like the main function, except that it takes in operating system fundamentals as arguments, and returns an error.
//
// If the run function finishes without an error, it means the application completed.
// If the run function returns an error, it means the application failed to complete.
func run(ctx context.Context, args []string, getenv func(key string) string, stderr io.Writer) (err error) {
	// Parse command-line flags
	flags := flag.NewFlagSet(args[0], flag.ContinueOnError)
	flags.SetOutput(stderr)
	memPercent := flags.String("m", "", "PERCENT[,KILL_PERCENT]: available memory thresholds for SIGTERM and SIGKILL (default 10,5)")
	swapPercent := flags.String("s", "", "PERCENT[,KILL_PERCENT]: free swap thresholds for SIGTERM and SIGKILL (default 10,5)")
	memSize := flags.String("M", "", "SIZE[,KILL_SIZE]: available memory thresholds in KiB")
	swapSize := flags.String("S", "", "SIZE[,KILL_SIZE]: free swap thresholds in KiB")
	interval := flags.Duration("r", 0, "Override report interval (e.g., 1s, 500ms)")
	once := flags.Bool("once", false, "Check memory once and exit")
	noColor := flags.Bool("no-color", false, "Disable colored output")
	debug := flags.Bool("debug", false, "Enable debug logging")
	meminfoPath := flags.String("meminfo", config.DefaultMeminfoPath, "Path to the meminfo file")
	if err := flags.Parse(args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		// The flag package has already printed the problem and the usage
		return &ExitError{Code: 2, Err: fmt.Errorf("failed to parse flags: %w", err), Silent: true}
	}

	cfg := config.DefaultConfig()
	cfg.Once = *once
	cfg.NoColor = *noColor || getenv("NO_COLOR") != ""
	cfg.MeminfoPath = *meminfoPath
	if *interval > 0 {
		cfg.ReportInterval = *interval
	}

	// From here on every failure carries the resolved color setting so main
	// prints it the same way as the warnings below
	defer func() {
		if err == nil {
			return
		}
		var exitErr *ExitError
		if !errors.As(err, &exitErr) {
			exitErr = &ExitError{Code: 1, Err: err}
			err = exitErr
		}
		exitErr.NoColor = cfg.NoColor
	}()

	// Warnings about corrected thresholds go straight to the terminal
	printer := newPrinter(stderr, cfg.NoColor)

	if *memPercent != "" {
		t, err := tuple.Parse(*memPercent, config.PercentLimit, printer)
		if err != nil {
			return &ExitError{Code: exitBadMemPercent, Err: fmt.Errorf("-m: %w", err)}
		}
		cfg.MemPercent = t
	}
	if *swapPercent != "" {
		t, err := tuple.Parse(*swapPercent, config.PercentLimit, printer)
		if err != nil {
			return &ExitError{Code: exitBadSwapPercent, Err: fmt.Errorf("-s: %w", err)}
		}
		cfg.SwapPercent = t
	}

	// Size thresholds are bounded by the installed RAM and swap
	if *memSize != "" || *swapSize != "" {
		info, err := meminfo.Read(cfg.MeminfoPath)
		if err != nil {
			return fmt.Errorf("failed to read memory totals: %w", err)
		}
		if *memSize != "" {
			t, err := tuple.Parse(*memSize, info.MemTotalKiB, printer)
			if err != nil {
				return &ExitError{Code: exitBadMemSize, Err: fmt.Errorf("-M: %w", err)}
			}
			cfg.MemKiB = &t
		}
		if *swapSize != "" {
			t, err := tuple.Parse(*swapSize, info.SwapTotalKiB, printer)
			if err != nil {
				return &ExitError{Code: exitBadSwapSize, Err: fmt.Errorf("-S: %w", err)}
			}
			cfg.SwapKiB = &t
		}
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(logging.NewTerminalHandler(stderr, level, cfg.NoColor))

	logArgs := []any{
		"mem_percent", cfg.MemPercent.String(),
		"swap_percent", cfg.SwapPercent.String(),
		"report_interval", cfg.ReportInterval,
		"meminfo", cfg.MeminfoPath,
	}
	if cfg.MemKiB != nil {
		logArgs = append(logArgs, "mem_size", config.FormatKiB(cfg.MemKiB.Term)+","+config.FormatKiB(cfg.MemKiB.Kill))
	}
	if cfg.SwapKiB != nil {
		logArgs = append(logArgs, "swap_size", config.FormatKiB(cfg.SwapKiB.Term)+","+config.FormatKiB(cfg.SwapKiB.Kill))
	}
	logger.Debug("configuration loaded", logArgs...)

	m := monitor.NewMonitor(logger, cfg)

	if cfg.Once {
		if _, err := m.CheckOnce(ctx); err != nil {
			return fmt.Errorf("memory check failed: %w", err)
		}
		return nil
	}

	// Derive a context that is canceled on OS interrupt/termination so the
	// loop can stop cleanly.
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := m.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("monitoring loop failed: %w", err)
	}

	logger.Info("memguard stopped")
	return nil
}

// newPrinter builds the printer for user-facing warnings and fatal errors.
// noColor takes precedence over opts.
func newPrinter(w io.Writer, noColor bool, opts ...logging.PrinterOption) *logging.Printer {
	if noColor {
		opts = append(opts, logging.WithColor(false))
	}
	return logging.NewPrinter(w, opts...)
}
