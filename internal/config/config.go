package config

import (
	"errors"
	"fmt"
	"time"

	"k8s.io/apimachinery/pkg/api/resource"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/kula-app/memguard/internal/tuple"
)

// PercentLimit is the upper bound for percent thresholds
const PercentLimit = 100

// DefaultMeminfoPath is where the kernel exposes memory counters
const DefaultMeminfoPath = "/proc/meminfo"

// Config represents the watchdog configuration
type Config struct {
	// MemPercent is the available-memory threshold pair in percent of MemTotal
	MemPercent tuple.TermKill `json:"memPercent"`

	// SwapPercent is the free-swap threshold pair in percent of SwapTotal
	SwapPercent tuple.TermKill `json:"swapPercent"`

	// MemKiB is an absolute available-memory threshold pair in KiB (nil means unset)
	MemKiB *tuple.TermKill `json:"memKiB,omitempty"`

	// SwapKiB is an absolute free-swap threshold pair in KiB (nil means unset)
	SwapKiB *tuple.TermKill `json:"swapKiB,omitempty"`

	// ReportInterval is how often memory is checked
	ReportInterval time.Duration `json:"reportInterval"`

	// MeminfoPath is the file memory counters are read from
	MeminfoPath string `json:"meminfoPath"`

	// Once runs a single check instead of the monitoring loop
	Once bool `json:"once"`

	// NoColor disables colored terminal output
	NoColor bool `json:"noColor"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		MemPercent:     tuple.TermKill{Term: 10, Kill: 5},
		SwapPercent:    tuple.TermKill{Term: 10, Kill: 5},
		ReportInterval: time.Second,
		MeminfoPath:    DefaultMeminfoPath,
	}
}

// Validate checks the configuration and reports every problem found
func (c *Config) Validate() error {
	var errs []error

	if c.ReportInterval <= 0 {
		errs = append(errs, fmt.Errorf("report interval must be positive, got %s", c.ReportInterval))
	}
	if c.MeminfoPath == "" {
		errs = append(errs, errors.New("meminfo path must not be empty"))
	}
	if err := validateTuple("memory percent", c.MemPercent, PercentLimit); err != nil {
		errs = append(errs, err)
	}
	if err := validateTuple("swap percent", c.SwapPercent, PercentLimit); err != nil {
		errs = append(errs, err)
	}
	if c.MemKiB != nil {
		if err := validateTuple("memory size", *c.MemKiB, -1); err != nil {
			errs = append(errs, err)
		}
	}
	if c.SwapKiB != nil {
		if err := validateTuple("swap size", *c.SwapKiB, -1); err != nil {
			errs = append(errs, err)
		}
	}

	return utilerrors.NewAggregate(errs)
}

// validateTuple re-checks the invariants tuple.Parse guarantees.
// A negative limit disables the upper bound check.
func validateTuple(name string, t tuple.TermKill, limit int64) error {
	switch {
	case t.Term < 0 || t.Kill < 0:
		return fmt.Errorf("%s: negative value in %s", name, t)
	case t.Term < t.Kill:
		return fmt.Errorf("%s: SIGTERM value %d is below SIGKILL value %d", name, t.Term, t.Kill)
	case t.Term == 0 && t.Kill == 0:
		return fmt.Errorf("%s: both SIGTERM and SIGKILL values are zero", name)
	case limit >= 0 && t.Term > limit:
		return fmt.Errorf("%s: SIGTERM value %d exceeds limit %d", name, t.Term, limit)
	}
	return nil
}

// FormatKiB renders a KiB amount in binary SI units, e.g. 2097152 -> "2Gi"
func FormatKiB(kib int64) string {
	return resource.NewQuantity(kib*1024, resource.BinarySI).String()
}
