package tuple

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// MaxInputLength is the longest option value Parse accepts, in bytes
const MaxInputLength = 100

// Error kinds returned by Parse, usable with errors.Is
var (
	ErrInputTooLong       = errors.New("input too long")
	ErrInvalidCharacter   = errors.New("invalid character")
	ErrMultipleSeparators = errors.New("multiple separators")
	ErrUnparseableNumber  = errors.New("unparseable number")
	ErrOutOfRange         = errors.New("value out of range")
	ErrDegenerateZero     = errors.New("degenerate zero")
)

// Sink receives the non-fatal warning emitted when SIGTERM is raised to SIGKILL
type Sink interface {
	Warn(msg string)
}

// ParseError describes why an option value was rejected
type ParseError struct {
	Kind    error
	Message string
}

func (e *ParseError) Error() string {
	return e.Message
}

func (e *ParseError) Unwrap() error {
	return e.Kind
}

func newError(kind error, format string, args ...any) *ParseError {
	return &ParseError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Correction holds the values the user passed when SIGTERM had to be raised
type Correction struct {
	Term int64
	Kill int64
}

// TermKill is a validated SIGTERM/SIGKILL threshold pair
type TermKill struct {
	Term int64
	Kill int64

	// Correction is set when the input had Term < Kill
	Correction *Correction
}

// String returns the canonical "term,kill" form
func (t TermKill) String() string {
	return strconv.FormatInt(t.Term, 10) + "," + strconv.FormatInt(t.Kill, 10)
}

// Parse parses a "term[,kill]" option value.
// When kill is omitted it defaults to term/2. If term < kill, a warning is
// sent to sink (which may be nil) and term is raised to kill.
func Parse(input string, upperLimit int64, sink Sink) (TermKill, error) {
	var tuple TermKill

	if len(input) > MaxInputLength {
		return tuple, newError(ErrInputTooLong, "argument too long (%d bytes)", len(input))
	}

	separators := 0
	for i := 0; i < len(input); i++ {
		c := input[i]
		if c >= '0' && c <= '9' {
			continue
		}
		if c == ',' {
			separators++
			if separators == 1 {
				continue
			}
			return tuple, newError(ErrMultipleSeparators, "found multiple ','")
		}
		return tuple, newError(ErrInvalidCharacter, "found non-digit '%c'", c)
	}

	termStr, killStr, hasKill := strings.Cut(input, ",")
	term, err := strconv.ParseInt(termStr, 10, 64)
	if err != nil {
		return tuple, newError(ErrUnparseableNumber, "could not parse '%s'", input)
	}
	tuple.Term = term

	// A trailing comma with nothing after it counts as term only
	if hasKill && killStr != "" {
		kill, err := strconv.ParseInt(killStr, 10, 64)
		if err != nil {
			return tuple, newError(ErrUnparseableNumber, "could not parse '%s'", input)
		}
		tuple.Kill = kill
	} else {
		tuple.Kill = tuple.Term / 2
	}

	if tuple.Term < tuple.Kill {
		if sink != nil {
			sink.Warn(fmt.Sprintf("warning: SIGTERM value %d is below SIGKILL value %d, setting SIGTERM = SIGKILL = %d",
				tuple.Term, tuple.Kill, tuple.Kill))
		}
		tuple.Correction = &Correction{Term: tuple.Term, Kill: tuple.Kill}
		tuple.Term = tuple.Kill
	}

	if tuple.Term < 0 {
		return tuple, newError(ErrOutOfRange, "negative SIGTERM value in '%s'", input)
	}
	if tuple.Term > upperLimit {
		return tuple, newError(ErrOutOfRange, "SIGTERM value %d exceeds limit %d", tuple.Term, upperLimit)
	}
	if tuple.Kill < 0 {
		return tuple, newError(ErrOutOfRange, "negative SIGKILL value in '%s'", input)
	}
	if tuple.Kill == 0 && tuple.Term == 0 {
		return tuple, newError(ErrDegenerateZero, "both SIGTERM and SIGKILL values are zero")
	}

	return tuple, nil
}
