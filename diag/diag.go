// Package diag renders the library's error taxonomy for humans. The library
// itself returns errors as data; tools that talk to a terminal push them
// through a Reporter.
package diag

import (
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"

	"kirin/arena"
	"kirin/interp"
	"kirin/ir"
	"kirin/pipeline"
)

// Severity defines the importance of a diagnostic.
type Severity uint8

const (
	// SevInfo is for informational diagnostics.
	SevInfo Severity = iota
	// SevWarning is for warning diagnostics.
	SevWarning
	// SevError is for error diagnostics.
	SevError
)

func (s Severity) String() string {
	switch s {
	case SevInfo:
		return "INFO"
	case SevWarning:
		return "WARNING"
	case SevError:
		return "ERROR"
	}
	return "UNKNOWN"
}

func (s Severity) paint() *color.Color {
	switch s {
	case SevInfo:
		return color.New(color.FgCyan)
	case SevWarning:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgRed, color.Bold)
	}
}

// Reporter writes classified diagnostics to a writer. Whether the severity is
// colored follows color.NoColor, which fatih/color derives from NO_COLOR and
// from whether standard output is a terminal; the writer itself is not
// inspected.
type Reporter struct {
	w io.Writer
}

// NewReporter creates a reporter writing to w.
func NewReporter(w io.Writer) *Reporter {
	return &Reporter{w: w}
}

// Report renders one error with its classification and hint.
func (r *Reporter) Report(err error) {
	if err == nil {
		return
	}
	label, hint := Classify(err)
	sev := SevError
	_, _ = sev.paint().Fprintf(r.w, "%s", sev)
	_, _ = fmt.Fprintf(r.w, " [%s] %v", label, err)
	if hint != "" {
		_, _ = fmt.Fprintf(r.w, "\n  hint: %s", hint)
	}
	_, _ = fmt.Fprintln(r.w)
}

// Classify maps an error to a short label and an actionable hint.
func Classify(err error) (label, hint string) {
	var ie *interp.Error
	if errors.As(err, &ie) {
		switch ie.Kind {
		case interp.KindExhausted:
			return "exhausted", "raise the fuel limit or break the loop"
		case interp.KindMaxDepth:
			return "max-depth", "raise the depth limit or check for runaway recursion"
		case interp.KindUnbound:
			return "unbound", "the value was read before any statement bound it"
		case interp.KindStageMismatch:
			return "stage-mismatch", "use the dynamic driver for mixed-stage call chains"
		case interp.KindCallResolution:
			return "call-resolution", "no unique live specialization matches the call"
		case interp.KindDidNotConverge:
			return "did-not-converge", "check the domain's widening or raise the iteration cap"
		case interp.KindArityMismatch:
			return "arity", "argument count does not match the target's parameters"
		default:
			return "execution", ""
		}
	}
	var ae *arena.Error
	if errors.As(err, &ae) {
		return "storage", "the ID refers to an erased or foreign node"
	}
	switch {
	case errors.Is(err, ir.ErrInvalidTerminator):
		return "terminator", "every block ends with exactly one terminator"
	case errors.Is(err, ir.ErrCrossRegionSuccessor):
		return "successor", "terminators may only target blocks in their own region"
	case errors.Is(err, ir.ErrOrphanStatement):
		return "placement", "the statement is not where this operation expects it"
	case errors.Is(err, ir.ErrArityMismatch):
		return "arity", ""
	case errors.Is(err, ir.ErrUnknownSymbol):
		return "symbol", ""
	case errors.Is(err, ir.ErrNoMatch):
		return "dispatch", "no specialization accepts this signature"
	case errors.Is(err, ir.ErrAmbiguous):
		return "dispatch", "several specializations tie; narrow the call or the set"
	case errors.Is(err, pipeline.ErrStageMismatch):
		return "stage-mismatch", ""
	case errors.Is(err, pipeline.ErrUnknownStage):
		return "stage", ""
	}
	return "error", ""
}
