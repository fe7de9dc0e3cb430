package diag_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/fatih/color"

	"kirin/diag"
	"kirin/interp"
	"kirin/ir"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		label string
	}{
		{"exhausted", interp.Exhausted(), "exhausted"},
		{"max depth", interp.MaxDepth(), "max-depth"},
		{"unbound", interp.UnboundValue(ir.SSAValue(3)), "unbound"},
		{"stage mismatch", interp.StageMismatch("x"), "stage-mismatch"},
		{"convergence", interp.DidNotConverge("x"), "did-not-converge"},
		{"terminator", fmt.Errorf("block: %w", ir.ErrInvalidTerminator), "terminator"},
		{"successor", fmt.Errorf("edge: %w", ir.ErrCrossRegionSuccessor), "successor"},
		{"no match", fmt.Errorf("resolve: %w", ir.ErrNoMatch), "dispatch"},
		{"ambiguous", fmt.Errorf("resolve: %w", ir.ErrAmbiguous), "dispatch"},
		{"unknown", fmt.Errorf("anything else"), "error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			label, _ := diag.Classify(tt.err)
			if label != tt.label {
				t.Fatalf("Classify = %q, want %q", label, tt.label)
			}
		})
	}
}

func TestReporterOutput(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = prev }()

	var buf strings.Builder
	r := diag.NewReporter(&buf)
	r.Report(interp.Exhausted())

	out := buf.String()
	if !strings.Contains(out, "ERROR") {
		t.Fatalf("output missing severity: %q", out)
	}
	if !strings.Contains(out, "[exhausted]") {
		t.Fatalf("output missing label: %q", out)
	}
	if !strings.Contains(out, "hint:") {
		t.Fatalf("output missing hint: %q", out)
	}
}

func TestReporterIgnoresNil(t *testing.T) {
	var buf strings.Builder
	diag.NewReporter(&buf).Report(nil)
	if buf.Len() != 0 {
		t.Fatalf("nil error produced output: %q", buf.String())
	}
}
