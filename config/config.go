// Package config loads execution and analysis options from TOML, the same
// manifest format the rest of the toolchain speaks.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"kirin/absint"
	"kirin/interp"
	"kirin/ir"
	"kirin/lattice"
)

// Exec configures concrete execution.
type Exec struct {
	// Fuel caps executed steps; 0 means unbounded.
	Fuel uint64 `toml:"fuel"`
	// MaxDepth caps the frame stack; 0 means unbounded.
	MaxDepth int `toml:"max_depth"`
}

// Analysis configures the abstract fixpoint.
type Analysis struct {
	// Widening selects the strategy: "all-joins", "loop-headers", or
	// "delayed". Empty means "all-joins".
	Widening string `toml:"widening"`
	// Delay is the revisit count for the "delayed" strategy.
	Delay int `toml:"delay"`
	// MaxIterations caps worklist pops; 0 keeps the default.
	MaxIterations int `toml:"max_iterations"`
	// NarrowingIterations bounds the descending phase; negative disables
	// narrowing, 0 keeps the default.
	NarrowingIterations int `toml:"narrowing_iterations"`
	// MaxSummaryIterations caps recursive summary iterations; 0 keeps the
	// default.
	MaxSummaryIterations int `toml:"max_summary_iterations"`
}

// Config is the root of an options file.
type Config struct {
	Exec     Exec     `toml:"exec"`
	Analysis Analysis `toml:"analysis"`
}

// Parse decodes a TOML document.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

// Load reads and decodes an options file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return Parse(data)
}

// ApplyExec configures a machine from the exec section.
func ApplyExec[V any](m *interp.Machine[V], e Exec) *interp.Machine[V] {
	if e.Fuel > 0 {
		m = m.WithFuel(e.Fuel)
	}
	if e.MaxDepth > 0 {
		m = m.WithMaxDepth(e.MaxDepth)
	}
	return m
}

// ApplyAnalysis configures an analyzer from the analysis section. headers
// supplies the loop-header set when the strategy is "loop-headers"; it is
// ignored otherwise.
func ApplyAnalysis[V lattice.AbstractValue[V]](
	a *absint.Analyzer[V],
	cfg Analysis,
	headers map[uint32]bool,
) (*absint.Analyzer[V], error) {
	w := absint.Widening{Delay: cfg.Delay}
	switch cfg.Widening {
	case "", "all-joins":
		w.Strategy = absint.AllJoins
	case "loop-headers":
		w.Strategy = absint.LoopHeaders
		w.Headers = make(map[ir.Block]bool, len(headers))
		for b, on := range headers {
			w.Headers[ir.Block(b)] = on
		}
	case "delayed":
		w.Strategy = absint.DelayedN
	default:
		return nil, fmt.Errorf("config: unknown widening strategy %q", cfg.Widening)
	}
	a = a.WithWidening(w)
	if cfg.MaxIterations > 0 {
		a = a.WithMaxIterations(cfg.MaxIterations)
	}
	switch {
	case cfg.NarrowingIterations < 0:
		a = a.WithNarrowingIterations(0)
	case cfg.NarrowingIterations > 0:
		a = a.WithNarrowingIterations(cfg.NarrowingIterations)
	}
	if cfg.MaxSummaryIterations > 0 {
		a = a.WithMaxSummaryIterations(cfg.MaxSummaryIterations)
	}
	return a, nil
}
