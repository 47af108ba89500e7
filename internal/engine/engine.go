package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/SimonWaldherr/sensorsql/internal/dataset"
)

// Engine executes a query string against a dataset. Implementations are
// selected once at startup and never swapped per query.
type Engine interface {
	Name() string
	Query(ctx context.Context, ds *dataset.Dataset, sql string) (*ResultSet, error)
}

// Prober is an Engine whose availability must be checked before use.
type Prober interface {
	Engine
	Probe(ctx context.Context) error
}

// Fallback is the built-in evaluator. It only understands the SELECT subset
// described in the package documentation and does not honor cancellation.
//
// Results of Fallback and a real relational engine agree only for plain
// "SELECT * FROM <dataset>". avg() without GROUP BY, ORDER BY over decimal
// strings and AND/OR mixtures can differ.
type Fallback struct{}

// NewFallback returns the built-in evaluator.
func NewFallback() *Fallback { return &Fallback{} }

// Name implements Engine.
func (*Fallback) Name() string { return "fallback" }

// Query implements Engine.
func (*Fallback) Query(_ context.Context, ds *dataset.Dataset, sql string) (*ResultSet, error) {
	q, err := Parse(sql)
	if err != nil {
		return nil, err
	}
	return q.Run(ds)
}

// Result is a ResultSet plus the engine that produced it and the time spent.
type Result struct {
	ResultSet
	Engine  string
	Elapsed time.Duration
}

// ExecutionTimeMs is the elapsed time in fractional milliseconds.
func (r *Result) ExecutionTimeMs() float64 {
	return float64(r.Elapsed.Nanoseconds()) / 1e6
}

// Execute trims sql, rejects blank input with ErrEmptyQuery, and times a
// single call of eng. Errors abort the whole query and always wrap one of the
// error kinds in this package.
func Execute(ctx context.Context, eng Engine, ds *dataset.Dataset, sql string) (*Result, error) {
	sql = strings.TrimSpace(sql)
	if sql == "" {
		return nil, ErrEmptyQuery
	}
	start := time.Now()
	rs, err := eng.Query(ctx, ds, sql)
	elapsed := time.Since(start)
	if err != nil {
		return nil, classify(err)
	}
	return &Result{ResultSet: *rs, Engine: eng.Name(), Elapsed: elapsed}, nil
}

// Mode selects which engine Select returns.
type Mode string

const (
	ModeAuto     Mode = "auto"
	ModeSQLite   Mode = "sqlite"
	ModeFallback Mode = "fallback"
)

// ParseMode validates a configured engine mode; empty means auto.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeAuto, nil
	case ModeAuto, ModeSQLite, ModeFallback:
		return m, nil
	}
	return "", fmt.Errorf("unknown engine mode %q (want auto, sqlite or fallback)", s)
}

// Select picks the engine for the process. ModeAuto uses real when its probe
// succeeds and the fallback otherwise; ModeSQLite fails if real is
// unavailable.
func Select(ctx context.Context, mode Mode, real Prober) (Engine, error) {
	switch mode {
	case ModeFallback:
		return NewFallback(), nil
	case ModeSQLite:
		if real == nil {
			return nil, fmt.Errorf("engine mode %s: no real engine configured", mode)
		}
		if err := real.Probe(ctx); err != nil {
			return nil, fmt.Errorf("engine mode %s: %w", mode, err)
		}
		return real, nil
	case ModeAuto, "":
		if real == nil {
			return NewFallback(), nil
		}
		if err := real.Probe(ctx); err != nil {
			slog.Warn("real engine unavailable, using fallback evaluator", "engine", real.Name(), "err", err)
			return NewFallback(), nil
		}
		return real, nil
	}
	return nil, fmt.Errorf("unknown engine mode %q", mode)
}
