// Package sensorsql is a SQL playground over a generated IoT sensor dataset.
//
// A Playground owns one dataset of sensor readings (table sensor_data) and
// one query engine chosen at startup: the embedded SQLite engine when it is
// available, otherwise the built-in fallback evaluator which understands a
// small SELECT subset:
//   - SELECT * or a field list, with avg(field) when grouping
//   - WHERE with numeric comparisons joined by AND / OR
//   - GROUP BY one field, ORDER BY one field ASC|DESC, LIMIT n
//
// # Basic Usage
//
//	ctx := context.Background()
//	pg, err := sensorsql.Open(ctx, sensorsql.Options{Size: 100})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	res, err := pg.Query(ctx, "SELECT device_id, avg(temperature) FROM sensor_data GROUP BY device_id")
//	if errors.Is(err, sensorsql.ErrInvalidCondition) {
//	    // show the WHERE clause problem to the user
//	}
//	for _, row := range res.Rows {
//	    fmt.Println(row)
//	}
//
// # Regenerating Data
//
// Regenerate replaces the dataset wholesale. Queries never modify it, and a
// query running during regeneration sees either the old or the new dataset,
// never a mix.
//
//	pg.Regenerate(500)
//
// For more examples, see the example_test.go file in the repository.
package sensorsql

import (
	"context"
	"log/slog"
	"sync"

	"github.com/SimonWaldherr/sensorsql/internal/config"
	"github.com/SimonWaldherr/sensorsql/internal/dataset"
	"github.com/SimonWaldherr/sensorsql/internal/engine"
	"github.com/SimonWaldherr/sensorsql/internal/metrics"
	"github.com/SimonWaldherr/sensorsql/internal/sqlite"
)

// ============================================================================
// Core Types - Re-exported from internal packages for public API
// ============================================================================

// Row is one record keyed by column name.
type Row = dataset.Row

// Dataset is an immutable snapshot of generated sensor readings.
type Dataset = dataset.Dataset

// Result is a query result with the engine name and execution time.
type Result = engine.Result

// Engine evaluates SELECT statements against a dataset.
type Engine = engine.Engine

// Prober is an Engine that can report whether it is usable.
type Prober = engine.Prober

// Mode selects the engine at startup.
type Mode = engine.Mode

// Engine modes.
const (
	ModeAuto     = engine.ModeAuto
	ModeSQLite   = engine.ModeSQLite
	ModeFallback = engine.ModeFallback
)

// Query errors. Every failed query wraps exactly one of them.
var (
	ErrEmptyQuery           = engine.ErrEmptyQuery
	ErrUnsupportedStatement = engine.ErrUnsupportedStatement
	ErrInvalidCondition     = engine.ErrInvalidCondition
	ErrEvaluation           = engine.ErrEvaluation
)

// TableName is the only table queries can read.
const TableName = dataset.TableName

// ErrorKind names the error kind of err ("" for nil).
func ErrorKind(err error) string { return engine.Kind(err) }

// ============================================================================
// Playground
// ============================================================================

// Options configures Open.
type Options struct {
	Mode   Mode
	Size   int   // dataset size; 0 means dataset.DefaultSize
	Seed   int64 // 0 picks a time-based seed
	Logger *slog.Logger
	// Real overrides the real engine probed in auto and sqlite modes.
	Real Prober
}

// Playground holds the current dataset, the selected engine and the
// simulation counters.
type Playground struct {
	mu       sync.RWMutex
	ds       *dataset.Dataset
	gen      *dataset.Generator
	eng      engine.Engine
	counters *metrics.Counters
	log      *slog.Logger
}

// Open selects the engine once and generates the initial dataset.
func Open(ctx context.Context, opts Options) (*Playground, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	probe := opts.Real
	if probe == nil {
		probe = sqlite.New()
	}
	eng, err := engine.Select(ctx, opts.Mode, probe)
	if err != nil {
		return nil, err
	}
	log.Info("engine selected", "engine", eng.Name(), "mode", opts.Mode)

	gen := dataset.NewGenerator(opts.Size, opts.Seed)
	p := &Playground{
		ds:       gen.Generate(),
		gen:      gen,
		eng:      eng,
		counters: metrics.NewCounters(),
		log:      log,
	}
	log.Info("dataset generated", "rows", p.ds.Len(), "id", p.ds.ID)
	return p, nil
}

// OpenConfig is Open driven by a loaded configuration.
func OpenConfig(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Playground, error) {
	mode, err := engine.ParseMode(cfg.Engine.Mode)
	if err != nil {
		return nil, err
	}
	p, err := Open(ctx, Options{Mode: mode, Size: cfg.Dataset.Size, Seed: cfg.Dataset.Seed, Logger: log})
	if err != nil {
		return nil, err
	}
	p.counters.SetVelocity(cfg.Simulate.Velocity)
	return p, nil
}

// Query runs sql against the current dataset.
func (p *Playground) Query(ctx context.Context, sql string) (*Result, error) {
	p.mu.RLock()
	ds := p.ds
	res, err := engine.Execute(ctx, p.eng, ds, sql)
	p.mu.RUnlock()

	if err != nil {
		kind := engine.Kind(err)
		metrics.ObserveQuery(p.eng.Name(), kind, 0)
		p.log.Debug("query failed", "engine", p.eng.Name(), "kind", kind, "err", err)
		return nil, err
	}
	metrics.ObserveQuery(res.Engine, "ok", res.Elapsed.Seconds())
	p.log.Debug("query executed",
		"engine", res.Engine,
		"rows", len(res.Rows),
		"elapsed_ms", res.ExecutionTimeMs(),
	)
	return res, nil
}

// Regenerate replaces the dataset with size fresh rows (0 keeps the current
// generator size) and returns it.
func (p *Playground) Regenerate(size int) *Dataset {
	p.mu.Lock()
	defer p.mu.Unlock()
	if size > 0 {
		p.gen.Size = size
	}
	p.ds = p.gen.Generate()
	p.log.Info("dataset generated", "rows", p.ds.Len(), "id", p.ds.ID)
	return p.ds
}

// Dataset returns the current dataset. Callers must not modify it.
func (p *Playground) Dataset() *Dataset {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.ds
}

// Engine returns the engine selected at Open.
func (p *Playground) Engine() Engine { return p.eng }

// Counters returns the simulation counters shared with the stream simulator
// and the metrics endpoints.
func (p *Playground) Counters() *metrics.Counters { return p.counters }
