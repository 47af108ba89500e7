package stream

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/valyala/fastjson"

	"github.com/SimonWaldherr/sensorsql/internal/metrics"
)

// Kind names one schedulable simulation.
type Kind string

const (
	KindStructured Kind = "structured"
	KindLogs       Kind = "logs"
	KindDocuments  Kind = "json"
	KindVolume     Kind = "bigdata"
	KindStream     Kind = "stream"
)

// Kinds lists every simulation in display order.
var Kinds = []Kind{KindStructured, KindLogs, KindDocuments, KindVolume, KindStream}

// ParseKind validates a simulation name.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown simulation %q", s)
}

// Intervals configures how often each simulation emits. Delays below
// MinInterval are raised to it.
type Intervals struct {
	Structured time.Duration `mapstructure:"structured"`
	Logs       time.Duration `mapstructure:"logs"`
	Documents  time.Duration `mapstructure:"json"`
	Volume     time.Duration `mapstructure:"bigdata"`
	Stream     time.Duration `mapstructure:"stream"`
}

// DefaultIntervals returns the emission intervals of the demo page.
func DefaultIntervals() Intervals {
	return Intervals{
		Structured: 2 * time.Second,
		Logs:       1500 * time.Millisecond,
		Documents:  3 * time.Second,
		Volume:     time.Second,
		Stream:     time.Second,
	}
}

func (iv Intervals) of(k Kind) time.Duration {
	var d time.Duration
	switch k {
	case KindStructured:
		d = iv.Structured
	case KindLogs:
		d = iv.Logs
	case KindDocuments:
		d = iv.Documents
	case KindVolume:
		d = iv.Volume
	case KindStream:
		d = iv.Stream
	}
	if d < MinInterval {
		d = MinInterval
	}
	return d
}

// MinInterval is the shortest accepted emission interval.
const MinInterval = 100 * time.Millisecond

// every is a fixed-delay cron.Schedule. Unlike "@every" specs it keeps
// sub-second precision, so a 1.5s interval stays 1.5s.
type every time.Duration

func (e every) Next(t time.Time) time.Time { return t.Add(time.Duration(e)) }

// Simulator drives the simulations on a cron scheduler and feeds their
// output into the shared counters and the per-kind feeds.
type Simulator struct {
	mu        sync.Mutex
	cron      *cron.Cron
	entries   map[Kind]cron.EntryID
	intervals Intervals
	src       *Source
	parser    fastjson.Parser
	counters  *metrics.Counters
	log       *slog.Logger

	Structured *Feed[Reading]
	Logs       *Feed[LogLine]
	Documents  *Feed[Inspected]
	Batch      *Batch
}

// NewSimulator wires a simulator; nothing runs until Start and Enable.
func NewSimulator(c *metrics.Counters, src *Source, iv Intervals, log *slog.Logger) *Simulator {
	if log == nil {
		log = slog.Default()
	}
	return &Simulator{
		cron:       cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger))),
		entries:    make(map[Kind]cron.EntryID),
		intervals:  iv,
		src:        src,
		counters:   c,
		log:        log,
		Structured: NewFeed[Reading](StructuredCapacity),
		Logs:       NewFeed[LogLine](LogCapacity),
		Documents:  NewFeed[Inspected](DocumentCapacity),
		Batch:      NewBatch(c),
	}
}

// Start begins the scheduler loop.
func (s *Simulator) Start() {
	s.cron.Start()
	s.log.Info("simulator started")
}

// Stop halts the scheduler, waits for running jobs, and resets the stream
// rate.
func (s *Simulator) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.counters.SetStreamRate(0)
	s.log.Info("simulator stopped")
}

// Active reports whether kind is scheduled.
func (s *Simulator) Active(k Kind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[k]
	return ok
}

// Enable schedules kind; enabling an active kind is a no-op.
func (s *Simulator) Enable(k Kind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[k]; ok {
		return nil
	}
	if _, err := ParseKind(string(k)); err != nil {
		return err
	}
	d := s.intervals.of(k)
	s.entries[k] = s.cron.Schedule(every(d), cron.FuncJob(func() {
		if err := s.Step(k); err != nil {
			s.log.Warn("simulation step failed", "kind", k, "err", err)
		}
	}))
	s.log.Debug("simulation enabled", "kind", k, "every", d)
	return nil
}

// Disable unschedules kind.
func (s *Simulator) Disable(k Kind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.entries[k]
	if !ok {
		return
	}
	s.cron.Remove(id)
	delete(s.entries, k)
	if k == KindStream {
		s.counters.SetStreamRate(0)
	}
	s.log.Debug("simulation disabled", "kind", k)
}

// Toggle flips kind and reports whether it is now active.
func (s *Simulator) Toggle(k Kind) (bool, error) {
	if s.Active(k) {
		s.Disable(k)
		return false, nil
	}
	if err := s.Enable(k); err != nil {
		return false, err
	}
	return true, nil
}

// Step runs one emission of kind synchronously.
func (s *Simulator) Step(k Kind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch k {
	case KindStructured:
		s.Structured.Push(s.src.Reading())
		s.counters.RecordStructured()
	case KindLogs:
		s.Logs.Push(s.src.LogLine())
		s.counters.RecordUnstructured()
	case KindDocuments:
		raw, err := s.src.DocumentJSON()
		if err != nil {
			return err
		}
		doc, err := Inspect(&s.parser, raw)
		if err != nil {
			return err
		}
		s.Documents.Push(doc)
		s.counters.RecordSemiStructured()
	case KindVolume:
		s.counters.Tick(s.src.rng)
	case KindStream:
		s.counters.SetStreamRate(int64(s.src.rng.Intn(50) + 25))
	default:
		return fmt.Errorf("unknown simulation %q", k)
	}
	return nil
}

// ProcessBatch queues a batch when none is pending, otherwise processes the
// pending one. It returns the number of items queued or processed.
func (s *Simulator) ProcessBatch(ctx context.Context, step time.Duration, onItem func(done, total int)) (int, error) {
	if s.Batch.Generate() {
		return BatchSize, nil
	}
	return s.Batch.Process(ctx, step, onItem)
}
