// Package metrics keeps the simulation's 4Vs counters (volume, velocity,
// variety, veracity) in an explicit state object and exposes them to
// Prometheus.
package metrics

import (
	"math/rand"
	"sync"
)

// DefaultVelocity is the records-per-second target before anyone adjusts it.
const DefaultVelocity = 10

// Snapshot is a point-in-time copy of Counters.
type Snapshot struct {
	Volume         int64   `json:"volume" yaml:"volume"`
	Velocity       int64   `json:"velocity" yaml:"velocity"`
	Structured     int64   `json:"structured" yaml:"structured"`
	Unstructured   int64   `json:"unstructured" yaml:"unstructured"`
	SemiStructured int64   `json:"semi_structured" yaml:"semi_structured"`
	Valid          int64   `json:"valid" yaml:"valid"`
	Errors         int64   `json:"errors" yaml:"errors"`
	Missing        int64   `json:"missing" yaml:"missing"`
	BatchCount     int64   `json:"batch_count" yaml:"batch_count"`
	StreamRate     int64   `json:"stream_rate" yaml:"stream_rate"`
	Quality        float64 `json:"quality_percent" yaml:"quality_percent"`
}

// Counters is safe for concurrent use; the stream scheduler updates it from
// its own goroutines.
type Counters struct {
	mu sync.Mutex
	s  Snapshot
}

// NewCounters returns zeroed counters with the default velocity.
func NewCounters() *Counters {
	return &Counters{s: Snapshot{Velocity: DefaultVelocity}}
}

// Reset zeroes volume, variety and veracity counters. Velocity, batch count
// and stream rate belong to their own controls and are kept.
func (c *Counters) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.s.Volume = 0
	c.s.Structured = 0
	c.s.Unstructured = 0
	c.s.SemiStructured = 0
	c.s.Valid = 0
	c.s.Errors = 0
	c.s.Missing = 0
}

// SetVelocity sets the records-per-second target, clamped at zero.
func (c *Counters) SetVelocity(v int64) {
	if v < 0 {
		v = 0
	}
	c.mu.Lock()
	c.s.Velocity = v
	c.mu.Unlock()
}

// RecordStructured counts one structured record.
func (c *Counters) RecordStructured() {
	c.mu.Lock()
	c.s.Structured++
	c.s.Volume++
	c.mu.Unlock()
}

// RecordUnstructured counts one unstructured record.
func (c *Counters) RecordUnstructured() {
	c.mu.Lock()
	c.s.Unstructured++
	c.s.Volume++
	c.mu.Unlock()
}

// RecordSemiStructured counts one semi-structured record.
func (c *Counters) RecordSemiStructured() {
	c.mu.Lock()
	c.s.SemiStructured++
	c.s.Volume++
	c.mu.Unlock()
}

// SetBatchCount records the number of queued batch items.
func (c *Counters) SetBatchCount(n int64) {
	c.mu.Lock()
	c.s.BatchCount = n
	c.mu.Unlock()
}

// SetStreamRate records the current stream processing rate.
func (c *Counters) SetStreamRate(n int64) {
	c.mu.Lock()
	c.s.StreamRate = n
	c.mu.Unlock()
}

// Tick simulates one second of ingest at the configured velocity: between
// 80% and 120% of velocity records arrive, split into the three data types
// (50/30/20) and the three quality classes (95/3/2). It returns the number
// of records generated.
func (c *Counters) Tick(rng *rand.Rand) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := int64(float64(c.s.Velocity) * (0.8 + rng.Float64()*0.4))
	for i := int64(0); i < n; i++ {
		c.s.Volume++
		switch r := rng.Float64(); {
		case r < 0.5:
			c.s.Structured++
		case r < 0.8:
			c.s.Unstructured++
		default:
			c.s.SemiStructured++
		}
		switch q := rng.Float64(); {
		case q > 0.05:
			c.s.Valid++
		case q > 0.02:
			c.s.Errors++
		default:
			c.s.Missing++
		}
	}
	return n
}

// QualityPercent is the share of valid records, 100 when nothing was seen.
func (c *Counters) QualityPercent() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.s.quality()
}

func (s Snapshot) quality() float64 {
	total := s.Valid + s.Errors + s.Missing
	if total == 0 {
		return 100
	}
	return float64(s.Valid) / float64(total) * 100
}

// Snapshot returns a copy of the counters with Quality filled in.
func (c *Counters) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.s
	s.Quality = s.quality()
	return s
}
