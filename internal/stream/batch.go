package stream

import (
	"context"
	"sync"
	"time"

	"github.com/SimonWaldherr/sensorsql/internal/metrics"
)

// BatchSize is the number of items queued by one Generate call.
const BatchSize = 50

// Batch models batch processing: items accumulate, then are processed in one
// run that empties the queue.
type Batch struct {
	mu       sync.Mutex
	pending  int
	running  bool
	counters *metrics.Counters
}

// NewBatch returns an empty batch reporting its size to c.
func NewBatch(c *metrics.Counters) *Batch {
	return &Batch{counters: c}
}

// Pending returns the number of queued items.
func (b *Batch) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pending
}

// Generate queues BatchSize items when the queue is empty. It reports
// whether anything was queued.
func (b *Batch) Generate() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pending > 0 || b.running {
		return false
	}
	b.pending = BatchSize
	b.counters.SetBatchCount(int64(b.pending))
	return true
}

// Process handles every queued item, waiting step between items and calling
// onItem (if set) after each. When all items are done the queue is cleared.
// A cancelled context stops early and leaves the queue intact.
func (b *Batch) Process(ctx context.Context, step time.Duration, onItem func(done, total int)) (int, error) {
	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return 0, nil
	}
	total := b.pending
	b.running = true
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		b.running = false
		b.mu.Unlock()
	}()

	for done := 1; done <= total; done++ {
		if step > 0 {
			t := time.NewTimer(step)
			select {
			case <-ctx.Done():
				t.Stop()
				return done - 1, ctx.Err()
			case <-t.C:
			}
		} else if err := ctx.Err(); err != nil {
			return done - 1, err
		}
		if onItem != nil {
			onItem(done, total)
		}
	}

	b.mu.Lock()
	b.pending = 0
	b.mu.Unlock()
	b.counters.SetBatchCount(0)
	return total, nil
}
