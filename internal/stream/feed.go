package stream

import (
	"fmt"
	"sync"

	"github.com/valyala/fastjson"
)

// Feed keeps the newest items first and drops the oldest beyond its
// capacity.
type Feed[T any] struct {
	mu    sync.Mutex
	cap   int
	items []T
}

// NewFeed returns a feed holding at most capacity items.
func NewFeed[T any](capacity int) *Feed[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Feed[T]{cap: capacity}
}

// Push inserts v at the front.
func (f *Feed[T]) Push(v T) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append([]T{v}, f.items...)
	if len(f.items) > f.cap {
		f.items = f.items[:f.cap]
	}
}

// Items returns a copy, newest first.
func (f *Feed[T]) Items() []T {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]T(nil), f.items...)
}

// Len returns the number of retained items.
func (f *Feed[T]) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

// Clear drops every item.
func (f *Feed[T]) Clear() {
	f.mu.Lock()
	f.items = nil
	f.mu.Unlock()
}

// Feed capacities of the three data views.
const (
	StructuredCapacity = 10
	LogCapacity        = 15
	DocumentCapacity   = 1
)

// Inspected is a JSON document together with the fields pulled out of it.
type Inspected struct {
	Raw      string
	DeviceID string
	Quality  string
	Battery  int
}

// Inspect extracts device id, reading quality and battery level from a
// semi-structured document without decoding it into a fixed type.
func Inspect(p *fastjson.Parser, raw []byte) (Inspected, error) {
	v, err := p.ParseBytes(raw)
	if err != nil {
		return Inspected{}, fmt.Errorf("inspect document: %w", err)
	}
	if v.Type() != fastjson.TypeObject {
		return Inspected{}, fmt.Errorf("inspect document: expected object, got %s", v.Type())
	}
	return Inspected{
		Raw:      string(raw),
		DeviceID: string(v.GetStringBytes("device_id")),
		Quality:  string(v.GetStringBytes("readings", "quality")),
		Battery:  v.GetInt("metadata", "battery_level"),
	}, nil
}
