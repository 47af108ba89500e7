package stream

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/valyala/fastjson"

	"github.com/SimonWaldherr/sensorsql/internal/metrics"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestSimulator(t *testing.T) (*Simulator, *metrics.Counters) {
	t.Helper()
	c := metrics.NewCounters()
	return NewSimulator(c, NewSource(42), DefaultIntervals(), quietLogger()), c
}

func TestFeedKeepsNewestFirst(t *testing.T) {
	f := NewFeed[int](3)
	for i := 1; i <= 5; i++ {
		f.Push(i)
	}
	got := f.Items()
	want := []int{5, 4, 3}
	if len(got) != len(want) {
		t.Fatalf("items = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("items = %v, want %v", got, want)
		}
	}
	got[0] = 99
	if f.Items()[0] != 5 {
		t.Fatalf("Items must return a copy")
	}
	f.Clear()
	if f.Len() != 0 {
		t.Fatalf("len after clear = %d", f.Len())
	}
}

func TestSourceRecords(t *testing.T) {
	src := NewSource(3)
	for i := 0; i < 100; i++ {
		r := src.Reading()
		temp, err := strconv.ParseFloat(r.Temperature, 64)
		if err != nil || temp < 15 || temp >= 50 {
			t.Fatalf("temperature %q out of range", r.Temperature)
		}
		hum, err := strconv.ParseFloat(r.Humidity, 64)
		if err != nil || hum < 20 || hum >= 100 {
			t.Fatalf("humidity %q out of range", r.Humidity)
		}

		l := src.LogLine()
		line := l.String()
		if !strings.HasPrefix(line, "[") || !strings.HasSuffix(line, "] "+strings.ToUpper(l.Level)+": "+l.Message) {
			t.Fatalf("unexpected log line %q", line)
		}
	}

	raw, err := src.DocumentJSON()
	if err != nil {
		t.Fatal(err)
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("document is not valid JSON: %v", err)
	}
	if doc.MessageID == "" || doc.Readings.Unit == "" {
		t.Fatalf("incomplete document: %+v", doc)
	}
}

func TestInspect(t *testing.T) {
	var p fastjson.Parser
	raw := []byte(`{"device_id":"light_007","readings":{"quality":"good"},"metadata":{"battery_level":42}}`)
	got, err := Inspect(&p, raw)
	if err != nil {
		t.Fatal(err)
	}
	if got.DeviceID != "light_007" || got.Quality != "good" || got.Battery != 42 {
		t.Fatalf("inspected %+v", got)
	}
	if _, err := Inspect(&p, []byte(`[1,2]`)); err == nil {
		t.Fatalf("expected error for non-object document")
	}
	if _, err := Inspect(&p, []byte(`{broken`)); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestStepUpdatesFeedsAndCounters(t *testing.T) {
	sim, c := newTestSimulator(t)
	for _, k := range []Kind{KindStructured, KindStructured, KindLogs, KindDocuments} {
		if err := sim.Step(k); err != nil {
			t.Fatalf("step %s: %v", k, err)
		}
	}
	s := c.Snapshot()
	if s.Structured != 2 || s.Unstructured != 1 || s.SemiStructured != 1 || s.Volume != 4 {
		t.Fatalf("counters %+v", s)
	}
	if sim.Structured.Len() != 2 || sim.Logs.Len() != 1 || sim.Documents.Len() != 1 {
		t.Fatalf("feeds not filled")
	}
	if doc := sim.Documents.Items()[0]; doc.DeviceID == "" || doc.Raw == "" {
		t.Fatalf("document not inspected: %+v", doc)
	}

	if err := sim.Step(KindStream); err != nil {
		t.Fatal(err)
	}
	if r := c.Snapshot().StreamRate; r < 25 || r > 74 {
		t.Fatalf("stream rate %d", r)
	}
	if err := sim.Step(KindVolume); err != nil {
		t.Fatal(err)
	}
	if c.Snapshot().Volume <= 4 {
		t.Fatalf("volume tick generated nothing")
	}
	if err := sim.Step(Kind("nope")); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}

func TestToggle(t *testing.T) {
	sim, c := newTestSimulator(t)
	for _, k := range Kinds {
		on, err := sim.Toggle(k)
		if err != nil || !on || !sim.Active(k) {
			t.Fatalf("enable %s: on=%v err=%v", k, on, err)
		}
	}
	if err := sim.Step(KindStream); err != nil {
		t.Fatal(err)
	}
	on, err := sim.Toggle(KindStream)
	if err != nil || on || sim.Active(KindStream) {
		t.Fatalf("disable stream: on=%v err=%v", on, err)
	}
	if r := c.Snapshot().StreamRate; r != 0 {
		t.Fatalf("stream rate after disable = %d", r)
	}
	if !sim.Active(KindLogs) {
		t.Fatalf("disabling one kind affected another")
	}
}

func TestParseKind(t *testing.T) {
	for _, k := range Kinds {
		got, err := ParseKind(string(k))
		if err != nil || got != k {
			t.Fatalf("ParseKind(%q) = %q, %v", k, got, err)
		}
	}
	if _, err := ParseKind("video"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestScheduledStructured(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for the scheduler")
	}
	c := metrics.NewCounters()
	iv := DefaultIntervals()
	iv.Structured = 200 * time.Millisecond
	sim := NewSimulator(c, NewSource(1), iv, quietLogger())
	if err := sim.Enable(KindStructured); err != nil {
		t.Fatal(err)
	}
	sim.Start()
	deadline := time.Now().Add(3 * time.Second)
	for sim.Structured.Len() == 0 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	sim.Stop()
	if sim.Structured.Len() == 0 {
		t.Fatalf("scheduler never emitted a reading")
	}
}

func TestIntervals(t *testing.T) {
	iv := DefaultIntervals()
	if got := iv.of(KindLogs); got != 1500*time.Millisecond {
		t.Fatalf("logs interval %v", got)
	}
	iv.Stream = time.Millisecond
	if got := iv.of(KindStream); got != MinInterval {
		t.Fatalf("stream interval %v, want clamp to %v", got, MinInterval)
	}
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if next := every(1500 * time.Millisecond).Next(now); next.Sub(now) != 1500*time.Millisecond {
		t.Fatalf("next fire after %v", next.Sub(now))
	}
	sim := NewSimulator(metrics.NewCounters(), NewSource(1), iv, quietLogger())
	if err := sim.Enable(Kind("video")); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
	if sim.Active(Kind("video")) {
		t.Fatalf("unknown kind must not be scheduled")
	}
}

func TestBatch(t *testing.T) {
	c := metrics.NewCounters()
	b := NewBatch(c)
	if !b.Generate() {
		t.Fatalf("empty batch should generate")
	}
	if b.Generate() {
		t.Fatalf("pending batch must not generate again")
	}
	if b.Pending() != BatchSize || c.Snapshot().BatchCount != BatchSize {
		t.Fatalf("pending = %d, counters = %d", b.Pending(), c.Snapshot().BatchCount)
	}

	var seen int
	n, err := b.Process(context.Background(), 0, func(done, total int) {
		seen = done
		if total != BatchSize {
			t.Errorf("total = %d", total)
		}
	})
	if err != nil || n != BatchSize || seen != BatchSize {
		t.Fatalf("process: n=%d seen=%d err=%v", n, seen, err)
	}
	if b.Pending() != 0 || c.Snapshot().BatchCount != 0 {
		t.Fatalf("queue not cleared")
	}
}

func TestBatchCancel(t *testing.T) {
	b := NewBatch(metrics.NewCounters())
	b.Generate()
	ctx, cancel := context.WithCancel(context.Background())
	n, err := b.Process(ctx, 10*time.Millisecond, func(done, _ int) {
		if done == 3 {
			cancel()
		}
	})
	if err == nil || n != 3 {
		t.Fatalf("n=%d err=%v", n, err)
	}
	if b.Pending() != BatchSize {
		t.Fatalf("cancelled run must keep the queue, pending=%d", b.Pending())
	}
}

func TestProcessBatchAlternates(t *testing.T) {
	sim, _ := newTestSimulator(t)
	ctx := context.Background()
	if n, err := sim.ProcessBatch(ctx, 0, nil); err != nil || n != BatchSize || sim.Batch.Pending() != BatchSize {
		t.Fatalf("first call should queue: n=%d err=%v", n, err)
	}
	if n, err := sim.ProcessBatch(ctx, 0, nil); err != nil || n != BatchSize || sim.Batch.Pending() != 0 {
		t.Fatalf("second call should process: n=%d err=%v", n, err)
	}
}
