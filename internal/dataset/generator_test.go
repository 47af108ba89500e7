package dataset

import (
	"reflect"
	"strconv"
	"testing"
	"time"
)

func TestGenerateSchemaAndRanges(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	g := NewGenerator(250, 42)
	g.Now = func() time.Time { return now }
	ds := g.Generate()

	if ds.Len() != 250 {
		t.Fatalf("expected 250 rows, got %d", ds.Len())
	}
	if !reflect.DeepEqual(ds.Cols, Columns) {
		t.Fatalf("unexpected column order %v", ds.Cols)
	}
	devices := map[string]bool{}
	for _, d := range DeviceIDs() {
		devices[d] = true
	}
	locs := map[string]bool{}
	for _, l := range Locations() {
		locs[l] = true
	}
	for i, r := range ds.Rows {
		if r[ColID] != i+1 {
			t.Fatalf("row %d: id = %v", i, r[ColID])
		}
		ts, err := time.Parse(TimestampLayout, r[ColTimestamp].(string))
		if err != nil {
			t.Fatalf("row %d: bad timestamp %v", i, r[ColTimestamp])
		}
		if ts.After(now) || ts.Before(now.Add(-7*24*time.Hour-time.Second)) {
			t.Fatalf("row %d: timestamp %v outside last week", i, ts)
		}
		if !devices[r[ColDeviceID].(string)] {
			t.Fatalf("row %d: unknown device %v", i, r[ColDeviceID])
		}
		if !locs[r[ColLocation].(string)] {
			t.Fatalf("row %d: unknown location %v", i, r[ColLocation])
		}
		checkRange(t, r, ColTemperature, 10, 45)
		checkRange(t, r, ColHumidity, 20, 100)
		checkRange(t, r, ColPressure, 1000, 1200)
		if b := r[ColBatteryLevel].(int); b < 0 || b > 99 {
			t.Fatalf("row %d: battery_level %d", i, b)
		}
		if s := r[ColStatus]; s != StatusOnline && s != StatusOffline {
			t.Fatalf("row %d: status %v", i, s)
		}
	}
}

func checkRange(t *testing.T, r Row, col string, lo, hi float64) {
	t.Helper()
	s, ok := r[col].(string)
	if !ok {
		t.Fatalf("%s should be stored as string, got %T", col, r[col])
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		t.Fatalf("%s: %v", col, err)
	}
	if f < lo || f > hi {
		t.Fatalf("%s = %v outside [%v, %v]", col, f, lo, hi)
	}
}

func TestGenerateSeedIsReproducible(t *testing.T) {
	now := func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	a := NewGenerator(20, 7)
	a.Now = now
	b := NewGenerator(20, 7)
	b.Now = now
	if !reflect.DeepEqual(a.Generate().Rows, b.Generate().Rows) {
		t.Fatalf("same seed produced different rows")
	}
}

func TestGenerateDefaultSize(t *testing.T) {
	var g Generator
	if n := g.Generate().Len(); n != DefaultSize {
		t.Fatalf("expected %d rows, got %d", DefaultSize, n)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	ds := New(nil, []Row{{"id": 1, "device_id": "A"}})
	cp := ds.Clone()
	cp.Rows[0]["device_id"] = "B"
	if ds.Rows[0]["device_id"] != "A" {
		t.Fatalf("clone shares rows with source")
	}
	if cp.ID != ds.ID {
		t.Fatalf("clone should keep the generation id")
	}
}
