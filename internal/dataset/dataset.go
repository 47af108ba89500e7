// Package dataset holds the in-memory IoT sensor dataset queried by the
// engines and the generator that produces it.
//
// What: Row is a mapping from lower-cased field name to value, Dataset an
// ordered slice of rows plus the column order of the fixed sensor schema.
// How: Datasets are produced wholesale by Generator and treated as read-only
// afterwards; callers that need a modified copy use Clone.
package dataset

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Row represents a single reading mapped by lower-cased field name.
type Row map[string]any

// Get returns the value stored under name (case-insensitive).
func (r Row) Get(name string) (any, bool) {
	v, ok := r[strings.ToLower(name)]
	return v, ok
}

// Clone returns a shallow copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Sensor schema column names in display order.
const (
	ColID           = "id"
	ColTimestamp    = "timestamp"
	ColDeviceID     = "device_id"
	ColLocation     = "location"
	ColTemperature  = "temperature"
	ColHumidity     = "humidity"
	ColPressure     = "pressure"
	ColBatteryLevel = "battery_level"
	ColStatus       = "status"
)

// Columns is the fixed field order of generated sensor rows.
var Columns = []string{
	ColID, ColTimestamp, ColDeviceID, ColLocation, ColTemperature,
	ColHumidity, ColPressure, ColBatteryLevel, ColStatus,
}

// TableName is the name under which the dataset is exposed to SQL engines.
const TableName = "sensor_data"

// Status values of a sensor row.
const (
	StatusOnline  = "Online"
	StatusOffline = "Offline"
)

// TimestampLayout is the sortable layout used for the timestamp column.
const TimestampLayout = "2006-01-02 15:04:05"

// Dataset is an ordered, read-only collection of sensor rows.
type Dataset struct {
	ID          uuid.UUID
	GeneratedAt time.Time
	Cols        []string
	Rows        []Row
}

// New wraps rows into a Dataset with a fresh generation id. When cols is
// empty the column order is taken from the sensor schema.
func New(cols []string, rows []Row) *Dataset {
	if len(cols) == 0 {
		cols = Columns
	}
	return &Dataset{
		ID:          uuid.New(),
		GeneratedAt: time.Now().UTC(),
		Cols:        append([]string(nil), cols...),
		Rows:        rows,
	}
}

// Len returns the number of rows; a nil dataset has none.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Rows)
}

// Clone returns a deep copy of the row slice so callers can reorder or
// modify rows without touching the source.
func (d *Dataset) Clone() *Dataset {
	if d == nil {
		return nil
	}
	rows := make([]Row, len(d.Rows))
	for i, r := range d.Rows {
		rows[i] = r.Clone()
	}
	return &Dataset{
		ID:          d.ID,
		GeneratedAt: d.GeneratedAt,
		Cols:        append([]string(nil), d.Cols...),
		Rows:        rows,
	}
}

// String summarizes the dataset for logs.
func (d *Dataset) String() string {
	if d == nil {
		return "dataset(<nil>)"
	}
	return fmt.Sprintf("dataset(%s, %d rows)", d.ID, len(d.Rows))
}
