package dataset

import (
	"math/rand"
	"strconv"
	"time"
)

// DefaultSize is the number of rows generated when no size is configured.
const DefaultSize = 100

var (
	deviceIDs = []string{"TEMP_001", "TEMP_002", "HUM_001", "HUM_002", "PRESS_001"}
	locations = []string{"Room A", "Room B", "Server Room", "Warehouse", "Office"}
)

// DeviceIDs returns the device identifiers the generator draws from.
func DeviceIDs() []string { return append([]string(nil), deviceIDs...) }

// Locations returns the locations the generator draws from.
func Locations() []string { return append([]string(nil), locations...) }

// Generator produces sensor datasets. The zero value generates DefaultSize
// rows from a time-seeded source relative to the current time.
type Generator struct {
	Size int
	Rand *rand.Rand
	Now  func() time.Time
}

// NewGenerator returns a generator for size rows. A seed of 0 uses the
// current time, any other seed makes generation reproducible.
func NewGenerator(size int, seed int64) *Generator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{Size: size, Rand: rand.New(rand.NewSource(seed))}
}

// Generate builds a fresh dataset. Timestamps fall within the seven days
// before Now; numeric readings are stored as decimal strings the way the
// sensors report them, id and battery_level as ints.
func (g *Generator) Generate() *Dataset {
	size := g.Size
	if size <= 0 {
		size = DefaultSize
	}
	rng := g.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	base := now().UTC()
	week := float64(7 * 24 * time.Hour)

	rows := make([]Row, 0, size)
	for i := 0; i < size; i++ {
		ts := base.Add(-time.Duration(rng.Float64() * week))
		status := StatusOnline
		if rng.Float64() <= 0.1 {
			status = StatusOffline
		}
		rows = append(rows, Row{
			ColID:           i + 1,
			ColTimestamp:    ts.Format(TimestampLayout),
			ColDeviceID:     deviceIDs[rng.Intn(len(deviceIDs))],
			ColLocation:     locations[rng.Intn(len(locations))],
			ColTemperature:  strconv.FormatFloat(rng.Float64()*35+10, 'f', 1, 64),
			ColHumidity:     strconv.FormatFloat(rng.Float64()*80+20, 'f', 1, 64),
			ColPressure:     strconv.FormatFloat(rng.Float64()*200+1000, 'f', 0, 64),
			ColBatteryLevel: rng.Intn(100),
			ColStatus:       status,
		})
	}
	return New(Columns, rows)
}
