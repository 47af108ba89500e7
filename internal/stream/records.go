// Package stream simulates the three kinds of data a sensor fleet produces
// (structured readings, unstructured log lines and semi-structured JSON
// documents) together with batch and stream processing.
package stream

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Reading is a structured sensor row.
type Reading struct {
	Timestamp   string `json:"timestamp"`
	DeviceID    string `json:"device_id"`
	Temperature string `json:"temperature"`
	Humidity    string `json:"humidity"`
	Status      string `json:"status"`
}

// Log levels of unstructured messages.
const (
	LevelInfo    = "info"
	LevelWarning = "warning"
	LevelError   = "error"
)

// LogLine is an unstructured log message.
type LogLine struct {
	Time    time.Time
	Level   string
	Message string
}

// String renders the line the way it is shown in the log view.
func (l LogLine) String() string {
	return fmt.Sprintf("[%s] %s: %s", l.Time.UTC().Format(time.RFC3339Nano), upper(l.Level), l.Message)
}

// Document is a semi-structured device document.
type Document struct {
	MessageID string      `json:"message_id"`
	Timestamp string      `json:"timestamp"`
	DeviceID  string      `json:"device_id"`
	Location  string      `json:"location"`
	Readings  DocReadings `json:"readings"`
	Metadata  DocMetadata `json:"metadata"`
}

// DocReadings is the nested measurement block of a Document.
type DocReadings struct {
	Value   string `json:"value"`
	Unit    string `json:"unit"`
	Quality string `json:"quality"`
}

// DocMetadata is the nested device block of a Document.
type DocMetadata struct {
	FirmwareVersion string `json:"firmware_version"`
	BatteryLevel    int    `json:"battery_level"`
	SignalStrength  int    `json:"signal_strength"`
}

var (
	streamDevices  = []string{"TEMP_001", "TEMP_002", "TEMP_003", "HUM_001", "HUM_002"}
	streamStatuses = []string{"Online", "Online", "Offline", "Maintenance"}
	logLevels      = []string{LevelInfo, LevelWarning, LevelError}
	logMessages    = []string{
		"Device TEMP_001 temperature reading: 24.5°C",
		"Network connection established to gateway",
		"Battery level low on device HUM_002",
		"Data transmission completed successfully",
		"Sensor calibration required for PRESS_001",
		"Warning: High temperature detected in Zone A",
		"Error: Failed to connect to device TEMP_003",
		"Maintenance scheduled for device HUM_001",
		"Data backup completed to cloud storage",
		"Alert: Humidity threshold exceeded in Server Room",
	}
	docDeviceTypes = []string{"temperature", "humidity", "pressure", "motion", "light"}
	docLocations   = []string{"Room A", "Server Rack 1", "Parking Lot", "Main Entrance", "Storage"}
)

// Source produces random records. It is not safe for concurrent use; the
// Simulator serializes access.
type Source struct {
	rng *rand.Rand
	now func() time.Time
}

// NewSource returns a Source seeded with seed (0 picks a time-based seed).
func NewSource(seed int64) *Source {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Source{rng: rand.New(rand.NewSource(seed)), now: time.Now}
}

func (s *Source) pick(list []string) string { return list[s.rng.Intn(len(list))] }

// Reading returns a structured row.
func (s *Source) Reading() Reading {
	return Reading{
		Timestamp:   s.now().UTC().Format("2006-01-02T15:04:05"),
		DeviceID:    s.pick(streamDevices),
		Temperature: strconv.FormatFloat(s.rng.Float64()*35+15, 'f', 1, 64),
		Humidity:    strconv.FormatFloat(s.rng.Float64()*80+20, 'f', 1, 64),
		Status:      s.pick(streamStatuses),
	}
}

// LogLine returns an unstructured log message.
func (s *Source) LogLine() LogLine {
	return LogLine{Time: s.now(), Level: s.pick(logLevels), Message: s.pick(logMessages)}
}

// Document returns a semi-structured device document.
func (s *Source) Document() Document {
	unit := "%"
	if s.rng.Float64() > 0.5 {
		unit = "°C"
	}
	quality := "poor"
	if s.rng.Float64() > 0.1 {
		quality = "good"
	}
	return Document{
		MessageID: uuid.NewString(),
		Timestamp: s.now().UTC().Format(time.RFC3339Nano),
		DeviceID:  fmt.Sprintf("%s_%03d", s.pick(docDeviceTypes), s.rng.Intn(999)+1),
		Location:  s.pick(docLocations),
		Readings: DocReadings{
			Value:   strconv.FormatFloat(s.rng.Float64()*100, 'f', 2, 64),
			Unit:    unit,
			Quality: quality,
		},
		Metadata: DocMetadata{
			FirmwareVersion: fmt.Sprintf("v%d.%d.%d", s.rng.Intn(3)+1, s.rng.Intn(9), s.rng.Intn(9)),
			BatteryLevel:    s.rng.Intn(100),
			SignalStrength:  s.rng.Intn(100),
		},
	}
}

// DocumentJSON returns a Document rendered as indented JSON.
func (s *Source) DocumentJSON() ([]byte, error) {
	return json.MarshalIndent(s.Document(), "", "  ")
}

func upper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if 'a' <= c && c <= 'z' {
			b[i] = c - 32
		}
	}
	return string(b)
}
