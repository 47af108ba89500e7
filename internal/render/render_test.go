package render

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/SimonWaldherr/sensorsql/internal/dataset"
	"github.com/SimonWaldherr/sensorsql/internal/engine"
	"github.com/SimonWaldherr/sensorsql/internal/metrics"
)

func sample() *engine.ResultSet {
	return &engine.ResultSet{
		Cols: []string{"device_id", "avg_temperature"},
		Rows: []dataset.Row{
			{"device_id": "TEMP_001", "avg_temperature": "21.50"},
			{"device_id": "HUMID_001", "avg_temperature": "30.25"},
		},
	}
}

func TestTable(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, Table, sample()); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header, rule and two rows, got %q", buf.String())
	}
	if lines[0] != "device_id  avg_temperature" {
		t.Fatalf("header %q", lines[0])
	}
	if lines[1] != "---------  ---------------" {
		t.Fatalf("rule %q", lines[1])
	}
	if !strings.HasPrefix(lines[2], "TEMP_001   21.50") {
		t.Fatalf("row %q", lines[2])
	}
}

func TestEmptyResult(t *testing.T) {
	empty := &engine.ResultSet{Cols: []string{"id"}, Rows: []dataset.Row{}}
	for _, f := range []Format{Table, Markdown} {
		var buf bytes.Buffer
		if err := Write(&buf, f, empty); err != nil {
			t.Fatal(err)
		}
		if strings.TrimSpace(buf.String()) != NoResults {
			t.Fatalf("%s: %q", f, buf.String())
		}
	}
	var buf bytes.Buffer
	if err := Write(&buf, JSON, empty); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Fatalf("json: %q", buf.String())
	}
}

func TestFormats(t *testing.T) {
	tests := []struct {
		format Format
		check  func(t *testing.T, out string)
	}{
		{CSV, func(t *testing.T, out string) {
			if !strings.HasPrefix(out, "device_id,avg_temperature\nTEMP_001,21.50\n") {
				t.Fatalf("csv %q", out)
			}
		}},
		{TSV, func(t *testing.T, out string) {
			if !strings.HasPrefix(out, "device_id\tavg_temperature\n") {
				t.Fatalf("tsv %q", out)
			}
		}},
		{JSON, func(t *testing.T, out string) {
			var got []map[string]string
			if err := json.Unmarshal([]byte(out), &got); err != nil {
				t.Fatalf("json: %v\n%s", err, out)
			}
			if len(got) != 2 || got[1]["avg_temperature"] != "30.25" {
				t.Fatalf("json %v", got)
			}
			if strings.Index(out, "device_id") > strings.Index(out, "avg_temperature") {
				t.Fatalf("keys out of column order: %s", out)
			}
		}},
		{YAML, func(t *testing.T, out string) {
			var got []map[string]string
			if err := yaml.Unmarshal([]byte(out), &got); err != nil {
				t.Fatalf("yaml: %v\n%s", err, out)
			}
			if len(got) != 2 || got[0]["device_id"] != "TEMP_001" {
				t.Fatalf("yaml %v", got)
			}
		}},
		{XML, func(t *testing.T, out string) {
			var got struct {
				Rows []struct {
					DeviceID string `xml:"device_id"`
					Avg      string `xml:"avg_temperature"`
				} `xml:"row"`
			}
			if err := xml.Unmarshal([]byte(out), &got); err != nil {
				t.Fatalf("xml: %v\n%s", err, out)
			}
			if len(got.Rows) != 2 || got.Rows[1].DeviceID != "HUMID_001" || got.Rows[1].Avg != "30.25" {
				t.Fatalf("xml %+v", got)
			}
		}},
		{Markdown, func(t *testing.T, out string) {
			if !strings.HasPrefix(out, "| device_id | avg_temperature |\n|-----------|") {
				t.Fatalf("markdown %q", out)
			}
		}},
	}
	for _, tc := range tests {
		t.Run(string(tc.format), func(t *testing.T) {
			var buf bytes.Buffer
			if err := Write(&buf, tc.format, sample()); err != nil {
				t.Fatal(err)
			}
			tc.check(t, buf.String())
		})
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": Table, "CSV": CSV, "md": Markdown, " yaml ": YAML} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Fatalf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("html"); err == nil {
		t.Fatalf("expected error for html")
	}
}

func TestMessages(t *testing.T) {
	r := &engine.Result{ResultSet: *sample(), Elapsed: 1500 * time.Microsecond}
	if got := Stats(r); got != "2 rows returned in 1.50 ms" {
		t.Fatalf("stats %q", got)
	}
	if got := ErrorLine(errors.New("boom")); got != "Error: boom" {
		t.Fatalf("error line %q", got)
	}
	if got := ErrorLine(nil); got != "Query failed" {
		t.Fatalf("error line %q", got)
	}
	if got := Generated(1000); got != "✓ Generated 1,000 sample IoT sensor records" {
		t.Fatalf("banner %q", got)
	}
}

func TestWriteSnapshot(t *testing.T) {
	c := metrics.NewCounters()
	c.RecordStructured()
	var buf bytes.Buffer
	if err := WriteSnapshot(&buf, c.Snapshot(), time.Second); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "Volume:    1 records") {
		t.Fatalf("snapshot %q", buf.String())
	}
}
