// Package render turns query results into text for terminals, files and
// documentation.
package render

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"

	"github.com/SimonWaldherr/sensorsql/internal/engine"
	"github.com/SimonWaldherr/sensorsql/internal/metrics"
)

// Format names an output format.
type Format string

const (
	Table    Format = "table"
	CSV      Format = "csv"
	TSV      Format = "tsv"
	JSON     Format = "json"
	YAML     Format = "yaml"
	Markdown Format = "markdown"
	XML      Format = "xml"
)

// Formats lists the supported formats.
var Formats = []Format{Table, CSV, TSV, JSON, YAML, Markdown, XML}

// NoResults is printed instead of an empty table.
const NoResults = "No results found"

// ParseFormat accepts a format name; "md" is an alias for markdown.
func ParseFormat(s string) (Format, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Table, nil
	}
	if s == "md" {
		return Markdown, nil
	}
	for _, f := range Formats {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown format %q", s)
}

var printer = message.NewPrinter(language.English)

// Number formats n with digit grouping.
func Number(n int64) string {
	return printer.Sprintf("%d", n)
}

// Stats is the summary line shown below a result.
func Stats(r *engine.Result) string {
	return fmt.Sprintf("%s rows returned in %.2f ms", Number(int64(len(r.Rows))), r.ExecutionTimeMs())
}

// ErrorLine is the message shown for a failed query.
func ErrorLine(err error) string {
	if err == nil || err.Error() == "" {
		return "Query failed"
	}
	return "Error: " + err.Error()
}

// Generated is the banner shown after a dataset is (re)generated.
func Generated(n int) string {
	return fmt.Sprintf("✓ Generated %s sample IoT sensor records", Number(int64(n)))
}

// Write renders rs in the given format. An empty result prints NoResults for
// the table and markdown formats and an empty document otherwise.
func Write(w io.Writer, f Format, rs *engine.ResultSet) error {
	switch f {
	case Table, "":
		if len(rs.Rows) == 0 {
			_, err := fmt.Fprintln(w, NoResults)
			return err
		}
		return writeTable(w, rs)
	case Markdown:
		if len(rs.Rows) == 0 {
			_, err := fmt.Fprintln(w, NoResults)
			return err
		}
		return writeMarkdown(w, rs)
	case CSV:
		return writeDelimited(w, rs, ',')
	case TSV:
		return writeDelimited(w, rs, '\t')
	case JSON:
		return writeJSON(w, rs)
	case YAML:
		return writeYAML(w, rs)
	case XML:
		return writeXML(w, rs)
	default:
		return fmt.Errorf("unknown format %q", f)
	}
}

func cell(v any) string {
	if v == nil {
		return "NULL"
	}
	return fmt.Sprintf("%v", v)
}

func padRight(s string, w int) string {
	n := utf8.RuneCountInString(s)
	if n >= w {
		return s
	}
	return s + strings.Repeat(" ", w-n)
}

func widths(rs *engine.ResultSet) []int {
	width := make([]int, len(rs.Cols))
	for i, c := range rs.Cols {
		width[i] = utf8.RuneCountInString(c)
	}
	for _, r := range rs.Rows {
		for i, c := range rs.Cols {
			if n := utf8.RuneCountInString(cell(r[c])); n > width[i] {
				width[i] = n
			}
		}
	}
	return width
}

func writeTable(w io.Writer, rs *engine.ResultSet) error {
	width := widths(rs)
	var b strings.Builder
	line := func(cells func(i int) string) {
		for i := range rs.Cols {
			if i > 0 {
				b.WriteString("  ")
			}
			b.WriteString(cells(i))
		}
		b.WriteString("\n")
	}
	line(func(i int) string { return padRight(rs.Cols[i], width[i]) })
	line(func(i int) string { return strings.Repeat("-", width[i]) })
	for _, r := range rs.Rows {
		line(func(i int) string { return padRight(cell(r[rs.Cols[i]]), width[i]) })
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func writeMarkdown(w io.Writer, rs *engine.ResultSet) error {
	width := widths(rs)
	var b strings.Builder
	b.WriteString("|")
	for i, c := range rs.Cols {
		b.WriteString(" " + padRight(c, width[i]) + " |")
	}
	b.WriteString("\n|")
	for i := range rs.Cols {
		b.WriteString(strings.Repeat("-", width[i]+2) + "|")
	}
	b.WriteString("\n")
	for _, r := range rs.Rows {
		b.WriteString("|")
		for i, c := range rs.Cols {
			v := strings.ReplaceAll(cell(r[c]), "|", `\|`)
			b.WriteString(" " + padRight(v, width[i]) + " |")
		}
		b.WriteString("\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func writeDelimited(w io.Writer, rs *engine.ResultSet, sep rune) error {
	cw := csv.NewWriter(w)
	cw.Comma = sep
	if err := cw.Write(rs.Cols); err != nil {
		return err
	}
	rec := make([]string, len(rs.Cols))
	for _, r := range rs.Rows {
		for i, c := range rs.Cols {
			rec[i] = scalar(r[c])
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// writeJSON emits an array of objects with keys in column order.
func writeJSON(w io.Writer, rs *engine.ResultSet) error {
	var b strings.Builder
	b.WriteString("[")
	for i, r := range rs.Rows {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("\n  {")
		j := 0
		for _, c := range rs.Cols {
			v, ok := r[c]
			if !ok {
				continue
			}
			if j > 0 {
				b.WriteString(", ")
			}
			k, _ := json.Marshal(c)
			val, err := json.Marshal(v)
			if err != nil {
				return fmt.Errorf("encode %s: %w", c, err)
			}
			b.Write(k)
			b.WriteString(": ")
			b.Write(val)
			j++
		}
		b.WriteString("}")
	}
	if len(rs.Rows) > 0 {
		b.WriteString("\n")
	}
	b.WriteString("]\n")
	_, err := io.WriteString(w, b.String())
	return err
}

// writeYAML emits a sequence of mappings with keys in column order.
func writeYAML(w io.Writer, rs *engine.ResultSet) error {
	doc := &yaml.Node{Kind: yaml.SequenceNode}
	for _, r := range rs.Rows {
		m := &yaml.Node{Kind: yaml.MappingNode}
		for _, c := range rs.Cols {
			v, ok := r[c]
			if !ok {
				continue
			}
			var val yaml.Node
			if err := val.Encode(v); err != nil {
				return fmt.Errorf("encode %s: %w", c, err)
			}
			m.Content = append(m.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: c}, &val)
		}
		doc.Content = append(doc.Content, m)
	}
	if len(doc.Content) == 0 {
		_, err := io.WriteString(w, "[]\n")
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}

// WriteSnapshot prints the 4Vs summary of a simulation run.
func WriteSnapshot(w io.Writer, s metrics.Snapshot, elapsed time.Duration) error {
	_, err := fmt.Fprintf(w,
		"Volume:    %s records\nVelocity:  %s records/s\nVariety:   structured %s, unstructured %s, semi-structured %s\nVeracity:  %.1f%% quality (%s valid, %s errors, %s missing)\nBatch:     %s pending\nStream:    %s events/s\nRan for %s\n",
		Number(s.Volume), Number(s.Velocity),
		Number(s.Structured), Number(s.Unstructured), Number(s.SemiStructured),
		s.Quality, Number(s.Valid), Number(s.Errors), Number(s.Missing),
		Number(s.BatchCount), Number(s.StreamRate),
		elapsed.Round(time.Millisecond),
	)
	return err
}
