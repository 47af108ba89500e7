package render

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"

	"github.com/SimonWaldherr/sensorsql/internal/engine"
)

type xmlField struct {
	XMLName xml.Name
	Value   string `xml:",chardata"`
}

type xmlRow struct {
	Fields []xmlField `xml:",any"`
}

type xmlRows struct {
	XMLName xml.Name `xml:"rows"`
	Rows    []xmlRow `xml:"row"`
}

// writeXML emits <rows><row><col>value</col>...</row>...</rows>. Fields a
// row does not carry are left out.
func writeXML(w io.Writer, rs *engine.ResultSet) error {
	doc := xmlRows{Rows: make([]xmlRow, 0, len(rs.Rows))}
	for _, r := range rs.Rows {
		row := xmlRow{Fields: make([]xmlField, 0, len(rs.Cols))}
		for _, c := range rs.Cols {
			v, ok := r[c]
			if !ok {
				continue
			}
			row.Fields = append(row.Fields, xmlField{XMLName: xml.Name{Local: c}, Value: scalar(v)})
		}
		doc.Rows = append(doc.Rows, row)
	}
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return err
	}
	if err := enc.Flush(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// scalar renders a cell for the text formats; nil becomes "".
func scalar(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}
