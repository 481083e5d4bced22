// package formatter encodes entity tables for object storage (CSV, JSON)
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/desertthunder/playlist-etl/internal/models"
	"github.com/desertthunder/playlist-etl/internal/shared"
)

// Format names an output encoding. The value doubles as the file extension.
type Format string

const (
	CSV  Format = "csv"
	JSON Format = "json"
)

// ParseFormat validates a configured format name.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case CSV, JSON:
		return Format(s), nil
	default:
		return "", fmt.Errorf("%w: unknown output format %q", shared.ErrInvalidArgument, s)
	}
}

// Extension returns the file extension without the dot.
func (f Format) Extension() string { return string(f) }

// ContentType returns the MIME type written with the object.
func (f Format) ContentType() string {
	switch f {
	case JSON:
		return "application/json"
	default:
		return "text/csv"
	}
}

// Encode renders a table in format f.
func Encode(t models.Table, f Format) ([]byte, error) {
	switch f {
	case CSV:
		return ToCSV(t)
	case JSON:
		return ToJSON(t)
	default:
		return nil, fmt.Errorf("%w: unknown output format %q", shared.ErrInvalidArgument, f)
	}
}

// WriteTable encodes t in format f and writes it to w.
func WriteTable(w io.Writer, t models.Table, f Format) error {
	data, err := Encode(t, f)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write %s table: %w", t.Entity, err)
	}
	return nil
}

// ToCSV writes the header row followed by one row per record. Empty values become empty cells.
//
// A table with no rows still produces its header.
func ToCSV(t models.Table) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(t.Columns); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	record := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		if len(row) != len(t.Columns) {
			return nil, fmt.Errorf("%w: %s row has %d values for %d columns", shared.ErrInvalidInput, t.Entity, len(row), len(t.Columns))
		}
		for i, v := range row {
			record[i] = cell(v)
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ToJSON writes a JSON array with one object per record, keys in column order.
func ToJSON(t models.Table) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("[")

	for r, row := range t.Rows {
		if len(row) != len(t.Columns) {
			return nil, fmt.Errorf("%w: %s row has %d values for %d columns", shared.ErrInvalidInput, t.Entity, len(row), len(t.Columns))
		}
		if r > 0 {
			buf.WriteString(",")
		}
		buf.WriteString("\n{")
		for i, col := range t.Columns {
			if i > 0 {
				buf.WriteString(",")
			}
			key, _ := json.Marshal(col)
			val, err := json.Marshal(row[i])
			if err != nil {
				return nil, fmt.Errorf("failed to encode %s.%s: %w", t.Entity, col, err)
			}
			buf.Write(key)
			buf.WriteString(":")
			buf.Write(val)
		}
		buf.WriteString("}")
	}

	if len(t.Rows) > 0 {
		buf.WriteString("\n")
	}
	buf.WriteString("]\n")
	return buf.Bytes(), nil
}

func cell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}
