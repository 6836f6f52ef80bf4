// Package importer turns pasted or uploaded CSV and JSON text into data bag
// records plus a column schema, and renders a bag back out as CSV.
package importer

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/karthickst/agenticosv2.0/internal/domain"
)

type Format string

const (
	FormatAuto Format = ""
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ErrUnsupportedFormat is returned for a format other than csv or json.
var ErrUnsupportedFormat = errors.New("unsupported import format")

// Result is a parsed data set ready to be stored as a data bag.
type Result struct {
	Records []map[string]any     `json:"records"`
	Schema  []domain.SchemaColumn `json:"schema"`
}

func empty() *Result {
	return &Result{Records: []map[string]any{}, Schema: []domain.SchemaColumn{}}
}

// Detect picks JSON when the trimmed text opens with '[' or '{' and CSV
// otherwise.
func Detect(text string) Format {
	t := strings.TrimSpace(text)
	if strings.HasPrefix(t, "[") || strings.HasPrefix(t, "{") {
		return FormatJSON
	}
	return FormatCSV
}

// Parse parses text in the given format, detecting it when format is empty.
func Parse(format Format, text string) (*Result, error) {
	if format == FormatAuto {
		format = Detect(text)
	}
	switch format {
	case FormatCSV:
		return ParseCSV(text)
	case FormatJSON:
		return ParseJSON(text)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// ParseCSV reads a header row followed by data rows. Every column is typed
// "string". Input with fewer than two non-blank lines yields an empty result.
func ParseCSV(text string) (*Result, error) {
	r := csv.NewReader(strings.NewReader(strings.TrimSpace(text)))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(rows) < 2 {
		return empty(), nil
	}

	headers := make([]string, len(rows[0]))
	schema := make([]domain.SchemaColumn, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.TrimSpace(h)
		schema[i] = domain.SchemaColumn{Name: headers[i], Type: "string"}
	}

	records := make([]map[string]any, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := make(map[string]any, len(headers))
		for i, h := range headers {
			v := ""
			if i < len(row) {
				v = strings.TrimSpace(row[i])
			}
			rec[h] = v
		}
		records = append(records, rec)
	}
	return &Result{Records: records, Schema: schema}, nil
}

// ParseJSON expects an array of objects. The schema comes from the keys of
// the first object, in document order, typed from that object's values. A
// non-array document or an empty array yields an empty result.
func ParseJSON(text string) (*Result, error) {
	var raw any
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	items, ok := raw.([]any)
	if !ok || len(items) == 0 {
		return empty(), nil
	}

	records := make([]map[string]any, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("parse json: element %d is not an object", i)
		}
		records = append(records, obj)
	}

	keys, err := objectKeys(text)
	if err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	schema := make([]domain.SchemaColumn, 0, len(keys))
	for _, k := range keys {
		schema = append(schema, domain.SchemaColumn{Name: k, Type: typeOf(records[0][k])})
	}
	return &Result{Records: records, Schema: schema}, nil
}

// objectKeys returns the keys of the first array element in the order they
// appear, which a decoded map cannot preserve.
func objectKeys(text string) ([]string, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	if _, err := dec.Token(); err != nil { // [
		return nil, err
	}
	if _, err := dec.Token(); err != nil { // {
		return nil, err
	}
	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := tok.(string)
		keys = append(keys, key)
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
	}
	return keys, nil
}

func typeOf(v any) string {
	switch v.(type) {
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	default:
		return "object"
	}
}

// WriteCSV renders records as CSV using the schema column order. Every value
// is quoted; missing and empty values become "".
func WriteCSV(w io.Writer, schema []domain.SchemaColumn, records []map[string]any) error {
	if len(schema) == 0 {
		return nil
	}
	header := make([]string, len(schema))
	for i, c := range schema {
		header[i] = c.Name
	}
	if _, err := io.WriteString(w, strings.Join(header, ",")); err != nil {
		return err
	}
	for _, rec := range records {
		var line bytes.Buffer
		line.WriteByte('\n')
		for i, c := range schema {
			if i > 0 {
				line.WriteByte(',')
			}
			line.WriteByte('"')
			line.WriteString(strings.ReplaceAll(cell(rec[c.Name]), `"`, `""`))
			line.WriteByte('"')
		}
		if _, err := w.Write(line.Bytes()); err != nil {
			return err
		}
	}
	return nil
}

func cell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if !t {
			return ""
		}
		return "true"
	case float64:
		if t == 0 {
			return ""
		}
		return fmt.Sprint(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}
