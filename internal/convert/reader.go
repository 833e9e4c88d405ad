package convert

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// EncodingUTF8SIG is the default input encoding: UTF-8 with an optional
// leading byte-order mark that is stripped before parsing.
const EncodingUTF8SIG = "utf-8-sig"

// ResolveEncoding maps a user-supplied encoding name to a decoder. The
// default and "utf-8" both accept an optional BOM. Other names resolve
// through the IANA character set registry.
func ResolveEncoding(name string) (encoding.Encoding, error) {
	trimmed := strings.ToLower(strings.TrimSpace(name))
	switch trimmed {
	case "", EncodingUTF8SIG, "utf-8", "utf8":
		return unicode.UTF8, nil
	}
	enc, err := ianaindex.IANA.Encoding(trimmed)
	if err != nil || enc == nil {
		return nil, fmt.Errorf("unknown encoding %q", name)
	}
	return enc, nil
}

// decodeBytes converts raw file content to UTF-8 using the named encoding.
// A byte-order mark in the input selects the matching Unicode decoder and is
// dropped from the result.
func decodeBytes(raw []byte, encodingName string) ([]byte, error) {
	enc, err := ResolveEncoding(encodingName)
	if err != nil {
		return nil, err
	}
	reader := transform.NewReader(bytes.NewReader(raw), unicode.BOMOverride(enc.NewDecoder()))
	decoded, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", encodingName, err)
	}
	return decoded, nil
}

// Record is one CSV row as an ordered column→value mapping. Plain maps lose
// column order under encoding/json, so the record carries its own key order
// and marshals accordingly.
type Record struct {
	keys   []string
	values []string
}

// Get returns the value for a column name.
func (r Record) Get(key string) (string, bool) {
	for i, k := range r.keys {
		if k == key {
			return r.values[i], true
		}
	}
	return "", false
}

// Len reports the number of columns in the record.
func (r Record) Len() int {
	return len(r.keys)
}

// MarshalJSON writes the record as a JSON object in source column order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyJSON, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		valueJSON, err := json.Marshal(r.values[i])
		if err != nil {
			return nil, err
		}
		buf.Write(keyJSON)
		buf.WriteByte(':')
		buf.Write(valueJSON)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Parse reads decoded CSV text into ordered records. The first row serves
// as the header when every cell is non-empty; otherwise all rows are data
// and columns are named col1..colN. Rows shorter than the header are padded
// with empty strings, longer rows get generated names for the extra cells.
func Parse(decoded []byte, dialect Dialect) ([]Record, []string, error) {
	rows, err := readRows(decoded, dialect)
	if err != nil {
		return nil, nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil, nil
	}

	var headers []string
	data := rows
	if validHeader(rows[0]) {
		headers = rows[0]
		data = rows[1:]
	} else {
		headers = generatedHeaders(len(rows[0]))
	}

	records := make([]Record, 0, len(data))
	for _, row := range data {
		records = append(records, buildRecord(headers, row))
	}
	return records, headers, nil
}

// readRows splits decoded CSV text into raw rows. encoding/csv hard-codes
// the double quote, so dialects with any other quote character go through a
// local tokenizer with the same lazy-quote tolerance.
func readRows(decoded []byte, dialect Dialect) ([][]string, error) {
	if dialect.Quote == '"' || dialect.Quote == 0 {
		reader := csv.NewReader(bytes.NewReader(decoded))
		reader.Comma = dialect.Comma
		reader.FieldsPerRecord = -1
		reader.LazyQuotes = true
		return reader.ReadAll()
	}
	return splitRows(decoded, dialect.Comma, dialect.Quote), nil
}

// splitRows tokenizes rows using a custom quote rune. A field that opens
// with the quote runs until its closing quote, with a doubled quote standing
// for a literal one; a quote later in an unquoted field is plain data. Blank
// lines are dropped, matching encoding/csv.
func splitRows(decoded []byte, comma, quote rune) [][]string {
	var (
		rows    [][]string
		row     []string
		field   strings.Builder
		inQuote bool
		opened  bool
		content bool
	)
	endField := func() {
		row = append(row, field.String())
		field.Reset()
		opened = false
	}
	endRow := func() {
		endField()
		rows = append(rows, row)
		row = nil
		content = false
	}

	runes := []rune(string(decoded))
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case inQuote:
			if r != quote {
				field.WriteRune(r)
				continue
			}
			if i+1 < len(runes) && runes[i+1] == quote {
				field.WriteRune(quote)
				i++
				continue
			}
			inQuote = false
		case r == quote && !opened && field.Len() == 0:
			inQuote = true
			opened = true
			content = true
		case r == comma:
			endField()
			content = true
		case r == '\r':
			// dropped; the record ends at the \n
		case r == '\n':
			if content || len(row) > 0 {
				endRow()
			}
		default:
			field.WriteRune(r)
			content = true
		}
	}
	if content || len(row) > 0 {
		endRow()
	}
	return rows
}

func validHeader(row []string) bool {
	if len(row) == 0 {
		return false
	}
	for _, cell := range row {
		if strings.TrimSpace(cell) == "" {
			return false
		}
	}
	return true
}

func generatedHeaders(n int) []string {
	headers := make([]string, n)
	for i := range headers {
		headers[i] = fmt.Sprintf("col%d", i+1)
	}
	return headers
}

func buildRecord(headers, row []string) Record {
	width := len(headers)
	if len(row) > width {
		width = len(row)
	}
	keys := make([]string, width)
	values := make([]string, width)
	for i := 0; i < width; i++ {
		if i < len(headers) {
			keys[i] = headers[i]
		} else {
			keys[i] = fmt.Sprintf("col%d", i+1)
		}
		if i < len(row) {
			values[i] = row[i]
		}
	}
	return Record{keys: keys, values: values}
}
