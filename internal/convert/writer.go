package convert

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Serialize renders records in the given output format. Array mode produces
// a single JSON array, pretty-printed when indent > 0. Lines mode produces
// one compact object per line; indent is accepted and ignored there.
func Serialize(records []Record, lines bool, indent int) ([]byte, error) {
	if lines {
		return serializeLines(records)
	}
	return serializeArray(records, indent)
}

func serializeArray(records []Record, indent int) ([]byte, error) {
	if records == nil {
		records = []Record{}
	}
	if indent <= 0 {
		data, err := json.Marshal(records)
		if err != nil {
			return nil, fmt.Errorf("serialize json: %w", err)
		}
		return data, nil
	}
	data, err := json.MarshalIndent(records, "", strings.Repeat(" ", indent))
	if err != nil {
		return nil, fmt.Errorf("serialize json: %w", err)
	}
	return data, nil
}

func serializeLines(records []Record) ([]byte, error) {
	var buf bytes.Buffer
	for _, record := range records {
		line, err := json.Marshal(record)
		if err != nil {
			return nil, fmt.Errorf("serialize json line: %w", err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}
