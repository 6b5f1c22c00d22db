package rows

import (
	"encoding/csv"
	"fmt"
	"io"
	"reflect"
)

// DecodeCSV reads a CSV stream whose header row names match the exported
// field names of T exactly (the dialect-neutral row schemas this package
// defines) and returns one T per data row. CSV/XML dialect translation itself
// is a host concern (spec.md §1 Non-goals); this only covers the
// already-normalized shape these row structs describe, the same "read a
// header line, map columns by name, fill a struct" approach RumoClaro's
// parsers use per broker dialect, generalized to a single dialect-neutral
// reader since the dialect-specific mapping happens upstream of this engine.
func DecodeCSV[T any](r io.Reader) ([]T, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("rows: read csv header: %w", err)
	}

	var zero T
	fieldIndex := make(map[string]int, len(header))
	rt := reflect.TypeOf(zero)
	for i := 0; i < rt.NumField(); i++ {
		fieldIndex[rt.Field(i).Name] = i
	}

	columnFields := make([]int, len(header))
	for col, name := range header {
		idx, ok := fieldIndex[name]
		if !ok {
			columnFields[col] = -1
			continue
		}
		columnFields[col] = idx
	}

	var out []T
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("rows: read csv row: %w", err)
		}

		var row T
		rv := reflect.ValueOf(&row).Elem()
		for col, value := range record {
			if col >= len(columnFields) || columnFields[col] < 0 {
				continue
			}
			rv.Field(columnFields[col]).SetString(value)
		}
		out = append(out, row)
	}
	return out, nil
}
