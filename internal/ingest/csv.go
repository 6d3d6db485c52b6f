// Package ingest reads NGS survey-mark datasheet extracts from disk and turns
// them into point records for the engine.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/beetlebugorg/benchmap/pkg/benchmap"
)

// Columns lists the fields of a processed state file, in file order.
var Columns = []string{
	"data_date",
	"data_srce",
	"pid",
	"name",
	"dec_lat",
	"dec_lon",
	"state",
	"county",
	"marker",
	"setting",
	"last_recv",
	"last_cond",
	"last_recby",
	"ortho_ht",
}

// requiredColumns must be present in the header; the rest are optional.
var requiredColumns = []string{"pid", "dec_lat", "dec_lon"}

// ErrMissingColumn indicates a required column is absent from the header.
type ErrMissingColumn struct {
	Column string
}

func (e *ErrMissingColumn) Error() string {
	return fmt.Sprintf("missing required column %q", e.Column)
}

// ReadResult holds the outcome of reading one CSV file.
type ReadResult struct {
	Points  []benchmap.PointRecord
	Rows    int // Data rows read, excluding the header
	Skipped int // Rows rejected for a bad coordinate or empty pid
}

// ReadPoints parses a state CSV. Every field has double quotes removed and
// surrounding whitespace trimmed. Rows with an empty pid or a coordinate that
// does not parse or is out of range are skipped and counted, not reported as
// errors. Columns may appear in any order; unknown columns are ignored.
func ReadPoints(r io.Reader) (*ReadResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err == io.EOF {
		return &ReadResult{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.ToLower(cleanField(strings.TrimPrefix(name, "\ufeff")))
		if _, dup := cols[name]; !dup {
			cols[name] = i
		}
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, &ErrMissingColumn{Column: name}
		}
	}

	get := func(record []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(record) {
			return ""
		}
		return cleanField(record[i])
	}

	result := &ReadResult{}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", result.Rows+1, err)
		}
		result.Rows++

		lat, latErr := strconv.ParseFloat(get(record, "dec_lat"), 64)
		lon, lonErr := strconv.ParseFloat(get(record, "dec_lon"), 64)
		if latErr != nil || lonErr != nil {
			result.Skipped++
			continue
		}

		p := benchmap.PointRecord{
			ID:                get(record, "pid"),
			Latitude:          lat,
			Longitude:         lon,
			Name:              get(record, "name"),
			Marker:            get(record, "marker"),
			Setting:           get(record, "setting"),
			LastRecoveredYear: recoveryYear(get(record, "last_recv")),
			LastCondition:     get(record, "last_cond"),
			LastRecoveredBy:   get(record, "last_recby"),
			DataDate:          get(record, "data_date"),
			DataSource:        get(record, "data_srce"),
			OrthoHeight:       get(record, "ortho_ht"),
			State:             strings.ToUpper(get(record, "state")),
			County:            get(record, "county"),
		}
		if p.Validate() != nil {
			result.Skipped++
			continue
		}

		result.Points = append(result.Points, p)
	}

	return result, nil
}

// ReadFile opens path and parses it with ReadPoints.
func ReadFile(path string) (*ReadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	result, err := ReadPoints(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return result, nil
}

func cleanField(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, `"`, ""))
}

// recoveryYear extracts the year from a last_recv value, which is published
// as YYYYMMDD, YYYYMM or YYYY. Anything else yields 0.
func recoveryYear(s string) int {
	if len(s) < 4 {
		return 0
	}
	year, err := strconv.Atoi(s[:4])
	if err != nil || year < 1800 || year > 2200 {
		return 0
	}
	return year
}
