// Package winter post-processes downloaded observation CSVs: splitting them
// by datatype, computing monthly winter averages, and ranking seasons by
// warmth.
package winter

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Record is one observation row from a downloaded station CSV.
type Record struct {
	StationID   string
	StationName string
	Date        time.Time
	Datatype    string
	Value       float64
	Attributes  string
}

var dateLayouts = []string{"2006-01-02T15:04:05", "2006-01-02"}

// ReadRecords parses a station observation CSV. Rows with unparseable dates
// or values are skipped rather than failing the whole file.
func ReadRecords(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var records []Record
	for _, row := range rows {
		if len(row) < 5 {
			continue
		}
		if row[0] == "station_id" { // header
			continue
		}

		date, ok := parseDate(row[2])
		if !ok {
			continue
		}
		value, err := strconv.ParseFloat(row[4], 64)
		if err != nil {
			continue
		}

		rec := Record{
			StationID:   row[0],
			StationName: row[1],
			Date:        date,
			Datatype:    row[3],
			Value:       value,
		}
		if len(row) > 5 {
			rec.Attributes = row[5]
		}
		records = append(records, rec)
	}
	return records, nil
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func writeRecords(path string, records []Record) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)
	if err := w.Write([]string{"station_id", "station_name", "date", "datatype", "value", "attributes"}); err != nil {
		f.Close()
		return err
	}
	for _, rec := range records {
		row := []string{
			rec.StationID,
			rec.StationName,
			rec.Date.Format("2006-01-02T15:04:05"),
			rec.Datatype,
			strconv.FormatFloat(rec.Value, 'f', -1, 64),
			rec.Attributes,
		}
		if err := w.Write(row); err != nil {
			f.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// NormalizeStationName converts a station name to a filesystem-friendly slug.
// Falls back to the station ID when the name is empty.
func NormalizeStationName(name, id string) string {
	s := strings.TrimSpace(strings.ToLower(name))
	if s == "" {
		s = strings.ToLower(strings.ReplaceAll(id, ":", "_"))
	}
	return strings.ReplaceAll(s, " ", "-")
}

// DisplayName shortens a full station name like
// "BOZEMAN GALLATIN FIELD, MT US" to a city label like "Bozeman". Two-word
// Montana cities keep both words.
func DisplayName(fullName string) string {
	s := strings.TrimSpace(strings.SplitN(fullName, ",", 2)[0])
	parts := strings.Fields(strings.ReplaceAll(s, "-", " "))
	if len(parts) == 0 {
		return ""
	}

	chosen := parts[:1]
	if len(parts) >= 2 {
		first, second := strings.ToLower(parts[0]), strings.ToLower(parts[1])
		if (first == "miles" && second == "city") || (first == "great" && second == "falls") {
			chosen = parts[:2]
		}
	}

	out := make([]string, len(chosen))
	for i, w := range chosen {
		out[i] = titleWord(w)
	}
	return strings.Join(out, " ")
}

func titleWord(w string) string {
	if w == "" {
		return w
	}
	return strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
}
