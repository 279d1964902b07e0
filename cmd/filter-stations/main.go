// Command filter-stations narrows a fetched station CSV to stations still
// reporting in a given year, sorted by the start of their record, so the
// longest-running stations come first. The result can be fed directly to
// fetch-observations as the station list.
//
// Usage:
//
//	go run ./cmd/filter-stations -in stations.csv -out stations_filtered.csv -year 2026
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	in := flag.String("in", "stations.csv", "input station CSV from fetch-stations")
	out := flag.String("out", "stations_filtered.csv", "output CSV path")
	year := flag.String("year", "2026", "keep stations whose maxdate starts with this year")
	flag.Parse()

	header, rows, err := readCSV(*in)
	if err != nil {
		return err
	}

	col := map[string]int{}
	for i, h := range header {
		col[h] = i
	}
	maxdateIdx, ok := col["maxdate"]
	if !ok {
		return fmt.Errorf("%s: no maxdate column", *in)
	}
	mindateIdx, ok := col["mindate"]
	if !ok {
		return fmt.Errorf("%s: no mindate column", *in)
	}

	var kept [][]string
	for _, row := range rows {
		if len(row) <= maxdateIdx {
			continue
		}
		if strings.HasPrefix(row[maxdateIdx], *year) {
			kept = append(kept, row)
		}
	}
	if len(kept) == 0 {
		return fmt.Errorf("no stations with maxdate starting with %s", *year)
	}

	// Longest record first; stations without a mindate sort last.
	sort.SliceStable(kept, func(i, j int) bool {
		return sortKey(kept[i], mindateIdx) < sortKey(kept[j], mindateIdx)
	})

	if err := writeCSV(*out, header, kept); err != nil {
		return err
	}

	log.Printf("wrote %d stations to %s", len(kept), *out)
	for _, row := range kept[:min(10, len(kept))] {
		log.Printf("  %s", strings.Join(row[:min(4, len(row))], " "))
	}
	return nil
}

func sortKey(row []string, mindateIdx int) string {
	if len(row) <= mindateIdx || row[mindateIdx] == "" {
		return "9999-12-31"
	}
	return row[mindateIdx]
}

func readCSV(path string) (header []string, rows [][]string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	all, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(all) < 1 {
		return nil, nil, fmt.Errorf("%s is empty", path)
	}
	return all[0], all[1:], nil
}

func writeCSV(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
