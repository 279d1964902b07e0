// Package stationlist reads the operator-maintained list of station IDs.
package stationlist

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Entry is one station from the list file. Name is optional and only used
// for log output and the observation CSV.
type Entry struct {
	ID   string
	Name string
}

// Load reads station IDs from path, one per line. Blank lines and lines
// starting with # are ignored. A line may also be a CSV row with the ID in
// the first column and the name in the second, so a filtered station CSV can
// be used directly; its header row is skipped.
func Load(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open station list: %w", err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		entry, ok := parseLine(line)
		if !ok {
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read station list: %w", err)
	}

	if len(entries) == 0 {
		return nil, fmt.Errorf("station list %s has no entries", path)
	}
	return entries, nil
}

func parseLine(line string) (Entry, bool) {
	if strings.Contains(line, ",") {
		fields := strings.Split(line, ",")
		id := strings.TrimSpace(fields[0])
		if id == "" || strings.EqualFold(id, "id") { // header row
			return Entry{}, false
		}
		e := Entry{ID: id}
		if len(fields) > 1 {
			e.Name = strings.Trim(strings.TrimSpace(fields[1]), `"`)
		}
		return e, true
	}

	fields := strings.Fields(line)
	e := Entry{ID: fields[0]}
	if len(fields) > 1 {
		e.Name = strings.Join(fields[1:], " ")
	}
	return e, true
}
