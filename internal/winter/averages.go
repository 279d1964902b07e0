package winter

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Winter months in display order: the season runs October through March.
var winterMonths = []time.Month{
	time.October, time.November, time.December,
	time.January, time.February, time.March,
}

// Periods bounds the comparison windows for MonthlyAverages.
type Periods struct {
	// OldCutoff: observations strictly before this date form the "early"
	// period, e.g. 2000-10-01 for pre-2000 winters.
	OldCutoff time.Time
	// RecentStart: observations on or after this date form the "recent"
	// period, e.g. 2025-10-01 for the 2026 winter season.
	RecentStart time.Time
}

// MonthlyAverages computes each station's mean winter-month temperature,
// (mean TMAX + mean TMIN) / 2, for three periods: all years, before
// OldCutoff, and from RecentStart. Results go to one summary CSV with a row
// per station and period.
func MonthlyAverages(splitDir, outFile string, p Periods) error {
	stations, err := stationSlugs(splitDir)
	if err != nil {
		return err
	}
	if len(stations) == 0 {
		return fmt.Errorf("no split station files under %s", splitDir)
	}

	periods := []struct {
		label string
		in    func(time.Time) bool
	}{
		{"all", func(time.Time) bool { return true }},
		{fmt.Sprintf("<%d", p.OldCutoff.Year()), func(t time.Time) bool { return t.Before(p.OldCutoff) }},
		{strconv.Itoa(p.RecentStart.Year() + 1), func(t time.Time) bool { return !t.Before(p.RecentStart) }},
	}

	if err := os.MkdirAll(filepath.Dir(outFile), 0o755); err != nil {
		return err
	}
	f, err := os.Create(outFile)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"station", "period"}
	for _, m := range winterMonths {
		header = append(header, strings.ToLower(m.String()[:3]))
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, slug := range stations {
		tmax, _ := ReadRecords(filepath.Join(splitDir, "tmax", slug+".csv"))
		tmin, _ := ReadRecords(filepath.Join(splitDir, "tmin", slug+".csv"))
		if len(tmax) == 0 && len(tmin) == 0 {
			continue
		}

		display := stationDisplay(tmax, tmin, slug)

		for _, period := range periods {
			row := []string{display, period.label}
			for _, month := range winterMonths {
				row = append(row, formatCell(monthMean(tmax, tmin, month, period.in)))
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
	}

	w.Flush()
	return w.Error()
}

// monthMean returns (mean TMAX + mean TMIN)/2 for one calendar month within
// a period, and false when either series has no data there.
func monthMean(tmax, tmin []Record, month time.Month, in func(time.Time) bool) (float64, bool) {
	maxMean, okMax := seriesMean(tmax, month, in)
	minMean, okMin := seriesMean(tmin, month, in)
	if !okMax || !okMin {
		return 0, false
	}
	return (maxMean + minMean) / 2, true
}

func seriesMean(records []Record, month time.Month, in func(time.Time) bool) (float64, bool) {
	var sum float64
	var n int
	for _, rec := range records {
		if rec.Date.Month() != month || !in(rec.Date) {
			continue
		}
		sum += rec.Value
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

func formatCell(v float64, ok bool) string {
	if !ok {
		return ""
	}
	return strconv.FormatFloat(v, 'f', 1, 64)
}

// stationSlugs returns the sorted union of station file names across the
// tmax and tmin split directories.
func stationSlugs(splitDir string) ([]string, error) {
	seen := map[string]bool{}
	for _, sub := range []string{"tmax", "tmin"} {
		paths, err := filepath.Glob(filepath.Join(splitDir, sub, "*.csv"))
		if err != nil {
			return nil, err
		}
		for _, p := range paths {
			seen[strings.TrimSuffix(filepath.Base(p), ".csv")] = true
		}
	}

	slugs := make([]string, 0, len(seen))
	for s := range seen {
		slugs = append(slugs, s)
	}
	sort.Strings(slugs)
	return slugs, nil
}

func stationDisplay(tmax, tmin []Record, slug string) string {
	for _, recs := range [][]Record{tmax, tmin} {
		if len(recs) > 0 && recs[0].StationName != "" {
			return DisplayName(recs[0].StationName)
		}
	}
	return slug
}
