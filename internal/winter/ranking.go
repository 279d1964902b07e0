package winter

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"
)

// seasonMean is one winter season's mean temperature for a station.
type seasonMean struct {
	label string // "1995-1996"
	mean  float64
}

// RankSeasons writes, per station, its winter seasons ordered from warmest
// to coldest by mean temperature. A season spans October of year Y through
// March of year Y+1. Output: outDir/<station-slug>.csv with rank, season,
// and mean temperature columns.
func RankSeasons(splitDir, outDir string) error {
	stations, err := stationSlugs(splitDir)
	if err != nil {
		return err
	}
	if len(stations) == 0 {
		return fmt.Errorf("no split station files under %s", splitDir)
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}

	for _, slug := range stations {
		tmax, _ := ReadRecords(filepath.Join(splitDir, "tmax", slug+".csv"))
		tmin, _ := ReadRecords(filepath.Join(splitDir, "tmin", slug+".csv"))

		seasons := rankStation(tmax, tmin)
		if len(seasons) == 0 {
			continue
		}

		if err := writeRanking(filepath.Join(outDir, slug+".csv"), seasons); err != nil {
			return err
		}
	}
	return nil
}

func rankStation(tmax, tmin []Record) []seasonMean {
	maxBySeason := groupBySeason(tmax)
	minBySeason := groupBySeason(tmin)

	var seasons []seasonMean
	for year, maxVals := range maxBySeason {
		minVals, ok := minBySeason[year]
		if !ok {
			continue
		}
		seasons = append(seasons, seasonMean{
			label: fmt.Sprintf("%d-%d", year, year+1),
			mean:  (mean(maxVals) + mean(minVals)) / 2,
		})
	}

	// Warmest first; ties broken by season label for stable output.
	sort.Slice(seasons, func(i, j int) bool {
		if seasons[i].mean != seasons[j].mean {
			return seasons[i].mean > seasons[j].mean
		}
		return seasons[i].label < seasons[j].label
	})
	return seasons
}

// groupBySeason buckets values by the season's starting year. October through
// December belong to their own year's season; January through March belong to
// the previous year's.
func groupBySeason(records []Record) map[int][]float64 {
	out := map[int][]float64{}
	for _, rec := range records {
		year, ok := seasonStartYear(rec.Date)
		if !ok {
			continue
		}
		out[year] = append(out[year], rec.Value)
	}
	return out
}

func seasonStartYear(t time.Time) (int, bool) {
	switch {
	case t.Month() >= time.October:
		return t.Year(), true
	case t.Month() <= time.March:
		return t.Year() - 1, true
	default:
		return 0, false
	}
}

func mean(vals []float64) float64 {
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func writeRanking(path string, seasons []seasonMean) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)
	if err := w.Write([]string{"rank", "season", "mean_temp"}); err != nil {
		f.Close()
		return err
	}
	for i, s := range seasons {
		row := []string{
			strconv.Itoa(i + 1),
			s.label,
			strconv.FormatFloat(s.mean, 'f', 1, 64),
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
