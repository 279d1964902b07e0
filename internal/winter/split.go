package winter

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
)

// Datatypes kept by Split; everything else in the source files is dropped.
var splitTypes = map[string]bool{
	"TMAX": true,
	"TMIN": true,
	"PRCP": true,
	"SNOW": true,
	"SNWD": true,
}

// Split regroups the per-station download CSVs under dataDir into
// per-datatype directories: outDir/<datatype>/<station-slug>.csv. Output
// files are rewritten from scratch on every run.
func Split(dataDir, outDir string, logger *slog.Logger) error {
	paths, err := filepath.Glob(filepath.Join(dataDir, "*.csv"))
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no observation files in %s", dataDir)
	}

	// datatype -> station slug -> rows
	grouped := map[string]map[string][]Record{}

	for _, path := range paths {
		records, err := ReadRecords(path)
		if err != nil {
			return err
		}
		for _, rec := range records {
			if !splitTypes[rec.Datatype] {
				continue
			}
			dt := strings.ToLower(rec.Datatype)
			slug := NormalizeStationName(rec.StationName, rec.StationID)
			if grouped[dt] == nil {
				grouped[dt] = map[string][]Record{}
			}
			grouped[dt][slug] = append(grouped[dt][slug], rec)
		}
	}

	var files int
	for dt, stations := range grouped {
		for slug, records := range stations {
			out := filepath.Join(outDir, dt, slug+".csv")
			if err := writeRecords(out, records); err != nil {
				return err
			}
			files++
		}
	}

	logger.Info("split complete", "input_files", len(paths), "output_files", files)
	return nil
}
