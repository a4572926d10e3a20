// readers for the CSV exports the pages are built from. Columns are found by
// header name, so extra columns and any column order are fine.

package tdp

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Trip is one taxi ride.
type Trip struct {
	DriverID string  `json:"driver_id"`
	Pickup   Point   `json:"pickup"`
	Dropoff  Point   `json:"dropoff"`
	Fare     float64 `json:"fare"`
	Tip      float64 `json:"tip"`
	// Correct marks the ride that really was the celebrity's.
	Correct bool `json:"correct"`
}

// header lookup for one CSV file
type columns map[string]int

func readHeader(r *csv.Reader) (columns, error) {
	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty csv file")
		}
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}
	cols := make(columns, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return cols, nil
}

func (c columns) require(names ...string) error {
	for _, n := range names {
		if _, ok := c[n]; !ok {
			return fmt.Errorf("csv is missing column %q", n)
		}
	}
	return nil
}

// float reads a named column; absent optional columns read as 0
func (c columns) float(rec []string, name string, line int) (float64, error) {
	i, ok := c[name]
	if !ok || i >= len(rec) || strings.TrimSpace(rec[i]) == "" {
		return 0, nil
	}
	f, err := parseFinite(rec[i])
	if err != nil {
		return 0, fmt.Errorf("line %d: column %s: %w", line, name, err)
	}
	return f, nil
}

func (c columns) str(rec []string, name string) string {
	i, ok := c[name]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

// parseFinite is strconv.ParseFloat without NaN and the infinities, which
// would turn every density and grid built on the value into NaN.
func parseFinite(s string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%q is not a finite number", s)
	}
	return f, nil
}

func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	return cr
}

// ReadSample reads the first column of every row after the header.
func ReadSample(r io.Reader) ([]float64, error) {
	cr := newReader(r)
	if _, err := readHeader(cr); err != nil {
		return nil, err
	}
	var out []float64
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if len(rec) == 0 || strings.TrimSpace(rec[0]) == "" {
			continue
		}
		f, err := parseFinite(rec[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, f)
	}
	return out, nil
}

// ReadPoints reads latitude,longitude[,count] rows. A missing count is 1.
func ReadPoints(r io.Reader) ([]Point, error) {
	cr := newReader(r)
	cols, err := readHeader(cr)
	if err != nil {
		return nil, err
	}
	if err := cols.require("latitude", "longitude"); err != nil {
		return nil, err
	}
	_, weighted := cols["count"]

	var out []Point
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		var p Point
		if p.Latitude, err = cols.float(rec, "latitude", line); err != nil {
			return nil, err
		}
		if p.Longitude, err = cols.float(rec, "longitude", line); err != nil {
			return nil, err
		}
		p.Count = 1
		if weighted {
			if p.Count, err = cols.float(rec, "count", line); err != nil {
				return nil, err
			}
		}
		out = append(out, p)
	}
	return out, nil
}

// ReadTrips reads trip records in the TLC export layout. Only the dropoff
// coordinates are required.
func ReadTrips(r io.Reader) ([]Trip, error) {
	cr := newReader(r)
	cols, err := readHeader(cr)
	if err != nil {
		return nil, err
	}
	if err := cols.require("dropoff_latitude", "dropoff_longitude"); err != nil {
		return nil, err
	}

	var out []Trip
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		t := Trip{DriverID: cols.str(rec, "driver_id"), Pickup: Point{Count: 1}, Dropoff: Point{Count: 1}}
		fields := []struct {
			name string
			dst  *float64
		}{
			{"pickup_latitude", &t.Pickup.Latitude},
			{"pickup_longitude", &t.Pickup.Longitude},
			{"dropoff_latitude", &t.Dropoff.Latitude},
			{"dropoff_longitude", &t.Dropoff.Longitude},
			{"fare_amount", &t.Fare},
			{"tip_amount", &t.Tip},
		}
		for _, f := range fields {
			if *f.dst, err = cols.float(rec, f.name, line); err != nil {
				return nil, err
			}
		}
		switch strings.ToLower(cols.str(rec, "correct")) {
		case "1", "true", "yes":
			t.Correct = true
		}
		out = append(out, t)
	}
	return out, nil
}

// Dropoffs returns the dropoff location of every trip.
func Dropoffs(trips []Trip) []Point {
	out := make([]Point, len(trips))
	for i, t := range trips {
		out[i] = t.Dropoff
	}
	return out
}

// Pickups returns the pickup location of every trip, optionally only those of
// one driver.
func Pickups(trips []Trip, driverID string) []Point {
	var out []Point
	for _, t := range trips {
		if driverID == "" || t.DriverID == driverID {
			out = append(out, t.Pickup)
		}
	}
	return out
}

// Datasets are the CSV-backed inputs of the pages.
type Datasets struct {
	PickupsAll    []Point
	PickupsDriver []Point
	Celebrity     []Trip
	Strip         []Trip
	// Samples are density widget inputs keyed by file name without extension.
	Samples map[string][]float64
}

func readFile[T any](path string, read func(io.Reader) (T, error)) (T, error) {
	var zero T
	f, err := os.Open(path)
	if err != nil {
		return zero, err
	}
	defer f.Close()
	v, err := read(f)
	if err != nil {
		return zero, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}

// LoadDataDir reads the bundled datasets from dir:
//
//	pickups_all.csv, pickups_driver.csv  weighted pickup points
//	celebrity.csv, strip.csv             trips
//	samples/*.csv                        density widget samples
func LoadDataDir(dir string) (*Datasets, error) {
	var (
		ds  = &Datasets{Samples: map[string][]float64{}}
		err error
	)
	if ds.PickupsAll, err = readFile(filepath.Join(dir, "pickups_all.csv"), ReadPoints); err != nil {
		return nil, err
	}
	if ds.PickupsDriver, err = readFile(filepath.Join(dir, "pickups_driver.csv"), ReadPoints); err != nil {
		return nil, err
	}
	if ds.Celebrity, err = readFile(filepath.Join(dir, "celebrity.csv"), ReadTrips); err != nil {
		return nil, err
	}
	if ds.Strip, err = readFile(filepath.Join(dir, "strip.csv"), ReadTrips); err != nil {
		return nil, err
	}

	paths, err := filepath.Glob(filepath.Join(dir, "samples", "*.csv"))
	if err != nil {
		return nil, err
	}
	for _, p := range paths {
		name := strings.ToLower(strings.TrimSuffix(filepath.Base(p), filepath.Ext(p)))
		if IsDistribution(name) {
			return nil, fmt.Errorf("sample file %s shadows a built-in distribution", p)
		}
		xs, err := readFile(p, ReadSample)
		if err != nil {
			return nil, err
		}
		ds.Samples[name] = xs
	}
	return ds, nil
}
