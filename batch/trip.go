// Package batch counts taxi pickups per map cell with Apache Beam, once exactly
// and once with Privacy on Beam.
package batch

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/apache/beam/sdks/v2/go/pkg/beam/register"

	"github.com/htried/taxi-diff-privacy/tdp"
)

func init() {
	register.Function2x1[string, func(Trip), error](ParseTripFn)
	register.Emitter1[Trip]()
	register.DoFn2x0[Trip, func(DriverCell)](&cellFn{})
	register.Emitter1[DriverCell]()
	register.Function1x1[DriverCell, int](extractCellFn)
}

// Trip is one pickup by one driver.
type Trip struct {
	DriverID  string
	PickupLat float64
	PickupLng float64
}

// DriverCell is a pickup reduced to the grid cell it fell in.
type DriverCell struct {
	DriverID string
	Cell     int
}

var digits = regexp.MustCompile("[0-9]")

// ParseTripFn emits a Trip from a "driver_id,pickup_latitude,pickup_longitude,..."
// line. The header and rows without a pickup location are skipped.
func ParseTripFn(line string, emit func(Trip)) error {
	// Skip the column headers line
	if !digits.MatchString(line) {
		return nil
	}

	cols := strings.Split(line, ",")
	if len(cols) < 3 {
		return fmt.Errorf("got %d columns in line %q, expected at least 3", len(cols), line)
	}
	if cols[1] == "" || cols[2] == "" {
		return nil
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(cols[1]), 64)
	if err != nil {
		return fmt.Errorf("parsing pickup latitude of %q: %w", line, err)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(cols[2]), 64)
	if err != nil {
		return fmt.Errorf("parsing pickup longitude of %q: %w", line, err)
	}
	emit(Trip{DriverID: strings.TrimSpace(cols[0]), PickupLat: lat, PickupLng: lng})
	return nil
}

// GridSpec is the grid pickups are counted on.
type GridSpec struct {
	Bounds tdp.Bounds
	Side   int
}

// Cells lists every cell index of the grid, the public partitions of the
// private count.
func (g GridSpec) Cells() []int {
	out := make([]int, g.Side*g.Side)
	for i := range out {
		out[i] = i
	}
	return out
}

// cellFn places every trip on the grid, dropping trips outside it.
type cellFn struct {
	Grid GridSpec

	grid *tdp.Grid
}

func (fn *cellFn) Setup() {
	fn.grid = tdp.NewGrid(fn.Grid.Bounds, fn.Grid.Side)
}

func (fn *cellFn) ProcessElement(t Trip, emit func(DriverCell)) {
	if fn.grid == nil {
		fn.Setup()
	}
	if i := fn.grid.Index(t.PickupLat, t.PickupLng); i >= 0 {
		emit(DriverCell{DriverID: t.DriverID, Cell: i})
	}
}

func extractCellFn(c DriverCell) int {
	return c.Cell
}
