package batch

import (
	"fmt"
	"math"

	"github.com/apache/beam/sdks/v2/go/pkg/beam"
	"github.com/apache/beam/sdks/v2/go/pkg/beam/register"
	"github.com/apache/beam/sdks/v2/go/pkg/beam/transforms/stats"
	"github.com/google/differential-privacy/privacy-on-beam/v3/pbeam"
)

func init() {
	register.Function2x1[int, int, string](formatCountFn)
	register.Function2x1[int, int64, string](formatPrivateCountFn)
	register.Function2x2[int, int, int, int64](widenCountFn)
	register.DoFn2x1[int, int64, CellCount](&rowFn{})
}

// Params bound what one driver can add to the private count.
type Params struct {
	Epsilon float64
	// cells one driver may contribute to
	MaxCells int64
	// pickups one driver may add to a single cell
	MaxValue int64
	// TestMode disables noise, for tests only.
	TestMode pbeam.TestMode
}

func (p Params) Validate() error {
	if math.IsNaN(p.Epsilon) || math.IsInf(p.Epsilon, 0) || p.Epsilon <= 0 {
		return fmt.Errorf("epsilon must be positive and finite, got %v", p.Epsilon)
	}
	if p.MaxCells < 1 || p.MaxValue < 1 {
		return fmt.Errorf("contribution bounds must be at least 1, got %d cells and %d pickups", p.MaxCells, p.MaxValue)
	}
	return nil
}

// CountPickups counts pickups per grid cell exactly. Cells without pickups are
// left out. It returns a PCollection<int, int>.
func CountPickups(s beam.Scope, trips beam.PCollection, grid GridSpec) beam.PCollection {
	s = s.Scope("CountPickups")
	cells := beam.ParDo(s, &cellFn{Grid: grid}, trips)
	return stats.Count(s, beam.ParDo(s, extractCellFn, cells))
}

// PrivateCountPickups counts pickups per grid cell with Laplace noise, each
// driver being one privacy unit. Every cell of the grid is in the output. It
// returns a PCollection<int, int64>.
func PrivateCountPickups(s beam.Scope, trips beam.PCollection, grid GridSpec, params Params) (beam.PCollection, error) {
	s = s.Scope("PrivateCountPickups")
	if err := params.Validate(); err != nil {
		return beam.PCollection{}, err
	}
	spec, err := pbeam.NewPrivacySpec(pbeam.PrivacySpecParams{
		AggregationEpsilon: params.Epsilon,
		TestMode:           params.TestMode,
	})
	if err != nil {
		return beam.PCollection{}, fmt.Errorf("creating privacy spec: %w", err)
	}

	cells := beam.ParDo(s, &cellFn{Grid: grid}, trips)
	pCol := pbeam.MakePrivateFromStruct(s, cells, spec, "DriverID")
	pickupCells := pbeam.ParDo(s, extractCellFn, pCol)
	return pbeam.Count(s, pickupCells, pbeam.CountParams{
		MaxPartitionsContributed: params.MaxCells,
		MaxValue:                 params.MaxValue,
		PublicPartitions:         grid.Cells(),
	}), nil
}

func formatCountFn(cell, count int) string {
	return fmt.Sprintf("%d,%d", cell, count)
}

func formatPrivateCountFn(cell int, count int64) string {
	return fmt.Sprintf("%d,%d", cell, count)
}

func widenCountFn(cell, count int) (int, int64) {
	return cell, int64(count)
}

// CellCount is one row of the pickup_counts table.
type CellCount struct {
	Cell    int
	Count   int64
	Private bool
	Epsilon float64
}

// rowFn turns a count into a table row. Epsilon is -1 for exact counts.
type rowFn struct {
	Private bool
	Epsilon float64
}

func (fn *rowFn) ProcessElement(cell int, count int64) CellCount {
	return CellCount{Cell: cell, Count: count, Private: fn.Private, Epsilon: fn.Epsilon}
}
