package pages

import (
	"fmt"

	"github.com/htried/taxi-diff-privacy/tdp"
)

// Chord shows trips between neighborhoods as a square matrix.
type Chord struct {
	Groups []tdp.Neighborhood
	Matrix [][]float64
}

// ChordResult holds both matrices with per-group totals and shares of all trips.
type ChordResult struct {
	Groups        []tdp.Neighborhood `json:"groups"`
	Raw           [][]float64        `json:"raw"`
	Private       [][]float64        `json:"private"`
	RawTotals     []float64          `json:"rawTotals"`
	PrivateTotals []float64          `json:"privateTotals"`
	RawShares     []float64          `json:"rawShares"`
	PrivateShares []float64          `json:"privateShares"`
}

// NewChord checks that matrix is square with one row per group.
func NewChord(groups []tdp.Neighborhood, matrix [][]float64) (*Chord, error) {
	if len(matrix) != len(groups) {
		return nil, fmt.Errorf("chord matrix has %d rows for %d groups", len(matrix), len(groups))
	}
	for i, row := range matrix {
		if len(row) != len(groups) {
			return nil, fmt.Errorf("chord matrix row %d has %d columns, want %d", i, len(row), len(groups))
		}
	}
	return &Chord{Groups: groups, Matrix: matrix}, nil
}

func (c *Chord) Refresh(st *State) (ChordResult, error) {
	if err := st.Validate(); err != nil {
		return ChordResult{}, err
	}

	private := make([][]float64, len(c.Matrix))
	for i, row := range c.Matrix {
		noisy, err := st.ReleaseAll(tdp.ChordCell, row)
		if err != nil {
			return ChordResult{}, err
		}
		private[i] = noisy
	}

	rawTotals, rawShares := groupTotals(c.Matrix)
	privTotals, privShares := groupTotals(private)
	return ChordResult{
		Groups:        c.Groups,
		Raw:           c.Matrix,
		Private:       private,
		RawTotals:     rawTotals,
		PrivateTotals: privTotals,
		RawShares:     rawShares,
		PrivateShares: privShares,
	}, nil
}

// groupTotals sums outgoing trips per group, and each sum's share of the whole
// matrix. Shares are 0 when the matrix is empty.
func groupTotals(m [][]float64) ([]float64, []float64) {
	totals := make([]float64, len(m))
	var all float64
	for i, row := range m {
		for _, v := range row {
			totals[i] += v
		}
		all += totals[i]
	}
	shares := make([]float64, len(m))
	if all > 0 {
		for i, t := range totals {
			shares[i] = t / all
		}
	}
	return totals, shares
}
