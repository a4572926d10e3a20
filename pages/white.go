package pages

import (
	"math"

	"github.com/htried/taxi-diff-privacy/tdp"
)

// whiteBins is how many histogram bins span the 99th-percentile window.
const whiteBins = 12

// maxRedraws bounds how often a session redraws a rejected first difference.
const maxRedraws = 100

// White releases a neighborhood's total income before and after one resident
// moved away. The difference of the two releases estimates that resident's
// income.
type White struct {
	Before float64
	After  float64
}

type WhiteResult struct {
	Before float64 `json:"before"`
	After  float64 `json:"after"`
	// released totals and their difference, clamped at zero for display
	PrivateBefore float64 `json:"privateBefore"`
	PrivateAfter  float64 `json:"privateAfter"`
	Diff          float64 `json:"diff"`
	// Delta is the signed released difference.
	Delta float64 `json:"delta"`
	// Window is the open interval of differences the histogram accepts.
	Window  tdp.Range `json:"window"`
	InRange bool      `json:"inRange"`

	BeforeText string `json:"beforeText"`
	AfterText  string `json:"afterText"`
	DiffText   string `json:"diffText"`
}

func NewWhite() *White {
	return &White{Before: tdp.IncomeBeforeMove, After: tdp.IncomeAfterMove}
}

// TrueDiff is the income of the resident who moved.
func (w *White) TrueDiff() float64 {
	return w.Before - w.After
}

// scale is the Laplace scale of one of the two total-income releases.
func (w *White) scale(st *State) (float64, error) {
	q, err := st.Policy.Query(tdp.WhiteTotalIncome, 0, st.Epsilon)
	if err != nil {
		return 0, err
	}
	return q.Scale(), nil
}

// Refresh releases both totals once.
func (w *White) Refresh(st *State) (WhiteResult, error) {
	if err := st.Validate(); err != nil {
		return WhiteResult{}, err
	}
	b, err := w.scale(st)
	if err != nil {
		return WhiteResult{}, err
	}

	before, err := st.Release(tdp.WhiteTotalIncome, w.Before)
	if err != nil {
		return WhiteResult{}, err
	}
	after, err := st.Release(tdp.WhiteTotalIncome, w.After)
	if err != nil {
		return WhiteResult{}, err
	}

	delta := before - after
	diff := math.Max(0, delta)
	lap99 := tdp.LaplaceQuantile(b, 0.99)
	window := tdp.Range{Min: w.TrueDiff() - lap99, Max: w.TrueDiff() + lap99}
	return WhiteResult{
		Before:        w.Before,
		After:         w.After,
		PrivateBefore: before,
		PrivateAfter:  after,
		Diff:          diff,
		Delta:         delta,
		Window:        window,
		InRange:       delta > window.Min && delta < window.Max,
		BeforeText:    tdp.FormatMoney(before, 0),
		AfterText:     tdp.FormatMoney(after, 0),
		DiffText:      tdp.FormatMoney(diff, 0),
	}, nil
}

// Bin is one bar of the difference histogram, covering [Lo, Hi).
type Bin struct {
	Lo    float64 `json:"lo"`
	Hi    float64 `json:"hi"`
	Count int     `json:"count"`
	Label string  `json:"label"`
}

// WhiteStep is what a simulation tick reports.
type WhiteStep struct {
	WhiteResult
	Bins    []Bin `json:"bins"`
	Samples int   `json:"samples"`
}

// WhiteSession accumulates released differences across repeated refreshes.
// A session is not safe for concurrent use.
type WhiteSession struct {
	ID      string
	page    *White
	epsilon float64
	deltas  []float64
}

// NewSession starts an empty simulation over w.
func (w *White) NewSession(id string) *WhiteSession {
	return &WhiteSession{ID: id, page: w}
}

// Reset drops every accumulated difference.
func (s *WhiteSession) Reset() {
	s.deltas = s.deltas[:0]
}

// Step refreshes the page once and adds the difference to the histogram when it
// lies inside the window. A change of epsilon starts a new histogram. While the
// histogram is empty a rejected difference is redrawn.
func (s *WhiteSession) Step(st *State) (WhiteStep, error) {
	if err := st.Validate(); err != nil {
		return WhiteStep{}, err
	}
	if st.Epsilon != s.epsilon {
		s.Reset()
		s.epsilon = st.Epsilon
	}

	var res WhiteResult
	var err error
	for i := 0; i < maxRedraws; i++ {
		res, err = s.page.Refresh(st)
		if err != nil {
			return WhiteStep{}, err
		}
		if res.InRange {
			s.deltas = append(s.deltas, res.Delta)
			break
		}
		if len(s.deltas) > 0 {
			break
		}
	}

	b, err := s.page.scale(st)
	if err != nil {
		return WhiteStep{}, err
	}
	return WhiteStep{
		WhiteResult: res,
		Bins:        binDeltas(s.deltas, tdp.Thresholds(s.page.TrueDiff(), b, whiteBins)),
		Samples:     len(s.deltas),
	}, nil
}

// binDeltas counts deltas between consecutive thresholds. The last bin also
// holds its upper edge; values outside every bin are dropped.
func binDeltas(deltas, thresholds []float64) []Bin {
	if len(thresholds) < 2 {
		return nil
	}
	bins := make([]Bin, len(thresholds)-1)
	for i := range bins {
		lo, hi := thresholds[i], thresholds[i+1]
		bins[i] = Bin{Lo: lo, Hi: hi, Label: tdp.FormatAxis(math.Round((lo + hi) / 2))}
	}
	last := len(bins) - 1
	for _, d := range deltas {
		for i := range bins {
			if (d >= bins[i].Lo && d < bins[i].Hi) || (i == last && d == bins[i].Hi) {
				bins[i].Count++
				break
			}
		}
	}
	return bins
}
