package pages

import (
	"github.com/htried/taxi-diff-privacy/tdp"
)

// MapCell is one grid square with its true and released counts.
type MapCell struct {
	Row    int        `json:"row"`
	Col    int        `json:"col"`
	Bounds tdp.Bounds `json:"bounds"`
	Raw    float64    `json:"raw"`
	// Private is the released count.
	Private float64 `json:"private"`
	// TooNoisy is set when the noise likely dominates Private.
	TooNoisy bool `json:"tooNoisy"`
}

// Map is a privatised grid of counts.
type Map struct {
	Side       int       `json:"side"`
	Cells      []MapCell `json:"cells"`
	MaxRaw     float64   `json:"maxRaw"`
	MaxPrivate float64   `json:"maxPrivate"`
}

// countGrid bins weighted points into a side x side grid over b. Points
// outside b are dropped.
func countGrid(points []tdp.Point, b tdp.Bounds, side int) *tdp.Grid {
	g := tdp.NewGrid(b, side)
	for _, p := range points {
		g.Add(p.Latitude, p.Longitude, p.Count)
	}
	return g
}

// privateMap releases every cell of grid as the query name. Empty cells are
// noised too, so the released map does not reveal which cells had data.
func privateMap(st *State, name string, grid *tdp.Grid) (Map, error) {
	cells := grid.Cells()
	m := Map{Side: grid.Side, Cells: make([]MapCell, len(cells))}
	for i, c := range cells {
		v, err := st.Release(name, c.Count)
		if err != nil {
			return Map{}, err
		}
		m.Cells[i] = MapCell{
			Row:      c.Row,
			Col:      c.Col,
			Bounds:   c.Bounds,
			Raw:      c.Count,
			Private:  v,
			TooNoisy: st.TooNoisy(name, v),
		}
		if c.Count > m.MaxRaw {
			m.MaxRaw = c.Count
		}
		if v > m.MaxPrivate {
			m.MaxPrivate = v
		}
	}
	return m, nil
}

// oneHot is the histogram of a single individual's value.
func oneHot(n, i int) []float64 {
	out := make([]float64, n)
	if i >= 0 && i < n {
		out[i] = 1
	}
	return out
}

// privateBucket releases the histogram of one individual's value v over b and
// returns the midpoint of the noisy argmax bucket. ok is false when no noised
// count came out positive and the lowest bucket was used.
func privateBucket(st *State, name string, b tdp.Buckets, v float64) (mid float64, ok bool, err error) {
	noisy, err := st.ReleaseAll(name, oneHot(b.N, b.Index(v)))
	if err != nil {
		return 0, false, err
	}
	for _, c := range noisy {
		if c > 0 {
			ok = true
			break
		}
	}
	return b.Mid(tdp.NoisyArgmax(noisy)), ok, nil
}
