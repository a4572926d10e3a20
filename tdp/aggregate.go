// aggregation helpers shared by the pages: summary statistics, 1-d and 2-d
// bucketing, and the noisy argmax used by the per-individual histograms.

package tdp

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Mean returns the arithmetic mean of xs, NaN when xs is empty.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	return stat.Mean(xs, nil)
}

// StdDev returns the sample standard deviation of xs with Bessel's correction.
// A single value has a deviation of 0; an empty slice yields NaN.
func StdDev(xs []float64) float64 {
	switch len(xs) {
	case 0:
		return math.NaN()
	case 1:
		return 0
	}
	return stat.StdDev(xs, nil)
}

// Distinct counts the distinct values in xs.
func Distinct(xs []float64) int {
	seen := make(map[float64]struct{}, len(xs))
	for _, x := range xs {
		seen[x] = struct{}{}
	}
	return len(seen)
}

// Extent returns the min and max of xs. Callers must not pass an empty slice.
func Extent(xs []float64) (float64, float64) {
	return floats.Min(xs), floats.Max(xs)
}

// bucketIndex places v into one of k equal buckets over [lo, hi]. Buckets are
// half-open except the last, which also holds hi. Out-of-domain values give -1.
func bucketIndex(v, lo, hi float64, k int) int {
	if math.IsNaN(v) || v < lo || v > hi || k <= 0 {
		return -1
	}
	if v == hi || hi == lo {
		return k - 1
	}
	i := int(math.Floor(float64(k) * (v - lo) / (hi - lo)))
	if i >= k {
		i = k - 1
	}
	return i
}

// Histogram counts values into K equal-width buckets over [Min, Max].
type Histogram struct {
	Min, Max float64
	counts   []float64
}

// NewHistogram returns an empty histogram with k buckets over [min, max].
func NewHistogram(min, max float64, k int) *Histogram {
	return &Histogram{Min: min, Max: max, counts: make([]float64, k)}
}

// Add counts v with the given weight and reports whether v was in the domain.
func (h *Histogram) Add(v, weight float64) bool {
	i := bucketIndex(v, h.Min, h.Max, len(h.counts))
	if i < 0 {
		return false
	}
	h.counts[i] += weight
	return true
}

// Step is the bucket width.
func (h *Histogram) Step() float64 {
	return (h.Max - h.Min) / float64(len(h.counts))
}

// Counts returns a copy of the bucket counts.
func (h *Histogram) Counts() []float64 {
	return append([]float64(nil), h.counts...)
}

// Centers returns the midpoint of every bucket.
func (h *Histogram) Centers() []float64 {
	step := h.Step()
	out := make([]float64, len(h.counts))
	for i := range out {
		out[i] = h.Min + step*float64(i) + step/2
	}
	return out
}

// Range is a closed interval on one axis.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Span is the width of the interval.
func (r Range) Span() float64 {
	return r.Max - r.Min
}

// Bounds is a latitude/longitude rectangle.
type Bounds struct {
	Latitude  Range `json:"latitude"`
	Longitude Range `json:"longitude"`
}

// Manhattan is the map extent used by the pickups, celebrity and strip pages.
var Manhattan = Bounds{
	Latitude:  Range{Min: 40.6, Max: 40.9},
	Longitude: Range{Min: -74.1, Max: -73.7},
}

// Cell is one square of a Grid.
type Cell struct {
	Row    int     `json:"row"`
	Col    int     `json:"col"`
	Bounds Bounds  `json:"bounds"`
	Count  float64 `json:"count"`
}

// Grid splits Bounds into Side x Side cells and counts points falling in each.
type Grid struct {
	Bounds Bounds
	Side   int
	counts []float64
}

// NewGrid returns an empty side x side grid over b.
func NewGrid(b Bounds, side int) *Grid {
	if side < 1 {
		side = 1
	}
	return &Grid{Bounds: b, Side: side, counts: make([]float64, side*side)}
}

// Index returns the row-major index of the cell holding (lat, lng), or -1 when
// the point is outside the grid.
func (g *Grid) Index(lat, lng float64) int {
	r := bucketIndex(lat, g.Bounds.Latitude.Min, g.Bounds.Latitude.Max, g.Side)
	c := bucketIndex(lng, g.Bounds.Longitude.Min, g.Bounds.Longitude.Max, g.Side)
	if r < 0 || c < 0 {
		return -1
	}
	return r*g.Side + c
}

// Add counts a point with the given weight and reports whether it was inside.
func (g *Grid) Add(lat, lng, weight float64) bool {
	i := g.Index(lat, lng)
	if i < 0 {
		return false
	}
	g.counts[i] += weight
	return true
}

// CellBounds returns the rectangle of the cell at row-major index i.
func (g *Grid) CellBounds(i int) Bounds {
	r, c := i/g.Side, i%g.Side
	lat, lng := g.Bounds.Latitude, g.Bounds.Longitude
	n := float64(g.Side)
	return Bounds{
		Latitude: Range{
			Min: lat.Min + float64(r)/n*lat.Span(),
			Max: lat.Min + float64(r+1)/n*lat.Span(),
		},
		Longitude: Range{
			Min: lng.Min + float64(c)/n*lng.Span(),
			Max: lng.Min + float64(c+1)/n*lng.Span(),
		},
	}
}

// Cells lists every cell in row-major order, latitude first.
func (g *Grid) Cells() []Cell {
	out := make([]Cell, len(g.counts))
	for i, n := range g.counts {
		out[i] = Cell{Row: i / g.Side, Col: i % g.Side, Bounds: g.CellBounds(i), Count: n}
	}
	return out
}

// Buckets are fixed-width bins [Start+i*Gap, Start+(i+1)*Gap) for i < N.
type Buckets struct {
	Start float64
	Gap   float64
	N     int
}

// Index returns the bucket holding v, or -1.
func (b Buckets) Index(v float64) int {
	if math.IsNaN(v) || b.Gap <= 0 || v < b.Start {
		return -1
	}
	i := int(math.Floor((v - b.Start) / b.Gap))
	if i >= b.N {
		return -1
	}
	return i
}

// Lower returns the lower edge of bucket i.
func (b Buckets) Lower(i int) float64 {
	return b.Start + float64(i)*b.Gap
}

// Mid returns the midpoint of bucket i.
func (b Buckets) Mid(i int) float64 {
	return b.Lower(i) + b.Gap/2
}

// Count tallies xs into the buckets, dropping values outside them.
func (b Buckets) Count(xs []float64) []float64 {
	out := make([]float64, b.N)
	for _, x := range xs {
		if i := b.Index(x); i >= 0 {
			out[i]++
		}
	}
	return out
}

// NoisyArgmax returns the index of the largest strictly positive value in vs,
// or 0 when no value is positive.
func NoisyArgmax(vs []float64) int {
	best, max := 0, 0.0
	for i, v := range vs {
		if v > max {
			best, max = i, v
		}
	}
	return best
}

// Point is a weighted location on the map.
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Count     float64 `json:"count"`
}

// Neighbors returns, for every point, how many points (itself included) lie
// strictly within radius on both axes.
func Neighbors(points []Point, radius float64) []int {
	out := make([]int, len(points))
	for i, p := range points {
		for _, q := range points {
			if math.Abs(p.Latitude-q.Latitude) < radius && math.Abs(p.Longitude-q.Longitude) < radius {
				out[i]++
			}
		}
	}
	return out
}
