package pages

import (
	"fmt"

	"github.com/htried/taxi-diff-privacy/tdp"
)

var (
	fareBuckets = tdp.Buckets{Start: 0, Gap: 5, N: 13}
	tipBuckets  = tdp.Buckets{Start: 0, Gap: 2, N: 11}
)

// fareTipPair is one cell of the joint fare/tip histogram.
type fareTipPair struct {
	fare, tip int
}

// fareTipPairs lists the joint buckets a trip can fall in: the tip bucket never
// starts above the fare bucket.
var fareTipPairs = func() []fareTipPair {
	var out []fareTipPair
	for i := 0; i < fareBuckets.N; i++ {
		for j := 0; j < tipBuckets.N; j++ {
			if fareBuckets.Lower(i) >= tipBuckets.Lower(j) {
				out = append(out, fareTipPair{i, j})
			}
		}
	}
	return out
}()

// Celebrity asks whether published trips reveal where a known passenger was
// dropped off and what they paid.
type Celebrity struct {
	Bounds tdp.Bounds
	Trips  []tdp.Trip
}

// CelebCell is a map cell marked when the passenger's true trip ends in it.
type CelebCell struct {
	MapCell
	Actual bool `json:"actual"`
}

// FareTip is the released fare and tip range of one trip.
type FareTip struct {
	Fare string `json:"fare"`
	Tip  string `json:"tip"`
}

type CelebrityResult struct {
	Side       int         `json:"side"`
	Cells      []CelebCell `json:"cells"`
	MaxPrivate float64     `json:"maxPrivate"`
	FareTips   []FareTip   `json:"fareTips"`
}

func NewCelebrity(trips []tdp.Trip) *Celebrity {
	return &Celebrity{Bounds: tdp.Manhattan, Trips: trips}
}

// Raw is the non-private view: the trips as recorded.
func (c *Celebrity) Raw() []tdp.Trip {
	return c.Trips
}

func (c *Celebrity) Refresh(st *State) (CelebrityResult, error) {
	if err := st.Validate(); err != nil {
		return CelebrityResult{}, err
	}

	grid := countGrid(tdp.Dropoffs(c.Trips), c.Bounds, st.SideLength)
	m, err := privateMap(st, tdp.CelebCell, grid)
	if err != nil {
		return CelebrityResult{}, err
	}
	actual := make(map[int]bool)
	for _, t := range c.Trips {
		if t.Correct {
			if i := grid.Index(t.Dropoff.Latitude, t.Dropoff.Longitude); i >= 0 {
				actual[i] = true
			}
		}
	}
	cells := make([]CelebCell, len(m.Cells))
	for i, mc := range m.Cells {
		cells[i] = CelebCell{MapCell: mc, Actual: actual[i]}
	}

	fareTips := make([]FareTip, len(c.Trips))
	for i, t := range c.Trips {
		ft, err := privateFareTip(st, t.Fare, t.Tip)
		if err != nil {
			return CelebrityResult{}, err
		}
		fareTips[i] = ft
	}

	return CelebrityResult{
		Side:       m.Side,
		Cells:      cells,
		MaxPrivate: m.MaxPrivate,
		FareTips:   fareTips,
	}, nil
}

// topIndex is Buckets.Index with the last bucket open-ended.
func topIndex(b tdp.Buckets, v float64) int {
	if v >= b.Lower(b.N) {
		return b.N - 1
	}
	return b.Index(v)
}

// privateFareTip releases the joint fare/tip histogram of one trip and labels
// its noisy argmax.
func privateFareTip(st *State, fare, tip float64) (FareTip, error) {
	fi, ti := topIndex(fareBuckets, fare), topIndex(tipBuckets, tip)
	counts := make([]float64, len(fareTipPairs))
	for k, p := range fareTipPairs {
		if p.fare == fi && p.tip == ti {
			counts[k] = 1
		}
	}
	noisy, err := st.ReleaseAll(tdp.CelebFareTipBucket, counts)
	if err != nil {
		return FareTip{}, err
	}
	best := fareTipPairs[tdp.NoisyArgmax(noisy)]
	return FareTip{
		Fare: bucketLabel(fareBuckets, best.fare),
		Tip:  bucketLabel(tipBuckets, best.tip),
	}, nil
}

// bucketLabel prints a dollar range, "$60+" for the open top bucket.
func bucketLabel(b tdp.Buckets, i int) string {
	lo := b.Lower(i)
	if i == b.N-1 {
		return fmt.Sprintf("$%g+", lo)
	}
	return fmt.Sprintf("$%g - $%g", lo, b.Lower(i+1))
}
