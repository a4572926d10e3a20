package pages

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/htried/taxi-diff-privacy/tdp"
)

// (40.8, -73.75) lands in cell 3 and (40.65, -74.05) in cell 0 of a 2x2 grid
// over Manhattan.
var (
	northEast = tdp.Point{Latitude: 40.8, Longitude: -73.75, Count: 1}
	southWest = tdp.Point{Latitude: 40.65, Longitude: -74.05, Count: 1}
)

func weighted(p tdp.Point, n float64) tdp.Point {
	p.Count = n
	return p
}

func TestPickupsNoiseless(t *testing.T) {
	p := NewPickups(
		[]tdp.Point{weighted(northEast, 10000), weighted(southWest, 100)},
		[]tdp.Point{weighted(northEast, 3)},
	)
	st := noiseless(1)
	st.SideLength = 2
	res, err := p.Refresh(st)
	require.NoError(t, err)

	require.Len(t, res.All.Cells, 4)
	assert.Equal(t, 10000.0, res.All.Cells[3].Private)
	assert.False(t, res.All.Cells[3].TooNoisy)
	assert.Equal(t, 100.0, res.All.Cells[0].Private)
	assert.True(t, res.All.Cells[0].TooNoisy)
	assert.True(t, res.All.Cells[1].TooNoisy)
	assert.Equal(t, 10000.0, res.All.MaxPrivate)
	assert.Equal(t, 3.0, res.Driver.MaxPrivate)
	assert.Equal(t, 8324.0, res.Threshold)

	// every cell is released, empty or not
	assert.Len(t, st.Releases(), 8)
}

func TestPickupsCellsAreClamped(t *testing.T) {
	p := NewPickups([]tdp.Point{northEast}, nil)
	st := seededState(2, 0.5)
	st.SideLength = 10
	res, err := p.Refresh(st)
	require.NoError(t, err)
	for _, c := range res.All.Cells {
		assert.GreaterOrEqual(t, c.Private, 0.0)
	}
	assert.Len(t, res.Driver.Cells, 100)
}

func TestCelebrity(t *testing.T) {
	trips := []tdp.Trip{
		{Dropoff: northEast, Fare: 12.5, Tip: 2, Correct: true},
		{Dropoff: northEast, Fare: 70, Tip: 25},
		// a tip above the fare is not a joint bucket
		{Dropoff: southWest, Fare: 3, Tip: 5},
	}
	c := NewCelebrity(trips)
	st := noiseless(1)
	st.SideLength = 2
	res, err := c.Refresh(st)
	require.NoError(t, err)

	require.Len(t, res.Cells, 4)
	assert.Equal(t, 2.0, res.Cells[3].Private)
	assert.True(t, res.Cells[3].Actual)
	assert.Equal(t, 1.0, res.Cells[0].Private)
	assert.False(t, res.Cells[0].Actual)
	assert.Equal(t, 2.0, res.MaxPrivate)

	assert.Equal(t, []FareTip{
		{Fare: "$10 - $15", Tip: "$2 - $4"},
		{Fare: "$60+", Tip: "$20+"},
		{Fare: "$0 - $5", Tip: "$0 - $2"},
	}, res.FareTips)

	assert.Equal(t, trips, c.Raw())
}

func TestFareTipPairs(t *testing.T) {
	for _, p := range fareTipPairs {
		assert.GreaterOrEqual(t, fareBuckets.Lower(p.fare), tipBuckets.Lower(p.tip))
	}
	// every fare bucket pairs with at least the zero tip
	assert.Equal(t, fareTipPair{0, 0}, fareTipPairs[0])
	assert.Equal(t, fareTipPair{12, 10}, fareTipPairs[len(fareTipPairs)-1])
}

func TestStripRaw(t *testing.T) {
	var points []tdp.Point
	for k := 0; k < 11; k++ {
		points = append(points, tdp.Point{Latitude: 40.75 + float64(k)*0.00005, Longitude: -73.99, Count: 1})
	}
	points = append(points, southWest)

	raw := NewStrip(points).Raw()
	require.Len(t, raw, 12)
	for _, p := range raw[:11] {
		assert.Equal(t, 11, p.Neighbors)
		assert.True(t, p.Hotspot)
	}
	assert.Equal(t, 1, raw[11].Neighbors)
	assert.False(t, raw[11].Hotspot)

	for _, p := range NewStrip(points[1:11]).Raw() {
		assert.False(t, p.Hotspot, "ten points are not a hotspot")
	}
}

func TestStripNoiseless(t *testing.T) {
	s := NewStrip([]tdp.Point{northEast, northEast, southWest})
	st := noiseless(1)
	st.SideLength = 2
	res, err := s.Refresh(st)
	require.NoError(t, err)
	var total float64
	for _, c := range res.Map.Cells {
		total += c.Private
	}
	assert.Equal(t, 3.0, total)
	assert.Equal(t, 20.0, st.Releases()[0].Sensitivity)
}
