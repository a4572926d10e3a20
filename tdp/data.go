// built-in datasets of the demo pages, and the synthetic samples of the
// density widget.

package tdp

import (
	"fmt"
	"sort"
)

// SeriesPoint is one (x, y) point of a line chart.
type SeriesPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// AllDriversHourlySpeed is the average speed (mph) of all drivers per hour of
// day. Hour 24 repeats hour 0 so the curve closes.
var AllDriversHourlySpeed = []SeriesPoint{
	{0, 15.71}, {1, 16.374}, {2, 16.883}, {3, 17.55},
	{4, 19.683}, {5, 21.74}, {6, 18.075}, {7, 14.19},
	{8, 11.587}, {9, 11.211}, {10, 11.459}, {11, 11.242},
	{12, 11.03}, {13, 11.223}, {14, 11.068}, {15, 11.076},
	{16, 11.741}, {17, 11.429}, {18, 11.338}, {19, 12.119},
	{20, 13.416}, {21, 14.218}, {22, 14.613}, {23, 15.148},
	{24, 15.71},
}

// DriverHourlySpeed is the average speed of a single driver per hour of day.
var DriverHourlySpeed = []SeriesPoint{
	{0, 16.736}, {1, 15.811}, {2, 17.998}, {3, 19.874},
	{4, 19.625}, {5, 18.85}, {6, 16.67}, {7, 13.694},
	{8, 11.67}, {9, 10.597}, {10, 11.509}, {11, 11.357},
	{12, 11.172}, {13, 11.092}, {14, 11.295}, {15, 11.452},
	{16, 11.827}, {17, 12.19}, {18, 12.276}, {19, 12.9},
	{20, 13.628}, {21, 15.371}, {22, 16.029}, {23, 15.701},
	{24, 16.736},
}

// DriverIncomes are the yearly incomes of ten drivers.
var DriverIncomes = []float64{49745, 90679, 63721, 105733, 72334, 62102, 31103, 92902, 25731, 93392}

// AverageDriverIncome is the published average income of all drivers.
const AverageDriverIncome = 64834

// Neighborhood is one group of the trip matrix.
type Neighborhood struct {
	Name string `json:"name"`
	Abbr string `json:"abbr"`
}

// Neighborhoods label the rows and columns of NeighborhoodTrips.
var Neighborhoods = []Neighborhood{
	{"East Village", "EV"},
	{"Greenwich Village", "GV"},
	{"Little Italy", "LI"},
	{"Lower East Side", "LES"},
	{"SoHo", "SH"},
	{"West Village", "WV"},
}

// NeighborhoodTrips counts trips from the row neighborhood to the column one.
var NeighborhoodTrips = [][]float64{
	{3246, 838, 158, 500, 615, 1120},
	{1074, 578, 38, 91, 401, 763},
	{151, 39, 13, 27, 30, 64},
	{474, 81, 17, 196, 85, 94},
	{564, 216, 23, 92, 218, 544},
	{1422, 736, 61, 123, 585, 1407},
}

// Total income of the neighborhood before and after one resident moved away.
const (
	IncomeBeforeMove = 50000000
	IncomeAfterMove  = 49000000
	MovedIncome      = IncomeBeforeMove - IncomeAfterMove
)

// SampleSize is the number of values in a synthetic density sample.
const SampleSize = 2000

// synthetic samples of the density widget
var distributions = map[string]func(g *Generator) (float64, error){
	// uniform on [0, 1)
	"u01": func(g *Generator) (float64, error) { return g.Uniform(), nil },
	// standard normal
	"n01": func(g *Generator) (float64, error) { return g.Normal(0, 1) },
	// normal with mean 50, variance 100
	"n50100": func(g *Generator) (float64, error) { return g.Normal(50, 100) },
	// exponential with rate 2
	"g22": func(g *Generator) (float64, error) { return g.Exponential(2) },
}

// DistributionNames lists the synthetic samples.
func DistributionNames() []string {
	names := make([]string, 0, len(distributions))
	for n := range distributions {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// IsDistribution reports whether name is a synthetic sample.
func IsDistribution(name string) bool {
	_, ok := distributions[name]
	return ok
}

// Distribution draws n values of the named synthetic sample.
func Distribution(name string, n int, g *Generator) ([]float64, error) {
	draw, ok := distributions[name]
	if !ok {
		return nil, fmt.Errorf("unknown distribution %q", name)
	}
	out := make([]float64, n)
	for i := range out {
		v, err := draw(g)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
