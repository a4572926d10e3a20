package pages

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/htried/taxi-diff-privacy/tdp"
)

// densityBuckets is the resolution of the noised histogram behind the private
// density curve.
const densityBuckets = 100

// maxPseudoSample bounds the values the private curve is estimated from.
const maxPseudoSample = tdp.SampleSize

var ErrUnknownSample = errors.New("unknown sample")

// Density compares the density of a sample with the density recovered from a
// noised histogram of it.
type Density struct {
	// CSV samples by name
	Samples map[string][]float64

	mu    sync.Mutex
	drawn map[string][]float64
}

type DensityResult struct {
	Dist       string             `json:"dist"`
	N          int                `json:"n"`
	Bandwidth  float64            `json:"bandwidth"`
	Raw        []tdp.DensityPoint `json:"raw"`
	Private    []tdp.DensityPoint `json:"private"`
	MaxRaw     float64            `json:"maxRaw"`
	MaxPrivate float64            `json:"maxPrivate"`
	// YMax is shared by both curves.
	YMax    float64   `json:"yMax"`
	Buckets []float64 `json:"buckets"`
}

func NewDensity(samples map[string][]float64) *Density {
	return &Density{Samples: samples, drawn: make(map[string][]float64)}
}

// Names lists every sample the page can show.
func (d *Density) Names() []string {
	names := tdp.DistributionNames()
	for n := range d.Samples {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Sample returns the named sample. Synthetic samples are drawn once with gen
// and reused, so the raw curve stays put while epsilon changes; fresh draws a
// new one in their place.
func (d *Density) Sample(name string, gen *tdp.Generator, fresh bool) ([]float64, error) {
	if xs, ok := d.Samples[name]; ok {
		return xs, nil
	}
	if !tdp.IsDistribution(name) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSample, name)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if xs, ok := d.drawn[name]; ok && !fresh {
		return xs, nil
	}
	xs, err := tdp.Distribution(name, tdp.SampleSize, gen)
	if err != nil {
		return nil, err
	}
	if d.drawn == nil {
		d.drawn = make(map[string][]float64)
	}
	d.drawn[name] = xs
	return xs, nil
}

func (d *Density) Refresh(st *State) (DensityResult, error) {
	if err := st.Validate(); err != nil {
		return DensityResult{}, err
	}
	xs, err := d.Sample(st.Dist, st.Gen, st.Resample)
	if err != nil {
		return DensityResult{}, err
	}
	if len(xs) == 0 {
		return DensityResult{}, fmt.Errorf("sample %q is empty", st.Dist)
	}

	min, max := tdp.Extent(xs)
	n := tdp.Distinct(xs)
	if n > tdp.MaxEvaluationPoints {
		n = tdp.MaxEvaluationPoints
	}
	h := tdp.SilvermanBandwidth(xs)
	kde := tdp.NewKDE(tdp.Epanechnikov, h, tdp.EvaluationPoints(min, max, n))
	raw := kde.Estimate(xs)

	hist := tdp.NewHistogram(min, max, densityBuckets)
	for _, x := range xs {
		hist.Add(x, 1)
	}
	noisy, err := st.ReleaseAll(tdp.DensityBucket, hist.Counts())
	if err != nil {
		return DensityResult{}, err
	}
	private := kde.Estimate(pseudoSample(hist.Centers(), noisy))

	maxRaw, maxPrivate := tdp.MaxDensity(raw), tdp.MaxDensity(private)
	return DensityResult{
		Dist:       st.Dist,
		N:          len(xs),
		Bandwidth:  h,
		Raw:        raw,
		Private:    private,
		MaxRaw:     maxRaw,
		MaxPrivate: maxPrivate,
		YMax:       math.Max(maxRaw, maxPrivate),
		Buckets:    noisy,
	}, nil
}

// pseudoSample expands noised bucket counts back into values: ceil(count)
// copies of every bucket centre. Counts adding up to more than
// maxPseudoSample are scaled down first, which leaves the estimated density
// unchanged up to rounding.
func pseudoSample(centers, counts []float64) []float64 {
	var total float64
	for _, c := range counts {
		if c > 0 {
			total += c
		}
	}
	scale := 1.0
	if total > maxPseudoSample {
		scale = maxPseudoSample / total
	}

	var out []float64
	for i, c := range counts {
		for j := 0; float64(j) < c*scale; j++ {
			out = append(out, centers[i])
		}
	}
	return out
}
