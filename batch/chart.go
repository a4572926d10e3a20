package batch

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// ReadCounts reads a file of "cell,count" lines as written by the pipeline.
func ReadCounts(path string) (map[int]float64, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read output file %s: %w", path, err)
	}
	counts := make(map[int]float64)
	for _, line := range strings.Split(string(contents), "\n") {
		if line == "" {
			continue
		}
		cell, count, ok := strings.Cut(line, ",")
		if !ok {
			return nil, fmt.Errorf("no comma in line %q of %s", line, path)
		}
		c, err := strconv.Atoi(cell)
		if err != nil {
			return nil, fmt.Errorf("could not convert cell %s to int: %w", cell, err)
		}
		v, err := strconv.ParseFloat(count, 64)
		if err != nil {
			return nil, fmt.Errorf("could not convert count %s to float64: %w", count, err)
		}
		counts[c] = v
	}
	return counts, nil
}

// DrawChart saves a bar chart of the exact and private count of every cell to
// path. The image format follows the extension of path.
func DrawChart(exact, private map[int]float64, cells int, path string) error {
	raw := make(plotter.Values, cells)
	dp := make(plotter.Values, cells)
	names := make([]string, cells)
	for i := 0; i < cells; i++ {
		raw[i], dp[i] = exact[i], private[i]
		names[i] = strconv.Itoa(i)
	}

	p := plot.New()
	p.Title.Text = "Pickups Per Cell"
	p.X.Label.Text = "Cell"
	p.Y.Label.Text = "Pickups"

	w := vg.Points(8)
	bars, err := plotter.NewBarChart(raw, w)
	if err != nil {
		return fmt.Errorf("could not create bars from exact counts: %w", err)
	}
	bars.LineStyle.Width = vg.Length(0)
	bars.Color = plotutil.Color(2)
	bars.Offset = -w / 2

	dpBars, err := plotter.NewBarChart(dp, w)
	if err != nil {
		return fmt.Errorf("could not create bars from private counts: %w", err)
	}
	dpBars.LineStyle.Width = vg.Length(0)
	dpBars.Color = plotutil.Color(3)
	dpBars.Offset = w / 2

	p.Add(bars, dpBars)
	p.Legend.Add("Raw", bars)
	p.Legend.Add("Private", dpBars)
	p.Legend.Top = true
	p.NominalX(names...)

	width := vg.Length(cells) * 2 * w
	if width < 10*vg.Inch {
		width = 10 * vg.Inch
	}
	if err := p.Save(width, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("could not save chart: %w", err)
	}
	return nil
}

