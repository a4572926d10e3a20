package batch

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/apache/beam/sdks/v2/go/pkg/beam"
	"github.com/apache/beam/sdks/v2/go/pkg/beam/io/databaseio"
	_ "github.com/apache/beam/sdks/v2/go/pkg/beam/io/filesystem/local"
	"github.com/apache/beam/sdks/v2/go/pkg/beam/io/textio"
	"github.com/apache/beam/sdks/v2/go/pkg/beam/runners/direct"
	log "github.com/golang/glog"

	"github.com/htried/taxi-diff-privacy/tdp"
)

// Options configure one run of the pickup pipeline.
type Options struct {
	// CSV of trips, first columns driver_id,pickup_latitude,pickup_longitude
	Input string
	// file of exact "cell,count" lines; the private counts go next to it
	Output string
	Grid   GridSpec
	Params Params
	// DSN, when set, also writes both counts into the pickup_counts table.
	DSN string
	// Chart, when set, is an image comparing both counts per cell.
	Chart string
}

// PrivateOutput is where the private counts of output are written.
func PrivateOutput(output string) string {
	ext := filepath.Ext(output)
	return strings.TrimSuffix(output, ext) + "_dp" + ext
}

// readInput reads trips from a CSV file.
func readInput(s beam.Scope, input string) beam.PCollection {
	s = s.Scope("readInput")
	lines := textio.Read(s, input)
	return beam.ParDo(s, ParseTripFn, lines)
}

// Build adds the whole pipeline to s.
func Build(s beam.Scope, opts Options) error {
	if opts.Input == "" || opts.Output == "" {
		return fmt.Errorf("input and output files are required")
	}
	if opts.Grid.Side < 1 {
		return fmt.Errorf("grid side must be at least 1, got %d", opts.Grid.Side)
	}

	trips := readInput(s, opts.Input)
	exact := CountPickups(s, trips, opts.Grid)
	private, err := PrivateCountPickups(s, trips, opts.Grid, opts.Params)
	if err != nil {
		return err
	}

	textio.Write(s, opts.Output, beam.ParDo(s, formatCountFn, exact))
	textio.Write(s, PrivateOutput(opts.Output), beam.ParDo(s, formatPrivateCountFn, private))

	if opts.DSN != "" {
		exactRows := beam.ParDo(s, &rowFn{Private: false, Epsilon: -1}, beam.ParDo(s, widenCountFn, exact))
		privateRows := beam.ParDo(s, &rowFn{Private: true, Epsilon: opts.Params.Epsilon}, private)
		databaseio.Write(s, "mysql", opts.DSN, tdp.PickupCountsTable, []string{}, beam.Flatten(s, exactRows, privateRows))
	}
	return nil
}

// Run builds the pipeline and executes it on the direct runner. beam.Init must
// have been called.
func Run(ctx context.Context, opts Options) error {
	p := beam.NewPipeline()
	s := p.Root()
	if err := Build(s, opts); err != nil {
		return err
	}

	log.Infof("counting pickups of %s on a %dx%d grid", opts.Input, opts.Grid.Side, opts.Grid.Side)
	if _, err := direct.Execute(ctx, p); err != nil {
		return fmt.Errorf("execution of pipeline failed: %w", err)
	}
	log.Infof("wrote %s and %s", opts.Output, PrivateOutput(opts.Output))

	if opts.Chart == "" {
		return nil
	}
	exact, err := ReadCounts(opts.Output)
	if err != nil {
		return err
	}
	private, err := ReadCounts(PrivateOutput(opts.Output))
	if err != nil {
		return err
	}
	if err := DrawChart(exact, private, opts.Grid.Side*opts.Grid.Side, opts.Chart); err != nil {
		return err
	}
	log.Infof("drew %s", opts.Chart)
	return nil
}
