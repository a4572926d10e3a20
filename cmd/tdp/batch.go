package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/apache/beam/sdks/v2/go/pkg/beam"
	log "github.com/golang/glog"
	"github.com/google/differential-privacy/privacy-on-beam/v3/pbeam"
	"github.com/spf13/cobra"

	"github.com/htried/taxi-diff-privacy/batch"
	"github.com/htried/taxi-diff-privacy/tdp"
)

type batchOptions struct {
	*globalOptions
	input    string
	output   string
	epsilon  float64
	side     int
	maxCells int64
	maxValue int64
	noNoise  bool
	chart    string
}

func (o *batchOptions) options() (batch.Options, error) {
	opts := batch.Options{
		Input:  o.input,
		Output: o.output,
		Chart:  o.chart,
		Grid:   batch.GridSpec{Bounds: tdp.Manhattan, Side: o.side},
		Params: batch.Params{
			Epsilon:  o.epsilon,
			MaxCells: o.maxCells,
			MaxValue: o.maxValue,
		},
	}
	if opts.Input == "" {
		opts.Input = filepath.Join(o.dataDir, "trips.csv")
	}
	if o.noNoise {
		opts.Params.TestMode = pbeam.TestModeWithContributionBounding
	}
	if o.myCnf != "" {
		dsn, err := tdp.DSN(o.myCnf, tdp.DBName)
		if err != nil {
			return batch.Options{}, err
		}
		opts.DSN = dsn
	}
	if err := opts.Params.Validate(); err != nil {
		return batch.Options{}, err
	}
	return opts, nil
}

func newBatchCmd(g *globalOptions) *cobra.Command {
	opts := &batchOptions{globalOptions: g}
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Count pickups per map cell with and without differential privacy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.input, "input", "", "CSV of trips, <data>/trips.csv if empty")
	cmd.Flags().StringVar(&opts.output, "output", "pickup_counts.txt", "file of exact counts; private counts go to <name>_dp<ext>")
	cmd.Flags().Float64Var(&opts.epsilon, "eps", 1, "privacy budget of the private count")
	cmd.Flags().IntVar(&opts.side, "side", 10, "cells per side of the Manhattan grid")
	cmd.Flags().Int64Var(&opts.maxCells, "max-cells", 4, "cells one driver may contribute to")
	cmd.Flags().Int64Var(&opts.maxValue, "max-value", 5, "pickups one driver may add to a cell")
	cmd.Flags().StringVar(&opts.chart, "chart", "", "also draw both counts into this image, e.g. counts.png")
	cmd.Flags().BoolVar(&opts.noNoise, "no-noise", false, "bound contributions but add no noise, for debugging")
	return cmd
}

func runBatch(ctx context.Context, o *batchOptions) error {
	opts, err := o.options()
	if err != nil {
		return fmt.Errorf("invalid batch options: %w", err)
	}
	if opts.DSN != "" {
		db, err := tdp.DBConnection(o.myCnf)
		if err != nil {
			return err
		}
		err = tdp.CreateTable(db, tdp.PickupCountsTable)
		db.Close()
		if err != nil {
			return err
		}
	}

	beam.Init()
	if err := batch.Run(ctx, opts); err != nil {
		return err
	}
	log.Infof("counted pickups of %s with epsilon %v", opts.Input, opts.Params.Epsilon)
	return nil
}
