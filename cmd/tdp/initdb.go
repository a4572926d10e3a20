package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	log "github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/htried/taxi-diff-privacy/tdp"
)

type initDBOptions struct {
	*globalOptions
	dataset string
	file    string
}

// datasetFile is the CSV a dataset is loaded from when --file is not given.
func (o *initDBOptions) datasetFile() (string, error) {
	if o.file != "" {
		return o.file, nil
	}
	switch o.dataset {
	case tdp.TripsDataset, tdp.CelebrityDataset, tdp.StripDataset:
		return filepath.Join(o.dataDir, o.dataset+".csv"), nil
	}
	return "", fmt.Errorf("unknown dataset %q, pass --file", o.dataset)
}

func newInitDBCmd(g *globalOptions) *cobra.Command {
	opts := &initDBOptions{globalOptions: g}
	cmd := &cobra.Command{
		Use:   "initdb",
		Short: "Create the tables and load a trip dataset into MySQL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInitDB(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.dataset, "dataset", tdp.TripsDataset, "name to store the trips under")
	cmd.Flags().StringVar(&opts.file, "file", "", "CSV of trips, <data>/<dataset>.csv if empty")
	return cmd
}

func runInitDB(ctx context.Context, opts *initDBOptions) error {
	start := time.Now()
	if opts.myCnf == "" {
		return fmt.Errorf("initdb needs --mycnf")
	}
	path, err := opts.datasetFile()
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	trips, err := tdp.ReadTrips(f)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	db, err := tdp.DBConnection(opts.myCnf)
	if err != nil {
		return err
	}
	defer db.Close()
	log.Infof("Successfully connected to database")

	for _, tbl := range []string{"trips", "releases", tdp.PickupCountsTable} {
		if err := tdp.CreateTable(db, tbl); err != nil {
			return err
		}
	}

	// reloading a dataset replaces it
	if err := tdp.DropDataset(ctx, db, opts.dataset); err != nil {
		return err
	}
	if err := tdp.BatchInsertTrips(ctx, db, opts.dataset, trips); err != nil {
		return err
	}
	log.Infof("Loaded %d trips from %s as %s in %v seconds", len(trips), path, opts.dataset, time.Since(start).Seconds())
	return nil
}
