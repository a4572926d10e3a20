package main

import (
	"context"
	"fmt"
	"time"

	log "github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/htried/taxi-diff-privacy/tdp"
)

const dateLayout = "2006-01-02"

type cleanDBOptions struct {
	*globalOptions
	before  string
	dataset string
}

// cutoff is midnight UTC of the --before day, yesterday by default.
func (o *cleanDBOptions) cutoff(now time.Time) (time.Time, error) {
	if o.before == "" {
		y := now.UTC().AddDate(0, 0, -1)
		return time.Date(y.Year(), y.Month(), y.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	t, err := time.Parse(dateLayout, o.before)
	if err != nil {
		return time.Time{}, fmt.Errorf("--before wants a date like %s: %w", dateLayout, err)
	}
	return t, nil
}

func newCleanDBCmd(g *globalOptions) *cobra.Command {
	opts := &cleanDBOptions{globalOptions: g}
	cmd := &cobra.Command{
		Use:   "cleandb",
		Short: "Drop logged releases and, optionally, a trip dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCleanDB(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.before, "before", "", "drop releases logged before this day (YYYY-MM-DD), yesterday if empty")
	cmd.Flags().StringVar(&opts.dataset, "dataset", "", "also drop the trips of this dataset")
	return cmd
}

func runCleanDB(ctx context.Context, opts *cleanDBOptions) error {
	start := time.Now()
	if opts.myCnf == "" {
		return fmt.Errorf("cleandb needs --mycnf")
	}
	before, err := opts.cutoff(start)
	if err != nil {
		return err
	}

	// get a connection to the db
	db, err := tdp.DBConnection(opts.myCnf)
	if err != nil {
		return err
	}
	defer db.Close()
	log.Infof("Successfully connected to database")

	if err := tdp.DropOldData(ctx, db, before); err != nil {
		return fmt.Errorf("dropping releases before %s: %w", before.Format(dateLayout), err)
	}
	if opts.dataset != "" {
		if err := tdp.DropDataset(ctx, db, opts.dataset); err != nil {
			return err
		}
	}

	log.Infof("Time to clean up all databases: %v seconds", time.Since(start).Seconds())
	return nil
}
