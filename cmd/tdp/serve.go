package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	log "github.com/golang/glog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/htried/taxi-diff-privacy/pages"
	"github.com/htried/taxi-diff-privacy/server"
	"github.com/htried/taxi-diff-privacy/tdp"
)

const shutdownTimeout = 10 * time.Second

type serveOptions struct {
	*globalOptions
	addr      string
	mechanism string
	driver    string
	interval  time.Duration
}

func newServeCmd(g *globalOptions) *cobra.Command {
	opts := &serveOptions{globalOptions: g}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the demo API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, opts)
		},
	}
	cmd.Flags().StringVar(&opts.addr, "addr", getenv(envAddr, ":5000"), "address to listen on")
	cmd.Flags().StringVar(&opts.mechanism, "mechanism", getenv(envMechanism, string(tdp.InverseCDF)), "Laplace mechanism, inverse-cdf or secure")
	cmd.Flags().StringVar(&opts.driver, "driver", "", "driver whose pickups the driver map shows when trips come from the database")
	cmd.Flags().DurationVar(&opts.interval, "interval", 0, "default tick of the white-page simulation")
	return cmd
}

// function to assemble the server from the data directory, the policy and the
// optional database
func buildServer(ctx context.Context, opts *serveOptions, db *sql.DB) (*server.Server, *tdp.PolicyStore, error) {
	ds, err := tdp.LoadDataDir(opts.dataDir)
	if err != nil {
		return nil, nil, err
	}
	if db != nil {
		if err := tdp.OverlayDB(ctx, db, ds, opts.driver); err != nil {
			return nil, nil, fmt.Errorf("loading datasets from database: %w", err)
		}
	}
	ps, err := pages.New(ds)
	if err != nil {
		return nil, nil, err
	}

	policy, err := tdp.LoadPolicy(opts.policy)
	if err != nil {
		return nil, nil, err
	}
	store := tdp.NewPolicyStore(policy)

	mech, err := tdp.ParseMechanism(opts.mechanism)
	if err != nil {
		return nil, nil, err
	}

	cfg := server.Config{
		Pages:            ps,
		Policy:           store,
		Gen:              tdp.NewGenerator(tdp.SecureSource(), mech),
		SimulateInterval: opts.interval,
	}
	if db != nil {
		cfg.Releases = server.NewDBLog(db)
	}
	return server.New(cfg), store, nil
}

func runServe(ctx context.Context, opts *serveOptions) error {
	var db *sql.DB
	if opts.myCnf != "" {
		var err error
		db, err = tdp.DBConnection(opts.myCnf)
		if err != nil {
			return err
		}
		defer db.Close()
		log.Infof("Successfully connected to database")
		if err := tdp.CreateTable(db, "releases"); err != nil {
			return err
		}
	}

	srv, store, err := buildServer(ctx, opts, db)
	if err != nil {
		return err
	}
	g, ctx := errgroup.WithContext(ctx)
	httpServer := &http.Server{
		Addr:              opts.addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		// Shutdown leaves hijacked websockets alone, they end with ctx
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
	g.Go(func() error {
		log.Infof("listening on %s", opts.addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Infof("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(sctx)
	})
	if opts.policy != "" {
		g.Go(func() error {
			return tdp.WatchPolicy(ctx, opts.policy, store)
		})
	}
	return g.Wait()
}
