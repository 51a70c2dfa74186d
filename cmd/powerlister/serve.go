package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/erazemk/powerlister/internal/analysis"
	"github.com/erazemk/powerlister/internal/api"
	"github.com/erazemk/powerlister/internal/store"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var (
		addr string
		seed bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				opts.cfg.Addr = addr
			}
			return serve(cmd.Context(), opts, seed)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "listen address (default from ADDR, 127.0.0.1:8080)")
	cmd.Flags().BoolVar(&seed, "seed", false, "store the demo items if the inventory is empty")
	return cmd
}

func serve(ctx context.Context, opts *rootOptions, seed bool) error {
	logger := opts.logger

	a, err := newApp(ctx, opts.cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if seed {
		seeded, err := store.SeedDemoItems(ctx, a.kv)
		if err != nil {
			return err
		}
		if seeded {
			logger.Info("demo items stored")
		}
	}

	box, err := a.box(ctx)
	if err != nil {
		return err
	}

	router := api.NewRouter(api.Deps{
		KV:        a.kv,
		Registry:  a.registry,
		Lifecycle: a.lifecycle,
		Box:       box,
		Analyzer:  analysis.New(),
	})

	mux := http.NewServeMux()
	mux.Handle("/api/", router)

	server := &http.Server{
		Addr:              opts.cfg.Addr,
		Handler:           api.RequestIDMiddleware(api.LoggingMiddleware(mux)),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	go func() {
		sig := <-quit
		logger.Info("shutdown signal received", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("server forced to shutdown", "error", err)
		}
	}()

	logger.Info("server started", "addr", opts.cfg.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	logger.Info("server stopped, closing store")
	return nil
}
