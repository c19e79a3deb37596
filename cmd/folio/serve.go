package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aretw0/folio"
	"github.com/aretw0/folio/internal/cli"
	"github.com/aretw0/folio/internal/config"
	"github.com/aretw0/folio/internal/metrics"
	"github.com/aretw0/folio/internal/presentation/tui"
	httpAdapter "github.com/aretw0/folio/pkg/adapters/http"
	"github.com/aretw0/folio/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP document server",
	Long: `Serves the configured document store over a JSON API with undo history per document
and a Server-Sent Events stream of changes. Prometheus metrics are exposed on /metrics.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(cmd)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
		if cmd.Flags().Changed("port") {
			cfg.HTTP.Port, _ = cmd.Flags().GetInt("port")
		}
		logger, err := cli.NewLogger(cfg.Log)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error configuring logger: %v\n", err)
			os.Exit(1)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		tui.PrintBanner(os.Stdout, strings.TrimSpace(folio.Version))
		if err := runServe(ctx, cfg, logger); err != nil {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
		logger.Info("Folio Server stopped gracefully")
	},
}

func runServe(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	mux := http.NewServeMux()

	var hooks domain.Hooks
	if cfg.HTTP.Metrics {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		m, err := metrics.New(reg)
		if err != nil {
			return err
		}
		hooks = m.Hooks()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}

	manager, backend, err := cli.NewManager(cfg, logger, hooks)
	if err != nil {
		return err
	}
	defer backend.Close()

	api := httpAdapter.NewServer(manager, httpAdapter.WithLogger(logger))
	defer api.Close()
	mux.Handle("/", api)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Folio Server listening", "address", srv.Addr, "store", cfg.Store.Driver, "metrics", cfg.HTTP.Metrics)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		// Give outstanding requests a deadline for completion.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Graceful shutdown did not complete", "error", err)
			return srv.Close()
		}
		return nil
	})
	return g.Wait()
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on (overrides http.port)")
}
