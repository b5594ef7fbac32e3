// Command reportd serves plant reports over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/wudi/plantreport/config"
	"github.com/wudi/plantreport/datasource"
	"github.com/wudi/plantreport/observability"
	"github.com/wudi/plantreport/server"
	"github.com/wudi/plantreport/service"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "reportd: %v\n", err)
		os.Exit(2)
	}
	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "reportd: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	logger, zl, err := observability.NewProductionLogger(cfg.Log.Level)
	if err != nil {
		return err
	}
	defer func() { _ = zl.Sync() }()

	src, closeDBs, err := datasource.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeDBs(); err != nil {
			logger.Warn("closing databases", observability.Error("error", err))
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	svc, err := service.New(src, cfg.Report,
		service.WithLogger(logger),
		service.WithMetrics(observability.NewMetrics(reg)))
	if err != nil {
		return err
	}

	srv := server.New(svc,
		server.WithLogger(logger),
		server.WithGatherer(reg),
		server.WithHealthCheck(src.Ping),
		server.WithLocation(time.FixedZone("plant", cfg.Data.LocalOffsetSeconds)))
	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      srv.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout(),
		WriteTimeout: cfg.Server.WriteTimeout(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", observability.String("addr", cfg.Server.Addr), observability.Int("databases", len(cfg.Databases)))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout())
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
