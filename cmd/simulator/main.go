// Package main runs the replication simulator: a replica cluster behind an
// HTTP API, a gRPC API and a Prometheus endpoint.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fluxchat/consistency-sim/internal/config"
	"github.com/fluxchat/consistency-sim/internal/grpcapi"
	"github.com/fluxchat/consistency-sim/internal/idgen"
	"github.com/fluxchat/consistency-sim/internal/loadgen"
	"github.com/fluxchat/consistency-sim/internal/logging"
	"github.com/fluxchat/consistency-sim/internal/metrics"
	"github.com/fluxchat/consistency-sim/internal/model"
	"github.com/fluxchat/consistency-sim/internal/replica"
	"github.com/fluxchat/consistency-sim/internal/server"
	"github.com/fluxchat/consistency-sim/internal/service"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	printConfig := flag.Bool("print-config", false, "print the effective configuration and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if *printConfig {
		out, err := config.Marshal(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to render configuration: %v\n", err)
			os.Exit(1)
		}
		os.Stdout.Write(out)
		return
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("simulator failed", zap.Error(err))
	}
	logger.Info("simulator shutdown complete")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	logger.Info("starting simulator",
		zap.Int("replication_factor", cfg.Cluster.ReplicationFactor),
		zap.String("default_level", cfg.Consistency.DefaultLevel),
		zap.Int("http_port", cfg.Server.Port))

	replicaCfg := cfg.ReplicaConfig()
	replicaCfg.Logger = logger
	stores, err := replica.NewStores(cfg.Cluster.ReplicationFactor, replicaCfg)
	if err != nil {
		return fmt.Errorf("failed to create replicas: %w", err)
	}

	prom := metrics.NewPrometheus()
	opts, err := cfg.CoordinatorOptions()
	if err != nil {
		return err
	}
	opts.Prometheus = prom

	coordinator, err := service.NewCoordinator(service.ReplicasOf(stores), metrics.NewLatencyMetrics(cfg.Metrics.WindowSize), opts, logger)
	if err != nil {
		return fmt.Errorf("failed to create coordinator: %w", err)
	}
	defer func() {
		if err := coordinator.Close(); err != nil {
			logger.Warn("coordinator close", zap.Error(err))
		}
	}()

	ids, err := idgen.NewSnowflake(cfg.Cluster.NodeID)
	if err != nil {
		return err
	}

	httpServer := server.NewServer(cfg, coordinator, ids, logger)

	var grpcServer *grpcapi.Server
	if cfg.GRPC.Enabled {
		grpcServer = grpcapi.NewServer(cfg.GRPC.Port, coordinator, ids, logger)
	}

	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		metricsServer = metrics.NewServer(metrics.ServerConfig{Port: cfg.Metrics.Port, Path: cfg.Metrics.Path}, prom, coordinator.MetricsSnapshot, logger)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(httpServer.Start)
	if grpcServer != nil {
		g.Go(grpcServer.Start)
	}
	if metricsServer != nil {
		g.Go(metricsServer.Start)
	}

	if cfg.Seed.Writes > 0 {
		g.Go(func() error {
			return seed(gctx, cfg.Seed, coordinator, ids, logger)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("initiating graceful shutdown")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown HTTP server", zap.Error(err))
		}
		if grpcServer != nil {
			grpcServer.Shutdown(shutdownCtx)
		}
		if metricsServer != nil {
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("failed to shutdown metrics server", zap.Error(err))
			}
		}
		return nil
	})

	return g.Wait()
}

// seed issues the startup writes, alternating ONE with the configured level
func seed(ctx context.Context, cfg config.SeedConfig, svc service.ReplicationService, ids loadgen.IDGenerator, logger *zap.Logger) error {
	level, err := model.ParseConsistencyLevel(cfg.Level)
	if err != nil {
		return err
	}
	plan := loadgen.SeedPlan(cfg.Writes, cfg.Interval)
	plan.Levels = []model.ConsistencyLevel{model.ConsistencyOne, level}

	report, err := loadgen.NewRunner(loadgen.NewLocalWriter(svc, ids), logger).Run(ctx, plan)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("seeding failed: %w", err)
	}
	logger.Info("seed writes completed", report.Fields()...)
	return nil
}
