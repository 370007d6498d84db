// Package main drives a write load against an in-process cluster or a
// running simulator's gRPC endpoint and prints the latency summary.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fluxchat/consistency-sim/internal/config"
	"github.com/fluxchat/consistency-sim/internal/grpcapi"
	"github.com/fluxchat/consistency-sim/internal/idgen"
	"github.com/fluxchat/consistency-sim/internal/loadgen"
	"github.com/fluxchat/consistency-sim/internal/logging"
	"github.com/fluxchat/consistency-sim/internal/metrics"
	"github.com/fluxchat/consistency-sim/internal/model"
	"github.com/fluxchat/consistency-sim/internal/replica"
	"github.com/fluxchat/consistency-sim/internal/service"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "path to config file (in-process cluster only)")
	target := flag.String("target", "", "gRPC address of a running simulator; empty runs an in-process cluster")
	writes := flag.Int("writes", 1000, "number of writes")
	concurrency := flag.Int("concurrency", 16, "maximum in-flight writes")
	levels := flag.String("levels", "one,quorum,all", "comma-separated consistency levels, used round-robin")
	interval := flag.Duration("interval", 0, "spacing between write starts")
	partition := flag.Int("partition", -1, "replica index to partition before the run")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	parsed, err := parseLevels(*levels)
	if err != nil {
		logger.Fatal("invalid -levels", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var writer loadgen.Writer
	if *target != "" {
		client, err := grpcapi.NewClient(grpcapi.DefaultClientConfig(*target), logger)
		if err != nil {
			logger.Fatal("failed to create gRPC client", zap.Error(err))
		}
		defer client.Close()

		if err := client.HealthCheck(ctx); err != nil {
			logger.Fatal("coordinator not healthy", zap.String("target", *target), zap.Error(err))
		}
		if *partition >= 0 {
			if _, err := client.SetPartition(ctx, &grpcapi.SetPartitionRequest{Index: *partition, Partitioned: true}); err != nil {
				logger.Fatal("failed to partition replica", zap.Error(err))
			}
		}
		writer = loadgen.NewRemoteWriter(client)
	} else {
		coordinator, ids, err := newLocalCluster(cfg, logger)
		if err != nil {
			logger.Fatal("failed to build cluster", zap.Error(err))
		}
		defer coordinator.Close()

		if *partition >= 0 {
			if err := coordinator.SetPartitioned(*partition, true); err != nil {
				logger.Fatal("failed to partition replica", zap.Error(err))
			}
		}
		writer = loadgen.NewLocalWriter(coordinator, ids)
	}

	plan := loadgen.Plan{
		Writes:      *writes,
		Levels:      parsed,
		Concurrency: *concurrency,
		Interval:    *interval,
	}
	report, err := loadgen.NewRunner(writer, logger).Run(ctx, plan)
	if err != nil {
		logger.Warn("load run stopped early", zap.Error(err))
	}
	logger.Info("load run completed", report.Fields()...)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(struct {
		Total      int              `json:"total"`
		Failed     int              `json:"failed"`
		ElapsedMs  float64          `json:"elapsed_ms"`
		Throughput float64          `json:"writes_per_sec"`
		Metrics    metrics.Snapshot `json:"metrics"`
	}{
		Total:      report.Total,
		Failed:     report.Failed,
		ElapsedMs:  model.Milliseconds(report.Elapsed),
		Throughput: report.Throughput,
		Metrics:    report.Snapshot,
	}); err != nil {
		logger.Error("failed to write report", zap.Error(err))
	}
}

func newLocalCluster(cfg *config.Config, logger *zap.Logger) (*service.Coordinator, *idgen.Snowflake, error) {
	replicaCfg := cfg.ReplicaConfig()
	replicaCfg.Logger = logger
	stores, err := replica.NewStores(cfg.Cluster.ReplicationFactor, replicaCfg)
	if err != nil {
		return nil, nil, err
	}
	opts, err := cfg.CoordinatorOptions()
	if err != nil {
		return nil, nil, err
	}
	coordinator, err := service.NewCoordinator(service.ReplicasOf(stores), metrics.NewLatencyMetrics(cfg.Metrics.WindowSize), opts, logger)
	if err != nil {
		return nil, nil, err
	}
	ids, err := idgen.NewSnowflake(cfg.Cluster.NodeID)
	if err != nil {
		_ = coordinator.Close()
		return nil, nil, err
	}
	return coordinator, ids, nil
}

func parseLevels(s string) ([]model.ConsistencyLevel, error) {
	var levels []model.ConsistencyLevel
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		level, err := model.ParseConsistencyLevel(part)
		if err != nil {
			return nil, err
		}
		levels = append(levels, level)
	}
	if len(levels) == 0 {
		return nil, fmt.Errorf("%w: no levels given", model.ErrInvalidConsistency)
	}
	return levels, nil
}
