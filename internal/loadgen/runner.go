package loadgen

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/fluxchat/consistency-sim/internal/metrics"
	"github.com/fluxchat/consistency-sim/internal/model"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// ErrEmptyPlan is returned for a plan without writes
var ErrEmptyPlan = errors.New("plan has no writes")

// Plan describes a batch of writes
type Plan struct {
	Writes int
	// Levels are used round-robin; empty means ONE and QUORUM alternating
	Levels []model.ConsistencyLevel
	// Concurrency caps in-flight writes; zero means one at a time
	Concurrency int
	// Interval spaces write starts; zero starts them as fast as Concurrency allows
	Interval  time.Duration
	ChannelID string
	AuthorID  string
}

// SeedPlan is the startup batch: n writes, interval apart, alternating ONE and QUORUM
func SeedPlan(n int, interval time.Duration) Plan {
	return Plan{
		Writes:   n,
		Levels:   []model.ConsistencyLevel{model.ConsistencyOne, model.ConsistencyQuorum},
		Interval: interval,
	}
}

// Report summarizes a finished plan
type Report struct {
	Total      int
	Failed     int
	Elapsed    time.Duration
	Throughput float64
	Snapshot   metrics.Snapshot
}

// Fields renders the report for structured logging
func (r Report) Fields() []zap.Field {
	fields := []zap.Field{
		zap.Int("total", r.Total),
		zap.Int("failed", r.Failed),
		zap.Duration("elapsed", r.Elapsed),
		zap.Float64("writes_per_sec", r.Throughput),
	}
	for _, level := range model.Levels {
		stats := r.Snapshot.Stats(level)
		if stats.Count == 0 {
			continue
		}
		fields = append(fields, zap.Object(level.String(), zapcore.ObjectMarshalerFunc(func(enc zapcore.ObjectEncoder) error {
			enc.AddInt("count", stats.Count)
			enc.AddDuration("avg", stats.Avg)
			enc.AddDuration("p50", stats.P50)
			enc.AddDuration("p99", stats.P99)
			enc.AddDuration("max", stats.Max)
			return nil
		})))
	}
	return fields
}

// Runner executes plans against a Writer
type Runner struct {
	writer Writer
	logger *zap.Logger
}

func NewRunner(writer Writer, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{writer: writer, logger: logger}
}

// Run issues every write in plan and waits for them. Cancelling ctx stops new writes.
func (r *Runner) Run(ctx context.Context, plan Plan) (Report, error) {
	if plan.Writes <= 0 {
		return Report{}, ErrEmptyPlan
	}
	levels := plan.Levels
	if len(levels) == 0 {
		levels = []model.ConsistencyLevel{model.ConsistencyOne, model.ConsistencyQuorum}
	}
	for _, level := range levels {
		if !level.Valid() {
			return Report{}, fmt.Errorf("%w: %d", model.ErrInvalidConsistency, int(level))
		}
	}
	concurrency := max(plan.Concurrency, 1)
	channelID := plan.ChannelID
	if channelID == "" {
		channelID = "channel-1"
	}
	authorID := plan.AuthorID
	if authorID == "" {
		authorID = "user-1"
	}

	var limiter *rate.Limiter
	if plan.Interval > 0 {
		limiter = rate.NewLimiter(rate.Every(plan.Interval), 1)
	}

	recorder := metrics.NewLatencyMetrics(max(plan.Writes, metrics.DefaultWindowSize))
	var issued, failed atomic.Int64

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var runErr error
	for i := range plan.Writes {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				runErr = err
				break
			}
		} else if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		level := levels[i%len(levels)]
		msg := Message{
			ChannelID: channelID,
			AuthorID:  authorID,
			Content:   fmt.Sprintf("Test message %d", i+1),
		}
		g.Go(func() error {
			outcome := r.writer.Write(gctx, msg, level)
			recorder.RecordWrite(level, outcome)
			issued.Add(1)
			if !outcome.Success {
				failed.Add(1)
				r.logger.Debug("Generated write failed",
					zap.Stringer("consistency", level),
					zap.String("reason", outcome.ErrorReason))
			}
			return nil
		})
	}
	_ = g.Wait()

	elapsed := time.Since(start)
	report := Report{
		Total:    int(issued.Load()),
		Failed:   int(failed.Load()),
		Elapsed:  elapsed,
		Snapshot: recorder.Snapshot(),
	}
	if elapsed > 0 {
		report.Throughput = float64(report.Total) / elapsed.Seconds()
	}
	return report, runErr
}
