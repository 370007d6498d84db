package metrics

import (
	"errors"
	"strconv"

	"github.com/fluxchat/consistency-sim/internal/util/workerpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "flux"
	subsystem = "coordinator"
)

// Prometheus holds the exported coordinator metrics. A nil *Prometheus is a valid no-op.
type Prometheus struct {
	registry *prometheus.Registry

	// Request metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Consistency metrics
	QuorumFailures *prometheus.CounterVec
	StaleReads     prometheus.Counter

	// Replica metrics
	ReplicaOperations  *prometheus.CounterVec
	ReplicaPartitioned *prometheus.GaugeVec
}

// NewPrometheus creates metrics registered on a private registry
func NewPrometheus() *Prometheus {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Prometheus{
		registry: reg,

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "requests_total",
				Help:      "Total number of coordinated operations",
			},
			[]string{"operation", "consistency", "status"},
		),

		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "request_duration_seconds",
				Help:      "Duration from dispatch to resolution",
				Buckets:   []float64{0.001, 0.0025, 0.005, 0.01, 0.015, 0.025, 0.05, 0.1, 0.15, 0.25},
			},
			[]string{"operation", "consistency"},
		),

		QuorumFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "quorum_failures_total",
				Help:      "Total number of operations that timed out before reaching their required count",
			},
			[]string{"operation", "consistency"},
		),

		StaleReads: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "stale_reads_total",
				Help:      "Total number of reads that returned a value some replica disagreed with",
			},
		),

		ReplicaOperations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "replica_operations_total",
				Help:      "Total number of per-replica operations",
			},
			[]string{"replica_id", "operation", "status"},
		),

		ReplicaPartitioned: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "replica_partitioned",
				Help:      "1 when the replica is partitioned, 0 otherwise",
			},
			[]string{"replica_id"},
		),
	}
}

// Registry returns the registry backing these metrics
func (m *Prometheus) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordRequest records a resolved coordinator operation
func (m *Prometheus) RecordRequest(operation, consistency string, success bool, seconds float64) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(operation, consistency, statusLabel(success)).Inc()
	m.RequestDuration.WithLabelValues(operation, consistency).Observe(seconds)
}

// RecordQuorumFailure records a coordinator timeout
func (m *Prometheus) RecordQuorumFailure(operation, consistency string) {
	if m == nil {
		return
	}
	m.QuorumFailures.WithLabelValues(operation, consistency).Inc()
}

// RecordStaleRead records a stale read
func (m *Prometheus) RecordStaleRead() {
	if m == nil {
		return
	}
	m.StaleReads.Inc()
}

// RecordReplicaOperation records a single replica's result
func (m *Prometheus) RecordReplicaOperation(replicaID int, operation string, success bool) {
	if m == nil {
		return
	}
	m.ReplicaOperations.WithLabelValues(strconv.Itoa(replicaID), operation, statusLabel(success)).Inc()
}

// SetReplicaPartitioned updates the partition gauge
func (m *Prometheus) SetReplicaPartitioned(replicaID int, partitioned bool) {
	if m == nil {
		return
	}
	v := 0.0
	if partitioned {
		v = 1
	}
	m.ReplicaPartitioned.WithLabelValues(strconv.Itoa(replicaID)).Set(v)
}

// ObserveVerifier exports the stale-read verifier pool, sampled at scrape time.
// Only the first pool observed on a registry is exported.
func (m *Prometheus) ObserveVerifier(stats func() workerpool.Stats) {
	if m == nil || stats == nil {
		return
	}
	opts := func(name, help string) prometheus.Opts {
		return prometheus.Opts{Namespace: namespace, Subsystem: "verifier", Name: name, Help: help}
	}
	for _, c := range []prometheus.Collector{
		prometheus.NewGaugeFunc(prometheus.GaugeOpts(opts("queue_utilization_percent", "Verifier queue occupancy")),
			func() float64 { return stats().QueueUtilization() }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts(opts("active_workers", "Verifier workers running a job")),
			func() float64 { return float64(stats().Active) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts(opts("jobs_completed_total", "Late-read verifications finished")),
			func() float64 { return float64(stats().Completed) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts(opts("jobs_rejected_total", "Late-read verifications skipped because the queue was full")),
			func() float64 { return float64(stats().Rejected) }),
	} {
		var are prometheus.AlreadyRegisteredError
		if err := m.registry.Register(c); err != nil && !errors.As(err, &are) {
			panic(err)
		}
	}
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
