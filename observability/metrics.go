package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// CoreMetrics exposes Prometheus collectors for the deterministic core:
// command throughput, trade and investment activity, and the settlement
// queue depth.
type CoreMetrics struct {
	Commands       *prometheus.CounterVec
	CommandErrors  *prometheus.CounterVec
	TradeVolume    *prometheus.CounterVec
	Investments    prometheus.Counter
	SettlementsOut prometheus.Counter
	QueueDepth     prometheus.Gauge
}

// RPCMetrics exposes Prometheus collectors for the JSON-RPC surface.
type RPCMetrics struct {
	Requests *prometheus.CounterVec
	Latency  *prometheus.HistogramVec
}

var (
	coreMetricsOnce sync.Once
	coreRegistry    *CoreMetrics

	rpcMetricsOnce sync.Once
	rpcRegistry    *RPCMetrics
)

// Core returns the lazily-initialised core metrics registry.
func Core() *CoreMetrics {
	coreMetricsOnce.Do(func() {
		coreRegistry = &CoreMetrics{
			Commands: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "omen",
				Subsystem: "core",
				Name:      "commands_total",
				Help:      "Total commands applied to the state machine, segmented by command and outcome.",
			}, []string{"command", "outcome"}),
			CommandErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "omen",
				Subsystem: "core",
				Name:      "command_errors_total",
				Help:      "Total rejected commands segmented by command name.",
			}, []string{"command"}),
			TradeVolume: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "omen",
				Subsystem: "market",
				Name:      "trade_volume_total",
				Help:      "Cumulative traded currency units segmented by direction.",
			}, []string{"direction"}),
			Investments: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "omen",
				Subsystem: "launchpad",
				Name:      "investments_total",
				Help:      "Total accepted launchpad investments.",
			}),
			SettlementsOut: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "omen",
				Subsystem: "settlement",
				Name:      "flushed_total",
				Help:      "Total settlements drained to the host for external payout.",
			}),
			QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "omen",
				Subsystem: "settlement",
				Name:      "queue_depth",
				Help:      "Withdrawal settlements waiting to be flushed.",
			}),
		}
		prometheus.MustRegister(
			coreRegistry.Commands,
			coreRegistry.CommandErrors,
			coreRegistry.TradeVolume,
			coreRegistry.Investments,
			coreRegistry.SettlementsOut,
			coreRegistry.QueueDepth,
		)
	})
	return coreRegistry
}

// RPC returns the lazily-initialised RPC metrics registry.
func RPC() *RPCMetrics {
	rpcMetricsOnce.Do(func() {
		rpcRegistry = &RPCMetrics{
			Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "omen",
				Subsystem: "rpc",
				Name:      "requests_total",
				Help:      "Total JSON-RPC requests segmented by method and outcome.",
			}, []string{"method", "outcome"}),
			Latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "omen",
				Subsystem: "rpc",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for JSON-RPC handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"method"}),
		}
		prometheus.MustRegister(rpcRegistry.Requests, rpcRegistry.Latency)
	})
	return rpcRegistry
}
