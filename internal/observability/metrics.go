// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the agent.
type Metrics struct {
	// Admission metrics
	DeploymentsAccepted prometheus.Counter
	DeploymentsRejected *prometheus.CounterVec
	DeploymentSpendSOL  prometheus.Counter

	// Position metrics
	ActivePositions     prometheus.Gauge
	PositionsMarkedDead prometheus.Counter
	PositionsGraduated  prometheus.Counter

	// Harvest metrics
	HarvestRunsTotal    *prometheus.CounterVec
	FeesHarvestedSOL    *prometheus.CounterVec
	HarvestStreamErrors *prometheus.CounterVec

	// Treasury metrics
	TreasurySOLBalance  prometheus.Gauge
	TreasuryUSDCBalance prometheus.Gauge
	ComputeCredits      prometheus.Gauge
	NetPnLSOL           prometheus.Gauge

	// Survival metrics
	SurvivalTier   *prometheus.GaugeVec
	RunwayHours    prometheus.Gauge
	BridgeAttempts *prometheus.CounterVec
	BridgedUSDC    prometheus.Counter

	// Task metrics
	TaskRunsTotal *prometheus.CounterVec
	TaskDuration  *prometheus.HistogramVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulHarvest   prometheus.Gauge
	LastSuccessfulHeartbeat prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "launch_agent"
	}

	return &Metrics{
		// Admission metrics
		DeploymentsAccepted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "admission",
			Name:      "deployments_accepted_total",
			Help:      "Total number of accepted deployment requests",
		}),
		DeploymentsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "admission",
			Name:      "deployments_rejected_total",
			Help:      "Total number of rejected deployment requests by reason",
		}, []string{"reason"}),
		DeploymentSpendSOL: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "admission",
			Name:      "deployment_spend_sol_total",
			Help:      "Total SOL spent on accepted deployments",
		}),

		// Position metrics
		ActivePositions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "positions",
			Name:      "active",
			Help:      "Current number of active positions",
		}),
		PositionsMarkedDead: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "positions",
			Name:      "marked_dead_total",
			Help:      "Total number of positions marked dead by staleness",
		}),
		PositionsGraduated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "positions",
			Name:      "graduated_total",
			Help:      "Total number of positions graduated",
		}),

		// Harvest metrics
		HarvestRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "harvest",
			Name:      "runs_total",
			Help:      "Total number of harvest runs by status",
		}, []string{"status"}),
		FeesHarvestedSOL: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "harvest",
			Name:      "fees_sol_total",
			Help:      "Total SOL harvested by fee stream",
		}, []string{"stream"}),
		HarvestStreamErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "harvest",
			Name:      "stream_errors_total",
			Help:      "Total number of failed fee stream collections",
		}, []string{"stream"}),

		// Treasury metrics
		TreasurySOLBalance: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "treasury",
			Name:      "sol_balance",
			Help:      "Current wallet SOL balance",
		}),
		TreasuryUSDCBalance: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "treasury",
			Name:      "usdc_balance",
			Help:      "Current wallet USDC balance",
		}),
		ComputeCredits: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "treasury",
			Name:      "compute_credits",
			Help:      "Current compute credit balance",
		}),
		NetPnLSOL: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "treasury",
			Name:      "net_pnl_sol",
			Help:      "Net profit and loss in SOL (earned minus invested)",
		}),

		// Survival metrics
		SurvivalTier: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "survival",
			Name:      "tier",
			Help:      "Current survival tier (1 for the active tier, 0 otherwise)",
		}, []string{"tier"}),
		RunwayHours: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "survival",
			Name:      "runway_hours",
			Help:      "Estimated compute runway in hours at the current tier's burn rate",
		}),
		BridgeAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "survival",
			Name:      "bridge_attempts_total",
			Help:      "Total number of auto-bridge attempts by status",
		}, []string{"status"}),
		BridgedUSDC: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "survival",
			Name:      "bridged_usdc_total",
			Help:      "Total USDC bridged into compute credits",
		}),

		// Task metrics
		TaskRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tasks",
			Name:      "runs_total",
			Help:      "Total number of periodic task runs by task and status",
		}, []string{"task", "status"}),
		TaskDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "tasks",
			Name:      "duration_seconds",
			Help:      "Periodic task execution duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
		}, []string{"task"}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastSuccessfulHarvest: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_harvest_timestamp",
			Help:      "Unix timestamp of last successful harvest run",
		}),
		LastSuccessfulHeartbeat: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_heartbeat_timestamp",
			Help:      "Unix timestamp of last successful heartbeat cycle",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordDeploymentAccepted increments the accepted deployments counter
// and adds the spend to the spend total.
func RecordDeploymentAccepted(spentSOL float64) {
	DefaultMetrics.DeploymentsAccepted.Inc()
	DefaultMetrics.DeploymentSpendSOL.Add(spentSOL)
}

// RecordDeploymentRejected increments the rejected deployments counter.
func RecordDeploymentRejected(reason string) {
	DefaultMetrics.DeploymentsRejected.WithLabelValues(reason).Inc()
}

// RecordSurvivalTier sets the tier gauge vector to the current tier.
func RecordSurvivalTier(tier string) {
	for _, t := range []string{"normal", "low_compute", "critical", "dead"} {
		value := 0.0
		if t == tier {
			value = 1.0
		}
		DefaultMetrics.SurvivalTier.WithLabelValues(t).Set(value)
	}
}

// RecordBridgeAttempt records one auto-bridge attempt.
func RecordBridgeAttempt(succeeded bool, amountUSDC float64) {
	status := "success"
	if !succeeded {
		status = "failure"
	}
	DefaultMetrics.BridgeAttempts.WithLabelValues(status).Inc()
	if succeeded {
		DefaultMetrics.BridgedUSDC.Add(amountUSDC)
	}
}
