// Package metrics holds the service's Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var registry = prometheus.NewRegistry()

var (
	// MembershipOperations counts ledger calls by operation and outcome.
	MembershipOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bitbridge_membership_operations_total",
			Help: "Membership ledger operations by operation and result",
		},
		[]string{"operation", "result"},
	)

	RewardXPIssued = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bitbridge_reward_xp_issued_total",
		Help: "Experience points credited by project completions",
	})

	RewardBitsIssued = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bitbridge_reward_bits_issued_total",
		Help: "Bits currency credited by project completions",
	})

	RewardBytesIssued = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bitbridge_reward_bytes_issued_total",
		Help: "Bytes currency credited by project completions",
	})

	LevelUps = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bitbridge_level_ups_total",
		Help: "Levels gained by members through project completions",
	})

	// ProjectsByStatus is refreshed from the database on every scrape.
	ProjectsByStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bitbridge_projects",
			Help: "Number of projects by status",
		},
		[]string{"status"},
	)
)

func init() {
	registry.MustRegister(
		MembershipOperations,
		RewardXPIssued,
		RewardBitsIssued,
		RewardBytesIssued,
		LevelUps,
		ProjectsByStatus,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Handler serves the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
}

// ObserveOperation records one ledger call.
func ObserveOperation(operation, result string) {
	MembershipOperations.WithLabelValues(operation, result).Inc()
}
