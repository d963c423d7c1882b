// Package metrics exposes Prometheus counters for the appointment ledger.
package metrics

import (
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "appointix"

var (
	once sync.Once

	ledgerOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_operations_total",
			Help:      "Ledger operations by operation and outcome.",
		},
		[]string{"operation", "outcome"},
	)

	slotRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slot_rejections_total",
			Help:      "Availability checks that rejected a slot, by reason.",
		},
		[]string{"reason"},
	)

	registrations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registrations_total",
			Help:      "Successful user registrations by user type.",
		},
		[]string{"user_type"},
	)

	cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Directory cache lookups by result.",
		},
		[]string{"result"},
	)
)

// Register registers metrics with the default registry (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(ledgerOps, slotRejections, registrations, cacheLookups)
	})
}

// Handler serves the default registry.
func Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.Handler())
}

func IncLedgerOp(operation, outcome string) {
	ledgerOps.WithLabelValues(operation, outcome).Inc()
}

func IncSlotRejection(reason string) {
	slotRejections.WithLabelValues(reason).Inc()
}

func IncRegistration(userType string) {
	registrations.WithLabelValues(userType).Inc()
}

func IncCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheLookups.WithLabelValues(result).Inc()
}
