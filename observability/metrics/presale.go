package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// PresaleMetrics exposes counters and gauges for the minting ledger.
type PresaleMetrics struct {
	mintsTotal         prometheus.Counter
	mintFailures       *prometheus.CounterVec
	registrationsTotal prometheus.Counter
	catalogSize        prometheus.Gauge
	ownerBalance       prometheus.Gauge
}

var (
	presaleOnce     sync.Once
	presaleRegistry *PresaleMetrics
)

// Presale returns the process-wide presale metrics, registering them on first
// use.
func Presale() *PresaleMetrics {
	presaleOnce.Do(func() {
		presaleRegistry = &PresaleMetrics{
			mintsTotal: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "presale_mints_total",
				Help: "Count of successfully minted tokens.",
			}),
			mintFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "presale_mint_failures_total",
				Help: "Count of rejected mint attempts by failure kind.",
			}, []string{"kind"}),
			registrationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "presale_registrations_total",
				Help: "Count of successful whitelist registrations.",
			}),
			catalogSize: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "presale_catalog_size",
				Help: "Number of items currently in the catalog.",
			}),
			ownerBalance: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "presale_owner_balance",
				Help: "Accumulated owner balance from payments.",
			}),
		}
		prometheus.MustRegister(
			presaleRegistry.mintsTotal,
			presaleRegistry.mintFailures,
			presaleRegistry.registrationsTotal,
			presaleRegistry.catalogSize,
			presaleRegistry.ownerBalance,
		)
	})
	return presaleRegistry
}

// ObserveMint records a successful mint.
func (m *PresaleMetrics) ObserveMint() {
	if m == nil {
		return
	}
	m.mintsTotal.Inc()
}

// ObserveMintFailure records a rejected mint attempt by failure kind.
func (m *PresaleMetrics) ObserveMintFailure(kind string) {
	if m == nil {
		return
	}
	m.mintFailures.WithLabelValues(kind).Inc()
}

// ObserveRegistration records a successful whitelist registration.
func (m *PresaleMetrics) ObserveRegistration() {
	if m == nil {
		return
	}
	m.registrationsTotal.Inc()
}

// SetCatalogSize updates the catalog size gauge.
func (m *PresaleMetrics) SetCatalogSize(n uint64) {
	if m == nil {
		return
	}
	m.catalogSize.Set(float64(n))
}

// SetOwnerBalance updates the owner balance gauge.
func (m *PresaleMetrics) SetOwnerBalance(balance float64) {
	if m == nil {
		return
	}
	m.ownerBalance.Set(balance)
}
