package observability

import (
	"math"
	"math/big"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// LendingMetrics captures activity on the pool ledger. Operations are
// segmented by name and outcome so dashboards can distinguish rejected calls
// from executed ones.
type LendingMetrics struct {
	operations   *prometheus.CounterVec
	liquidations prometheus.Counter
	accruals     prometheus.Counter
	borrowRate   *prometheus.GaugeVec
	utilization  *prometheus.GaugeVec
}

var (
	lendingMetricsOnce sync.Once
	lendingRegistry    *LendingMetrics
)

// Lending returns the lazily-initialised lending metrics registry.
func Lending() *LendingMetrics {
	lendingMetricsOnce.Do(func() {
		lendingRegistry = &LendingMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "lendpool",
				Subsystem: "engine",
				Name:      "operations_total",
				Help:      "Total pool operations segmented by operation and outcome.",
			}, []string{"operation", "outcome"}),
			liquidations: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "lendpool",
				Subsystem: "engine",
				Name:      "liquidations_total",
				Help:      "Count of executed liquidations.",
			}),
			accruals: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "lendpool",
				Subsystem: "engine",
				Name:      "interest_accruals_total",
				Help:      "Count of interest accrual passes that advanced a market.",
			}),
			borrowRate: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "lendpool",
				Subsystem: "market",
				Name:      "borrow_rate",
				Help:      "Current per-second borrow rate per market, scaled to a float.",
			}, []string{"asset"}),
			utilization: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "lendpool",
				Subsystem: "market",
				Name:      "utilization",
				Help:      "Current utilization ratio per market.",
			}, []string{"asset"}),
		}
		prometheus.MustRegister(
			lendingRegistry.operations,
			lendingRegistry.liquidations,
			lendingRegistry.accruals,
			lendingRegistry.borrowRate,
			lendingRegistry.utilization,
		)
	})
	return lendingRegistry
}

// RecordOperation counts a pool operation and its outcome.
func (m *LendingMetrics) RecordOperation(op string, err error) {
	if m == nil {
		return
	}
	if op == "" {
		op = "unknown"
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.operations.WithLabelValues(op, outcome).Inc()
}

// RecordLiquidation counts an executed liquidation.
func (m *LendingMetrics) RecordLiquidation() {
	if m == nil {
		return
	}
	m.liquidations.Inc()
}

// RecordAccrual counts an accrual pass and updates the per-market gauges.
// Rates and utilization arrive as 1e18-scaled integers.
func (m *LendingMetrics) RecordAccrual(asset string, borrowRate, utilization *big.Int) {
	if m == nil {
		return
	}
	m.accruals.Inc()
	if asset == "" {
		return
	}
	if rate := wadToFloat(borrowRate); !math.IsNaN(rate) {
		m.borrowRate.WithLabelValues(asset).Set(rate)
	}
	if util := wadToFloat(utilization); !math.IsNaN(util) {
		m.utilization.WithLabelValues(asset).Set(util)
	}
}

func wadToFloat(value *big.Int) float64 {
	if value == nil {
		return math.NaN()
	}
	scaled, _ := new(big.Float).Quo(new(big.Float).SetInt(value), big.NewFloat(1e18)).Float64()
	return scaled
}
