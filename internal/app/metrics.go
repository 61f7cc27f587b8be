package app

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type appMetrics struct {
	games       *prometheus.CounterVec
	rejected    *prometheus.CounterVec
	prizePaid   prometheus.Counter
	feesAccrued prometheus.Counter
	season      prometheus.Gauge
	height      prometheus.Gauge
}

var (
	metricsOnce sync.Once
	metricsReg  *appMetrics
)

// metricsRegistry returns the lazily-initialised metrics registry shared by
// every app instance in the process.
func metricsRegistry() *appMetrics {
	metricsOnce.Do(func() {
		metricsReg = &appMetrics{
			games: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "battlechess",
				Subsystem: "games",
				Name:      "transitions_total",
				Help:      "Game lifecycle transitions segmented by resulting status.",
			}, []string{"status"}),
			rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "battlechess",
				Subsystem: "tx",
				Name:      "rejected_total",
				Help:      "Transactions rejected during execution segmented by ABCI code.",
			}, []string{"codespace", "code"}),
			prizePaid: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "battlechess",
				Subsystem: "settlement",
				Name:      "prize_paid_total",
				Help:      "Cash paid out to winners at settlement.",
			}),
			feesAccrued: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "battlechess",
				Subsystem: "settlement",
				Name:      "platform_fees_accrued_total",
				Help:      "Platform share accrued from settled prize pools.",
			}),
			season: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "battlechess",
				Name:      "season",
				Help:      "Current leaderboard season.",
			}),
			height: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "battlechess",
				Name:      "block_height",
				Help:      "Height of the last finalized block.",
			}),
		}
		prometheus.MustRegister(
			metricsReg.games,
			metricsReg.rejected,
			metricsReg.prizePaid,
			metricsReg.feesAccrued,
			metricsReg.season,
			metricsReg.height,
		)
	})
	return metricsReg
}

func (m *appMetrics) gameTransition(status string) {
	if m == nil {
		return
	}
	m.games.WithLabelValues(status).Inc()
}

func (m *appMetrics) txRejected(codespace string, code uint32) {
	if m == nil {
		return
	}
	m.rejected.WithLabelValues(codespace, strconv.FormatUint(uint64(code), 10)).Inc()
}

func (m *appMetrics) settled(prize, fee uint64) {
	if m == nil {
		return
	}
	m.prizePaid.Add(float64(prize))
	m.feesAccrued.Add(float64(fee))
}

func (m *appMetrics) observeState(height int64, season uint64) {
	if m == nil {
		return
	}
	m.height.Set(float64(height))
	m.season.Set(float64(season))
}
