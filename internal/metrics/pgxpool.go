package metrics

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// PoolStats is the part of *pgxpool.Stat exported as gauges.
type PoolStats interface {
	AcquiredConns() int32
	MaxConns() int32
	TotalConns() int32
	IdleConns() int32
}

// RegisterPgxPoolMetrics exposes pgx connection pool statistics as Prometheus gauges.
func RegisterPgxPoolMetrics(pool *pgxpool.Pool) {
	RegisterPoolMetrics(prometheus.DefaultRegisterer, func() PoolStats { return pool.Stat() })
}

// RegisterPoolMetrics registers pool gauges that sample stat on every scrape.
func RegisterPoolMetrics(reg prometheus.Registerer, stat func() PoolStats) {
	gauge := func(name, help string, value func(PoolStats) int32) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{Name: name, Help: help}, func() float64 {
			return float64(value(stat()))
		})
	}
	reg.MustRegister(
		gauge("pgxpool_acquired_conns", "Number of currently acquired connections in the pool", PoolStats.AcquiredConns),
		gauge("pgxpool_max_conns", "Maximum number of connections in the pool", PoolStats.MaxConns),
		gauge("pgxpool_total_conns", "Total number of connections in the pool", PoolStats.TotalConns),
		gauge("pgxpool_idle_conns", "Number of idle connections in the pool", PoolStats.IdleConns),
	)
}
