package metrics

import (
	"database/sql"

	"github.com/prometheus/client_golang/prometheus"
)

// StatsSource reports database/sql pool statistics.
type StatsSource interface {
	Stats() sql.DBStats
}

// RegisterPoolMetrics exposes connection pool statistics as Prometheus gauges.
func RegisterPoolMetrics(reg prometheus.Registerer, pool StatsSource) error {
	gauge := func(name, help string, v func(sql.DBStats) float64) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "mail_api",
			Subsystem: "db_pool",
			Name:      name,
			Help:      help,
		}, func() float64 {
			return v(pool.Stats())
		})
	}

	collectors := []prometheus.Collector{
		gauge("in_use_conns", "Number of connections currently checked out of the pool", func(s sql.DBStats) float64 {
			return float64(s.InUse)
		}),
		gauge("idle_conns", "Number of idle connections in the pool", func(s sql.DBStats) float64 {
			return float64(s.Idle)
		}),
		gauge("open_conns", "Number of open connections, in use and idle", func(s sql.DBStats) float64 {
			return float64(s.OpenConnections)
		}),
		gauge("max_conns", "Maximum number of open connections", func(s sql.DBStats) float64 {
			return float64(s.MaxOpenConnections)
		}),
		gauge("wait_count", "Total number of acquires that had to wait for a connection", func(s sql.DBStats) float64 {
			return float64(s.WaitCount)
		}),
		gauge("wait_seconds", "Total time spent waiting for a connection", func(s sql.DBStats) float64 {
			return s.WaitDuration.Seconds()
		}),
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
