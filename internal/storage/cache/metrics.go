package cache

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts cache activity per resource.
type Metrics struct {
	Lookups       *prometheus.CounterVec
	LoadErrors    *prometheus.CounterVec
	Invalidations *prometheus.CounterVec
	StoreErrors   *prometheus.CounterVec
}

// NewMetrics creates the cache collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "inventory",
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Cache lookups by resource and result (hit or miss).",
		}, []string{"resource", "result"}),
		LoadErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "inventory",
			Subsystem: "cache",
			Name:      "load_errors_total",
			Help:      "Loader calls that returned an error.",
		}, []string{"resource"}),
		Invalidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "inventory",
			Subsystem: "cache",
			Name:      "invalidations_total",
			Help:      "Prefix and single-key invalidations.",
		}, []string{"resource"}),
		StoreErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "inventory",
			Subsystem: "cache",
			Name:      "store_errors_total",
			Help:      "Failed cache store operations by operation.",
		}, []string{"resource", "op"}),
	}

	reg.MustRegister(m.Lookups, m.LoadErrors, m.Invalidations, m.StoreErrors)

	return m
}
