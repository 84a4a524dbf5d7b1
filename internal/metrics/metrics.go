package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the service's Prometheus collectors. A Registerer is passed
// in so tests can use an isolated registry.
type Metrics struct {
	RequestCounter   *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	JoinsTotal       prometheus.Counter
	SubmissionsTotal prometheus.Counter
	AwardsTotal      prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "contest_service",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "contest_service",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		JoinsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "contest_service",
			Name:      "joins_total",
			Help:      "Total successful contest joins",
		}),
		SubmissionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "contest_service",
			Name:      "submissions_total",
			Help:      "Total successful answer submissions",
		}),
		AwardsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "contest_service",
			Name:      "awards_total",
			Help:      "Total prizes awarded",
		}),
	}
	reg.MustRegister(
		m.RequestCounter,
		m.RequestDuration,
		m.JoinsTotal,
		m.SubmissionsTotal,
		m.AwardsTotal,
	)
	return m
}
