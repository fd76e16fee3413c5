package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all prometheus metrics
type Metrics struct {
	EventsProcessed   *prometheus.CounterVec
	RequestsSubmitted prometheus.Counter
	OffersSent        prometheus.Counter
	MatchesLocked     prometheus.Counter
	HandlerDuration   prometheus.Histogram
	ErrorsCount       *prometheus.CounterVec
}

// NewMetrics creates new prometheus metrics
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		EventsProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_processed_total",
			Help:      "The total number of inbound chat events processed",
		}, []string{"kind"}),
		RequestsSubmitted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_submitted_total",
			Help:      "The total number of completed submissions persisted",
		}),
		OffersSent: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidate_offers_sent_total",
			Help:      "The total number of candidate offers sent",
		}),
		MatchesLocked: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matches_locked_total",
			Help:      "The total number of mutually confirmed matches",
		}),
		HandlerDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "event_handling_seconds",
			Help:      "Time taken to handle one inbound event",
			Buckets:   prometheus.DefBuckets,
		}),
		ErrorsCount: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "The total number of errors",
		}, []string{"operation"}),
	}
}
