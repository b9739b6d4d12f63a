package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the custody task module.
type Metrics struct {
	TaskCreated          prometheus.Counter
	TaskFlagged          prometheus.Counter
	EventSubmitted       prometheus.Counter
	EventRejected        *prometheus.CounterVec
	SubmitDuration       prometheus.Histogram
	RedFlagsRaised       prometheus.Counter
}

// New creates a Metrics instance with all custody metrics registered.
func New() *Metrics {
	return &Metrics{
		TaskCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custodia_tasks_created_total",
			Help: "Total number of custody tasks created",
		}),
		TaskFlagged: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custodia_tasks_flagged_suspicious_total",
			Help: "Total number of tasks forced to SUSPICIOUS",
		}),
		EventSubmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custodia_events_submitted_total",
			Help: "Total number of checkpoint events accepted",
		}),
		EventRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "custodia_events_rejected_total",
			Help: "Total number of checkpoint events rejected, by reason",
		}, []string{"reason"}),
		SubmitDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "custodia_event_submit_duration_seconds",
			Help:    "Duration of checkpoint event submissions (hot path)",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		RedFlagsRaised: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custodia_red_flags_total",
			Help: "Total number of travel-time red flags raised",
		}),
	}
}

// IncrementTaskCreated records a successful task creation.
func (m *Metrics) IncrementTaskCreated() { m.TaskCreated.Inc() }

// IncrementTaskFlagged records a task forced to SUSPICIOUS.
func (m *Metrics) IncrementTaskFlagged() { m.TaskFlagged.Inc() }

// IncrementEventSubmitted records an accepted checkpoint event.
func (m *Metrics) IncrementEventSubmitted() { m.EventSubmitted.Inc() }

// IncrementEventRejected records a rejected submission by reason.
func (m *Metrics) IncrementEventRejected(reason string) {
	m.EventRejected.WithLabelValues(reason).Inc()
}

// ObserveSubmit records the duration of a Submit call.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveSubmit(start time.Time) {
	m.SubmitDuration.Observe(time.Since(start).Seconds())
}

// IncrementRedFlags records a travel-time red flag.
func (m *Metrics) IncrementRedFlags() { m.RedFlagsRaised.Inc() }
