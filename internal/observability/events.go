package observability

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-complaints-backend/internal/events"
)

// EventMetrics counts complaint lifecycle events and tracks the rating
// distribution.
type EventMetrics struct {
	total   *prometheus.CounterVec
	ratings prometheus.Histogram
}

// NewEventMetrics registers the collectors on reg.
func NewEventMetrics(reg prometheus.Registerer) (*EventMetrics, error) {
	m := &EventMetrics{
		total: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "complaint_events_total",
			Help: "Complaint lifecycle events by type.",
		}, []string{"type"}),
		ratings: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "complaint_rating",
			Help:    "Ratings given to resolved complaints.",
			Buckets: prometheus.LinearBuckets(1, 1, 5),
		}),
	}
	for _, c := range []prometheus.Collector{m.total, m.ratings} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	// Expose zero series for every type from the start.
	for _, t := range events.Types {
		m.total.WithLabelValues(string(t))
	}
	return m, nil
}

// Subscribe attaches the metrics to every event type on d.
func (m *EventMetrics) Subscribe(d events.Dispatcher) {
	events.SubscribeAll(d, m.handle)
}

func (m *EventMetrics) handle(_ context.Context, e events.Event) error {
	m.total.WithLabelValues(string(e.Type)).Inc()
	if p, ok := e.Payload.(events.ComplaintRatedPayload); ok {
		m.ratings.Observe(float64(p.Rating))
	}
	return nil
}

// LogEvents writes one debug line per event through the request-scoped
// logger, so audit lines carry the request_id of the call that caused them.
func LogEvents(d events.Dispatcher) {
	events.SubscribeAll(d, func(ctx context.Context, e events.Event) error {
		log.Ctx(ctx).Debug().
			Str("event", string(e.Type)).
			Str("event_id", e.ID).
			Str("complaint_id", e.ComplaintID).
			Str("actor_id", e.Actor.UserID).
			Str("actor_role", string(e.Actor.Role)).
			Interface("payload", e.Payload).
			Msg("domain event")
		return nil
	})
}

// LogHandlerError is an events.ErrorHook that logs failing subscribers.
func LogHandlerError(ctx context.Context, e events.Event, err error) {
	log.Ctx(ctx).Warn().Err(err).
		Str("event", string(e.Type)).
		Str("complaint_id", e.ComplaintID).
		Msg("event handler failed")
}
