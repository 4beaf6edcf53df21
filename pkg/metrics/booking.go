package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics tracks booking lifecycle activity.
type BookingMetrics struct {
	transitions        *prometheus.CounterVec
	inventoryExhausted prometheus.Counter
	webhookEvents      *prometheus.CounterVec
}

// NewBookingMetrics registers booking metrics on the provided registerer.
func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	if reg == nil {
		return &BookingMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "booking_transitions_total",
		Help: "Booking status transitions by target status.",
	}, []string{"to_status"})
	exhausted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "booking_inventory_exhausted_total",
		Help: "Confirmation attempts rejected because no rooms were available.",
	})
	webhooks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_webhook_events_total",
		Help: "Payment webhook deliveries by event type and outcome.",
	}, []string{"event_type", "result"})
	reg.MustRegister(transitions, exhausted, webhooks)
	return &BookingMetrics{
		transitions:        transitions,
		inventoryExhausted: exhausted,
		webhookEvents:      webhooks,
	}
}

// IncTransition increments the transition counter for the target status.
func (b *BookingMetrics) IncTransition(toStatus string) {
	if b == nil || b.transitions == nil {
		return
	}
	b.transitions.WithLabelValues(normalizeLabel(toStatus)).Inc()
}

// IncInventoryExhausted records a confirmation rejected for lack of rooms.
func (b *BookingMetrics) IncInventoryExhausted() {
	if b == nil || b.inventoryExhausted == nil {
		return
	}
	b.inventoryExhausted.Inc()
}

// IncWebhookEvent records a processed webhook delivery.
func (b *BookingMetrics) IncWebhookEvent(eventType, result string) {
	if b == nil || b.webhookEvents == nil {
		return
	}
	b.webhookEvents.WithLabelValues(normalizeLabel(eventType), normalizeLabel(result)).Inc()
}
