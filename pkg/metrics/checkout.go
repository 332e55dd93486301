package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics records order routing and capture outcomes.
type CheckoutMetrics struct {
	ordersCreated  *prometheus.CounterVec
	captureOutcome *prometheus.CounterVec
	modeFallback   *prometheus.CounterVec
	webhookEvents  *prometheus.CounterVec
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	ordersCreated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Orders created, labeled by payment mode.",
	}, []string{"mode"})
	captureOutcome := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "capture_outcome_total",
		Help: "Capture attempts by terminal outcome.",
	}, []string{"outcome"})
	modeFallback := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_mode_fallback_total",
		Help: "Carts re-routed to the standard path, labeled by cause.",
	}, []string{"cause"})
	webhookEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_total",
		Help: "Processor webhook deliveries by disposition.",
	}, []string{"disposition"})
	reg.MustRegister(ordersCreated, captureOutcome, modeFallback, webhookEvents)
	return &CheckoutMetrics{
		ordersCreated:  ordersCreated,
		captureOutcome: captureOutcome,
		modeFallback:   modeFallback,
		webhookEvents:  webhookEvents,
	}
}

// IncOrderCreated counts a created order for the given payment mode.
func (c *CheckoutMetrics) IncOrderCreated(mode string) {
	if c == nil || c.ordersCreated == nil {
		return
	}
	c.ordersCreated.WithLabelValues(normalizeLabel(mode)).Inc()
}

// IncCaptureOutcome counts a capture attempt outcome (captured/declined/indeterminate).
func (c *CheckoutMetrics) IncCaptureOutcome(outcome string) {
	if c == nil || c.captureOutcome == nil {
		return
	}
	c.captureOutcome.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncModeFallback counts a conservative re-route to the standard path.
func (c *CheckoutMetrics) IncModeFallback(cause string) {
	if c == nil || c.modeFallback == nil {
		return
	}
	c.modeFallback.WithLabelValues(normalizeLabel(cause)).Inc()
}

// IncWebhookEvent counts an inbound webhook by disposition
// (processed/ignored/unresolved/rejected).
func (c *CheckoutMetrics) IncWebhookEvent(disposition string) {
	if c == nil || c.webhookEvents == nil {
		return
	}
	c.webhookEvents.WithLabelValues(normalizeLabel(disposition)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
