// Package metrics exposes Prometheus collectors for the HTTP surface and
// the automation backend.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequests counts handled API requests by route and status class.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "listaszap_http_requests_total",
		Help: "Handled HTTP requests.",
	}, []string{"route", "status"})

	// WebhookCalls counts outgoing calls to the automation backend.
	WebhookCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "listaszap_webhook_calls_total",
		Help: "Outgoing webhook calls by path.",
	}, []string{"path"})

	// WebhookFailures counts webhook calls that ended in a transport or
	// business failure.
	WebhookFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "listaszap_webhook_failures_total",
		Help: "Failed webhook calls by path.",
	}, []string{"path"})

	// ChargesSent counts charge fanouts by delivery channel.
	ChargesSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "listaszap_charges_sent_total",
		Help: "Charge notifications produced, by channel.",
	}, []string{"channel"})
)

// Handler returns the /metrics scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
