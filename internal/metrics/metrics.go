package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studiopass_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "studiopass_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	ScansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studiopass_scans_total",
			Help: "Total number of QR scans",
		},
		[]string{"result"},
	)

	CheckInsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studiopass_checkins_total",
			Help: "Total number of check-in attempts",
		},
		[]string{"result", "access_type"},
	)

	CheckInReversalsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "studiopass_checkin_reversals_total",
			Help: "Total number of deleted check-ins",
		},
	)

	SubscriptionsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studiopass_subscriptions_created_total",
			Help: "Total number of subscriptions sold",
		},
		[]string{"access_type"},
	)

	ClassEventsGeneratedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "studiopass_class_events_generated_total",
			Help: "Total number of auto-generated class events",
		},
	)

	PaymentsRecordedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "studiopass_payments_recorded_total",
			Help: "Total number of payment rows appended",
		},
	)

	MembersDeactivatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "studiopass_members_deactivated_total",
			Help: "Total number of members deactivated by the sweep",
		},
	)

	EmailsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studiopass_emails_sent_total",
			Help: "Total number of emails sent",
		},
		[]string{"type", "status"},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordScan(result string) {
	ScansTotal.WithLabelValues(result).Inc()
}

func RecordCheckIn(result, accessType string) {
	CheckInsTotal.WithLabelValues(result, accessType).Inc()
}

func RecordCheckInReversal() {
	CheckInReversalsTotal.Inc()
}

func RecordSubscription(accessType string) {
	SubscriptionsCreatedTotal.WithLabelValues(accessType).Inc()
}

func RecordGeneratedEvents(n int) {
	ClassEventsGeneratedTotal.Add(float64(n))
}

func RecordPayment() {
	PaymentsRecordedTotal.Inc()
}

func RecordEmail(emailType, status string) {
	EmailsSentTotal.WithLabelValues(emailType, status).Inc()
}
