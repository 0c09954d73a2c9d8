// Package observability holds the engine's prometheus instrumentation.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles the counters the booking engine increments. A single
// value is created at startup and shared by the services.
type Metrics struct {
	BookingsCreated    prometheus.Counter
	BookingConflicts   prometheus.Counter
	BookingsRejected   *prometheus.CounterVec
	StatusTransitions  *prometheus.CounterVec
	NotificationsSent  prometheus.Counter
	NotificationErrors prometheus.Counter
	MeetingLinksIssued prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		BookingsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "clinic_bookings_created_total",
			Help: "Appointments successfully reserved.",
		}),
		BookingConflicts: factory.NewCounter(prometheus.CounterOpts{
			Name: "clinic_booking_conflicts_total",
			Help: "Reservations that lost the race for a slot.",
		}),
		BookingsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "clinic_bookings_rejected_total",
			Help: "Reservations rejected before reaching the ledger.",
		}, []string{"reason"}),
		StatusTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "clinic_status_transitions_total",
			Help: "Appointment status transitions applied.",
		}, []string{"to"}),
		NotificationsSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "clinic_notifications_sent_total",
			Help: "Outbound notifications handed to the channel.",
		}),
		NotificationErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "clinic_notification_errors_total",
			Help: "Outbound notifications the channel failed to deliver.",
		}),
		MeetingLinksIssued: factory.NewCounter(prometheus.CounterOpts{
			Name: "clinic_meeting_links_issued_total",
			Help: "Telemedicine links minted for confirmed appointments.",
		}),
	}
}

// NewUnregistered returns metrics bound to a private registry, for tests
// and tooling that do not expose /metrics.
func NewUnregistered() *Metrics {
	return New(prometheus.NewRegistry())
}
