package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")

	// ErrSlotTaken is the ledger's conflict condition: a non-cancelled
	// appointment already occupies the (provider, instant) pair.
	ErrSlotTaken = errors.New("slot already booked")
)

// Repository is the booking ledger's persistence contract. CreatePending is
// the atomic check-and-insert: implementations must guarantee that for any
// (provider, instant) pair at most one non-cancelled appointment exists,
// and surface ErrSlotTaken when a second insert races in.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// Conflict checks
	GetActiveBySlot(ctx context.Context, providerID uuid.UUID, at time.Time) (*Appointment, error)
	ListBookedTimes(ctx context.Context, providerID uuid.UUID, from, to time.Time) ([]time.Time, error)

	// Creation and updates
	CreatePending(ctx context.Context, providerID uuid.UUID, at time.Time, draft Draft) (*Appointment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status, notif NotificationState) (*Appointment, error)
	UpdateFlow(ctx context.Context, id uuid.UUID, flow FlowStatus) (*Appointment, error)
	SetNotification(ctx context.Context, id uuid.UUID, state NotificationState) (*Appointment, error)

	// SetMeetingLink persists the link only when none is stored yet and
	// returns the winning record either way.
	SetMeetingLink(ctx context.Context, id uuid.UUID, link string) (*Appointment, error)

	// Listings
	ListByPatientEmail(ctx context.Context, email string) ([]Appointment, error)
	ListByProvider(ctx context.Context, providerID uuid.UUID) ([]Appointment, error)

	// Reminder worker
	FindUnremindedConfirmed(ctx context.Context, from, to time.Time) ([]Appointment, error)
	MarkReminded(ctx context.Context, id uuid.UUID, at time.Time) error

	// Event logging
	InsertEvent(ctx context.Context, ev EventLog) error
}
