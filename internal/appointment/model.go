package appointment

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// FlowStatus tracks the clinical visit once an appointment is confirmed.
// The empty value means the visit has not started.
type FlowStatus string

const (
	FlowNone       FlowStatus = ""
	FlowCheckedIn  FlowStatus = "checked-in"
	FlowVitals     FlowStatus = "vitals"
	FlowConsulting FlowStatus = "consulting"
	FlowComplete   FlowStatus = "complete"
)

// NotificationState is the patient-facing read flag. Rather than a bare
// boolean it is a two-state enum so the intent survives future notification
// kinds without changing the wire shape.
type NotificationState string

const (
	NotificationAcknowledged NotificationState = "acknowledged"
	NotificationUnread       NotificationState = "unread"
)

// ActorRole identifies who is driving a status change.
type ActorRole string

const (
	RolePatient  ActorRole = "patient"
	RoleProvider ActorRole = "provider"
	RoleAdmin    ActorRole = "admin"
)

type Appointment struct {
	ID           uuid.UUID
	ProviderID   uuid.UUID
	ScheduledAt  time.Time // absolute instant, stored UTC
	PatientName  string
	PatientEmail string
	PatientPhone string
	Symptoms     string
	Status       Status
	FlowStatus   FlowStatus
	Notification NotificationState
	MeetingLink  string
	RemindedAt   *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Unread reports the boolean wire shape of the notification state.
func (a *Appointment) Unread() bool {
	return a.Notification == NotificationUnread
}

// Draft carries the patient-supplied fields of a booking request. All of
// them are opaque to the engine.
type Draft struct {
	PatientName  string
	PatientEmail string
	PatientPhone string
	Symptoms     string
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}
