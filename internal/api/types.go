package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/adhealth/clinic-scheduling/internal/appointment"
	"github.com/adhealth/clinic-scheduling/internal/provider"
	"github.com/adhealth/clinic-scheduling/internal/schedule"
)

type BookAppointmentRequest struct {
	ProviderID   string `json:"provider_id"`
	Date         string `json:"date"` // YYYY-MM-DD
	Time         string `json:"time"` // HH:MM, a slot catalog offset
	PatientName  string `json:"patient_name"`
	PatientEmail string `json:"patient_email"`
	PatientPhone string `json:"patient_phone"`
	Symptoms     string `json:"symptoms"`
}

type UpdateStatusRequest struct {
	Status    string `json:"status"`
	ActorRole string `json:"actor_role"`
	// Unread optionally bundles a notification override with the status
	// change; omitted means the engine's default (flag the patient).
	Unread *bool `json:"unread,omitempty"`
}

type UpdateFlowRequest struct {
	FlowStatus string `json:"flow_status"`
}

type AppointmentResponse struct {
	ID           uuid.UUID `json:"id"`
	ProviderID   uuid.UUID `json:"provider_id"`
	ScheduledAt  time.Time `json:"scheduled_at"`
	Date         string    `json:"date"`
	Time         string    `json:"time"`
	PatientName  string    `json:"patient_name"`
	PatientEmail string    `json:"patient_email"`
	PatientPhone string    `json:"patient_phone,omitempty"`
	Symptoms     string    `json:"symptoms,omitempty"`
	Status       string    `json:"status"`
	FlowStatus   string    `json:"flow_status,omitempty"`
	Unread       bool      `json:"unread"`
	MeetingLink  string    `json:"meeting_link,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func toAppointmentResponse(a *appointment.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:           a.ID,
		ProviderID:   a.ProviderID,
		ScheduledAt:  a.ScheduledAt,
		Date:         schedule.DateOf(a.ScheduledAt).String(),
		Time:         schedule.TimeOfDayAt(a.ScheduledAt).String(),
		PatientName:  a.PatientName,
		PatientEmail: a.PatientEmail,
		PatientPhone: a.PatientPhone,
		Symptoms:     a.Symptoms,
		Status:       string(a.Status),
		FlowStatus:   string(a.FlowStatus),
		Unread:       a.Unread(),
		MeetingLink:  a.MeetingLink,
		CreatedAt:    a.CreatedAt,
	}
}

type SessionResponse struct {
	Name  string   `json:"name"`
	Slots []string `json:"slots"`
}

type AvailabilityResponse struct {
	ProviderID    uuid.UUID         `json:"provider_id"`
	Date          string            `json:"date"`
	IsWorkingDay  bool              `json:"is_working_day"`
	AvailableDays []string          `json:"available_days"`
	BookedSlots   []string          `json:"booked_slots"`
	OpenSlots     []string          `json:"open_slots"`
	Sessions      []SessionResponse `json:"sessions"`
}

type ProviderResponse struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Specialty    string    `json:"specialty"`
	Email        string    `json:"email,omitempty"`
	ImageURL     string    `json:"image_url,omitempty"`
	Experience   int       `json:"experience_years"`
	Description  string    `json:"description,omitempty"`
	Availability []string  `json:"availability"`
}

func toProviderResponse(p *provider.Provider) ProviderResponse {
	days := make([]string, len(p.Availability))
	for i, d := range p.Availability {
		days[i] = string(d)
	}
	return ProviderResponse{
		ID:           p.ID,
		Name:         p.Name,
		Specialty:    p.Specialty,
		Email:        p.Email,
		ImageURL:     p.ImageURL,
		Experience:   p.Experience,
		Description:  p.Description,
		Availability: days,
	}
}

type MeetingLinkResponse struct {
	Link string `json:"link"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func formatSlots(slots []schedule.TimeOfDay) []string {
	out := make([]string, len(slots))
	for i, s := range slots {
		out[i] = s.String()
	}
	return out
}
