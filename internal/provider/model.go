package provider

import (
	"time"

	"github.com/google/uuid"

	"github.com/adhealth/clinic-scheduling/internal/schedule"
)

// Provider is a schedulable clinician. The record is owned by the directory
// service; the booking engine only reads it.
type Provider struct {
	ID           uuid.UUID
	Name         string
	Specialty    string
	Email        string
	ImageURL     string
	Experience   int
	Description  string
	Availability []schedule.Weekday
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// WorksOn reports whether the provider's recurring weekly availability
// covers the given date.
func (p *Provider) WorksOn(date schedule.Date) bool {
	day := date.Weekday()
	for _, d := range p.Availability {
		if d == day {
			return true
		}
	}
	return false
}
