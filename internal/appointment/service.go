package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/adhealth/clinic-scheduling/internal/notify"
	"github.com/adhealth/clinic-scheduling/internal/observability"
	"github.com/adhealth/clinic-scheduling/internal/provider"
	redisclient "github.com/adhealth/clinic-scheduling/internal/redis"
	"github.com/adhealth/clinic-scheduling/internal/schedule"
	"github.com/adhealth/clinic-scheduling/internal/telemed"
)

const (
	EventAppointmentCreated = "APPOINTMENT_CREATED"
	EventStatusChanged      = "APPOINTMENT_STATUS_CHANGED"
	EventFlowChanged        = "APPOINTMENT_FLOW_CHANGED"
	EventMeetingLinkIssued  = "MEETING_LINK_ISSUED"
	EventReminderSent       = "REMINDER_SENT"
)

var (
	// ErrUnavailableDay rejects dates outside the provider's weekly
	// availability. The wrapped message carries the provider's valid days
	// so callers can surface them verbatim.
	ErrUnavailableDay = errors.New("provider is not available on the requested day")

	// ErrInvalidOffset rejects times outside the slot catalog, including
	// same-day offsets already in the past.
	ErrInvalidOffset = errors.New("requested time is not a bookable slot")

	ErrInvalidTransition = errors.New("invalid status transition")
	ErrActorNotAllowed   = errors.New("actor role may not change appointment status")
	ErrFlowNotAllowed    = errors.New("flow status requires a confirmed appointment")
	ErrInvalidFlowValue  = errors.New("invalid flow status")
	ErrNotConfirmed      = errors.New("appointment is not confirmed")
)

// Availability is the answer to a patient-facing "what can I book" query.
type Availability struct {
	Provider   *provider.Provider
	Date       schedule.Date
	WorkingDay bool
	Booked     []schedule.TimeOfDay
	Open       []schedule.TimeOfDay
}

// Service is the availability and booking engine. It owns the domain rules;
// persistence, provider lookup and side-effect channels are injected.
type Service struct {
	repo      Repository
	directory provider.Directory
	locker    redisclient.Locker
	calendar  schedule.Calendar
	clock     schedule.Clock
	notifier  notify.Sender
	issuer    *telemed.Issuer
	metrics   *observability.Metrics
	logger    *zap.Logger
}

// Options carries the service's collaborators. Zero fields fall back to
// safe defaults so tests only set what they exercise.
type Options struct {
	Locker   redisclient.Locker
	Calendar schedule.Calendar
	Clock    schedule.Clock
	Notifier notify.Sender
	Issuer   *telemed.Issuer
	Metrics  *observability.Metrics
	Logger   *zap.Logger
}

func NewService(repo Repository, directory provider.Directory, opts Options) *Service {
	if opts.Locker == nil {
		opts.Locker = redisclient.NoopLocker{}
	}
	if opts.Calendar == (schedule.Calendar{}) {
		opts.Calendar = schedule.DefaultCalendar()
	}
	if opts.Clock == nil {
		opts.Clock = schedule.SystemClock()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.NewLogSender(opts.Logger)
	}
	if opts.Issuer == nil {
		opts.Issuer = telemed.NewIssuer("")
	}
	if opts.Metrics == nil {
		opts.Metrics = observability.NewUnregistered()
	}
	return &Service{
		repo:      repo,
		directory: directory,
		locker:    opts.Locker,
		calendar:  opts.Calendar,
		clock:     opts.Clock,
		notifier:  opts.Notifier,
		issuer:    opts.Issuer,
		metrics:   opts.Metrics,
		logger:    opts.Logger,
	}
}

// Calendar exposes the slot catalog the service validates against.
func (s *Service) Calendar() schedule.Calendar { return s.calendar }

// CheckAvailability reports whether the provider works the given date and
// which catalog offsets are still free. The open list already applies the
// same-day cutoff; it is a presentation filter, and a raced booking is
// still resolved by Book's conflict path.
func (s *Service) CheckAvailability(ctx context.Context, providerID uuid.UUID, date schedule.Date) (*Availability, error) {
	p, err := s.directory.GetProvider(ctx, providerID)
	if err != nil {
		if errors.Is(err, provider.ErrProviderNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load provider: %w", err)
	}

	avail := &Availability{Provider: p, Date: date}
	if !p.WorksOn(date) {
		return avail, nil
	}
	avail.WorkingDay = true

	booked, err := s.repo.ListBookedTimes(ctx, providerID, date.StartOfDay(), date.Next().StartOfDay())
	if err != nil {
		return nil, fmt.Errorf("list booked slots: %w", err)
	}
	taken := make(map[schedule.TimeOfDay]bool, len(booked))
	for _, t := range booked {
		tod := schedule.TimeOfDayAt(t)
		taken[tod] = true
		avail.Booked = append(avail.Booked, tod)
	}

	for _, t := range s.calendar.BookableOn(date, s.clock.Now()) {
		if !taken[t] {
			avail.Open = append(avail.Open, t)
		}
	}
	return avail, nil
}

// Book reserves the (provider, instant) pair and creates a pending
// appointment. Exactly one of two racing calls for the same pair succeeds;
// the loser sees ErrSlotTaken and should re-query availability.
func (s *Service) Book(ctx context.Context, providerID uuid.UUID, at time.Time, draft Draft) (*Appointment, error) {
	at = at.UTC()

	p, err := s.directory.GetProvider(ctx, providerID)
	if err != nil {
		if errors.Is(err, provider.ErrProviderNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load provider: %w", err)
	}

	date := schedule.DateOf(at)
	if !p.WorksOn(date) {
		s.metrics.BookingsRejected.WithLabelValues("unavailable_day").Inc()
		return nil, fmt.Errorf("%w: %s is available on %s", ErrUnavailableDay, p.Name, schedule.FormatWeekdays(p.Availability))
	}

	offset := schedule.TimeOfDayAt(at)
	if !at.Equal(date.At(offset)) || !s.calendar.Contains(offset) {
		s.metrics.BookingsRejected.WithLabelValues("invalid_offset").Inc()
		return nil, fmt.Errorf("%w: %s", ErrInvalidOffset, at.Format(time.RFC3339))
	}
	if !at.After(s.clock.Now()) {
		s.metrics.BookingsRejected.WithLabelValues("past_offset").Inc()
		return nil, fmt.Errorf("%w: %s is in the past", ErrInvalidOffset, offset)
	}

	var created *Appointment
	err = s.locker.WithSlotLock(ctx, providerID, at, func(lockCtx context.Context) error {
		existing, err := s.repo.GetActiveBySlot(lockCtx, providerID, at)
		if err != nil && !errors.Is(err, ErrAppointmentNotFound) {
			return fmt.Errorf("check slot occupancy: %w", err)
		}
		if existing != nil {
			return ErrSlotTaken
		}

		appt, err := s.repo.CreatePending(lockCtx, providerID, at, draft)
		if err != nil {
			return err
		}
		created = appt
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrSlotTaken) || errors.Is(err, redisclient.ErrLockNotAcquired) {
			s.metrics.BookingConflicts.Inc()
			return nil, ErrSlotTaken
		}
		return nil, err
	}

	s.metrics.BookingsCreated.Inc()
	s.logEvent(ctx, created.ID, EventAppointmentCreated, map[string]any{
		"provider_id":  providerID.String(),
		"scheduled_at": at,
	})
	s.logger.Info("appointment booked",
		zap.String("appointment_id", created.ID.String()),
		zap.String("provider_id", providerID.String()),
		zap.Time("scheduled_at", at),
	)
	return created, nil
}

// SetStatus drives the status machine. Patients may not change status; the
// notification flag flips to unread on every non-patient transition unless
// the caller bundles an explicit override.
func (s *Service) SetStatus(ctx context.Context, id uuid.UUID, to Status, actor ActorRole, unreadOverride *bool) (*Appointment, error) {
	if !ValidStatus(to) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, to)
	}
	if actor == RolePatient {
		return nil, ErrActorNotAllowed
	}

	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(appt.Status, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, appt.Status, to)
	}

	notif := NotificationUnread
	if unreadOverride != nil && !*unreadOverride {
		notif = NotificationAcknowledged
	}

	updated, err := s.repo.UpdateStatus(ctx, id, appt.Status, to, notif)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			// Lost a compare-and-set race: the status moved underneath us.
			return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, appt.Status, to)
		}
		return nil, fmt.Errorf("update status: %w", err)
	}

	s.metrics.StatusTransitions.WithLabelValues(string(to)).Inc()
	s.logEvent(ctx, updated.ID, EventStatusChanged, map[string]any{
		"from":  string(appt.Status),
		"to":    string(to),
		"actor": string(actor),
	})

	if to == StatusConfirmed {
		s.sendConfirmation(ctx, updated)
	}
	return updated, nil
}

// SetFlow moves the clinical visit between its steps. The reference
// workflow allows free movement between steps while the appointment is
// confirmed, so no ordering is enforced.
func (s *Service) SetFlow(ctx context.Context, id uuid.UUID, flow FlowStatus) (*Appointment, error) {
	if !ValidFlow(flow) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFlowValue, flow)
	}

	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.Status != StatusConfirmed {
		return nil, fmt.Errorf("%w: status is %s", ErrFlowNotAllowed, appt.Status)
	}

	updated, err := s.repo.UpdateFlow(ctx, id, flow)
	if err != nil {
		return nil, fmt.Errorf("update flow: %w", err)
	}

	s.logEvent(ctx, updated.ID, EventFlowChanged, map[string]any{
		"from": string(appt.FlowStatus),
		"to":   string(flow),
	})
	return updated, nil
}

// Acknowledge clears the patient's unread flag. It never touches status or
// flow, and calling it repeatedly is harmless.
func (s *Service) Acknowledge(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	updated, err := s.repo.SetNotification(ctx, id, NotificationAcknowledged)
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// EnsureMeetingLink lazily mints the appointment's remote-session link and
// returns the stored one on every later call.
func (s *Service) EnsureMeetingLink(ctx context.Context, id uuid.UUID) (string, error) {
	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if appt.MeetingLink != "" {
		return appt.MeetingLink, nil
	}
	if appt.Status != StatusConfirmed {
		return "", fmt.Errorf("%w: status is %s", ErrNotConfirmed, appt.Status)
	}

	updated, err := s.repo.SetMeetingLink(ctx, id, s.issuer.NewLink())
	if err != nil {
		return "", fmt.Errorf("store meeting link: %w", err)
	}

	s.metrics.MeetingLinksIssued.Inc()
	s.logEvent(ctx, updated.ID, EventMeetingLinkIssued, map[string]any{
		"link": updated.MeetingLink,
	})
	return updated.MeetingLink, nil
}

// GetAppointment loads a single appointment.
func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.repo.GetByID(ctx, id)
}

// ListByPatient returns the patient's appointments ordered by schedule.
func (s *Service) ListByPatient(ctx context.Context, email string) ([]Appointment, error) {
	return s.repo.ListByPatientEmail(ctx, email)
}

// ListByProvider returns a provider's appointments ordered by schedule.
func (s *Service) ListByProvider(ctx context.Context, providerID uuid.UUID) ([]Appointment, error) {
	return s.repo.ListByProvider(ctx, providerID)
}

// SendUpcomingReminders emails patients whose confirmed visit falls within
// the window and has not been reminded yet. Called periodically by the
// reminder worker; returns how many reminders went out.
func (s *Service) SendUpcomingReminders(ctx context.Context, window time.Duration) (int, error) {
	now := s.clock.Now()
	due, err := s.repo.FindUnremindedConfirmed(ctx, now, now.Add(window))
	if err != nil {
		return 0, fmt.Errorf("find reminder candidates: %w", err)
	}

	sent := 0
	for _, appt := range due {
		name := s.providerName(ctx, appt.ProviderID)
		subject := "Appointment reminder"
		body := fmt.Sprintf("Reminder: your appointment with %s is on %s at %s.",
			name,
			schedule.DateOf(appt.ScheduledAt),
			schedule.TimeOfDayAt(appt.ScheduledAt),
		)
		if err := s.notifier.Send(ctx, appt.PatientEmail, subject, body); err != nil {
			s.metrics.NotificationErrors.Inc()
			s.logger.Warn("reminder delivery failed",
				zap.String("appointment_id", appt.ID.String()),
				zap.Error(err),
			)
			continue
		}
		s.metrics.NotificationsSent.Inc()
		if err := s.repo.MarkReminded(ctx, appt.ID, now); err != nil {
			s.logger.Warn("failed to mark appointment reminded",
				zap.String("appointment_id", appt.ID.String()),
				zap.Error(err),
			)
			continue
		}
		s.logEvent(ctx, appt.ID, EventReminderSent, map[string]any{})
		sent++
	}
	return sent, nil
}

// sendConfirmation emits the booking confirmation through the notification
// channel. Best-effort: a delivery failure is logged and never rolls back
// the status transition.
func (s *Service) sendConfirmation(ctx context.Context, appt *Appointment) {
	name := s.providerName(ctx, appt.ProviderID)
	subject := "Appointment confirmed"
	body := fmt.Sprintf("Your appointment with %s on %s at %s is confirmed.",
		name,
		schedule.DateOf(appt.ScheduledAt),
		schedule.TimeOfDayAt(appt.ScheduledAt),
	)
	if err := s.notifier.Send(ctx, appt.PatientEmail, subject, body); err != nil {
		s.metrics.NotificationErrors.Inc()
		s.logger.Warn("confirmation delivery failed",
			zap.String("appointment_id", appt.ID.String()),
			zap.Error(err),
		)
		return
	}
	s.metrics.NotificationsSent.Inc()
}

func (s *Service) providerName(ctx context.Context, providerID uuid.UUID) string {
	p, err := s.directory.GetProvider(ctx, providerID)
	if err != nil {
		return "your provider"
	}
	return p.Name
}

func (s *Service) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Warn("failed to marshal event payload", zap.String("event_type", eventType), zap.Error(err))
		data = nil
	}

	apptID := appointmentID
	ev := EventLog{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     s.clock.Now(),
	}
	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		s.logger.Warn("failed to insert event log",
			zap.String("event_type", eventType),
			zap.String("appointment_id", appointmentID.String()),
			zap.Error(err),
		)
	}
}
