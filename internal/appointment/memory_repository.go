package appointment

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/adhealth/clinic-scheduling/internal/schedule"
)

// MemoryRepository keeps the ledger in process memory. The uniqueness
// invariant is enforced under a single mutex with an occupancy index keyed
// by (provider, instant), the per-key-lock fallback for stores without a
// unique constraint. Used by tests and the simulator.
type MemoryRepository struct {
	mu       sync.Mutex
	clock    schedule.Clock
	byID     map[uuid.UUID]*Appointment
	occupied map[slotKey]uuid.UUID
	events   []EventLog
}

type slotKey struct {
	providerID uuid.UUID
	unix       int64
}

func NewMemoryRepository(clock schedule.Clock) *MemoryRepository {
	if clock == nil {
		clock = schedule.SystemClock()
	}
	return &MemoryRepository{
		clock:    clock,
		byID:     make(map[uuid.UUID]*Appointment),
		occupied: make(map[slotKey]uuid.UUID),
	}
}

func keyFor(providerID uuid.UUID, at time.Time) slotKey {
	return slotKey{providerID: providerID, unix: at.UTC().Unix()}
}

func (r *MemoryRepository) getLocked(id uuid.UUID) (*Appointment, error) {
	a, ok := r.byID[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	return a, nil
}

func clone(a *Appointment) *Appointment {
	cp := *a
	if a.RemindedAt != nil {
		t := *a.RemindedAt
		cp.RemindedAt = &t
	}
	return &cp
}

func (r *MemoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, err := r.getLocked(id)
	if err != nil {
		return nil, err
	}
	return clone(a), nil
}

func (r *MemoryRepository) GetActiveBySlot(ctx context.Context, providerID uuid.UUID, at time.Time) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.occupied[keyFor(providerID, at)]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	return clone(r.byID[id]), nil
}

func (r *MemoryRepository) ListBookedTimes(ctx context.Context, providerID uuid.UUID, from, to time.Time) ([]time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var times []time.Time
	for _, a := range r.byID {
		if a.ProviderID != providerID || a.Status == StatusCancelled {
			continue
		}
		if a.ScheduledAt.Before(from) || !a.ScheduledAt.Before(to) {
			continue
		}
		times = append(times, a.ScheduledAt)
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })
	return times, nil
}

func (r *MemoryRepository) CreatePending(ctx context.Context, providerID uuid.UUID, at time.Time, draft Draft) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := keyFor(providerID, at)
	if _, taken := r.occupied[key]; taken {
		return nil, ErrSlotTaken
	}

	now := r.clock.Now()
	a := &Appointment{
		ID:           uuid.New(),
		ProviderID:   providerID,
		ScheduledAt:  at.UTC(),
		PatientName:  draft.PatientName,
		PatientEmail: draft.PatientEmail,
		PatientPhone: draft.PatientPhone,
		Symptoms:     draft.Symptoms,
		Status:       StatusPending,
		Notification: NotificationAcknowledged,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.byID[a.ID] = a
	r.occupied[key] = a.ID
	return clone(a), nil
}

func (r *MemoryRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status, notif NotificationState) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, err := r.getLocked(id)
	if err != nil {
		return nil, err
	}
	if a.Status != from {
		// Mirrors the compare-and-set UPDATE matching no rows.
		return nil, ErrAppointmentNotFound
	}

	a.Status = to
	a.Notification = notif
	a.UpdatedAt = r.clock.Now()
	if to == StatusCancelled {
		delete(r.occupied, keyFor(a.ProviderID, a.ScheduledAt))
	}
	return clone(a), nil
}

func (r *MemoryRepository) UpdateFlow(ctx context.Context, id uuid.UUID, flow FlowStatus) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, err := r.getLocked(id)
	if err != nil {
		return nil, err
	}
	a.FlowStatus = flow
	a.UpdatedAt = r.clock.Now()
	return clone(a), nil
}

func (r *MemoryRepository) SetNotification(ctx context.Context, id uuid.UUID, state NotificationState) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, err := r.getLocked(id)
	if err != nil {
		return nil, err
	}
	a.Notification = state
	a.UpdatedAt = r.clock.Now()
	return clone(a), nil
}

func (r *MemoryRepository) SetMeetingLink(ctx context.Context, id uuid.UUID, link string) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, err := r.getLocked(id)
	if err != nil {
		return nil, err
	}
	if a.MeetingLink == "" {
		a.MeetingLink = link
		a.UpdatedAt = r.clock.Now()
	}
	return clone(a), nil
}

func (r *MemoryRepository) ListByPatientEmail(ctx context.Context, email string) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []Appointment
	for _, a := range r.byID {
		if a.PatientEmail == email {
			result = append(result, *clone(a))
		}
	}
	sortByScheduledAt(result)
	return result, nil
}

func (r *MemoryRepository) ListByProvider(ctx context.Context, providerID uuid.UUID) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []Appointment
	for _, a := range r.byID {
		if a.ProviderID == providerID {
			result = append(result, *clone(a))
		}
	}
	sortByScheduledAt(result)
	return result, nil
}

func (r *MemoryRepository) FindUnremindedConfirmed(ctx context.Context, from, to time.Time) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []Appointment
	for _, a := range r.byID {
		if a.Status != StatusConfirmed || a.RemindedAt != nil {
			continue
		}
		if a.ScheduledAt.Before(from) || !a.ScheduledAt.Before(to) {
			continue
		}
		result = append(result, *clone(a))
	}
	sortByScheduledAt(result)
	return result, nil
}

func (r *MemoryRepository) MarkReminded(ctx context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, err := r.getLocked(id)
	if err != nil {
		return fmt.Errorf("mark reminded: %w", err)
	}
	t := at
	a.RemindedAt = &t
	a.UpdatedAt = r.clock.Now()
	return nil
}

func (r *MemoryRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ev.ID = int64(len(r.events) + 1)
	r.events = append(r.events, ev)
	return nil
}

// Events returns a snapshot of the recorded event log. Test helper.
func (r *MemoryRepository) Events() []EventLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventLog, len(r.events))
	copy(out, r.events)
	return out
}

func sortByScheduledAt(appts []Appointment) {
	sort.Slice(appts, func(i, j int) bool {
		return appts[i].ScheduledAt.Before(appts[j].ScheduledAt)
	})
}
