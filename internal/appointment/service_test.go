package appointment

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adhealth/clinic-scheduling/internal/provider"
	"github.com/adhealth/clinic-scheduling/internal/schedule"
)

type sentMail struct {
	to      string
	subject string
	body    string
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentMail
	fail bool
}

func (f *fakeSender) Send(ctx context.Context, toAddress, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("smtp unavailable")
	}
	f.sent = append(f.sent, sentMail{to: toAddress, subject: subject, body: body})
	return nil
}

func (f *fakeSender) mails() []sentMail {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sentMail, len(f.sent))
	copy(out, f.sent)
	return out
}

type testEnv struct {
	svc    *Service
	repo   *MemoryRepository
	dir    *provider.MemoryDirectory
	sender *fakeSender
	prov   provider.Provider
}

// newTestEnvAt wires the service against the in-memory repository with the
// wall clock pinned to the given instant.
func newTestEnvAt(instant time.Time) *testEnv {
	clock := schedule.FixedClock{Instant: instant}
	prov := provider.Provider{
		ID:           uuid.New(),
		Name:         "Dr. Sarah Johnson",
		Specialty:    "Cardiology",
		Email:        "sarah.johnson@example.com",
		Availability: []schedule.Weekday{schedule.Monday, schedule.Wednesday, schedule.Friday},
	}
	dir := provider.NewMemoryDirectory(prov)
	repo := NewMemoryRepository(clock)
	sender := &fakeSender{}
	svc := NewService(repo, dir, Options{
		Clock:    clock,
		Notifier: sender,
	})
	return &testEnv{svc: svc, repo: repo, dir: dir, sender: sender, prov: prov}
}

// newTestEnv pins the clock to Saturday 2024-06-01 12:00 UTC, so the
// following Monday (2024-06-03) is a clean future working day.
func newTestEnv() *testEnv {
	return newTestEnvAt(time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC))
}

func (e *testEnv) slot(t *testing.T, date, offset string) time.Time {
	t.Helper()
	d, err := schedule.ParseDate(date)
	require.NoError(t, err)
	tod, err := schedule.ParseTimeOfDay(offset)
	require.NoError(t, err)
	return d.At(tod)
}

func (e *testEnv) book(t *testing.T, date, offset string) *Appointment {
	t.Helper()
	appt, err := e.svc.Book(context.Background(), e.prov.ID, e.slot(t, date, offset), Draft{
		PatientName:  "Alice Smith",
		PatientEmail: "alice@example.com",
		Symptoms:     "persistent cough",
	})
	require.NoError(t, err)
	return appt
}

func TestBookCreatesPendingAppointment(t *testing.T) {
	env := newTestEnv()

	appt := env.book(t, "2024-06-03", "10:00")

	assert.Equal(t, StatusPending, appt.Status)
	assert.Equal(t, FlowNone, appt.FlowStatus)
	assert.Equal(t, NotificationAcknowledged, appt.Notification)
	assert.False(t, appt.Unread())
	assert.Empty(t, appt.MeetingLink)
	assert.Equal(t, env.prov.ID, appt.ProviderID)
	assert.Equal(t, env.slot(t, "2024-06-03", "10:00"), appt.ScheduledAt)
	assert.Equal(t, "alice@example.com", appt.PatientEmail)
}

func TestBookRejectsUnknownProvider(t *testing.T) {
	env := newTestEnv()

	_, err := env.svc.Book(context.Background(), uuid.New(), env.slot(t, "2024-06-03", "10:00"), Draft{})
	assert.ErrorIs(t, err, provider.ErrProviderNotFound)
}

func TestBookRejectsUnavailableDayWithListing(t *testing.T) {
	env := newTestEnv()

	// 2024-06-04 is a Tuesday, outside Mon/Wed/Fri.
	_, err := env.svc.Book(context.Background(), env.prov.ID, env.slot(t, "2024-06-04", "10:00"), Draft{})
	require.ErrorIs(t, err, ErrUnavailableDay)
	assert.Contains(t, err.Error(), "Dr. Sarah Johnson")
	assert.Contains(t, err.Error(), "Mon, Wed, Fri")
}

func TestBookRejectsOffCatalogOffsets(t *testing.T) {
	env := newTestEnv()

	for _, offset := range []string{"10:15", "08:30", "17:30", "00:00"} {
		t.Run(offset, func(t *testing.T) {
			_, err := env.svc.Book(context.Background(), env.prov.ID, env.slot(t, "2024-06-03", offset), Draft{})
			assert.ErrorIs(t, err, ErrInvalidOffset)
		})
	}
}

func TestBookRejectsNonSlotAlignedInstant(t *testing.T) {
	env := newTestEnv()

	at := env.slot(t, "2024-06-03", "10:00").Add(12 * time.Second)
	_, err := env.svc.Book(context.Background(), env.prov.ID, at, Draft{})
	assert.ErrorIs(t, err, ErrInvalidOffset)
}

func TestBookRejectsPastSameDayOffsets(t *testing.T) {
	// Clock pinned to Monday 2024-06-03 at 10:00.
	env := newTestEnvAt(time.Date(2024, time.June, 3, 10, 0, 0, 0, time.UTC))

	_, err := env.svc.Book(context.Background(), env.prov.ID, env.slot(t, "2024-06-03", "09:30"), Draft{})
	assert.ErrorIs(t, err, ErrInvalidOffset)

	// An offset equal to now is already gone too.
	_, err = env.svc.Book(context.Background(), env.prov.ID, env.slot(t, "2024-06-03", "10:00"), Draft{})
	assert.ErrorIs(t, err, ErrInvalidOffset)

	// Later the same day is still bookable.
	env.book(t, "2024-06-03", "10:30")
}

func TestBookSecondCallerSeesSlotTaken(t *testing.T) {
	env := newTestEnv()

	env.book(t, "2024-06-03", "10:00")

	_, err := env.svc.Book(context.Background(), env.prov.ID, env.slot(t, "2024-06-03", "10:00"), Draft{
		PatientEmail: "bob@example.com",
	})
	assert.ErrorIs(t, err, ErrSlotTaken)

	// A different offset on the same day is unaffected.
	env.book(t, "2024-06-03", "10:30")
}

func TestConcurrentBookingHasExactlyOneWinner(t *testing.T) {
	env := newTestEnv()
	at := env.slot(t, "2024-06-03", "10:00")

	const attempts = 32
	var wg sync.WaitGroup
	errs := make([]error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, errs[n] = env.svc.Book(context.Background(), env.prov.ID, at, Draft{
				PatientEmail: "race@example.com",
			})
		}(i)
	}
	wg.Wait()

	winners, losers := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			winners++
		case errors.Is(err, ErrSlotTaken):
			losers++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, winners)
	assert.Equal(t, attempts-1, losers)
}

func TestCancelFreesTheSlot(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	first := env.book(t, "2024-06-03", "10:00")
	_, err := env.svc.SetStatus(ctx, first.ID, StatusCancelled, RoleProvider, nil)
	require.NoError(t, err)

	// The same (provider, instant) pair is immediately bookable again.
	second := env.book(t, "2024-06-03", "10:00")
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, StatusPending, second.Status)
}

func TestSetStatusAllowsOnlyForwardEdges(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	appt := env.book(t, "2024-06-03", "10:00")

	confirmed, err := env.svc.SetStatus(ctx, appt.ID, StatusConfirmed, RoleProvider, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, confirmed.Status)

	_, err = env.svc.SetStatus(ctx, appt.ID, StatusPending, RoleProvider, nil)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = env.svc.SetStatus(ctx, appt.ID, StatusConfirmed, RoleProvider, nil)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	cancelled, err := env.svc.SetStatus(ctx, appt.ID, StatusCancelled, RoleAdmin, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)

	// Cancelled is terminal.
	_, err = env.svc.SetStatus(ctx, appt.ID, StatusConfirmed, RoleProvider, nil)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = env.svc.SetStatus(ctx, appt.ID, StatusPending, RoleProvider, nil)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestSetStatusRejectsPatientActor(t *testing.T) {
	env := newTestEnv()
	appt := env.book(t, "2024-06-03", "10:00")

	_, err := env.svc.SetStatus(context.Background(), appt.ID, StatusConfirmed, RolePatient, nil)
	assert.ErrorIs(t, err, ErrActorNotAllowed)

	got, err := env.svc.GetAppointment(context.Background(), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)
}

func TestSetStatusRejectsUnknownValue(t *testing.T) {
	env := newTestEnv()
	appt := env.book(t, "2024-06-03", "10:00")

	_, err := env.svc.SetStatus(context.Background(), appt.ID, Status("archived"), RoleProvider, nil)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestSetStatusUnknownAppointment(t *testing.T) {
	env := newTestEnv()

	_, err := env.svc.SetStatus(context.Background(), uuid.New(), StatusConfirmed, RoleProvider, nil)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}

func TestConfirmFlipsUnreadAndNotifiesPatient(t *testing.T) {
	env := newTestEnv()
	appt := env.book(t, "2024-06-03", "10:00")

	confirmed, err := env.svc.SetStatus(context.Background(), appt.ID, StatusConfirmed, RoleProvider, nil)
	require.NoError(t, err)
	assert.True(t, confirmed.Unread())

	mails := env.sender.mails()
	require.Len(t, mails, 1)
	assert.Equal(t, "alice@example.com", mails[0].to)
	assert.Contains(t, mails[0].body, "Dr. Sarah Johnson")
	assert.Contains(t, mails[0].body, "2024-06-03")
	assert.Contains(t, mails[0].body, "10:00")
}

func TestSetStatusHonorsReadOverride(t *testing.T) {
	env := newTestEnv()
	appt := env.book(t, "2024-06-03", "10:00")

	quiet := false
	confirmed, err := env.svc.SetStatus(context.Background(), appt.ID, StatusConfirmed, RoleProvider, &quiet)
	require.NoError(t, err)
	assert.False(t, confirmed.Unread())
}

func TestNotificationFailureDoesNotBlockConfirm(t *testing.T) {
	env := newTestEnv()
	env.sender.fail = true
	appt := env.book(t, "2024-06-03", "10:00")

	confirmed, err := env.svc.SetStatus(context.Background(), appt.ID, StatusConfirmed, RoleProvider, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, confirmed.Status)
}

func TestAcknowledgeIsIdempotent(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	appt := env.book(t, "2024-06-03", "10:00")

	confirmed, err := env.svc.SetStatus(ctx, appt.ID, StatusConfirmed, RoleProvider, nil)
	require.NoError(t, err)
	require.True(t, confirmed.Unread())

	first, err := env.svc.Acknowledge(ctx, appt.ID)
	require.NoError(t, err)
	assert.False(t, first.Unread())
	assert.Equal(t, StatusConfirmed, first.Status)

	second, err := env.svc.Acknowledge(ctx, appt.ID)
	require.NoError(t, err)
	assert.False(t, second.Unread())
	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, first.FlowStatus, second.FlowStatus)
}

func TestFlowRequiresConfirmedStatus(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	appt := env.book(t, "2024-06-03", "10:00")

	_, err := env.svc.SetFlow(ctx, appt.ID, FlowCheckedIn)
	assert.ErrorIs(t, err, ErrFlowNotAllowed)

	_, err = env.svc.SetStatus(ctx, appt.ID, StatusCancelled, RoleProvider, nil)
	require.NoError(t, err)
	_, err = env.svc.SetFlow(ctx, appt.ID, FlowCheckedIn)
	assert.ErrorIs(t, err, ErrFlowNotAllowed)
}

func TestFlowMovesFreelyWhileConfirmed(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	appt := env.book(t, "2024-06-03", "10:00")

	_, err := env.svc.SetStatus(ctx, appt.ID, StatusConfirmed, RoleProvider, nil)
	require.NoError(t, err)

	for _, flow := range []FlowStatus{FlowCheckedIn, FlowVitals, FlowConsulting, FlowVitals, FlowComplete} {
		got, err := env.svc.SetFlow(ctx, appt.ID, flow)
		require.NoError(t, err, string(flow))
		assert.Equal(t, flow, got.FlowStatus)
	}
}

func TestFlowRejectsUnknownValue(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	appt := env.book(t, "2024-06-03", "10:00")

	_, err := env.svc.SetStatus(ctx, appt.ID, StatusConfirmed, RoleProvider, nil)
	require.NoError(t, err)

	_, err = env.svc.SetFlow(ctx, appt.ID, FlowStatus("triage"))
	assert.ErrorIs(t, err, ErrInvalidFlowValue)

	_, err = env.svc.SetFlow(ctx, appt.ID, FlowNone)
	assert.ErrorIs(t, err, ErrInvalidFlowValue)
}

func TestMeetingLinkIsIdempotent(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	appt := env.book(t, "2024-06-03", "10:00")

	_, err := env.svc.SetStatus(ctx, appt.ID, StatusConfirmed, RoleProvider, nil)
	require.NoError(t, err)

	first, err := env.svc.EnsureMeetingLink(ctx, appt.ID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(first, "https://meet.jit.si/adh-"), first)

	second, err := env.svc.EnsureMeetingLink(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestMeetingLinkRequiresConfirmedStatus(t *testing.T) {
	env := newTestEnv()
	appt := env.book(t, "2024-06-03", "10:00")

	_, err := env.svc.EnsureMeetingLink(context.Background(), appt.ID)
	assert.ErrorIs(t, err, ErrNotConfirmed)
}

func TestCheckAvailabilityNonWorkingDay(t *testing.T) {
	env := newTestEnv()

	// Tuesday is outside Mon/Wed/Fri.
	date, err := schedule.ParseDate("2024-06-04")
	require.NoError(t, err)

	avail, err := env.svc.CheckAvailability(context.Background(), env.prov.ID, date)
	require.NoError(t, err)
	assert.False(t, avail.WorkingDay)
	assert.Empty(t, avail.Open)
	assert.Empty(t, avail.Booked)
}

func TestCheckAvailabilityExcludesBookedSlots(t *testing.T) {
	env := newTestEnv()
	env.book(t, "2024-06-03", "10:00")

	date, err := schedule.ParseDate("2024-06-03")
	require.NoError(t, err)

	avail, err := env.svc.CheckAvailability(context.Background(), env.prov.ID, date)
	require.NoError(t, err)
	assert.True(t, avail.WorkingDay)

	require.Len(t, avail.Booked, 1)
	assert.Equal(t, "10:00", avail.Booked[0].String())

	assert.Len(t, avail.Open, 16)
	for _, slot := range avail.Open {
		assert.NotEqual(t, "10:00", slot.String())
	}
}

func TestCheckAvailabilityReopensCancelledSlots(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	appt := env.book(t, "2024-06-03", "10:00")

	_, err := env.svc.SetStatus(ctx, appt.ID, StatusCancelled, RoleProvider, nil)
	require.NoError(t, err)

	date, err := schedule.ParseDate("2024-06-03")
	require.NoError(t, err)

	avail, err := env.svc.CheckAvailability(ctx, env.prov.ID, date)
	require.NoError(t, err)
	assert.Empty(t, avail.Booked)
	assert.Len(t, avail.Open, 17)
}

func TestSendUpcomingRemindersSendsEachOnce(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	appt := env.book(t, "2024-06-03", "09:00")

	_, err := env.svc.SetStatus(ctx, appt.ID, StatusConfirmed, RoleProvider, nil)
	require.NoError(t, err)
	require.Len(t, env.sender.mails(), 1) // confirmation

	sent, err := env.svc.SendUpcomingReminders(ctx, 7*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	mails := env.sender.mails()
	require.Len(t, mails, 2)
	assert.Contains(t, mails[1].subject, "reminder")
	assert.Contains(t, mails[1].body, "2024-06-03")

	// Already reminded appointments are skipped on the next run.
	sent, err = env.svc.SendUpcomingReminders(ctx, 7*24*time.Hour)
	require.NoError(t, err)
	assert.Zero(t, sent)
}

func TestSendUpcomingRemindersSkipsPendingAndDistant(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	// Pending, inside the window: not reminded.
	env.book(t, "2024-06-03", "09:00")

	// Confirmed, outside the window: not reminded either.
	distant := env.book(t, "2024-06-07", "09:00")
	_, err := env.svc.SetStatus(ctx, distant.ID, StatusConfirmed, RoleProvider, nil)
	require.NoError(t, err)

	sent, err := env.svc.SendUpcomingReminders(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Zero(t, sent)
}

func TestListByPatientAndProvider(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	later := env.book(t, "2024-06-05", "11:00")
	earlier := env.book(t, "2024-06-03", "09:30")
	_ = later

	byPatient, err := env.svc.ListByPatient(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Len(t, byPatient, 2)
	assert.Equal(t, earlier.ID, byPatient[0].ID)

	byProvider, err := env.svc.ListByProvider(ctx, env.prov.ID)
	require.NoError(t, err)
	assert.Len(t, byProvider, 2)

	none, err := env.svc.ListByPatient(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestBookingWritesEventLog(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	appt := env.book(t, "2024-06-03", "10:00")

	_, err := env.svc.SetStatus(ctx, appt.ID, StatusConfirmed, RoleProvider, nil)
	require.NoError(t, err)

	var types []string
	for _, ev := range env.repo.Events() {
		types = append(types, ev.EventType)
		require.NotNil(t, ev.AppointmentID)
		assert.Equal(t, appt.ID, *ev.AppointmentID)
	}
	assert.Equal(t, []string{EventAppointmentCreated, EventStatusChanged}, types)
}
