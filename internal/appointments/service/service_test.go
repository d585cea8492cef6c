package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"vehicle_inspection_backend/internal/appointments/repository"
	"vehicle_inspection_backend/internal/authz"
	"vehicle_inspection_backend/internal/events"
	"vehicle_inspection_backend/platform/apperr"
	"vehicle_inspection_backend/platform/logger"

	"github.com/google/uuid"
)

// fakeRepo serializes transitions like the row lock and creates like the
// per-day advisory lock.
type fakeRepo struct {
	mu    sync.Mutex
	appts map[uuid.UUID]repository.Appointment
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{appts: make(map[uuid.UUID]repository.Appointment)}
}

func (f *fakeRepo) CreateInSlot(_ context.Context, appt *repository.Appointment, window time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.appts {
		if a.CustomerID == appt.CustomerID && a.IdempotencyKey != nil && appt.IdempotencyKey != nil && *a.IdempotencyKey == *appt.IdempotencyKey {
			return repository.ErrIdempotencyReplay
		}
		if !a.IsActive() {
			continue
		}
		diff := a.RequestedAt.Sub(appt.RequestedAt)
		if diff > -window && diff < window {
			return repository.ErrSlotTaken
		}
	}
	f.appts[appt.ID] = *appt
	return nil
}

func (f *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (*repository.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.appts[id]
	if !ok {
		return nil, apperr.NotFound("appointment not found")
	}
	return &a, nil
}

func (f *fakeRepo) FindByIdempotencyKey(_ context.Context, customerID uuid.UUID, key string) (*repository.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.appts {
		if a.CustomerID == customerID && a.IdempotencyKey != nil && *a.IdempotencyKey == key {
			return &a, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) filter(keep func(repository.Appointment) bool) []repository.Appointment {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]repository.Appointment, 0)
	for _, a := range f.appts {
		if keep(a) {
			out = append(out, a)
		}
	}
	return out
}

func (f *fakeRepo) ListByCustomer(_ context.Context, customerID uuid.UUID) ([]repository.Appointment, error) {
	return f.filter(func(a repository.Appointment) bool { return a.CustomerID == customerID }), nil
}

func (f *fakeRepo) ListConfirmed(context.Context) ([]repository.Appointment, error) {
	return f.filter(func(a repository.Appointment) bool { return a.Status == repository.StatusConfirmed }), nil
}

func (f *fakeRepo) ListActiveBetween(_ context.Context, from, to time.Time) ([]repository.Appointment, error) {
	return f.filter(func(a repository.Appointment) bool {
		return a.IsActive() && !a.RequestedAt.Before(from) && a.RequestedAt.Before(to)
	}), nil
}

func (f *fakeRepo) ListAll(_ context.Context, status *string, offset, limit int) ([]repository.Appointment, int, error) {
	out := f.filter(func(a repository.Appointment) bool { return status == nil || a.Status == *status })
	total := len(out)
	if offset > len(out) {
		offset = len(out)
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, total, nil
}

func (f *fakeRepo) Transition(_ context.Context, id uuid.UUID, decide repository.Decider) (*repository.Appointment, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	current, ok := f.appts[id]
	if !ok {
		return nil, false, apperr.NotFound("appointment not found")
	}
	next, err := decide(current)
	if err != nil {
		return nil, false, err
	}
	if next == nil {
		return &current, false, nil
	}
	f.appts[id] = *next
	return next, true, nil
}

func (f *fakeRepo) put(a repository.Appointment) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appts[a.ID] = a
}

type fakeLedger struct {
	mu       sync.Mutex
	payments map[uuid.UUID]PaymentRecord
	delay    time.Duration
	err      error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{payments: make(map[uuid.UUID]PaymentRecord)}
}

func (l *fakeLedger) add(appointmentID uuid.UUID, paymentType, status string) uuid.UUID {
	l.mu.Lock()
	defer l.mu.Unlock()
	id := uuid.New()
	l.payments[id] = PaymentRecord{ID: id, AppointmentID: appointmentID, PaymentType: paymentType, Status: status}
	return id
}

func (l *fakeLedger) LookupPayment(ctx context.Context, paymentID uuid.UUID) (*PaymentRecord, error) {
	if l.delay > 0 {
		select {
		case <-time.After(l.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if l.err != nil {
		return nil, l.err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.payments[paymentID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (l *fakeLedger) CompletedPayment(_ context.Context, appointmentID uuid.UUID, paymentType string) (*PaymentRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, p := range l.payments {
		if p.AppointmentID == appointmentID && p.PaymentType == paymentType && p.Status == paymentStatusCompleted {
			return &p, nil
		}
	}
	return nil, nil
}

type fakeInspections map[uuid.UUID]bool

func (f fakeInspections) HasInspection(_ context.Context, appointmentID uuid.UUID) (bool, error) {
	return f[appointmentID], nil
}

type recordingReminders struct {
	runAt []time.Time
}

func (r *recordingReminders) ScheduleAppointmentReminder(_ context.Context, _ uuid.UUID, runAt time.Time) error {
	r.runAt = append(r.runAt, runAt)
	return nil
}

type recordingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordingBus) Publish(_ context.Context, e events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
}

func (b *recordingBus) PublishSync(ctx context.Context, e events.Event) error {
	b.Publish(ctx, e)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

func (b *recordingBus) count(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, e := range b.events {
		if e.EventName() == name {
			n++
		}
	}
	return n
}

// Monday 2026-03-02 08:00 UTC; the next day's grid is fully in the future.
var testNow = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

func tomorrowAt(hour, minute int) time.Time {
	return time.Date(2026, 3, 3, hour, minute, 0, 0, time.UTC)
}

type fixture struct {
	svc       *Service
	repo      *fakeRepo
	ledger    *fakeLedger
	bus       *recordingBus
	reminders *recordingReminders
	customer  authz.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := newFakeRepo()
	ledger := newFakeLedger()
	bus := &recordingBus{}
	svc := New(repo, ledger, bus, logger.New("test"), Config{VerifyTimeout: 50 * time.Millisecond, Location: time.UTC})
	svc.now = func() time.Time { return testNow }
	reminders := &recordingReminders{}
	svc.SetReminderScheduler(reminders)
	return &fixture{
		svc:       svc,
		repo:      repo,
		ledger:    ledger,
		bus:       bus,
		reminders: reminders,
		customer:  authz.Actor{ID: uuid.New(), Role: authz.RoleCustomer},
	}
}

func (f *fixture) book(t *testing.T, at time.Time) *repository.Appointment {
	t.Helper()
	appt, err := f.svc.Create(context.Background(), f.customer, CreateInput{
		Vehicle:     Vehicle{Registration: " ab-123-cd ", Brand: "Volvo", Model: "V60", Type: "car"},
		RequestedAt: at,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return appt
}

func (f *fixture) confirmed(t *testing.T, at time.Time) *repository.Appointment {
	t.Helper()
	appt := f.book(t, at)
	paymentID := f.ledger.add(appt.ID, paymentTypeBookingFee, paymentStatusCompleted)
	confirmed, err := f.svc.Confirm(context.Background(), f.customer, appt.ID, paymentID)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	return confirmed
}

func expectKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	if !apperr.Is(err, kind) {
		t.Fatalf("expected %s error, got %v", kind.Code(), err)
	}
}

func TestCreateBooksPendingAppointment(t *testing.T) {
	f := newFixture(t)
	appt := f.book(t, tomorrowAt(9, 45))

	if appt.Status != repository.StatusPending || appt.InspectionStatus != repository.InspectionNotChecked {
		t.Fatalf("unexpected state %s/%s", appt.Status, appt.InspectionStatus)
	}
	if appt.VehicleRegistration != "AB-123-CD" {
		t.Fatalf("expected normalized registration, got %q", appt.VehicleRegistration)
	}
	if f.bus.count(events.AppointmentCreated{}.EventName()) != 1 {
		t.Fatal("expected one created event")
	}
}

func TestCreateRejectsPastAndOffGridTimes(t *testing.T) {
	f := newFixture(t)
	cases := map[string]time.Time{
		"past":        testNow.Add(-time.Hour),
		"off grid":    tomorrowAt(9, 15),
		"after close": tomorrowAt(17, 15),
		"before open": tomorrowAt(8, 15),
		"odd seconds": tomorrowAt(9, 0).Add(30 * time.Second),
	}
	for name, at := range cases {
		_, err := f.svc.Create(context.Background(), f.customer, CreateInput{
			Vehicle:     Vehicle{Registration: "AB123CD", Brand: "Volvo", Model: "V60", Type: "car"},
			RequestedAt: at,
		})
		if !apperr.Is(err, apperr.KindValidation) {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
	}
}

func TestCreateRejectsTakenSlotAsValidation(t *testing.T) {
	f := newFixture(t)
	f.book(t, tomorrowAt(10, 30))

	other := authz.Actor{ID: uuid.New(), Role: authz.RoleCustomer}
	_, err := f.svc.Create(context.Background(), other, CreateInput{
		Vehicle:     Vehicle{Registration: "XY987Z", Brand: "Audi", Model: "A4", Type: "car"},
		RequestedAt: tomorrowAt(10, 30),
	})
	expectKind(t, err, apperr.KindValidation)

	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *apperr.Error, got %T", err)
	}
	details, _ := appErr.Details.(map[string]string)
	if details["reason"] != "slot_taken" {
		t.Fatalf("expected slot_taken reason, got %v", appErr.Details)
	}
}

func TestCancelledAppointmentFreesItsSlot(t *testing.T) {
	f := newFixture(t)
	appt := f.book(t, tomorrowAt(11, 15))
	if _, err := f.svc.Cancel(context.Background(), f.customer, appt.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	f.book(t, tomorrowAt(11, 15))
}

func TestCreateReplaysIdempotencyKey(t *testing.T) {
	f := newFixture(t)
	in := CreateInput{
		Vehicle:        Vehicle{Registration: "AB123CD", Brand: "Volvo", Model: "V60", Type: "car"},
		RequestedAt:    tomorrowAt(12, 0),
		IdempotencyKey: "retry-1",
	}
	first, err := f.svc.Create(context.Background(), f.customer, in)
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	second, err := f.svc.Create(context.Background(), f.customer, in)
	if err != nil {
		t.Fatalf("replayed create: %v", err)
	}
	if first.ID != second.ID {
		t.Fatal("expected the replay to return the original appointment")
	}
	if f.bus.count(events.AppointmentCreated{}.EventName()) != 1 {
		t.Fatal("expected a single created event")
	}
}

func TestCreateRejectsTechnicians(t *testing.T) {
	f := newFixture(t)
	tech := authz.Actor{ID: uuid.New(), Role: authz.RoleTechnician}
	_, err := f.svc.Create(context.Background(), tech, CreateInput{
		Vehicle:     Vehicle{Registration: "AB123CD", Brand: "Volvo", Model: "V60", Type: "car"},
		RequestedAt: tomorrowAt(9, 0),
	})
	expectKind(t, err, apperr.KindForbidden)
}

func TestConfirmRequiresMatchingCompletedBookingFee(t *testing.T) {
	f := newFixture(t)
	appt := f.book(t, tomorrowAt(9, 0))
	other := f.book(t, tomorrowAt(14, 15))

	cases := map[string]uuid.UUID{
		"unknown":           uuid.New(),
		"pending":           f.ledger.add(appt.ID, paymentTypeBookingFee, "pending"),
		"failed":            f.ledger.add(appt.ID, paymentTypeBookingFee, "failed"),
		"wrong type":        f.ledger.add(appt.ID, paymentTypeInspectionFee, paymentStatusCompleted),
		"other appointment": f.ledger.add(other.ID, paymentTypeBookingFee, paymentStatusCompleted),
	}
	for name, paymentID := range cases {
		_, err := f.svc.Confirm(context.Background(), f.customer, appt.ID, paymentID)
		if !apperr.Is(err, apperr.KindPaymentNotVerified) {
			t.Fatalf("%s: expected payment_not_verified, got %v", name, err)
		}
	}

	current, _ := f.repo.GetByID(context.Background(), appt.ID)
	if current.Status != repository.StatusPending {
		t.Fatalf("expected appointment to stay pending, got %s", current.Status)
	}
}

func TestConfirmFailsClosedWhenLedgerIsSlow(t *testing.T) {
	f := newFixture(t)
	appt := f.book(t, tomorrowAt(9, 0))
	paymentID := f.ledger.add(appt.ID, paymentTypeBookingFee, paymentStatusCompleted)
	f.ledger.delay = time.Second

	start := time.Now()
	_, err := f.svc.Confirm(context.Background(), f.customer, appt.ID, paymentID)
	expectKind(t, err, apperr.KindPaymentNotVerified)
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Fatalf("expected verification to time out quickly, took %v", elapsed)
	}

	current, _ := f.repo.GetByID(context.Background(), appt.ID)
	if current.Status != repository.StatusPending {
		t.Fatalf("expected pending after timeout, got %s", current.Status)
	}
}

func TestConfirmFailsClosedWhenLedgerErrors(t *testing.T) {
	f := newFixture(t)
	appt := f.book(t, tomorrowAt(9, 0))
	paymentID := f.ledger.add(appt.ID, paymentTypeBookingFee, paymentStatusCompleted)
	f.ledger.err = errors.New("connection refused")

	_, err := f.svc.Confirm(context.Background(), f.customer, appt.ID, paymentID)
	expectKind(t, err, apperr.KindPaymentNotVerified)
}

func TestConfirmIsIdempotentForSamePayment(t *testing.T) {
	f := newFixture(t)
	appt := f.confirmed(t, tomorrowAt(15, 45))

	again, err := f.svc.Confirm(context.Background(), f.customer, appt.ID, *appt.BookingPaymentID)
	if err != nil {
		t.Fatalf("repeat confirm: %v", err)
	}
	if again.Status != repository.StatusConfirmed || *again.ConfirmedAt != *appt.ConfirmedAt {
		t.Fatal("expected repeat confirm to leave the appointment unchanged")
	}
	if f.bus.count(events.AppointmentConfirmed{}.EventName()) != 1 {
		t.Fatal("expected a single confirmed event")
	}
	if len(f.reminders.runAt) != 1 || !f.reminders.runAt[0].Equal(appt.RequestedAt.Add(-24*time.Hour)) {
		t.Fatalf("expected one reminder 24h ahead, got %v", f.reminders.runAt)
	}
}

func TestConfirmWithAnotherPaymentAfterConfirmation(t *testing.T) {
	f := newFixture(t)
	appt := f.confirmed(t, tomorrowAt(9, 0))
	pending := f.ledger.add(appt.ID, paymentTypeBookingFee, "pending")

	_, err := f.svc.Confirm(context.Background(), f.customer, appt.ID, pending)
	expectKind(t, err, apperr.KindPaymentNotVerified)
}

func TestConfirmRejectsTerminalAppointments(t *testing.T) {
	f := newFixture(t)
	appt := f.book(t, tomorrowAt(9, 0))
	paymentID := f.ledger.add(appt.ID, paymentTypeBookingFee, paymentStatusCompleted)
	if _, err := f.svc.Cancel(context.Background(), f.customer, appt.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	_, err := f.svc.Confirm(context.Background(), f.customer, appt.ID, paymentID)
	expectKind(t, err, apperr.KindInvalidState)
}

func TestConfirmRejectsOtherCustomers(t *testing.T) {
	f := newFixture(t)
	appt := f.book(t, tomorrowAt(9, 0))
	paymentID := f.ledger.add(appt.ID, paymentTypeBookingFee, paymentStatusCompleted)

	stranger := authz.Actor{ID: uuid.New(), Role: authz.RoleCustomer}
	_, err := f.svc.Confirm(context.Background(), stranger, appt.ID, paymentID)
	expectKind(t, err, apperr.KindForbidden)
}

func TestCancelIsIdempotentAndGuarded(t *testing.T) {
	f := newFixture(t)
	appt := f.book(t, tomorrowAt(9, 0))

	stranger := authz.Actor{ID: uuid.New(), Role: authz.RoleCustomer}
	_, err := f.svc.Cancel(context.Background(), stranger, appt.ID)
	expectKind(t, err, apperr.KindForbidden)

	first, err := f.svc.Cancel(context.Background(), f.customer, appt.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	second, err := f.svc.Cancel(context.Background(), f.customer, appt.ID)
	if err != nil {
		t.Fatalf("repeat cancel: %v", err)
	}
	if second.Status != repository.StatusCancelled || *second.CancelledAt != *first.CancelledAt {
		t.Fatal("expected repeat cancel to be a no-op")
	}
	if f.bus.count(events.AppointmentCancelled{}.EventName()) != 1 {
		t.Fatal("expected a single cancelled event")
	}
}

func TestCancelCompletedIsInvalidState(t *testing.T) {
	f := newFixture(t)
	appt := f.confirmed(t, tomorrowAt(9, 0))
	tech := authz.Actor{ID: uuid.New(), Role: authz.RoleTechnician}
	if _, err := f.svc.RecordInspectionOutcome(context.Background(), tech, appt.ID, repository.InspectionPassed); err != nil {
		t.Fatalf("record outcome: %v", err)
	}

	_, err := f.svc.Cancel(context.Background(), f.customer, appt.ID)
	expectKind(t, err, apperr.KindInvalidState)
}

func TestRecordInspectionOutcome(t *testing.T) {
	f := newFixture(t)
	tech := authz.Actor{ID: uuid.New(), Role: authz.RoleTechnician}

	pending := f.book(t, tomorrowAt(9, 0))
	_, err := f.svc.RecordInspectionOutcome(context.Background(), tech, pending.ID, repository.InspectionPassed)
	expectKind(t, err, apperr.KindInvalidState)

	appt := f.confirmed(t, tomorrowAt(10, 30))
	started, err := f.svc.MarkInspectionInProgress(context.Background(), tech, appt.ID)
	if err != nil {
		t.Fatalf("start inspection: %v", err)
	}
	if started.Status != repository.StatusConfirmed || started.InspectionStatus != repository.InspectionInProgress {
		t.Fatalf("unexpected state %s/%s", started.Status, started.InspectionStatus)
	}

	done, err := f.svc.RecordInspectionOutcome(context.Background(), tech, appt.ID, repository.InspectionPassedWithMinorIssues)
	if err != nil {
		t.Fatalf("record outcome: %v", err)
	}
	if done.Status != repository.StatusCompleted || done.CompletedAt == nil {
		t.Fatalf("expected completed appointment, got %s", done.Status)
	}
	if f.bus.count(events.AppointmentCompleted{}.EventName()) != 1 {
		t.Fatal("expected a completed event")
	}

	_, err = f.svc.RecordInspectionOutcome(context.Background(), f.customer, appt.ID, repository.InspectionFailed)
	expectKind(t, err, apperr.KindForbidden)
}

func TestReconcileAppliesVerdictOnce(t *testing.T) {
	f := newFixture(t)
	appt := f.confirmed(t, tomorrowAt(9, 0))

	changed, err := f.svc.Reconcile(context.Background(), appt.ID, repository.InspectionFailed)
	if err != nil || !changed {
		t.Fatalf("expected reconcile to change the appointment, changed=%v err=%v", changed, err)
	}
	changed, err = f.svc.Reconcile(context.Background(), appt.ID, repository.InspectionFailed)
	if err != nil || changed {
		t.Fatalf("expected repeat reconcile to be a no-op, changed=%v err=%v", changed, err)
	}

	current, _ := f.repo.GetByID(context.Background(), appt.ID)
	if current.Status != repository.StatusCompleted || current.InspectionStatus != repository.InspectionFailed {
		t.Fatalf("unexpected state %s/%s", current.Status, current.InspectionStatus)
	}
}

func TestConcurrentConfirmAndCancelLeaveConsistentState(t *testing.T) {
	for i := 0; i < 20; i++ {
		f := newFixture(t)
		appt := f.book(t, tomorrowAt(9, 0))
		paymentID := f.ledger.add(appt.ID, paymentTypeBookingFee, paymentStatusCompleted)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = f.svc.Confirm(context.Background(), f.customer, appt.ID, paymentID)
		}()
		go func() {
			defer wg.Done()
			_, _ = f.svc.Cancel(context.Background(), f.customer, appt.ID)
		}()
		wg.Wait()

		current, _ := f.repo.GetByID(context.Background(), appt.ID)
		if current.Status != repository.StatusCancelled {
			t.Fatalf("cancel always wins in the end, got %s", current.Status)
		}
		if current.BookingPaymentID != nil && current.ConfirmedAt == nil {
			t.Fatal("booking payment recorded without confirmation")
		}
	}
}

func TestAttachInspectionPayment(t *testing.T) {
	f := newFixture(t)
	appt := f.confirmed(t, tomorrowAt(9, 0))
	paymentID := f.ledger.add(appt.ID, paymentTypeInspectionFee, paymentStatusCompleted)

	updated, err := f.svc.AttachInspectionPayment(context.Background(), appt.ID, paymentID)
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	if updated.InspectionPaymentID == nil || *updated.InspectionPaymentID != paymentID {
		t.Fatal("expected inspection payment to be recorded")
	}

	booking := f.ledger.add(appt.ID, paymentTypeBookingFee, paymentStatusCompleted)
	_, err = f.svc.AttachInspectionPayment(context.Background(), appt.ID, booking)
	expectKind(t, err, apperr.KindPaymentNotVerified)
}

func TestAvailableSlotsMarksBookedNeighbours(t *testing.T) {
	f := newFixture(t)
	f.book(t, tomorrowAt(12, 0))

	day, err := f.svc.AvailableSlots(context.Background(), tomorrowAt(0, 0))
	if err != nil {
		t.Fatalf("slots: %v", err)
	}
	if len(day.Slots) != 11 {
		t.Fatalf("expected 11 slots, got %d", len(day.Slots))
	}
	if day.AvailableCount != 10 {
		t.Fatalf("expected 10 free slots, got %d", day.AvailableCount)
	}
	for _, s := range day.Slots {
		if s.Start.Equal(tomorrowAt(12, 0)) && s.Available {
			t.Fatal("expected the booked slot to be unavailable")
		}
	}
}

func TestWeeklyScheduleCoversSevenDays(t *testing.T) {
	f := newFixture(t)
	days, err := f.svc.WeeklySchedule(context.Background(), testNow)
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if len(days) != 7 {
		t.Fatalf("expected 7 days, got %d", len(days))
	}
	if days[0].Date != "2026-03-02" || days[6].Date != "2026-03-08" {
		t.Fatalf("unexpected range %s..%s", days[0].Date, days[6].Date)
	}
}

func TestMyVehiclesSummarizesPaymentsAndReports(t *testing.T) {
	f := newFixture(t)
	appt := f.confirmed(t, tomorrowAt(9, 0))
	tech := authz.Actor{ID: uuid.New(), Role: authz.RoleTechnician}
	if _, err := f.svc.RecordInspectionOutcome(context.Background(), tech, appt.ID, repository.InspectionPassed); err != nil {
		t.Fatalf("record outcome: %v", err)
	}
	f.ledger.add(appt.ID, paymentTypeInspectionFee, paymentStatusCompleted)
	f.svc.SetInspectionReader(fakeInspections{appt.ID: true})

	summaries, err := f.svc.MyVehicles(context.Background(), f.customer)
	if err != nil {
		t.Fatalf("vehicles: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("expected one summary, got %d", len(summaries))
	}
	s := summaries[0]
	if !s.BookingPaid || !s.InspectionPaid || !s.HasReport || !s.CanDownloadCertificate {
		t.Fatalf("unexpected summary %+v", s)
	}
}

func TestListAllClampsPageSize(t *testing.T) {
	f := newFixture(t)
	admin := authz.Actor{ID: uuid.New(), Role: authz.RoleAdmin}
	for _, at := range []time.Time{tomorrowAt(9, 0), tomorrowAt(9, 45), tomorrowAt(10, 30)} {
		f.book(t, at)
	}

	items, total, err := f.svc.ListAll(context.Background(), admin, "", 0, 500)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 3 || len(items) != 3 {
		t.Fatalf("expected 3 appointments, got %d/%d", len(items), total)
	}

	_, _, err = f.svc.ListAll(context.Background(), admin, "archived", 0, 10)
	expectKind(t, err, apperr.KindValidation)

	_, _, err = f.svc.ListAll(context.Background(), f.customer, "", 0, 10)
	expectKind(t, err, apperr.KindForbidden)
}
