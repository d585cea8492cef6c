package service

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"vehicle_inspection_backend/internal/authz"
	"vehicle_inspection_backend/internal/events"
	"vehicle_inspection_backend/internal/payments/repository"
	"vehicle_inspection_backend/platform/apperr"
	"vehicle_inspection_backend/platform/logger"

	"github.com/google/uuid"
)

// fakeRepo serializes settlements like a row lock and enforces one completed
// payment per (appointment, type) like the partial unique index.
type fakeRepo struct {
	mu       sync.Mutex
	payments map[uuid.UUID]repository.Payment
	seq      int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{payments: make(map[uuid.UUID]repository.Payment)}
}

func (f *fakeRepo) Create(_ context.Context, p *repository.Payment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payments[p.ID] = *p
	return nil
}

func (f *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (*repository.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payments[id]
	if !ok {
		return nil, apperr.NotFound("payment not found")
	}
	return &p, nil
}

func (f *fakeRepo) FindCompleted(_ context.Context, appointmentID uuid.UUID, paymentType string) (*repository.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.findCompletedLocked(appointmentID, paymentType), nil
}

func (f *fakeRepo) findCompletedLocked(appointmentID uuid.UUID, paymentType string) *repository.Payment {
	for _, p := range f.payments {
		if p.AppointmentID == appointmentID && p.PaymentType == paymentType && p.Status == repository.StatusCompleted {
			p := p
			return &p
		}
	}
	return nil
}

func (f *fakeRepo) ListByAppointment(_ context.Context, appointmentID uuid.UUID) ([]repository.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]repository.Payment, 0)
	for _, p := range f.payments {
		if p.AppointmentID == appointmentID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListByPayer(_ context.Context, payerID uuid.UUID) ([]repository.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]repository.Payment, 0)
	for _, p := range f.payments {
		if p.PayerID == payerID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeRepo) Settle(_ context.Context, id uuid.UUID, decide repository.SettleDecider) (*repository.Payment, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	current, ok := f.payments[id]
	if !ok {
		return nil, false, apperr.NotFound("payment not found")
	}
	settlement, err := decide(current)
	if err != nil {
		return nil, false, err
	}
	if settlement == nil {
		return &current, false, nil
	}
	if settlement.Status == repository.StatusCompleted && f.findCompletedLocked(current.AppointmentID, current.PaymentType) != nil {
		return nil, false, apperr.DuplicatePayment("duplicate")
	}
	current.Status = settlement.Status
	current.TransactionID = settlement.TransactionID
	settledAt := settlement.SettledAt
	current.SettledAt = &settledAt
	if settlement.AssignInvoice {
		f.seq++
		number := repository.FormatInvoiceNumber(settledAt, f.seq)
		current.InvoiceNumber = &number
	}
	f.payments[id] = current
	return &current, true, nil
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

func (b *recordingBus) names() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.events))
	for _, e := range b.events {
		out = append(out, e.EventName())
	}
	return out
}

type ownerStub struct {
	owner uuid.UUID
	err   error
}

func (o ownerStub) AppointmentOwner(context.Context, uuid.UUID) (uuid.UUID, error) {
	return o.owner, o.err
}

func newTestService() (*Service, *fakeRepo, *recordingBus) {
	repo := newFakeRepo()
	bus := &recordingBus{}
	svc := New(repo, bus, logger.New("test"))
	svc.now = func() time.Time { return time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC) }
	return svc, repo, bus
}

func customer() authz.Actor {
	return authz.Actor{ID: uuid.New(), Role: authz.RoleCustomer}
}

func TestNormalizeAmount(t *testing.T) {
	cases := []struct {
		in      float64
		want    float64
		wantErr bool
	}{
		{in: 25.005, want: 25.01},
		{in: 10000, want: 10000},
		{in: 0.004, wantErr: true},
		{in: 0, wantErr: true},
		{in: -5, wantErr: true},
		{in: 10000.01, wantErr: true},
	}
	for _, tc := range cases {
		got, err := NormalizeAmount(tc.in)
		if tc.wantErr {
			if !apperr.Is(err, apperr.KindValidation) {
				t.Fatalf("amount %v: expected validation error, got %v", tc.in, err)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("amount %v: got %v, %v; want %v", tc.in, got, err, tc.want)
		}
	}
}

func TestNewTransactionIDFormat(t *testing.T) {
	id, err := NewTransactionID()
	if err != nil {
		t.Fatalf("transaction id: %v", err)
	}
	if !regexp.MustCompile(`^TXN-[0-9A-F]{12}$`).MatchString(id) {
		t.Fatalf("unexpected transaction id %q", id)
	}
}

func TestInitiateValidatesAndDefaultsMethod(t *testing.T) {
	svc, _, _ := newTestService()
	actor := customer()
	apptID := uuid.New()

	p, err := svc.Initiate(context.Background(), actor, InitiateInput{AppointmentID: apptID, PaymentType: "booking_fee", Amount: 49.999})
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if p.Status != repository.StatusPending || p.PaymentMethod != MethodCard || p.Amount != 50 || p.PayerID != actor.ID {
		t.Fatalf("unexpected payment %+v", p)
	}

	if _, err := svc.Initiate(context.Background(), actor, InitiateInput{AppointmentID: apptID, PaymentType: "tip", Amount: 5}); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for payment type, got %v", err)
	}
	technician := authz.Actor{ID: uuid.New(), Role: authz.RoleTechnician}
	if _, err := svc.Initiate(context.Background(), technician, InitiateInput{AppointmentID: apptID, PaymentType: "booking_fee", Amount: 5}); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden for technician, got %v", err)
	}
}

func TestInitiateChecksAppointmentOwner(t *testing.T) {
	svc, _, _ := newTestService()
	actor := customer()

	svc.SetAppointmentOwnerLookup(ownerStub{owner: uuid.New()})
	if _, err := svc.Initiate(context.Background(), actor, InitiateInput{AppointmentID: uuid.New(), PaymentType: "booking_fee", Amount: 5}); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden for foreign appointment, got %v", err)
	}

	svc.SetAppointmentOwnerLookup(ownerStub{err: errors.New("timeout")})
	if _, err := svc.Initiate(context.Background(), actor, InitiateInput{AppointmentID: uuid.New(), PaymentType: "booking_fee", Amount: 5}); !apperr.Is(err, apperr.KindInternal) {
		t.Fatalf("expected internal error when owner lookup fails, got %v", err)
	}
}

func TestInitiateRejectsWhenCompletedExists(t *testing.T) {
	svc, _, _ := newTestService()
	actor := customer()
	apptID := uuid.New()

	p, err := svc.Initiate(context.Background(), actor, InitiateInput{AppointmentID: apptID, PaymentType: "booking_fee", Amount: 25})
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if _, err := svc.Settle(context.Background(), actor, p.ID, OutcomeCompleted); err != nil {
		t.Fatalf("settle: %v", err)
	}
	if _, err := svc.Initiate(context.Background(), actor, InitiateInput{AppointmentID: apptID, PaymentType: "booking_fee", Amount: 25}); !apperr.Is(err, apperr.KindDuplicatePayment) {
		t.Fatalf("expected duplicate payment, got %v", err)
	}
}

func TestSettleInspectionFeeAssignsInvoice(t *testing.T) {
	svc, _, bus := newTestService()
	actor := customer()

	p, err := svc.Initiate(context.Background(), actor, InitiateInput{AppointmentID: uuid.New(), PaymentType: "inspection_fee", Amount: 80})
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	settled, err := svc.Settle(context.Background(), actor, p.ID, OutcomeCompleted)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if settled.InvoiceNumber == nil || *settled.InvoiceNumber != "INV-20260314-00000001" {
		t.Fatalf("unexpected invoice number %v", settled.InvoiceNumber)
	}
	if settled.TransactionID == nil {
		t.Fatalf("expected a transaction id")
	}
	if names := bus.names(); len(names) != 1 || names[0] != "payments.completed" {
		t.Fatalf("expected one completed event, got %v", names)
	}
}

func TestSettleBookingFeeHasNoInvoice(t *testing.T) {
	svc, _, _ := newTestService()
	actor := customer()
	p, _ := svc.Initiate(context.Background(), actor, InitiateInput{AppointmentID: uuid.New(), PaymentType: "booking_fee", Amount: 25})

	settled, err := svc.Settle(context.Background(), actor, p.ID, OutcomeCompleted)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if settled.InvoiceNumber != nil {
		t.Fatalf("booking fee must not carry an invoice number")
	}
}

func TestSettleTerminalIsIdempotentOrInvalid(t *testing.T) {
	svc, _, bus := newTestService()
	actor := customer()
	p, _ := svc.Initiate(context.Background(), actor, InitiateInput{AppointmentID: uuid.New(), PaymentType: "booking_fee", Amount: 25})

	first, err := svc.Settle(context.Background(), actor, p.ID, OutcomeFailed)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	again, err := svc.Settle(context.Background(), actor, p.ID, OutcomeFailed)
	if err != nil {
		t.Fatalf("repeat settle: %v", err)
	}
	if again.Status != first.Status {
		t.Fatalf("expected unchanged status")
	}
	if _, err := svc.Settle(context.Background(), actor, p.ID, OutcomeCompleted); !apperr.Is(err, apperr.KindInvalidState) {
		t.Fatalf("expected invalid state, got %v", err)
	}
	if names := bus.names(); len(names) != 1 || names[0] != "payments.failed" {
		t.Fatalf("expected a single failed event, got %v", names)
	}
}

func TestSettleRequiresPayer(t *testing.T) {
	svc, _, _ := newTestService()
	owner := customer()
	p, _ := svc.Initiate(context.Background(), owner, InitiateInput{AppointmentID: uuid.New(), PaymentType: "booking_fee", Amount: 25})

	if _, err := svc.Settle(context.Background(), customer(), p.ID, OutcomeCompleted); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	admin := authz.Actor{ID: uuid.New(), Role: authz.RoleAdmin}
	if _, err := svc.Settle(context.Background(), admin, p.ID, OutcomeCompleted); err != nil {
		t.Fatalf("admin settle: %v", err)
	}
}

func TestConcurrentSettleCompletesAtMostOnePerPurpose(t *testing.T) {
	svc, repo, _ := newTestService()
	actor := customer()
	apptID := uuid.New()

	const attempts = 8
	ids := make([]uuid.UUID, 0, attempts)
	for i := 0; i < attempts; i++ {
		p, err := svc.Initiate(context.Background(), actor, InitiateInput{AppointmentID: apptID, PaymentType: "booking_fee", Amount: 25})
		if err != nil {
			t.Fatalf("initiate %d: %v", i, err)
		}
		ids = append(ids, p.ID)
	}

	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for _, id := range ids {
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			_, err := svc.Settle(context.Background(), actor, id, OutcomeCompleted)
			errs <- err
		}(id)
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		switch {
		case err == nil:
			succeeded++
		case apperr.Is(err, apperr.KindDuplicatePayment):
		default:
			t.Fatalf("unexpected error %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("expected exactly one completed settlement, got %d", succeeded)
	}

	payments, _ := repo.ListByAppointment(context.Background(), apptID)
	completed, pending := 0, 0
	for _, p := range payments {
		switch p.Status {
		case repository.StatusCompleted:
			completed++
		case repository.StatusPending:
			pending++
		}
	}
	if completed != 1 || pending != attempts-1 {
		t.Fatalf("expected 1 completed and %d pending, got %d and %d", attempts-1, completed, pending)
	}
}

func TestVerifyReturnsCompletedOnly(t *testing.T) {
	svc, _, _ := newTestService()
	actor := customer()
	apptID := uuid.New()

	p, _ := svc.Initiate(context.Background(), actor, InitiateInput{AppointmentID: apptID, PaymentType: "booking_fee", Amount: 25})
	got, err := svc.Verify(context.Background(), apptID, "booking_fee")
	if err != nil || got != nil {
		t.Fatalf("expected no verified payment while pending, got %v, %v", got, err)
	}

	if _, err := svc.Settle(context.Background(), actor, p.ID, OutcomeCompleted); err != nil {
		t.Fatalf("settle: %v", err)
	}
	got, err = svc.Verify(context.Background(), apptID, "booking_fee")
	if err != nil || got == nil || got.ID != p.ID {
		t.Fatalf("expected verified payment %s, got %v, %v", p.ID, got, err)
	}

	other, err := svc.VerifyForActor(context.Background(), customer(), apptID, "booking_fee")
	if err != nil || other != nil {
		t.Fatalf("another customer must not see the payment, got %v, %v", other, err)
	}
}

func TestGetHidesForeignPayments(t *testing.T) {
	svc, _, _ := newTestService()
	owner := customer()
	p, _ := svc.Initiate(context.Background(), owner, InitiateInput{AppointmentID: uuid.New(), PaymentType: "booking_fee", Amount: 25})

	if _, err := svc.Get(context.Background(), customer(), p.ID); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	tech := authz.Actor{ID: uuid.New(), Role: authz.RoleTechnician}
	if _, err := svc.Get(context.Background(), tech, p.ID); err != nil {
		t.Fatalf("technician get: %v", err)
	}
}
