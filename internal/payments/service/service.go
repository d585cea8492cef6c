package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"math"
	"strings"
	"time"

	"vehicle_inspection_backend/internal/authz"
	"vehicle_inspection_backend/internal/events"
	"vehicle_inspection_backend/internal/payments/repository"
	"vehicle_inspection_backend/platform/apperr"
	"vehicle_inspection_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	MaxAmount = 10000.0

	MethodCard     = "card"
	MethodCash     = "cash"
	MethodTransfer = "transfer"
)

// Outcome is the result reported for a simulated settlement.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
)

// AppointmentOwnerLookup resolves the customer that owns an appointment.
type AppointmentOwnerLookup interface {
	AppointmentOwner(ctx context.Context, appointmentID uuid.UUID) (uuid.UUID, error)
}

// InitiateInput carries the fields of a new payment.
type InitiateInput struct {
	AppointmentID uuid.UUID
	PaymentType   string
	Amount        float64
	Method        string
}

// Service is the payment ledger.
type Service struct {
	repo     repository.PaymentRepository
	owners   AppointmentOwnerLookup
	eventBus events.Bus
	log      *logger.Logger
	now      func() time.Time
}

func New(repo repository.PaymentRepository, eventBus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, eventBus: eventBus, log: log, now: time.Now}
}

// SetAppointmentOwnerLookup wires the appointment port after both modules exist.
func (s *Service) SetAppointmentOwnerLookup(owners AppointmentOwnerLookup) {
	s.owners = owners
}

// Initiate records a pending payment for an appointment.
func (s *Service) Initiate(ctx context.Context, actor authz.Actor, in InitiateInput) (*repository.Payment, error) {
	if err := authz.Authorize(authz.OpPaymentInitiate, actor); err != nil {
		return nil, err
	}
	if !validPaymentType(in.PaymentType) {
		return nil, apperr.Validation("payment_type must be booking_fee or inspection_fee")
	}
	amount, err := NormalizeAmount(in.Amount)
	if err != nil {
		return nil, err
	}
	method := strings.TrimSpace(in.Method)
	if method == "" {
		method = MethodCard
	}
	if method != MethodCard && method != MethodCash && method != MethodTransfer {
		return nil, apperr.Validation("payment_method must be card, cash or transfer")
	}

	if err := s.checkAppointmentOwner(ctx, actor, in.AppointmentID); err != nil {
		return nil, err
	}

	existing, err := s.repo.FindCompleted(ctx, in.AppointmentID, in.PaymentType)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperr.DuplicatePayment("a completed " + in.PaymentType + " payment already exists for this appointment")
	}

	now := s.now()
	p := &repository.Payment{
		ID:            uuid.New(),
		AppointmentID: in.AppointmentID,
		PayerID:       actor.ID,
		Amount:        amount,
		PaymentType:   in.PaymentType,
		PaymentMethod: method,
		Status:        repository.StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Settle applies the simulated gateway outcome to a pending payment.
// Settling a terminal payment again with the same outcome returns it unchanged.
func (s *Service) Settle(ctx context.Context, actor authz.Actor, paymentID uuid.UUID, outcome Outcome) (*repository.Payment, error) {
	if err := authz.Authorize(authz.OpPaymentSettle, actor); err != nil {
		return nil, err
	}
	if outcome != OutcomeCompleted && outcome != OutcomeFailed {
		return nil, apperr.Validation("outcome must be completed or failed")
	}

	settledAt := s.now().UTC()
	payment, changed, err := s.repo.Settle(ctx, paymentID, func(current repository.Payment) (*repository.Settlement, error) {
		if current.PayerID != actor.ID && !actor.IsAdmin() {
			return nil, apperr.Forbidden("only the payer may settle this payment")
		}
		if current.IsTerminal() {
			if current.Status == string(outcome) {
				return nil, nil
			}
			return nil, apperr.InvalidState("payment is already " + current.Status)
		}

		settlement := &repository.Settlement{Status: string(outcome), SettledAt: settledAt}
		if outcome == OutcomeCompleted {
			txn, err := NewTransactionID()
			if err != nil {
				return nil, err
			}
			settlement.TransactionID = &txn
			settlement.AssignInvoice = current.PaymentType == repository.TypeInspectionFee
		}
		return settlement, nil
	})
	if err != nil {
		return nil, err
	}
	if !changed {
		return payment, nil
	}

	s.log.WithContext(ctx).Transition("payment", payment.ID.String(), repository.StatusPending, payment.Status)
	s.publishSettled(ctx, payment)
	return payment, nil
}

func (s *Service) publishSettled(ctx context.Context, p *repository.Payment) {
	if p.Status == repository.StatusCompleted {
		s.eventBus.Publish(ctx, events.PaymentCompleted{
			BaseEvent:     events.NewBaseEvent(),
			PaymentID:     p.ID,
			AppointmentID: p.AppointmentID,
			PayerID:       p.PayerID,
			PaymentType:   p.PaymentType,
			Amount:        p.Amount,
			InvoiceNumber: p.InvoiceNumber,
		})
		return
	}
	s.eventBus.Publish(ctx, events.PaymentFailed{
		BaseEvent:     events.NewBaseEvent(),
		PaymentID:     p.ID,
		AppointmentID: p.AppointmentID,
		PayerID:       p.PayerID,
		PaymentType:   p.PaymentType,
	})
}

// Verify returns the completed payment of the given purpose from the latest
// committed state, or nil when none exists.
func (s *Service) Verify(ctx context.Context, appointmentID uuid.UUID, paymentType string) (*repository.Payment, error) {
	if !validPaymentType(paymentType) {
		return nil, apperr.Validation("payment_type must be booking_fee or inspection_fee")
	}
	return s.repo.FindCompleted(ctx, appointmentID, paymentType)
}

// VerifyForActor is Verify behind the authorization policy, for the HTTP surface.
func (s *Service) VerifyForActor(ctx context.Context, actor authz.Actor, appointmentID uuid.UUID, paymentType string) (*repository.Payment, error) {
	if err := authz.Authorize(authz.OpPaymentVerify, actor); err != nil {
		return nil, err
	}
	payment, err := s.Verify(ctx, appointmentID, paymentType)
	if err != nil || payment == nil {
		return payment, err
	}
	if actor.Role == authz.RoleCustomer && payment.PayerID != actor.ID {
		return nil, nil
	}
	return payment, nil
}

// GetByID is the internal lookup behind the payment verifier port.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*repository.Payment, error) {
	return s.repo.GetByID(ctx, id)
}

// Get returns a payment to its payer, staff or an administrator.
func (s *Service) Get(ctx context.Context, actor authz.Actor, id uuid.UUID) (*repository.Payment, error) {
	if err := authz.Authorize(authz.OpPaymentGet, actor); err != nil {
		return nil, err
	}
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role == authz.RoleCustomer && p.PayerID != actor.ID {
		return nil, apperr.Forbidden("payment belongs to another customer")
	}
	return p, nil
}

// ListForAppointment returns the payments of an appointment. Customers only
// see their own rows.
func (s *Service) ListForAppointment(ctx context.Context, actor authz.Actor, appointmentID uuid.UUID) ([]repository.Payment, error) {
	if err := authz.Authorize(authz.OpPaymentList, actor); err != nil {
		return nil, err
	}
	payments, err := s.repo.ListByAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if actor.Role != authz.RoleCustomer {
		return payments, nil
	}
	own := make([]repository.Payment, 0, len(payments))
	for _, p := range payments {
		if p.PayerID == actor.ID {
			own = append(own, p)
		}
	}
	return own, nil
}

// ListMine returns the caller's payments, newest first.
func (s *Service) ListMine(ctx context.Context, actor authz.Actor) ([]repository.Payment, error) {
	if err := authz.Authorize(authz.OpPaymentList, actor); err != nil {
		return nil, err
	}
	return s.repo.ListByPayer(ctx, actor.ID)
}

func (s *Service) checkAppointmentOwner(ctx context.Context, actor authz.Actor, appointmentID uuid.UUID) error {
	if s.owners == nil {
		return nil
	}
	owner, err := s.owners.AppointmentOwner(ctx, appointmentID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return err
		}
		return apperr.Wrap(apperr.KindInternal, "could not verify appointment", err)
	}
	if owner != actor.ID && !actor.IsAdmin() {
		return apperr.Forbidden("appointment belongs to another customer")
	}
	return nil
}

// NormalizeAmount rounds to cents and enforces 0 < amount <= MaxAmount.
func NormalizeAmount(amount float64) (float64, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, apperr.Validation("amount must be a number")
	}
	rounded := math.Round(amount*100) / 100
	if rounded <= 0 {
		return 0, apperr.Validation("amount must be greater than zero")
	}
	if rounded > MaxAmount {
		return 0, apperr.Validation("amount must not exceed 10000")
	}
	return rounded, nil
}

// NewTransactionID returns TXN- followed by 12 upper-case hex characters.
func NewTransactionID() (string, error) {
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return "TXN-" + strings.ToUpper(hex.EncodeToString(b)), nil
}

func validPaymentType(t string) bool {
	return t == repository.TypeBookingFee || t == repository.TypeInspectionFee
}
