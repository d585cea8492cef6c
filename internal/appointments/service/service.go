package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"vehicle_inspection_backend/internal/appointments/repository"
	"vehicle_inspection_backend/internal/authz"
	"vehicle_inspection_backend/internal/events"
	"vehicle_inspection_backend/platform/apperr"
	"vehicle_inspection_backend/platform/logger"
	"vehicle_inspection_backend/platform/sanitize"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	paymentTypeBookingFee    = "booking_fee"
	paymentTypeInspectionFee = "inspection_fee"
	paymentStatusCompleted   = "completed"

	reminderLead = 24 * time.Hour

	summaryLookupParallelism = 4

	defaultPageSize = 20
	maxPageSize     = 100

	minRegistrationLength = 4
	maxRegistrationLength = 15
)

// Vehicle describes the inspected vehicle.
type Vehicle struct {
	Registration string
	Brand        string
	Model        string
	Type         string
}

// CreateInput carries the fields of a booking.
type CreateInput struct {
	Vehicle        Vehicle
	RequestedAt    time.Time
	Notes          string
	IdempotencyKey string
}

// VehicleSummary is one row of the customer's vehicle overview.
type VehicleSummary struct {
	Appointment            repository.Appointment
	BookingPaid            bool
	InspectionPaid         bool
	HasReport              bool
	CanDownloadCertificate bool
}

// Config holds the lifecycle tunables.
type Config struct {
	VerifyTimeout time.Duration
	Location      *time.Location
}

// Service provides business logic for appointments
type Service struct {
	repo        repository.AppointmentRepository
	payments    PaymentVerifier
	inspections InspectionReader
	reminders   ReminderScheduler
	eventBus    events.Bus
	log         *logger.Logger
	cfg         Config
	now         func() time.Time
}

// New creates a new appointments service
func New(repo repository.AppointmentRepository, payments PaymentVerifier, eventBus events.Bus, log *logger.Logger, cfg Config) *Service {
	if cfg.VerifyTimeout <= 0 {
		cfg.VerifyTimeout = 3 * time.Second
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Service{
		repo:     repo,
		payments: payments,
		eventBus: eventBus,
		log:      log,
		cfg:      cfg,
		now:      time.Now,
	}
}

// SetInspectionReader wires the inspection port after both modules exist.
func (s *Service) SetInspectionReader(r InspectionReader) {
	s.inspections = r
}

// SetReminderScheduler enables reminders when Redis is configured.
func (s *Service) SetReminderScheduler(r ReminderScheduler) {
	s.reminders = r
}

// Create books a pending appointment on a free slot of the published schedule.
func (s *Service) Create(ctx context.Context, actor authz.Actor, in CreateInput) (*repository.Appointment, error) {
	if err := authz.Authorize(authz.OpAppointmentCreate, actor); err != nil {
		return nil, err
	}

	vehicle, err := normalizeVehicle(in.Vehicle)
	if err != nil {
		return nil, err
	}

	requestedAt := in.RequestedAt.Truncate(time.Second)
	if !requestedAt.After(s.now()) {
		return nil, apperr.Validation("requested time must be in the future").WithDetails(map[string]string{"reason": "past"})
	}
	if !IsSlotStart(requestedAt, s.cfg.Location) {
		return nil, apperr.Validation("requested time is not a published slot").WithDetails(map[string]string{"reason": "off_schedule"})
	}

	key := strings.TrimSpace(in.IdempotencyKey)
	if key != "" {
		existing, err := s.repo.FindByIdempotencyKey(ctx, actor.ID, key)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return existing, nil
		}
	}

	now := s.now()
	appt := &repository.Appointment{
		ID:                  uuid.New(),
		CustomerID:          actor.ID,
		VehicleRegistration: vehicle.Registration,
		VehicleBrand:        vehicle.Brand,
		VehicleModel:        vehicle.Model,
		VehicleType:         vehicle.Type,
		RequestedAt:         requestedAt,
		Status:              repository.StatusPending,
		InspectionStatus:    repository.InspectionNotChecked,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if notes := sanitize.Text(in.Notes); notes != "" {
		appt.Notes = &notes
	}
	if key != "" {
		appt.IdempotencyKey = &key
	}

	if err := s.repo.CreateInSlot(ctx, appt, SlotDuration); err != nil {
		switch {
		case errors.Is(err, repository.ErrSlotTaken):
			return nil, apperr.Validation("requested slot is no longer available").WithDetails(map[string]string{"reason": "slot_taken"})
		case errors.Is(err, repository.ErrIdempotencyReplay):
			existing, findErr := s.repo.FindByIdempotencyKey(ctx, actor.ID, key)
			if findErr != nil {
				return nil, findErr
			}
			if existing != nil {
				return existing, nil
			}
		}
		return nil, err
	}

	s.eventBus.Publish(ctx, events.AppointmentCreated{
		BaseEvent:     events.NewBaseEvent(),
		AppointmentID: appt.ID,
		CustomerID:    appt.CustomerID,
		Registration:  appt.VehicleRegistration,
		RequestedAt:   appt.RequestedAt,
	})
	return appt, nil
}

// Confirm moves a pending appointment to confirmed after re-verifying with the
// payment ledger that bookingPaymentID is a completed booking fee of this
// appointment. Any doubt about the payment fails closed.
func (s *Service) Confirm(ctx context.Context, actor authz.Actor, appointmentID, bookingPaymentID uuid.UUID) (*repository.Appointment, error) {
	if err := authz.Authorize(authz.OpAppointmentConfirm, actor); err != nil {
		return nil, err
	}

	appt, err := s.repo.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if err := checkOwner(actor, appt); err != nil {
		return nil, err
	}
	if err := confirmable(*appt, bookingPaymentID); err != nil {
		return nil, err
	}
	if sameBookingPayment(*appt, bookingPaymentID) {
		return appt, nil
	}

	if err := s.verifyPayment(ctx, appointmentID, bookingPaymentID, paymentTypeBookingFee); err != nil {
		return nil, err
	}

	confirmedAt := s.now()
	updated, changed, err := s.repo.Transition(ctx, appointmentID, func(current repository.Appointment) (*repository.Appointment, error) {
		if err := confirmable(current, bookingPaymentID); err != nil {
			return nil, err
		}
		if current.Status == repository.StatusConfirmed {
			return nil, nil
		}
		next := current
		next.Status = repository.StatusConfirmed
		next.BookingPaymentID = &bookingPaymentID
		next.ConfirmedAt = &confirmedAt
		return &next, nil
	})
	if err != nil {
		return nil, err
	}
	if !changed {
		return updated, nil
	}

	s.log.WithContext(ctx).Transition("appointment", updated.ID.String(), repository.StatusPending, repository.StatusConfirmed)
	s.eventBus.Publish(ctx, events.AppointmentConfirmed{
		BaseEvent:        events.NewBaseEvent(),
		AppointmentID:    updated.ID,
		CustomerID:       updated.CustomerID,
		BookingPaymentID: bookingPaymentID,
		Registration:     updated.VehicleRegistration,
		RequestedAt:      updated.RequestedAt,
	})
	s.scheduleReminder(ctx, updated)
	return updated, nil
}

// confirmable rejects terminal appointments and confirmed appointments that
// are bound to another payment.
func confirmable(a repository.Appointment, paymentID uuid.UUID) error {
	switch a.Status {
	case repository.StatusPending:
		return nil
	case repository.StatusConfirmed:
		if sameBookingPayment(a, paymentID) {
			return nil
		}
		return apperr.PaymentNotVerified("appointment is already confirmed with another payment")
	default:
		return apperr.InvalidState("cannot confirm a " + a.Status + " appointment")
	}
}

func sameBookingPayment(a repository.Appointment, paymentID uuid.UUID) bool {
	return a.Status == repository.StatusConfirmed && a.BookingPaymentID != nil && *a.BookingPaymentID == paymentID
}

// verifyPayment asks the ledger, within the verify timeout, whether paymentID
// is a completed payment of paymentType for appointmentID.
func (s *Service) verifyPayment(ctx context.Context, appointmentID, paymentID uuid.UUID, paymentType string) error {
	if s.payments == nil {
		return apperr.PaymentNotVerified("payment ledger unavailable")
	}
	verifyCtx, cancel := context.WithTimeout(ctx, s.cfg.VerifyTimeout)
	defer cancel()

	record, err := s.payments.LookupPayment(verifyCtx, paymentID)
	if err != nil {
		s.log.WithContext(ctx).Warn("payment verification failed",
			"appointment_id", appointmentID, "payment_id", paymentID, "error", err)
		return apperr.Wrap(apperr.KindPaymentNotVerified, "payment could not be verified", err)
	}
	if record == nil ||
		record.ID != paymentID ||
		record.AppointmentID != appointmentID ||
		record.PaymentType != paymentType ||
		record.Status != paymentStatusCompleted {
		return apperr.PaymentNotVerified("payment is not a completed " + paymentType + " for this appointment")
	}
	return nil
}

// Cancel moves a pending or confirmed appointment to cancelled. Cancelling a
// cancelled appointment returns it unchanged.
func (s *Service) Cancel(ctx context.Context, actor authz.Actor, appointmentID uuid.UUID) (*repository.Appointment, error) {
	if err := authz.Authorize(authz.OpAppointmentCancel, actor); err != nil {
		return nil, err
	}

	var previous string
	cancelledAt := s.now()
	updated, changed, err := s.repo.Transition(ctx, appointmentID, func(current repository.Appointment) (*repository.Appointment, error) {
		if err := checkOwner(actor, &current); err != nil {
			return nil, err
		}
		switch current.Status {
		case repository.StatusCancelled:
			return nil, nil
		case repository.StatusCompleted:
			return nil, apperr.InvalidState("cannot cancel a completed appointment")
		}
		previous = current.Status
		next := current
		next.Status = repository.StatusCancelled
		next.CancelledAt = &cancelledAt
		return &next, nil
	})
	if err != nil {
		return nil, err
	}
	if !changed {
		return updated, nil
	}

	s.log.WithContext(ctx).Transition("appointment", updated.ID.String(), previous, repository.StatusCancelled)
	s.eventBus.Publish(ctx, events.AppointmentCancelled{
		BaseEvent:     events.NewBaseEvent(),
		AppointmentID: updated.ID,
		CustomerID:    updated.CustomerID,
		ActorID:       actor.ID,
		Registration:  updated.VehicleRegistration,
		RequestedAt:   updated.RequestedAt,
	})
	return updated, nil
}

// RecordInspectionOutcome stores the inspection status of a confirmed
// appointment. A terminal verdict completes the appointment.
func (s *Service) RecordInspectionOutcome(ctx context.Context, actor authz.Actor, appointmentID uuid.UUID, inspectionStatus string) (*repository.Appointment, error) {
	if err := authz.Authorize(authz.OpAppointmentRecordOutcome, actor); err != nil {
		return nil, err
	}
	if inspectionStatus != repository.InspectionInProgress && !IsVerdict(inspectionStatus) {
		return nil, apperr.Validation("unknown inspection status " + inspectionStatus)
	}

	updated, changed, err := s.repo.Transition(ctx, appointmentID, func(current repository.Appointment) (*repository.Appointment, error) {
		if current.Status != repository.StatusConfirmed {
			return nil, apperr.InvalidState("inspection outcome requires a confirmed appointment, got " + current.Status)
		}
		return s.applyOutcome(current, inspectionStatus), nil
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.publishOutcome(ctx, updated)
	}
	return updated, nil
}

// MarkInspectionInProgress flags a confirmed appointment as being inspected.
func (s *Service) MarkInspectionInProgress(ctx context.Context, actor authz.Actor, appointmentID uuid.UUID) (*repository.Appointment, error) {
	if err := authz.Authorize(authz.OpAppointmentRecordOutcome, actor); err != nil {
		return nil, err
	}

	updated, changed, err := s.repo.Transition(ctx, appointmentID, func(current repository.Appointment) (*repository.Appointment, error) {
		if current.Status != repository.StatusConfirmed {
			return nil, apperr.InvalidState("inspection can only start on a confirmed appointment")
		}
		switch current.InspectionStatus {
		case repository.InspectionInProgress:
			return nil, nil
		case repository.InspectionNotChecked:
			next := current
			next.InspectionStatus = repository.InspectionInProgress
			return &next, nil
		default:
			return nil, apperr.InvalidState("inspection already has a verdict")
		}
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.publishOutcome(ctx, updated)
	}
	return updated, nil
}

// Reconcile applies a verdict found in the inspection store to an appointment
// that missed it. It returns whether the appointment changed and is safe to
// repeat.
func (s *Service) Reconcile(ctx context.Context, appointmentID uuid.UUID, verdict string) (bool, error) {
	if !IsVerdict(verdict) {
		return false, apperr.Validation("reconcile requires a terminal verdict")
	}

	updated, changed, err := s.repo.Transition(ctx, appointmentID, func(current repository.Appointment) (*repository.Appointment, error) {
		switch current.Status {
		case repository.StatusConfirmed:
			return s.applyOutcome(current, verdict), nil
		case repository.StatusCompleted:
			if current.InspectionStatus == verdict {
				return nil, nil
			}
			return nil, apperr.InvalidState("appointment completed with verdict " + current.InspectionStatus)
		default:
			return nil, apperr.InvalidState("cannot reconcile a " + current.Status + " appointment")
		}
	})
	if err != nil {
		return false, err
	}
	if changed {
		s.log.WithContext(ctx).Info("appointment reconciled", "appointment_id", appointmentID, "verdict", verdict)
		s.publishOutcome(ctx, updated)
	}
	return changed, nil
}

func (s *Service) applyOutcome(current repository.Appointment, inspectionStatus string) *repository.Appointment {
	if current.InspectionStatus == inspectionStatus {
		return nil
	}
	next := current
	next.InspectionStatus = inspectionStatus
	if IsVerdict(inspectionStatus) {
		completedAt := s.now()
		next.Status = repository.StatusCompleted
		next.CompletedAt = &completedAt
	}
	return &next
}

func (s *Service) publishOutcome(ctx context.Context, a *repository.Appointment) {
	completed := a.Status == repository.StatusCompleted
	if completed {
		s.log.WithContext(ctx).Transition("appointment", a.ID.String(), repository.StatusConfirmed, repository.StatusCompleted)
	}
	s.eventBus.Publish(ctx, events.InspectionOutcomeRecorded{
		BaseEvent:        events.NewBaseEvent(),
		AppointmentID:    a.ID,
		CustomerID:       a.CustomerID,
		Registration:     a.VehicleRegistration,
		InspectionStatus: a.InspectionStatus,
		Completed:        completed,
	})
	if completed {
		s.eventBus.Publish(ctx, events.AppointmentCompleted{
			BaseEvent:     events.NewBaseEvent(),
			AppointmentID: a.ID,
			CustomerID:    a.CustomerID,
			Registration:  a.VehicleRegistration,
			Verdict:       a.InspectionStatus,
		})
	}
}

// AttachInspectionPayment records the settled inspection fee on the appointment.
func (s *Service) AttachInspectionPayment(ctx context.Context, appointmentID, paymentID uuid.UUID) (*repository.Appointment, error) {
	if err := s.verifyPayment(ctx, appointmentID, paymentID, paymentTypeInspectionFee); err != nil {
		return nil, err
	}

	updated, _, err := s.repo.Transition(ctx, appointmentID, func(current repository.Appointment) (*repository.Appointment, error) {
		if current.Status != repository.StatusConfirmed && current.Status != repository.StatusCompleted {
			return nil, apperr.InvalidState("inspection fee requires a confirmed or completed appointment")
		}
		if current.InspectionPaymentID != nil && *current.InspectionPaymentID == paymentID {
			return nil, nil
		}
		next := current
		next.InspectionPaymentID = &paymentID
		return &next, nil
	})
	return updated, err
}

// Get returns an appointment to its owner, staff or an administrator.
func (s *Service) Get(ctx context.Context, actor authz.Actor, id uuid.UUID) (*repository.Appointment, error) {
	if err := authz.Authorize(authz.OpAppointmentGet, actor); err != nil {
		return nil, err
	}
	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role == authz.RoleCustomer && appt.CustomerID != actor.ID {
		return nil, apperr.Forbidden("appointment belongs to another customer")
	}
	return appt, nil
}

// GetInternal is the lookup behind the appointment gateway port.
func (s *Service) GetInternal(ctx context.Context, id uuid.UUID) (*repository.Appointment, error) {
	return s.repo.GetByID(ctx, id)
}

// ListMine returns the caller's appointments, newest first.
func (s *Service) ListMine(ctx context.Context, actor authz.Actor) ([]repository.Appointment, error) {
	if err := authz.Authorize(authz.OpAppointmentListMine, actor); err != nil {
		return nil, err
	}
	return s.repo.ListByCustomer(ctx, actor.ID)
}

// ListAll returns one page of all appointments.
func (s *Service) ListAll(ctx context.Context, actor authz.Actor, status string, offset, limit int) ([]repository.Appointment, int, error) {
	if err := authz.Authorize(authz.OpAppointmentListAll, actor); err != nil {
		return nil, 0, err
	}
	var filter *string
	if status != "" {
		if !validStatus(status) {
			return nil, 0, apperr.Validation("unknown status " + status)
		}
		filter = &status
	}
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return s.repo.ListAll(ctx, filter, offset, limit)
}

// ListForTechnician returns every confirmed appointment, earliest first.
func (s *Service) ListForTechnician(ctx context.Context, actor authz.Actor) ([]repository.Appointment, error) {
	if err := authz.Authorize(authz.OpAppointmentListForTech, actor); err != nil {
		return nil, err
	}
	return s.repo.ListConfirmed(ctx)
}

// AvailableSlots returns the slot grid of one day.
func (s *Service) AvailableSlots(ctx context.Context, day time.Time) (DaySchedule, error) {
	from, to := dayBounds(day, s.cfg.Location)
	booked, err := s.repo.ListActiveBetween(ctx, from.Add(-SlotDuration), to.Add(SlotDuration))
	if err != nil {
		return DaySchedule{}, err
	}
	return buildDay(from, s.cfg.Location, booked, s.now()), nil
}

// WeeklySchedule returns seven consecutive days of slots starting at from.
func (s *Service) WeeklySchedule(ctx context.Context, from time.Time) ([]DaySchedule, error) {
	start, _ := dayBounds(from, s.cfg.Location)
	end := start.AddDate(0, 0, scheduleDays)
	booked, err := s.repo.ListActiveBetween(ctx, start.Add(-SlotDuration), end.Add(SlotDuration))
	if err != nil {
		return nil, err
	}

	now := s.now()
	days := make([]DaySchedule, 0, scheduleDays)
	for i := 0; i < scheduleDays; i++ {
		days = append(days, buildDay(start.AddDate(0, 0, i), s.cfg.Location, booked, now))
	}
	return days, nil
}

// MyVehicles summarizes payment and report state for each of the caller's
// appointments. Ledger or inspection lookups that fail are reported as false.
func (s *Service) MyVehicles(ctx context.Context, actor authz.Actor) ([]VehicleSummary, error) {
	if err := authz.Authorize(authz.OpAppointmentVehicles, actor); err != nil {
		return nil, err
	}
	appts, err := s.repo.ListByCustomer(ctx, actor.ID)
	if err != nil {
		return nil, err
	}

	summaries := make([]VehicleSummary, len(appts))
	var g errgroup.Group
	g.SetLimit(summaryLookupParallelism)
	for i, appt := range appts {
		g.Go(func() error {
			summary := VehicleSummary{Appointment: appt}
			if appt.Status != repository.StatusCancelled {
				summary.BookingPaid = s.hasCompletedPayment(ctx, appt.ID, paymentTypeBookingFee)
				summary.InspectionPaid = s.hasCompletedPayment(ctx, appt.ID, paymentTypeInspectionFee)
				summary.HasReport = s.hasReport(ctx, appt.ID)
			}
			summary.CanDownloadCertificate = summary.HasReport && summary.InspectionPaid && IsVerdict(appt.InspectionStatus)
			summaries[i] = summary
			return nil
		})
	}
	_ = g.Wait()
	return summaries, nil
}

func (s *Service) hasCompletedPayment(ctx context.Context, appointmentID uuid.UUID, paymentType string) bool {
	if s.payments == nil {
		return false
	}
	lookupCtx, cancel := context.WithTimeout(ctx, s.cfg.VerifyTimeout)
	defer cancel()
	record, err := s.payments.CompletedPayment(lookupCtx, appointmentID, paymentType)
	if err != nil {
		s.log.WithContext(ctx).Warn("payment lookup failed", "appointment_id", appointmentID, "error", err)
		return false
	}
	return record != nil && record.Status == paymentStatusCompleted
}

func (s *Service) hasReport(ctx context.Context, appointmentID uuid.UUID) bool {
	if s.inspections == nil {
		return false
	}
	lookupCtx, cancel := context.WithTimeout(ctx, s.cfg.VerifyTimeout)
	defer cancel()
	ok, err := s.inspections.HasInspection(lookupCtx, appointmentID)
	if err != nil {
		s.log.WithContext(ctx).Warn("inspection lookup failed", "appointment_id", appointmentID, "error", err)
		return false
	}
	return ok
}

func (s *Service) scheduleReminder(ctx context.Context, a *repository.Appointment) {
	if s.reminders == nil {
		return
	}
	runAt := a.RequestedAt.Add(-reminderLead)
	if !runAt.After(s.now()) {
		return
	}
	if err := s.reminders.ScheduleAppointmentReminder(ctx, a.ID, runAt); err != nil {
		s.log.WithContext(ctx).SideEffectDropped("appointment_reminder", err)
	}
}

func checkOwner(actor authz.Actor, a *repository.Appointment) error {
	if actor.IsAdmin() || a.CustomerID == actor.ID {
		return nil
	}
	return apperr.Forbidden("appointment belongs to another customer")
}

// IsVerdict reports whether status is a terminal inspection verdict.
func IsVerdict(status string) bool {
	switch status {
	case repository.InspectionPassed, repository.InspectionPassedWithMinorIssues, repository.InspectionFailed:
		return true
	}
	return false
}

func validStatus(status string) bool {
	switch status {
	case repository.StatusPending, repository.StatusConfirmed, repository.StatusCompleted, repository.StatusCancelled:
		return true
	}
	return false
}

func normalizeVehicle(v Vehicle) (Vehicle, error) {
	out := Vehicle{
		Registration: sanitize.Registration(v.Registration),
		Brand:        sanitize.Text(v.Brand),
		Model:        sanitize.Text(v.Model),
		Type:         strings.ToLower(strings.TrimSpace(v.Type)),
	}
	if n := len(out.Registration); n < minRegistrationLength || n > maxRegistrationLength {
		return Vehicle{}, apperr.Validation("registration must be 4 to 15 characters")
	}
	switch out.Type {
	case "car", "motorcycle", "truck", "van":
	default:
		return Vehicle{}, apperr.Validation("vehicle type must be car, motorcycle, truck or van")
	}
	if out.Brand == "" || out.Model == "" {
		return Vehicle{}, apperr.Validation("vehicle brand and model are required")
	}
	return out, nil
}

// ParseDay reads a YYYY-MM-DD date in the schedule time zone. An empty value
// means today.
func (s *Service) ParseDay(value string) (time.Time, error) {
	if value == "" {
		return s.now().In(s.cfg.Location), nil
	}
	day, err := time.ParseInLocation(dateLayout, value, s.cfg.Location)
	if err != nil {
		return time.Time{}, apperr.Validation("date must be formatted as YYYY-MM-DD")
	}
	return day, nil
}
