package service

import (
	"context"
	"errors"
	"time"

	"vehicle_inspection_backend/internal/authz"
	"vehicle_inspection_backend/internal/events"
	"vehicle_inspection_backend/internal/inspections/repository"
	"vehicle_inspection_backend/internal/pdf"
	"vehicle_inspection_backend/platform/apperr"
	"vehicle_inspection_backend/platform/logger"
	"vehicle_inspection_backend/platform/sanitize"

	"github.com/google/uuid"
)

const (
	appointmentStatusConfirmed = "confirmed"
	paymentTypeInspectionFee   = "inspection_fee"

	maxPhotos           = 20
	technicianListLimit = 50
	defaultPageSize     = 20
	maxPageSize         = 100
)

// SubmitInput carries a technician's inspection report.
type SubmitInput struct {
	AppointmentID uuid.UUID
	Checklist     repository.Checklist
	FinalStatus   string
	Notes         string
	PhotoIDs      []uuid.UUID
}

// SubmitResult is the stored record and whether the appointment already
// reflects it.
type SubmitResult struct {
	Inspection        repository.Inspection
	AppointmentSynced bool
}

// Stats counts inspections by final status.
type Stats struct {
	Total    int
	ByStatus map[string]int
}

// Certificate is a rendered certificate document.
type Certificate struct {
	Number   string
	Filename string
	Document []byte
}

// Service provides business logic for inspection records
type Service struct {
	repo         repository.InspectionRepository
	appointments AppointmentGateway
	payments     PaymentStatusReader
	contacts     ContactReader
	archive      CertificateArchiver
	eventBus     events.Bus
	log          *logger.Logger
	timeout      time.Duration
	now          func() time.Time
}

// New creates a new inspections service
func New(repo repository.InspectionRepository, appointments AppointmentGateway, payments PaymentStatusReader, eventBus events.Bus, log *logger.Logger, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Service{
		repo:         repo,
		appointments: appointments,
		payments:     payments,
		eventBus:     eventBus,
		log:          log,
		timeout:      timeout,
		now:          time.Now,
	}
}

// SetContactReader enables owner names on certificates.
func (s *Service) SetContactReader(c ContactReader) {
	s.contacts = c
}

// SetCertificateArchiver enables archiving of issued certificates.
func (s *Service) SetCertificateArchiver(a CertificateArchiver) {
	s.archive = a
}

// Submit stores the inspection of a confirmed appointment and then records the
// verdict on the appointment. The second step is not transactional with the
// first: when it fails the record is still returned with AppointmentSynced
// false and the reconciler finishes the job.
func (s *Service) Submit(ctx context.Context, actor authz.Actor, in SubmitInput) (*SubmitResult, error) {
	if err := authz.Authorize(authz.OpInspectionSubmit, actor); err != nil {
		return nil, err
	}
	if !IsVerdict(in.FinalStatus) {
		return nil, apperr.Validation("final_status must be passed, passed_with_minor_issues or failed")
	}
	checklist, err := NormalizeChecklist(in.Checklist)
	if err != nil {
		return nil, err
	}
	if len(in.PhotoIDs) > maxPhotos {
		return nil, apperr.Validation("too many photos")
	}

	appt, err := s.lookupAppointment(ctx, in.AppointmentID)
	if err != nil {
		return nil, err
	}
	// The stored record decides before the appointment status does: a first
	// submit moves the appointment to completed, and a repeat must still read
	// as a duplicate.
	existing, err := s.repo.FindByAppointment(ctx, in.AppointmentID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperr.AlreadyInspected("appointment already has an inspection record")
	}
	if appt.Status != appointmentStatusConfirmed {
		return nil, apperr.InvalidState("inspection requires a confirmed appointment, got " + appt.Status)
	}

	record := &repository.Inspection{
		ID:            uuid.New(),
		AppointmentID: in.AppointmentID,
		TechnicianID:  actor.ID,
		Checklist:     checklist,
		FinalStatus:   in.FinalStatus,
		PhotoIDs:      dedupe(in.PhotoIDs),
		CreatedAt:     s.now(),
	}
	if notes := sanitize.Text(in.Notes); notes != "" {
		record.Notes = &notes
	}

	if err := s.repo.Create(ctx, record); err != nil {
		if errors.Is(err, repository.ErrAlreadyInspected) {
			return nil, apperr.AlreadyInspected("appointment already has an inspection record")
		}
		return nil, err
	}

	synced := true
	outcomeCtx, cancel := context.WithTimeout(ctx, s.timeout)
	err = s.appointments.RecordInspectionOutcome(outcomeCtx, actor, in.AppointmentID, in.FinalStatus)
	cancel()
	if err != nil {
		synced = false
		s.log.WithContext(ctx).Warn("inspection stored but appointment not updated",
			"inspection_id", record.ID, "appointment_id", in.AppointmentID, "error", err)
	}

	s.eventBus.Publish(ctx, events.InspectionSubmitted{
		BaseEvent:         events.NewBaseEvent(),
		InspectionID:      record.ID,
		AppointmentID:     record.AppointmentID,
		TechnicianID:      record.TechnicianID,
		FinalStatus:       record.FinalStatus,
		AppointmentSynced: synced,
	})

	return &SubmitResult{Inspection: *record, AppointmentSynced: synced}, nil
}

func (s *Service) lookupAppointment(ctx context.Context, appointmentID uuid.UUID) (*AppointmentInfo, error) {
	lookupCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	appt, err := s.appointments.GetAppointment(lookupCtx, appointmentID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, err
		}
		s.log.WithContext(ctx).Warn("appointment lookup failed", "appointment_id", appointmentID, "error", err)
		return nil, apperr.Wrap(apperr.KindInternal, "appointment could not be verified", err)
	}
	return appt, nil
}

// FindByAppointment is the authoritative answer to whether an appointment was
// inspected. It returns nil when no record exists.
func (s *Service) FindByAppointment(ctx context.Context, appointmentID uuid.UUID) (*repository.Inspection, error) {
	return s.repo.FindByAppointment(ctx, appointmentID)
}

// ListCreatedAfter pages through inspections in creation order for the
// lifecycle sweep.
func (s *Service) ListCreatedAfter(ctx context.Context, since time.Time, afterID uuid.UUID, limit int) ([]repository.Inspection, error) {
	return s.repo.ListCreatedAfter(ctx, since, afterID, limit)
}

// GetByAppointment returns the inspection of an appointment to staff or to the
// appointment's owner.
func (s *Service) GetByAppointment(ctx context.Context, actor authz.Actor, appointmentID uuid.UUID) (*repository.Inspection, error) {
	if err := authz.Authorize(authz.OpInspectionGet, actor); err != nil {
		return nil, err
	}
	if err := s.checkReader(ctx, actor, appointmentID); err != nil {
		return nil, err
	}
	record, err := s.repo.FindByAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, apperr.NotFound("inspection not found for this appointment")
	}
	return record, nil
}

// Get returns one inspection to staff or to the appointment's owner.
func (s *Service) Get(ctx context.Context, actor authz.Actor, id uuid.UUID) (*repository.Inspection, error) {
	if err := authz.Authorize(authz.OpInspectionGet, actor); err != nil {
		return nil, err
	}
	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkReader(ctx, actor, record.AppointmentID); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *Service) checkReader(ctx context.Context, actor authz.Actor, appointmentID uuid.UUID) error {
	if actor.Role != authz.RoleCustomer {
		return nil
	}
	appt, err := s.lookupAppointment(ctx, appointmentID)
	if err != nil {
		return err
	}
	if appt.CustomerID != actor.ID {
		return apperr.Forbidden("inspection belongs to another customer")
	}
	return nil
}

// ListByTechnician returns a technician's most recent inspections. Technicians
// may only list their own.
func (s *Service) ListByTechnician(ctx context.Context, actor authz.Actor, technicianID uuid.UUID) ([]repository.Inspection, error) {
	if err := authz.Authorize(authz.OpInspectionListForTech, actor); err != nil {
		return nil, err
	}
	if actor.Role == authz.RoleTechnician && actor.ID != technicianID {
		return nil, apperr.Forbidden("technicians can only list their own inspections")
	}
	return s.repo.ListByTechnician(ctx, technicianID, technicianListLimit)
}

// ListAll returns one page of inspections for administrators.
func (s *Service) ListAll(ctx context.Context, actor authz.Actor, finalStatus string, offset, limit int) ([]repository.Inspection, int, error) {
	if err := authz.Authorize(authz.OpInspectionListAll, actor); err != nil {
		return nil, 0, err
	}
	var filter *string
	if finalStatus != "" {
		if !IsVerdict(finalStatus) {
			return nil, 0, apperr.Validation("unknown final status " + finalStatus)
		}
		filter = &finalStatus
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

// Stats counts inspections by final status.
func (s *Service) Stats(ctx context.Context, actor authz.Actor) (*Stats, error) {
	if err := authz.Authorize(authz.OpInspectionStats, actor); err != nil {
		return nil, err
	}
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	stats := &Stats{ByStatus: counts}
	for _, n := range counts {
		stats.Total += n
	}
	return stats, nil
}

// Certificate renders the inspection certificate of an appointment. It is
// released to the owner or an administrator once the inspection fee is paid.
func (s *Service) Certificate(ctx context.Context, actor authz.Actor, appointmentID uuid.UUID) (*Certificate, error) {
	if err := authz.Authorize(authz.OpInspectionCertificate, actor); err != nil {
		return nil, err
	}

	appt, err := s.lookupAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && appt.CustomerID != actor.ID {
		return nil, apperr.Forbidden("certificate belongs to another customer")
	}

	record, err := s.repo.FindByAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, apperr.NotFound("inspection not found for this appointment")
	}
	if !IsVerdict(record.FinalStatus) {
		return nil, apperr.InvalidState("inspection has no final verdict")
	}

	payment, err := s.inspectionFee(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	number := pdf.CertificateNumber(record.CreatedAt, record.ID.String())
	data := pdf.CertificateData{
		CertificateNumber:   number,
		InspectionID:        record.ID.String(),
		InspectedAt:         record.CreatedAt,
		IssuedAt:            s.now(),
		CustomerName:        s.displayName(ctx, appt.CustomerID),
		VehicleRegistration: appt.Registration,
		VehicleBrand:        appt.Brand,
		VehicleModel:        appt.Model,
		VehicleType:         appt.VehicleType,
		FinalStatus:         record.FinalStatus,
		Checks:              checkLines(record.Checklist),
		Notes:               record.Notes,
		InvoiceNumber:       payment.InvoiceNumber,
	}
	document, err := pdf.GenerateCertificate(data)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to render certificate", err)
	}

	if s.archive != nil {
		if err := s.archive.ArchiveCertificate(ctx, appointmentID, number, document); err != nil {
			s.log.WithContext(ctx).SideEffectDropped("certificate_archive", err)
		}
	}

	return &Certificate{
		Number:   number,
		Filename: "inspection_certificate_" + appt.Registration + ".pdf",
		Document: document,
	}, nil
}

func (s *Service) inspectionFee(ctx context.Context, appointmentID uuid.UUID) (*PaymentInfo, error) {
	if s.payments == nil {
		return nil, apperr.PaymentNotVerified("payment ledger unavailable")
	}
	lookupCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	payment, err := s.payments.CompletedPayment(lookupCtx, appointmentID, paymentTypeInspectionFee)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPaymentNotVerified, "inspection fee could not be verified", err)
	}
	if payment == nil {
		return nil, apperr.PaymentRequired("inspection fee must be paid before the certificate is released")
	}
	return payment, nil
}

func (s *Service) displayName(ctx context.Context, userID uuid.UUID) string {
	if s.contacts == nil {
		return ""
	}
	name, err := s.contacts.DisplayName(ctx, userID)
	if err != nil {
		s.log.WithContext(ctx).Warn("contact lookup failed", "user_id", userID, "error", err)
		return ""
	}
	return name
}

func checkLines(checklist repository.Checklist) []pdf.CheckLine {
	lines := make([]pdf.CheckLine, 0, len(checklist))
	for name, result := range checklist {
		lines = append(lines, pdf.CheckLine{Name: name, Status: result.Status, Note: result.Note})
	}
	return lines
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
