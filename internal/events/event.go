// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"vehicle_inspection_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Auth Domain Events
// =============================================================================

// UserRegistered is published when a new account is created.
type UserRegistered struct {
	BaseEvent
	UserID uuid.UUID `json:"userId"`
	Email  string    `json:"email"`
	Role   string    `json:"role"`
}

func (e UserRegistered) EventName() string { return "auth.user.registered" }

// UserRoleChanged is published when an administrator changes an account's role.
type UserRoleChanged struct {
	BaseEvent
	UserID  uuid.UUID `json:"userId"`
	ActorID uuid.UUID `json:"actorId"`
	OldRole string    `json:"oldRole"`
	NewRole string    `json:"newRole"`
}

func (e UserRoleChanged) EventName() string { return "auth.user.role_changed" }

// =============================================================================
// Appointment Domain Events
// =============================================================================

// AppointmentCreated is published when a customer books a slot.
type AppointmentCreated struct {
	BaseEvent
	AppointmentID uuid.UUID `json:"appointmentId"`
	CustomerID    uuid.UUID `json:"customerId"`
	Registration  string    `json:"registration"`
	RequestedAt   time.Time `json:"requestedAt"`
}

func (e AppointmentCreated) EventName() string { return "appointments.created" }

// AppointmentConfirmed is published once the booking fee was verified.
type AppointmentConfirmed struct {
	BaseEvent
	AppointmentID    uuid.UUID `json:"appointmentId"`
	CustomerID       uuid.UUID `json:"customerId"`
	BookingPaymentID uuid.UUID `json:"bookingPaymentId"`
	Registration     string    `json:"registration"`
	RequestedAt      time.Time `json:"requestedAt"`
}

func (e AppointmentConfirmed) EventName() string { return "appointments.confirmed" }

// AppointmentCancelled is published when an appointment moves to cancelled.
type AppointmentCancelled struct {
	BaseEvent
	AppointmentID uuid.UUID `json:"appointmentId"`
	CustomerID    uuid.UUID `json:"customerId"`
	ActorID       uuid.UUID `json:"actorId"`
	Registration  string    `json:"registration"`
	RequestedAt   time.Time `json:"requestedAt"`
}

func (e AppointmentCancelled) EventName() string { return "appointments.cancelled" }

// InspectionOutcomeRecorded is published when an appointment's inspection
// status changes. Completed is true when the verdict closed the appointment.
type InspectionOutcomeRecorded struct {
	BaseEvent
	AppointmentID    uuid.UUID `json:"appointmentId"`
	CustomerID       uuid.UUID `json:"customerId"`
	Registration     string    `json:"registration"`
	InspectionStatus string    `json:"inspectionStatus"`
	Completed        bool      `json:"completed"`
}

func (e InspectionOutcomeRecorded) EventName() string { return "appointments.inspection_outcome_recorded" }

// AppointmentCompleted is published when a terminal verdict closed an appointment.
type AppointmentCompleted struct {
	BaseEvent
	AppointmentID uuid.UUID `json:"appointmentId"`
	CustomerID    uuid.UUID `json:"customerId"`
	Registration  string    `json:"registration"`
	Verdict       string    `json:"verdict"`
}

func (e AppointmentCompleted) EventName() string { return "appointments.completed" }

// AppointmentReminderDue is published by the scheduler worker shortly before a
// confirmed appointment.
type AppointmentReminderDue struct {
	BaseEvent
	AppointmentID uuid.UUID `json:"appointmentId"`
	CustomerID    uuid.UUID `json:"customerId"`
	Registration  string    `json:"registration"`
	RequestedAt   time.Time `json:"requestedAt"`
}

func (e AppointmentReminderDue) EventName() string { return "appointments.reminder_due" }

// =============================================================================
// Payment Domain Events
// =============================================================================

// PaymentCompleted is published after a payment settled successfully.
type PaymentCompleted struct {
	BaseEvent
	PaymentID     uuid.UUID `json:"paymentId"`
	AppointmentID uuid.UUID `json:"appointmentId"`
	PayerID       uuid.UUID `json:"payerId"`
	PaymentType   string    `json:"paymentType"`
	Amount        float64   `json:"amount"`
	InvoiceNumber *string   `json:"invoiceNumber,omitempty"`
}

func (e PaymentCompleted) EventName() string { return "payments.completed" }

// PaymentFailed is published after a payment settled as failed.
type PaymentFailed struct {
	BaseEvent
	PaymentID     uuid.UUID `json:"paymentId"`
	AppointmentID uuid.UUID `json:"appointmentId"`
	PayerID       uuid.UUID `json:"payerId"`
	PaymentType   string    `json:"paymentType"`
}

func (e PaymentFailed) EventName() string { return "payments.failed" }

// =============================================================================
// Inspection Domain Events
// =============================================================================

// InspectionSubmitted is published after an inspection record was stored.
// AppointmentSynced is false when the appointment update did not go through
// and is left to the reconciler.
type InspectionSubmitted struct {
	BaseEvent
	InspectionID      uuid.UUID `json:"inspectionId"`
	AppointmentID     uuid.UUID `json:"appointmentId"`
	TechnicianID      uuid.UUID `json:"technicianId"`
	FinalStatus       string    `json:"finalStatus"`
	AppointmentSynced bool      `json:"appointmentSynced"`
}

func (e InspectionSubmitted) EventName() string { return "inspections.submitted" }

// =============================================================================
// File Domain Events
// =============================================================================

// FileStored is published after an upload was persisted.
type FileStored struct {
	BaseEvent
	FileID     uuid.UUID `json:"fileId"`
	OwnerRef   uuid.UUID `json:"ownerRef"`
	Category   string    `json:"category"`
	UploadedBy uuid.UUID `json:"uploadedBy"`
	SizeBytes  int64     `json:"sizeBytes"`
}

func (e FileStored) EventName() string { return "files.stored" }

// FileDeleted is published after an upload was removed.
type FileDeleted struct {
	BaseEvent
	FileID  uuid.UUID `json:"fileId"`
	ActorID uuid.UUID `json:"actorId"`
}

func (e FileDeleted) EventName() string { return "files.deleted" }

// =============================================================================
// Notification Infrastructure Events
// =============================================================================

// NotificationOutboxDue is published by the scheduler worker when an outbox
// row is ready for delivery.
type NotificationOutboxDue struct {
	BaseEvent
	OutboxID uuid.UUID `json:"outboxId"`
}

func (e NotificationOutboxDue) EventName() string { return "notification.outbox.due" }
