package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"vehicle_inspection_backend/internal/audit/repository"
	"vehicle_inspection_backend/internal/events"

	"github.com/google/uuid"
)

// Recorder accepts audit entries without reporting failures.
type Recorder interface {
	Record(ctx context.Context, e repository.Entry)
}

// auditedEvents lists every domain event that lands in the audit log.
var auditedEvents = []events.Event{
	events.UserRegistered{},
	events.UserRoleChanged{},
	events.AppointmentCreated{},
	events.AppointmentConfirmed{},
	events.AppointmentCancelled{},
	events.InspectionOutcomeRecorded{},
	events.AppointmentCompleted{},
	events.AppointmentReminderDue{},
	events.PaymentCompleted{},
	events.PaymentFailed{},
	events.InspectionSubmitted{},
	events.FileStored{},
	events.FileDeleted{},
}

// Subscriber turns domain events into audit entries.
type Subscriber struct {
	recorder Recorder
}

func NewSubscriber(recorder Recorder) *Subscriber {
	return &Subscriber{recorder: recorder}
}

// Register subscribes to every audited event.
func (s *Subscriber) Register(bus events.Bus) {
	for _, e := range auditedEvents {
		bus.Subscribe(e.EventName(), s)
	}
}

// Handle records the event. It never fails the publisher.
func (s *Subscriber) Handle(ctx context.Context, event events.Event) error {
	s.recorder.Record(ctx, entryFor(event))
	return nil
}

func entryFor(event events.Event) repository.Entry {
	name := event.EventName()
	e := repository.Entry{
		Service:    serviceOf(name),
		EventType:  name,
		Level:      repository.LevelInfo,
		OccurredAt: event.OccurredAt().UTC(),
	}
	if detail, err := json.Marshal(event); err == nil {
		e.Detail = detail
	}

	switch ev := event.(type) {
	case events.UserRegistered:
		e.ActorID = actor(ev.UserID)
		e.SubjectRef = subject(ev.UserID)
		e.Message = fmt.Sprintf("account registered with role %s", ev.Role)
	case events.UserRoleChanged:
		e.ActorID = actor(ev.ActorID)
		e.SubjectRef = subject(ev.UserID)
		e.Level = repository.LevelWarning
		e.Message = fmt.Sprintf("role changed from %s to %s", ev.OldRole, ev.NewRole)
	case events.AppointmentCreated:
		e.ActorID = actor(ev.CustomerID)
		e.SubjectRef = subject(ev.AppointmentID)
		e.Message = fmt.Sprintf("appointment booked for %s", ev.Registration)
	case events.AppointmentConfirmed:
		e.ActorID = actor(ev.CustomerID)
		e.SubjectRef = subject(ev.AppointmentID)
		e.Message = fmt.Sprintf("appointment confirmed with payment %s", ev.BookingPaymentID)
	case events.AppointmentCancelled:
		e.ActorID = actor(ev.ActorID)
		e.SubjectRef = subject(ev.AppointmentID)
		e.Message = fmt.Sprintf("appointment for %s cancelled", ev.Registration)
	case events.InspectionOutcomeRecorded:
		e.SubjectRef = subject(ev.AppointmentID)
		e.Message = fmt.Sprintf("inspection status set to %s", ev.InspectionStatus)
	case events.AppointmentCompleted:
		e.SubjectRef = subject(ev.AppointmentID)
		e.Message = fmt.Sprintf("appointment completed with verdict %s", ev.Verdict)
		if ev.Verdict == "failed" {
			e.Level = repository.LevelWarning
		}
	case events.AppointmentReminderDue:
		e.Level = repository.LevelDebug
		e.SubjectRef = subject(ev.AppointmentID)
		e.Message = "appointment reminder due"
	case events.PaymentCompleted:
		e.ActorID = actor(ev.PayerID)
		e.SubjectRef = subject(ev.PaymentID)
		e.Message = fmt.Sprintf("%s of %.2f completed", ev.PaymentType, ev.Amount)
	case events.PaymentFailed:
		e.ActorID = actor(ev.PayerID)
		e.SubjectRef = subject(ev.PaymentID)
		e.Level = repository.LevelWarning
		e.Message = fmt.Sprintf("%s failed", ev.PaymentType)
	case events.InspectionSubmitted:
		e.ActorID = actor(ev.TechnicianID)
		e.SubjectRef = subject(ev.InspectionID)
		e.Message = fmt.Sprintf("inspection submitted with verdict %s", ev.FinalStatus)
		if !ev.AppointmentSynced {
			e.Level = repository.LevelError
			e.Message += "; appointment not updated, awaiting reconciliation"
		}
	case events.FileStored:
		e.ActorID = actor(ev.UploadedBy)
		e.SubjectRef = subject(ev.FileID)
		e.Message = fmt.Sprintf("%s file stored (%d bytes)", ev.Category, ev.SizeBytes)
	case events.FileDeleted:
		e.ActorID = actor(ev.ActorID)
		e.SubjectRef = subject(ev.FileID)
		e.Message = "file deleted"
	default:
		e.Message = name
	}
	return e
}

// serviceOf returns the module prefix of an event name: "payments.completed" is "payments".
func serviceOf(eventName string) string {
	if i := strings.IndexByte(eventName, '.'); i > 0 {
		return eventName[:i]
	}
	return eventName
}

func actor(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}

func subject(id uuid.UUID) *string {
	if id == uuid.Nil {
		return nil
	}
	s := id.String()
	return &s
}
