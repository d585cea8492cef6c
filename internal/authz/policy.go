// Package authz holds the single authorization policy of the lifecycle
// services. Every service operation evaluates Authorize once at its entry.
package authz

import (
	"vehicle_inspection_backend/platform/apperr"
	"vehicle_inspection_backend/platform/httpkit"

	"github.com/google/uuid"
)

// Role is the coarse-grained role carried in access tokens.
type Role string

const (
	RoleCustomer   Role = "customer"
	RoleTechnician Role = "technician"
	RoleAdmin      Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleTechnician, RoleAdmin:
		return true
	}
	return false
}

// Actor is the verified caller of an operation.
type Actor struct {
	ID   uuid.UUID
	Role Role
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// Operation names a guarded entry point.
type Operation string

const (
	OpAppointmentCreate        Operation = "appointment.create"
	OpAppointmentGet           Operation = "appointment.get"
	OpAppointmentListMine      Operation = "appointment.list_mine"
	OpAppointmentListAll       Operation = "appointment.list_all"
	OpAppointmentConfirm       Operation = "appointment.confirm"
	OpAppointmentCancel        Operation = "appointment.cancel"
	OpAppointmentRecordOutcome Operation = "appointment.record_outcome"
	OpAppointmentListForTech   Operation = "appointment.list_for_technician"
	OpAppointmentVehicles      Operation = "appointment.vehicles"

	OpPaymentInitiate Operation = "payment.initiate"
	OpPaymentSettle   Operation = "payment.settle"
	OpPaymentGet      Operation = "payment.get"
	OpPaymentList     Operation = "payment.list"
	OpPaymentVerify   Operation = "payment.verify"

	OpInspectionSubmit      Operation = "inspection.submit"
	OpInspectionGet         Operation = "inspection.get"
	OpInspectionListAll     Operation = "inspection.list_all"
	OpInspectionStats       Operation = "inspection.stats"
	OpInspectionListForTech Operation = "inspection.list_by_technician"
	OpInspectionCertificate Operation = "inspection.certificate"

	OpFileStore  Operation = "file.store"
	OpFileRead   Operation = "file.read"
	OpFileDelete Operation = "file.delete"
	OpFileStats  Operation = "file.stats"

	OpNotificationInbox Operation = "notification.inbox"

	OpAuditRead    Operation = "audit.read"
	OpAuditCleanup Operation = "audit.cleanup"

	OpUserAdmin Operation = "user.admin"
)

var (
	anyRole      = []Role{RoleCustomer, RoleTechnician, RoleAdmin}
	customerSide = []Role{RoleCustomer, RoleAdmin}
	staff        = []Role{RoleTechnician, RoleAdmin}
	adminOnly    = []Role{RoleAdmin}
)

var policy = map[Operation][]Role{
	OpAppointmentCreate:        customerSide,
	OpAppointmentGet:           anyRole,
	OpAppointmentListMine:      customerSide,
	OpAppointmentListAll:       adminOnly,
	OpAppointmentConfirm:       customerSide,
	OpAppointmentCancel:        customerSide,
	OpAppointmentRecordOutcome: staff,
	OpAppointmentListForTech:   staff,
	OpAppointmentVehicles:      customerSide,

	OpPaymentInitiate: customerSide,
	OpPaymentSettle:   customerSide,
	OpPaymentGet:      anyRole,
	OpPaymentList:     anyRole,
	OpPaymentVerify:   anyRole,

	OpInspectionSubmit:      {RoleTechnician},
	OpInspectionGet:         anyRole,
	OpInspectionListAll:     adminOnly,
	OpInspectionStats:       adminOnly,
	OpInspectionListForTech: staff,
	OpInspectionCertificate: customerSide,

	OpFileStore:  anyRole,
	OpFileRead:   anyRole,
	OpFileDelete: anyRole,
	OpFileStats:  adminOnly,

	OpNotificationInbox: anyRole,

	OpAuditRead:    adminOnly,
	OpAuditCleanup: adminOnly,

	OpUserAdmin: adminOnly,
}

// Allowed reports whether role may perform op. Unknown operations are denied.
func Allowed(op Operation, role Role) bool {
	for _, r := range policy[op] {
		if r == role {
			return true
		}
	}
	return false
}

// Authorize returns Unauthorized for an anonymous actor and Forbidden when the
// policy does not grant op to the actor's role.
func Authorize(op Operation, actor Actor) error {
	if actor.ID == uuid.Nil || !actor.Role.Valid() {
		return apperr.Unauthorized("authentication required").WithOp(string(op))
	}
	if !Allowed(op, actor.Role) {
		return apperr.Forbidden("role " + string(actor.Role) + " may not perform " + string(op)).WithOp(string(op))
	}
	return nil
}

// System is the actor used by background jobs and in-process reactions.
func System() Actor {
	return Actor{ID: systemID, Role: RoleAdmin}
}

var systemID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

// IsSystem reports whether a is the background actor.
func (a Actor) IsSystem() bool { return a.ID == systemID }

// FromIdentity converts the HTTP identity into an Actor.
func FromIdentity(id httpkit.Identity) Actor {
	if id == nil || !id.IsAuthenticated() {
		return Actor{}
	}
	return Actor{ID: id.UserID(), Role: Role(id.Role())}
}
