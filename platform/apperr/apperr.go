// Package apperr provides standardized domain error types for the application.
// Domain services return these typed errors, and the HTTP layer middleware
// automatically maps them to appropriate HTTP status codes.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind represents the category of error.
type Kind int

const (
	// KindUnknown is the default error kind when none is specified.
	KindUnknown Kind = iota
	// KindNotFound indicates a resource was not found.
	KindNotFound
	// KindValidation indicates invalid input data.
	KindValidation
	// KindConflict indicates a conflict with existing state (e.g., duplicate).
	KindConflict
	// KindForbidden indicates the action is not allowed for the user.
	KindForbidden
	// KindUnauthorized indicates authentication is required or failed.
	KindUnauthorized
	// KindBadRequest indicates a malformed or invalid request.
	KindBadRequest
	// KindInternal indicates an unexpected internal error.
	KindInternal
	// KindInvalidState indicates the operation is not legal for the entity's current state.
	KindInvalidState
	// KindPaymentNotVerified indicates the payment ledger did not confirm a required payment.
	KindPaymentNotVerified
	// KindDuplicatePayment indicates a completed payment already exists for the same purpose.
	KindDuplicatePayment
	// KindAlreadyInspected indicates an inspection record already exists for the appointment.
	KindAlreadyInspected
	// KindPayloadTooLarge indicates an upload exceeded the configured size limit.
	KindPayloadTooLarge
	// KindPaymentRequired indicates a fee must be settled before the resource is released.
	KindPaymentRequired
)

var kindCodes = map[Kind]string{
	KindUnknown:            "unknown",
	KindNotFound:           "not_found",
	KindValidation:         "validation",
	KindConflict:           "conflict",
	KindForbidden:          "forbidden",
	KindUnauthorized:       "unauthorized",
	KindBadRequest:         "bad_request",
	KindInternal:           "internal",
	KindInvalidState:       "invalid_state",
	KindPaymentNotVerified: "payment_not_verified",
	KindDuplicatePayment:   "duplicate_payment",
	KindAlreadyInspected:   "already_inspected",
	KindPayloadTooLarge:    "payload_too_large",
	KindPaymentRequired:    "payment_required",
}

// Code returns the machine-checkable identifier of the kind.
func (k Kind) Code() string {
	if code, ok := kindCodes[k]; ok {
		return code
	}
	return kindCodes[KindUnknown]
}

// String implements fmt.Stringer.
func (k Kind) String() string {
	return k.Code()
}

// Error is a domain error with a typed Kind for HTTP mapping.
type Error struct {
	Kind    Kind
	Message string
	Op      string      // Operation that failed (optional)
	Err     error       // Underlying error (optional)
	Details interface{} // Additional details for response (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the appropriate HTTP status code for this error kind.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation, KindBadRequest:
		return http.StatusBadRequest
	case KindConflict, KindInvalidState, KindDuplicatePayment, KindAlreadyInspected:
		return http.StatusConflict
	case KindForbidden:
		return http.StatusForbidden
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindInternal:
		return http.StatusInternalServerError
	case KindPaymentNotVerified:
		return http.StatusUnprocessableEntity
	case KindPayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case KindPaymentRequired:
		return http.StatusPaymentRequired
	default:
		return http.StatusBadRequest
	}
}

// New creates a new domain error with the given kind and message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates a new domain error wrapping an existing error.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// WithOp returns a copy of the error with the operation set.
func (e *Error) WithOp(op string) *Error {
	e.Op = op
	return e
}

// WithDetails returns a copy of the error with additional details.
func (e *Error) WithDetails(details interface{}) *Error {
	e.Details = details
	return e
}

// Convenience constructors for common error types.

// NotFound creates a not found error.
func NotFound(message string) *Error {
	return New(KindNotFound, message)
}

// Validation creates a validation error.
func Validation(message string) *Error {
	return New(KindValidation, message)
}

// Conflict creates a conflict error (e.g., duplicate resource).
func Conflict(message string) *Error {
	return New(KindConflict, message)
}

// Forbidden creates a forbidden error.
func Forbidden(message string) *Error {
	return New(KindForbidden, message)
}

// Unauthorized creates an unauthorized error.
func Unauthorized(message string) *Error {
	return New(KindUnauthorized, message)
}

// BadRequest creates a bad request error.
func BadRequest(message string) *Error {
	return New(KindBadRequest, message)
}

// Internal creates an internal server error.
func Internal(message string) *Error {
	return New(KindInternal, message)
}

// InvalidState creates an error for an illegal state transition.
func InvalidState(message string) *Error {
	return New(KindInvalidState, message)
}

// PaymentNotVerified creates an error for a payment the ledger could not confirm.
func PaymentNotVerified(message string) *Error {
	return New(KindPaymentNotVerified, message)
}

// DuplicatePayment creates an error for a redundant payment attempt.
func DuplicatePayment(message string) *Error {
	return New(KindDuplicatePayment, message)
}

// AlreadyInspected creates an error for a second inspection of the same appointment.
func AlreadyInspected(message string) *Error {
	return New(KindAlreadyInspected, message)
}

// PayloadTooLarge creates an error for an oversized upload.
func PayloadTooLarge(message string) *Error {
	return New(KindPayloadTooLarge, message)
}

// PaymentRequired creates an error for a resource gated on an unpaid fee.
func PaymentRequired(message string) *Error {
	return New(KindPaymentRequired, message)
}

// GetKind extracts the error kind from an error chain.
// Returns KindUnknown if no *Error is found.
func GetKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is checks if err is an *Error with the given kind.
func Is(err error, kind Kind) bool {
	return GetKind(err) == kind
}
