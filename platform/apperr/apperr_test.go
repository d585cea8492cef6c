package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatusByKind(t *testing.T) {
	cases := []struct {
		err  *Error
		want int
	}{
		{NotFound("x"), http.StatusNotFound},
		{Validation("x"), http.StatusBadRequest},
		{InvalidState("x"), http.StatusConflict},
		{DuplicatePayment("x"), http.StatusConflict},
		{AlreadyInspected("x"), http.StatusConflict},
		{PaymentNotVerified("x"), http.StatusUnprocessableEntity},
		{PayloadTooLarge("x"), http.StatusRequestEntityTooLarge},
		{PaymentRequired("x"), http.StatusPaymentRequired},
		{Unauthorized("x"), http.StatusUnauthorized},
		{Forbidden("x"), http.StatusForbidden},
	}

	for _, tc := range cases {
		if got := tc.err.HTTPStatus(); got != tc.want {
			t.Fatalf("kind %s: expected status %d, got %d", tc.err.Kind, tc.want, got)
		}
	}
}

func TestIsUnwrapsWrappedErrors(t *testing.T) {
	base := AlreadyInspected("inspection already recorded")
	wrapped := fmt.Errorf("submit: %w", base)

	if !Is(wrapped, KindAlreadyInspected) {
		t.Fatalf("expected wrapped error to report already_inspected kind")
	}
	if Is(errors.New("plain"), KindAlreadyInspected) {
		t.Fatalf("plain error must not match a domain kind")
	}
}

func TestKindCode(t *testing.T) {
	if got := KindPaymentNotVerified.Code(); got != "payment_not_verified" {
		t.Fatalf("unexpected code %q", got)
	}
	if got := Kind(999).Code(); got != "unknown" {
		t.Fatalf("unexpected code for unknown kind %q", got)
	}
}
