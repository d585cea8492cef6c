package repository

import (
	"strings"
	"testing"
	"time"
)

func TestFormatInvoiceNumber(t *testing.T) {
	settled := time.Date(2026, 1, 9, 23, 30, 0, 0, time.UTC)
	if got := FormatInvoiceNumber(settled, 42); got != "INV-20260109-00000042" {
		t.Fatalf("unexpected invoice number %q", got)
	}
}

func TestLockPaymentQueryTakesRowLock(t *testing.T) {
	if !strings.Contains(strings.ToLower(lockPaymentQuery), "for update") {
		t.Fatal("settlement must lock the payment row")
	}
}

func TestFindCompletedQueryOnlyMatchesCompleted(t *testing.T) {
	query := strings.ToLower(findCompletedQuery)
	for _, fragment := range []string{"appointment_id = $1", "payment_type = $2", "status = 'completed'"} {
		if !strings.Contains(query, fragment) {
			t.Fatalf("expected fragment %q", fragment)
		}
	}
}
