package billing

import (
	"time"

	"github.com/billing/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// paymentTolerance absorbs sub-cent rounding when comparing paid against total.
// An invoice is considered fully paid once coverage comes within one minor unit.
var paymentTolerance = decimal.NewFromFloat(0.01)

// DeriveInvoiceStatus maps an invoice's monetary state to its lifecycle status.
// It is pure: given the current status, the amount owed, the coverage (sum of
// completed payments), the due date and the evaluation time, it returns the
// status the invoice must carry.
//
// Rules:
//   - total must be positive; a zero-total invoice is rejected upstream
//   - cancelled is sticky and never recomputed
//   - coverage >= total (within one minor unit) -> paid
//   - 0 < coverage < total -> partially_paid, regardless of due date
//   - coverage == 0 past the due date -> overdue
//   - coverage == 0 otherwise -> current status unchanged
func DeriveInvoiceStatus(current InvoiceStatus, total, paid decimal.Decimal, dueDate *time.Time, now time.Time) (InvoiceStatus, error) {
	if total.LessThanOrEqual(decimal.Zero) {
		return "", shared.NewDomainError("INVALID_AMOUNT", "Invoice total amount must be positive")
	}
	if current == InvoiceStatusCancelled {
		return InvoiceStatusCancelled, nil
	}

	if paid.GreaterThanOrEqual(total.Sub(paymentTolerance)) {
		return InvoiceStatusPaid, nil
	}
	if paid.IsPositive() {
		return InvoiceStatusPartiallyPaid, nil
	}
	if dueDate != nil && now.After(*dueDate) {
		return InvoiceStatusOverdue, nil
	}
	return current, nil
}
