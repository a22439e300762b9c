package order

import (
	"github.com/betonplant/backend/internal/domain/invoice"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReconciliationView is the derived ledger of an order's volume. It is never
// stored: invoices are created concurrently by independent drivers, so any
// cached figure would go stale. Recompute from the current invoice set on
// every read.
type ReconciliationView struct {
	InitialQuantity    decimal.Decimal `json:"initial_quantity"`
	InProgressQuantity decimal.Decimal `json:"in_progress_quantity"`
	DeliveredQuantity  decimal.Decimal `json:"delivered_quantity"`
	DraftQuantity      decimal.Decimal `json:"draft_quantity"`
	RemainingQuantity  decimal.Decimal `json:"remaining_quantity"`
	QuotaExceeded      bool            `json:"quota_exceeded"`
}

// ComputeRemaining sums the order's invoices into a ReconciliationView.
// Pass excluding to leave one invoice out of the sums (the invoice being
// edited), or uuid.Nil to count them all. Remaining clamps at zero; an
// overrun sets QuotaExceeded instead of failing.
func ComputeRemaining(o *Order, invoices []invoice.Invoice, excluding uuid.UUID) ReconciliationView {
	return ComputeRemainingWithDraft(o, invoices, excluding, decimal.Zero)
}

// ComputeRemainingWithDraft additionally counts a not-yet-submitted quantity
// the operator is currently typing, so the effect is visible before the
// invoice exists. The draft figure is display-only and never persisted.
func ComputeRemainingWithDraft(o *Order, invoices []invoice.Invoice, excluding uuid.UUID, draft decimal.Decimal) ReconciliationView {
	inProgress := decimal.Zero
	delivered := decimal.Zero

	for idx := range invoices {
		inv := &invoices[idx]
		if inv.ID == excluding {
			continue
		}
		switch {
		case inv.Status.IsTerminalSuccess():
			delivered = delivered.Add(inv.Quantity)
		case !inv.Status.IsTerminal():
			inProgress = inProgress.Add(inv.Quantity)
		}
		// canceled invoices count toward nothing
	}

	committed := inProgress.Add(delivered).Add(draft)
	remaining := o.Quantity.Sub(committed)
	exceeded := committed.GreaterThan(o.Quantity)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}

	return ReconciliationView{
		InitialQuantity:    o.Quantity,
		InProgressQuantity: inProgress.Add(draft),
		DeliveredQuantity:  delivered,
		DraftQuantity:      draft,
		RemainingQuantity:  remaining,
		QuotaExceeded:      exceeded,
	}
}

// FullyDelivered reports whether every referenced invoice has settled and the
// delivered volume covers the requested quantity. This is the rollup gate for
// moving an order to DELIVERED/COMPLETED.
func FullyDelivered(o *Order, invoices []invoice.Invoice) bool {
	view := ComputeRemaining(o, invoices, uuid.Nil)
	return view.InProgressQuantity.IsZero() &&
		view.DeliveredQuantity.GreaterThanOrEqual(o.Quantity)
}
