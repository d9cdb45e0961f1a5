package gst

import (
	"github.com/shopspring/decimal"

	"gstbill/internal/apperr"
)

var (
	hundred = decimal.NewFromInt(100)
	two     = decimal.NewFromInt(2)
)

// Breakup is the GST split for a single taxable amount. For an intra-state
// sale the tax is halved into CGST and SGST; for an inter-state sale the
// whole tax is IGST. In both cases CGST + SGST + IGST == Total.
type Breakup struct {
	CGST  decimal.Decimal
	SGST  decimal.Decimal
	IGST  decimal.Decimal
	Total decimal.Decimal
}

// Calculate computes the GST breakup for amount at ratePercent (0-100), given
// the seller's and buyer's states. State comparison is case-sensitive exact
// match. The function is pure and performs no rounding; callers round at the
// point of persistence so rounding error does not compound across line items.
func Calculate(amount, ratePercent decimal.Decimal, fromState, toState string) (Breakup, error) {
	if amount.IsNegative() {
		return Breakup{}, apperr.Validation("amount", "must not be negative")
	}
	if ratePercent.IsNegative() || ratePercent.GreaterThan(hundred) {
		return Breakup{}, apperr.Validation("tax_rate", "must be between 0 and 100")
	}

	taxAmount := amount.Mul(ratePercent).Div(hundred)

	if fromState == toState {
		half := taxAmount.Div(two)
		return Breakup{CGST: half, SGST: half, IGST: decimal.Zero, Total: taxAmount}, nil
	}

	return Breakup{CGST: decimal.Zero, SGST: decimal.Zero, IGST: taxAmount, Total: taxAmount}, nil
}
