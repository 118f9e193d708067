package receipts

import (
	"github.com/shopspring/decimal"

	"github.com/divvyup/divvyup-backend/pkg/db/models"
	"github.com/divvyup/divvyup-backend/pkg/money"
)

// Mismatch reports both sides of a failed totals check: Client is the
// figure recomputed from the line items, Server is the stored total it was
// checked against.
type Mismatch struct {
	Client decimal.Decimal `json:"client"`
	Server decimal.Decimal `json:"server"`
}

// ValidityResult is a typed outcome, not an error: mismatches are expected,
// recoverable user states that block room creation and totals finalization
// until the receipt is fixed.
type ValidityResult struct {
	Valid              bool      `json:"valid"`
	SubtotalMismatch   *Mismatch `json:"subtotal_mismatch,omitempty"`
	GrandTotalMismatch *Mismatch `json:"grand_total_mismatch,omitempty"`
}

// CheckValidity recomputes the receipt's subtotal from its items and the
// grand total from subtotal+tax+tip, comparing each against the stored
// figures with cent tolerance.
func CheckValidity(receipt models.Receipt, items []models.ReceiptItem) ValidityResult {
	result := ValidityResult{Valid: true}

	prices := make([]decimal.Decimal, 0, len(items))
	for _, item := range items {
		prices = append(prices, item.Price)
	}
	itemSum := money.Sum(prices...)
	if !money.Equal(itemSum, receipt.Subtotal) {
		result.Valid = false
		result.SubtotalMismatch = &Mismatch{Client: itemSum, Server: receipt.Subtotal}
	}

	expectedGrand := money.Sum(receipt.Subtotal, receipt.Tax, receipt.Tip)
	if !money.Equal(expectedGrand, receipt.GrandTotal) {
		result.Valid = false
		result.GrandTotalMismatch = &Mismatch{Client: expectedGrand, Server: receipt.GrandTotal}
	}

	return result
}
