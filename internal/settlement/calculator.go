// Package settlement turns a room's claims into each member's share of the
// bill. It is a pure projection over committed state: no locks, no writes,
// recomputed on demand.
package settlement

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/divvyup/divvyup-backend/pkg/db/models"
	"github.com/divvyup/divvyup-backend/pkg/money"
)

// ClaimedItem is one line of a member's share.
type ClaimedItem struct {
	ReceiptItemID uuid.UUID       `json:"receipt_item_id"`
	Label         string          `json:"label"`
	Quantity      decimal.Decimal `json:"quantity"`
	Amount        decimal.Decimal `json:"amount"`
}

// MemberShare is what one member owes.
type MemberShare struct {
	MemberID     uuid.UUID       `json:"member_id"`
	DisplayName  string          `json:"display_name"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	TaxShare     decimal.Decimal `json:"tax_share"`
	TipShare     decimal.Decimal `json:"tip_share"`
	TotalOwed    decimal.Decimal `json:"total_owed"`
	ClaimedItems []ClaimedItem   `json:"claimed_items"`
}

// Breakdown is the full room settlement. Discrepancy is the receipt grand
// total minus the sum of member totals: positive while items sit
// unclaimed, negative only when the host edited receipt totals out from
// under existing claims. Either way it is a surfaced warning, not a ledger
// violation; the per-item conservation invariant is independent of the
// receipt-level totals.
type Breakdown struct {
	Shares      []MemberShare   `json:"shares"`
	Discrepancy decimal.Decimal `json:"discrepancy"`
}

// Compute builds the per-member settlement for one room. Tax and tip are
// distributed proportionally to each member's slice of the receipt
// subtotal, so unclaimed portions contribute tax/tip to nobody.
func Compute(receipt models.Receipt, items []models.ReceiptItem, claimRows []models.Claim, memberRows []models.RoomMember) Breakdown {
	itemsByID := make(map[uuid.UUID]models.ReceiptItem, len(items))
	for _, item := range items {
		itemsByID[item.ID] = item
	}

	claimsByMember := make(map[uuid.UUID][]models.Claim, len(memberRows))
	for _, c := range claimRows {
		claimsByMember[c.MemberID] = append(claimsByMember[c.MemberID], c)
	}

	shares := make([]MemberShare, 0, len(memberRows))
	totalOwed := decimal.Zero

	for _, member := range memberRows {
		share := MemberShare{
			MemberID:     member.ID,
			DisplayName:  member.DisplayName,
			Subtotal:     decimal.Zero,
			TaxShare:     decimal.Zero,
			TipShare:     decimal.Zero,
			TotalOwed:    decimal.Zero,
			ClaimedItems: []ClaimedItem{},
		}

		for _, c := range claimsByMember[member.ID] {
			item, ok := itemsByID[c.ReceiptItemID]
			if !ok {
				continue
			}
			amount := c.Quantity.Mul(money.UnitPrice(item.Price, item.Quantity))
			share.ClaimedItems = append(share.ClaimedItems, ClaimedItem{
				ReceiptItemID: item.ID,
				Label:         item.Label,
				Quantity:      c.Quantity,
				Amount:        amount,
			})
			share.Subtotal = share.Subtotal.Add(amount)
		}

		if receipt.Subtotal.IsPositive() && share.Subtotal.IsPositive() {
			fraction := share.Subtotal.Div(receipt.Subtotal)
			share.TaxShare = receipt.Tax.Mul(fraction)
			share.TipShare = receipt.Tip.Mul(fraction)
		}
		share.TotalOwed = share.Subtotal.Add(share.TaxShare).Add(share.TipShare)
		totalOwed = totalOwed.Add(share.TotalOwed)

		shares = append(shares, share)
	}

	return Breakdown{
		Shares:      shares,
		Discrepancy: receipt.GrandTotal.Sub(totalOwed),
	}
}
