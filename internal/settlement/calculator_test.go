package settlement

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/divvyup/divvyup-backend/pkg/db/models"
	"github.com/divvyup/divvyup-backend/pkg/money"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestComputeProportionalTaxAndTip(t *testing.T) {
	t.Parallel()

	itemBurger := models.ReceiptItem{ID: uuid.New(), Label: "Burger", Price: dec("10"), Quantity: dec("1")}
	itemFries := models.ReceiptItem{ID: uuid.New(), Label: "Fries", Price: dec("5"), Quantity: dec("1")}

	receipt := models.Receipt{
		Subtotal:   dec("15"),
		Tax:        dec("1.50"),
		Tip:        dec("3"),
		GrandTotal: dec("19.50"),
	}

	ana := models.RoomMember{ID: uuid.New(), DisplayName: "Ana"}
	ben := models.RoomMember{ID: uuid.New(), DisplayName: "Ben"}

	claims := []models.Claim{
		{MemberID: ana.ID, ReceiptItemID: itemBurger.ID, Quantity: dec("1")},
		{MemberID: ben.ID, ReceiptItemID: itemFries.ID, Quantity: dec("1")},
	}

	breakdown := Compute(receipt, []models.ReceiptItem{itemBurger, itemFries}, claims, []models.RoomMember{ana, ben})

	if len(breakdown.Shares) != 2 {
		t.Fatalf("expected 2 shares, got %d", len(breakdown.Shares))
	}

	shares := map[uuid.UUID]MemberShare{}
	for _, s := range breakdown.Shares {
		shares[s.MemberID] = s
	}

	anaShare := shares[ana.ID]
	if !anaShare.Subtotal.Equal(dec("10")) {
		t.Fatalf("ana subtotal: %s", anaShare.Subtotal)
	}
	if !money.Equal(anaShare.TaxShare, dec("1")) {
		t.Fatalf("ana tax share: %s", anaShare.TaxShare)
	}
	if !money.Equal(anaShare.TipShare, dec("2")) {
		t.Fatalf("ana tip share: %s", anaShare.TipShare)
	}
	if !money.Equal(anaShare.TotalOwed, dec("13")) {
		t.Fatalf("ana total: %s", anaShare.TotalOwed)
	}

	benShare := shares[ben.ID]
	if !money.Equal(benShare.TotalOwed, dec("6.50")) {
		t.Fatalf("ben total: %s", benShare.TotalOwed)
	}

	// Fully claimed receipt: owed totals reconcile with the grand total.
	if !money.Equal(breakdown.Discrepancy, decimal.Zero) {
		t.Fatalf("expected zero discrepancy, got %s", breakdown.Discrepancy)
	}
}

func TestComputePartialQuantityUsesUnitPrice(t *testing.T) {
	t.Parallel()

	wings := models.ReceiptItem{ID: uuid.New(), Label: "Wings", Price: dec("12"), Quantity: dec("6")}
	receipt := models.Receipt{
		Subtotal:   dec("12"),
		Tax:        decimal.Zero,
		Tip:        decimal.Zero,
		GrandTotal: dec("12"),
	}
	ana := models.RoomMember{ID: uuid.New(), DisplayName: "Ana"}

	breakdown := Compute(receipt, []models.ReceiptItem{wings}, []models.Claim{
		{MemberID: ana.ID, ReceiptItemID: wings.ID, Quantity: dec("2")},
	}, []models.RoomMember{ana})

	share := breakdown.Shares[0]
	if !share.Subtotal.Equal(dec("4")) {
		t.Fatalf("expected 2 wings at 2 each = 4, got %s", share.Subtotal)
	}
	if len(share.ClaimedItems) != 1 || !share.ClaimedItems[0].Amount.Equal(dec("4")) {
		t.Fatalf("unexpected claimed items: %+v", share.ClaimedItems)
	}
	// Four wings are unclaimed, so 8 of the grand total is unattributed.
	if !breakdown.Discrepancy.Equal(dec("8")) {
		t.Fatalf("expected discrepancy 8, got %s", breakdown.Discrepancy)
	}
}

func TestComputeIncludesMembersWithoutClaims(t *testing.T) {
	t.Parallel()

	item := models.ReceiptItem{ID: uuid.New(), Label: "Salad", Price: dec("9"), Quantity: dec("1")}
	receipt := models.Receipt{
		Subtotal:   dec("9"),
		Tax:        dec("0.90"),
		Tip:        decimal.Zero,
		GrandTotal: dec("9.90"),
	}
	ana := models.RoomMember{ID: uuid.New(), DisplayName: "Ana"}
	idle := models.RoomMember{ID: uuid.New(), DisplayName: "Idle"}

	breakdown := Compute(receipt, []models.ReceiptItem{item}, []models.Claim{
		{MemberID: ana.ID, ReceiptItemID: item.ID, Quantity: dec("1")},
	}, []models.RoomMember{ana, idle})

	if len(breakdown.Shares) != 2 {
		t.Fatalf("expected both members present, got %d", len(breakdown.Shares))
	}
	for _, s := range breakdown.Shares {
		if s.MemberID == idle.ID {
			if !s.TotalOwed.IsZero() || !s.TaxShare.IsZero() {
				t.Fatalf("idle member should owe nothing: %+v", s)
			}
			if s.ClaimedItems == nil || len(s.ClaimedItems) != 0 {
				t.Fatalf("idle member should have empty claimed items: %+v", s.ClaimedItems)
			}
		}
	}
}

func TestComputeZeroSubtotalSkipsProportions(t *testing.T) {
	t.Parallel()

	item := models.ReceiptItem{ID: uuid.New(), Label: "Comp", Price: decimal.Zero, Quantity: dec("1")}
	receipt := models.Receipt{
		Subtotal:   decimal.Zero,
		Tax:        dec("2"),
		Tip:        decimal.Zero,
		GrandTotal: dec("2"),
	}
	ana := models.RoomMember{ID: uuid.New(), DisplayName: "Ana"}

	breakdown := Compute(receipt, []models.ReceiptItem{item}, nil, []models.RoomMember{ana})
	if !breakdown.Shares[0].TaxShare.IsZero() {
		t.Fatalf("no subtotal means no proportional tax, got %s", breakdown.Shares[0].TaxShare)
	}
}
