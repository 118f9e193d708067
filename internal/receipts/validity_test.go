package receipts

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/divvyup/divvyup-backend/pkg/db/models"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCheckValidityReconciled(t *testing.T) {
	t.Parallel()

	receipt := models.Receipt{
		Subtotal:   dec("15"),
		Tax:        dec("1.50"),
		Tip:        dec("3"),
		GrandTotal: dec("19.50"),
	}
	items := []models.ReceiptItem{
		{Price: dec("10"), Quantity: dec("1")},
		{Price: dec("5"), Quantity: dec("1")},
	}

	result := CheckValidity(receipt, items)
	if !result.Valid {
		t.Fatalf("expected valid, got %+v", result)
	}
	if result.SubtotalMismatch != nil || result.GrandTotalMismatch != nil {
		t.Fatalf("expected no mismatches, got %+v", result)
	}
}

func TestCheckValiditySubtotalMismatch(t *testing.T) {
	t.Parallel()

	receipt := models.Receipt{
		Subtotal:   dec("20"),
		Tax:        decimal.Zero,
		Tip:        decimal.Zero,
		GrandTotal: dec("20"),
	}
	items := []models.ReceiptItem{
		{Price: dec("10"), Quantity: dec("1")},
		{Price: dec("5"), Quantity: dec("1")},
	}

	result := CheckValidity(receipt, items)
	if result.Valid {
		t.Fatal("expected invalid")
	}
	if result.SubtotalMismatch == nil {
		t.Fatal("expected subtotal mismatch")
	}
	if !result.SubtotalMismatch.Client.Equal(dec("15")) || !result.SubtotalMismatch.Server.Equal(dec("20")) {
		t.Fatalf("unexpected mismatch figures: %+v", result.SubtotalMismatch)
	}
}

func TestCheckValidityGrandTotalMismatch(t *testing.T) {
	t.Parallel()

	receipt := models.Receipt{
		Subtotal:   dec("15"),
		Tax:        dec("1.50"),
		Tip:        dec("3"),
		GrandTotal: dec("25"),
	}
	items := []models.ReceiptItem{
		{Price: dec("15"), Quantity: dec("1")},
	}

	result := CheckValidity(receipt, items)
	if result.Valid {
		t.Fatal("expected invalid")
	}
	if result.SubtotalMismatch != nil {
		t.Fatal("subtotal reconciles, only the grand total is off")
	}
	if result.GrandTotalMismatch == nil {
		t.Fatal("expected grand total mismatch")
	}
	if !result.GrandTotalMismatch.Client.Equal(dec("19.50")) || !result.GrandTotalMismatch.Server.Equal(dec("25")) {
		t.Fatalf("unexpected mismatch figures: %+v", result.GrandTotalMismatch)
	}
}

func TestCheckValidityCentTolerance(t *testing.T) {
	t.Parallel()

	// Values inside a cent of each other reconcile.
	receipt := models.Receipt{
		Subtotal:   dec("15.004"),
		Tax:        decimal.Zero,
		Tip:        decimal.Zero,
		GrandTotal: dec("15"),
	}
	items := []models.ReceiptItem{
		{Price: dec("15"), Quantity: dec("1")},
	}

	if result := CheckValidity(receipt, items); !result.Valid {
		t.Fatalf("expected sub-cent drift to pass, got %+v", result)
	}
}
