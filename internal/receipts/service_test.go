package receipts

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/divvyup/divvyup-backend/pkg/config"
	"github.com/divvyup/divvyup-backend/pkg/db"
	"github.com/divvyup/divvyup-backend/pkg/db/models"
	"github.com/divvyup/divvyup-backend/pkg/enums"
	pkgerrors "github.com/divvyup/divvyup-backend/pkg/errors"
	"github.com/divvyup/divvyup-backend/pkg/migrate"
)

func newTestClient(t *testing.T) *db.Client {
	t.Helper()
	dsn := "file:receipts_" + uuid.NewString() + "?mode=memory&cache=shared"
	client, err := db.New(context.Background(), config.DBConfig{Driver: "sqlite", DSN: dsn}, nil)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.AutoMigrate(client); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return client
}

func newTestService(t *testing.T, client *db.Client) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{DB: client})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func createReceipt(t *testing.T, svc Service, ownerID uuid.UUID) ReceiptDTO {
	t.Helper()
	dto, err := svc.Create(context.Background(), ownerID, CreateReceiptInput{
		Merchant:   "Thai Basil",
		Subtotal:   dec("15"),
		Tax:        dec("1.50"),
		Tip:        dec("3"),
		GrandTotal: dec("19.50"),
		Items: []CreateItemInput{
			{Label: "Burger", Price: dec("10"), Quantity: dec("1")},
			{Label: "Fries", Price: dec("5"), Quantity: dec("1")},
		},
	})
	if err != nil {
		t.Fatalf("create receipt: %v", err)
	}
	return dto
}

func TestCreateAndGetReceipt(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, newTestClient(t))
	owner := uuid.New()

	created := createReceipt(t, svc, owner)
	if len(created.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(created.Items))
	}
	if !created.Validity.Valid {
		t.Fatalf("expected valid receipt, got %+v", created.Validity)
	}

	loaded, err := svc.Get(context.Background(), owner, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if loaded.ID != created.ID {
		t.Fatal("id mismatch")
	}
}

func TestCreateAcceptsSubCentQuantity(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, newTestClient(t))

	// Weighed items can legitimately carry tiny fractional quantities.
	dto, err := svc.Create(context.Background(), uuid.New(), CreateReceiptInput{
		Merchant:   "Bulk Foods",
		Subtotal:   dec("0.05"),
		Tax:        decimal.Zero,
		Tip:        decimal.Zero,
		GrandTotal: dec("0.05"),
		Items: []CreateItemInput{
			{Label: "Saffron", Price: dec("0.05"), Quantity: dec("0.01")},
		},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !dto.Items[0].Quantity.Equal(dec("0.01")) {
		t.Fatalf("expected quantity 0.01, got %s", dto.Items[0].Quantity)
	}

	_, err = svc.Create(context.Background(), uuid.New(), CreateReceiptInput{
		Merchant:   "Bulk Foods",
		Subtotal:   decimal.Zero,
		GrandTotal: decimal.Zero,
		Items: []CreateItemInput{
			{Label: "Nothing", Price: decimal.Zero, Quantity: decimal.Zero},
		},
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("zero quantity should fail validation, got %v", err)
	}
}

func TestGetForeignReceiptForbidden(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, newTestClient(t))
	created := createReceipt(t, svc, uuid.New())

	_, err := svc.Get(context.Background(), uuid.New(), created.ID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestFinalizeRequiresReconciledTotals(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, newTestClient(t))
	owner := uuid.New()
	created := createReceipt(t, svc, owner)

	// Break the subtotal, then try to finalize.
	broken := dec("20")
	if _, err := svc.UpdateTotals(context.Background(), owner, created.ID, UpdateTotalsInput{Subtotal: &broken}); err != nil {
		t.Fatalf("update totals: %v", err)
	}

	_, err := svc.UpdateTotals(context.Background(), owner, created.ID, UpdateTotalsInput{Finalize: true})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
	validity, ok := typed.Details().(ValidityResult)
	if !ok {
		t.Fatalf("expected validity details, got %T", typed.Details())
	}
	if validity.SubtotalMismatch == nil {
		t.Fatalf("expected subtotal mismatch in details: %+v", validity)
	}

	// Fix the totals and finalize.
	fixed := dec("15")
	dto, err := svc.UpdateTotals(context.Background(), owner, created.ID, UpdateTotalsInput{Subtotal: &fixed, Finalize: true})
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if !dto.Finalized {
		t.Fatal("expected finalized receipt")
	}
}

func TestUpdateItemShrinkPrunesClaims(t *testing.T) {
	t.Parallel()

	client := newTestClient(t)
	svc := newTestService(t, client)
	owner := uuid.New()
	conn := client.DB()

	created := createReceipt(t, svc, owner)

	// Give the receipt an item with claimable quantity.
	dto, err := svc.AddItem(context.Background(), owner, created.ID, CreateItemInput{
		Label: "Wings", Price: dec("12"), Quantity: dec("6"),
	})
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
	var wingsID uuid.UUID
	for _, item := range dto.Items {
		if item.Label == "Wings" {
			wingsID = item.ID
		}
	}
	if wingsID == uuid.Nil {
		t.Fatal("wings item missing")
	}

	room := &models.Room{
		ReceiptID:     created.ID,
		CreatorUserID: owner,
		Title:         "Dinner",
		Status:        enums.RoomStatusActive,
	}
	if err := conn.Create(room).Error; err != nil {
		t.Fatalf("seed room: %v", err)
	}
	memberUser := uuid.New()
	early := &models.RoomMember{RoomID: room.ID, UserID: &memberUser, DisplayName: "Early"}
	if err := conn.Create(early).Error; err != nil {
		t.Fatalf("seed member: %v", err)
	}
	lateUser := uuid.New()
	late := &models.RoomMember{RoomID: room.ID, UserID: &lateUser, DisplayName: "Late"}
	if err := conn.Create(late).Error; err != nil {
		t.Fatalf("seed member: %v", err)
	}

	for _, c := range []*models.Claim{
		{RoomID: room.ID, MemberID: early.ID, ReceiptItemID: wingsID, Quantity: dec("2")},
		{RoomID: room.ID, MemberID: late.ID, ReceiptItemID: wingsID, Quantity: dec("4")},
	} {
		if err := conn.Create(c).Error; err != nil {
			t.Fatalf("seed claim: %v", err)
		}
	}

	// Shrink 6 -> 3: the later claim gives up the excess.
	newQty := dec("3")
	if _, err := svc.UpdateItem(context.Background(), owner, created.ID, wingsID, UpdateItemInput{Quantity: &newQty}); err != nil {
		t.Fatalf("update item: %v", err)
	}

	var remaining []models.Claim
	if err := conn.Where("receipt_item_id = ?", wingsID).Order("created_at ASC").Find(&remaining).Error; err != nil {
		t.Fatalf("load claims: %v", err)
	}
	if len(remaining) != 2 {
		t.Fatalf("expected both claims to survive, got %d", len(remaining))
	}
	byMember := map[uuid.UUID]decimal.Decimal{}
	for _, c := range remaining {
		byMember[c.MemberID] = c.Quantity
	}
	if !byMember[early.ID].Equal(dec("2")) {
		t.Fatalf("early claim should be untouched, got %s", byMember[early.ID])
	}
	if !byMember[late.ID].Equal(dec("1")) {
		t.Fatalf("late claim should shrink to 1, got %s", byMember[late.ID])
	}
}

func TestDeleteItemRemovesClaims(t *testing.T) {
	t.Parallel()

	client := newTestClient(t)
	svc := newTestService(t, client)
	owner := uuid.New()
	conn := client.DB()

	created := createReceipt(t, svc, owner)
	itemID := created.Items[0].ID

	room := &models.Room{
		ReceiptID:     created.ID,
		CreatorUserID: owner,
		Title:         "Dinner",
		Status:        enums.RoomStatusActive,
	}
	if err := conn.Create(room).Error; err != nil {
		t.Fatalf("seed room: %v", err)
	}
	memberUser := uuid.New()
	member := &models.RoomMember{RoomID: room.ID, UserID: &memberUser, DisplayName: "Ana"}
	if err := conn.Create(member).Error; err != nil {
		t.Fatalf("seed member: %v", err)
	}
	claim := &models.Claim{RoomID: room.ID, MemberID: member.ID, ReceiptItemID: itemID, Quantity: dec("1")}
	if err := conn.Create(claim).Error; err != nil {
		t.Fatalf("seed claim: %v", err)
	}

	dto, err := svc.DeleteItem(context.Background(), owner, created.ID, itemID)
	if err != nil {
		t.Fatalf("delete item: %v", err)
	}
	if len(dto.Items) != 1 {
		t.Fatalf("expected 1 remaining item, got %d", len(dto.Items))
	}

	var count int64
	if err := conn.Model(&models.Claim{}).Where("receipt_item_id = ?", itemID).Count(&count).Error; err != nil {
		t.Fatalf("count claims: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected claims to be removed with the item, got %d", count)
	}
}

func TestCreateRejectsNegativeTotals(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, newTestClient(t))

	_, err := svc.Create(context.Background(), uuid.New(), CreateReceiptInput{
		Subtotal:   dec("-1"),
		Tax:        decimal.Zero,
		Tip:        decimal.Zero,
		GrandTotal: decimal.Zero,
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
