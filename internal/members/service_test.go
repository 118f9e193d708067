package members

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
	dsn := "file:members_" + uuid.NewString() + "?mode=memory&cache=shared"
	client, err := db.New(context.Background(), config.DBConfig{Driver: "sqlite", DSN: dsn}, nil)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.AutoMigrate(client); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return client
}

type testRoomRepo struct {
	client *db.Client
}

func (r *testRoomRepo) FindByID(ctx context.Context, roomID uuid.UUID) (*models.Room, error) {
	var room models.Room
	if err := r.client.DB().WithContext(ctx).Where("id = ?", roomID).First(&room).Error; err != nil {
		return nil, err
	}
	return &room, nil
}

func seedRoom(t *testing.T, client *db.Client) *models.Room {
	t.Helper()
	receipt := &models.Receipt{
		OwnerUserID: uuid.New(),
		Subtotal:    decimal.RequireFromString("20"),
		Tax:         decimal.Zero,
		Tip:         decimal.Zero,
		GrandTotal:  decimal.RequireFromString("20"),
	}
	if err := client.DB().Create(receipt).Error; err != nil {
		t.Fatalf("seed receipt: %v", err)
	}
	room := &models.Room{
		ReceiptID:     receipt.ID,
		CreatorUserID: receipt.OwnerUserID,
		Title:         "Dinner",
		Status:        enums.RoomStatusActive,
	}
	if err := client.DB().Create(room).Error; err != nil {
		t.Fatalf("seed room: %v", err)
	}
	return room
}

func newTestService(t *testing.T, client *db.Client) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		MemberRepo: NewRepository(client.DB()),
		RoomRepo:   &testRoomRepo{client: client},
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestJoinAnonymousMintsGuest(t *testing.T) {
	t.Parallel()

	client := newTestClient(t)
	room := seedRoom(t, client)
	svc := newTestService(t, client)
	ctx := context.Background()

	result, err := svc.Join(ctx, Anonymous(), room.ID, "")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if result.GuestID == "" {
		t.Fatal("expected a minted guest id")
	}
	if !result.Membership.IsGuest() {
		t.Fatal("expected a guest membership")
	}
	if result.Membership.DisplayName == "" {
		t.Fatal("expected a derived display name")
	}

	// Joining again with the cookie is a no-op on the same row.
	again, err := svc.Join(ctx, GuestIdentity(result.GuestID), room.ID, "")
	if err != nil {
		t.Fatalf("re-join: %v", err)
	}
	if again.Membership.ID != result.Membership.ID {
		t.Fatal("expected idempotent join")
	}
}

func TestJoinAuthenticatedIdempotent(t *testing.T) {
	t.Parallel()

	client := newTestClient(t)
	room := seedRoom(t, client)
	svc := newTestService(t, client)
	ctx := context.Background()

	userID := uuid.New()
	first, err := svc.Join(ctx, UserIdentity(userID, "Ana"), room.ID, "")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if first.Membership.IsGuest() {
		t.Fatal("expected a user membership")
	}
	if first.Membership.DisplayName != "Ana" {
		t.Fatalf("expected token name, got %q", first.Membership.DisplayName)
	}

	second, err := svc.Join(ctx, UserIdentity(userID, "Ana"), room.ID, "")
	if err != nil {
		t.Fatalf("re-join: %v", err)
	}
	if second.Membership.ID != first.Membership.ID {
		t.Fatal("expected idempotent join")
	}
}

func TestJoinUpgradesGuestMembership(t *testing.T) {
	t.Parallel()

	client := newTestClient(t)
	room := seedRoom(t, client)
	svc := newTestService(t, client)
	ctx := context.Background()

	guest, err := svc.Join(ctx, Anonymous(), room.ID, "Mystery")
	if err != nil {
		t.Fatalf("guest join: %v", err)
	}

	// Seed a claim held by the guest so the upgrade has something to keep.
	item := &models.ReceiptItem{
		ReceiptID: room.ReceiptID,
		Label:     "Pad Thai",
		Price:     decimal.RequireFromString("20"),
		Quantity:  decimal.RequireFromString("1"),
	}
	if err := client.DB().Create(item).Error; err != nil {
		t.Fatalf("seed item: %v", err)
	}
	claim := &models.Claim{
		RoomID:        room.ID,
		MemberID:      guest.Membership.ID,
		ReceiptItemID: item.ID,
		Quantity:      decimal.RequireFromString("1"),
	}
	if err := client.DB().Create(claim).Error; err != nil {
		t.Fatalf("seed claim: %v", err)
	}

	userID := uuid.New()
	identity := UserIdentity(userID, "Ana").WithGuestCookie(guest.GuestID)
	upgraded, err := svc.Join(ctx, identity, room.ID, "")
	if err != nil {
		t.Fatalf("upgrade join: %v", err)
	}

	if upgraded.Membership.ID != guest.Membership.ID {
		t.Fatal("upgrade must keep the membership primary key")
	}
	if upgraded.Membership.IsGuest() {
		t.Fatal("membership should now be user-backed")
	}
	if *upgraded.Membership.UserID != userID {
		t.Fatal("membership should carry the user id")
	}
	if upgraded.Membership.DisplayName != "Ana" {
		t.Fatalf("expected name from identity, got %q", upgraded.Membership.DisplayName)
	}

	// The claim stayed attached through the identity change.
	var kept models.Claim
	if err := client.DB().First(&kept, "member_id = ?", guest.Membership.ID).Error; err != nil {
		t.Fatalf("claim lost through upgrade: %v", err)
	}
}

func TestUpgradeRejectsForeignMembership(t *testing.T) {
	t.Parallel()

	client := newTestClient(t)
	room := seedRoom(t, client)
	svc := newTestService(t, client)
	ctx := context.Background()

	guest, err := svc.Join(ctx, Anonymous(), room.ID, "")
	if err != nil {
		t.Fatalf("guest join: %v", err)
	}

	// First user claims the guest membership.
	first := UserIdentity(uuid.New(), "First").WithGuestCookie(guest.GuestID)
	if _, err := svc.Join(ctx, first, room.ID, ""); err != nil {
		t.Fatalf("first upgrade: %v", err)
	}

	// A different user holding the same stale cookie cannot take it over.
	second := UserIdentity(uuid.New(), "Second").WithGuestCookie(guest.GuestID)
	_, err = svc.UpgradeGuestToUser(ctx, second, room.ID, "")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestStaleGuestCookieNeverGrantsForeignMembership(t *testing.T) {
	t.Parallel()

	client := newTestClient(t)
	room := seedRoom(t, client)
	svc := newTestService(t, client)
	ctx := context.Background()

	guest, err := svc.Join(ctx, Anonymous(), room.ID, "")
	if err != nil {
		t.Fatalf("guest join: %v", err)
	}

	// First user takes the guest membership over.
	firstUserID := uuid.New()
	first, err := svc.Join(ctx, UserIdentity(firstUserID, "First").WithGuestCookie(guest.GuestID), room.ID, "")
	if err != nil {
		t.Fatalf("first upgrade: %v", err)
	}

	// A second user still carrying the same cookie must not see the
	// upgraded membership as their own.
	second := UserIdentity(uuid.New(), "Second").WithGuestCookie(guest.GuestID)
	resolution, err := svc.Resolve(ctx, second, room.ID)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolution.Membership != nil {
		t.Fatalf("stale cookie resolved to member %s belonging to user %s", resolution.Membership.ID, *resolution.Membership.UserID)
	}

	// Joining with the stale cookie creates a fresh membership instead.
	joined, err := svc.Join(ctx, second, room.ID, "")
	if err != nil {
		t.Fatalf("second join: %v", err)
	}
	if joined.Membership.ID == first.Membership.ID {
		t.Fatal("second user must not inherit the upgraded membership")
	}
	if joined.Membership.UserID == nil || *joined.Membership.UserID == firstUserID {
		t.Fatal("second membership must belong to the second user")
	}

	// The first user's membership is untouched.
	kept, err := svc.Resolve(ctx, UserIdentity(firstUserID, "First"), room.ID)
	if err != nil {
		t.Fatalf("resolve first: %v", err)
	}
	if kept.Membership == nil || kept.Membership.ID != first.Membership.ID {
		t.Fatal("first user's membership should survive")
	}
}

func TestResolveUnknownRoom(t *testing.T) {
	t.Parallel()

	client := newTestClient(t)
	svc := newTestService(t, client)

	_, err := svc.Resolve(context.Background(), Anonymous(), uuid.New())
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestResolveFlagsMergeableGuest(t *testing.T) {
	t.Parallel()

	client := newTestClient(t)
	room := seedRoom(t, client)
	svc := newTestService(t, client)
	ctx := context.Background()

	guest, err := svc.Join(ctx, Anonymous(), room.ID, "")
	if err != nil {
		t.Fatalf("guest join: %v", err)
	}

	identity := UserIdentity(uuid.New(), "Ana").WithGuestCookie(guest.GuestID)
	resolution, err := svc.Resolve(ctx, identity, room.ID)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolution.Membership == nil || !resolution.CanMerge {
		t.Fatalf("expected mergeable guest membership, got %+v", resolution)
	}
}
