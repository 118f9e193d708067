package claims

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/divvyup/divvyup-backend/pkg/db/models"
)

// Repository encapsulates claim persistence. The ledger binds one to the
// surrounding transaction so that every read it makes is part of the same
// atomic unit as the write it ends with.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a claim repository bound to the provided GORM
// connection or transaction.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindItemInRoom loads the item only when its parent receipt is the one the
// room wraps. A miss means the item either does not exist or belongs to a
// different receipt; callers treat both the same way.
func (r *Repository) FindItemInRoom(ctx context.Context, roomID, itemID uuid.UUID) (*models.ReceiptItem, error) {
	var room models.Room
	if err := r.db.WithContext(ctx).
		Where("id = ?", roomID).
		First(&room).Error; err != nil {
		return nil, err
	}

	var item models.ReceiptItem
	if err := r.db.WithContext(ctx).
		Where("id = ? AND receipt_id = ?", itemID, room.ReceiptID).
		First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// ListByItem returns all claims on an item, oldest claim first.
func (r *Repository) ListByItem(ctx context.Context, itemID uuid.UUID) ([]models.Claim, error) {
	var rows []models.Claim
	err := r.db.WithContext(ctx).
		Where("receipt_item_id = ?", itemID).
		Order("created_at ASC").Order("id ASC").
		Find(&rows).Error
	return rows, err
}

// ListByRoom returns every claim in a room.
func (r *Repository) ListByRoom(ctx context.Context, roomID uuid.UUID) ([]models.Claim, error) {
	var rows []models.Claim
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

// Upsert writes the member's claim for an item, replacing any prior
// quantity. The (room, member, item) uniqueness constraint makes the
// insert-or-update race-free.
func (r *Repository) Upsert(ctx context.Context, roomID, memberID, itemID uuid.UUID, quantity decimal.Decimal) error {
	row := models.Claim{
		RoomID:        roomID,
		MemberID:      memberID,
		ReceiptItemID: itemID,
		Quantity:      quantity,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "room_id"}, {Name: "member_id"}, {Name: "receipt_item_id"},
			},
			DoUpdates: clause.Assignments(map[string]any{
				"quantity":   quantity,
				"updated_at": time.Now().UTC(),
			}),
		}).
		Create(&row).Error
}

// Delete removes the member's claim on an item if present. Zero quantity is
// always represented by row absence, never a zero-valued row.
func (r *Repository) Delete(ctx context.Context, roomID, memberID, itemID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("room_id = ? AND member_id = ? AND receipt_item_id = ?", roomID, memberID, itemID).
		Delete(&models.Claim{}).Error
}

// DeleteByID removes a specific claim row (pruning path).
func (r *Repository) DeleteByID(ctx context.Context, claimID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", claimID).
		Delete(&models.Claim{}).Error
}

// SetQuantity rewrites a claim row's quantity (pruning path).
func (r *Repository) SetQuantity(ctx context.Context, claimID uuid.UUID, quantity decimal.Decimal) error {
	return r.db.WithContext(ctx).
		Model(&models.Claim{}).
		Where("id = ?", claimID).
		Update("quantity", quantity).Error
}

// TouchRoom bumps the room's updated_at so pulse clients notice the
// interaction. The write is unconditional: even a no-op claim attempt
// counts as activity.
func (r *Repository) TouchRoom(ctx context.Context, roomID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Room{}).
		Where("id = ?", roomID).
		UpdateColumn("updated_at", time.Now().UTC()).Error
}
