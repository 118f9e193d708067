package receipts

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/divvyup/divvyup-backend/pkg/db/models"
)

// Repository encapsulates receipt and receipt-item persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a receipt repository bound to the provided GORM
// connection or transaction.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindByID loads a receipt with its items.
func (r *Repository) FindByID(ctx context.Context, receiptID uuid.UUID) (*models.Receipt, error) {
	var receipt models.Receipt
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("id = ?", receiptID).
		First(&receipt).Error
	if err != nil {
		return nil, err
	}
	return &receipt, nil
}

// FindItem loads one item scoped to its receipt.
func (r *Repository) FindItem(ctx context.Context, receiptID, itemID uuid.UUID) (*models.ReceiptItem, error) {
	var item models.ReceiptItem
	err := r.db.WithContext(ctx).
		Where("id = ? AND receipt_id = ?", itemID, receiptID).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// Create inserts the receipt and its items.
func (r *Repository) Create(ctx context.Context, receipt *models.Receipt) error {
	return r.db.WithContext(ctx).Create(receipt).Error
}

// UpdateTotals writes the supplied column updates on a receipt.
func (r *Repository) UpdateTotals(ctx context.Context, receiptID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Receipt{}).
		Where("id = ?", receiptID).
		Updates(updates).Error
}

// CreateItem inserts one item.
func (r *Repository) CreateItem(ctx context.Context, item *models.ReceiptItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

// UpdateItem writes the supplied column updates on an item.
func (r *Repository) UpdateItem(ctx context.Context, itemID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.ReceiptItem{}).
		Where("id = ?", itemID).
		Updates(updates).Error
}

// DeleteItem removes an item; its claims cascade away with it.
func (r *Repository) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	if err := r.db.WithContext(ctx).
		Where("receipt_item_id = ?", itemID).
		Delete(&models.Claim{}).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Where("id = ?", itemID).
		Delete(&models.ReceiptItem{}).Error
}

// TouchRoomForReceipt bumps the wrapping room's updated_at, if a room
// exists for this receipt yet. Receipt edits made before a room is created
// have nothing to touch.
func (r *Repository) TouchRoomForReceipt(ctx context.Context, receiptID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Room{}).
		Where("receipt_id = ?", receiptID).
		UpdateColumn("updated_at", time.Now().UTC()).Error
}
