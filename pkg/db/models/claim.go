package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Claim records that a member holds Quantity units of one receipt item.
// (room, member, item) is unique: re-claiming updates the existing row, and
// a claim of zero is expressed by deleting the row, never by storing zero.
// The conservation invariant (summed claims per item never exceed the
// item's quantity) is enforced by the ledger at write time, inside the
// same transaction that reads the competing claims.
type Claim struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	RoomID        uuid.UUID       `gorm:"column:room_id;type:uuid;not null;uniqueIndex:idx_claims_room_member_item"`
	MemberID      uuid.UUID       `gorm:"column:member_id;type:uuid;not null;uniqueIndex:idx_claims_room_member_item;index"`
	ReceiptItemID uuid.UUID       `gorm:"column:receipt_item_id;type:uuid;not null;uniqueIndex:idx_claims_room_member_item;index"`
	Quantity      decimal.Decimal `gorm:"column:quantity;type:numeric(12,3);not null"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Claim) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
