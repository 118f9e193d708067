package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Receipt holds the totals a user submitted (or an extraction produced) for
// one physical receipt. Items carry line totals; the stored subtotal and
// grand total are independently editable and are cross-checked before a
// room may wrap this receipt.
type Receipt struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OwnerUserID uuid.UUID       `gorm:"column:owner_user_id;type:uuid;not null;index"`
	Merchant    string          `gorm:"column:merchant;not null;default:''"`
	Subtotal    decimal.Decimal `gorm:"column:subtotal;type:numeric(12,2);not null"`
	Tax         decimal.Decimal `gorm:"column:tax;type:numeric(12,2);not null"`
	Tip         decimal.Decimal `gorm:"column:tip;type:numeric(12,2);not null"`
	GrandTotal  decimal.Decimal `gorm:"column:grand_total;type:numeric(12,2);not null"`
	Finalized   bool            `gorm:"column:finalized;not null;default:false"`
	Items       []ReceiptItem   `gorm:"foreignKey:ReceiptID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (r *Receipt) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
