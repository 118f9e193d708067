package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ReceiptItem is one extracted line. Price is the line total, not the unit
// price; price/quantity yields the unit price. Quantity is fractional so
// weight-priced lines ("2.5 lbs") stay representable.
type ReceiptItem struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	ReceiptID uuid.UUID       `gorm:"column:receipt_id;type:uuid;not null;index"`
	Label     string          `gorm:"column:label;not null"`
	Price     decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	Quantity  decimal.Decimal `gorm:"column:quantity;type:numeric(12,3);not null"`
	Claims    []Claim         `gorm:"foreignKey:ReceiptItemID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (i *ReceiptItem) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
