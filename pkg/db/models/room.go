package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/divvyup/divvyup-backend/pkg/enums"
)

// Room is the sharing context around exactly one receipt. UpdatedAt is the
// single source of truth for pulse sync: every mutating room-scoped
// operation bumps it, and clients compare their cursor against it before
// asking for full state.
type Room struct {
	ID            uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	ReceiptID     uuid.UUID        `gorm:"column:receipt_id;type:uuid;not null;uniqueIndex"`
	CreatorUserID uuid.UUID        `gorm:"column:creator_user_id;type:uuid;not null;index"`
	Title         string           `gorm:"column:title;not null"`
	Status        enums.RoomStatus `gorm:"column:status;not null;default:'active'"`
	PayoutHandle  *string          `gorm:"column:payout_handle"`
	Members       []RoomMember     `gorm:"foreignKey:RoomID;constraint:OnDelete:CASCADE"`
	Claims        []Claim          `gorm:"foreignKey:RoomID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (r *Room) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
