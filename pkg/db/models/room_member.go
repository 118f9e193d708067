package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RoomMember is a participant's durable membership in a room. Exactly one
// of UserID/GuestID is set at creation; a guest upgrade later fills in
// UserID on the same row so claims keyed by this primary key survive the
// identity change. Memberships are never deleted while the room lives.
type RoomMember struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	RoomID      uuid.UUID  `gorm:"column:room_id;type:uuid;not null;index;uniqueIndex:idx_room_members_room_user;uniqueIndex:idx_room_members_room_guest"`
	UserID      *uuid.UUID `gorm:"column:user_id;type:uuid;uniqueIndex:idx_room_members_room_user"`
	GuestID     *string    `gorm:"column:guest_id;uniqueIndex:idx_room_members_room_guest"`
	DisplayName string     `gorm:"column:display_name;not null"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (m *RoomMember) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// IsGuest reports whether the membership has not been tied to a user yet.
func (m *RoomMember) IsGuest() bool {
	return m.UserID == nil
}
