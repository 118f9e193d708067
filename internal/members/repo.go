package members

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/divvyup/divvyup-backend/pkg/db/models"
)

// Repository encapsulates room membership persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a membership repository bound to the provided
// GORM connection (or transaction).
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindByUser returns the membership a user holds in a room.
func (r *Repository) FindByUser(ctx context.Context, roomID, userID uuid.UUID) (*models.RoomMember, error) {
	var member models.RoomMember
	err := r.db.WithContext(ctx).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		First(&member).Error
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// FindByGuest returns the membership held under a guest cookie in a room.
func (r *Repository) FindByGuest(ctx context.Context, roomID uuid.UUID, guestID string) (*models.RoomMember, error) {
	var member models.RoomMember
	err := r.db.WithContext(ctx).
		Where("room_id = ? AND guest_id = ?", roomID, guestID).
		First(&member).Error
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// FindByID returns a membership row by primary key.
func (r *Repository) FindByID(ctx context.Context, memberID uuid.UUID) (*models.RoomMember, error) {
	var member models.RoomMember
	err := r.db.WithContext(ctx).
		Where("id = ?", memberID).
		First(&member).Error
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// Create inserts a new membership row.
func (r *Repository) Create(ctx context.Context, member *models.RoomMember) error {
	return r.db.WithContext(ctx).Create(member).Error
}

// AttachUser upgrades a guest membership in place: the row keeps its
// primary key (and therefore its claims) and gains a user id. The display
// name is replaced only when a non-empty one is supplied.
func (r *Repository) AttachUser(ctx context.Context, memberID, userID uuid.UUID, displayName string) (*models.RoomMember, error) {
	updates := map[string]any{"user_id": userID}
	if displayName != "" {
		updates["display_name"] = displayName
	}
	if err := r.db.WithContext(ctx).
		Model(&models.RoomMember{}).
		Where("id = ?", memberID).
		Updates(updates).Error; err != nil {
		return nil, err
	}
	return r.FindByID(ctx, memberID)
}

// ListByRoom returns all memberships for a room in join order.
func (r *Repository) ListByRoom(ctx context.Context, roomID uuid.UUID) ([]models.RoomMember, error) {
	var membersList []models.RoomMember
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("created_at ASC").
		Find(&membersList).Error
	return membersList, err
}
