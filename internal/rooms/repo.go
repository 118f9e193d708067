package rooms

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/divvyup/divvyup-backend/pkg/db/models"
	"github.com/divvyup/divvyup-backend/pkg/pagination"
)

// Repository encapsulates room persistence plus the read-side loads the
// pulse and settlement projections need.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a room repository bound to the provided GORM
// connection or transaction.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindByID loads a bare room row.
func (r *Repository) FindByID(ctx context.Context, roomID uuid.UUID) (*models.Room, error) {
	var room models.Room
	err := r.db.WithContext(ctx).
		Where("id = ?", roomID).
		First(&room).Error
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// Create inserts the room; the unique index on receipt_id enforces one
// room per receipt.
func (r *Repository) Create(ctx context.Context, room *models.Room) error {
	return r.db.WithContext(ctx).Create(room).Error
}

// UpdateSettings writes room-level setting changes and bumps updated_at in
// the same statement.
func (r *Repository) UpdateSettings(ctx context.Context, roomID uuid.UUID, updates map[string]any) error {
	updates["updated_at"] = time.Now().UTC()
	return r.db.WithContext(ctx).
		Model(&models.Room{}).
		Where("id = ?", roomID).
		Updates(updates).Error
}

// UpdatedAt is the cheap pulse read: just the timestamp column, nothing
// else.
func (r *Repository) UpdatedAt(ctx context.Context, roomID uuid.UUID) (time.Time, error) {
	var row struct {
		UpdatedAt time.Time
	}
	err := r.db.WithContext(ctx).
		Model(&models.Room{}).
		Select("updated_at").
		Where("id = ?", roomID).
		First(&row).Error
	if err != nil {
		return time.Time{}, err
	}
	return row.UpdatedAt, nil
}

// roomListRecord backs the paginated listing query.
type roomListRecord struct {
	ID        uuid.UUID `gorm:"column:id"`
	Title     string    `gorm:"column:title"`
	Status    string    `gorm:"column:status"`
	ReceiptID uuid.UUID `gorm:"column:receipt_id"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

// ListForUser returns rooms the user created or joined, newest first,
// keyset-paginated on (created_at, id).
func (r *Repository) ListForUser(ctx context.Context, userID uuid.UUID, cursor string, limit int) ([]RoomSummaryDTO, string, error) {
	normalizedLimit := pagination.NormalizeLimit(limit)
	decodedCursor, err := pagination.ParseCursor(cursor)
	if err != nil {
		return nil, "", err
	}

	query := r.db.WithContext(ctx).
		Table("rooms r").
		Select("r.id", "r.title", "r.status", "r.receipt_id", "r.created_at", "r.updated_at").
		Joins("LEFT JOIN room_members rm ON rm.room_id = r.id AND rm.user_id = ?", userID).
		Where("r.creator_user_id = ? OR rm.id IS NOT NULL", userID).
		Group("r.id")

	if decodedCursor != nil {
		query = query.Where("(r.created_at < ?) OR (r.created_at = ? AND r.id < ?)",
			decodedCursor.CreatedAt, decodedCursor.CreatedAt, decodedCursor.ID)
	}

	var records []roomListRecord
	if err := query.
		Order("r.created_at DESC").Order("r.id DESC").
		Limit(pagination.LimitWithBuffer(limit)).
		Scan(&records).Error; err != nil {
		return nil, "", err
	}

	nextCursor := ""
	if len(records) > normalizedLimit {
		records = records[:normalizedLimit]
		last := records[len(records)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}

	summaries := make([]RoomSummaryDTO, 0, len(records))
	for _, rec := range records {
		summaries = append(summaries, RoomSummaryDTO{
			ID:        rec.ID,
			Title:     rec.Title,
			Status:    rec.Status,
			ReceiptID: rec.ReceiptID,
			CreatedAt: rec.CreatedAt,
			UpdatedAt: rec.UpdatedAt,
		})
	}
	return summaries, nextCursor, nil
}
