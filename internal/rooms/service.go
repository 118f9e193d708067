package rooms

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	claimsdomain "github.com/divvyup/divvyup-backend/internal/claims"
	"github.com/divvyup/divvyup-backend/internal/members"
	"github.com/divvyup/divvyup-backend/internal/receipts"
	"github.com/divvyup/divvyup-backend/internal/settlement"
	"github.com/divvyup/divvyup-backend/pkg/db"
	"github.com/divvyup/divvyup-backend/pkg/db/models"
	"github.com/divvyup/divvyup-backend/pkg/enums"
	pkgerrors "github.com/divvyup/divvyup-backend/pkg/errors"
	"github.com/divvyup/divvyup-backend/pkg/metrics"
)

// Service exposes room lifecycle, the full-state projection, and the pulse
// dirty check that drives near-real-time sync.
type Service interface {
	Create(ctx context.Context, userID uuid.UUID, input CreateRoomInput) (*RoomState, error)
	Get(ctx context.Context, roomID uuid.UUID) (*RoomState, error)
	UpdateSettings(ctx context.Context, userID, roomID uuid.UUID, input UpdateSettingsInput) (*RoomState, error)
	List(ctx context.Context, userID uuid.UUID, cursor string, limit int) (RoomListDTO, error)
	Pulse(ctx context.Context, roomID uuid.UUID, since int64) (*PulseResult, error)
}

// ServiceParams groups dependencies for the room service.
type ServiceParams struct {
	DB           *db.Client
	Metrics      *metrics.RoomMetrics
	PollInterval time.Duration
}

type service struct {
	db           *db.Client
	metrics      *metrics.RoomMetrics
	pollInterval time.Duration
}

// NewService builds the room service.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "db client is required")
	}
	if params.PollInterval <= 0 {
		params.PollInterval = 1750 * time.Millisecond
	}
	return &service{
		db:           params.DB,
		metrics:      params.Metrics,
		pollInterval: params.PollInterval,
	}, nil
}

// Create opens a room around a finalizable receipt. The caller must own the
// receipt, the receipt's totals must reconcile, and a receipt hosts at most
// one room.
func (s *service) Create(ctx context.Context, userID uuid.UUID, input CreateRoomInput) (*RoomState, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}

	var roomID uuid.UUID
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		receipt, err := receipts.NewRepository(tx).FindByID(ctx, input.ReceiptID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "receipt not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load receipt")
		}
		if receipt.OwnerUserID != userID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "receipt belongs to another user")
		}
		if validity := receipts.CheckValidity(*receipt, receipt.Items); !validity.Valid {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "receipt totals do not reconcile").
				WithDetails(validity)
		}

		title := input.Title
		if title == "" {
			title = receipt.Merchant
		}
		room := &models.Room{
			ReceiptID:     receipt.ID,
			CreatorUserID: userID,
			Title:         title,
			Status:        enums.RoomStatusActive,
			PayoutHandle:  input.PayoutHandle,
		}
		if err := NewRepository(tx).Create(ctx, room); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "receipt already has a room")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create room")
		}

		// The creator is a member from the start.
		member := &models.RoomMember{
			RoomID:      room.ID,
			UserID:      &userID,
			DisplayName: "Host",
		}
		if err := members.NewRepository(tx).Create(ctx, member); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create host membership")
		}

		roomID = room.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, roomID)
}

// Get returns the full room state. Rooms are link-shareable so the read is
// unauthenticated.
func (s *service) Get(ctx context.Context, roomID uuid.UUID) (*RoomState, error) {
	state, err := s.fullState(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return state, nil
}

// UpdateSettings edits room-level settings. Creator only; locking the room
// freezes the ledger until it is re-opened.
func (s *service) UpdateSettings(ctx context.Context, userID, roomID uuid.UUID, input UpdateSettingsInput) (*RoomState, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if input.Status != nil && !enums.RoomStatus(*input.Status).IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid room status")
	}

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := NewRepository(tx)
		room, err := repo.FindByID(ctx, roomID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "room not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load room")
		}
		if room.CreatorUserID != userID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the room creator can change settings")
		}

		updates := map[string]any{}
		if input.Title != nil {
			updates["title"] = *input.Title
		}
		if input.Status != nil {
			updates["status"] = *input.Status
		}
		if input.PayoutHandle != nil {
			updates["payout_handle"] = *input.PayoutHandle
		}
		if len(updates) == 0 {
			return nil
		}
		if err := repo.UpdateSettings(ctx, roomID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update room settings")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, roomID)
}

// List pages through the rooms a user created or joined.
func (s *service) List(ctx context.Context, userID uuid.UUID, cursor string, limit int) (RoomListDTO, error) {
	if userID == uuid.Nil {
		return RoomListDTO{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	rooms, next, err := NewRepository(s.db.DB()).ListForUser(ctx, userID, cursor, limit)
	if err != nil {
		return RoomListDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list rooms")
	}
	return RoomListDTO{Rooms: rooms, NextCursor: next}, nil
}

// Pulse is the dirty check behind client polling. The since cursor is the
// last room updated_at the client saw, in unix milliseconds; when nothing
// moved past it the response is a handful of bytes, otherwise the whole
// state rides back.
func (s *service) Pulse(ctx context.Context, roomID uuid.UUID, since int64) (*PulseResult, error) {
	updatedAt, err := NewRepository(s.db.DB()).UpdatedAt(ctx, roomID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "room not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load room cursor")
	}

	cursor := updatedAt.UnixMilli()
	result := &PulseResult{
		Cursor:      cursor,
		PollAfterMS: s.pollInterval.Milliseconds(),
	}

	if since >= cursor {
		s.metrics.IncPulse("unchanged")
		return result, nil
	}

	state, err := s.fullState(ctx, roomID)
	if err != nil {
		return nil, err
	}
	s.metrics.IncPulse("changed")
	result.Changed = true
	// The state's own cursor wins: the room may have moved again between
	// the cheap read and the full load.
	result.Cursor = state.Cursor
	result.State = state
	return result, nil
}

// fullState assembles the complete room snapshot, settlement included.
func (s *service) fullState(ctx context.Context, roomID uuid.UUID) (*RoomState, error) {
	conn := s.db.DB()

	room, err := NewRepository(conn).FindByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "room not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load room")
	}

	receipt, err := receipts.NewRepository(conn).FindByID(ctx, room.ReceiptID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load receipt")
	}

	memberRows, err := members.NewRepository(conn).ListByRoom(ctx, roomID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load members")
	}

	claimRows, err := claimsdomain.NewRepository(conn).ListByRoom(ctx, roomID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load claims")
	}

	start := time.Now()
	breakdown := settlement.Compute(*receipt, receipt.Items, claimRows, memberRows)
	s.metrics.ObserveSettlement(time.Since(start))

	claimedByItem := make(map[uuid.UUID]decimal.Decimal, len(receipt.Items))
	for _, c := range claimRows {
		claimedByItem[c.ReceiptItemID] = claimedByItem[c.ReceiptItemID].Add(c.Quantity)
	}

	items := make([]ItemView, 0, len(receipt.Items))
	for _, item := range receipt.Items {
		items = append(items, ItemView{
			ID:              item.ID,
			Label:           item.Label,
			Price:           item.Price,
			Quantity:        item.Quantity,
			ClaimedQuantity: claimedByItem[item.ID],
		})
	}

	memberDTOs := make([]MemberDTO, 0, len(memberRows))
	for _, m := range memberRows {
		memberDTOs = append(memberDTOs, toMemberDTO(m))
	}
	claimDTOs := make([]ClaimDTO, 0, len(claimRows))
	for _, c := range claimRows {
		claimDTOs = append(claimDTOs, toClaimDTO(c))
	}

	return &RoomState{
		ID:            room.ID,
		Title:         room.Title,
		Status:        string(room.Status),
		CreatorUserID: room.CreatorUserID,
		PayoutHandle:  room.PayoutHandle,
		Receipt: ReceiptView{
			ID:         receipt.ID,
			Merchant:   receipt.Merchant,
			Subtotal:   receipt.Subtotal,
			Tax:        receipt.Tax,
			Tip:        receipt.Tip,
			GrandTotal: receipt.GrandTotal,
			Finalized:  receipt.Finalized,
			Items:      items,
			Validity:   receipts.CheckValidity(*receipt, receipt.Items),
		},
		Members:    memberDTOs,
		Claims:     claimDTOs,
		Settlement: breakdown,
		Cursor:     room.UpdatedAt.UnixMilli(),
		UpdatedAt:  room.UpdatedAt,
	}, nil
}
