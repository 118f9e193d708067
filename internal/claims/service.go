package claims

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/divvyup/divvyup-backend/internal/members"
	"github.com/divvyup/divvyup-backend/pkg/db"
	"github.com/divvyup/divvyup-backend/pkg/db/models"
	"github.com/divvyup/divvyup-backend/pkg/enums"
	pkgerrors "github.com/divvyup/divvyup-backend/pkg/errors"
	"github.com/divvyup/divvyup-backend/pkg/metrics"
	"github.com/divvyup/divvyup-backend/pkg/money"
)

// Result reports what a committed claim mutation left behind.
type Result struct {
	RoomID        uuid.UUID       `json:"room_id"`
	MemberID      uuid.UUID       `json:"member_id"`
	ReceiptItemID uuid.UUID       `json:"receipt_item_id"`
	Quantity      decimal.Decimal `json:"quantity"`
	Removed       bool            `json:"removed"`
	// Remaining is how much of the item is still unclaimed after this
	// mutation, handy for the client's optimistic reconciliation.
	Remaining decimal.Decimal `json:"remaining"`
}

// Service is the claim ledger: the only writer of claim rows during normal
// operation, and the keeper of the conservation invariant.
type Service interface {
	Claim(ctx context.Context, roomID, memberID, itemID uuid.UUID, quantity decimal.Decimal) (*Result, error)
}

// ServiceParams groups dependencies for the ledger.
type ServiceParams struct {
	DB      *db.Client
	Metrics *metrics.RoomMetrics
}

type service struct {
	db      *db.Client
	metrics *metrics.RoomMetrics
}

// NewService builds the claim ledger.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "db client is required")
	}
	return &service{db: params.DB, metrics: params.Metrics}, nil
}

// Claim sets the member's claimed quantity for an item; zero removes the
// claim. The whole sequence (membership check, item lookup, competing-claim
// sum, invariant check, write, room touch) runs inside one transaction so
// two concurrent claimers cannot both pass the check against a stale sum:
// whichever commits second recomputes against the first one's committed
// row.
func (s *service) Claim(ctx context.Context, roomID, memberID, itemID uuid.UUID, quantity decimal.Decimal) (*Result, error) {
	if quantity.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must not be negative")
	}

	var result *Result
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := NewRepository(tx)
		memberRepo := members.NewRepository(tx)

		member, err := memberRepo.FindByID(ctx, memberID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeForbidden, "not a member of this room")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load membership")
		}
		if member.RoomID != roomID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "not a member of this room")
		}

		var room models.Room
		if err := tx.WithContext(ctx).Where("id = ?", roomID).First(&room).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "room not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load room")
		}
		if room.Status == enums.RoomStatusLocked {
			s.metrics.IncClaimRejected("locked")
			return pkgerrors.New(pkgerrors.CodeStateConflict, "room is locked")
		}

		item, err := repo.FindItemInRoom(ctx, roomID, itemID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				s.metrics.IncClaimRejected("not_found")
				return pkgerrors.New(pkgerrors.CodeNotFound, "item not found in room")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load item")
		}

		existing, err := repo.ListByItem(ctx, itemID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load claims")
		}

		// The caller's own prior claim is being replaced, so it does not
		// count against the new request.
		othersClaimed := decimal.Zero
		for _, c := range existing {
			if c.MemberID != memberID {
				othersClaimed = othersClaimed.Add(c.Quantity)
			}
		}

		if money.GT(othersClaimed.Add(quantity), item.Quantity) {
			s.metrics.IncClaimRejected("overclaimed")
			return pkgerrors.New(pkgerrors.CodeOverclaimed, "requested quantity exceeds what is left of the item").
				WithDetails(map[string]any{
					"requested": quantity,
					"available": item.Quantity.Sub(othersClaimed),
				})
		}

		if quantity.IsZero() {
			if err := repo.Delete(ctx, roomID, memberID, itemID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove claim")
			}
		} else {
			if err := repo.Upsert(ctx, roomID, memberID, itemID, quantity); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write claim")
			}
		}

		// Touch regardless of whether the ledger visibly changed: an
		// attempted interaction is what pulse clients key off.
		if err := repo.TouchRoom(ctx, roomID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "touch room")
		}

		result = &Result{
			RoomID:        roomID,
			MemberID:      memberID,
			ReceiptItemID: itemID,
			Quantity:      quantity,
			Removed:       quantity.IsZero(),
			Remaining:     item.Quantity.Sub(othersClaimed).Sub(quantity),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Removed {
		s.metrics.IncClaimAccepted("remove")
	} else {
		s.metrics.IncClaimAccepted("upsert")
	}
	return result, nil
}

// PruneExcess reconciles claims after a host shrinks an item's quantity
// below what is already claimed. Claims are sacrificed newest first, so the
// earliest claimers keep theirs; the newest surviving claim may be merely
// reduced. It runs inside the caller's item-edit transaction and does not
// touch the room timestamp; that responsibility stays with the
// surrounding edit.
func PruneExcess(ctx context.Context, tx *gorm.DB, itemID uuid.UUID, newMaxQuantity decimal.Decimal) error {
	repo := NewRepository(tx)

	existing, err := repo.ListByItem(ctx, itemID)
	if err != nil {
		return err
	}

	totalClaimed := decimal.Zero
	for _, c := range existing {
		totalClaimed = totalClaimed.Add(c.Quantity)
	}

	excess := totalClaimed.Sub(newMaxQuantity)
	if !money.GT(excess, decimal.Zero) {
		return nil
	}

	// existing is oldest-first; walk from the newest end.
	for i := len(existing) - 1; i >= 0 && excess.IsPositive(); i-- {
		c := existing[i]
		if c.Quantity.LessThanOrEqual(excess) {
			if err := repo.DeleteByID(ctx, c.ID); err != nil {
				return err
			}
			excess = excess.Sub(c.Quantity)
			continue
		}
		if err := repo.SetQuantity(ctx, c.ID, c.Quantity.Sub(excess)); err != nil {
			return err
		}
		excess = decimal.Zero
	}
	return nil
}
