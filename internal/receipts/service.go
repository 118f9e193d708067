package receipts

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/divvyup/divvyup-backend/internal/claims"
	"github.com/divvyup/divvyup-backend/pkg/db"
	"github.com/divvyup/divvyup-backend/pkg/db/models"
	pkgerrors "github.com/divvyup/divvyup-backend/pkg/errors"
	"github.com/shopspring/decimal"
)

// Service exposes receipt management: creation, totals edits, and the item
// edits that feed the claim ledger's pruning path. All mutations are
// owner-scoped.
type Service interface {
	Create(ctx context.Context, ownerID uuid.UUID, input CreateReceiptInput) (ReceiptDTO, error)
	Get(ctx context.Context, ownerID, receiptID uuid.UUID) (ReceiptDTO, error)
	UpdateTotals(ctx context.Context, ownerID, receiptID uuid.UUID, input UpdateTotalsInput) (ReceiptDTO, error)
	AddItem(ctx context.Context, ownerID, receiptID uuid.UUID, input CreateItemInput) (ReceiptDTO, error)
	UpdateItem(ctx context.Context, ownerID, receiptID, itemID uuid.UUID, input UpdateItemInput) (ReceiptDTO, error)
	DeleteItem(ctx context.Context, ownerID, receiptID, itemID uuid.UUID) (ReceiptDTO, error)
}

// ServiceParams groups dependencies for the receipt service.
type ServiceParams struct {
	DB *db.Client
}

type service struct {
	db *db.Client
}

// NewService builds the receipt service.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "db client is required")
	}
	return &service{db: params.DB}, nil
}

func (s *service) Create(ctx context.Context, ownerID uuid.UUID, input CreateReceiptInput) (ReceiptDTO, error) {
	if ownerID == uuid.Nil {
		return ReceiptDTO{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	for _, item := range input.Items {
		if err := validateItem(item.Price, item.Quantity); err != nil {
			return ReceiptDTO{}, err
		}
	}
	if input.Subtotal.IsNegative() || input.Tax.IsNegative() || input.Tip.IsNegative() || input.GrandTotal.IsNegative() {
		return ReceiptDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "totals must not be negative")
	}

	receipt := &models.Receipt{
		OwnerUserID: ownerID,
		Merchant:    input.Merchant,
		Subtotal:    input.Subtotal,
		Tax:         input.Tax,
		Tip:         input.Tip,
		GrandTotal:  input.GrandTotal,
	}
	for _, item := range input.Items {
		receipt.Items = append(receipt.Items, models.ReceiptItem{
			Label:    item.Label,
			Price:    item.Price,
			Quantity: item.Quantity,
		})
	}

	if err := NewRepository(s.db.DB()).Create(ctx, receipt); err != nil {
		return ReceiptDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create receipt")
	}
	return toDTO(receipt), nil
}

func (s *service) Get(ctx context.Context, ownerID, receiptID uuid.UUID) (ReceiptDTO, error) {
	receipt, err := s.loadOwned(ctx, NewRepository(s.db.DB()), ownerID, receiptID)
	if err != nil {
		return ReceiptDTO{}, err
	}
	return toDTO(receipt), nil
}

// UpdateTotals edits the receipt-level figures. Finalizing requires the
// totals to reconcile; the mismatch details ride along on the rejection so
// the client can guide the user. Totals edits do not revisit claims; the
// settlement discrepancy surfaces any resulting gap.
func (s *service) UpdateTotals(ctx context.Context, ownerID, receiptID uuid.UUID, input UpdateTotalsInput) (ReceiptDTO, error) {
	var dto ReceiptDTO
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := NewRepository(tx)
		receipt, err := s.loadOwned(ctx, repo, ownerID, receiptID)
		if err != nil {
			return err
		}

		updates := map[string]any{}
		if input.Merchant != nil {
			receipt.Merchant = *input.Merchant
			updates["merchant"] = *input.Merchant
		}
		if input.Subtotal != nil {
			receipt.Subtotal = *input.Subtotal
			updates["subtotal"] = *input.Subtotal
		}
		if input.Tax != nil {
			receipt.Tax = *input.Tax
			updates["tax"] = *input.Tax
		}
		if input.Tip != nil {
			receipt.Tip = *input.Tip
			updates["tip"] = *input.Tip
		}
		if input.GrandTotal != nil {
			receipt.GrandTotal = *input.GrandTotal
			updates["grand_total"] = *input.GrandTotal
		}

		if input.Finalize {
			if validity := CheckValidity(*receipt, receipt.Items); !validity.Valid {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "receipt totals do not reconcile").
					WithDetails(validity)
			}
			receipt.Finalized = true
			updates["finalized"] = true
		}

		if len(updates) > 0 {
			if err := repo.UpdateTotals(ctx, receiptID, updates); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update totals")
			}
			if err := repo.TouchRoomForReceipt(ctx, receiptID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "touch room")
			}
		}

		dto = toDTO(receipt)
		return nil
	})
	if err != nil {
		return ReceiptDTO{}, err
	}
	return dto, nil
}

func (s *service) AddItem(ctx context.Context, ownerID, receiptID uuid.UUID, input CreateItemInput) (ReceiptDTO, error) {
	if err := validateItem(input.Price, input.Quantity); err != nil {
		return ReceiptDTO{}, err
	}

	var dto ReceiptDTO
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := NewRepository(tx)
		if _, err := s.loadOwned(ctx, repo, ownerID, receiptID); err != nil {
			return err
		}

		item := &models.ReceiptItem{
			ReceiptID: receiptID,
			Label:     input.Label,
			Price:     input.Price,
			Quantity:  input.Quantity,
		}
		if err := repo.CreateItem(ctx, item); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create item")
		}
		if err := repo.TouchRoomForReceipt(ctx, receiptID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "touch room")
		}

		receipt, err := repo.FindByID(ctx, receiptID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload receipt")
		}
		dto = toDTO(receipt)
		return nil
	})
	if err != nil {
		return ReceiptDTO{}, err
	}
	return dto, nil
}

// UpdateItem edits one line. Shrinking the quantity prunes existing claims
// down to the new maximum inside the same transaction, and the room is
// touched exactly once here on the edit's behalf.
func (s *service) UpdateItem(ctx context.Context, ownerID, receiptID, itemID uuid.UUID, input UpdateItemInput) (ReceiptDTO, error) {
	if input.Price != nil && input.Price.IsNegative() {
		return ReceiptDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
	}
	if input.Quantity != nil && !input.Quantity.IsPositive() {
		return ReceiptDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	var dto ReceiptDTO
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := NewRepository(tx)
		if _, err := s.loadOwned(ctx, repo, ownerID, receiptID); err != nil {
			return err
		}
		item, err := repo.FindItem(ctx, receiptID, itemID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load item")
		}

		updates := map[string]any{}
		if input.Label != nil {
			updates["label"] = *input.Label
		}
		if input.Price != nil {
			updates["price"] = *input.Price
		}
		shrunk := false
		if input.Quantity != nil {
			updates["quantity"] = *input.Quantity
			shrunk = input.Quantity.LessThan(item.Quantity)
		}

		if len(updates) > 0 {
			if err := repo.UpdateItem(ctx, itemID, updates); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update item")
			}
		}
		if shrunk {
			if err := claims.PruneExcess(ctx, tx, itemID, *input.Quantity); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "prune claims")
			}
		}
		if err := repo.TouchRoomForReceipt(ctx, receiptID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "touch room")
		}

		receipt, err := repo.FindByID(ctx, receiptID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload receipt")
		}
		dto = toDTO(receipt)
		return nil
	})
	if err != nil {
		return ReceiptDTO{}, err
	}
	return dto, nil
}

func (s *service) DeleteItem(ctx context.Context, ownerID, receiptID, itemID uuid.UUID) (ReceiptDTO, error) {
	var dto ReceiptDTO
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := NewRepository(tx)
		if _, err := s.loadOwned(ctx, repo, ownerID, receiptID); err != nil {
			return err
		}
		if _, err := repo.FindItem(ctx, receiptID, itemID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load item")
		}
		if err := repo.DeleteItem(ctx, itemID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete item")
		}
		if err := repo.TouchRoomForReceipt(ctx, receiptID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "touch room")
		}

		receipt, err := repo.FindByID(ctx, receiptID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload receipt")
		}
		dto = toDTO(receipt)
		return nil
	})
	if err != nil {
		return ReceiptDTO{}, err
	}
	return dto, nil
}

func (s *service) loadOwned(ctx context.Context, repo *Repository, ownerID, receiptID uuid.UUID) (*models.Receipt, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	receipt, err := repo.FindByID(ctx, receiptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "receipt not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load receipt")
	}
	if receipt.OwnerUserID != ownerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "receipt belongs to another user")
	}
	return receipt, nil
}

func validateItem(price, quantity decimal.Decimal) error {
	if price.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
	}
	if !quantity.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	return nil
}
