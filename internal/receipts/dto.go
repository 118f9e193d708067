package receipts

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/divvyup/divvyup-backend/pkg/db/models"
)

// CreateReceiptInput is the payload for creating a receipt, typically the
// result of the external extraction step posted back by the client.
type CreateReceiptInput struct {
	Merchant   string            `json:"merchant"`
	Subtotal   decimal.Decimal   `json:"subtotal"`
	Tax        decimal.Decimal   `json:"tax"`
	Tip        decimal.Decimal   `json:"tip"`
	GrandTotal decimal.Decimal   `json:"grand_total"`
	Items      []CreateItemInput `json:"items" validate:"dive"`
}

// CreateItemInput describes one line item.
type CreateItemInput struct {
	Label    string          `json:"label" validate:"required"`
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`
}

// UpdateTotalsInput carries optional totals edits plus the finalize flag.
type UpdateTotalsInput struct {
	Merchant   *string          `json:"merchant"`
	Subtotal   *decimal.Decimal `json:"subtotal"`
	Tax        *decimal.Decimal `json:"tax"`
	Tip        *decimal.Decimal `json:"tip"`
	GrandTotal *decimal.Decimal `json:"grand_total"`
	Finalize   bool             `json:"finalize"`
}

// UpdateItemInput carries optional item edits.
type UpdateItemInput struct {
	Label    *string          `json:"label"`
	Price    *decimal.Decimal `json:"price"`
	Quantity *decimal.Decimal `json:"quantity"`
}

// ItemDTO is the wire shape of a line item.
type ItemDTO struct {
	ID       uuid.UUID       `json:"id"`
	Label    string          `json:"label"`
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`
}

// ReceiptDTO is the wire shape of a receipt including its validity state.
type ReceiptDTO struct {
	ID         uuid.UUID       `json:"id"`
	Merchant   string          `json:"merchant"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	Tax        decimal.Decimal `json:"tax"`
	Tip        decimal.Decimal `json:"tip"`
	GrandTotal decimal.Decimal `json:"grand_total"`
	Finalized  bool            `json:"finalized"`
	Items      []ItemDTO       `json:"items"`
	Validity   ValidityResult  `json:"validity"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func toDTO(receipt *models.Receipt) ReceiptDTO {
	items := make([]ItemDTO, 0, len(receipt.Items))
	for _, item := range receipt.Items {
		items = append(items, ItemDTO{
			ID:       item.ID,
			Label:    item.Label,
			Price:    item.Price,
			Quantity: item.Quantity,
		})
	}
	return ReceiptDTO{
		ID:         receipt.ID,
		Merchant:   receipt.Merchant,
		Subtotal:   receipt.Subtotal,
		Tax:        receipt.Tax,
		Tip:        receipt.Tip,
		GrandTotal: receipt.GrandTotal,
		Finalized:  receipt.Finalized,
		Items:      items,
		Validity:   CheckValidity(*receipt, receipt.Items),
		CreatedAt:  receipt.CreatedAt,
		UpdatedAt:  receipt.UpdatedAt,
	}
}
