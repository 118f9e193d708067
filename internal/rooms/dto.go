package rooms

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/divvyup/divvyup-backend/internal/receipts"
	"github.com/divvyup/divvyup-backend/internal/settlement"
	"github.com/divvyup/divvyup-backend/pkg/db/models"
)

// CreateRoomInput is the payload for opening a room around a receipt.
type CreateRoomInput struct {
	ReceiptID    uuid.UUID `json:"receipt_id" validate:"required"`
	Title        string    `json:"title"`
	PayoutHandle *string   `json:"payout_handle"`
}

// UpdateSettingsInput carries optional room setting edits. Status moves the
// room between active and locked.
type UpdateSettingsInput struct {
	Title        *string `json:"title"`
	Status       *string `json:"status"`
	PayoutHandle *string `json:"payout_handle"`
}

// RoomSummaryDTO is the listing row.
type RoomSummaryDTO struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Status    string    `json:"status"`
	ReceiptID uuid.UUID `json:"receipt_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RoomListDTO is a page of room summaries.
type RoomListDTO struct {
	Rooms      []RoomSummaryDTO `json:"rooms"`
	NextCursor string           `json:"next_cursor,omitempty"`
}

// MemberDTO is the wire shape of a room member.
type MemberDTO struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"display_name"`
	IsGuest     bool      `json:"is_guest"`
	JoinedAt    time.Time `json:"joined_at"`
}

// ClaimDTO is the wire shape of one claim row.
type ClaimDTO struct {
	ID            uuid.UUID       `json:"id"`
	MemberID      uuid.UUID       `json:"member_id"`
	ReceiptItemID uuid.UUID       `json:"receipt_item_id"`
	Quantity      decimal.Decimal `json:"quantity"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// ReceiptView is the receipt as seen inside a room state, validity
// included so clients can render reconciliation warnings.
type ReceiptView struct {
	ID         uuid.UUID               `json:"id"`
	Merchant   string                  `json:"merchant"`
	Subtotal   decimal.Decimal         `json:"subtotal"`
	Tax        decimal.Decimal         `json:"tax"`
	Tip        decimal.Decimal         `json:"tip"`
	GrandTotal decimal.Decimal         `json:"grand_total"`
	Finalized  bool                    `json:"finalized"`
	Items      []ItemView              `json:"items"`
	Validity   receipts.ValidityResult `json:"validity"`
}

// ItemView is one receipt line plus how much of it is already claimed.
type ItemView struct {
	ID              uuid.UUID       `json:"id"`
	Label           string          `json:"label"`
	Price           decimal.Decimal `json:"price"`
	Quantity        decimal.Decimal `json:"quantity"`
	ClaimedQuantity decimal.Decimal `json:"claimed_quantity"`
}

// RoomState is the full room snapshot pulse clients replace their local
// state with. Cursor is the room's updated_at in unix milliseconds.
type RoomState struct {
	ID            uuid.UUID            `json:"id"`
	Title         string               `json:"title"`
	Status        string               `json:"status"`
	CreatorUserID uuid.UUID            `json:"creator_user_id"`
	PayoutHandle  *string              `json:"payout_handle,omitempty"`
	Receipt       ReceiptView          `json:"receipt"`
	Members       []MemberDTO          `json:"members"`
	Claims        []ClaimDTO           `json:"claims"`
	Settlement    settlement.Breakdown `json:"settlement"`
	Cursor        int64                `json:"cursor"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

// PulseResult is either a cheap "nothing changed" or the full state.
type PulseResult struct {
	Changed bool `json:"changed"`
	// Cursor echoes the room's current position either way.
	Cursor int64 `json:"cursor"`
	// PollAfterMS suggests when the client should poll again.
	PollAfterMS int64      `json:"poll_after_ms"`
	State       *RoomState `json:"state,omitempty"`
}

func toMemberDTO(member models.RoomMember) MemberDTO {
	return MemberDTO{
		ID:          member.ID,
		DisplayName: member.DisplayName,
		IsGuest:     member.IsGuest(),
		JoinedAt:    member.CreatedAt,
	}
}

func toClaimDTO(claim models.Claim) ClaimDTO {
	return ClaimDTO{
		ID:            claim.ID,
		MemberID:      claim.MemberID,
		ReceiptItemID: claim.ReceiptItemID,
		Quantity:      claim.Quantity,
		UpdatedAt:     claim.UpdatedAt,
	}
}
