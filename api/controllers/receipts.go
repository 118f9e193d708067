package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/divvyup/divvyup-backend/api/responses"
	"github.com/divvyup/divvyup-backend/api/validators"
	"github.com/divvyup/divvyup-backend/internal/receipts"
	pkgerrors "github.com/divvyup/divvyup-backend/pkg/errors"
	"github.com/divvyup/divvyup-backend/pkg/logger"
)

// ReceiptCreate handles posting a freshly extracted receipt.
func ReceiptCreate(svc receipts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "receipt service unavailable"))
			return
		}

		var payload receipts.CreateReceiptInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.Create(r.Context(), currentUserID(r), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

// ReceiptDetail returns one receipt with items and validity.
func ReceiptDetail(svc receipts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		receiptID, err := pathUUID(r, "receiptId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.Get(r.Context(), currentUserID(r), receiptID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, dto)
	}
}

// ReceiptUpdateTotals edits merchant and totals; the finalize flag locks
// in the totals once they reconcile.
func ReceiptUpdateTotals(svc receipts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		receiptID, err := pathUUID(r, "receiptId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload receipts.UpdateTotalsInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.UpdateTotals(r.Context(), currentUserID(r), receiptID, payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, dto)
	}
}

// ReceiptItemCreate appends a line item to a receipt.
func ReceiptItemCreate(svc receipts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		receiptID, err := pathUUID(r, "receiptId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload receipts.CreateItemInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.AddItem(r.Context(), currentUserID(r), receiptID, payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, dto)
	}
}

// ReceiptItemUpdate edits one line item. Shrinking a quantity below what is
// claimed prunes those claims as part of the same request.
func ReceiptItemUpdate(svc receipts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		receiptID, itemID, err := receiptItemIDs(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload receipts.UpdateItemInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.UpdateItem(r.Context(), currentUserID(r), receiptID, itemID, payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, dto)
	}
}

// ReceiptItemDelete removes a line item and its claims.
func ReceiptItemDelete(svc receipts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		receiptID, itemID, err := receiptItemIDs(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.DeleteItem(r.Context(), currentUserID(r), receiptID, itemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, dto)
	}
}

func receiptItemIDs(r *http.Request) (uuid.UUID, uuid.UUID, error) {
	receiptID, err := pathUUID(r, "receiptId")
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	itemID, err := pathUUID(r, "itemId")
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return receiptID, itemID, nil
}
