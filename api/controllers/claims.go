package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/divvyup/divvyup-backend/api/responses"
	"github.com/divvyup/divvyup-backend/api/validators"
	claimsdomain "github.com/divvyup/divvyup-backend/internal/claims"
	"github.com/divvyup/divvyup-backend/internal/members"
	pkgerrors "github.com/divvyup/divvyup-backend/pkg/errors"
	"github.com/divvyup/divvyup-backend/pkg/logger"
)

type claimRequest struct {
	Quantity decimal.Decimal `json:"quantity"`
}

// ClaimSet is the PUT that sets the caller's claimed quantity on an item.
// Zero removes the claim. The caller must already be a member, guest or
// user alike.
func ClaimSet(claimSvc claimsdomain.Service, memberSvc members.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if claimSvc == nil || memberSvc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "claim service unavailable"))
			return
		}

		roomID, err := pathUUID(r, "roomId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		itemID, err := pathUUID(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload claimRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		identity := requestIdentity(r, roomID)
		resolution, err := memberSvc.Resolve(r.Context(), identity, roomID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if resolution.Membership == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "join the room before claiming"))
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithRoomID(ctx, roomID.String())
			ctx = logg.WithMemberID(ctx, resolution.Membership.ID.String())
		}

		result, err := claimSvc.Claim(ctx, roomID, resolution.Membership.ID, itemID, payload.Quantity)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
