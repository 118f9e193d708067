package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/divvyup/divvyup-backend/api/responses"
	"github.com/divvyup/divvyup-backend/api/validators"
	"github.com/divvyup/divvyup-backend/internal/members"
	"github.com/divvyup/divvyup-backend/pkg/db/models"
	pkgerrors "github.com/divvyup/divvyup-backend/pkg/errors"
	"github.com/divvyup/divvyup-backend/pkg/logger"
)

type joinRequest struct {
	DisplayName string `json:"display_name" validate:"max=60"`
}

type memberResponse struct {
	ID          uuid.UUID `json:"id"`
	RoomID      uuid.UUID `json:"room_id"`
	DisplayName string    `json:"display_name"`
	IsGuest     bool      `json:"is_guest"`
}

type membershipResponse struct {
	Member   *memberResponse `json:"member"`
	CanMerge bool            `json:"can_merge"`
}

func memberResponseFromModel(m *models.RoomMember) *memberResponse {
	if m == nil {
		return nil
	}
	return &memberResponse{
		ID:          m.ID,
		RoomID:      m.RoomID,
		DisplayName: m.DisplayName,
		IsGuest:     m.IsGuest(),
	}
}

// RoomJoin adds the caller to a room. Anonymous callers get a per-room
// guest cookie back; authenticated callers who previously joined as a
// guest have that membership upgraded in place.
func RoomJoin(svc members.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "membership service unavailable"))
			return
		}

		roomID, err := pathUUID(r, "roomId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload joinRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		identity := requestIdentity(r, roomID)
		result, err := svc.Join(r.Context(), identity, roomID, strings.TrimSpace(payload.DisplayName))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if result.Membership.IsGuest() {
			setGuestCookie(w, roomID, result.GuestID)
		}

		responses.WriteSuccess(w, memberResponseFromModel(result.Membership))
	}
}

// RoomMembership reports how the current identity maps onto the room: the
// existing membership if any, and whether a guest membership could be
// merged into the authenticated account.
func RoomMembership(svc members.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID, err := pathUUID(r, "roomId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		identity := requestIdentity(r, roomID)
		resolution, err := svc.Resolve(r.Context(), identity, roomID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, membershipResponse{
			Member:   memberResponseFromModel(resolution.Membership),
			CanMerge: resolution.CanMerge,
		})
	}
}
