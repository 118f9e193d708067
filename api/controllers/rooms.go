package controllers

import (
	"net/http"

	"github.com/divvyup/divvyup-backend/api/responses"
	"github.com/divvyup/divvyup-backend/api/validators"
	"github.com/divvyup/divvyup-backend/internal/rooms"
	pkgerrors "github.com/divvyup/divvyup-backend/pkg/errors"
	"github.com/divvyup/divvyup-backend/pkg/logger"
	"github.com/divvyup/divvyup-backend/pkg/pagination"
)

// RoomCreate opens a room around a receipt the caller owns.
func RoomCreate(svc rooms.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "room service unavailable"))
			return
		}

		var payload rooms.CreateRoomInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		state, err := svc.Create(r.Context(), currentUserID(r), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, state)
	}
}

// RoomDetail returns the full room state. Anyone with the link can read it.
func RoomDetail(svc rooms.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID, err := pathUUID(r, "roomId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		state, err := svc.Get(r.Context(), roomID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, state)
	}
}

// RoomUpdateSettings edits room-level settings; creator only.
func RoomUpdateSettings(svc rooms.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID, err := pathUUID(r, "roomId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload rooms.UpdateSettingsInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		state, err := svc.UpdateSettings(r.Context(), currentUserID(r), roomID, payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, state)
	}
}

// RoomList pages through the caller's rooms.
func RoomList(svc rooms.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.List(r.Context(), currentUserID(r), r.URL.Query().Get("cursor"), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, list)
	}
}

// RoomSettlement returns just the settlement projection for a room.
func RoomSettlement(svc rooms.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID, err := pathUUID(r, "roomId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		state, err := svc.Get(r.Context(), roomID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, state.Settlement)
	}
}

// RoomPulse is the polling dirty check. The since cursor comes from the
// previous response; omitting it forces a full state on the first poll.
func RoomPulse(svc rooms.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID, err := pathUUID(r, "roomId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		since, err := validators.ParseQueryInt64(r, "since", 0)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Pulse(r.Context(), roomID, since)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
