package controllers

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/divvyup/divvyup-backend/api/middleware"
	"github.com/divvyup/divvyup-backend/internal/members"
	pkgerrors "github.com/divvyup/divvyup-backend/pkg/errors"
)

const guestCookiePrefix = "dv_guest_"

func pathUUID(r *http.Request, key string) (uuid.UUID, error) {
	raw := chi.URLParam(r, key)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid identifier").
			WithDetails(map[string]any{"field": key})
	}
	return id, nil
}

// currentUserID reads the authenticated user id middleware placed on the
// context. The zero uuid means the request is anonymous.
func currentUserID(r *http.Request) uuid.UUID {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil
	}
	return id
}

func guestCookieName(roomID uuid.UUID) string {
	return fmt.Sprintf("%s%s", guestCookiePrefix, roomID)
}

// requestIdentity builds the member identity for a room-scoped request:
// the JWT identity when present, plus whatever guest cookie the browser
// holds for this room so the resolver can offer an upgrade.
func requestIdentity(r *http.Request, roomID uuid.UUID) members.Identity {
	identity := members.Anonymous()
	if userID := currentUserID(r); userID != uuid.Nil {
		identity = members.UserIdentity(userID, middleware.DisplayNameFromContext(r.Context()))
	}
	if cookie, err := r.Cookie(guestCookieName(roomID)); err == nil {
		identity = identity.WithGuestCookie(cookie.Value)
	}
	return identity
}

// setGuestCookie persists the per-room guest id on the browser. The cookie
// is scoped to the whole site so joins survive client-side routing.
func setGuestCookie(w http.ResponseWriter, roomID uuid.UUID, guestID string) {
	if guestID == "" {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     guestCookieName(roomID),
		Value:    guestID,
		Path:     "/",
		MaxAge:   90 * 24 * 3600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
