package members

import "github.com/google/uuid"

// IdentityKind discriminates how a request identified itself.
type IdentityKind int

const (
	IdentityAnonymous IdentityKind = iota
	IdentityGuest
	IdentityUser
)

// Identity is the tagged request identity. A guest can later become a user
// (that is the upgrade path); a user never becomes a guest, which is why
// there is no constructor producing a guest from a user. A user identity
// may still carry the guest cookie it arrived with so the resolver can
// offer to merge the older guest membership.
type Identity struct {
	kind        IdentityKind
	userID      uuid.UUID
	displayName string
	guestID     string
}

// Anonymous is an identity with no user and no guest cookie.
func Anonymous() Identity {
	return Identity{kind: IdentityAnonymous}
}

// GuestIdentity identifies a request by its per-room guest cookie only.
func GuestIdentity(guestID string) Identity {
	if guestID == "" {
		return Anonymous()
	}
	return Identity{kind: IdentityGuest, guestID: guestID}
}

// UserIdentity identifies an authenticated request.
func UserIdentity(userID uuid.UUID, displayName string) Identity {
	if userID == uuid.Nil {
		return Anonymous()
	}
	return Identity{kind: IdentityUser, userID: userID, displayName: displayName}
}

// WithGuestCookie attaches the guest cookie that accompanied the request.
// On an anonymous identity this produces a guest identity; on a user
// identity it only records the cookie for merge resolution.
func (i Identity) WithGuestCookie(guestID string) Identity {
	if guestID == "" {
		return i
	}
	if i.kind == IdentityAnonymous {
		return GuestIdentity(guestID)
	}
	i.guestID = guestID
	return i
}

func (i Identity) Kind() IdentityKind {
	return i.kind
}

func (i Identity) IsAnonymous() bool {
	return i.kind == IdentityAnonymous
}

// UserID returns the authenticated user id, if any.
func (i Identity) UserID() (uuid.UUID, bool) {
	if i.kind != IdentityUser {
		return uuid.Nil, false
	}
	return i.userID, true
}

// GuestID returns the guest cookie value carried by the identity, if any.
func (i Identity) GuestID() (string, bool) {
	if i.guestID == "" {
		return "", false
	}
	return i.guestID, true
}

// DisplayName returns the name the identity provider knows, if any.
func (i Identity) DisplayName() string {
	return i.displayName
}
