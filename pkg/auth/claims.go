package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload is what callers provide when minting a token.
type AccessTokenPayload struct {
	UserID      uuid.UUID
	DisplayName string
	JTI         string
}

// AccessTokenClaims is the JWT claim set identifying an authenticated user.
// Issuance lives with the external identity provider; this backend only
// needs the user id and the name to seed member display names with.
type AccessTokenClaims struct {
	UserID      uuid.UUID `json:"uid"`
	DisplayName string    `json:"name,omitempty"`
	jwt.RegisteredClaims
}
