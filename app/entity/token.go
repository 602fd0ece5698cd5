package entity

import "time"

// Token is one issued session: a signed access token paired with an opaque
// refresh token. Deleting the row is the revocation mechanism; there is no
// revoked flag. ExpiresAt bounds the refresh token only — access tokens
// carry their own expiry inside the signature.
type Token struct {
	ID           uint64    `json:"id"`
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	UserID       uint64    `json:"userID"`
	RealmID      uint64    `json:"realmID"`
	ExpiresAt    time.Time `json:"expiresAt"`
	CreatedAt    time.Time `json:"createdAt"`
}
