package http

import (
	"time"

	"github.com/nettodev/realms-auth/app/entity"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type SessionResponse struct {
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	User         *entity.User `json:"user"`
}

type TokenPairResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type ResendResponse struct {
	SentAt       time.Time `json:"sentAt"`
	BlockedUntil time.Time `json:"blockedUntil"`
}
