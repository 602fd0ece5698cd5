package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrMissingSecret    = errors.New("signing secret is required")
	ErrTokenMalformed   = errors.New("token is malformed")
	ErrInvalidSignature = errors.New("token signature is invalid")
	ErrTokenExpired     = errors.New("token has expired")
)

// Claims is the payload carried inside a signed token. Values survive a
// sign/verify roundtrip as JSON types, so the typed accessors below
// normalise the numeric representations.
type Claims map[string]any

func (c Claims) UserID() (uint64, bool) {
	switch v := c["userID"].(type) {
	case uint64:
		return v, true
	case int64:
		return uint64(v), true
	case float64:
		return uint64(v), true
	default:
		return 0, false
	}
}

func (c Claims) Email() string {
	s, _ := c["email"].(string)
	return s
}

func (c Claims) Code() string {
	s, _ := c["code"].(string)
	return s
}

// Signer mints and verifies HS256 signed tokens with a process-wide secret
// and a default lifetime in shorthand notation ("2h", "3M", raw milliseconds).
type Signer struct {
	secret   []byte
	lifetime string
}

func NewSigner(secret, lifetime string) (*Signer, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, ErrMissingSecret
	}
	if _, err := AddLifetime(time.Now(), lifetime); err != nil {
		return nil, err
	}
	return &Signer{secret: []byte(secret), lifetime: lifetime}, nil
}

func (s *Signer) Issue(claims Claims) (string, error) {
	return Sign(claims, s.secret, s.lifetime)
}

func (s *Signer) Verify(raw string) (Claims, error) {
	return Parse(raw, s.secret)
}

// Sign embeds the caller's claims plus an issuance timestamp and an expiry
// derived from the lifetime shorthand.
func Sign(claims Claims, secret []byte, lifetime string) (string, error) {
	if len(secret) == 0 {
		return "", ErrMissingSecret
	}

	now := time.Now()
	expiresAt, err := AddLifetime(now, lifetime)
	if err != nil {
		return "", err
	}

	payload := jwt.MapClaims{}
	for key, value := range claims {
		payload[key] = value
	}
	payload["timestamp"] = now.UnixMilli()
	payload["iat"] = jwt.NewNumericDate(now)
	payload["exp"] = jwt.NewNumericDate(expiresAt)

	return jwt.NewWithClaims(jwt.SigningMethodHS256, payload).SignedString(secret)
}

// Parse verifies the signature and expiry of a signed token and returns its
// claims. A transport "Bearer " prefix is stripped before verification.
func Parse(raw string, secret []byte) (Claims, error) {
	if len(secret) == 0 {
		return nil, ErrMissingSecret
	}

	raw = strings.TrimPrefix(strings.TrimSpace(raw), "Bearer ")

	parsed, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrInvalidSignature
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, ErrTokenMalformed
		default:
			return nil, ErrInvalidSignature
		}
	}

	payload, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, ErrTokenMalformed
	}

	return Claims(payload), nil
}

// NewOpaqueToken returns a fixed-length random string with no embedded
// claims, used as a refresh token. Uniqueness is backstopped by the store's
// unique index; the collision probability is treated as negligible.
func NewOpaqueToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
