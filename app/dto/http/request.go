package http

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(6, 60)),
		validation.Field(&r.FirstName, validation.Required, validation.Length(2, 30)),
		validation.Field(&r.LastName, validation.Required, validation.Length(2, 30)),
	)
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	RealmID  uint64 `json:"realmID"`
}

func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
		validation.Field(&r.RealmID, validation.Required),
	)
}

type RefreshTokensRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (r RefreshTokensRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.RefreshToken, validation.Required),
	)
}

type ConfirmEmailRequest struct {
	Email                 string `json:"email"`
	EmailConfirmationCode string `json:"emailConfirmationCode"`
	RealmID               uint64 `json:"realmID"`
}

func (r ConfirmEmailRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.EmailConfirmationCode, validation.Required),
		validation.Field(&r.RealmID, validation.Required),
	)
}

type ResendConfirmationRequest struct {
	Email string `json:"email"`
}

func (r ResendConfirmationRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

type RecoverPasswordRequest struct {
	Email string `json:"email"`
}

func (r RecoverPasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

type CompleteRecoveryRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

func (r CompleteRecoveryRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Token, validation.Required),
		validation.Field(&r.Password, validation.Required, validation.Length(6, 60)),
	)
}

type UpdateProfileRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Password  string `json:"password"`
}

func (r UpdateProfileRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FirstName, validation.Length(2, 30)),
		validation.Field(&r.LastName, validation.Length(2, 30)),
		validation.Field(&r.Password, validation.Length(6, 60)),
	)
}
