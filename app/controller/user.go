package controller

import (
	"errors"
	"net/http"

	dto "github.com/nettodev/realms-auth/app/dto/http"
	"github.com/nettodev/realms-auth/app/middleware"
	"github.com/nettodev/realms-auth/app/service"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

type UserController struct {
	users    service.UserService
	sessions service.SessionService
	proofing service.ProofingService
}

func NewUserController(
	users service.UserService,
	sessions service.SessionService,
	proofing service.ProofingService,
) *UserController {
	return &UserController{
		users:    users,
		sessions: sessions,
		proofing: proofing,
	}
}

func (c *UserController) Register(ctx echo.Context) error {
	var req dto.RegisterRequest
	if err := ctx.Bind(&req); err != nil {
		logrus.WithError(err).Debug("Failed to bind register request")
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body"})
	}

	if err := req.Validate(); err != nil {
		logrus.WithField("email", req.Email).Debug("Register validation failed")
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
	}

	logrus.WithField("email", req.Email).Info("Register request received")
	user, err := c.users.Register(ctx.Request().Context(), req.Email, req.Password, req.FirstName, req.LastName)
	if err != nil {
		if errors.Is(err, service.ErrUserExists) {
			logrus.WithField("email", req.Email).Warn("Register failed: email already in use")
			return ctx.JSON(http.StatusConflict, dto.ErrorResponse{Error: "email is already in use"})
		}
		logrus.WithError(err).WithField("email", req.Email).Error("Register failed")
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
	}

	logrus.WithFields(logrus.Fields{
		"user_id": user.ID,
		"email":   user.Email,
	}).Info("User registered")

	return ctx.JSON(http.StatusCreated, user)
}

// Login answers with a token pair, or with a confirmation-resend payload
// when the account has not confirmed its email yet: an unconfirmed user can
// never log in, every attempt re-triggers the (throttled) confirmation mail.
func (c *UserController) Login(ctx echo.Context) error {
	var req dto.LoginRequest
	if err := ctx.Bind(&req); err != nil {
		logrus.WithError(err).Debug("Failed to bind login request")
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body"})
	}

	if err := req.Validate(); err != nil {
		logrus.WithField("email", req.Email).Debug("Login validation failed")
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
	}

	logrus.WithField("email", req.Email).Info("Login request received")
	session, err := c.sessions.Login(ctx.Request().Context(), req.Email, req.Password, req.RealmID)
	if err != nil {
		if errors.Is(err, service.ErrAccountNotConfirmed) {
			return c.resendOnUnconfirmedLogin(ctx, req.Email)
		}
		if errors.Is(err, service.ErrRealmNotFound) {
			logrus.WithField("realm_id", req.RealmID).Warn("Login failed: realm not found")
			return ctx.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "realm not found"})
		}
		if errors.Is(err, service.ErrInvalidCredentials) {
			logrus.WithField("email", req.Email).Warn("Login failed: invalid credentials")
			return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid email or password"})
		}
		logrus.WithError(err).WithField("email", req.Email).Error("Login failed")
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
	}

	logrus.WithField("email", req.Email).Info("Login successful")
	return ctx.JSON(http.StatusOK, dto.SessionResponse{
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
		User:         session.User,
	})
}

func (c *UserController) resendOnUnconfirmedLogin(ctx echo.Context, email string) error {
	logrus.WithField("email", email).Info("Login attempt on unconfirmed account, resending confirmation")

	resend, err := c.proofing.ResendConfirmation(ctx.Request().Context(), email)
	if err != nil {
		if errors.Is(err, service.ErrResendThrottled) {
			logrus.WithField("email", email).Warn("Confirmation resend throttled")
			return ctx.JSON(http.StatusTooManyRequests, dto.ErrorResponse{Error: "confirmation email was sent moments ago, wait before retrying"})
		}
		logrus.WithError(err).WithField("email", email).Error("Confirmation resend failed")
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
	}

	return ctx.JSON(http.StatusOK, dto.ResendResponse{
		SentAt:       resend.SentAt,
		BlockedUntil: resend.BlockedUntil,
	})
}

func (c *UserController) Logout(ctx echo.Context) error {
	record, ok := middleware.TokenFromContext(ctx)
	if !ok {
		logrus.Warn("Logout failed: missing session in context")
		return ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "unauthorized"})
	}

	logrus.WithField("user_id", record.UserID).Info("Logout request received")
	if err := c.sessions.Logout(ctx.Request().Context(), record.AccessToken); err != nil {
		logrus.WithError(err).WithField("user_id", record.UserID).Error("Logout failed")
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
	}

	logrus.WithField("user_id", record.UserID).Info("Logout successful")
	return ctx.NoContent(http.StatusNoContent)
}

func (c *UserController) RefreshTokens(ctx echo.Context) error {
	var req dto.RefreshTokensRequest
	if err := ctx.Bind(&req); err != nil {
		logrus.WithError(err).Debug("Failed to bind refresh tokens request")
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body"})
	}

	if err := req.Validate(); err != nil {
		logrus.Debug("Refresh tokens validation failed")
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
	}

	logrus.Info("Refresh tokens request received")
	session, err := c.sessions.Refresh(ctx.Request().Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, service.ErrTokenNotFound) {
			logrus.Warn("Refresh failed: token not found")
			return ctx.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "token not found"})
		}
		if errors.Is(err, service.ErrRefreshExpired) {
			logrus.Warn("Refresh failed: refresh token expired")
			return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "refresh token has expired"})
		}
		logrus.WithError(err).Error("Refresh failed")
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
	}

	logrus.WithField("user_id", session.User.ID).Info("Tokens refreshed")
	return ctx.JSON(http.StatusOK, dto.TokenPairResponse{
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
	})
}

func (c *UserController) GetMe(ctx echo.Context) error {
	user, ok := middleware.UserFromContext(ctx)
	if !ok {
		return ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "unauthorized"})
	}

	return ctx.JSON(http.StatusOK, user)
}

func (c *UserController) UpdateProfile(ctx echo.Context) error {
	var req dto.UpdateProfileRequest
	if err := ctx.Bind(&req); err != nil {
		logrus.WithError(err).Debug("Failed to bind update profile request")
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body"})
	}

	if err := req.Validate(); err != nil {
		logrus.Debug("Update profile validation failed")
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
	}

	user, ok := middleware.UserFromContext(ctx)
	if !ok {
		return ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "unauthorized"})
	}

	logrus.WithField("user_id", user.ID).Info("Update profile request received")
	updated, err := c.users.UpdateProfile(ctx.Request().Context(), user, service.ProfileChanges{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  req.Password,
	})
	if err != nil {
		if errors.Is(err, service.ErrNoChange) {
			logrus.WithField("user_id", user.ID).Debug("Update profile: nothing to change")
			return ctx.NoContent(http.StatusNotModified)
		}
		logrus.WithError(err).WithField("user_id", user.ID).Error("Update profile failed")
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
	}

	logrus.WithField("user_id", user.ID).Info("Profile updated")
	return ctx.JSON(http.StatusOK, updated)
}

func (c *UserController) ConfirmEmail(ctx echo.Context) error {
	var req dto.ConfirmEmailRequest
	if err := ctx.Bind(&req); err != nil {
		logrus.WithError(err).Debug("Failed to bind confirm email request")
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body"})
	}

	if err := req.Validate(); err != nil {
		logrus.WithField("email", req.Email).Debug("Confirm email validation failed")
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
	}

	logrus.WithField("email", req.Email).Info("Confirm email request received")
	session, err := c.proofing.ConfirmEmail(ctx.Request().Context(), req.Email, req.EmailConfirmationCode, req.RealmID)
	if err != nil {
		if errors.Is(err, service.ErrRealmNotFound) {
			logrus.WithField("realm_id", req.RealmID).Warn("Confirm email failed: realm not found")
			return ctx.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "realm not found"})
		}
		if errors.Is(err, service.ErrUserNotFound) {
			logrus.WithField("email", req.Email).Warn("Confirm email failed: user not found")
			return ctx.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "user not found"})
		}
		if errors.Is(err, service.ErrAlreadyConfirmed) {
			logrus.WithField("email", req.Email).Debug("Confirm email: already confirmed")
			return ctx.NoContent(http.StatusNotModified)
		}
		if errors.Is(err, service.ErrCodeNotFound) {
			logrus.WithField("email", req.Email).Warn("Confirm email failed: code not found")
			return ctx.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "code not found"})
		}
		logrus.WithError(err).WithField("email", req.Email).Error("Confirm email failed")
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
	}

	logrus.WithField("email", req.Email).Info("Email confirmed")
	return ctx.JSON(http.StatusOK, dto.SessionResponse{
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
		User:         session.User,
	})
}

func (c *UserController) ResendConfirmation(ctx echo.Context) error {
	var req dto.ResendConfirmationRequest
	if err := ctx.Bind(&req); err != nil {
		logrus.WithError(err).Debug("Failed to bind resend confirmation request")
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body"})
	}

	if err := req.Validate(); err != nil {
		logrus.WithField("email", req.Email).Debug("Resend confirmation validation failed")
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
	}

	logrus.WithField("email", req.Email).Info("Resend confirmation request received")
	resend, err := c.proofing.ResendConfirmation(ctx.Request().Context(), req.Email)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			logrus.WithField("email", req.Email).Warn("Resend confirmation failed: user not found")
			return ctx.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "user not found"})
		}
		if errors.Is(err, service.ErrAlreadyConfirmed) {
			logrus.WithField("email", req.Email).Debug("Resend confirmation: already confirmed")
			return ctx.NoContent(http.StatusNotModified)
		}
		if errors.Is(err, service.ErrResendThrottled) {
			logrus.WithField("email", req.Email).Warn("Resend confirmation throttled")
			return ctx.JSON(http.StatusTooManyRequests, dto.ErrorResponse{Error: "confirmation email was sent moments ago, wait before retrying"})
		}
		logrus.WithError(err).WithField("email", req.Email).Error("Resend confirmation failed")
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
	}

	logrus.WithField("email", req.Email).Info("Confirmation email resent")
	return ctx.JSON(http.StatusOK, dto.ResendResponse{
		SentAt:       resend.SentAt,
		BlockedUntil: resend.BlockedUntil,
	})
}

func (c *UserController) RequestRecovery(ctx echo.Context) error {
	var req dto.RecoverPasswordRequest
	if err := ctx.Bind(&req); err != nil {
		logrus.WithError(err).Debug("Failed to bind recovery request")
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body"})
	}

	if err := req.Validate(); err != nil {
		logrus.WithField("email", req.Email).Debug("Recovery request validation failed")
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
	}

	logrus.WithField("email", req.Email).Info("Password recovery requested")
	if err := c.proofing.RequestRecovery(ctx.Request().Context(), req.Email); err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			logrus.WithField("email", req.Email).Warn("Recovery request failed: user not found")
			return ctx.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "user not found"})
		}
		if errors.Is(err, service.ErrResendThrottled) {
			logrus.WithField("email", req.Email).Warn("Recovery request throttled")
			return ctx.JSON(http.StatusTooManyRequests, dto.ErrorResponse{Error: "recovery email was sent moments ago, wait before retrying"})
		}
		logrus.WithError(err).WithField("email", req.Email).Error("Recovery request failed")
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
	}

	logrus.WithField("email", req.Email).Info("Recovery email sent")
	return ctx.NoContent(http.StatusNoContent)
}

func (c *UserController) CompleteRecovery(ctx echo.Context) error {
	var req dto.CompleteRecoveryRequest
	if err := ctx.Bind(&req); err != nil {
		logrus.WithError(err).Debug("Failed to bind complete recovery request")
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body"})
	}

	if err := req.Validate(); err != nil {
		logrus.Debug("Complete recovery validation failed")
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
	}

	logrus.Info("Complete recovery request received")
	if err := c.proofing.CompleteRecovery(ctx.Request().Context(), req.Token, req.Password); err != nil {
		if errors.Is(err, service.ErrInvalidRecoveryToken) {
			logrus.Warn("Complete recovery failed: invalid recovery token")
			return ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "invalid recovery token"})
		}
		if errors.Is(err, service.ErrCodeNotFound) {
			logrus.Warn("Complete recovery failed: code not found")
			return ctx.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "code not found"})
		}
		logrus.WithError(err).Error("Complete recovery failed")
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
	}

	logrus.Info("Password recovered")
	return ctx.NoContent(http.StatusNoContent)
}
