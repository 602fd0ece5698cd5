package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/nettodev/realms-auth/app/entity"
	"github.com/nettodev/realms-auth/app/token"
	"github.com/nettodev/realms-auth/config"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrAlreadyConfirmed     = errors.New("email is already confirmed")
	ErrResendThrottled      = errors.New("a proofing email was sent moments ago")
	ErrCodeNotFound         = errors.New("code not found")
	ErrInvalidRecoveryToken = errors.New("invalid recovery token")
)

// ResendResult reports when a proofing email went out and when the next one
// may be requested.
type ResendResult struct {
	SentAt       time.Time `json:"sentAt"`
	BlockedUntil time.Time `json:"blockedUntil"`
}

// EstablishSessionFunc is the session-issuing capability injected into the
// proofing engine so that email confirmation can double as a login without a
// dependency back onto the session manager.
type EstablishSessionFunc func(ctx context.Context, userID, realmID uint64) (*Session, error)

type ProofingService interface {
	RequestConfirmation(ctx context.Context, user *entity.User) (*ResendResult, error)
	ResendConfirmation(ctx context.Context, email string) (*ResendResult, error)
	ConfirmEmail(ctx context.Context, email, code string, realmID uint64) (*Session, error)
	RequestRecovery(ctx context.Context, email string) error
	CompleteRecovery(ctx context.Context, signedToken, newPassword string) error
}

type ProofingServiceOption func(*proofingService)

type proofingService struct {
	users            userRepository
	realms           realmRepository
	codes            *CodeIssuer
	signer           *token.Signer
	mailer           EmailSender
	establishSession EstablishSessionFunc
	cfg              *config.Config
	asyncRunner      AsyncRunner
}

func NewProofingService(
	users userRepository,
	realms realmRepository,
	codes *CodeIssuer,
	signer *token.Signer,
	mailer EmailSender,
	establishSession EstablishSessionFunc,
	cfg *config.Config,
	opts ...ProofingServiceOption,
) ProofingService {
	svc := &proofingService{
		users:            users,
		realms:           realms,
		codes:            codes,
		signer:           signer,
		mailer:           mailer,
		establishSession: establishSession,
		cfg:              cfg,
		asyncRunner: func(task func()) {
			go task()
		},
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func WithProofingAsyncRunner(runner AsyncRunner) ProofingServiceOption {
	return func(s *proofingService) {
		if runner != nil {
			s.asyncRunner = runner
		}
	}
}

// RequestConfirmation stores a fresh confirmation code on the user and mails
// it out. A repeat request inside the cool-down window fails with
// ErrResendThrottled.
func (s *proofingService) RequestConfirmation(ctx context.Context, user *entity.User) (*ResendResult, error) {
	if s.withinCooldown(user.EmailConfirmationSentAt) {
		return nil, ErrResendThrottled
	}

	code, err := s.codes.IssueUnique(ctx, s.users.ExistsByConfirmationCode)
	if err != nil {
		return nil, err
	}

	sentAt := time.Now()
	user.EmailConfirmationCode = sql.NullString{String: code, Valid: true}
	user.EmailConfirmationSentAt = sql.NullTime{Time: sentAt, Valid: true}
	if err = s.users.Update(ctx, user); err != nil {
		return nil, err
	}

	s.sendConfirmationEmail(user.Email, user.FirstName, code)

	return &ResendResult{
		SentAt:       sentAt,
		BlockedUntil: sentAt.Add(s.cfg.ResendCooldown),
	}, nil
}

func (s *proofingService) ResendConfirmation(ctx context.Context, email string) (*ResendResult, error) {
	user, err := s.users.FindByEmail(ctx, strings.ToLower(email))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	if user.EmailConfirmed {
		return nil, ErrAlreadyConfirmed
	}

	return s.RequestConfirmation(ctx, user)
}

// ConfirmEmail flips the user to confirmed when the code matches, clears the
// outstanding code, and establishes a session so confirmation doubles as a
// login under the given realm.
func (s *proofingService) ConfirmEmail(ctx context.Context, email, code string, realmID uint64) (*Session, error) {
	realm, err := s.realms.FindByID(ctx, realmID)
	if err != nil {
		return nil, err
	}
	if realm == nil {
		return nil, ErrRealmNotFound
	}

	email = strings.ToLower(email)
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	if user.EmailConfirmed {
		return nil, ErrAlreadyConfirmed
	}

	match, err := s.users.FindByEmailAndConfirmationCode(ctx, email, strings.ToUpper(code))
	if err != nil {
		return nil, err
	}
	if match == nil {
		return nil, ErrCodeNotFound
	}

	match.EmailConfirmed = true
	match.EmailConfirmationCode = sql.NullString{}
	match.EmailConfirmationSentAt = sql.NullTime{}
	if err = s.users.Update(ctx, match); err != nil {
		return nil, err
	}

	return s.establishSession(ctx, match.ID, realmID)
}

// RequestRecovery stores a fresh recovery code and mails a link carrying a
// signed token that embeds the email and the code, so the link is
// self-verifying.
func (s *proofingService) RequestRecovery(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, strings.ToLower(email))
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}

	if s.withinCooldown(user.RecoverPassSentAt) {
		return ErrResendThrottled
	}

	code, err := s.codes.IssueUnique(ctx, s.users.ExistsByRecoveryCode)
	if err != nil {
		return err
	}

	signed, err := s.signer.Issue(token.Claims{
		"email": user.Email,
		"code":  code,
	})
	if err != nil {
		return err
	}

	user.RecoverPassCode = sql.NullString{String: code, Valid: true}
	user.RecoverPassSentAt = sql.NullTime{Time: time.Now(), Valid: true}
	if err = s.users.Update(ctx, user); err != nil {
		return err
	}

	s.sendRecoverPassEmail(user.Email, signed)

	return nil
}

// CompleteRecovery verifies the signed recovery token, matches its embedded
// code against the user, and sets the new password. No session is
// established.
func (s *proofingService) CompleteRecovery(ctx context.Context, signedToken, newPassword string) error {
	claims, err := s.signer.Verify(signedToken)
	if err != nil {
		return ErrInvalidRecoveryToken
	}

	code := claims.Code()
	if code == "" {
		return ErrInvalidRecoveryToken
	}

	user, err := s.users.FindByEmailAndRecoveryCode(ctx, claims.Email(), code)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrCodeNotFound
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	user.PasswordHash = string(hashed)
	user.RecoverPassCode = sql.NullString{}
	user.RecoverPassSentAt = sql.NullTime{}

	return s.users.Update(ctx, user)
}

// withinCooldown reports whether now still falls inside [sentAt, sentAt+window).
func (s *proofingService) withinCooldown(sentAt sql.NullTime) bool {
	if !sentAt.Valid {
		return false
	}
	now := time.Now()
	return !now.Before(sentAt.Time) && now.Before(sentAt.Time.Add(s.cfg.ResendCooldown))
}

func (s *proofingService) sendConfirmationEmail(email, name, code string) {
	s.asyncRunner(func() {
		html := renderConfirmationEmail(name, code)
		if err := s.mailer.Send(email, confirmationEmailSubject, html); err != nil {
			logrus.WithError(err).WithField("email", email).Error("failed to send confirmation email")
		}
	})
}

func (s *proofingService) sendRecoverPassEmail(email, signedToken string) {
	s.asyncRunner(func() {
		url := s.cfg.ClientBaseURL + "/recover-pass?token=" + signedToken
		html := renderRecoverPassEmail(url)
		if err := s.mailer.Send(email, recoverPassEmailSubject, html); err != nil {
			logrus.WithError(err).WithField("email", email).Error("failed to send recovery email")
		}
	})
}
