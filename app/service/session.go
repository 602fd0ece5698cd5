package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/nettodev/realms-auth/app/entity"
	"github.com/nettodev/realms-auth/app/repository"
	"github.com/nettodev/realms-auth/app/token"
	"github.com/nettodev/realms-auth/config"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrAccountNotConfirmed = errors.New("email is not confirmed")
	ErrRealmNotFound       = errors.New("realm not found")
	ErrTokenNotFound       = errors.New("token not found")
	ErrRefreshExpired      = errors.New("refresh token has expired")
)

type userRepository interface {
	Create(ctx context.Context, user *entity.User) error
	FindByID(ctx context.Context, id uint64) (*entity.User, error)
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	FindByEmailAndConfirmationCode(ctx context.Context, email, code string) (*entity.User, error)
	FindByEmailAndRecoveryCode(ctx context.Context, email, code string) (*entity.User, error)
	ExistsByConfirmationCode(ctx context.Context, code string) (bool, error)
	ExistsByRecoveryCode(ctx context.Context, code string) (bool, error)
	Update(ctx context.Context, user *entity.User) error
}

type tokenRepository interface {
	Create(ctx context.Context, token *entity.Token) error
	FindByAccessToken(ctx context.Context, accessToken string) (*entity.Token, error)
	DeleteByAccessToken(ctx context.Context, accessToken string) error
}

type realmRepository interface {
	FindByID(ctx context.Context, id uint64) (*entity.Realm, error)
	FindByName(ctx context.Context, name string) (*entity.Realm, error)
	Fetch(ctx context.Context, id uint64, name string) ([]*entity.Realm, error)
}

// Session is an issued access/refresh pair together with the user it
// belongs to.
type Session struct {
	AccessToken  string
	RefreshToken string
	User         *entity.User
}

type SessionService interface {
	Login(ctx context.Context, email, password string, realmID uint64) (*Session, error)
	EstablishSession(ctx context.Context, userID, realmID uint64) (*Session, error)
	Refresh(ctx context.Context, refreshToken string) (*Session, error)
	Logout(ctx context.Context, accessToken string) error
}

type sessionService struct {
	db     *sql.DB
	users  userRepository
	tokens tokenRepository
	realms realmRepository
	signer *token.Signer
	cfg    *config.Config
}

func NewSessionService(
	db *sql.DB,
	users userRepository,
	tokens tokenRepository,
	realms realmRepository,
	signer *token.Signer,
	cfg *config.Config,
) SessionService {
	return &sessionService{
		db:     db,
		users:  users,
		tokens: tokens,
		realms: realms,
		signer: signer,
		cfg:    cfg,
	}
}

// Login resolves the user by email under the given realm. An unconfirmed
// account fails with ErrAccountNotConfirmed before the password is even
// checked, so the caller can fall back to a confirmation resend. A missing
// user and a wrong password are indistinguishable to the caller.
func (s *sessionService) Login(ctx context.Context, email, password string, realmID uint64) (*Session, error) {
	realm, err := s.realms.FindByID(ctx, realmID)
	if err != nil {
		return nil, err
	}
	if realm == nil {
		return nil, ErrRealmNotFound
	}

	user, err := s.users.FindByEmail(ctx, strings.ToLower(email))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}

	if !user.EmailConfirmed {
		return nil, ErrAccountNotConfirmed
	}

	if err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.EstablishSession(ctx, user.ID, realmID)
}

// EstablishSession mints a token pair and persists it. This is the single
// path used by login, email confirmation, and refresh rotation.
func (s *sessionService) EstablishSession(ctx context.Context, userID, realmID uint64) (*Session, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	pair, err := s.mintTokenPair(user, realmID)
	if err != nil {
		return nil, err
	}

	if err = s.tokens.Create(ctx, pair); err != nil {
		return nil, err
	}

	return &Session{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User:         user,
	}, nil
}

// Refresh redeems a refresh token for a new pair. Rotation is one-shot: the
// old record is removed inside the same transaction that created the new
// one, and the row lock plus the rows-affected check make two concurrent
// redemptions of the same token impossible.
func (s *sessionService) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	txTokens := repository.NewTokenRepository(tx)

	old, err := txTokens.FindByRefreshTokenForUpdate(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	if old == nil {
		return nil, ErrTokenNotFound
	}

	if old.ExpiresAt.Before(time.Now()) {
		return nil, ErrRefreshExpired
	}

	txUsers := repository.NewUserRepository(tx)
	user, err := txUsers.FindByID(ctx, old.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrTokenNotFound
	}

	rowsDeleted, err := txTokens.DeleteByRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	if rowsDeleted == 0 {
		return nil, ErrTokenNotFound
	}

	pair, err := s.mintTokenPair(user, old.RealmID)
	if err != nil {
		return nil, err
	}
	if err = txTokens.Create(ctx, pair); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	return &Session{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User:         user,
	}, nil
}

// Logout deletes the session record matching the access token. Deleting an
// absent record is not an error, so logout is idempotent in effect.
func (s *sessionService) Logout(ctx context.Context, accessToken string) error {
	return s.tokens.DeleteByAccessToken(ctx, accessToken)
}

func (s *sessionService) mintTokenPair(user *entity.User, realmID uint64) (*entity.Token, error) {
	accessToken, err := s.signer.Issue(token.Claims{
		"userID": user.ID,
		"email":  user.Email,
	})
	if err != nil {
		return nil, err
	}

	now := time.Now()
	expiresAt, err := token.AddLifetime(now, s.cfg.JWTExpirationRefresh)
	if err != nil {
		return nil, err
	}

	return &entity.Token{
		AccessToken:  accessToken,
		RefreshToken: token.NewOpaqueToken(),
		UserID:       user.ID,
		RealmID:      realmID,
		ExpiresAt:    expiresAt,
		CreatedAt:    now,
	}, nil
}
