package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/nettodev/realms-auth/app/entity"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUserExists   = errors.New("email is already in use")
	ErrUserNotFound = errors.New("user not found")
	ErrNoChange     = errors.New("nothing to update")
)

// AsyncRunner executes fire-and-forget work such as outbound email sends.
// Tests inject a synchronous runner.
type AsyncRunner func(task func())

// ProfileChanges carries the fields a user may change about themselves.
// Proofing fields are deliberately absent: they are never writable through
// the profile surface.
type ProfileChanges struct {
	FirstName string
	LastName  string
	Password  string
}

type UserService interface {
	Register(ctx context.Context, email, password, firstName, lastName string) (*entity.User, error)
	UpdateProfile(ctx context.Context, user *entity.User, changes ProfileChanges) (*entity.User, error)
}

type UserServiceOption func(*userService)

type userService struct {
	users       userRepository
	codes       *CodeIssuer
	mailer      EmailSender
	asyncRunner AsyncRunner
}

func NewUserService(
	users userRepository,
	codes *CodeIssuer,
	mailer EmailSender,
	opts ...UserServiceOption,
) UserService {
	svc := &userService{
		users:  users,
		codes:  codes,
		mailer: mailer,
		asyncRunner: func(task func()) {
			go task()
		},
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func WithUserAsyncRunner(runner AsyncRunner) UserServiceOption {
	return func(s *userService) {
		if runner != nil {
			s.asyncRunner = runner
		}
	}
}

// Register creates an unconfirmed user with an initial confirmation code and
// mails the code out. The confirmation send date stays unset until the first
// explicit resend, so a fresh registration is never throttled.
func (s *userService) Register(ctx context.Context, email, password, firstName, lastName string) (*entity.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrUserExists
	}

	code, err := s.codes.IssueUnique(ctx, s.users.ExistsByConfirmationCode)
	if err != nil {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user := &entity.User{
		Email:                 email,
		PasswordHash:          string(hashed),
		FirstName:             firstName,
		LastName:              lastName,
		EmailConfirmed:        false,
		EmailConfirmationCode: sql.NullString{String: code, Valid: true},
		CreatedAt:             now,
		UpdatedAt:             now,
	}

	if err = s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.asyncRunner(func() {
		html := renderConfirmationEmail(user.FirstName, code)
		if err := s.mailer.Send(user.Email, confirmationEmailSubject, html); err != nil {
			logrus.WithError(err).WithField("email", user.Email).Error("failed to send confirmation email")
		}
	})

	return user, nil
}

// UpdateProfile applies the provided name/password changes. When nothing
// actually differs from the current record it fails with ErrNoChange.
func (s *userService) UpdateProfile(ctx context.Context, user *entity.User, changes ProfileChanges) (*entity.User, error) {
	changed := false

	if changes.FirstName != "" && changes.FirstName != user.FirstName {
		user.FirstName = changes.FirstName
		changed = true
	}
	if changes.LastName != "" && changes.LastName != user.LastName {
		user.LastName = changes.LastName
		changed = true
	}
	if changes.Password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(changes.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = string(hashed)
		changed = true
	}

	if !changed {
		return nil, ErrNoChange
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}
