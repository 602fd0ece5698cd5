package service_test

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nettodev/realms-auth/app/entity"
	"github.com/nettodev/realms-auth/app/repository"
	"github.com/nettodev/realms-auth/app/service"
	"github.com/nettodev/realms-auth/app/token"

	"github.com/DATA-DOG/go-sqlmock"
)

type capturedEmail struct {
	To      string
	Subject string
	HTML    string
}

type captureMailer struct {
	sent []capturedEmail
}

func (m *captureMailer) Send(to, subject, html string) error {
	m.sent = append(m.sent, capturedEmail{To: to, Subject: subject, HTML: html})
	return nil
}

// syncRunner executes async work inline so tests observe email sends
// deterministically.
func syncRunner(task func()) {
	task()
}

type establishedSession struct {
	UserID  uint64
	RealmID uint64
}

type proofingFixture struct {
	svc         service.ProofingService
	mock        sqlmock.Sqlmock
	mailer      *captureMailer
	signer      *token.Signer
	established []establishedSession
	cleanup     func()
}

func newProofingFixture(t *testing.T) *proofingFixture {
	t.Helper()

	db, mock, cleanup := newMockDB(t)
	cfg := newTestConfig()

	f := &proofingFixture{
		mock:    mock,
		mailer:  &captureMailer{},
		signer:  newTestSigner(t, cfg),
		cleanup: cleanup,
	}

	establish := func(ctx context.Context, userID, realmID uint64) (*service.Session, error) {
		f.established = append(f.established, establishedSession{UserID: userID, RealmID: realmID})
		return &service.Session{AccessToken: "access", RefreshToken: "refresh"}, nil
	}

	f.svc = service.NewProofingService(
		repository.NewUserRepository(db),
		repository.NewRealmRepository(db),
		service.NewCodeIssuer(cfg.CodeLength, cfg.CodeAlphabet),
		f.signer,
		f.mailer,
		establish,
		cfg,
		service.WithProofingAsyncRunner(syncRunner),
	)
	return f
}

func unconfirmedUser(email string) *entity.User {
	now := time.Now()
	return &entity.User{
		ID:             1,
		Email:          email,
		PasswordHash:   "hash",
		FirstName:      "Ada",
		LastName:       "Lovelace",
		EmailConfirmed: false,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func TestProofingService_RequestConfirmation_SendsCode(t *testing.T) {
	f := newProofingFixture(t)
	defer f.cleanup()

	user := unconfirmedUser("user@example.com")

	f.mock.ExpectQuery(confirmationCodeExists).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	f.mock.ExpectExec(updateUserQuery).
		WithArgs(user.PasswordHash, user.FirstName, user.LastName, false,
			sqlmock.AnyArg(), sqlmock.AnyArg(), nil, nil, sqlmock.AnyArg(), user.ID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	res, err := f.svc.RequestConfirmation(context.Background(), user)
	if err != nil {
		t.Fatalf("request confirmation failed: %v", err)
	}
	if !res.BlockedUntil.Equal(res.SentAt.Add(7 * time.Second)) {
		t.Fatalf("expected blockedUntil = sentAt + 7s, got %v and %v", res.SentAt, res.BlockedUntil)
	}

	if len(f.mailer.sent) != 1 {
		t.Fatalf("expected one email, got %d", len(f.mailer.sent))
	}
	if f.mailer.sent[0].To != user.Email {
		t.Fatalf("expected email to %q, got %q", user.Email, f.mailer.sent[0].To)
	}
	if !strings.Contains(f.mailer.sent[0].HTML, user.EmailConfirmationCode.String) {
		t.Fatalf("expected the email body to carry the code")
	}
	if len(user.EmailConfirmationCode.String) != 4 {
		t.Fatalf("expected a 4-character code, got %q", user.EmailConfirmationCode.String)
	}

	if err := f.mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestProofingService_RequestConfirmation_Throttled(t *testing.T) {
	f := newProofingFixture(t)
	defer f.cleanup()

	user := unconfirmedUser("user@example.com")
	user.EmailConfirmationSentAt = sql.NullTime{Time: time.Now().Add(-2 * time.Second), Valid: true}

	_, err := f.svc.RequestConfirmation(context.Background(), user)
	if !errors.Is(err, service.ErrResendThrottled) {
		t.Fatalf("expected ErrResendThrottled, got %v", err)
	}
	if len(f.mailer.sent) != 0 {
		t.Fatalf("expected no email inside the cool-down window")
	}

	if err := f.mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestProofingService_RequestConfirmation_CooldownBoundaryIsOpen(t *testing.T) {
	f := newProofingFixture(t)
	defer f.cleanup()

	user := unconfirmedUser("user@example.com")
	user.EmailConfirmationSentAt = sql.NullTime{Time: time.Now().Add(-7 * time.Second), Valid: true}

	f.mock.ExpectQuery(confirmationCodeExists).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	f.mock.ExpectExec(updateUserQuery).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), user.ID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if _, err := f.svc.RequestConfirmation(context.Background(), user); err != nil {
		t.Fatalf("expected a resend exactly at the window edge, got %v", err)
	}

	if err := f.mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestProofingService_ResendConfirmation_AlreadyConfirmed(t *testing.T) {
	f := newProofingFixture(t)
	defer f.cleanup()

	user := unconfirmedUser("user@example.com")
	user.EmailConfirmed = true

	f.mock.ExpectQuery(findUserByEmailQuery).
		WithArgs(user.Email).
		WillReturnRows(userRows(user))

	_, err := f.svc.ResendConfirmation(context.Background(), "User@Example.com")
	if !errors.Is(err, service.ErrAlreadyConfirmed) {
		t.Fatalf("expected ErrAlreadyConfirmed, got %v", err)
	}

	if err := f.mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestProofingService_ResendConfirmation_UnknownUser(t *testing.T) {
	f := newProofingFixture(t)
	defer f.cleanup()

	f.mock.ExpectQuery(findUserByEmailQuery).
		WithArgs("missing@example.com").
		WillReturnRows(sqlmock.NewRows(userColumns))

	_, err := f.svc.ResendConfirmation(context.Background(), "missing@example.com")
	if !errors.Is(err, service.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	if err := f.mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestProofingService_ConfirmEmail_EstablishesSession(t *testing.T) {
	f := newProofingFixture(t)
	defer f.cleanup()

	user := unconfirmedUser("user@example.com")
	user.EmailConfirmationCode = sql.NullString{String: "AC24", Valid: true}
	user.EmailConfirmationSentAt = sql.NullTime{Time: time.Now().Add(-time.Minute), Valid: true}

	expectRealmByID(f.mock, 3, "portal")
	f.mock.ExpectQuery(findUserByEmailQuery).
		WithArgs(user.Email).
		WillReturnRows(userRows(user))
	f.mock.ExpectQuery(findUserByEmailAndCode).
		WithArgs(user.Email, "AC24").
		WillReturnRows(userRows(user))
	f.mock.ExpectExec(updateUserQuery).
		WithArgs(user.PasswordHash, user.FirstName, user.LastName, true,
			nil, nil, nil, nil, sqlmock.AnyArg(), user.ID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	// The submitted code is lowercase; matching is case-insensitive.
	session, err := f.svc.ConfirmEmail(context.Background(), "User@Example.com", "ac24", 3)
	if err != nil {
		t.Fatalf("confirm email failed: %v", err)
	}
	if session.AccessToken == "" {
		t.Fatalf("expected a session to be established")
	}
	if len(f.established) != 1 || f.established[0].UserID != user.ID || f.established[0].RealmID != 3 {
		t.Fatalf("expected a session for user %d under realm 3, got %#v", user.ID, f.established)
	}

	if err := f.mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestProofingService_ConfirmEmail_WrongCode(t *testing.T) {
	f := newProofingFixture(t)
	defer f.cleanup()

	user := unconfirmedUser("user@example.com")
	user.EmailConfirmationCode = sql.NullString{String: "AC24", Valid: true}

	expectRealmByID(f.mock, 3, "portal")
	f.mock.ExpectQuery(findUserByEmailQuery).
		WithArgs(user.Email).
		WillReturnRows(userRows(user))
	f.mock.ExpectQuery(findUserByEmailAndCode).
		WithArgs(user.Email, "XXXX").
		WillReturnRows(sqlmock.NewRows(userColumns))

	_, err := f.svc.ConfirmEmail(context.Background(), user.Email, "XXXX", 3)
	if !errors.Is(err, service.ErrCodeNotFound) {
		t.Fatalf("expected ErrCodeNotFound, got %v", err)
	}
	if len(f.established) != 0 {
		t.Fatalf("expected no session on a failed confirmation")
	}

	if err := f.mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestProofingService_ConfirmEmail_AlreadyConfirmed(t *testing.T) {
	f := newProofingFixture(t)
	defer f.cleanup()

	user := unconfirmedUser("user@example.com")
	user.EmailConfirmed = true

	expectRealmByID(f.mock, 3, "portal")
	f.mock.ExpectQuery(findUserByEmailQuery).
		WithArgs(user.Email).
		WillReturnRows(userRows(user))

	_, err := f.svc.ConfirmEmail(context.Background(), user.Email, "AC24", 3)
	if !errors.Is(err, service.ErrAlreadyConfirmed) {
		t.Fatalf("expected ErrAlreadyConfirmed, got %v", err)
	}

	if err := f.mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestProofingService_ConfirmEmail_UnknownRealm(t *testing.T) {
	f := newProofingFixture(t)
	defer f.cleanup()

	f.mock.ExpectQuery(findRealmByIDQuery).
		WithArgs(uint64(99)).
		WillReturnRows(sqlmock.NewRows(realmColumns))

	_, err := f.svc.ConfirmEmail(context.Background(), "user@example.com", "AC24", 99)
	if !errors.Is(err, service.ErrRealmNotFound) {
		t.Fatalf("expected ErrRealmNotFound, got %v", err)
	}

	if err := f.mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestProofingService_RequestRecovery_MailsSignedLink(t *testing.T) {
	f := newProofingFixture(t)
	defer f.cleanup()

	user := unconfirmedUser("user@example.com")
	user.EmailConfirmed = true

	f.mock.ExpectQuery(findUserByEmailQuery).
		WithArgs(user.Email).
		WillReturnRows(userRows(user))
	f.mock.ExpectQuery(recoveryCodeExists).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	f.mock.ExpectExec(updateUserQuery).
		WithArgs(user.PasswordHash, user.FirstName, user.LastName, true,
			nil, nil, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), user.ID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := f.svc.RequestRecovery(context.Background(), user.Email); err != nil {
		t.Fatalf("request recovery failed: %v", err)
	}

	if len(f.mailer.sent) != 1 {
		t.Fatalf("expected one email, got %d", len(f.mailer.sent))
	}
	html := f.mailer.sent[0].HTML
	idx := strings.Index(html, "token=")
	if idx < 0 {
		t.Fatalf("expected the email to carry a recovery link")
	}
	signed := html[idx+len("token="):]
	if end := strings.IndexAny(signed, `"'<`); end >= 0 {
		signed = signed[:end]
	}

	claims, err := f.signer.Verify(signed)
	if err != nil {
		t.Fatalf("recovery token does not verify: %v", err)
	}
	if claims.Email() != user.Email {
		t.Fatalf("expected email claim %q, got %q", user.Email, claims.Email())
	}
	if len(claims.Code()) != 4 {
		t.Fatalf("expected a 4-character code claim, got %q", claims.Code())
	}
	if claims.Code() != user.RecoverPassCode.String {
		t.Fatalf("expected the embedded code to match the stored one")
	}

	if err := f.mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestProofingService_RequestRecovery_Throttled(t *testing.T) {
	f := newProofingFixture(t)
	defer f.cleanup()

	user := unconfirmedUser("user@example.com")
	user.RecoverPassSentAt = sql.NullTime{Time: time.Now().Add(-3 * time.Second), Valid: true}

	f.mock.ExpectQuery(findUserByEmailQuery).
		WithArgs(user.Email).
		WillReturnRows(userRows(user))

	err := f.svc.RequestRecovery(context.Background(), user.Email)
	if !errors.Is(err, service.ErrResendThrottled) {
		t.Fatalf("expected ErrResendThrottled, got %v", err)
	}
	if len(f.mailer.sent) != 0 {
		t.Fatalf("expected no email inside the cool-down window")
	}

	if err := f.mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestProofingService_CompleteRecovery_SetsPassword(t *testing.T) {
	f := newProofingFixture(t)
	defer f.cleanup()

	user := unconfirmedUser("user@example.com")
	user.RecoverPassCode = sql.NullString{String: "QR45", Valid: true}
	user.RecoverPassSentAt = sql.NullTime{Time: time.Now().Add(-time.Minute), Valid: true}

	signed, err := f.signer.Issue(token.Claims{"email": user.Email, "code": "QR45"})
	if err != nil {
		t.Fatalf("failed to issue recovery token: %v", err)
	}

	f.mock.ExpectQuery(findUserByEmailAndRecov).
		WithArgs(user.Email, "QR45").
		WillReturnRows(userRows(user))
	f.mock.ExpectExec(updateUserQuery).
		WithArgs(sqlmock.AnyArg(), user.FirstName, user.LastName, false,
			nil, nil, nil, nil, sqlmock.AnyArg(), user.ID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := f.svc.CompleteRecovery(context.Background(), signed, "new-password"); err != nil {
		t.Fatalf("complete recovery failed: %v", err)
	}

	if err := f.mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestProofingService_CompleteRecovery_InvalidToken(t *testing.T) {
	f := newProofingFixture(t)
	defer f.cleanup()

	err := f.svc.CompleteRecovery(context.Background(), "not-a-token", "new-password")
	if !errors.Is(err, service.ErrInvalidRecoveryToken) {
		t.Fatalf("expected ErrInvalidRecoveryToken, got %v", err)
	}

	if err := f.mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestProofingService_CompleteRecovery_TokenWithoutCode(t *testing.T) {
	f := newProofingFixture(t)
	defer f.cleanup()

	signed, err := f.signer.Issue(token.Claims{"email": "user@example.com"})
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}

	if err := f.svc.CompleteRecovery(context.Background(), signed, "new-password"); !errors.Is(err, service.ErrInvalidRecoveryToken) {
		t.Fatalf("expected ErrInvalidRecoveryToken, got %v", err)
	}

	if err := f.mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestProofingService_CompleteRecovery_StaleCode(t *testing.T) {
	f := newProofingFixture(t)
	defer f.cleanup()

	signed, err := f.signer.Issue(token.Claims{"email": "user@example.com", "code": "QR45"})
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}

	f.mock.ExpectQuery(findUserByEmailAndRecov).
		WithArgs("user@example.com", "QR45").
		WillReturnRows(sqlmock.NewRows(userColumns))

	if err := f.svc.CompleteRecovery(context.Background(), signed, "new-password"); !errors.Is(err, service.ErrCodeNotFound) {
		t.Fatalf("expected ErrCodeNotFound, got %v", err)
	}

	if err := f.mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
