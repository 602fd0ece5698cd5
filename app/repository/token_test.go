package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/nettodev/realms-auth/app/entity"
	"github.com/nettodev/realms-auth/app/repository"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestTokenRepository_Create(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	repo := repository.NewTokenRepository(db)
	now := time.Now()
	token := &entity.Token{
		AccessToken:  "access",
		RefreshToken: "refresh",
		UserID:       1,
		RealmID:      3,
		ExpiresAt:    now.AddDate(0, 3, 0),
		CreatedAt:    now,
	}

	mock.ExpectExec(insertTokenQuery).
		WithArgs(
			token.AccessToken,
			token.RefreshToken,
			token.UserID,
			token.RealmID,
			token.ExpiresAt,
			token.CreatedAt,
		).
		WillReturnResult(sqlmock.NewResult(7, 1))

	if err := repo.Create(context.Background(), token); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if token.ID != 7 {
		t.Fatalf("expected ID 7, got %d", token.ID)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTokenRepository_FindByAccessToken(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	repo := repository.NewTokenRepository(db)
	now := time.Now()

	mock.ExpectQuery(findTokenByAccessToken).
		WithArgs("access").
		WillReturnRows(sqlmock.NewRows(tokenColumns).AddRow(
			uint64(7), "access", "refresh", uint64(1), uint64(3), now.AddDate(0, 3, 0), now,
		))

	token, err := repo.FindByAccessToken(context.Background(), "access")
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if token == nil || token.RefreshToken != "refresh" {
		t.Fatalf("expected the session record, got %#v", token)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTokenRepository_FindByAccessToken_NotFoundIsNil(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	repo := repository.NewTokenRepository(db)

	mock.ExpectQuery(findTokenByAccessToken).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(tokenColumns))

	token, err := repo.FindByAccessToken(context.Background(), "missing")
	if err != nil {
		t.Fatalf("expected no error for an absent token, got %v", err)
	}
	if token != nil {
		t.Fatalf("expected nil token, got %#v", token)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTokenRepository_FindByRefreshTokenForUpdate(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	repo := repository.NewTokenRepository(db)
	now := time.Now()

	mock.ExpectQuery(findRefreshTokenLocked).
		WithArgs("refresh").
		WillReturnRows(sqlmock.NewRows(tokenColumns).AddRow(
			uint64(7), "access", "refresh", uint64(1), uint64(3), now.AddDate(0, 3, 0), now,
		))

	token, err := repo.FindByRefreshTokenForUpdate(context.Background(), "refresh")
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if token == nil || token.ID != 7 {
		t.Fatalf("expected the session record, got %#v", token)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTokenRepository_DeleteByRefreshToken_ReportsRowsAffected(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	repo := repository.NewTokenRepository(db)

	mock.ExpectExec(deleteTokenByRefresh).
		WithArgs("refresh").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(deleteTokenByRefresh).
		WithArgs("refresh").
		WillReturnResult(sqlmock.NewResult(0, 0))

	deleted, err := repo.DeleteByRefreshToken(context.Background(), "refresh")
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 row deleted, got %d", deleted)
	}

	deleted, err = repo.DeleteByRefreshToken(context.Background(), "refresh")
	if err != nil {
		t.Fatalf("second delete failed: %v", err)
	}
	if deleted != 0 {
		t.Fatalf("expected 0 rows on the second delete, got %d", deleted)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTokenRepository_DeleteByAccessToken(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	repo := repository.NewTokenRepository(db)

	mock.ExpectExec(deleteTokenByAccessQuery).
		WithArgs("access").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.DeleteByAccessToken(context.Background(), "access"); err != nil {
		t.Fatalf("expected no error deleting an absent row, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
