package repository

import (
	"context"
	"database/sql"

	"github.com/nettodev/realms-auth/app/entity"
)

type TokenRepository struct {
	db dbtx
}

func NewTokenRepository(db dbtx) *TokenRepository {
	return &TokenRepository{db: db}
}

func (r *TokenRepository) Create(ctx context.Context, token *entity.Token) error {
	query := `
		INSERT INTO tokens (access_token, refresh_token, user_id, realm_id, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	result, err := r.db.ExecContext(ctx, query,
		token.AccessToken,
		token.RefreshToken,
		token.UserID,
		token.RealmID,
		token.ExpiresAt,
		token.CreatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	token.ID = uint64(id)
	return nil
}

func (r *TokenRepository) FindByAccessToken(ctx context.Context, accessToken string) (*entity.Token, error) {
	query := `
		SELECT id, access_token, refresh_token, user_id, realm_id, expires_at, created_at
		FROM tokens WHERE access_token = ?
	`
	return r.scanToken(r.db.QueryRowContext(ctx, query, accessToken))
}

// FindByRefreshTokenForUpdate locks the row for the duration of the caller's
// transaction so a refresh token can only be redeemed once.
func (r *TokenRepository) FindByRefreshTokenForUpdate(ctx context.Context, refreshToken string) (*entity.Token, error) {
	query := `
		SELECT id, access_token, refresh_token, user_id, realm_id, expires_at, created_at
		FROM tokens WHERE refresh_token = ? FOR UPDATE
	`
	return r.scanToken(r.db.QueryRowContext(ctx, query, refreshToken))
}

// DeleteByAccessToken removes the session matching the access token.
// Deleting an absent row is not an error.
func (r *TokenRepository) DeleteByAccessToken(ctx context.Context, accessToken string) error {
	query := `DELETE FROM tokens WHERE access_token = ?`
	_, err := r.db.ExecContext(ctx, query, accessToken)
	return err
}

// DeleteByRefreshToken returns the number of rows removed so the caller can
// detect a concurrent redemption of the same refresh token.
func (r *TokenRepository) DeleteByRefreshToken(ctx context.Context, refreshToken string) (int64, error) {
	query := `DELETE FROM tokens WHERE refresh_token = ?`
	result, err := r.db.ExecContext(ctx, query, refreshToken)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *TokenRepository) scanToken(row *sql.Row) (*entity.Token, error) {
	token := &entity.Token{}
	err := row.Scan(
		&token.ID,
		&token.AccessToken,
		&token.RefreshToken,
		&token.UserID,
		&token.RealmID,
		&token.ExpiresAt,
		&token.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return token, nil
}
