package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/nettodev/realms-auth/app/entity"
)

const userSelectColumns = `id, email, password_hash, first_name, last_name, email_confirmed,
		       email_confirmation_code, email_confirmation_sent_at,
		       recover_pass_code, recover_pass_sent_at, created_at, updated_at`

type UserRepository struct {
	db dbtx
}

func NewUserRepository(db dbtx) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *entity.User) error {
	query := `
		INSERT INTO users (email, password_hash, first_name, last_name, email_confirmed, email_confirmation_code, email_confirmation_sent_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := r.db.ExecContext(ctx, query,
		user.Email,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		user.EmailConfirmed,
		user.EmailConfirmationCode,
		user.EmailConfirmationSentAt,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	user.ID = uint64(id)
	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id uint64) (*entity.User, error) {
	query := `
		SELECT ` + userSelectColumns + `
		FROM users WHERE id = ?
	`
	return r.scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	query := `
		SELECT ` + userSelectColumns + `
		FROM users WHERE email = ?
	`
	return r.scanUser(r.db.QueryRowContext(ctx, query, email))
}

func (r *UserRepository) FindByEmailAndConfirmationCode(ctx context.Context, email, code string) (*entity.User, error) {
	query := `
		SELECT ` + userSelectColumns + `
		FROM users WHERE email = ? AND email_confirmation_code = ?
	`
	return r.scanUser(r.db.QueryRowContext(ctx, query, email, code))
}

func (r *UserRepository) FindByEmailAndRecoveryCode(ctx context.Context, email, code string) (*entity.User, error) {
	query := `
		SELECT ` + userSelectColumns + `
		FROM users WHERE email = ? AND recover_pass_code = ?
	`
	return r.scanUser(r.db.QueryRowContext(ctx, query, email, code))
}

// ExistsByConfirmationCode reports whether any user holds the code.
// Outstanding codes are a namespace shared across all users.
func (r *UserRepository) ExistsByConfirmationCode(ctx context.Context, code string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE email_confirmation_code = ?)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, code).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *UserRepository) ExistsByRecoveryCode(ctx context.Context, code string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE recover_pass_code = ?)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, code).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *UserRepository) Update(ctx context.Context, user *entity.User) error {
	query := `
		UPDATE users SET
			password_hash = ?,
			first_name = ?,
			last_name = ?,
			email_confirmed = ?,
			email_confirmation_code = ?,
			email_confirmation_sent_at = ?,
			recover_pass_code = ?,
			recover_pass_sent_at = ?,
			updated_at = ?
		WHERE id = ?
	`
	user.UpdatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, query,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		user.EmailConfirmed,
		user.EmailConfirmationCode,
		user.EmailConfirmationSentAt,
		user.RecoverPassCode,
		user.RecoverPassSentAt,
		user.UpdatedAt,
		user.ID,
	)
	return err
}

func (r *UserRepository) scanUser(row *sql.Row) (*entity.User, error) {
	user := &entity.User{}
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.FirstName,
		&user.LastName,
		&user.EmailConfirmed,
		&user.EmailConfirmationCode,
		&user.EmailConfirmationSentAt,
		&user.RecoverPassCode,
		&user.RecoverPassSentAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}
