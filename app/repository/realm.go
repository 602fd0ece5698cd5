package repository

import (
	"context"
	"database/sql"

	"github.com/nettodev/realms-auth/app/entity"
)

type RealmRepository struct {
	db dbtx
}

func NewRealmRepository(db dbtx) *RealmRepository {
	return &RealmRepository{db: db}
}

func (r *RealmRepository) Create(ctx context.Context, realm *entity.Realm) error {
	query := `
		INSERT INTO realms (name, redirect_url, background_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`
	result, err := r.db.ExecContext(ctx, query,
		realm.Name,
		realm.RedirectURL,
		realm.BackgroundURL,
		realm.CreatedAt,
		realm.UpdatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	realm.ID = uint64(id)
	return nil
}

func (r *RealmRepository) FindByID(ctx context.Context, id uint64) (*entity.Realm, error) {
	query := `
		SELECT id, name, redirect_url, background_url, created_at, updated_at
		FROM realms WHERE id = ?
	`
	return r.scanRealm(r.db.QueryRowContext(ctx, query, id))
}

func (r *RealmRepository) FindByName(ctx context.Context, name string) (*entity.Realm, error) {
	query := `
		SELECT id, name, redirect_url, background_url, created_at, updated_at
		FROM realms WHERE name = ?
	`
	return r.scanRealm(r.db.QueryRowContext(ctx, query, name))
}

// Fetch lists realms, optionally filtered by id and/or name.
func (r *RealmRepository) Fetch(ctx context.Context, id uint64, name string) ([]*entity.Realm, error) {
	query := `
		SELECT id, name, redirect_url, background_url, created_at, updated_at
		FROM realms WHERE (? = 0 OR id = ?) AND (? = '' OR name = ?)
		ORDER BY id
	`
	rows, err := r.db.QueryContext(ctx, query, id, id, name, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	realms := []*entity.Realm{}
	for rows.Next() {
		realm := &entity.Realm{}
		if err := rows.Scan(
			&realm.ID,
			&realm.Name,
			&realm.RedirectURL,
			&realm.BackgroundURL,
			&realm.CreatedAt,
			&realm.UpdatedAt,
		); err != nil {
			return nil, err
		}
		realms = append(realms, realm)
	}
	return realms, rows.Err()
}

func (r *RealmRepository) scanRealm(row *sql.Row) (*entity.Realm, error) {
	realm := &entity.Realm{}
	err := row.Scan(
		&realm.ID,
		&realm.Name,
		&realm.RedirectURL,
		&realm.BackgroundURL,
		&realm.CreatedAt,
		&realm.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return realm, nil
}
