package service

import (
	"context"
	"errors"
	"time"

	"github.com/nettodev/realms-auth/app/entity"
)

var ErrRealmExists = errors.New("realm name is already in use")

type RealmService interface {
	Get(ctx context.Context, id uint64) (*entity.Realm, error)
	List(ctx context.Context, id uint64, name string) ([]*entity.Realm, error)
	Create(ctx context.Context, realm *entity.Realm) error
}

type realmService struct {
	realms realmWriteRepository
}

type realmWriteRepository interface {
	realmRepository
	Create(ctx context.Context, realm *entity.Realm) error
}

func NewRealmService(realms realmWriteRepository) RealmService {
	return &realmService{realms: realms}
}

func (s *realmService) Get(ctx context.Context, id uint64) (*entity.Realm, error) {
	realm, err := s.realms.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if realm == nil {
		return nil, ErrRealmNotFound
	}
	return realm, nil
}

func (s *realmService) List(ctx context.Context, id uint64, name string) ([]*entity.Realm, error) {
	return s.realms.Fetch(ctx, id, name)
}

// Create is reachable only from the admin CLI; the HTTP surface treats
// realms as read-only.
func (s *realmService) Create(ctx context.Context, realm *entity.Realm) error {
	existing, err := s.realms.FindByName(ctx, realm.Name)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrRealmExists
	}

	now := time.Now()
	realm.CreatedAt = now
	realm.UpdatedAt = now

	return s.realms.Create(ctx, realm)
}
