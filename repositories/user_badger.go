package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"

	apperrors "github.com/anjiri1684/matchchat/errors"
	"github.com/anjiri1684/matchchat/models"
)

type BadgerUserRepository struct {
	db *badger.DB
}

func NewBadgerUserRepository(db *badger.DB) *BadgerUserRepository {
	return &BadgerUserRepository{db: db}
}

func (r *BadgerUserRepository) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	err := r.db.View(func(txn *badger.Txn) error {
		return getUser(txn, id, &user)
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *BadgerUserRepository) FindByIDs(_ context.Context, ids []uuid.UUID) ([]models.User, error) {
	users := []models.User{}
	err := r.db.View(func(txn *badger.Txn) error {
		for _, id := range lo.Uniq(ids) {
			var user models.User
			err := getUser(txn, id, &user)
			if errors.Is(err, apperrors.ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			users = append(users, user)
		}
		return nil
	})
	return users, err
}

func (r *BadgerUserRepository) Save(_ context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	return update(r.db, func(txn *badger.Txn) error {
		return putUser(txn, user)
	})
}

func (r *BadgerUserRepository) SetOnline(_ context.Context, id uuid.UUID) error {
	return r.mutate(id, func(user *models.User) {
		user.IsOnline = true
		user.LastSeen = nil
	})
}

func (r *BadgerUserRepository) SetOffline(_ context.Context, id uuid.UUID, at time.Time) error {
	lastSeen := at.UTC()
	return r.mutate(id, func(user *models.User) {
		user.IsOnline = false
		user.LastSeen = &lastSeen
	})
}

func (r *BadgerUserRepository) MarkOfflineExcept(_ context.Context, keep []uuid.UUID, at time.Time) (int64, error) {
	lastSeen := at.UTC()
	skip := lo.SliceToMap(keep, func(id uuid.UUID) (uuid.UUID, struct{}) {
		return id, struct{}{}
	})

	var count int64
	err := update(r.db, func(txn *badger.Txn) error {
		count = 0
		for _, key := range keysWithPrefix(txn, userPrefix, false) {
			id, err := lastSegment(key)
			if err != nil {
				return err
			}
			if _, ok := skip[id]; ok {
				continue
			}
			var user models.User
			if err = getUser(txn, id, &user); err != nil {
				return err
			}
			if !user.IsOnline {
				continue
			}
			user.IsOnline = false
			user.LastSeen = &lastSeen
			user.UpdatedAt = lastSeen
			if err = putUser(txn, &user); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	return count, err
}

func (r *BadgerUserRepository) UpdateFCMToken(_ context.Context, id uuid.UUID, token *string) error {
	return r.mutate(id, func(user *models.User) {
		user.FCMToken = token
	})
}

func (r *BadgerUserRepository) SetNotificationsEnabled(_ context.Context, id uuid.UUID, enabled bool) error {
	return r.mutate(id, func(user *models.User) {
		user.NotificationsEnabled = enabled
	})
}

func (r *BadgerUserRepository) mutate(id uuid.UUID, change func(user *models.User)) error {
	return update(r.db, func(txn *badger.Txn) error {
		var user models.User
		if err := getUser(txn, id, &user); err != nil {
			return err
		}
		change(&user)
		user.UpdatedAt = time.Now().UTC()
		return putUser(txn, &user)
	})
}

// storedUser mirrors models.User with the push token kept, since the model hides
// it from JSON responses.
type storedUser struct {
	models.User
	FCMToken *string `json:"fcm_token,omitempty"`
}

func getUser(txn *badger.Txn, id uuid.UUID, out *models.User) error {
	var stored storedUser
	err := getJSON(txn, userKey(id), &stored)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("%w: user %s", apperrors.ErrNotFound, id)
	}
	if err != nil {
		return err
	}
	*out = stored.User
	out.FCMToken = stored.FCMToken
	return nil
}

func putUser(txn *badger.Txn, user *models.User) error {
	return setJSON(txn, userKey(user.ID), storedUser{User: *user, FCMToken: user.FCMToken})
}
