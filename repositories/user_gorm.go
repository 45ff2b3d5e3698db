package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "github.com/anjiri1684/matchchat/errors"
	"github.com/anjiri1684/matchchat/models"
)

type GormUserRepository struct {
	db *gorm.DB
}

func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

func (r *GormUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: user %s", apperrors.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *GormUserRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.User, error) {
	users := []models.User{}
	if len(ids) == 0 {
		return users, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error
	return users, err
}

func (r *GormUserRepository) Save(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(user).Error
}

func (r *GormUserRepository) SetOnline(ctx context.Context, id uuid.UUID) error {
	return r.update(ctx, id, map[string]any{"is_online": true, "last_seen": nil})
}

func (r *GormUserRepository) SetOffline(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.update(ctx, id, map[string]any{"is_online": false, "last_seen": at.UTC()})
}

func (r *GormUserRepository) MarkOfflineExcept(ctx context.Context, keep []uuid.UUID, at time.Time) (int64, error) {
	query := r.db.WithContext(ctx).Model(&models.User{}).Where("is_online = ?", true)
	if len(keep) > 0 {
		query = query.Where("id NOT IN ?", keep)
	}
	result := query.Updates(map[string]any{"is_online": false, "last_seen": at.UTC()})
	return result.RowsAffected, result.Error
}

func (r *GormUserRepository) UpdateFCMToken(ctx context.Context, id uuid.UUID, token *string) error {
	return r.update(ctx, id, map[string]any{"fcm_token": token})
}

func (r *GormUserRepository) SetNotificationsEnabled(ctx context.Context, id uuid.UUID, enabled bool) error {
	return r.update(ctx, id, map[string]any{"notifications_enabled": enabled})
}

func (r *GormUserRepository) update(ctx context.Context, id uuid.UUID, values map[string]any) error {
	result := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(values)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: user %s", apperrors.ErrNotFound, id)
	}
	return nil
}
