package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/anjiri1684/matchchat/models"
)

// UserRepository is the user directory: display fields, the durable
// online/last-seen flag and push preferences.
type UserRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	// FindByIDs silently skips ids it does not know.
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.User, error)
	Save(ctx context.Context, user *models.User) error
	SetOnline(ctx context.Context, id uuid.UUID) error
	SetOffline(ctx context.Context, id uuid.UUID, at time.Time) error
	// MarkOfflineExcept flags offline every online user not listed in keep.
	MarkOfflineExcept(ctx context.Context, keep []uuid.UUID, at time.Time) (int64, error)
	UpdateFCMToken(ctx context.Context, id uuid.UUID, token *string) error
	SetNotificationsEnabled(ctx context.Context, id uuid.UUID, enabled bool) error
}
