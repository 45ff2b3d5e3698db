package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"

	apperrors "github.com/anjiri1684/matchchat/errors"
	"github.com/anjiri1684/matchchat/models"
)

func saveUser(t *testing.T, repo UserRepository, name string) models.User {
	t.Helper()
	user := models.User{FullName: name, Email: name + "@example.com", NotificationsEnabled: true}
	require.NoError(t, repo.Save(context.Background(), &user))
	return user
}

func TestBadgerUser_Save_And_Find(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repo := NewBadgerUserRepository(newBadger(t))
	alice := saveUser(t, repo, "alice")
	bob := saveUser(t, repo, "bob")

	found, err := repo.FindByID(ctx, alice.ID)
	req.NoError(err)
	req.Equal("alice", found.FullName)

	_, err = repo.FindByID(ctx, uuid.New())
	req.ErrorIs(err, apperrors.ErrNotFound)

	users, err := repo.FindByIDs(ctx, []uuid.UUID{alice.ID, uuid.New(), bob.ID, alice.ID})
	req.NoError(err)
	req.ElementsMatch([]string{"alice", "bob"}, lo.Map(users, func(u models.User, _ int) string { return u.FullName }))
}

func TestBadgerUser_Online_Offline(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repo := NewBadgerUserRepository(newBadger(t))
	alice := saveUser(t, repo, "alice")
	at := time.Now().UTC()

	req.NoError(repo.SetOffline(ctx, alice.ID, at))
	found, err := repo.FindByID(ctx, alice.ID)
	req.NoError(err)
	req.False(found.IsOnline)
	req.True(at.Equal(*found.LastSeen))

	// Going online clears the last seen stamp
	req.NoError(repo.SetOnline(ctx, alice.ID))
	found, err = repo.FindByID(ctx, alice.ID)
	req.NoError(err)
	req.True(found.IsOnline)
	req.Nil(found.LastSeen)

	req.ErrorIs(repo.SetOnline(ctx, uuid.New()), apperrors.ErrNotFound)
}

func TestBadgerUser_MarkOfflineExcept(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repo := NewBadgerUserRepository(newBadger(t))
	alice := saveUser(t, repo, "alice")
	bob := saveUser(t, repo, "bob")
	carol := saveUser(t, repo, "carol")
	req.NoError(repo.SetOnline(ctx, alice.ID))
	req.NoError(repo.SetOnline(ctx, bob.ID))

	// When only alice is still connected
	count, err := repo.MarkOfflineExcept(ctx, []uuid.UUID{alice.ID}, time.Now())
	req.NoError(err)

	// Then only bob is flipped
	req.EqualValues(1, count)
	found, err := repo.FindByID(ctx, bob.ID)
	req.NoError(err)
	req.False(found.IsOnline)
	req.NotNil(found.LastSeen)

	found, err = repo.FindByID(ctx, alice.ID)
	req.NoError(err)
	req.True(found.IsOnline)

	found, err = repo.FindByID(ctx, carol.ID)
	req.NoError(err)
	req.Nil(found.LastSeen)
}

func TestBadgerUser_Push_Preferences(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repo := NewBadgerUserRepository(newBadger(t))
	alice := saveUser(t, repo, "alice")

	req.NoError(repo.UpdateFCMToken(ctx, alice.ID, lo.ToPtr("device-token")))
	req.NoError(repo.SetNotificationsEnabled(ctx, alice.ID, false))

	found, err := repo.FindByID(ctx, alice.ID)
	req.NoError(err)
	req.Equal("device-token", *found.FCMToken)
	req.False(found.NotificationsEnabled)

	req.NoError(repo.UpdateFCMToken(ctx, alice.ID, nil))
	found, err = repo.FindByID(ctx, alice.ID)
	req.NoError(err)
	req.Nil(found.FCMToken)
}
