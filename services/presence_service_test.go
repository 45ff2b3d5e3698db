package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/anjiri1684/matchchat/models"
)

func TestPresenceService_Connect_Broadcasts_Online_Once(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	watcher := f.connect(f.alice.ID)
	req.NoError(f.users.SetOffline(ctx, f.bob.ID, time.Now()))

	// When bob connects two devices
	phone := newRecordingConn()
	req.True(f.presence.Connect(ctx, f.bob.ID, phone))
	req.False(f.presence.Connect(ctx, f.bob.ID, newRecordingConn()))

	// Then the directory shows bob online without a last seen
	bob, err := f.users.FindByID(ctx, f.bob.ID)
	req.NoError(err)
	req.True(bob.IsOnline)
	req.Nil(bob.LastSeen)

	// And exactly one transition reached other users and bob
	online := models.UserStatusChangedEvent{UserID: f.bob.ID, IsOnline: true}
	req.Contains(watcher.named(models.EventUserStatusChanged), online)
	req.Len(watcher.named(models.EventUserStatusChanged), 2) // alice's own then bob's
	req.Equal([]any{online}, phone.named(models.EventUserStatusChanged))
	req.True(f.presence.IsOnline(f.bob.ID))
}

func TestPresenceService_Disconnect_Last_Connection_Persists_Last_Seen(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	watcher := f.connect(f.alice.ID)
	phone, laptop := newRecordingConn(), newRecordingConn()
	f.presence.Connect(ctx, f.bob.ID, phone)
	f.presence.Connect(ctx, f.bob.ID, laptop)
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	f.presence.now = func() time.Time { return at }

	// When one device leaves, bob stays online
	req.False(f.presence.Disconnect(ctx, f.bob.ID, phone))
	bob, err := f.users.FindByID(ctx, f.bob.ID)
	req.NoError(err)
	req.True(bob.IsOnline)

	// When the last one leaves, bob goes offline with a last seen
	req.True(f.presence.Disconnect(ctx, f.bob.ID, laptop))
	bob, err = f.users.FindByID(ctx, f.bob.ID)
	req.NoError(err)
	req.False(bob.IsOnline)
	req.True(at.Equal(*bob.LastSeen))

	statuses := watcher.named(models.EventUserStatusChanged)
	last := statuses[len(statuses)-1].(models.UserStatusChangedEvent)
	req.Equal(f.bob.ID, last.UserID)
	req.False(last.IsOnline)
	req.True(at.Equal(*last.LastSeen))
	req.False(f.presence.IsOnline(f.bob.ID))
}

func TestPresenceService_Sweep_Marks_Stale_Users_Offline(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)

	// Given both flagged online in the directory but only alice connected
	req.NoError(f.users.SetOnline(ctx, f.bob.ID))
	f.connect(f.alice.ID)

	count, err := f.presence.Sweep(ctx)
	req.NoError(err)

	req.EqualValues(1, count)
	bob, err := f.users.FindByID(ctx, f.bob.ID)
	req.NoError(err)
	req.False(bob.IsOnline)
	alice, err := f.users.FindByID(ctx, f.alice.ID)
	req.NoError(err)
	req.True(alice.IsOnline)
}

// stallingConn blocks on one user's online event until released.
type stallingConn struct {
	id      string
	target  uuid.UUID
	stalled chan struct{}
	release chan struct{}
}

func (c *stallingConn) ID() string { return c.id }

func (c *stallingConn) Emit(_ string, payload any) error {
	if status, ok := payload.(models.UserStatusChangedEvent); ok && status.UserID == c.target && status.IsOnline {
		close(c.stalled)
		<-c.release
	}
	return nil
}

func TestPresenceService_Stalled_Peer_Only_Delays_That_User(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	peer := &stallingConn{id: uuid.NewString(), target: f.bob.ID, stalled: make(chan struct{}), release: make(chan struct{})}
	f.registry.Register(f.alice.ID, peer, nil)

	// Given bob's online broadcast is stuck on alice's socket
	bobConn := newRecordingConn()
	bobDone := make(chan struct{})
	go func() {
		f.presence.Connect(ctx, f.bob.ID, bobConn)
		close(bobDone)
	}()
	<-peer.stalled

	// Then another user still connects and disconnects
	carol := f.user(t, "Carol")
	carolConn := newRecordingConn()
	req.True(f.presence.Connect(ctx, carol.ID, carolConn))
	req.True(f.presence.Disconnect(ctx, carol.ID, carolConn))

	// And bob's own disconnect waits for the stalled broadcast
	disconnected := make(chan bool, 1)
	go func() { disconnected <- f.presence.Disconnect(ctx, f.bob.ID, bobConn) }()
	select {
	case <-disconnected:
		req.Fail("disconnect overtook the online broadcast")
	case <-time.After(50 * time.Millisecond):
	}

	close(peer.release)
	<-bobDone
	req.True(<-disconnected)
	req.False(f.presence.IsOnline(f.bob.ID))
}
