package services

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/anjiri1684/matchchat/models"
	"github.com/anjiri1684/matchchat/notifications"
	"github.com/anjiri1684/matchchat/presence"
	"github.com/anjiri1684/matchchat/repositories"
)

type recordedEvent struct {
	name    string
	payload any
}

type recordingConn struct {
	id     string
	err    error
	mu     sync.Mutex
	events []recordedEvent
}

func newRecordingConn() *recordingConn {
	return &recordingConn{id: uuid.NewString()}
}

func (c *recordingConn) ID() string { return c.id }

func (c *recordingConn) Emit(event string, payload any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, recordedEvent{event, payload})
	return c.err
}

func (c *recordingConn) named(name string) []any {
	c.mu.Lock()
	defer c.mu.Unlock()
	var payloads []any
	for _, e := range c.events {
		if e.name == name {
			payloads = append(payloads, e.payload)
		}
	}
	return payloads
}

type fakeQueue struct {
	mu   sync.Mutex
	jobs []notifications.Job
}

func (q *fakeQueue) Submit(job notifications.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *fakeQueue) submitted() []notifications.Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]notifications.Job(nil), q.jobs...)
}

type fixture struct {
	messages *repositories.BadgerMessageRepository
	users    *repositories.BadgerUserRepository
	registry *presence.Registry
	queue    *fakeQueue
	chat     *ChatService
	presence *PresenceService
	alice    models.User
	bob      models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	f := &fixture{
		messages: repositories.NewBadgerMessageRepository(db, slog.Default()),
		users:    repositories.NewBadgerUserRepository(db),
		registry: presence.NewRegistry(4),
		queue:    &fakeQueue{},
	}
	f.chat = NewChatService(f.messages, f.users, f.registry, f.queue, 20, slog.Default())
	f.presence = NewPresenceService(f.registry, f.users, slog.Default())
	f.alice = f.user(t, "Alice")
	f.bob = f.user(t, "Bob")
	return f
}

func (f *fixture) user(t *testing.T, name string) models.User {
	t.Helper()
	user := models.User{FullName: name, Email: uuid.NewString() + "@example.com", NotificationsEnabled: true}
	require.NoError(t, f.users.Save(context.Background(), &user))
	return user
}

// connect opens a live connection for the user through the presence service.
func (f *fixture) connect(userID uuid.UUID) *recordingConn {
	conn := newRecordingConn()
	f.presence.Connect(context.Background(), userID, conn)
	return conn
}
