package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/anjiri1684/matchchat/models"
	"github.com/anjiri1684/matchchat/notifications"
	"github.com/anjiri1684/matchchat/presence"
	"github.com/anjiri1684/matchchat/repositories"
	"github.com/anjiri1684/matchchat/services"
)

type outFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type fakeTransport struct {
	inbound chan []byte
	written chan outFrame

	mu     sync.Mutex
	closed bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{inbound: make(chan []byte, 16), written: make(chan outFrame, 64)}
}

func (f *fakeTransport) ReadJSON(v any) error {
	data, ok := <-f.inbound
	if !ok {
		return io.EOF
	}
	return json.Unmarshal(data, v)
}

func (f *fakeTransport) WriteJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var frame outFrame
	if err = json.Unmarshal(data, &frame); err != nil {
		return err
	}
	f.written <- frame
	return nil
}

func (f *fakeTransport) SetWriteDeadline(time.Time) error { return nil }

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeTransport) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeTransport) send(t *testing.T, frame any) {
	t.Helper()
	data, err := json.Marshal(frame)
	require.NoError(t, err)
	f.inbound <- data
}

// next waits for the first written frame named event, skipping the others.
func (f *fakeTransport) next(t *testing.T, event string, out any) {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case frame := <-f.written:
			if frame.Event != event {
				continue
			}
			if out != nil {
				require.NoError(t, json.Unmarshal(frame.Data, out))
			}
			return
		case <-timeout:
			require.FailNow(t, "frame not written", event)
		}
	}
}

type harness struct {
	deps   Dependencies
	users  *repositories.BadgerUserRepository
	tokens map[string]uuid.UUID
	alice  models.User
	bob    models.User
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	h := &harness{users: repositories.NewBadgerUserRepository(db), tokens: map[string]uuid.UUID{}}
	registry := presence.NewRegistry(4)
	queue := notifications.NewDispatcher(notifications.NewLogNotifier(slog.Default()), 1, 8, time.Second, slog.Default())
	chat := services.NewChatService(repositories.NewBadgerMessageRepository(db, slog.Default()), h.users, registry, queue, 100, slog.Default())
	h.deps = Dependencies{
		Chat:     chat,
		Presence: services.NewPresenceService(registry, h.users, slog.Default()),
		Authenticate: func(token string) (uuid.UUID, error) {
			id, ok := h.tokens[token]
			if !ok {
				return uuid.Nil, fmt.Errorf("unknown token")
			}
			return id, nil
		},
		Log: slog.Default(),
	}
	h.alice = h.user(t, "Alice")
	h.bob = h.user(t, "Bob")
	return h
}

func (h *harness) user(t *testing.T, name string) models.User {
	t.Helper()
	user := models.User{FullName: name, Email: name + "@example.com", NotificationsEnabled: true}
	require.NoError(t, h.users.Save(context.Background(), &user))
	h.tokens[name+"-token"] = user.ID
	return user
}

// open authenticates a session for name and returns its transport and a
// channel closed when Serve returns.
func (h *harness) open(t *testing.T, name string) (*fakeTransport, chan struct{}) {
	t.Helper()
	transport := newFakeTransport()
	done := make(chan struct{})
	go func() {
		NewSession(transport, h.deps).Serve(context.Background())
		close(done)
	}()
	transport.send(t, AuthFrame{Type: "auth", Token: name + "-token"})
	transport.next(t, models.EventAuthenticated, nil)
	return transport, done
}

func TestSession_Handshake_Rejections(t *testing.T) {
	h := newHarness(t)
	tests := []struct {
		name  string
		frame any
	}{
		{name: "wrong type", frame: map[string]string{"type": "hello", "token": "Alice-token"}},
		{name: "bad token", frame: AuthFrame{Type: "auth", Token: "forged"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			transport := newFakeTransport()
			done := make(chan struct{})
			go func() {
				NewSession(transport, h.deps).Serve(context.Background())
				close(done)
			}()
			transport.send(t, tt.frame)

			var event ErrorEvent
			transport.next(t, models.EventError, &event)
			req.NotEmpty(event.Error)
			<-done
			req.True(transport.isClosed())
		})
	}
}

func TestSession_Message_Flow_Between_Two_Users(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	alice, aliceDone := h.open(t, "Alice")
	bob, bobDone := h.open(t, "Bob")

	// When alice sends a message
	alice.send(t, Envelope{Event: models.EventSendMessage, Data: SendMessagePayload{ReceiverID: h.bob.ID, Content: "hi"}})

	// Then alice gets the ack and bob the live message
	var sent MessageSentEvent
	alice.next(t, models.EventMessageSent, &sent)
	req.True(sent.Success)
	req.Equal("hi", sent.Message.Content)

	var pushed models.Message
	bob.next(t, models.EventNewMessage, &pushed)
	req.Equal(sent.Message.ID, pushed.ID)
	req.Equal("Alice", pushed.Sender.FullName)

	// When bob types and reads it
	bob.send(t, Envelope{Event: models.EventTypingStart, Data: TypingPayload{ReceiverID: h.alice.ID}})
	var typing models.UserTypingEvent
	alice.next(t, models.EventUserTyping, &typing)
	req.Equal(models.UserTypingEvent{UserID: h.bob.ID, IsTyping: true}, typing)

	bob.send(t, Envelope{Event: models.EventMarkAsRead, Data: MarkAsReadPayload{MessageID: pushed.ID}})
	var receipt models.MessageReadEvent
	alice.next(t, models.EventMessageRead, &receipt)
	req.Equal(pushed.ID, receipt.MessageID)
	req.NotNil(receipt.ReadAt)

	// When bob goes away
	close(bob.inbound)
	<-bobDone

	// Then alice sees bob offline
	var status models.UserStatusChangedEvent
	for status.UserID != h.bob.ID || status.IsOnline {
		alice.next(t, models.EventUserStatusChanged, &status)
	}
	req.NotNil(status.LastSeen)

	close(alice.inbound)
	<-aliceDone
}

func TestSession_Send_Message_Errors(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	alice, done := h.open(t, "Alice")
	defer func() {
		close(alice.inbound)
		<-done
	}()

	tests := []struct {
		name string
		data any
	}{
		{name: "missing receiver", data: map[string]string{"content": "hi"}},
		{name: "malformed receiver", data: map[string]string{"receiver_id": "nope", "content": "hi"}},
		{name: "empty content", data: SendMessagePayload{ReceiverID: h.bob.ID}},
		{name: "unknown receiver", data: SendMessagePayload{ReceiverID: uuid.New(), Content: "hi"}},
	}
	for _, tt := range tests {
		alice.send(t, Envelope{Event: models.EventSendMessage, Data: tt.data})
		var failure MessageErrorEvent
		alice.next(t, models.EventMessageError, &failure)
		req.False(failure.Success, tt.name)
		req.NotEmpty(failure.Error, tt.name)
	}
}

func TestSession_Survives_Bad_Frames(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	alice, done := h.open(t, "Alice")

	// Given a frame that is not JSON and an unknown event
	alice.inbound <- []byte("{not json")
	var malformed ErrorEvent
	alice.next(t, models.EventError, &malformed)
	req.Equal("malformed frame", malformed.Error)

	alice.send(t, Envelope{Event: "dance"})
	var unknown ErrorEvent
	alice.next(t, models.EventError, &unknown)
	req.Equal("dance", unknown.Event)

	// Then the session still serves events
	alice.send(t, Envelope{Event: models.EventSendMessage, Data: SendMessagePayload{ReceiverID: h.bob.ID, Content: "still here"}})
	var sent MessageSentEvent
	alice.next(t, models.EventMessageSent, &sent)
	req.True(sent.Success)

	close(alice.inbound)
	<-done
}

func TestConn_Emit_After_Close(t *testing.T) {
	req := require.New(t)
	transport := newFakeTransport()
	conn := NewConn(transport)

	req.NoError(conn.Emit(models.EventUserTyping, models.UserTypingEvent{}))
	req.NoError(conn.Close())
	req.NoError(conn.Close())
	req.ErrorIs(conn.Emit(models.EventUserTyping, models.UserTypingEvent{}), ErrConnClosed)
	req.True(transport.isClosed())
}
