package websocket

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

const writeWait = 10 * time.Second

var ErrConnClosed = errors.New("connection closed")

// Transport is the part of a websocket connection the chat layer drives.
// *websocket.Conn from gofiber/contrib satisfies it.
type Transport interface {
	ReadJSON(v any) error
	WriteJSON(v any) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Envelope is the frame used in both directions once authenticated.
type Envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// Conn serializes writes to one transport and implements
// presence.Connection. Reads belong to the owning Session only.
type Conn struct {
	id        string
	transport Transport

	mu     sync.Mutex
	closed bool
}

func NewConn(transport Transport) *Conn {
	return &Conn{id: uuid.NewString(), transport: transport}
}

func (c *Conn) ID() string { return c.id }

func (c *Conn) Emit(event string, payload any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrConnClosed
	}
	if err := c.transport.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.transport.WriteJSON(Envelope{Event: event, Data: payload})
}

// Close is safe to call more than once.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.transport.Close()
}
