package presence

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	id string
}

func (c fakeConn) ID() string             { return c.id }
func (c fakeConn) Emit(string, any) error { return nil }

func newConn() fakeConn { return fakeConn{id: uuid.NewString()} }

func TestRegistry_Register_First_Connection_Goes_Online(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(4)
	userID := uuid.New()
	phone, laptop := newConn(), newConn()

	// Given the user is offline
	req.False(registry.IsReachable(userID))
	req.Nil(registry.ConnectionsOf(userID))

	// When the first device connects
	hooks := 0
	online := registry.Register(userID, phone, func() { hooks++ })

	// Then the user goes online and the hook runs once
	req.True(online)
	req.Equal(1, hooks)
	req.True(registry.IsReachable(userID))

	// When a second device connects
	online = registry.Register(userID, laptop, func() { hooks++ })

	// Then no new transition happens
	req.False(online)
	req.Equal(1, hooks)
	req.Len(registry.ConnectionsOf(userID), 2)
}

func TestRegistry_Unregister_Last_Connection_Goes_Offline(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(4)
	userID := uuid.New()
	phone, laptop := newConn(), newConn()
	registry.Register(userID, phone, nil)
	registry.Register(userID, laptop, nil)

	// When one of two devices disconnects
	offline := registry.Unregister(userID, phone, nil)

	// Then the user stays reachable through the other one
	req.False(offline)
	req.True(registry.IsReachable(userID))
	req.Equal([]Connection{laptop}, registry.ConnectionsOf(userID))

	// When the last device disconnects
	hooks := 0
	offline = registry.Unregister(userID, laptop, func() { hooks++ })

	// Then the user goes offline and the entry is dropped
	req.True(offline)
	req.Equal(1, hooks)
	req.False(registry.IsReachable(userID))
	req.Empty(registry.OnlineUsers())
	req.Empty(registry.shardFor(userID).entries)
}

func TestRegistry_Unregister_Unknown_Connection_Is_Noop(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(4)
	userID := uuid.New()

	req.False(registry.Unregister(userID, newConn(), func() { req.Fail("hook must not run") }))

	registry.Register(userID, newConn(), nil)
	req.False(registry.Unregister(userID, newConn(), func() { req.Fail("hook must not run") }))
	req.True(registry.IsReachable(userID))
}

func TestRegistry_Register_Same_Connection_Twice(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(4)
	userID := uuid.New()
	conn := newConn()

	req.True(registry.Register(userID, conn, nil))
	req.False(registry.Register(userID, conn, nil))
	req.Len(registry.ConnectionsOf(userID), 1)

	req.True(registry.Unregister(userID, conn, nil))
	req.False(registry.IsReachable(userID))
}

func TestRegistry_All_And_OnlineUsers(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(2)
	alice, bob := uuid.New(), uuid.New()
	registry.Register(alice, newConn(), nil)
	registry.Register(alice, newConn(), nil)
	registry.Register(bob, newConn(), nil)

	req.Len(registry.All(), 3)
	req.ElementsMatch([]uuid.UUID{alice, bob}, registry.OnlineUsers())
}

// Every goroutine owns one connection and cycles it; the hooks must alternate
// online/offline and a goroutine holding its connection must always observe
// the user as reachable.
func TestRegistry_Concurrent_Connect_Disconnect_Same_User(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(8)
	userID := uuid.New()

	const devices = 16
	const cycles = 200

	var (
		mu          sync.Mutex
		transitions []bool
		ghosts      atomic.Int64
	)
	record := func(online bool) func() {
		return func() {
			mu.Lock()
			transitions = append(transitions, online)
			mu.Unlock()
		}
	}

	var wg sync.WaitGroup
	for d := 0; d < devices; d++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conn := newConn()
			for i := 0; i < cycles; i++ {
				registry.Register(userID, conn, record(true))
				if !registry.IsReachable(userID) {
					ghosts.Add(1)
				}
				registry.Unregister(userID, conn, record(false))
			}
		}()
	}
	wg.Wait()

	// Then no goroutine ever saw a ghost offline
	req.Zero(ghosts.Load())

	// And transitions strictly alternate, starting online and ending offline
	req.NotEmpty(transitions)
	for i, online := range transitions {
		req.Equal(i%2 == 0, online, "transition %d out of order", i)
	}
	req.False(transitions[len(transitions)-1])
	req.False(registry.IsReachable(userID))
}

func TestRegistry_Different_Users_Do_Not_Block(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(1)
	alice, bob := uuid.New(), uuid.New()

	entered := make(chan struct{})
	proceed := make(chan struct{})
	done := make(chan struct{})

	// Given alice's online hook is stuck
	go func() {
		registry.Register(alice, newConn(), func() {
			close(entered)
			<-proceed
		})
		close(done)
	}()
	<-entered

	// Then bob, even on the same shard, connects and is observed
	req.True(registry.Register(bob, newConn(), nil))
	req.True(registry.IsReachable(bob))
	req.True(registry.IsReachable(alice))

	close(proceed)
	<-done
}
