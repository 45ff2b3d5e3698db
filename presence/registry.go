// Package presence tracks which users hold at least one live connection.
//
// The registry is process-local and rebuilt from zero on restart. A user is
// reachable iff its connection set is non-empty. Register and Unregister for
// the same user are serialized together with the transition hook they run,
// so hooks observe online/offline transitions in the order the set changed.
// Users hashed to different shards never contend, and users sharing a shard
// only contend on short map lookups.
package presence

import (
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
)

const DefaultShards = 32

// Connection is a live handle able to receive server events.
type Connection interface {
	ID() string
	Emit(event string, payload any) error
}

type Registry struct {
	shards []*shard
}

type shard struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]*entry
}

type entry struct {
	// transition is held for the whole Register/Unregister call, hook included.
	transition sync.Mutex

	mu    sync.RWMutex
	conns map[string]Connection

	// refs counts in-flight mutations; guarded by the owning shard's mu.
	refs int
}

func NewRegistry(shards int) *Registry {
	if shards <= 0 {
		shards = DefaultShards
	}
	r := &Registry{shards: make([]*shard, shards)}
	for i := range r.shards {
		r.shards[i] = &shard{entries: make(map[uuid.UUID]*entry)}
	}
	return r
}

// Register adds conn to the user's set and reports whether this call moved
// the user from offline to online. onOnline, when non-nil, runs on that
// transition before Register returns and before any other Register or
// Unregister for the same user can take effect. A slow hook therefore delays
// that user's next transition, never another user's.
func (r *Registry) Register(userID uuid.UUID, conn Connection, onOnline func()) bool {
	e := r.acquire(userID, true)
	defer r.release(userID, e)

	e.transition.Lock()
	defer e.transition.Unlock()

	e.mu.Lock()
	_, dup := e.conns[conn.ID()]
	e.conns[conn.ID()] = conn
	online := !dup && len(e.conns) == 1
	e.mu.Unlock()

	if online && onOnline != nil {
		onOnline()
	}
	return online
}

// Unregister removes conn and reports whether the user went offline.
// Removing an unknown connection is a no-op.
func (r *Registry) Unregister(userID uuid.UUID, conn Connection, onOffline func()) bool {
	e := r.acquire(userID, false)
	if e == nil {
		return false
	}
	defer r.release(userID, e)

	e.transition.Lock()
	defer e.transition.Unlock()

	e.mu.Lock()
	if _, ok := e.conns[conn.ID()]; !ok {
		e.mu.Unlock()
		return false
	}
	delete(e.conns, conn.ID())
	offline := len(e.conns) == 0
	e.mu.Unlock()

	if offline && onOffline != nil {
		onOffline()
	}
	return offline
}

func (r *Registry) IsReachable(userID uuid.UUID) bool {
	e := r.lookup(userID)
	return e != nil && e.size() > 0
}

// ConnectionsOf returns a snapshot of the user's live connections.
func (r *Registry) ConnectionsOf(userID uuid.UUID) []Connection {
	e := r.lookup(userID)
	if e == nil {
		return nil
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	if len(e.conns) == 0 {
		return nil
	}
	conns := make([]Connection, 0, len(e.conns))
	for _, c := range e.conns {
		conns = append(conns, c)
	}
	return conns
}

// All returns a snapshot of every live connection across all users.
func (r *Registry) All() []Connection {
	var conns []Connection
	for _, s := range r.shards {
		s.mu.RLock()
		for _, e := range s.entries {
			e.mu.RLock()
			for _, c := range e.conns {
				conns = append(conns, c)
			}
			e.mu.RUnlock()
		}
		s.mu.RUnlock()
	}
	return conns
}

// OnlineUsers returns the ids of every reachable user.
func (r *Registry) OnlineUsers() []uuid.UUID {
	var ids []uuid.UUID
	for _, s := range r.shards {
		s.mu.RLock()
		for id, e := range s.entries {
			if e.size() > 0 {
				ids = append(ids, id)
			}
		}
		s.mu.RUnlock()
	}
	return ids
}

func (r *Registry) shardFor(userID uuid.UUID) *shard {
	return r.shards[xxhash.Sum64(userID[:])%uint64(len(r.shards))]
}

func (r *Registry) lookup(userID uuid.UUID) *entry {
	s := r.shardFor(userID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries[userID]
}

func (r *Registry) acquire(userID uuid.UUID, create bool) *entry {
	s := r.shardFor(userID)
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[userID]
	if !ok {
		if !create {
			return nil
		}
		e = &entry{conns: make(map[string]Connection)}
		s.entries[userID] = e
	}
	e.refs++
	return e
}

// release drops the entry once it is empty and nobody else is mutating it.
func (r *Registry) release(userID uuid.UUID, e *entry) {
	s := r.shardFor(userID)
	s.mu.Lock()
	defer s.mu.Unlock()

	e.refs--
	if e.refs == 0 && e.size() == 0 && s.entries[userID] == e {
		delete(s.entries, userID)
	}
}

func (e *entry) size() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.conns)
}
