package repositories

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// Badger key layout. Timestamps are zero padded to 19 digits so prefix scans
// come back in chronological order; the trailing id breaks ties.
//
//	msg:{id}                                      message value
//	thread:{low}:{high}:{ts}:{id}                 pair index
//	conv:{owner}:{counterpart}:{ts}:{id}          per participant index
//	unread:{receiver}:{sender}:{id}               present while unread
//	user:{id}                                     user value
const (
	messagePrefix = "msg:"
	threadPrefix  = "thread:"
	convPrefix    = "conv:"
	unreadPrefix  = "unread:"
	userPrefix    = "user:"

	maxConflictRetries = 16
)

func messageKey(id uuid.UUID) []byte {
	return []byte(messagePrefix + id.String())
}

func pairPrefix(a, b uuid.UUID) string {
	low, high := a.String(), b.String()
	if high < low {
		low, high = high, low
	}
	return fmt.Sprintf("%s%s:%s:", threadPrefix, low, high)
}

func threadKey(a, b uuid.UUID, at time.Time, id uuid.UUID) []byte {
	return []byte(fmt.Sprintf("%s%019d:%s", pairPrefix(a, b), at.UnixNano(), id))
}

func convOwnerPrefix(owner uuid.UUID) string {
	return convPrefix + owner.String() + ":"
}

func convKey(owner, counterpart uuid.UUID, at time.Time, id uuid.UUID) []byte {
	return []byte(fmt.Sprintf("%s%s:%019d:%s", convOwnerPrefix(owner), counterpart, at.UnixNano(), id))
}

func unreadReceiverPrefix(receiver uuid.UUID) string {
	return unreadPrefix + receiver.String() + ":"
}

func unreadPairPrefix(receiver, sender uuid.UUID) string {
	return unreadReceiverPrefix(receiver) + sender.String() + ":"
}

func unreadKey(receiver, sender, id uuid.UUID) []byte {
	return []byte(unreadPairPrefix(receiver, sender) + id.String())
}

func userKey(id uuid.UUID) []byte {
	return []byte(userPrefix + id.String())
}

// lastSegment returns the id stored after the final colon of an index key.
func lastSegment(key []byte) (uuid.UUID, error) {
	s := string(key)
	return uuid.Parse(s[strings.LastIndexByte(s, ':')+1:])
}

func getJSON(txn *badger.Txn, key []byte, out any) error {
	item, err := txn.Get(key)
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, out)
	})
}

func setJSON(txn *badger.Txn, key []byte, in any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}
	return txn.Set(key, data)
}

// keysWithPrefix collects index keys without fetching values. Iterated keys
// join the transaction read set, so concurrent writers on them conflict.
func keysWithPrefix(txn *badger.Txn, prefix string, reverse bool) [][]byte {
	options := badger.DefaultIteratorOptions
	options.PrefetchValues = false
	options.Reverse = reverse
	options.Prefix = []byte(prefix)
	it := txn.NewIterator(options)
	defer it.Close()

	seek := []byte(prefix)
	if reverse {
		seek = append([]byte(prefix), 0xFF)
	}
	var keys [][]byte
	for it.Seek(seek); it.ValidForPrefix([]byte(prefix)); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}
	return keys
}

// update runs fn in a read-write transaction, retrying when badger reports a
// conflict with a concurrently committed transaction.
func update(db *badger.DB, fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		err = db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}
