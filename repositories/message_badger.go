package repositories

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"

	apperrors "github.com/anjiri1684/matchchat/errors"
	"github.com/anjiri1684/matchchat/models"
)

// deleteBatch bounds the writes of one transaction when dropping a thread.
const deleteBatch = 500

type BadgerMessageRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewBadgerMessageRepository(db *badger.DB, log *slog.Logger) *BadgerMessageRepository {
	return &BadgerMessageRepository{db: db, log: log}
}

// Create writes the message together with its thread, conversation and
// unread index entries in a single transaction.
func (r *BadgerMessageRepository) Create(_ context.Context, message *models.Message) error {
	prepareForCreate(message, time.Now())
	return update(r.db, func(txn *badger.Txn) error {
		if err := setJSON(txn, messageKey(message.ID), message); err != nil {
			return err
		}
		at, id := message.CreatedAt, message.ID
		keys := [][]byte{
			threadKey(message.SenderID, message.ReceiverID, at, id),
			convKey(message.SenderID, message.ReceiverID, at, id),
			convKey(message.ReceiverID, message.SenderID, at, id),
			unreadKey(message.ReceiverID, message.SenderID, id),
		}
		for _, key := range keys {
			if err := txn.Set(key, []byte{}); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *BadgerMessageRepository) FindByID(_ context.Context, id uuid.UUID) (*models.Message, error) {
	var message models.Message
	err := r.db.View(func(txn *badger.Txn) error {
		return getMessage(txn, id, &message)
	})
	if err != nil {
		return nil, err
	}
	return &message, nil
}

func (r *BadgerMessageRepository) MarkAsRead(_ context.Context, id uuid.UUID, at time.Time) (*models.Message, bool, error) {
	var (
		message      models.Message
		transitioned bool
	)
	err := update(r.db, func(txn *badger.Txn) error {
		transitioned = false
		if err := getMessage(txn, id, &message); err != nil {
			return err
		}
		if message.IsRead {
			return nil
		}
		if err := markRead(txn, &message, at); err != nil {
			return err
		}
		transitioned = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return &message, transitioned, nil
}

func (r *BadgerMessageRepository) MarkAllAsRead(_ context.Context, senderID, receiverID uuid.UUID, at time.Time) (int64, error) {
	var count int64
	err := update(r.db, func(txn *badger.Txn) error {
		count = 0
		for _, key := range keysWithPrefix(txn, unreadPairPrefix(receiverID, senderID), false) {
			id, err := lastSegment(key)
			if err != nil {
				return err
			}
			var message models.Message
			if err = getMessage(txn, id, &message); err != nil {
				return err
			}
			if message.IsRead {
				continue
			}
			if err = markRead(txn, &message, at); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *BadgerMessageRepository) GetChatHistory(_ context.Context, a, b uuid.UUID, page, limit int) ([]models.Message, int64, error) {
	var (
		messages []models.Message
		total    int64
	)
	err := r.db.View(func(txn *badger.Txn) error {
		keys := keysWithPrefix(txn, pairPrefix(a, b), true)
		total = int64(len(keys))

		offset := offsetFor(page, limit)
		if offset < 0 || offset >= len(keys) {
			return nil
		}
		end := offset + min(limit, len(keys)-offset)
		for _, key := range keys[offset:end] {
			id, err := lastSegment(key)
			if err != nil {
				return err
			}
			var message models.Message
			if err = getMessage(txn, id, &message); err != nil {
				return err
			}
			messages = append(messages, message)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return reverse(messages), total, nil
}

// GetConversations reads the owner's conversation index and unread index in
// one view transaction, so both halves of a summary share a snapshot.
func (r *BadgerMessageRepository) GetConversations(_ context.Context, userID uuid.UUID) ([]models.ConversationRow, error) {
	var rows []models.ConversationRow
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := convOwnerPrefix(userID)
		newest := map[uuid.UUID]uuid.UUID{}
		for _, key := range keysWithPrefix(txn, prefix, false) {
			counterpart, err := uuid.Parse(string(key[len(prefix) : len(prefix)+36]))
			if err != nil {
				return err
			}
			id, err := lastSegment(key)
			if err != nil {
				return err
			}
			// keys ascend by time within a counterpart, the last one wins
			newest[counterpart] = id
		}

		unread := lo.CountValuesBy(keysWithPrefix(txn, unreadReceiverPrefix(userID), false), func(key []byte) string {
			return string(key[len(unreadReceiverPrefix(userID)) : len(unreadReceiverPrefix(userID))+36])
		})

		for _, id := range newest {
			var message models.Message
			if err := getMessage(txn, id, &message); err != nil {
				return err
			}
			counterpart := message.Counterpart(userID)
			rows = append(rows, models.ConversationRow{
				CounterpartID: counterpart,
				LastMessage:   message,
				UnreadCount:   int64(unread[counterpart.String()]),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i].LastMessage, rows[j].LastMessage
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID.String() > b.ID.String()
	})
	if rows == nil {
		rows = []models.ConversationRow{}
	}
	return rows, nil
}

func (r *BadgerMessageRepository) GetUnreadCount(_ context.Context, receiverID uuid.UUID, senderID *uuid.UUID) (int64, error) {
	prefix := unreadReceiverPrefix(receiverID)
	if senderID != nil {
		prefix = unreadPairPrefix(receiverID, *senderID)
	}
	var count int64
	err := r.db.View(func(txn *badger.Txn) error {
		count = int64(len(keysWithPrefix(txn, prefix, false)))
		return nil
	})
	return count, err
}

// DeleteConversation removes the thread in batches; a thread larger than one
// batch is therefore not removed atomically.
func (r *BadgerMessageRepository) DeleteConversation(_ context.Context, a, b uuid.UUID) (int64, error) {
	var deleted int64
	for {
		var removed int
		err := update(r.db, func(txn *badger.Txn) error {
			removed = 0
			keys := keysWithPrefix(txn, pairPrefix(a, b), false)
			for _, key := range lo.Slice(keys, 0, deleteBatch) {
				id, err := lastSegment(key)
				if err != nil {
					return err
				}
				var message models.Message
				if err = getMessage(txn, id, &message); err != nil {
					return err
				}
				if err = deleteMessage(txn, key, &message); err != nil {
					return err
				}
				removed++
			}
			return nil
		})
		if err != nil {
			return deleted, err
		}
		deleted += int64(removed)
		if removed < deleteBatch {
			break
		}
	}
	r.log.Debug("Conversation deleted", "user_a", a, "user_b", b, "count", deleted)
	return deleted, nil
}

func getMessage(txn *badger.Txn, id uuid.UUID, out *models.Message) error {
	err := getJSON(txn, messageKey(id), out)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("%w: message %s", apperrors.ErrNotFound, id)
	}
	return err
}

func markRead(txn *badger.Txn, message *models.Message, at time.Time) error {
	readAt := at.UTC()
	message.IsRead = true
	message.ReadAt = &readAt
	message.UpdatedAt = readAt
	if err := setJSON(txn, messageKey(message.ID), message); err != nil {
		return err
	}
	return txn.Delete(unreadKey(message.ReceiverID, message.SenderID, message.ID))
}

func deleteMessage(txn *badger.Txn, thread []byte, message *models.Message) error {
	at, id := message.CreatedAt, message.ID
	keys := [][]byte{
		thread,
		messageKey(id),
		convKey(message.SenderID, message.ReceiverID, at, id),
		convKey(message.ReceiverID, message.SenderID, at, id),
		unreadKey(message.ReceiverID, message.SenderID, id),
	}
	for _, key := range keys {
		if err := txn.Delete(key); err != nil {
			return err
		}
	}
	return nil
}
