//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/storage"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
)

type IMessageRepository interface {
	StoreMessage(message DiskMessage) (DiskMessage, error)
	GetConversation(a, b string) ([]DiskMessage, error)
}

type MessageRepository struct {
	store *storage.Store
	log   *slog.Logger
}

func NewMessageRepository(store *storage.Store, log *slog.Logger) MessageRepository {
	return MessageRepository{store: store, log: log}
}

type DiskMessage struct {
	Seq      uint64
	ID       string
	Sender   string
	Receiver string
	Content  string
	At       time.Time
}

const (
	messagePrefix     = "msg:"
	messageIndexKey   = "idx:msg:"
	messageSequenceID = "msg"
)

// StoreMessage persists a message under its conversation.
// The key is "msg:{len(low)}:{len(high)}:{low}{high}:{seq}" where low/high is
// the sorted sender/receiver pair and seq a zero padded store sequence:
//  1. both directions of a conversation share one prefix,
//  2. the lengths keep prefixes of distinct pairs from overlapping,
//  3. lexicographic key order is insertion order.
func (m MessageRepository) StoreMessage(message DiskMessage) (DiskMessage, error) {
	seq, err := m.store.Next(messageSequenceID)
	if err != nil {
		return DiskMessage{}, err
	}
	message.Seq = seq
	if message.At.IsZero() {
		message.At = time.Now().UTC()
	}

	key := []byte(fmt.Sprintf("%s%020d", conversationPrefix(message.Sender, message.Receiver), seq))
	err = m.store.Update(func(txn *badger.Txn) error {
		idKey := []byte(messageIndexKey + message.ID)
		if _, err := txn.Get(idKey); err == nil {
			return errors.ErrMessageIDTaken
		} else if err != badger.ErrKeyNotFound {
			return err
		}
		if err := txn.Set(key, encodeMessage(message)); err != nil {
			return err
		}
		return txn.Set(idKey, key)
	})
	if err != nil {
		return DiskMessage{}, err
	}
	return message, nil
}

// GetConversation returns every message exchanged between a and b, in both
// directions, in insertion order. GetConversation(a, b) equals GetConversation(b, a).
func (m MessageRepository) GetConversation(a, b string) ([]DiskMessage, error) {
	var messages []DiskMessage
	err := m.store.View(func(txn *badger.Txn) error {
		prefix := []byte(conversationPrefix(a, b))
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				message, err := decodeMessage(val)
				if err != nil {
					return err
				}
				messages = append(messages, message)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.log.Debug("Conversation loaded", "a", a, "b", b, "messages", len(messages))
	return messages, nil
}

func conversationPrefix(a, b string) string {
	c := domain.NewConversation(domain.UserID(a), domain.UserID(b))
	return fmt.Sprintf("%s%d:%d:%s%s:", messagePrefix, len(c.Low), len(c.High), c.Low, c.High)
}

// ListMessages returns every stored message, grouped by conversation.
func (m MessageRepository) ListMessages() ([]DiskMessage, error) {
	var messages []DiskMessage
	err := m.store.View(func(txn *badger.Txn) error {
		prefix := []byte(messagePrefix)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				message, err := decodeMessage(val)
				if err != nil {
					return fmt.Errorf("key %s: %w", it.Item().Key(), err)
				}
				messages = append(messages, message)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return messages, err
}
