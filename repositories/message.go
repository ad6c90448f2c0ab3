package repositories

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"chat-relay/domain"

	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
)

type IMessageRepository interface {
	Append(room domain.Room, senderID, senderName, userID, content string) (domain.Message, error)
	Recent(room domain.Room, limit int) ([]domain.Message, error)
}

// MessageRepository persists messages in BadgerDB, append-only. The
// relay never updates or deletes a record.
type MessageRepository struct {
	db  *badger.DB
	log *slog.Logger

	// lastNano makes assigned timestamps strictly increasing, so two
	// appends landing in the same clock tick keep their insertion
	// order in the key space.
	mu       sync.Mutex
	lastNano int64
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) *MessageRepository {
	return &MessageRepository{db: db, log: log}
}

// DiskMessage is the on-disk shape of a message. It stays separate
// from domain.Message so the storage codec can evolve independently.
type DiskMessage struct {
	ID         string `cbor:"id"`
	Room       string `cbor:"room"`
	SenderID   string `cbor:"sender_id"`
	SenderName string `cbor:"sender_name"`
	UserID     string `cbor:"user_id"`
	Content    string `cbor:"content"`
	At         int64  `cbor:"at"` // UnixNano, UTC
}

// Append assigns the identifier and creation time, then persists the
// message durably before returning. The key is formatted as
// "msg:{room}:{timestamp_padded}:{uuid}" to:
//  1. Ensure chronological sorting using 19-digit zero padding
//     (lexicographical order).
//  2. Prevent data loss by using UUID as a collision disconnector if
//     two messages arrive at the same nanosecond.
func (m *MessageRepository) Append(room domain.Room, senderID, senderName, userID, content string) (domain.Message, error) {
	message := domain.Message{
		ID:         uuid.New(),
		Room:       string(room),
		SenderID:   senderID,
		SenderName: senderName,
		UserID:     userID,
		Content:    content,
		CreatedAt:  m.nextTimestamp(),
	}

	key := fmt.Sprintf("msg:%s:%019d:%s", message.Room, message.CreatedAt.UnixNano(), message.ID)
	bytes, err := cbor.Marshal(fromMessage(message))
	if err != nil {
		return domain.Message{}, err
	}
	err = m.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), bytes)
	})
	if err != nil {
		return domain.Message{}, fmt.Errorf("storing message for room %q: %w", room, err)
	}
	return message, nil
}

// Recent retrieves the most recent messages of a room using a reverse
// prefix scan, then returns them in ascending creation order. Thanks
// to the padded timestamp in the key, messages are naturally sorted by
// time. An unknown room yields an empty slice, not an error.
func (m *MessageRepository) Recent(room domain.Room, limit int) ([]domain.Message, error) {
	var byteMessages [][]byte
	err := m.db.View(func(txn *badger.Txn) error {
		prefixStr := fmt.Sprintf("msg:%s:", room)
		prefix := []byte(prefixStr)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		// Seek past the newest possible key for this room, then walk
		// backwards collecting at most limit values.
		seekKey := append([]byte{}, prefix...)
		seekKey = append(seekKey, []byte("9999999999999999999")...)
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(byteMessages) == limit {
				m.log.Debug(fmt.Sprintf("Maximum of %d messages reached", limit))
				break
			}
			err := it.Item().Value(func(value []byte) error {
				byteMessages = append(byteMessages, append([]byte{}, value...))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading history for room %q: %w", room, err)
	}

	messages := make([]domain.Message, 0, len(byteMessages))
	// Reverse scan returned newest first; rebuild ascending order.
	for i := len(byteMessages) - 1; i >= 0; i-- {
		var disk DiskMessage
		if err = cbor.Unmarshal(byteMessages[i], &disk); err != nil {
			return nil, err
		}
		message, err := toMessage(disk)
		if err != nil {
			return nil, err
		}
		messages = append(messages, message)
	}
	return messages, nil
}

func fromMessage(message domain.Message) DiskMessage {
	return DiskMessage{
		ID:         message.ID.String(),
		Room:       message.Room,
		SenderID:   message.SenderID,
		SenderName: message.SenderName,
		UserID:     message.UserID,
		Content:    message.Content,
		At:         message.CreatedAt.UnixNano(),
	}
}

func toMessage(disk DiskMessage) (domain.Message, error) {
	parsedID, err := uuid.Parse(disk.ID)
	if err != nil {
		return domain.Message{}, err
	}
	return domain.Message{
		ID:         parsedID,
		Room:       disk.Room,
		SenderID:   disk.SenderID,
		SenderName: disk.SenderName,
		UserID:     disk.UserID,
		Content:    disk.Content,
		CreatedAt:  time.Unix(0, disk.At).UTC(),
	}, nil
}

// nextTimestamp returns the current time, bumped by one nanosecond
// whenever the clock has not advanced since the previous append.
func (m *MessageRepository) nextTimestamp() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()

	nano := time.Now().UTC().UnixNano()
	if nano <= m.lastNano {
		nano = m.lastNano + 1
	}
	m.lastNano = nano
	return time.Unix(0, nano).UTC()
}
