package repositories

import (
	"fmt"
	"log/slog"
	"testing"

	"chat-relay/domain"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func Test_Append_Assigns_Identity_And_Timestamp(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default())

	message, err := repository.Append("general", "u1", "Alice", "u1", "hello")
	req.NoError(err)
	req.NotEqual("00000000-0000-0000-0000-000000000000", message.ID.String())
	req.False(message.CreatedAt.IsZero())
	req.Equal("general", message.Room)
	req.Equal("hello", message.Content)
}

func Test_Recent_Returns_Ascending_Order(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default())
	room := domain.Room("general")

	contents := []string{"first", "second", "third"}
	for _, content := range contents {
		_, err := repository.Append(room, "u1", "Alice", "u1", content)
		req.NoError(err)
	}

	fetched, err := repository.Recent(room, 50)
	req.NoError(err)
	req.Len(fetched, len(contents))
	for i, message := range fetched {
		req.Equal(contents[i], message.Content)
		req.Equal(string(room), message.Room)
		if i > 0 {
			req.False(message.CreatedAt.Before(fetched[i-1].CreatedAt))
		}
	}
}

func Test_Recent_Keeps_The_Most_Recent_Window(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default())
	room := domain.Room("general")

	for _, content := range []string{"old", "mid", "new"} {
		_, err := repository.Append(room, "u1", "Alice", "u1", content)
		req.NoError(err)
	}

	fetched, err := repository.Recent(room, 2)
	req.NoError(err)
	req.Len(fetched, 2)

	// The oldest message falls out of the window; order stays ascending.
	req.Equal("mid", fetched[0].Content)
	req.Equal("new", fetched[1].Content)
}

func Test_Recent_Scopes_By_Room(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default())

	_, err := repository.Append("general", "u1", "Alice", "u1", "in general")
	req.NoError(err)
	_, err = repository.Append("random", "u2", "Bob", "u2", "in random")
	req.NoError(err)

	fetched, err := repository.Recent("general", 50)
	req.NoError(err)
	req.Len(fetched, 1)
	req.Equal("in general", fetched[0].Content)
}

func Test_Recent_Empty_Room_Returns_Empty(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default())

	fetched, err := repository.Recent("nobody-here", 50)
	req.NoError(err)
	req.Empty(fetched)
}

func Test_Append_Roundtrips_Through_Disk_Codec(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default())

	stored, err := repository.Append("general", "u1", "Alice", "user-1", "payload")
	req.NoError(err)

	fetched, err := repository.Recent("general", 50)
	req.NoError(err)
	req.Len(fetched, 1)
	req.Equal(stored, fetched[0])
}

func Test_Append_Keeps_Insertion_Order_Under_Clock_Ties(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default())
	room := domain.Room("general")

	// Appends faster than the clock resolution must still come back
	// in insertion order.
	total := 100
	for i := 0; i < total; i++ {
		_, err := repository.Append(room, "u1", "Alice", "u1", fmt.Sprintf("message-%03d", i))
		req.NoError(err)
	}

	fetched, err := repository.Recent(room, total)
	req.NoError(err)
	req.Len(fetched, total)
	for i := 0; i < total; i++ {
		req.Equal(fmt.Sprintf("message-%03d", i), fetched[i].Content)
		if i > 0 {
			req.True(fetched[i].CreatedAt.After(fetched[i-1].CreatedAt))
		}
	}
}
