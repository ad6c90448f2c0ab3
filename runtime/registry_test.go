package runtime

import (
	"context"
	"testing"

	"chat-relay/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type stubSink struct{ name string }

func (s stubSink) Consume(ctx context.Context, m domain.Message) error {
	return nil
}

func TestRegistry_Join_One_Room_One_Connection(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	connectionID := uuid.NewString()
	room := domain.Room("general")
	sink := stubSink{name: "a"}

	// Given no connection is registered
	req.Empty(registry.MembersOf(room))

	// When a connection joins a room
	registry.Join(connectionID, room, sink)

	// Then it is a member and its sink is reachable
	req.Equal([]string{connectionID}, registry.MembersOf(room))
	req.Len(registry.SinksFor(room), 1)
	req.Contains(registry.SinksFor(room), sink)

	current, ok := registry.RoomOf(connectionID)
	req.True(ok)
	req.Equal(room, current)
}

func TestRegistry_Join_Is_Idempotent_Per_Connection(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	connectionID := uuid.NewString()
	room := domain.Room("general")

	// When the same connection joins the same room twice
	registry.Join(connectionID, room, stubSink{name: "a"})
	registry.Join(connectionID, room, stubSink{name: "a"})

	// Then it is registered exactly once
	req.Len(registry.MembersOf(room), 1)
	req.Len(registry.SinksFor(room), 1)
}

func TestRegistry_ReJoin_Moves_The_Connection(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	connectionID := uuid.NewString()
	sink := stubSink{name: "a"}

	// Given a connection in room "general"
	registry.Join(connectionID, "general", sink)

	// When it joins room "random"
	registry.Join(connectionID, "random", sink)

	// Then the old membership is gone and the new one holds
	req.Empty(registry.MembersOf("general"))
	req.Equal([]string{connectionID}, registry.MembersOf("random"))

	current, ok := registry.RoomOf(connectionID)
	req.True(ok)
	req.Equal(domain.Room("random"), current)
}

func TestRegistry_Leave_One_Room_Multiple_Connections(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	connectionID1 := uuid.NewString()
	connectionID2 := uuid.NewString()
	room := domain.Room("general")
	sink1 := stubSink{name: "a"}
	sink2 := stubSink{name: "b"}

	// Given two connections in the room
	registry.Join(connectionID1, room, sink1)
	registry.Join(connectionID2, room, sink2)

	// When one leaves
	registry.Leave(connectionID1)

	// Then only the other remains
	req.Equal([]string{connectionID2}, registry.MembersOf(room))
	req.Len(registry.SinksFor(room), 1)
	req.Contains(registry.SinksFor(room), sink2)

	_, ok := registry.RoomOf(connectionID1)
	req.False(ok)
}

func TestRegistry_Leave_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	connectionID := uuid.NewString()
	room := domain.Room("general")

	registry.Join(connectionID, room, stubSink{})

	// When leaving twice, including once for an unknown connection
	registry.Leave(connectionID)
	registry.Leave(connectionID)
	registry.Leave(uuid.NewString())

	// Then the room is fully pruned
	req.Nil(registry.MembersOf(room))
	req.Nil(registry.SinksFor(room))

	rooms, connections := registry.Counts()
	req.Zero(rooms)
	req.Zero(connections)
}

func TestRegistry_Counts(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	registry.Join(uuid.NewString(), "general", stubSink{name: "a"})
	registry.Join(uuid.NewString(), "general", stubSink{name: "b"})
	registry.Join(uuid.NewString(), "random", stubSink{name: "c"})

	rooms, connections := registry.Counts()
	req.Equal(2, rooms)
	req.Equal(3, connections)
}
