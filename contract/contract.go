package contract

import (
	"context"
	"reflect"

	"chat-relay/domain"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink is the delivery endpoint of one live connection. Broadcast
// fan-out writes resolved messages into it; the transport drains it.
type EventSink interface {
	Consume(ctx context.Context, m domain.Message) error
}

type IRegistry interface {
	Join(connectionID string, room domain.Room, sink EventSink)
	Leave(connectionID string)
	RoomOf(connectionID string) (domain.Room, bool)
	MembersOf(room domain.Room) []string
	SinksFor(room domain.Room) []EventSink
	Counts() (rooms, connections int)
}

// IRelay is the protocol engine seen by the transport layer.
type IRelay interface {
	Join(ctx context.Context, connectionID string, room domain.Room, sink EventSink) ([]domain.Message, error)
	Send(ctx context.Context, cmd domain.SendCommand) (domain.Message, error)
	Disconnect(connectionID string)
}
