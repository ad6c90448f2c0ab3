package ws

import (
	"context"

	"chat-relay/domain"
	"chat-relay/errors"
)

// ConnSink buffers broadcasts bound for one connection. The room
// worker fills it, the connection's write pump drains it. A full
// buffer drops the event rather than stalling the whole room.
type ConnSink struct {
	events chan domain.Message
}

func NewConnSink(bufferSize int) *ConnSink {
	return &ConnSink{events: make(chan domain.Message, bufferSize)}
}

func (s *ConnSink) Consume(ctx context.Context, m domain.Message) error {
	select {
	case s.events <- m:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return errors.ErrSinkFull
	}
}

func (s *ConnSink) Events() <-chan domain.Message {
	return s.events
}
