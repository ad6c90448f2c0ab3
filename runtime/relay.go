// Package runtime hosts the relay engine: membership, per-room
// workers, and the join/send/disconnect protocol. It contains no
// transport concerns; the wire layer calls in through contract.IRelay.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/repositories"
	"chat-relay/runtime/workers"
)

// Relay coordinates the store and the registry. Joins and disconnects
// are handled inline; sends are dispatched to the target room's worker
// so that persistence completion order and broadcast order are the
// same thing.
type Relay struct {
	mu               sync.Mutex
	log              *slog.Logger
	registry         contract.IRegistry
	repository       repositories.IMessageRepository
	supervisor       contract.ISupervisor
	historyLimit     int
	maxContentLength int
	bufferSize       int
	ctx              context.Context
	rooms            map[domain.Room]chan workers.SendJob
}

func NewRelay(log *slog.Logger, registry contract.IRegistry,
	repository repositories.IMessageRepository, supervisor contract.ISupervisor,
	historyLimit, maxContentLength, bufferSize int) *Relay {
	return &Relay{
		log:              log,
		registry:         registry,
		repository:       repository,
		supervisor:       supervisor,
		historyLimit:     historyLimit,
		maxContentLength: maxContentLength,
		bufferSize:       bufferSize,
		rooms:            make(map[domain.Room]chan workers.SendJob),
	}
}

// Start binds the relay to its lifetime context. Room workers spawned
// afterwards stop when this context is canceled.
func (r *Relay) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ctx = ctx
}

// Join validates the room, records membership, then fetches the recent
// history window. A history read failure does not undo the membership:
// the caller stays joined and is told the fetch failed so it can retry.
func (r *Relay) Join(ctx context.Context, connectionID string, room domain.Room, sink contract.EventSink) ([]domain.Message, error) {
	if err := room.Validate(); err != nil {
		return nil, err
	}

	r.registry.Join(connectionID, room, sink)
	r.log.Debug("Connection joined room", "connection_id", connectionID, "room", room)

	messages, err := r.repository.Recent(room, r.historyLimit)
	if err != nil {
		return nil, fmt.Errorf("fetching history: %w", err)
	}
	return messages, nil
}

// Send requires the connection to be a member of the target room;
// there is no auto-join on send. The trimmed content is handed to the
// room worker, which persists it and broadcasts the stored message to
// every member, the sender included. The returned message carries the
// store-assigned ID for the acknowledgment.
func (r *Relay) Send(ctx context.Context, cmd domain.SendCommand) (domain.Message, error) {
	if err := cmd.Room.Validate(); err != nil {
		return domain.Message{}, err
	}
	current, ok := r.registry.RoomOf(cmd.ConnectionID)
	if !ok || current != cmd.Room {
		return domain.Message{}, errors.ErrNotJoined
	}

	trimmed, err := domain.TrimContent(cmd.Content, r.maxContentLength)
	if err != nil {
		return domain.Message{}, err
	}
	cmd.Content = trimmed

	jobs, err := r.roomJobs(cmd.Room)
	if err != nil {
		return domain.Message{}, err
	}

	job := workers.SendJob{Command: cmd, Reply: make(chan workers.SendResult, 1)}
	select {
	case jobs <- job:
	case <-ctx.Done():
		return domain.Message{}, ctx.Err()
	}

	// Once dispatched the job runs to completion even if the caller's
	// connection dies: remaining members still get the broadcast, only
	// the acknowledgment path is abandoned.
	select {
	case result := <-job.Reply:
		return result.Message, result.Err
	case <-ctx.Done():
		return domain.Message{}, ctx.Err()
	}
}

// Disconnect removes the connection from whatever room it belongs to.
// This is a transport-level event: idempotent, no acknowledgment.
func (r *Relay) Disconnect(connectionID string) {
	r.registry.Leave(connectionID)
	r.log.Debug("Connection left", "connection_id", connectionID)
}

// roomJobs returns the job channel of a room, creating and starting
// the room's worker under supervision on first use. Workers live for
// the relay's lifetime; rooms are never torn down.
func (r *Relay) roomJobs(room domain.Room) (chan workers.SendJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ctx == nil {
		return nil, errors.ErrRelayStopped
	}
	if err := r.ctx.Err(); err != nil {
		return nil, errors.ErrRelayStopped
	}

	jobs, ok := r.rooms[room]
	if !ok {
		jobs = make(chan workers.SendJob, r.bufferSize)
		r.rooms[room] = jobs
		worker := workers.NewRoomWorker(room, jobs, r.repository, r.registry, r.log)
		r.supervisor.Start(r.ctx, worker)
		r.log.Info("Room worker started", "room", room)
	}
	return jobs, nil
}
