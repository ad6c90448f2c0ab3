package workers

import (
	"context"
	"log/slog"

	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/repositories"
)

// SendResult is the one-shot acknowledgment of a SendJob.
type SendResult struct {
	Message domain.Message
	Err     error
}

// SendJob couples a send command with its reply channel. Reply is
// buffered so a worker never blocks on a caller that gave up or
// disconnected mid-request.
type SendJob struct {
	Command domain.SendCommand
	Reply   chan SendResult
}

// RoomWorker owns the persist-then-broadcast sequence of one room.
// A single goroutine per room serializes both steps, so the broadcast
// order observed by members always equals the order in which appends
// completed.
type RoomWorker struct {
	room       domain.Room
	jobs       chan SendJob
	repository repositories.IMessageRepository
	registry   contract.IRegistry
	log        *slog.Logger
}

func NewRoomWorker(room domain.Room, jobs chan SendJob,
	repository repositories.IMessageRepository, registry contract.IRegistry, log *slog.Logger) *RoomWorker {
	return &RoomWorker{room: room, jobs: jobs, repository: repository, registry: registry, log: log}
}

func (w *RoomWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping room worker", "room", w.room)
			return nil
		case job, ok := <-w.jobs:
			if !ok {
				return nil
			}
			w.handle(ctx, job)
		}
	}
}

// handle persists the message, then fans it out to every member the
// registry currently knows, including the sender's own connection.
// A store failure produces no broadcast at all.
func (w *RoomWorker) handle(ctx context.Context, job SendJob) {
	cmd := job.Command
	message, err := w.repository.Append(cmd.Room, cmd.SenderID, cmd.SenderName, cmd.UserID, cmd.Content)
	if err != nil {
		w.log.Error("Failed to persist message", "room", cmd.Room, "error", err)
		job.Reply <- SendResult{Err: err}
		return
	}

	for _, sink := range w.registry.SinksFor(cmd.Room) {
		if err := sink.Consume(ctx, message); err != nil {
			// The slow member loses this event; the room must not stall.
			w.log.Debug("Broadcast dropped for a member", "room", cmd.Room, "error", err)
		}
	}

	job.Reply <- SendResult{Message: message}
}
