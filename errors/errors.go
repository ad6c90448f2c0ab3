package errors

import "fmt"

var (
	ErrWorkerPanic    = fmt.Errorf("worker panic")
	ErrEmptyRoom      = fmt.Errorf("room name is empty")
	ErrRoomTooLong    = fmt.Errorf("room name exceeds the maximum length")
	ErrInvalidRoom    = fmt.Errorf("room name contains reserved characters")
	ErrEmptyContent   = fmt.Errorf("content is empty after trimming")
	ErrContentTooLong = fmt.Errorf("content exceeds the maximum length")
	ErrNotJoined      = fmt.Errorf("connection has not joined this room")
	ErrRelayStopped   = fmt.Errorf("relay is shutting down")
	ErrUnknownRequest = fmt.Errorf("unknown request type")
	ErrSinkFull       = fmt.Errorf("connection event buffer is full")
)
