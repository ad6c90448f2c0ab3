package domain

import (
	"strings"
	"unicode/utf8"

	"chat-relay/errors"
)

// MaxRoomLength caps room identifiers so they stay usable as storage
// key segments.
const MaxRoomLength = 64

// Room is a named partition of messages and live connections; it is
// the unit of broadcast scope.
type Room string

// Validate rejects names that cannot serve as a room identifier.
// Room names are opaque otherwise; no registration step exists.
func (r Room) Validate() error {
	if strings.TrimSpace(string(r)) == "" {
		return errors.ErrEmptyRoom
	}
	// Length is counted in runes, matching the wire-level validation,
	// so a multibyte name is judged the same at both layers.
	if utf8.RuneCountInString(string(r)) > MaxRoomLength {
		return errors.ErrRoomTooLong
	}
	// ":" is the storage key separator; a room containing it would
	// leak into another room's prefix scan.
	if strings.ContainsRune(string(r), ':') {
		return errors.ErrInvalidRoom
	}
	return nil
}
