package domain

import (
	"strings"

	"chat-relay/errors"
)

// TrimContent normalizes a message payload before it may reach the
// store. Whitespace-only content is rejected so it is never persisted
// nor broadcast.
func TrimContent(content string, maxLength int) (string, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "", errors.ErrEmptyContent
	}
	if maxLength > 0 && len(trimmed) > maxLength {
		return "", errors.ErrContentTooLong
	}
	return trimmed, nil
}
