// Package ws carries the relay's wire protocol: one WebSocket per
// client, JSON frames tagged by type, one correlated acknowledgment
// per request plus unsolicited broadcast frames.
package ws

import (
	"encoding/json"
	"fmt"
	"time"

	"chat-relay/domain"
	"chat-relay/errors"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

const (
	TypeJoinRoom    = "join-room"
	TypeChatMessage = "chat-message"
	TypeAck         = "ack"
	TypeMessage     = "message"
)

var validate = validator.New()

// JoinRoomRequest asks to enter a room and receive its recent history.
type JoinRoomRequest struct {
	RequestID string `json:"requestId" validate:"required,max=128"`
	Room      string `json:"room" validate:"required,max=64"`
}

// ChatMessageRequest posts one message to a room. Identity fields are
// opaque client-supplied labels, never verified server-side.
type ChatMessageRequest struct {
	RequestID  string `json:"requestId" validate:"required,max=128"`
	Room       string `json:"room" validate:"required,max=64"`
	SenderID   string `json:"senderId" validate:"required,max=128"`
	SenderName string `json:"senderName" validate:"required,max=128"`
	UserID     string `json:"userId" validate:"max=128"`
	Content    string `json:"content" validate:"required"`
}

// DecodeRequest parses a tagged client frame and validates it before
// anything reaches the relay. The concrete type of the returned value
// tells the caller which request this is.
func DecodeRequest(data []byte) (any, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("malformed frame: %w", err)
	}

	switch head.Type {
	case TypeJoinRoom:
		var request JoinRoomRequest
		if err := json.Unmarshal(data, &request); err != nil {
			return nil, fmt.Errorf("malformed %s frame: %w", TypeJoinRoom, err)
		}
		if err := validate.Struct(request); err != nil {
			return nil, err
		}
		return request, nil
	case TypeChatMessage:
		var request ChatMessageRequest
		if err := json.Unmarshal(data, &request); err != nil {
			return nil, fmt.Errorf("malformed %s frame: %w", TypeChatMessage, err)
		}
		if err := validate.Struct(request); err != nil {
			return nil, err
		}
		return request, nil
	default:
		return nil, fmt.Errorf("%w: %q", errors.ErrUnknownRequest, head.Type)
	}
}

// WireMessage is the broadcast/history shape of a message. CreatedAt
// is an ISO-8601 string, always UTC.
type WireMessage struct {
	ID         string `json:"id"`
	Room       string `json:"room"`
	SenderID   string `json:"senderId"`
	SenderName string `json:"senderName"`
	Content    string `json:"content"`
	UserID     string `json:"userId"`
	CreatedAt  string `json:"createdAt"`
}

// JoinAck answers exactly one join-room request. Messages is always
// present on success, empty slice included, so clients can render an
// empty room without special cases.
type JoinAck struct {
	Type      string        `json:"type"`
	RequestID string        `json:"requestId"`
	OK        bool          `json:"ok"`
	Messages  []WireMessage `json:"messages"`
	Error     string        `json:"error,omitempty"`
}

// SendAck answers exactly one chat-message request.
type SendAck struct {
	Type      string `json:"type"`
	RequestID string `json:"requestId"`
	OK        bool   `json:"ok"`
	MessageID string `json:"messageId,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Broadcast is the unsolicited server-to-client frame delivered to
// every member of a room, the original sender included.
type Broadcast struct {
	Type    string      `json:"type"`
	Message WireMessage `json:"message"`
}

func ToWireMessage(message domain.Message) WireMessage {
	return WireMessage{
		ID:         message.ID.String(),
		Room:       message.Room,
		SenderID:   message.SenderID,
		SenderName: message.SenderName,
		Content:    message.Content,
		UserID:     message.UserID,
		CreatedAt:  message.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func ToWireMessages(messages []domain.Message) []WireMessage {
	wire := lo.Map(messages, func(message domain.Message, _ int) WireMessage {
		return ToWireMessage(message)
	})
	if wire == nil {
		wire = []WireMessage{}
	}
	return wire
}
