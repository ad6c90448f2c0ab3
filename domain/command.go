package domain

// SendCommand is the intent to post one message to a room. It carries
// client-supplied identity labels verbatim; nothing here is verified
// against an account system.
type SendCommand struct {
	ConnectionID string
	Room         Room
	SenderID     string
	SenderName   string
	UserID       string
	Content      string
}
