package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"chat-relay/contract"
	"chat-relay/domain"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	writeWait  = 10 * time.Second

	maxFrameSize = 64 * 1024
)

// Server upgrades HTTP requests on the relay path and speaks the
// frame protocol with each client. One reader goroutine per
// connection processes requests in arrival order; one writer drains
// acknowledgments and broadcasts.
type Server struct {
	log        *slog.Logger
	relay      contract.IRelay
	bufferSize int
	baseCtx    context.Context
	upgrader   websocket.Upgrader
}

func NewServer(baseCtx context.Context, log *slog.Logger, relay contract.IRelay, connectionBufferSize int) *Server {
	return &Server{
		log:        log,
		relay:      relay,
		bufferSize: connectionBufferSize,
		baseCtx:    baseCtx,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Identity is client-supplied and unverified anyway; the
			// relay accepts cross-origin connections like the original
			// deployment did.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("WebSocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	connectionID := uuid.NewString()
	s.log.Info("Socket connected", "connection_id", connectionID, "remote", r.RemoteAddr)

	ctx, cancel := context.WithCancel(s.baseCtx)
	c := &connection{
		id:       connectionID,
		conn:     conn,
		sink:     NewConnSink(s.bufferSize),
		outbound: make(chan []byte, s.bufferSize),
		relay:    s.relay,
		log:      s.log,
	}

	go c.writePump(ctx)
	c.readLoop(ctx)

	// The reader decides the connection is over: stop the writer,
	// drop the membership, close the socket.
	cancel()
	s.relay.Disconnect(connectionID)
	_ = conn.Close()
	s.log.Info("Socket disconnected", "connection_id", connectionID)
}

type connection struct {
	id       string
	conn     *websocket.Conn
	sink     *ConnSink
	outbound chan []byte
	relay    contract.IRelay
	log      *slog.Logger
}

// readLoop consumes client frames until the connection dies. Requests
// of one client are processed strictly in the order received.
func (c *connection) readLoop(ctx context.Context) {
	c.conn.SetReadLimit(maxFrameSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure) {
				c.log.Warn("Unexpected socket error", "connection_id", c.id, "error", err)
			}
			return
		}
		c.dispatch(ctx, raw)
	}
}

// dispatch decodes one frame and produces exactly one acknowledgment
// for it. Protocol-level failures never escape as server faults; they
// come back to the caller as {ok:false}.
func (c *connection) dispatch(ctx context.Context, raw []byte) {
	request, err := DecodeRequest(raw)
	if err != nil {
		c.log.Debug("Rejected frame", "connection_id", c.id, "error", err)
		c.ackMalformed(ctx, raw, err)
		return
	}

	switch request := request.(type) {
	case JoinRoomRequest:
		c.handleJoin(ctx, request)
	case ChatMessageRequest:
		c.handleSend(ctx, request)
	}
}

func (c *connection) handleJoin(ctx context.Context, request JoinRoomRequest) {
	messages, err := c.relay.Join(ctx, c.id, domain.Room(request.Room), c.sink)
	if err != nil {
		c.send(ctx, JoinAck{Type: TypeAck, RequestID: request.RequestID, OK: false, Error: err.Error()})
		return
	}
	c.send(ctx, JoinAck{
		Type:      TypeAck,
		RequestID: request.RequestID,
		OK:        true,
		Messages:  ToWireMessages(messages),
	})
}

func (c *connection) handleSend(ctx context.Context, request ChatMessageRequest) {
	message, err := c.relay.Send(ctx, domain.SendCommand{
		ConnectionID: c.id,
		Room:         domain.Room(request.Room),
		SenderID:     request.SenderID,
		SenderName:   request.SenderName,
		UserID:       request.UserID,
		Content:      request.Content,
	})
	if err != nil {
		c.send(ctx, SendAck{Type: TypeAck, RequestID: request.RequestID, OK: false, Error: err.Error()})
		return
	}
	c.send(ctx, SendAck{
		Type:      TypeAck,
		RequestID: request.RequestID,
		OK:        true,
		MessageID: message.ID.String(),
	})
}

// ackMalformed still answers a broken frame when it carried a usable
// requestId, so the caller's pending request does not hang forever.
func (c *connection) ackMalformed(ctx context.Context, raw []byte, cause error) {
	var head struct {
		RequestID string `json:"requestId"`
	}
	if err := json.Unmarshal(raw, &head); err != nil || head.RequestID == "" {
		return
	}
	c.send(ctx, SendAck{Type: TypeAck, RequestID: head.RequestID, OK: false, Error: cause.Error()})
}

// send queues one response frame for the write pump.
func (c *connection) send(ctx context.Context, frame any) {
	payload, err := json.Marshal(frame)
	if err != nil {
		c.log.Error("Failed to marshal response frame", "connection_id", c.id, "error", err)
		return
	}
	select {
	case c.outbound <- payload:
	case <-ctx.Done():
	}
}

// writePump is the only goroutine writing to the socket. It
// interleaves acknowledgments, broadcasts, and keepalive pings.
func (c *connection) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
			return
		case payload := <-c.outbound:
			if !c.write(payload) {
				return
			}
		case message := <-c.sink.Events():
			payload, err := json.Marshal(Broadcast{Type: TypeMessage, Message: ToWireMessage(message)})
			if err != nil {
				c.log.Error("Failed to marshal broadcast frame", "connection_id", c.id, "error", err)
				continue
			}
			if !c.write(payload) {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.log.Debug(fmt.Sprintf("Ping failed for %s: %v", c.id, err))
				return
			}
		}
	}
}

func (c *connection) write(payload []byte) bool {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		c.log.Debug(fmt.Sprintf("Write failed for %s: %v", c.id, err))
		return false
	}
	return true
}
