package sink

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"social-chat/domain/event"
	"social-chat/errors"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait         = 10 * time.Second
	pingPeriod        = 30 * time.Second
	DefaultBufferSize = 128
)

// Encoder turns a domain event into the frame written on the socket.
type Encoder func(e event.DomainEvent) ([]byte, error)

// Connection wraps a websocket and coordinates outbound writes via a buffered channel.
// It is the EventSink of one client session and is safe for concurrent use.
type Connection struct {
	ID     string
	UserID string

	ws     *websocket.Conn
	encode Encoder
	log    *slog.Logger
	send   chan []byte
	once   sync.Once
	closed chan struct{}
}

func NewConnection(userID string, ws *websocket.Conn, encode Encoder, bufferSize int, log *slog.Logger) *Connection {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	id := uuid.NewString()
	return &Connection{
		ID:     id,
		UserID: userID,
		ws:     ws,
		encode: encode,
		log:    log.With("connection_id", id, "user_id", userID),
		send:   make(chan []byte, bufferSize),
		closed: make(chan struct{}),
	}
}

// Start launches the write loop. It must be called exactly once per connection.
func (c *Connection) Start() {
	go c.writeLoop()
}

// Consume is called by the fanout worker.
func (c *Connection) Consume(ctx context.Context, e event.DomainEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := c.encode(e)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", e.Name(), err)
	}
	return c.Send(payload)
}

// Send enqueues payload for delivery. If the client is slow and the buffer is full,
// the connection is closed to keep backpressure bounded.
func (c *Connection) Send(payload []byte) error {
	select {
	case <-c.closed:
		return errors.ErrConnectionClosed
	default:
	}
	select {
	case <-c.closed:
		return errors.ErrConnectionClosed
	case c.send <- payload:
		return nil
	default:
		c.log.Warn("Send buffer full, closing connection")
		c.Close(websocket.CloseGoingAway, "send buffer full")
		return errors.ErrConnectionFull
	}
}

// Close terminates the connection and stops the write loop. It is safe to call more than once.
func (c *Connection) Close(code int, reason string) {
	c.once.Do(func() {
		close(c.closed)
		_ = c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(writeWait))
		_ = c.ws.Close()
	})
}

// Done is closed once the connection is closed.
func (c *Connection) Done() <-chan struct{} {
	return c.closed
}

func (c *Connection) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.closed:
			return
		case msg := <-c.send:
			if err := c.write(websocket.TextMessage, msg); err != nil {
				c.log.Debug("Write failed, closing connection", "error", err)
				c.Close(websocket.CloseInternalServerErr, "write failed")
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.log.Debug("Ping failed, closing connection", "error", err)
				c.Close(websocket.CloseInternalServerErr, "ping failed")
				return
			}
		}
	}
}

func (c *Connection) write(messageType int, payload []byte) error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.ws.WriteMessage(messageType, payload)
}
