package gateway

import (
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/PaulBabatuyi/supportchat/internal/logging"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 16 * 1024
)

// Connection wraps a websocket and serializes outbound writes through a
// buffered channel drained by a single write loop.
type Connection struct {
	id     string
	ws     *websocket.Conn
	send   chan Event
	closed chan struct{}
	once   sync.Once
}

// NewConnection wraps ws with a send buffer of the given size.
func NewConnection(ws *websocket.Conn, buffer int) *Connection {
	if buffer <= 0 {
		buffer = 256
	}
	return &Connection{
		id:     uuid.NewString(),
		ws:     ws,
		send:   make(chan Event, buffer),
		closed: make(chan struct{}),
	}
}

// ID returns the connection's unique identifier.
func (c *Connection) ID() string { return c.id }

// Send enqueues evt without blocking.
func (c *Connection) Send(evt Event) error {
	select {
	case <-c.closed:
		return ErrConnectionClosed
	default:
	}
	select {
	case c.send <- evt:
		return nil
	case <-c.closed:
		return ErrConnectionClosed
	default:
		return ErrSendBufferFull
	}
}

// Done is closed once the connection has shut down.
func (c *Connection) Done() <-chan struct{} { return c.closed }

// Close terminates the connection. Safe to call more than once.
func (c *Connection) Close() {
	c.once.Do(func() {
		close(c.closed)
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		_ = c.ws.Close()
	})
}

// Run starts the write loop and reads frames, passing each one to handle in
// arrival order, until the peer goes away. It closes the connection before
// returning.
func (c *Connection) Run(handle func(raw []byte)) {
	go c.writeLoop()
	defer c.Close()

	c.ws.SetReadLimit(maxMessageSize)
	if err := c.ws.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logging.Error().Err(err).Str("conn_id", c.id).Msg("failed to set read deadline")
		return
	}
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		msgType, raw, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logging.Warn().Err(err).Str("conn_id", c.id).Msg("unexpected websocket close")
			}
			return
		}
		if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
			continue
		}
		handle(raw)
	}
}

func (c *Connection) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.closed:
			return

		case evt := <-c.send:
			payload, err := json.Marshal(evt)
			if err != nil {
				logging.Error().Err(err).Str("conn_id", c.id).Str("event", evt.Type).Msg("failed to encode event")
				continue
			}
			if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.Close()
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.Close()
				return
			}

		case <-ticker.C:
			if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.Close()
				return
			}
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		}
	}
}
