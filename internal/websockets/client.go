package websockets

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/TuneSync/tune-sync-backend/config"
	"github.com/TuneSync/tune-sync-backend/internal/logger"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = 30 * time.Second

	// Maximum message size allowed from peer.
	maxMessageSize = 4096
)

// Client is one websocket connection. Incoming events are dispatched to
// registered handlers on the write pump goroutine, so all handlers for a
// single connection run sequentially.
type Client struct {
	id           string
	conn         *websocket.Conn
	send         chan []byte
	receive      chan []byte
	disconnected chan struct{}
	handlers     map[string]func(data json.RawMessage)
	closeFn      func()
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]*Client)
)

// Lookup finds a connected client by its connection id.
func Lookup(id string) (*Client, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	c, ok := registry[id]
	return c, ok
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		allowed := config.Conf.AllowOrigins
		if allowed == "*" {
			return true
		}

		origin := r.Header.Get("Origin")
		for _, a := range strings.Split(allowed, ",") {
			if strings.TrimSpace(a) == origin {
				return true
			}
		}
		return false
	},
}

func newClient(conn *websocket.Conn) *Client {
	return &Client{
		id:           uuid.NewString(),
		conn:         conn,
		send:         make(chan []byte, 256),
		receive:      make(chan []byte, 256),
		disconnected: make(chan struct{}),
		handlers:     make(map[string]func(data json.RawMessage)),
	}
}

func (c *Client) ID() string { return c.id }

// On registers the handler for an inbound event, replacing any previous
// one.
func (c *Client) On(event string, handler func(data json.RawMessage)) {
	c.handlers[event] = handler
}

// OnClose registers the function invoked once when the connection goes
// away.
func (c *Client) OnClose(fn func()) {
	c.closeFn = fn
}

// Emit queues an outbound event. The send buffer is bounded; a client
// that cannot keep up drops messages rather than stalling the room.
func (c *Client) Emit(event string, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		logger.Log.Debug("failed to marshal outbound payload", "event", event, "err", err)
		return
	}

	message, err := json.Marshal(Message{Event: event, Data: raw})
	if err != nil {
		return
	}

	select {
	case c.send <- message:
	default:
		logger.Log.Debug("send buffer full, dropping message", "client", c.id, "event", event)
	}
}

func (c *Client) handle(raw []byte) {
	var incoming Message
	if err := json.Unmarshal(raw, &incoming); err != nil {
		logger.Log.Debug("failed to unmarshal message", "client", c.id, "err", err)
		return
	}

	handler := c.handlers[incoming.Event]
	if handler == nil {
		return
	}

	handler(incoming.Data)
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()

		registryMu.Lock()
		delete(registry, c.id)
		registryMu.Unlock()

		if c.closeFn != nil {
			c.closeFn()
		}
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))

			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case message := <-c.receive:
			c.handle(message)
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.disconnected:
			return
		}
	}
}

func (c *Client) readPump() {
	defer close(c.disconnected)

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			logger.Log.Debug("websocket disconnected", "client", c.id, "err", err)
			return
		}

		c.receive <- message
	}
}

// Serve upgrades the request and starts the connection's pumps. Returns
// nil when the upgrade fails.
func Serve(w http.ResponseWriter, r *http.Request) *Client {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil
	}

	client := newClient(conn)

	registryMu.Lock()
	registry[client.id] = client
	registryMu.Unlock()

	go client.writePump()
	go client.readPump()

	return client
}
