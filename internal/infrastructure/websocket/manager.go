package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"chatsync/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192
	sendBufferSize = 64
)

// PresenceFunc is told when a user's first connection opens and when the last one closes.
type PresenceFunc func(userID string, online bool)

// Client represents a WebSocket connection client
type Client struct {
	UserID string
	Conn   *websocket.Conn
	send   chan []byte

	mu     sync.Mutex
	closed bool
}

func NewClient(userID string, conn *websocket.Conn) *Client {
	return &Client{
		UserID: userID,
		Conn:   conn,
		send:   make(chan []byte, sendBufferSize),
	}
}

// Enqueue hands a frame to the write pump. A full buffer drops the frame;
// snapshots are full result sets, so the next one supersedes it.
func (c *Client) Enqueue(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}

	select {
	case c.send <- frame:
		return true
	default:
		logger.Warn("WebSocket: Dropping frame for slow client %s", c.UserID)
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// Manager manages all active WebSocket connections
type Manager struct {
	clients    map[string]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	onPresence PresenceFunc
	done       chan struct{}
	mutex      sync.RWMutex
}

// NewManager creates a new WebSocket connection manager. onPresence may be nil.
func NewManager(onPresence PresenceFunc) *Manager {
	return &Manager{
		clients:    make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		onPresence: onPresence,
		done:       make(chan struct{}),
	}
}

// Start runs the manager's main loop in a goroutine
func (m *Manager) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case client := <-m.register:
				m.mutex.Lock()
				conns, ok := m.clients[client.UserID]
				if !ok {
					conns = make(map[*Client]struct{})
					m.clients[client.UserID] = conns
				}
				conns[client] = struct{}{}
				first := len(conns) == 1
				m.mutex.Unlock()

				logger.Debug("WebSocket: Client registered: %s", client.UserID)
				if first && m.onPresence != nil {
					m.onPresence(client.UserID, true)
				}

			case client := <-m.unregister:
				m.mutex.Lock()
				last := false
				if conns, ok := m.clients[client.UserID]; ok {
					if _, ok := conns[client]; ok {
						delete(conns, client)
						client.close()
						if len(conns) == 0 {
							delete(m.clients, client.UserID)
							last = true
						}
					}
				}
				m.mutex.Unlock()

				logger.Debug("WebSocket: Client unregistered: %s", client.UserID)
				if last && m.onPresence != nil {
					m.onPresence(client.UserID, false)
				}

			case <-ctx.Done():
				m.closeAll()
				close(m.done)
				return
			}
		}
	}()
}

// Register adds a client. After shutdown the client is closed instead.
func (m *Manager) Register(client *Client) {
	select {
	case m.register <- client:
	case <-m.done:
		client.close()
	}
}

func (m *Manager) Unregister(client *Client) {
	select {
	case m.unregister <- client:
	case <-m.done:
	}
}

func (m *Manager) closeAll() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	for userID, conns := range m.clients {
		for client := range conns {
			client.close()
		}
		delete(m.clients, userID)
	}
}

// IsOnline reports whether userID has at least one open connection.
func (m *Manager) IsOnline(userID string) bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.clients[userID]) > 0
}

// ConnectionCount returns the number of open connections across all users.
func (m *Manager) ConnectionCount() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	n := 0
	for _, conns := range m.clients {
		n += len(conns)
	}
	return n
}

// ReadPump reads frames until the connection fails, handing each to onFrame.
// It unregisters the client on exit.
func (c *Client) ReadPump(m *Manager, onFrame func(c *Client, frame []byte)) {
	defer func() {
		m.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("WebSocket: Read error for %s: %v", c.UserID, err)
			}
			return
		}
		onFrame(c, frame)
	}
}

// WritePump sends queued frames and keeps the connection alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				logger.Warn("WebSocket: Write error for %s: %v", c.UserID, err)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
