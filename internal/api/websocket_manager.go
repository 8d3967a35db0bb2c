package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browser origins are enforced by the CORS policy; native clients send none
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Client is one live connection. A user may hold several (one per device).
type Client struct {
	ID     uuid.UUID
	Conn   *websocket.Conn
	Send   chan []byte
	UserID uuid.UUID
}

// WebSocketManager tracks live connections per user and fans events out to them
type WebSocketManager struct {
	register    chan *Client
	unregister  chan *Client
	done        chan struct{}
	userClients map[uuid.UUID]map[*Client]bool
	mu          sync.RWMutex
	logger      *zap.Logger
}

func NewWebSocketManager(logger *zap.Logger) *WebSocketManager {
	return &WebSocketManager{
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		done:        make(chan struct{}),
		userClients: make(map[uuid.UUID]map[*Client]bool),
		logger:      logger,
	}
}

// Run owns registration until ctx is cancelled, then closes every connection
func (m *WebSocketManager) Run(ctx context.Context) {
	defer close(m.done)
	for {
		select {
		case client := <-m.register:
			m.mu.Lock()
			if _, ok := m.userClients[client.UserID]; !ok {
				m.userClients[client.UserID] = make(map[*Client]bool)
			}
			m.userClients[client.UserID][client] = true
			m.mu.Unlock()
			m.logger.Debug("websocket client registered", zap.String("user_id", client.UserID.String()))

		case client := <-m.unregister:
			m.mu.Lock()
			m.remove(client)
			m.mu.Unlock()
			m.logger.Debug("websocket client unregistered", zap.String("user_id", client.UserID.String()))

		case <-ctx.Done():
			m.mu.Lock()
			for _, clients := range m.userClients {
				for client := range clients {
					m.remove(client)
				}
			}
			m.mu.Unlock()
			return
		}
	}
}

// remove drops a client and closes its send channel. Caller holds mu.
func (m *WebSocketManager) remove(client *Client) {
	clients, ok := m.userClients[client.UserID]
	if !ok || !clients[client] {
		return
	}
	delete(clients, client)
	if len(clients) == 0 {
		delete(m.userClients, client.UserID)
	}
	close(client.Send)
}

// SendToUser writes event to every live connection of userID. Connections
// whose buffers are full are dropped rather than blocking the sender.
func (m *WebSocketManager) SendToUser(userID uuid.UUID, event interface{}) {
	msg, err := json.Marshal(event)
	if err != nil {
		m.logger.Error("failed to marshal websocket event", zap.Error(err))
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for client := range m.userClients[userID] {
		select {
		case client.Send <- msg:
		default:
			m.logger.Warn("dropping slow websocket client", zap.String("user_id", userID.String()))
			m.remove(client)
		}
	}
}

// Connected reports how many live connections userID has
func (m *WebSocketManager) Connected(userID uuid.UUID) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.userClients[userID])
}

// Serve upgrades the request and pumps events to the connection until it closes
func (m *WebSocketManager) Serve(w http.ResponseWriter, r *http.Request, userID uuid.UUID) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	client := &Client{
		ID:     uuid.New(),
		Conn:   conn,
		Send:   make(chan []byte, sendBuffer),
		UserID: userID,
	}

	select {
	case m.register <- client:
	case <-m.done:
		conn.Close()
		return context.Canceled
	}

	go client.WritePump()
	go client.ReadPump(m)
	return nil
}

// ReadPump discards client input; the channel is server-to-client only. It
// exists to process control frames and notice disconnects.
func (c *Client) ReadPump(manager *WebSocketManager) {
	defer func() {
		select {
		case manager.unregister <- c:
		case <-manager.done:
		}
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				manager.logger.Debug("websocket closed unexpectedly", zap.Error(err))
			}
			return
		}
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
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
