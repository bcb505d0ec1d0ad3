package websocket

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var (
	ErrNotConnected = errors.New("user not connected")
	ErrBufferFull   = errors.New("user connection buffer full")
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	sendBuffer = 64
)

// Message is the frame pushed to clients.
type Message struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// Manager tracks live connections by user. A user may hold several
// connections, one per open tab.
type Manager struct {
	connections map[uint]map[string]*Connection
	mu          sync.RWMutex
	upgrader    websocket.Upgrader
	logger      *zap.Logger
}

// Connection represents a WebSocket client connection
type Connection struct {
	ID          string
	UserID      uint
	Conn        *websocket.Conn
	Send        chan Message
	ConnectedAt time.Time
	closeOnce   sync.Once
}

func (c *Connection) close() {
	c.closeOnce.Do(func() {
		close(c.Send)
	})
}

// NewManager creates a manager. allowedOrigins empty accepts any origin.
func NewManager(logger *zap.Logger, allowedOrigins []string) *Manager {
	return &Manager{
		connections: make(map[uint]map[string]*Connection),
		logger:      logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		if len(allowed) == 0 {
			return true
		}
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || o == origin {
				return true
			}
		}
		return false
	}
}

// HandleConnection upgrades the request and registers the connection for
// userID. The caller authenticates the user beforehand.
func (m *Manager) HandleConnection(w http.ResponseWriter, r *http.Request, userID uint) (*Connection, error) {
	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		ID:          uuid.New().String(),
		UserID:      userID,
		Conn:        conn,
		Send:        make(chan Message, sendBuffer),
		ConnectedAt: time.Now(),
	}
	m.register(connection)

	go m.readPump(connection)
	go m.writePump(connection)

	return connection, nil
}

func (m *Manager) register(conn *Connection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.connections[conn.UserID] == nil {
		m.connections[conn.UserID] = make(map[string]*Connection)
	}
	m.connections[conn.UserID][conn.ID] = conn
	m.logger.Debug("WebSocket connection registered",
		zap.String("connection_id", conn.ID),
		zap.Uint("user_id", conn.UserID),
	)
}

func (m *Manager) unregister(conn *Connection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	userConns, ok := m.connections[conn.UserID]
	if !ok {
		return
	}
	if _, ok := userConns[conn.ID]; !ok {
		return
	}
	delete(userConns, conn.ID)
	if len(userConns) == 0 {
		delete(m.connections, conn.UserID)
	}
	conn.close()
	m.logger.Debug("WebSocket connection unregistered",
		zap.String("connection_id", conn.ID),
		zap.Uint("user_id", conn.UserID),
	)
}

// readPump discards client frames and keeps the deadline fresh.
func (m *Manager) readPump(conn *Connection) {
	defer func() {
		m.unregister(conn)
		conn.Conn.Close()
	}()

	conn.Conn.SetReadLimit(512)
	conn.Conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.Conn.SetPongHandler(func(string) error {
		conn.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := conn.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				m.logger.Warn("WebSocket read failed", zap.Uint("user_id", conn.UserID), zap.Error(err))
			}
			return
		}
	}
}

func (m *Manager) writePump(conn *Connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			conn.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.Conn.WriteJSON(message); err != nil {
				return
			}

		case <-ticker.C:
			conn.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendToUser queues message on every connection of userID.
func (m *Manager) SendToUser(userID uint, message Message) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	userConns := m.connections[userID]
	if len(userConns) == 0 {
		return ErrNotConnected
	}

	var full int
	for _, conn := range userConns {
		select {
		case conn.Send <- message:
		default:
			full++
		}
	}
	if full == len(userConns) {
		return ErrBufferFull
	}
	return nil
}

// Broadcast queues message on every connection. Connections with a full
// buffer are skipped.
func (m *Manager) Broadcast(message Message) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sent := 0
	for _, userConns := range m.connections {
		for _, conn := range userConns {
			select {
			case conn.Send <- message:
				sent++
			default:
			}
		}
	}
	return sent
}

// GetConnectionCount returns the number of active connections
func (m *Manager) GetConnectionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, userConns := range m.connections {
		count += len(userConns)
	}
	return count
}

// IsConnected reports whether userID has at least one live connection.
func (m *Manager) IsConnected(userID uint) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.connections[userID]) > 0
}

// Close shuts every connection down.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, userConns := range m.connections {
		for _, conn := range userConns {
			conn.close()
			if conn.Conn != nil {
				conn.Conn.Close()
			}
		}
	}
	m.connections = make(map[uint]map[string]*Connection)
}
