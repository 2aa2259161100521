package gateway

import (
	"fmt"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mcdev12/auctionhouse/go/internal/auction/events"
	"github.com/mcdev12/auctionhouse/go/internal/auction/session"
	"github.com/rs/zerolog/log"
)

// ConnectionManager upgrades bidders to WebSocket and binds each connection
// to a seat handed out by the session registry.
type ConnectionManager struct {
	registry *session.Registry

	connections map[*Connection]bool
	mu          sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig

	accepted atomic.Int64
	rejected atomic.Int64
}

// Connection is one bidder's WebSocket. It implements session.Conn.
type Connection struct {
	id      string
	Conn    *websocket.Conn
	send    chan []byte
	manager *ConnectionManager

	session *session.Session
	seatID  int

	ConnectedAt time.Time
	lastPing    atomic.Int64

	done      chan struct{}
	closeOnce sync.Once
}

// ConnectionConfig holds configuration for WebSocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	SendBufferSize  int
	AllowedOrigins  []string
}

func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		SendBufferSize:  256,
		AllowedOrigins:  []string{"*"},
	}
}

func NewConnectionManager(registry *session.Registry, config ConnectionConfig) *ConnectionManager {
	if config.SendBufferSize <= 0 {
		config.SendBufferSize = DefaultConnectionConfig().SendBufferSize
	}
	return &ConnectionManager{
		registry:    registry,
		connections: make(map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     checkOrigin(config.AllowedOrigins),
		},
		config: config,
	}
}

// checkOrigin allows requests without an Origin header, "*" or a listed origin.
func checkOrigin(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || slices.Contains(allowed, "*") {
			return true
		}
		return slices.Contains(allowed, origin)
	}
}

// UpgradeConnection upgrades the request and seats the new bidder.
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		id:          uuid.New().String(),
		Conn:        conn,
		send:        make(chan []byte, cm.config.SendBufferSize),
		manager:     cm,
		ConnectedAt: time.Now(),
		done:        make(chan struct{}),
	}
	connection.lastPing.Store(time.Now().UnixNano())

	sess, seatID, err := cm.registry.AssignSeat(connection)
	if err != nil {
		cm.rejected.Add(1)
		cm.reject(connection, err)
		return nil
	}
	connection.session = sess
	connection.seatID = seatID
	cm.accepted.Add(1)

	cm.registerConnection(connection)

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.id).
		Int("session_id", sess.ID()).
		Int("seat_id", seatID).
		Str("remote_addr", r.RemoteAddr).
		Msg("WebSocket connection established")

	return nil
}

// reject tells the client why it could not be seated and closes the socket.
func (cm *ConnectionManager) reject(c *Connection, reason error) {
	log.Warn().Err(reason).Str("connection_id", c.id).Msg("rejecting WebSocket connection")

	if data, err := events.Encode(events.NewError(errorMessage(reason))); err == nil {
		_ = c.Conn.SetWriteDeadline(time.Now().Add(cm.config.WriteTimeout))
		_ = c.Conn.WriteMessage(websocket.TextMessage, data)
	}
	closeMsg := websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "auction is full")
	_ = c.Conn.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(cm.config.WriteTimeout))
	_ = c.Conn.Close()
}

func (cm *ConnectionManager) registerConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	cm.connections[conn] = true

	log.Debug().
		Str("connection_id", conn.id).
		Int("total_connections", len(cm.connections)).
		Msg("connection registered")
}

func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if _, exists := cm.connections[conn]; exists {
		delete(cm.connections, conn)
		log.Info().
			Str("connection_id", conn.id).
			Int("session_id", conn.session.ID()).
			Int("seat_id", conn.seatID).
			Msg("connection unregistered")
	}
}

// CloseAll closes every live connection.
func (cm *ConnectionManager) CloseAll() {
	cm.mu.RLock()
	conns := make([]*Connection, 0, len(cm.connections))
	for conn := range cm.connections {
		conns = append(conns, conn)
	}
	cm.mu.RUnlock()

	for _, conn := range conns {
		conn.close()
	}
	log.Info().Int("connections", len(conns)).Msg("closed all WebSocket connections")
}

// ConnectionStats summarizes the connection pool.
type ConnectionStats struct {
	TotalConnections   int         `json:"total_connections"`
	SessionConnections map[int]int `json:"session_connections"`
	Accepted           int64       `json:"accepted"`
	Rejected           int64       `json:"rejected"`
}

func (cm *ConnectionManager) GetConnectionStats() ConnectionStats {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	perSession := make(map[int]int)
	for conn := range cm.connections {
		perSession[conn.session.ID()]++
	}

	return ConnectionStats{
		TotalConnections:   len(cm.connections),
		SessionConnections: perSession,
		Accepted:           cm.accepted.Load(),
		Rejected:           cm.rejected.Load(),
	}
}

func (c *Connection) ID() string { return c.id }

// Send queues msg without blocking. A connection whose buffer is full is too
// slow to keep up with the auction and gets closed.
func (c *Connection) Send(msg events.Outbound) bool {
	data, err := events.Encode(msg)
	if err != nil {
		log.Error().Err(err).Str("connection_id", c.id).Msg("failed to encode outbound message")
		return false
	}

	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- data:
		return true
	default:
		log.Warn().
			Str("connection_id", c.id).
			Msg("connection send buffer full, closing connection")
		c.close()
		return false
	}
}

// close is safe to call from any goroutine, including under a session lock:
// it never calls back into the session.
func (c *Connection) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.Conn.Close()
	})
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(c.manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case message := <-c.send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(c.manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.id).
					Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(c.manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug().
					Err(err).
					Str("connection_id", c.id).
					Msg("failed to send ping")
				return
			}

		case <-c.done:
			return
		}
	}
}

func (c *Connection) readPump() {
	defer func() {
		c.session.Disconnect(c.seatID, c)
		c.manager.unregisterConnection(c)
		c.close()
	}()

	c.Conn.SetReadLimit(c.manager.config.MaxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(c.manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		_ = c.Conn.SetReadDeadline(time.Now().Add(c.manager.config.ReadTimeout))
		c.lastPing.Store(time.Now().UnixNano())
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Error().
					Err(err).
					Str("connection_id", c.id).
					Msg("unexpected WebSocket close error")
			}
			return
		}

		c.handleClientMessage(message)
		_ = c.Conn.SetReadDeadline(time.Now().Add(c.manager.config.ReadTimeout))
	}
}

// handleClientMessage applies one client frame to the seat's session.
// Rejections are answered with an error frame to this client only.
func (c *Connection) handleClientMessage(message []byte) {
	cmd, err := events.DecodeInbound(message)
	if err != nil {
		log.Debug().Err(err).Str("connection_id", c.id).Msg("rejected client message")
		c.Send(events.NewError(errorMessage(err)))
		return
	}

	switch cmd := cmd.(type) {
	case events.SelectTeam:
		err = c.session.SelectTeam(c.seatID, cmd.Team)
	case events.PlaceBid:
		err = c.session.PlaceBid(c.seatID, cmd.Amount)
	case events.TimerEnded:
		c.session.TimerEnded(c.seatID, cmd.Round)
	}
	if err == nil {
		return
	}

	log.Debug().
		Err(err).
		Str("connection_id", c.id).
		Int("session_id", c.session.ID()).
		Int("seat_id", c.seatID).
		Msg("client command rejected")

	c.Send(events.NewError(errorMessage(err)))
}
