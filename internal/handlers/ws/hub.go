package ws

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/punchking466/workchat-backend-v2/internal/cache"
	"github.com/punchking466/workchat-backend-v2/internal/metrics"
	"github.com/punchking466/workchat-backend-v2/internal/models"
	"github.com/rs/zerolog"
)

// ClientConnection wraps one WebSocket connection with its metadata. All
// writes go through writeMu; fiber's websocket conn is not safe for
// concurrent writers.
type ClientConnection struct {
	ID           string
	Conn         *websocket.Conn
	UserID       uint
	LastPong     time.Time
	SupportsGzip bool
	PingTicker   *time.Ticker
	CloseChan    chan struct{}

	writeMu sync.Mutex
}

// Event is the outbound wire envelope.
type Event struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Hub tracks active connections, the user -> connection index, and per-room
// subscription sets. It is the delivery surface the notification router
// pushes through; it never calls back into the services.
type Hub struct {
	clients  map[string]*ClientConnection
	byUser   map[uint]string
	rooms    map[string]map[string]struct{}
	mux      sync.RWMutex
	presence *cache.PresenceDirectory
	logger   zerolog.Logger

	pingInterval time.Duration
	pongTimeout  time.Duration
}

func NewHub(presence *cache.PresenceDirectory, logger zerolog.Logger) *Hub {
	hub := &Hub{
		clients:      make(map[string]*ClientConnection),
		byUser:       make(map[uint]string),
		rooms:        make(map[string]map[string]struct{}),
		presence:     presence,
		logger:       logger,
		pingInterval: 30 * time.Second,
		pongTimeout:  90 * time.Second,
	}

	go hub.connectionHealthChecker()

	return hub
}

func roomKey(kind models.RoomKind, roomID uint) string {
	return fmt.Sprintf("%s-%d", kind, roomID)
}

// Register adds a connection, indexes it by user, and records presence. A
// second connection from the same user replaces the first. Returns the
// connection id.
func (h *Hub) Register(userID uint, conn *websocket.Conn, supportsGzip bool) string {
	client := &ClientConnection{
		ID:           uuid.NewString(),
		Conn:         conn,
		UserID:       userID,
		LastPong:     time.Now(),
		SupportsGzip: supportsGzip,
		PingTicker:   time.NewTicker(h.pingInterval),
		CloseChan:    make(chan struct{}),
	}

	conn.SetPongHandler(func(appData string) error {
		h.mux.Lock()
		if c, exists := h.clients[client.ID]; exists {
			c.LastPong = time.Now()
		}
		h.mux.Unlock()
		conn.SetReadDeadline(time.Now().Add(h.pongTimeout))
		return nil
	})
	conn.SetReadDeadline(time.Now().Add(h.pongTimeout))

	h.mux.Lock()
	if prevID, exists := h.byUser[userID]; exists {
		h.dropLocked(prevID)
	}
	h.clients[client.ID] = client
	h.byUser[userID] = client.ID
	total := len(h.clients)
	h.mux.Unlock()

	if err := h.presence.Connect(userID, client.ID); err != nil {
		h.logger.Warn().Err(err).Uint("user_id", userID).Msg("hub: record presence")
	}
	metrics.WebsocketConnections.Set(float64(total))

	go h.pingRoutine(client)

	h.logger.Info().Uint("user_id", userID).Str("conn_id", client.ID).
		Int("total", total).Bool("gzip", supportsGzip).Msg("hub: connected")
	return client.ID
}

// Unregister removes a connection, its room subscriptions, and its presence
// entries.
func (h *Hub) Unregister(connID string) {
	h.mux.Lock()
	client, exists := h.clients[connID]
	if exists {
		h.dropLocked(connID)
	}
	total := len(h.clients)
	h.mux.Unlock()

	if !exists {
		return
	}

	if err := h.presence.Disconnect(client.UserID, connID); err != nil {
		h.logger.Warn().Err(err).Uint("user_id", client.UserID).Msg("hub: clear presence")
	}
	metrics.WebsocketConnections.Set(float64(total))

	h.logger.Info().Uint("user_id", client.UserID).Str("conn_id", connID).
		Int("total", total).Msg("hub: disconnected")
}

// dropLocked removes a connection from every index. Caller holds mux.
func (h *Hub) dropLocked(connID string) {
	client, exists := h.clients[connID]
	if !exists {
		return
	}
	if client.PingTicker != nil {
		client.PingTicker.Stop()
	}
	close(client.CloseChan)
	delete(h.clients, connID)
	if h.byUser[client.UserID] == connID {
		delete(h.byUser, client.UserID)
	}
	for key, conns := range h.rooms {
		delete(conns, connID)
		if len(conns) == 0 {
			delete(h.rooms, key)
		}
	}
}

// JoinRoom subscribes a connection to a room's broadcast set, replacing any
// previous room subscription. A client views one room at a time.
func (h *Hub) JoinRoom(connID string, kind models.RoomKind, roomID uint) {
	key := roomKey(kind, roomID)

	h.mux.Lock()
	for k, conns := range h.rooms {
		if k == key {
			continue
		}
		delete(conns, connID)
		if len(conns) == 0 {
			delete(h.rooms, k)
		}
	}
	if h.rooms[key] == nil {
		h.rooms[key] = make(map[string]struct{})
	}
	h.rooms[key][connID] = struct{}{}
	h.mux.Unlock()
}

// IsOnline checks if a user has a live connection.
func (h *Hub) IsOnline(userID uint) bool {
	h.mux.RLock()
	defer h.mux.RUnlock()
	_, exists := h.byUser[userID]
	return exists
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mux.RLock()
	defer h.mux.RUnlock()
	return len(h.clients)
}

// SendToUser pushes one event to a user's connection, if any. Offline users
// are skipped; durable state already reflects the message, so a reconnect
// resyncs through the initial-unread and room-list paths.
func (h *Hub) SendToUser(userID uint, event string, data interface{}) {
	h.mux.RLock()
	connID, exists := h.byUser[userID]
	client := h.clients[connID]
	h.mux.RUnlock()

	if !exists || client == nil {
		return
	}
	if err := h.writeEvent(client, event, data); err != nil {
		h.logger.Warn().Err(err).Uint("user_id", userID).Str("event", event).Msg("hub: send failed")
		h.Unregister(client.ID)
	}
}

// BroadcastToRoom pushes one event to every connection subscribed to a room.
func (h *Hub) BroadcastToRoom(kind models.RoomKind, roomID uint, event string, data interface{}) {
	key := roomKey(kind, roomID)

	h.mux.RLock()
	targets := make([]*ClientConnection, 0, len(h.rooms[key]))
	for connID := range h.rooms[key] {
		if client, exists := h.clients[connID]; exists {
			targets = append(targets, client)
		}
	}
	h.mux.RUnlock()

	for _, client := range targets {
		if err := h.writeEvent(client, event, data); err != nil {
			h.logger.Warn().Err(err).Uint("user_id", client.UserID).Str("event", event).Msg("hub: broadcast failed")
			h.Unregister(client.ID)
		}
	}
}

// SendError pushes an error response to one connection. It takes the same
// write lock as every other writer to the conn; the read loop must never
// write to the socket directly.
func (h *Hub) SendError(connID, code, message, details string) {
	h.mux.RLock()
	client := h.clients[connID]
	h.mux.RUnlock()

	if client == nil {
		return
	}

	client.writeMu.Lock()
	err := client.Conn.WriteJSON(ErrorResponse{
		Event:   "error",
		Error:   message,
		Code:    code,
		Details: details,
	})
	client.writeMu.Unlock()
	if err != nil {
		h.logger.Warn().Err(err).Uint("user_id", client.UserID).Str("code", code).Msg("hub: error send failed")
		h.Unregister(client.ID)
	}
}

// writeEvent marshals the envelope and writes it under the connection's
// write lock, gzip-compressing large frames for clients that negotiated it.
func (h *Hub) writeEvent(client *ClientConnection, event string, data interface{}) error {
	jsonData, err := json.Marshal(Event{Event: event, Data: data})
	if err != nil {
		return err
	}

	finalData := jsonData
	frameType := websocket.TextMessage
	if client.SupportsGzip && len(jsonData) > 512 {
		if compressed, cerr := compressData(jsonData); cerr == nil && len(compressed) < len(jsonData) {
			finalData = compressed
			frameType = websocket.BinaryMessage
		}
	}

	client.writeMu.Lock()
	defer client.writeMu.Unlock()
	return client.Conn.WriteMessage(frameType, finalData)
}

// pingRoutine keeps the connection and its presence entries alive. Each ping
// doubles as the presence heartbeat; a process that dies stops refreshing
// and the entries expire on their own.
func (h *Hub) pingRoutine(client *ClientConnection) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error().Interface("panic", r).Uint("user_id", client.UserID).Msg("hub: ping routine recovered")
		}
	}()

	for {
		select {
		case <-client.CloseChan:
			return
		case <-client.PingTicker.C:
			client.writeMu.Lock()
			err := client.Conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(10*time.Second))
			client.writeMu.Unlock()
			if err != nil {
				h.logger.Warn().Err(err).Uint("user_id", client.UserID).Msg("hub: ping failed")
				h.Unregister(client.ID)
				return
			}

			if err := h.presence.Refresh(client.UserID, client.ID); err != nil {
				h.logger.Warn().Err(err).Uint("user_id", client.UserID).Msg("hub: presence refresh")
			}
		}
	}
}

// connectionHealthChecker evicts connections that stopped answering pings.
func (h *Hub) connectionHealthChecker() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		h.mux.RLock()
		dead := make([]string, 0)
		now := time.Now()
		for connID, client := range h.clients {
			if now.Sub(client.LastPong) > h.pongTimeout {
				dead = append(dead, connID)
			}
		}
		h.mux.RUnlock()

		for _, connID := range dead {
			h.logger.Info().Str("conn_id", connID).Msg("hub: removing dead connection")
			h.Unregister(connID)
		}
	}
}

func compressData(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecompressMessage inflates a gzip-compressed binary frame.
func DecompressMessage(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
