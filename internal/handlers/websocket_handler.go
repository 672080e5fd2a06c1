package handlers

import (
	"github.com/gofiber/websocket/v2"
	"github.com/punchking466/workchat-backend-v2/internal/cache"
	"github.com/punchking466/workchat-backend-v2/internal/handlers/ws"
	"github.com/punchking466/workchat-backend-v2/internal/service"
	"github.com/rs/zerolog"
)

type WebSocketHandler struct {
	roomService    *service.RoomService
	messageService *service.MessageService
	router         *service.NotificationRouter
	hub            *ws.Hub
	presence       *cache.PresenceDirectory
	logger         zerolog.Logger
}

func NewWebSocketHandler(
	roomService *service.RoomService,
	messageService *service.MessageService,
	router *service.NotificationRouter,
	hub *ws.Hub,
	presence *cache.PresenceDirectory,
	logger zerolog.Logger,
) *WebSocketHandler {
	return &WebSocketHandler{
		roomService:    roomService,
		messageService: messageService,
		router:         router,
		hub:            hub,
		presence:       presence,
		logger:         logger,
	}
}

// GetHub returns the hub instance so REST handlers can push through it.
func (h *WebSocketHandler) GetHub() *ws.Hub {
	return h.hub
}

func (h *WebSocketHandler) HandleWebSocket(c *websocket.Conn) {
	userID := c.Locals("userID").(uint)

	// Gzip framing is opt-in via query param or header.
	supportsGzip := c.Query("gzip") == "1" || c.Headers("X-Supports-Gzip") == "1"

	connID := h.hub.Register(userID, c, supportsGzip)
	defer h.hub.Unregister(connID)

	ctx := &ws.MessageContext{
		UserID:         userID,
		ConnID:         connID,
		Hub:            h.hub,
		RoomService:    h.roomService,
		MessageService: h.messageService,
		Router:         h.router,
		Presence:       h.presence,
		Logger:         h.logger,
	}

	for {
		messageType, messageBytes, err := c.ReadMessage()
		if err != nil {
			h.logger.Debug().Err(err).Uint("user_id", userID).Msg("ws read")
			break
		}

		if messageType == websocket.BinaryMessage {
			decompressed, err := ws.DecompressMessage(messageBytes)
			if err != nil {
				h.logger.Warn().Err(err).Uint("user_id", userID).Msg("ws decompress")
				h.hub.SendError(connID, "decompression_failed", "Failed to decompress message", err.Error())
				continue
			}
			messageBytes = decompressed
		}

		msg, err := ws.Deserialize(messageBytes)
		if err != nil {
			h.logger.Warn().Err(err).Uint("user_id", userID).Msg("ws deserialize")
			h.hub.SendError(connID, "invalid_event", "Invalid event format", err.Error())
			continue
		}

		if err := msg.Process(ctx); err != nil {
			h.logger.Warn().Err(err).Str("event", msg.GetType()).Uint("user_id", userID).Msg("ws process")
			h.hub.SendError(connID, "processing_failed", "Failed to process event", err.Error())
		}
	}
}
