package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/punchking466/workchat-backend-v2/internal/httpx"
	"github.com/punchking466/workchat-backend-v2/internal/models"
	"github.com/punchking466/workchat-backend-v2/internal/service"
	"github.com/punchking466/workchat-backend-v2/internal/storage"
	"github.com/punchking466/workchat-backend-v2/internal/validation"
	"github.com/rs/zerolog"
)

type MessageHandler struct {
	messageService *service.MessageService
	roomService    *service.RoomService
	router         *service.NotificationRouter
	media          *storage.MediaStore
	logger         zerolog.Logger
}

func NewMessageHandler(
	messageService *service.MessageService,
	roomService *service.RoomService,
	router *service.NotificationRouter,
	media *storage.MediaStore,
	logger zerolog.Logger,
) *MessageHandler {
	return &MessageHandler{
		messageService: messageService,
		roomService:    roomService,
		router:         router,
		media:          media,
		logger:         logger,
	}
}

type SendMessageRequest struct {
	Kind  string              `json:"kind"`
	Body  string              `json:"body"`
	Image string              `json:"image"`
	Card  *models.CardPayload `json:"card"`
}

// Send appends a message and fans it out. The append is transactional; the
// fan-out runs after and never fails the request.
func (h *MessageHandler) Send(c *fiber.Ctx) error {
	kind, ok := parseKind(c)
	if !ok {
		return httpx.BadRequest(c, "invalid_room_kind", "Unknown room kind")
	}
	roomID, err := paramUint(c, "id")
	if err != nil {
		return httpx.BadRequest(c, "invalid_room_id", "Invalid room ID")
	}

	var req SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return httpx.BadRequest(c, "invalid_body", "Invalid request body")
	}

	userID := c.Locals("userID").(uint)

	in := service.SendInput{RoomID: roomID, Kind: models.MessageKind(req.Kind)}
	switch in.Kind {
	case models.TextMessage, "":
		in.Kind = models.TextMessage
		in.Body = validation.TrimAndLimit(req.Body, validation.MaxMessageLength())
		if in.Body == "" {
			return httpx.BadRequest(c, "empty_message", "Message body is required")
		}
	case models.ImageMessage:
		if h.media == nil {
			return httpx.Error(c, fiber.StatusServiceUnavailable, "storage_not_configured", "Storage not configured")
		}
		if req.Image == "" {
			return httpx.BadRequest(c, "missing_image", "Image payload is required")
		}
		// Authorize before touching storage so a rejected send never leaves
		// an orphaned object behind.
		if _, err := h.messageService.AuthorizeSend(userID, kind, roomID); err != nil {
			return serviceError(c, err)
		}
		ref, err := h.media.StoreBase64(c.Context(), req.Image)
		if err != nil {
			if errors.Is(err, storage.ErrTooLarge) {
				return httpx.Error(c, fiber.StatusRequestEntityTooLarge, "image_too_large", "Image too large")
			}
			if errors.Is(err, storage.ErrInvalidImage) || errors.Is(err, storage.ErrUnsupported) {
				return httpx.BadRequest(c, "invalid_image", "Invalid image payload")
			}
			h.logger.Error().Err(err).Uint("room_id", roomID).Msg("image store")
			return httpx.Internal(c, "image_store_failed")
		}
		in.FileRef = ref
	case models.CardMessage:
		if req.Card == nil {
			return httpx.BadRequest(c, "missing_card", "Card payload is required")
		}
		in.Card = req.Card
	default:
		return httpx.BadRequest(c, "invalid_message_kind", "Unknown message kind")
	}

	msg, err := h.messageService.Send(userID, kind, in)
	if err != nil {
		return serviceError(c, err)
	}

	room, err := h.roomService.Room(roomID, kind)
	if err == nil {
		h.router.RouteMessage(room, msg)
	} else {
		h.logger.Error().Err(err).Uint("room_id", roomID).Msg("route after send")
	}

	return c.Status(fiber.StatusCreated).JSON(msg.ToResponse(userID, ""))
}

// List serves one page of visible history, optionally keyword-filtered.
func (h *MessageHandler) List(c *fiber.Ctx) error {
	kind, ok := parseKind(c)
	if !ok {
		return httpx.BadRequest(c, "invalid_room_kind", "Unknown room kind")
	}
	roomID, err := paramUint(c, "id")
	if err != nil {
		return httpx.BadRequest(c, "invalid_room_id", "Invalid room ID")
	}

	page, _ := strconv.Atoi(c.Query("page", "1"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.Query("limit", "50"))
	keyword := validation.TrimAndLimit(c.Query("keyword"), 100)

	userID := c.Locals("userID").(uint)
	messages, err := h.messageService.ListVisible(roomID, userID, kind, page, limit, keyword)
	if err != nil {
		return serviceError(c, err)
	}

	senderIDs := make([]uint, 0, len(messages))
	seen := make(map[uint]bool, len(messages))
	for i := range messages {
		if !seen[messages[i].SenderID] {
			seen[messages[i].SenderID] = true
			senderIDs = append(senderIDs, messages[i].SenderID)
		}
	}
	names, err := h.roomService.DisplayNames(senderIDs)
	if err != nil {
		h.logger.Warn().Err(err).Uint("room_id", roomID).Msg("resolve sender names")
		names = map[uint]string{}
	}

	out := make([]models.MessageResponse, 0, len(messages))
	for i := range messages {
		out = append(out, messages[i].ToResponse(userID, names[messages[i].SenderID]))
	}
	return c.JSON(out)
}

// MarkRead advances the read marker and returns the new unread total.
func (h *MessageHandler) MarkRead(c *fiber.Ctx) error {
	kind, ok := parseKind(c)
	if !ok {
		return httpx.BadRequest(c, "invalid_room_kind", "Unknown room kind")
	}
	roomID, err := paramUint(c, "id")
	if err != nil {
		return httpx.BadRequest(c, "invalid_room_id", "Invalid room ID")
	}

	userID := c.Locals("userID").(uint)
	total, err := h.messageService.MarkRead(userID, roomID, kind)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{"total_unread": total})
}
