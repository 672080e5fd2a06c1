package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/punchking466/workchat-backend-v2/internal/cache"
	"github.com/punchking466/workchat-backend-v2/internal/handlers/ws"
	"github.com/punchking466/workchat-backend-v2/internal/httpx"
	"github.com/punchking466/workchat-backend-v2/internal/models"
	"github.com/punchking466/workchat-backend-v2/internal/service"
	"github.com/punchking466/workchat-backend-v2/internal/validation"
	"github.com/rs/zerolog"
)

type RoomHandler struct {
	roomService    *service.RoomService
	messageService *service.MessageService
	router         *service.NotificationRouter
	roomLists      *cache.RoomListCache
	hub            *ws.Hub
	logger         zerolog.Logger
}

func NewRoomHandler(
	roomService *service.RoomService,
	messageService *service.MessageService,
	router *service.NotificationRouter,
	roomLists *cache.RoomListCache,
	hub *ws.Hub,
	logger zerolog.Logger,
) *RoomHandler {
	return &RoomHandler{
		roomService:    roomService,
		messageService: messageService,
		router:         router,
		roomLists:      roomLists,
		hub:            hub,
		logger:         logger,
	}
}

type CreateGroupRequest struct {
	Name      string `json:"name"`
	MemberIDs []uint `json:"member_ids"`
}

func (h *RoomHandler) CreateGroup(c *fiber.Ctx) error {
	var req CreateGroupRequest
	if err := c.BodyParser(&req); err != nil {
		return httpx.BadRequest(c, "invalid_body", "Invalid request body")
	}
	if !validation.ValidateRoomName(req.Name) {
		return httpx.BadRequest(c, "invalid_room_name", "Room name is required")
	}

	userID := c.Locals("userID").(uint)
	room, err := h.roomService.CreateGroup(userID, validation.TrimAndLimit(req.Name, validation.MaxRoomNameLength()), req.MemberIDs)
	if err != nil {
		return serviceError(c, err)
	}

	h.signalRefresh(room.ID, models.GroupRoom)
	return c.Status(fiber.StatusCreated).JSON(room)
}

type CreatePrivateRequest struct {
	FriendID uint `json:"friend_id"`
}

// CreatePrivate returns the 1:1 room with the friend, creating or reviving
// it as needed.
func (h *RoomHandler) CreatePrivate(c *fiber.Ctx) error {
	var req CreatePrivateRequest
	if err := c.BodyParser(&req); err != nil {
		return httpx.BadRequest(c, "invalid_body", "Invalid request body")
	}
	if req.FriendID == 0 {
		return httpx.BadRequest(c, "missing_friend_id", "friend_id is required")
	}

	userID := c.Locals("userID").(uint)
	if req.FriendID == userID {
		return httpx.BadRequest(c, "invalid_friend_id", "Cannot open a room with yourself")
	}

	roomID, err := h.roomService.CreateOrGetPrivate(userID, req.FriendID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{"room_id": roomID})
}

// RoomList serves the per-user overview, cached for a short window.
func (h *RoomHandler) RoomList(c *fiber.Ctx) error {
	kind, ok := parseKind(c)
	if !ok {
		return httpx.BadRequest(c, "invalid_room_kind", "Unknown room kind")
	}
	userID := c.Locals("userID").(uint)

	if rows, ok := h.roomLists.Get(userID, kind); ok {
		return c.JSON(rows)
	}

	rows, err := h.messageService.RoomList(userID, kind)
	if err != nil {
		return serviceError(c, err)
	}
	if err := h.roomLists.Set(userID, kind, rows); err != nil {
		h.logger.Warn().Err(err).Uint("user_id", userID).Msg("room list cache set")
	}
	return c.JSON(rows)
}

type AddMembersRequest struct {
	MemberIDs []uint `json:"member_ids"`
}

func (h *RoomHandler) AddMembers(c *fiber.Ctx) error {
	roomID, err := paramUint(c, "id")
	if err != nil {
		return httpx.BadRequest(c, "invalid_room_id", "Invalid room ID")
	}
	var req AddMembersRequest
	if err := c.BodyParser(&req); err != nil {
		return httpx.BadRequest(c, "invalid_body", "Invalid request body")
	}
	if len(req.MemberIDs) == 0 {
		return httpx.BadRequest(c, "missing_member_ids", "member_ids is required")
	}

	userID := c.Locals("userID").(uint)
	if _, err := h.roomService.ResolveMember(roomID, userID); err != nil {
		return serviceError(c, err)
	}
	if err := h.roomService.AddMembers(roomID, req.MemberIDs); err != nil {
		return serviceError(c, err)
	}

	h.signalRefresh(roomID, models.GroupRoom)
	return c.JSON(fiber.Map{"message": "Members added"})
}

func (h *RoomHandler) Leave(c *fiber.Ctx) error {
	kind, ok := parseKind(c)
	if !ok {
		return httpx.BadRequest(c, "invalid_room_kind", "Unknown room kind")
	}
	roomID, err := paramUint(c, "id")
	if err != nil {
		return httpx.BadRequest(c, "invalid_room_id", "Invalid room ID")
	}

	userID := c.Locals("userID").(uint)
	if err := h.roomService.Leave(roomID, userID, kind); err != nil {
		return serviceError(c, err)
	}

	h.signalRefresh(roomID, kind)
	if err := h.roomLists.Invalidate(userID, kind); err != nil {
		h.logger.Warn().Err(err).Uint("user_id", userID).Msg("refresh signal: invalidate")
	}
	h.hub.SendToUser(userID, service.EventRefreshRoomList, fiber.Map{"roomKind": kind})
	return c.JSON(fiber.Map{"message": "Left room"})
}

func (h *RoomHandler) Kick(c *fiber.Ctx) error {
	roomID, err := paramUint(c, "id")
	if err != nil {
		return httpx.BadRequest(c, "invalid_room_id", "Invalid room ID")
	}
	targetID, err := paramUint(c, "userId")
	if err != nil {
		return httpx.BadRequest(c, "invalid_user_id", "Invalid user ID")
	}

	actorID := c.Locals("userID").(uint)
	if err := h.roomService.Kick(roomID, actorID, targetID); err != nil {
		return serviceError(c, err)
	}

	h.signalRefresh(roomID, models.GroupRoom)
	if err := h.roomLists.Invalidate(targetID, models.GroupRoom); err != nil {
		h.logger.Warn().Err(err).Uint("user_id", targetID).Msg("refresh signal: invalidate")
	}
	h.hub.SendToUser(targetID, service.EventRefreshRoomList, fiber.Map{"roomKind": models.GroupRoom})
	return c.JSON(fiber.Map{"message": "Member removed"})
}

func (h *RoomHandler) Members(c *fiber.Ctx) error {
	roomID, err := paramUint(c, "id")
	if err != nil {
		return httpx.BadRequest(c, "invalid_room_id", "Invalid room ID")
	}

	userID := c.Locals("userID").(uint)
	if _, err := h.roomService.ResolveMember(roomID, userID); err != nil {
		return serviceError(c, err)
	}

	members, err := h.roomService.Members(roomID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(members)
}

func (h *RoomHandler) GetNotification(c *fiber.Ctx) error {
	roomID, err := paramUint(c, "id")
	if err != nil {
		return httpx.BadRequest(c, "invalid_room_id", "Invalid room ID")
	}

	userID := c.Locals("userID").(uint)
	allow, err := h.roomService.RoomNotification(roomID, userID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{"allow_notification": allow})
}

type SetNotificationRequest struct {
	AllowNotification bool `json:"allow_notification"`
}

func (h *RoomHandler) SetNotification(c *fiber.Ctx) error {
	roomID, err := paramUint(c, "id")
	if err != nil {
		return httpx.BadRequest(c, "invalid_room_id", "Invalid room ID")
	}
	var req SetNotificationRequest
	if err := c.BodyParser(&req); err != nil {
		return httpx.BadRequest(c, "invalid_body", "Invalid request body")
	}

	userID := c.Locals("userID").(uint)
	if err := h.roomService.SetRoomNotification(roomID, userID, req.AllowNotification); err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{"allow_notification": req.AllowNotification})
}

// signalRefresh invalidates cached room lists and nudges every active member
// to refetch after a membership change.
func (h *RoomHandler) signalRefresh(roomID uint, kind models.RoomKind) {
	ids, err := h.roomService.ActiveMemberIDs(roomID)
	if err != nil {
		h.logger.Warn().Err(err).Uint("room_id", roomID).Msg("refresh signal: list members")
		return
	}
	for _, uid := range ids {
		if err := h.roomLists.Invalidate(uid, kind); err != nil {
			h.logger.Warn().Err(err).Uint("user_id", uid).Msg("refresh signal: invalidate")
		}
		h.hub.SendToUser(uid, service.EventRefreshRoomList, fiber.Map{"roomKind": kind})
	}
}
