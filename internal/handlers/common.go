package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/punchking466/workchat-backend-v2/internal/httpx"
	"github.com/punchking466/workchat-backend-v2/internal/models"
	"github.com/punchking466/workchat-backend-v2/internal/service"
)

// parseKind reads the :kind route segment ("group" or "private").
func parseKind(c *fiber.Ctx) (models.RoomKind, bool) {
	return models.ParseRoomKind(c.Params("kind"))
}

func paramUint(c *fiber.Ctx, name string) (uint, error) {
	v, err := strconv.ParseUint(c.Params(name), 10, 32)
	return uint(v), err
}

// serviceError maps the service rejection taxonomy onto the error envelope.
// Anything unrecognized is an internal error; details stay in the logs.
func serviceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrRoomNotFound):
		return httpx.NotFound(c, "room_not_found", "Room not found")
	case errors.Is(err, service.ErrUserNotFound):
		return httpx.NotFound(c, "user_not_found", "User not found")
	case errors.Is(err, service.ErrNotAMember):
		return httpx.Forbidden(c, "not_a_member", "Not a member of this room")
	case errors.Is(err, service.ErrNotAdmin):
		return httpx.Forbidden(c, "not_admin", "Room admin required")
	case errors.Is(err, service.ErrCannotKickSelf):
		return httpx.BadRequest(c, "cannot_kick_self", "Use leave to remove yourself")
	case errors.Is(err, service.ErrInvalidTransition):
		return httpx.Conflict(c, "invalid_transition", "Action not valid in current state")
	default:
		return httpx.Internal(c, "internal_error")
	}
}
