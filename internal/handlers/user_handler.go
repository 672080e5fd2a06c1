package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/punchking466/workchat-backend-v2/internal/httpx"
	"github.com/punchking466/workchat-backend-v2/internal/repository"
	"github.com/punchking466/workchat-backend-v2/internal/service"
)

type UserHandler struct {
	userRepo repository.UserRepositoryInterface
}

func NewUserHandler(userRepo repository.UserRepositoryInterface) *UserHandler {
	return &UserHandler{userRepo: userRepo}
}

type NotificationSettings struct {
	AllowNotification bool `json:"allow_notification"`
	AllowSound        bool `json:"allow_sound"`
	AllowVibration    bool `json:"allow_vibration"`
}

func (h *UserHandler) GetNotificationSettings(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	user, err := h.userRepo.FindByID(userID)
	if err != nil {
		return serviceError(c, service.ErrUserNotFound)
	}
	return c.JSON(NotificationSettings{
		AllowNotification: user.AllowNotification,
		AllowSound:        user.AllowSound,
		AllowVibration:    user.AllowVibration,
	})
}

func (h *UserHandler) SetNotificationSettings(c *fiber.Ctx) error {
	var req NotificationSettings
	if err := c.BodyParser(&req); err != nil {
		return httpx.BadRequest(c, "invalid_body", "Invalid request body")
	}

	userID := c.Locals("userID").(uint)
	if err := h.userRepo.UpdateNotificationPrefs(userID, req.AllowNotification, req.AllowSound, req.AllowVibration); err != nil {
		return httpx.Internal(c, "settings_update_failed")
	}
	return c.JSON(req)
}
