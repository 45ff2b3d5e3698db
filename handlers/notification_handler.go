package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/anjiri1684/matchchat/errors"
	"github.com/anjiri1684/matchchat/middleware"
	"github.com/anjiri1684/matchchat/notifications"
	"github.com/anjiri1684/matchchat/repositories"
)

type NotificationHandler struct {
	users    repositories.UserRepository
	notifier notifications.Notifier
	appName  string
}

func NewNotificationHandler(users repositories.UserRepository, notifier notifications.Notifier, appName string) *NotificationHandler {
	return &NotificationHandler{users: users, notifier: notifier, appName: appName}
}

type FCMTokenRequest struct {
	FCMToken string `json:"fcm_token" validate:"required"`
}

type ToggleNotificationsRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

func (h *NotificationHandler) UpdateFCMToken(c *fiber.Ctx) error {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		return err
	}
	var req FCMTokenRequest
	if err = parse(c, &req); err != nil {
		return err
	}
	if err = h.users.UpdateFCMToken(c.UserContext(), userID, &req.FCMToken); err != nil {
		return err
	}
	return ok(c, fiber.Map{"message": "FCM token updated"})
}

// RemoveFCMToken is called on logout so the device stops receiving pushes.
func (h *NotificationHandler) RemoveFCMToken(c *fiber.Ctx) error {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		return err
	}
	if err = h.users.UpdateFCMToken(c.UserContext(), userID, nil); err != nil {
		return err
	}
	return ok(c, fiber.Map{"message": "FCM token removed"})
}

func (h *NotificationHandler) ToggleNotifications(c *fiber.Ctx) error {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		return err
	}
	var req ToggleNotificationsRequest
	if err = parse(c, &req); err != nil {
		return err
	}
	if err = h.users.SetNotificationsEnabled(c.UserContext(), userID, *req.Enabled); err != nil {
		return err
	}
	return ok(c, fiber.Map{"notifications_enabled": *req.Enabled})
}

// TestNotification sends a push to the caller synchronously, for checking a
// device setup.
func (h *NotificationHandler) TestNotification(c *fiber.Ctx) error {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		return err
	}
	if err = h.notifier.NotifyNewMessage(c.UserContext(), userID, h.appName, "This is a test notification"); err != nil {
		return err
	}
	return ok(c, fiber.Map{"message": "Test notification sent"})
}

func parse(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return fmt.Errorf("%w: cannot parse JSON", apperrors.ErrValidation)
	}
	if err := validate.Struct(out); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}
	return nil
}
