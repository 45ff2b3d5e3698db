package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	apperrors "github.com/anjiri1684/matchchat/errors"
	"github.com/anjiri1684/matchchat/middleware"
	"github.com/anjiri1684/matchchat/services"
	"github.com/anjiri1684/matchchat/utils"
)

type MessagingHandler struct {
	chat         *services.ChatService
	defaultLimit int
	maxLimit     int
}

func NewMessagingHandler(chat *services.ChatService, defaultLimit, maxLimit int) *MessagingHandler {
	return &MessagingHandler{chat: chat, defaultLimit: defaultLimit, maxLimit: maxLimit}
}

type SendMessageRequest struct {
	Content string `json:"content" validate:"required"`
}

func (h *MessagingHandler) GetConversations(c *fiber.Ctx) error {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		return err
	}
	conversations, err := h.chat.GetConversations(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return ok(c, conversations)
}

func (h *MessagingHandler) GetUnreadCount(c *fiber.Ctx) error {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		return err
	}
	var senderID *uuid.UUID
	if raw := c.Query("senderId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return fmt.Errorf("%w: invalid senderId", apperrors.ErrValidation)
		}
		senderID = &id
	}
	count, err := h.chat.GetUnreadCount(c.UserContext(), userID, senderID)
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{"unread_count": count})
}

func (h *MessagingHandler) GetChatHistory(c *fiber.Ctx) error {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		return err
	}
	otherID, err := uuidParam(c, "userId")
	if err != nil {
		return err
	}
	page, limit := utils.PageParams(c.Query("page"), c.Query("limit"), h.defaultLimit, h.maxLimit)
	history, err := h.chat.GetChatHistory(c.UserContext(), userID, otherID, page, limit)
	if err != nil {
		return err
	}
	return ok(c, history)
}

func (h *MessagingHandler) SendMessage(c *fiber.Ctx) error {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		return err
	}
	receiverID, err := uuidParam(c, "userId")
	if err != nil {
		return err
	}
	var req SendMessageRequest
	if err = c.BodyParser(&req); err != nil {
		return fmt.Errorf("%w: cannot parse JSON", apperrors.ErrValidation)
	}
	if err = validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}
	message, err := h.chat.SendMessage(c.UserContext(), userID, receiverID, req.Content)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": message})
}

func (h *MessagingHandler) MarkAsRead(c *fiber.Ctx) error {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		return err
	}
	messageID, err := uuidParam(c, "messageId")
	if err != nil {
		return err
	}
	message, err := h.chat.MarkAsRead(c.UserContext(), messageID, userID)
	if err != nil {
		return err
	}
	return ok(c, message)
}

func (h *MessagingHandler) MarkAllAsRead(c *fiber.Ctx) error {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		return err
	}
	senderID, err := uuidParam(c, "userId")
	if err != nil {
		return err
	}
	count, err := h.chat.MarkAllAsRead(c.UserContext(), senderID, userID)
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{"updated": count})
}

func (h *MessagingHandler) DeleteConversation(c *fiber.Ctx) error {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		return err
	}
	otherID, err := uuidParam(c, "userId")
	if err != nil {
		return err
	}
	deleted, err := h.chat.DeleteConversation(c.UserContext(), userID, otherID)
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{"deleted": deleted})
}

func uuidParam(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid %s", apperrors.ErrValidation, name)
	}
	return id, nil
}
