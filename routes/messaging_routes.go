package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/anjiri1684/matchchat/handlers"
	"github.com/anjiri1684/matchchat/middleware"
	"github.com/anjiri1684/matchchat/websocket"
)

// MessagingRoutes mounts the REST chat surface and the websocket endpoint.
// Static segments are registered before the :userId catch-all.
func MessagingRoutes(app *fiber.App, h *handlers.MessagingHandler, n *handlers.NotificationHandler, ws websocket.Dependencies, secret string) {
	api := app.Group("/api/v1")

	messages := api.Group("/messages", middleware.Protected(secret))
	messages.Get("/conversations", h.GetConversations)
	messages.Get("/unread-count", h.GetUnreadCount)
	messages.Get("/:userId", h.GetChatHistory)
	messages.Post("/:userId", h.SendMessage)
	messages.Put("/:messageId/read", h.MarkAsRead)
	messages.Put("/:userId/read-all", h.MarkAllAsRead)
	messages.Delete("/:userId", h.DeleteConversation)

	notifications := api.Group("/notifications", middleware.Protected(secret))
	notifications.Post("/fcm-token", n.UpdateFCMToken)
	notifications.Delete("/fcm-token", n.RemoveFCMToken)
	notifications.Put("/toggle", n.ToggleNotifications)
	notifications.Post("/test", n.TestNotification)

	api.Use("/ws", handlers.UpgradeRequired)
	api.Get("/ws", handlers.ServeWs(ws))
}
