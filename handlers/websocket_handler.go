package handlers

import (
	"context"

	websocketcontrib "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/anjiri1684/matchchat/websocket"
)

// UpgradeRequired lets only websocket upgrade requests through.
func UpgradeRequired(c *fiber.Ctx) error {
	if !websocketcontrib.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	return c.Next()
}

// ServeWs runs one chat session per upgraded connection.
func ServeWs(deps websocket.Dependencies) fiber.Handler {
	return websocketcontrib.New(func(c *websocketcontrib.Conn) {
		websocket.NewSession(c, deps).Serve(context.Background())
	})
}
