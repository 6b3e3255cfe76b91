package ws

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// Handler upgrades the connection and streams hub events. The optional
// ?session= query parameter restricts the stream to one session.
func Handler(hub *Hub) fiber.Handler {
	return websocket.New(func(c *websocket.Conn) {
		client := &Client{
			hub:     hub,
			conn:    c,
			session: c.Query("session"),
			send:    make(chan []byte, 256),
		}

		if !hub.join(client) {
			_ = c.Close()
			return
		}

		go client.WritePump()
		client.ReadPump()
	})
}

func UpgradeMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}
}
