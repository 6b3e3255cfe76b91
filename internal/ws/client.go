package ws

import (
	"github.com/gofiber/websocket/v2"
)

type Client struct {
	hub  *Hub
	conn *websocket.Conn
	// session filters events; empty receives everything
	session string
	send    chan []byte
}

func (c *Client) wants(e Event) bool {
	return c.session == "" || e.SessionID == "" || e.SessionID == c.session
}

func (c *Client) ReadPump() {
	defer func() {
		c.hub.leave(c)
		_ = c.conn.Close()
	}()

	for {
		_, _, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
	}
}

func (c *Client) WritePump() {
	defer func() {
		_ = c.conn.Close()
	}()

	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
}
