package websocket

import (
	"encoding/json"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const FrameTypeConnected = "connected"

const sendBuffer = 256

// ServeWs greets the peer, registers it with the hub and blocks until the connection closes.
func ServeWs(hub *Hub, c *websocket.Conn, userID uuid.UUID) {
	client := &Client{Hub: hub, Conn: c, UserID: userID, Send: make(chan []byte, sendBuffer)}

	if hello, err := json.Marshal(Frame{
		Type: FrameTypeConnected,
		Data: map[string]interface{}{"user_id": userID.String(), "server_time": time.Now().UTC()},
	}); err == nil {
		client.Send <- hello
	}

	hub.register <- client

	go client.writePump()
	client.readPump()
}
