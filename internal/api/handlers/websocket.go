package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/playoff-sim/internal/services"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin filtering happens in the CORS layer; the socket itself only
		// ever pushes progress updates.
		return true
	},
}

type WebSocketHandler struct {
	hub    *services.ProgressHub
	logger *logrus.Logger
}

func NewWebSocketHandler(hub *services.ProgressHub, logger *logrus.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:    hub,
		logger: logger,
	}
}

// HandleWebSocket upgrades the connection and subscribes it to simulation
// progress updates.
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Errorf("Failed to upgrade connection: %v", err)
		return
	}

	client := h.hub.Register(conn)

	welcome := map[string]interface{}{
		"type":      "welcome",
		"timestamp": time.Now().UTC(),
	}
	if err := conn.WriteJSON(welcome); err != nil {
		h.logger.Errorf("Failed to send welcome message: %v", err)
		h.hub.Unregister(client)
		return
	}

	// Drain reads so pings and close frames are processed; the hub only
	// pushes, it never expects client messages.
	go func() {
		defer h.hub.Unregister(client)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
