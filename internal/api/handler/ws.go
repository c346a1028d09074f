package handler

import (
	"net/http"

	"campusvoice/backend/internal/apperr"
	"campusvoice/backend/internal/notifyhub"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browsers cannot set headers on a websocket handshake; the token in the
	// query string is the credential, so the origin is not checked.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWebSocket оновлює HTTP-з'єднання до WebSocket для живих сповіщень.
// The token comes from ?token= or, for non-browser clients, the Authorization header.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	raw := c.Query("token")
	if raw == "" {
		if authHeader := c.GetHeader("Authorization"); len(authHeader) > 7 && authHeader[:7] == "Bearer " {
			raw = authHeader[7:]
		}
	}
	if raw == "" {
		h.fail(c, apperr.Unauthorized("authorization token missing"))
		return
	}
	user, err := h.authenticate(c, raw)
	if err != nil {
		h.fail(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		return
	}

	client := notifyhub.NewWebSocketClient(user.ID, conn, h.Hub)
	if !h.Hub.Register(client) {
		conn.Close()
		return
	}
	client.Run()
}
