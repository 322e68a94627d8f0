package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	gws "github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/solsight/paygate/internal/domain"
	"github.com/solsight/paygate/internal/server/websocket"
)

// SessionStatusHandler upgrades front-end connections that want session
// transitions pushed instead of polling the check endpoint per chat message.
type SessionStatusHandler struct {
	logger zerolog.Logger
	wsHub  *websocket.WsHub
}

func NewSessionStatusHandler(wsHub *websocket.WsHub, logger zerolog.Logger) *SessionStatusHandler {
	return &SessionStatusHandler{
		logger: logger,
		wsHub:  wsHub,
	}
}

var upgrader = gws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func (h *SessionStatusHandler) HandleWebSocket(c *gin.Context) {
	subjectID := c.Query("subject_id")
	if subjectID == "" {
		c.JSON(http.StatusBadRequest, domain.ApiResponse{
			Message: "subject_id query parameter is required",
			Success: false,
			Status:  http.StatusBadRequest,
		})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Err(err).
			Str("subject_id", subjectID).
			Msg("Failed to upgrade to WebSocket")
		return
	}

	client := &websocket.WsClient{
		SubjectID: subjectID,
		Conn:      conn,
	}
	h.wsHub.Register <- client
	h.logger.Info().
		Str("subject_id", subjectID).
		Msg("WebSocket client registration sent")

	go func() {
		defer func() {
			h.wsHub.Unregister <- client
		}()

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}
