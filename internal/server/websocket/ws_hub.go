package websocket

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/solsight/paygate/internal/domain"
)

const defaultWriteTimeout = 10 * time.Second

// WsHub fans session status transitions out to the front-end connections
// subscribed per subject. Broadcasts never block: a connection that cannot be
// written within WriteTimeout is dropped, and a congested queue sheds updates
// instead of stalling the sender.
type WsHub struct {
	Clients      map[string]map[*websocket.Conn]bool
	Broadcast    chan WsMessage
	Register     chan *WsClient
	Unregister   chan *WsClient
	WriteTimeout time.Duration
	Logger       zerolog.Logger
}

type WsClient struct {
	SubjectID string
	Conn      *websocket.Conn
}

type WsMessage struct {
	Type    string              `json:"type"`
	Session *domain.SessionView `json:"session,omitempty"`
}

func NewWsHub(logger zerolog.Logger) *WsHub {
	return &WsHub{
		Clients:      make(map[string]map[*websocket.Conn]bool),
		Broadcast:    make(chan WsMessage, 100),
		Register:     make(chan *WsClient, 100),
		Unregister:   make(chan *WsClient, 100),
		WriteTimeout: defaultWriteTimeout,
		Logger:       logger,
	}
}

func (h *WsHub) Run() {
	for {
		select {
		case client := <-h.Register:
			if h.Clients[client.SubjectID] == nil {
				h.Clients[client.SubjectID] = make(map[*websocket.Conn]bool)
			}
			h.Clients[client.SubjectID][client.Conn] = true
			h.Logger.Info().
				Str("subject_id", client.SubjectID).
				Int("connection_count", len(h.Clients[client.SubjectID])).
				Msg("WebSocket client registered")

		case client := <-h.Unregister:
			if clients, ok := h.Clients[client.SubjectID]; ok {
				delete(clients, client.Conn)
				if len(clients) == 0 {
					delete(h.Clients, client.SubjectID)
				}
				client.Conn.Close()
				h.Logger.Info().
					Str("subject_id", client.SubjectID).
					Int("connection_count", len(clients)).
					Msg("WebSocket client unregistered")
			}

		case message := <-h.Broadcast:
			if message.Session == nil {
				continue
			}
			subjectID := message.Session.SubjectID

			clients, ok := h.Clients[subjectID]
			if !ok {
				h.Logger.Debug().
					Str("subject_id", subjectID).
					Str("session_id", message.Session.SessionID).
					Msg("No clients connected for session update")
				continue
			}

			for conn := range clients {
				// A stalled peer must not park the hub loop; the deadline
				// turns a full send buffer into a write error.
				conn.SetWriteDeadline(time.Now().Add(h.WriteTimeout))
				if err := conn.WriteJSON(message); err != nil {
					h.Logger.Err(err).
						Str("subject_id", subjectID).
						Str("session_id", message.Session.SessionID).
						Msg("Failed to send WebSocket message, dropping connection")
					conn.Close()
					delete(clients, conn)
				}
			}
			if len(clients) == 0 {
				delete(h.Clients, subjectID)
			}
		}
	}
}

// BroadcastSession implements interfaces.StatusBroadcaster. Status pushes are
// advisory; when the queue is congested the update is shed rather than making
// payment processing wait on it.
func (h *WsHub) BroadcastSession(view domain.SessionView) {
	message := WsMessage{
		Type:    "session_status",
		Session: &view,
	}
	select {
	case h.Broadcast <- message:
	default:
		h.Logger.Warn().
			Str("session_id", view.SessionID).
			Str("subject_id", view.SubjectID).
			Msg("Broadcast queue full, dropping session update")
	}
}
