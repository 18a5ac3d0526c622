package handlers

import (
	"net/http"
	"time"

	"github.com/SAP-F-2025/answer-engine/internal/services"
	"github.com/SAP-F-2025/answer-engine/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	streamBuffer     = 16
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = (streamPongWait * 9) / 10
)

// StreamHandler pushes session snapshots over a websocket as they change:
// every countdown tick, selection, re-resolution and submission result.
type StreamHandler struct {
	BaseHandler
	sessions *services.SessionManager
	upgrader websocket.Upgrader
}

func NewStreamHandler(sessions *services.SessionManager, logger utils.Logger, allowedOrigins []string) *StreamHandler {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
	if len(allowedOrigins) > 0 {
		upgrader.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if allowed == "*" || allowed == origin {
					return true
				}
			}
			return false
		}
	}

	return &StreamHandler{
		BaseHandler: NewBaseHandler(logger),
		sessions:    sessions,
		upgrader:    upgrader,
	}
}

// StreamSession upgrades to a websocket and streams snapshots until the
// client goes away or the session closes
// @Summary Stream session updates
// @Tags sessions
// @Param id path string true "Session ID"
// @Router /sessions/{id}/stream [get]
func (h *StreamHandler) StreamSession(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	session, err := h.sessions.Get(id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		h.LogWarn(c, "Websocket upgrade failed", "session_id", id, "error", err)
		return
	}
	defer conn.Close()

	updates := make(chan services.Snapshot, streamBuffer)
	unwatch, err := session.Watch(c.Request.Context(), func(snapshot services.Snapshot) {
		select {
		case updates <- snapshot:
		default:
			// slow client: drop the oldest pending update
			select {
			case <-updates:
			default:
			}
			select {
			case updates <- snapshot:
			default:
			}
		}
	})
	if err != nil {
		// closed between lookup and upgrade
		h.LogInfo(c, "Session gone before streaming", "session_id", id, "error", err)
		closeStream(conn, "session closed")
		return
	}
	defer unwatch()

	h.LogInfo(c, "Streaming session", "session_id", id)

	gone := make(chan struct{})
	go h.readPump(conn, gone)
	h.writePump(conn, updates, gone)
}

// readPump discards client frames and keeps the pong deadline fresh.
func (h *StreamHandler) readPump(conn *websocket.Conn, gone chan<- struct{}) {
	defer close(gone)

	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(streamPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *StreamHandler) writePump(conn *websocket.Conn, updates <-chan services.Snapshot, gone <-chan struct{}) {
	ticker := time.NewTicker(streamPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case snapshot := <-updates:
			conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteJSON(snapshot); err != nil {
				return
			}
			if snapshot.Closed {
				closeStream(conn, "session closed")
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-gone:
			return
		}
	}
}

func closeStream(conn *websocket.Conn, reason string) {
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason),
		time.Now().Add(streamWriteWait))
}
