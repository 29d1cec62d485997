package handlers

import (
	"log/slog"
	"net/http"

	"github.com/Dosada05/league-registration/progress"
	"github.com/gorilla/websocket"
)

type WebSocketHandler struct {
	hub      *progress.Hub
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewWebSocketHandler accepts upgrades from any origin when allowedOrigins is
// empty; otherwise the Origin header must match one entry exactly.
func NewWebSocketHandler(hub *progress.Hub, allowedOrigins []string, logger *slog.Logger) *WebSocketHandler {
	if logger == nil {
		logger = slog.Default()
	}
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &WebSocketHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if len(allowed) == 0 {
					return true
				}
				return allowed[r.Header.Get("Origin")]
			},
		},
		logger: logger,
	}
}

// ServeMigrations subscribes the caller to the migrations progress room.
func (h *WebSocketHandler) ServeMigrations(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.logger.WarnContext(r.Context(), "websocket upgrade failed", slog.Any("error", err))
		return
	}

	client := progress.NewClient(h.hub, conn, progress.RoomMigrations)
	if !h.hub.Register(client) {
		_ = conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()

	h.logger.InfoContext(r.Context(), "progress client connected", slog.String("room", progress.RoomMigrations))
}
