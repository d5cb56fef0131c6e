package websocket

import (
	"log/slog"
	"net/http"

	ws "github.com/coder/websocket"

	"github.com/birdieclub/birdie/internal/auth"
)

// HandleWebSocket upgrades an authenticated request and streams that admin's
// change notifications until the browser disconnects. Cross-origin upgrades
// are refused.
func HandleWebSocket(hub *Hub, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		adminID := auth.AdminID(r.Context())
		if adminID == 0 {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		conn, err := ws.Accept(w, r, nil)
		if err != nil {
			logger.Warn("accept", "error", err)
			return
		}
		defer conn.CloseNow()

		NewClient(hub, conn, adminID).Run(r.Context())
	}
}
