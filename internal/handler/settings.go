package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/birdieclub/birdie/internal/auth"
	"github.com/birdieclub/birdie/internal/store"
	"github.com/birdieclub/birdie/internal/websocket"
)

const maxLabelLength = 40

type SettingsHandler struct {
	admins *store.AdminStore
	hub    *websocket.Hub
	logger *slog.Logger
}

func NewSettingsHandler(as *store.AdminStore, hub *websocket.Hub, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{admins: as, hub: hub, logger: logger}
}

func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	admin, err := h.admins.GetByID(auth.AdminID(r.Context()))
	if err != nil || admin == nil {
		h.logger.Error("get admin settings", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get settings")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"custom1Label": admin.Custom1Label})
}

// Update renames the carnumber column for this admin.
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Custom1Label text `json:"custom1Label"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	label := strings.TrimSpace(string(req.Custom1Label))
	if label == "" {
		writeError(w, http.StatusBadRequest, "custom1Label is required")
		return
	}
	if utf8.RuneCountInString(label) > maxLabelLength {
		writeError(w, http.StatusBadRequest, "custom1Label is too long")
		return
	}

	adminID := auth.AdminID(r.Context())
	admin, err := h.admins.UpdateCustom1Label(adminID, label)
	if err != nil || admin == nil {
		h.logger.Error("update custom1 label", "admin_id", adminID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update settings")
		return
	}

	if h.hub != nil {
		h.hub.Broadcast(adminID, websocket.NewMessage("settings", "updated", adminID, map[string]any{
			"custom1Label": admin.Custom1Label,
		}))
	}
	writeJSON(w, http.StatusOK, map[string]string{"custom1Label": admin.Custom1Label})
}
