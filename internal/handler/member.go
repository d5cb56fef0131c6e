package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/birdieclub/birdie/internal/auth"
	"github.com/birdieclub/birdie/internal/model"
	"github.com/birdieclub/birdie/internal/store"
	"github.com/birdieclub/birdie/internal/websocket"
)

type MemberHandler struct {
	store  *store.MemberStore
	hub    *websocket.Hub
	logger *slog.Logger
}

func NewMemberHandler(s *store.MemberStore, hub *websocket.Hub, logger *slog.Logger) *MemberHandler {
	return &MemberHandler{store: s, hub: hub, logger: logger}
}

func (h *MemberHandler) broadcast(adminID int64, action string, id int64) {
	if h.hub != nil {
		h.hub.Broadcast(adminID, websocket.NewMessage("member", action, id, nil))
	}
}

type memberRequest struct {
	ID        number `json:"id"`
	Name      text   `json:"name"`
	Gender    text   `json:"gender"`
	Birth     text   `json:"birth"`
	Phone     text   `json:"phone"`
	Level     text   `json:"level"`
	Carnumber text   `json:"carnumber"`
	Note      text   `json:"note"`
}

func (req memberRequest) input() model.MemberInput {
	return model.MemberInput{
		Name:      strings.TrimSpace(string(req.Name)),
		Gender:    strings.TrimSpace(string(req.Gender)),
		Birth:     strings.TrimSpace(string(req.Birth)),
		Phone:     strings.TrimSpace(string(req.Phone)),
		Level:     strings.TrimSpace(string(req.Level)),
		Carnumber: strings.TrimSpace(string(req.Carnumber)),
		Note:      string(req.Note),
	}
}

type idRequest struct {
	ID number `json:"id"`
}

// List returns all of the admin's members, withdrawn ones included, newest
// first, each with its fee records.
func (h *MemberHandler) List(w http.ResponseWriter, r *http.Request) {
	members, err := h.store.ListByAdmin(auth.AdminID(r.Context()))
	if err != nil {
		h.logger.Error("list members", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list members")
		return
	}
	if members == nil {
		members = []model.Member{}
	}
	writeJSON(w, http.StatusOK, members)
}

func (h *MemberHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	in := req.input()
	if in.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	adminID := auth.AdminID(r.Context())
	member, err := h.store.Create(adminID, in)
	if err != nil {
		h.logger.Error("create member", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create member")
		return
	}

	h.logger.Info("member created", "member_id", member.ID, "admin_id", adminID)
	h.broadcast(adminID, "created", member.ID)
	writeJSON(w, http.StatusOK, member)
}

func (h *MemberHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if !req.ID.Set {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	in := req.input()
	if in.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	existing, ok := h.ownedMember(w, r, req.ID.Value)
	if !ok {
		return
	}

	member, err := h.store.Update(existing.ID, in)
	if err != nil {
		h.logger.Error("update member", "member_id", existing.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update member")
		return
	}
	if member == nil {
		writeError(w, http.StatusNotFound, "member not found")
		return
	}

	h.broadcast(existing.AdminID, "updated", member.ID)
	writeJSON(w, http.StatusOK, member)
}

// SoftDelete marks the member as withdrawn. Fees are kept.
func (h *MemberHandler) SoftDelete(w http.ResponseWriter, r *http.Request) {
	h.setDeleted(w, r, true)
}

// Restore brings a withdrawn member back to the active list.
func (h *MemberHandler) Restore(w http.ResponseWriter, r *http.Request) {
	h.setDeleted(w, r, false)
}

func (h *MemberHandler) setDeleted(w http.ResponseWriter, r *http.Request, deleted bool) {
	member, ok := h.memberFromBody(w, r)
	if !ok {
		return
	}

	if err := h.store.SetDeleted(member.ID, deleted); err != nil {
		h.logger.Error("set member deleted", "member_id", member.ID, "deleted", deleted, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update member")
		return
	}

	action := "restored"
	if deleted {
		action = "deleted"
	}
	h.logger.Info("member "+action, "member_id", member.ID)
	h.broadcast(member.AdminID, action, member.ID)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// DeletePermanent removes the member and all of its fee records.
func (h *MemberHandler) DeletePermanent(w http.ResponseWriter, r *http.Request) {
	member, ok := h.memberFromBody(w, r)
	if !ok {
		return
	}

	if err := h.store.Delete(member.ID); err != nil {
		h.logger.Error("delete member", "member_id", member.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete member")
		return
	}

	h.logger.Info("member purged", "member_id", member.ID)
	h.broadcast(member.AdminID, "purged", member.ID)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *MemberHandler) memberFromBody(w http.ResponseWriter, r *http.Request) (*model.Member, bool) {
	var req idRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return nil, false
	}
	if !req.ID.Set {
		writeError(w, http.StatusBadRequest, "id is required")
		return nil, false
	}
	return h.ownedMember(w, r, req.ID.Value)
}

// ownedMember loads id and checks it belongs to the signed-in admin. Members
// of other admins are reported as not found.
func (h *MemberHandler) ownedMember(w http.ResponseWriter, r *http.Request, id int64) (*model.Member, bool) {
	return lookupOwnedMember(w, r, h.store, h.logger, id)
}

func lookupOwnedMember(w http.ResponseWriter, r *http.Request, s *store.MemberStore, logger *slog.Logger, id int64) (*model.Member, bool) {
	member, err := s.GetByID(id)
	if err != nil {
		logger.Error("get member", "member_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get member")
		return nil, false
	}
	if member == nil || member.AdminID != auth.AdminID(r.Context()) {
		writeError(w, http.StatusNotFound, "member not found")
		return nil, false
	}
	return member, true
}
