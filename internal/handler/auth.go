package handler

import (
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/csrf"
	"golang.org/x/crypto/bcrypt"

	"github.com/birdieclub/birdie/internal/auth"
	"github.com/birdieclub/birdie/internal/middleware"
	"github.com/birdieclub/birdie/internal/model"
	"github.com/birdieclub/birdie/internal/store"
)

const (
	msgUnknownUsername = "username does not exist"
	msgWrongPassword   = "wrong password"
)

type AuthHandler struct {
	admins        *store.AdminStore
	sessions      *store.SessionStore
	templates     *template.Template
	secureCookies bool
	logger        *slog.Logger
}

func NewAuthHandler(as *store.AdminStore, ss *store.SessionStore, tmpl *template.Template, secureCookies bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		admins:        as,
		sessions:      ss,
		templates:     tmpl,
		secureCookies: secureCookies,
		logger:        logger,
	}
}

// authenticate checks a username/password pair. On failure it returns the
// message to show and a nil admin; err is only set for storage failures.
func (h *AuthHandler) authenticate(username, password string) (*model.Admin, string, error) {
	admin, err := h.admins.GetByUsername(username)
	if err != nil {
		return nil, "", err
	}
	if admin == nil {
		return nil, msgUnknownUsername, nil
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		return nil, msgWrongPassword, nil
	}
	return admin, "", nil
}

func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, admin *model.Admin) error {
	sess, err := h.sessions.Create(admin.ID)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.secureCookies || r.TLS != nil,
	})
	h.logger.Info("admin signed in", "admin_id", admin.ID, "remote", middleware.RealIP(r))
	return nil
}

func (h *AuthHandler) endSession(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil && cookie.Value != "" {
		if sess, err := h.sessions.GetByToken(cookie.Value); err == nil && sess != nil {
			if err := h.sessions.Delete(sess.ID); err != nil {
				h.logger.Error("delete session", "error", err)
			}
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

// APILogin is the JSON login used by scripts and the original client.
func (h *AuthHandler) APILogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username text `json:"username"`
		Password text `json:"password"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	username := strings.TrimSpace(string(req.Username))
	if username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	admin, msg, err := h.authenticate(username, string(req.Password))
	if err != nil {
		h.logger.Error("login lookup", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "login failed"})
		return
	}
	if admin == nil {
		h.logger.Warn("login rejected", "username", username, "reason", msg, "remote", middleware.RealIP(r))
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": msg})
		return
	}

	if err := h.startSession(w, r, admin); err != nil {
		h.logger.Error("create session", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "login failed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": admin.ID, "username": admin.Username})
}

func (h *AuthHandler) APILogout(w http.ResponseWriter, r *http.Request) {
	h.endSession(w, r)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *AuthHandler) renderLogin(w http.ResponseWriter, r *http.Request, status int, username, errMsg string) {
	render(w, h.templates, h.logger, status, "login.html", map[string]any{
		"Title":     "로그인",
		"CSRFField": csrf.TemplateField(r),
		"Username":  username,
		"Error":     errMsg,
	})
}

// LoginPage shows the sign-in form, or skips it when the cookie is still valid.
func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil && cookie.Value != "" {
		if sess, err := h.sessions.GetByToken(cookie.Value); err == nil && sess != nil {
			http.Redirect(w, r, "/main", http.StatusSeeOther)
			return
		}
	}
	h.renderLogin(w, r, http.StatusOK, "", "")
}

// Login handles the HTML form post.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")
	if username == "" || password == "" {
		h.renderLogin(w, r, http.StatusBadRequest, username, "아이디와 비밀번호를 입력하세요.")
		return
	}

	admin, msg, err := h.authenticate(username, password)
	if err != nil {
		h.logger.Error("login lookup", "error", err)
		h.renderLogin(w, r, http.StatusInternalServerError, username, "로그인 중 오류가 발생했습니다.")
		return
	}
	if admin == nil {
		h.logger.Warn("login rejected", "username", username, "reason", msg, "remote", middleware.RealIP(r))
		display := "비밀번호가 틀렸습니다."
		if msg == msgUnknownUsername {
			display = "아이디가 존재하지 않습니다."
		}
		h.renderLogin(w, r, http.StatusUnauthorized, username, display)
		return
	}

	if err := h.startSession(w, r, admin); err != nil {
		h.logger.Error("create session", "error", err)
		h.renderLogin(w, r, http.StatusInternalServerError, username, "로그인 중 오류가 발생했습니다.")
		return
	}
	http.Redirect(w, r, "/main", http.StatusSeeOther)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.endSession(w, r)
	h.logger.Info("admin signed out", "admin_id", auth.AdminID(r.Context()))
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
