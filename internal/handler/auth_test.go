package handler

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/birdieclub/birdie/internal/middleware"
	"github.com/birdieclub/birdie/web"
)

func (e *testEnv) authHandler(t *testing.T) *AuthHandler {
	t.Helper()
	tmpl, err := ParseTemplates(web.FS)
	if err != nil {
		t.Fatalf("parse templates: %v", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte("shuttle"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if err := e.admins.UpdatePassword(e.adminID, string(hash)); err != nil {
		t.Fatalf("set password: %v", err)
	}
	return NewAuthHandler(e.admins, e.sessions, tmpl, false, e.logger)
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.SessionCookieName {
			return c
		}
	}
	return nil
}

func TestAPILogin(t *testing.T) {
	env := setupHandlerTest(t)
	h := env.authHandler(t)

	rec := httptest.NewRecorder()
	h.APILogin(rec, jsonRequest("POST", "/api/login", `{"username":"coach","password":"shuttle"}`, 0))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (%s)", rec.Code, http.StatusOK, rec.Body.String())
	}
	body := decodeBody[map[string]any](t, rec)
	if body["username"] != "coach" {
		t.Errorf("username = %v, want coach", body["username"])
	}
	if _, ok := body["passwordHash"]; ok {
		t.Error("response must not carry the password hash")
	}

	cookie := sessionCookie(rec)
	if cookie == nil || cookie.Value == "" {
		t.Fatal("expected a session cookie")
	}
	if !cookie.HttpOnly {
		t.Error("session cookie should be HttpOnly")
	}
	sess, err := env.sessions.GetByToken(cookie.Value)
	if err != nil || sess == nil {
		t.Fatalf("session not stored: %v", err)
	}
	if sess.AdminID != env.adminID {
		t.Errorf("session admin = %d, want %d", sess.AdminID, env.adminID)
	}
}

func TestAPILoginRejected(t *testing.T) {
	env := setupHandlerTest(t)
	h := env.authHandler(t)

	tests := []struct {
		name    string
		body    string
		message string
	}{
		{"unknown username", `{"username":"nobody","password":"shuttle"}`, msgUnknownUsername},
		{"wrong password", `{"username":"coach","password":"racket"}`, msgWrongPassword},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.APILogin(rec, jsonRequest("POST", "/api/login", tt.body, 0))
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
			}
			if got := decodeBody[map[string]string](t, rec); got["message"] != tt.message {
				t.Errorf("message = %q, want %q", got["message"], tt.message)
			}
			if sessionCookie(rec) != nil {
				t.Error("no cookie expected on failure")
			}
		})
	}

	rec := httptest.NewRecorder()
	h.APILogin(rec, jsonRequest("POST", "/api/login", `{"username":"coach"}`, 0))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing password status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func formRequest(path string, form url.Values) *http.Request {
	req := httptest.NewRequest("POST", path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestFormLogin(t *testing.T) {
	env := setupHandlerTest(t)
	h := env.authHandler(t)

	rec := httptest.NewRecorder()
	h.Login(rec, formRequest("/login", url.Values{"username": {"coach"}, "password": {"shuttle"}}))
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusSeeOther)
	}
	if loc := rec.Header().Get("Location"); loc != "/main" {
		t.Errorf("Location = %q, want /main", loc)
	}
	if sessionCookie(rec) == nil {
		t.Error("expected a session cookie")
	}

	rec = httptest.NewRecorder()
	h.Login(rec, formRequest("/login", url.Values{"username": {"coach"}, "password": {"racket"}}))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	if !strings.Contains(rec.Body.String(), "비밀번호가 틀렸습니다.") {
		t.Error("expected the wrong-password message in the page")
	}
	if !strings.Contains(rec.Body.String(), `value="coach"`) {
		t.Error("expected the username to be kept in the form")
	}
}

func TestLoginPageRedirectsWithSession(t *testing.T) {
	env := setupHandlerTest(t)
	h := env.authHandler(t)

	rec := httptest.NewRecorder()
	h.LoginPage(rec, httptest.NewRequest("GET", "/login", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	sess, _ := env.sessions.Create(env.adminID)
	req := httptest.NewRequest("GET", "/login", nil)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: sess.Token})
	rec = httptest.NewRecorder()
	h.LoginPage(rec, req)
	if rec.Code != http.StatusSeeOther {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusSeeOther)
	}
}

func TestLogoutDeletesSession(t *testing.T) {
	env := setupHandlerTest(t)
	h := env.authHandler(t)
	sess, _ := env.sessions.Create(env.adminID)

	req := jsonRequest("POST", "/api/logout", "", env.adminID)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: sess.Token})
	rec := httptest.NewRecorder()
	h.APILogout(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got, _ := env.sessions.GetByToken(sess.Token); got != nil {
		t.Error("expected session to be deleted")
	}
	if c := sessionCookie(rec); c == nil || c.MaxAge >= 0 {
		t.Error("expected the cookie to be cleared")
	}
}
