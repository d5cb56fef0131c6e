package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/birdieclub/birdie/internal/auth"
	"github.com/birdieclub/birdie/internal/store"
)

// SessionCookieName is the cookie carrying the session token.
const SessionCookieName = "birdie_session"

// RequireAuth validates the session cookie and populates AuthContext.
// API and websocket requests get a 401 JSON body; pages are redirected to /login.
func RequireAuth(sessionStore *store.SessionStore, adminStore *store.AdminStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				unauthorized(w, r)
				return
			}

			sess, err := sessionStore.GetByToken(cookie.Value)
			if err != nil || sess == nil {
				unauthorized(w, r)
				return
			}

			admin, err := adminStore.GetByID(sess.AdminID)
			if err != nil || admin == nil {
				unauthorized(w, r)
				return
			}

			ac := auth.AuthContext{
				AdminID:   admin.ID,
				Username:  admin.Username,
				SessionID: sess.ID,
			}

			ctx := auth.WithAuth(r.Context(), ac)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func isAPIRequest(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/") || r.URL.Path == "/ws"
}

func unauthorized(w http.ResponseWriter, r *http.Request) {
	if isAPIRequest(r) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"error": "authentication required"})
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
