package server

import (
	"database/sql"
	"encoding/json"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/birdieclub/birdie/internal/database"
	"github.com/birdieclub/birdie/internal/handler"
	"github.com/birdieclub/birdie/internal/middleware"
	"github.com/birdieclub/birdie/internal/store"
	ws "github.com/birdieclub/birdie/internal/websocket"
	"github.com/birdieclub/birdie/web"
)

// Config holds the settings the HTTP layer needs from the process config.
type Config struct {
	CSRFKey        []byte
	SecureCookies  bool
	SessionTTL     time.Duration
	TrustedOrigins []string
}

type Server struct {
	db              *sql.DB
	cfg             Config
	hub             *ws.Hub
	memberH         *handler.MemberHandler
	feeH            *handler.FeeHandler
	settingsH       *handler.SettingsHandler
	authH           *handler.AuthHandler
	templateHandler *handler.TemplateHandler
	adminStore      *store.AdminStore
	sessionStore    *store.SessionStore
	rateLimiter     *middleware.RateLimiter
	staticFS        fs.FS
	logger          *slog.Logger
}

func New(db *sql.DB, cfg Config, logger *slog.Logger) (*Server, error) {
	tmpl, err := handler.ParseTemplates(web.FS)
	if err != nil {
		return nil, err
	}
	staticFS, err := fs.Sub(web.FS, "static")
	if err != nil {
		return nil, err
	}
	return newServer(db, cfg, tmpl, staticFS, logger), nil
}

func newServer(db *sql.DB, cfg Config, tmpl *template.Template, staticFS fs.FS, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	adminStore := store.NewAdminStore(db)
	memberStore := store.NewMemberStore(db)
	feeStore := store.NewFeeStore(db)
	sessionStore := store.NewSessionStore(db, cfg.SessionTTL)

	return &Server{
		db:              db,
		cfg:             cfg,
		hub:             hub,
		memberH:         handler.NewMemberHandler(memberStore, hub, logger.With("component", "member")),
		feeH:            handler.NewFeeHandler(feeStore, memberStore, hub, logger.With("component", "fee")),
		settingsH:       handler.NewSettingsHandler(adminStore, hub, logger.With("component", "settings")),
		authH:           handler.NewAuthHandler(adminStore, sessionStore, tmpl, cfg.SecureCookies, logger.With("component", "auth")),
		templateHandler: handler.NewTemplateHandler(adminStore, memberStore, tmpl, logger.With("component", "template")),
		adminStore:      adminStore,
		sessionStore:    sessionStore,
		rateLimiter:     middleware.NewRateLimiter(),
		staticFS:        staticFS,
		logger:          logger,
	}
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// Hub returns the websocket hub.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("GET /{$}", s.templateHandler.Home)
	outerMux.HandleFunc("GET /login", s.authH.LoginPage)
	outerMux.HandleFunc("POST /login", s.rateLimitedHandler(s.authH.Login))
	outerMux.HandleFunc("POST /api/login", s.rateLimitedHandler(s.authH.APILogin))
	outerMux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(s.staticFS)))
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Protected routes, wrapped with RequireAuth
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.sessionStore, s.adminStore)
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.Chain(outerMux,
		middleware.CSRF(s.cfg.CSRFKey, s.cfg.SecureCookies, s.cfg.TrustedOrigins),
		middleware.SecurityHeaders,
		middleware.RequestLogger(s.logger.With("component", "http")),
	)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	body := map[string]any{"status": "ok"}

	if v, err := database.Version(s.db); err != nil {
		s.logger.Error("health check", "error", err)
		status = http.StatusServiceUnavailable
		body["status"] = "unavailable"
	} else {
		body["schema"] = v
		body["clients"] = s.hub.ClientCount()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /logout", s.authH.Logout)
	mux.HandleFunc("POST /api/logout", s.authH.APILogout)

	// Members
	mux.HandleFunc("GET /api/members", s.memberH.List)
	mux.HandleFunc("POST /api/members", s.memberH.Create)
	mux.HandleFunc("PUT /api/members", s.memberH.Update)
	mux.HandleFunc("DELETE /api/members", s.memberH.SoftDelete)
	mux.HandleFunc("PATCH /api/members", s.memberH.Restore)
	mux.HandleFunc("DELETE /api/members/permanent", s.memberH.DeletePermanent)

	// Fees
	mux.HandleFunc("POST /api/fees", s.feeH.Upsert)
	mux.HandleFunc("POST /api/fees/pay-all", s.feeH.PayAll)
	mux.HandleFunc("GET /api/fees/summary", s.feeH.Summary)

	// Settings
	mux.HandleFunc("GET /api/settings", s.settingsH.Get)
	mux.HandleFunc("PUT /api/settings", s.settingsH.Update)

	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.logger.With("component", "websocket")))

	mux.HandleFunc("GET /main", s.templateHandler.Main)
}
