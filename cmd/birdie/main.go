package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	"github.com/birdieclub/birdie/internal/config"
	"github.com/birdieclub/birdie/internal/database"
	"github.com/birdieclub/birdie/internal/logging"
	"github.com/birdieclub/birdie/internal/server"
	"github.com/birdieclub/birdie/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := seedAdmin(db, cfg, logger); err != nil {
		slog.Error("seed admin", "error", err)
		os.Exit(1)
	}

	srv, err := server.New(db, server.Config{
		CSRFKey:        cfg.CSRFKey,
		SecureCookies:  cfg.IsProduction(),
		SessionTTL:     cfg.SessionTTL,
		TrustedOrigins: cfg.TrustedOrigins,
	}, logger)
	if err != nil {
		slog.Error("build server", "error", err)
		os.Exit(1)
	}

	// Websocket connections outlive any fixed read or write deadline.
	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Background cleanup
	g.Go(func() error {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n, err := srv.SessionStore().DeleteExpired(); err != nil {
					slog.Error("cleanup expired sessions", "error", err)
				} else if n > 0 {
					slog.Info("cleaned up expired sessions", "count", n)
				}
				srv.RateLimiter().Cleanup()
			case <-ctx.Done():
				return nil
			}
		}
	})

	g.Go(func() error {
		slog.Info("birdie starting", "addr", httpServer.Addr, "env", cfg.Env)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

// seedAdmin creates the first admin from BIRDIE_ADMIN_USERNAME and
// BIRDIE_ADMIN_PASSWORD when the database has none.
func seedAdmin(db *sql.DB, cfg config.Config, logger *slog.Logger) error {
	if cfg.SeedUsername == "" || cfg.SeedPassword == "" {
		return nil
	}
	admins := store.NewAdminStore(db)
	n, err := admins.Count()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.SeedPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	admin, err := admins.Create(cfg.SeedUsername, string(hash), "")
	if err != nil {
		return err
	}
	logger.Info("seeded admin", "admin_id", admin.ID, "username", admin.Username)
	return nil
}
