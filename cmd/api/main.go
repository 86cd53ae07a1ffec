package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/shinyyama/swap-backend/internal/config"
	"github.com/shinyyama/swap-backend/internal/db"
	"github.com/shinyyama/swap-backend/internal/identity"
	appmw "github.com/shinyyama/swap-backend/internal/middleware"
	"github.com/shinyyama/swap-backend/internal/obs"
	"github.com/shinyyama/swap-backend/internal/presence"
	"github.com/shinyyama/swap-backend/internal/repository"
	"github.com/shinyyama/swap-backend/internal/repository/memory"
	"github.com/shinyyama/swap-backend/internal/server"
	"github.com/shinyyama/swap-backend/internal/service"
)

var (
	gitSHA    = "dev"
	buildTime = "unknown"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger := obs.NewLogger("dev")
		logger.Error("config load failed", "error", err)
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.Env)

	store, err := openStore(cfg)
	if err != nil {
		logger.Error("store init failed", "driver", cfg.Storage, "error", err)
		os.Exit(1)
	}

	var (
		auth      appmw.Authenticator
		directory identity.Directory
	)
	switch cfg.AuthMode {
	case config.AuthFirebase:
		authMw, err := appmw.NewAuthMiddleware(ctx, cfg.FirebaseProjectID, cfg.FirebaseCredentialsFile)
		if err != nil {
			logger.Error("failed to init firebase auth", "error", err)
			os.Exit(1)
		}
		auth = authMw
		directory = identity.NewFirebaseDirectory(authMw.Client())
	default:
		logger.Warn("header auth enabled; callers are trusted by " + appmw.UserIDHeader)
		auth = appmw.HeaderAuth{}
		directory = identity.OpenDirectory{}
	}

	registry := presence.NewRegistry(logger)
	core := service.NewCore(store, directory, registry, logger)
	convSvc := service.NewConversationService(core)
	msgSvc := service.NewMessageService(core)
	offerSvc := service.NewOfferService(core)

	allowOrigin := server.AllowOrigin(cfg.AllowedOriginSuffixes)
	hub := presence.NewHub(registry, msgSvc, logger,
		presence.WithSendBuffer(cfg.WSSendBuffer),
		presence.WithCheckOrigin(func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			ok, _ := allowOrigin(origin)
			return ok
		}),
	)

	srv := server.New(server.Deps{
		Conversations: convSvc,
		Messages:      msgSvc,
		Offers:        offerSvc,
		Directory:     directory,
		Hub:           hub,
		Auth:          auth,
		Logger:        logger,
	}, cfg.AllowedOriginSuffixes, gitSHA, buildTime)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(":" + cfg.Port)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", "error", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", "error", err)
		}
	}
}

func openStore(cfg *config.Config) (repository.Store, error) {
	if cfg.Storage == config.StorageMemory {
		return memory.NewStore(), nil
	}
	conn, err := db.Connect(cfg)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(conn); err != nil {
		return nil, err
	}
	return repository.NewStore(conn), nil
}
