package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"bookworm/internal/api"
	"bookworm/internal/config"
	"bookworm/internal/feed"
	"bookworm/internal/session"
	"bookworm/internal/storage"

	"github.com/joho/godotenv"
)

// app wires the collaborators every command needs: config, durable
// storage, the API client, and the session store.
type app struct {
	cfg     config.Config
	log     *slog.Logger
	storage *storage.Store
	client  *api.Client
	session *session.Store
}

func newApp(ctx context.Context, log *slog.Logger) (*app, error) {
	if err := godotenv.Load(); err != nil {
		log.InfoContext(ctx, "No .env file is loaded",
			"error", err)
	}

	cfg := config.LoadConfig()

	store, err := storage.New(ctx, cfg.DBPath, log)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	a := &app{cfg: cfg, log: log, storage: store}
	a.client = api.NewClient(
		cfg.APIBaseURL,
		time.Duration(cfg.HTTPTimeoutSeconds)*time.Second,
		a.token,
		log,
	)
	a.session = session.New(a.client, store, log)

	return a, nil
}

func (a *app) token() string {
	if a.session == nil {
		return ""
	}

	return a.session.Token()
}

func (a *app) newSynchronizer() *feed.Synchronizer {
	return feed.NewSynchronizer(a.client, a.cfg.PageSize, a.log)
}

func (a *app) Close(ctx context.Context) {
	if err := a.storage.Close(); err != nil {
		a.log.ErrorContext(ctx, "Failed to close storage",
			"error", err,
			"dbPath", a.cfg.DBPath)
	}
}
