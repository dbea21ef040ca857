package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/arashthr/shelfmark/internal/ai"
	"github.com/arashthr/shelfmark/internal/config"
	"github.com/arashthr/shelfmark/internal/db"
	"github.com/arashthr/shelfmark/internal/logging"
	"github.com/arashthr/shelfmark/internal/models"
	"github.com/arashthr/shelfmark/internal/pipeline"
	"github.com/arashthr/shelfmark/internal/ratelimit"
	"github.com/arashthr/shelfmark/internal/service"
	"github.com/arashthr/shelfmark/internal/storage"
)

func main() {
	cfg, err := config.LoadEnvConfig()
	if err != nil {
		panic(err)
	}

	logging.Init(cfg)
	defer logging.Sync()

	err = run(cfg)
	if err != nil {
		logging.Logger.Fatalw("server stopped", "error", err)
	}
}

type stores struct {
	folders   service.FolderStore
	bookmarks service.BookmarkStore
	close     func()
}

func setupStores(ctx context.Context, cfg *config.AppConfig) (*stores, error) {
	switch cfg.Storage.Driver {
	case config.StorageDriverPostgres:
		err := db.Migrate(cfg.PSQL.PgConnectionString())
		if err != nil {
			return nil, fmt.Errorf("migrating postgres: %w", err)
		}
		pool, err := db.Open(ctx, cfg.PSQL)
		if err != nil {
			return nil, fmt.Errorf("connecting to db: %w", err)
		}
		return &stores{
			folders:   &models.FolderModel{Pool: pool},
			bookmarks: &models.BookmarkModel{Pool: pool},
			close:     pool.Close,
		}, nil
	default:
		s, err := storage.Open(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		return &stores{
			folders:   s.Folders,
			bookmarks: s.Bookmarks,
			close:     func() { s.Close() },
		}, nil
	}
}

func run(cfg *config.AppConfig) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := setupStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.close()
	logging.Logger.Infow("storage ready", "driver", cfg.Storage.Driver)

	aiClient, err := ai.NewClient(ctx, cfg.AI)
	if err != nil {
		return fmt.Errorf("creating %s client: %w", cfg.AI.Provider, err)
	}

	bookmarks := &service.Bookmarks{
		Folders:   st.folders,
		Bookmarks: st.bookmarks,
		Pipeline:  pipeline.New(cfg.Pipeline, aiClient),
	}
	api := &service.Api{
		Service:   bookmarks,
		Folders:   st.folders,
		Bookmarks: st.bookmarks,
	}

	limiter := ratelimit.NewRateLimiter(cfg.RateLimit.PerMinute, time.Minute)
	defer limiter.Stop()

	server := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           service.NewRouter(api, limiter),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Logger.Infow("starting server", "address", cfg.Server.Address, "ai_provider", cfg.AI.Provider)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logging.Logger.Infow("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
