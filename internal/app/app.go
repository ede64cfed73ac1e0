// Package app builds the object graph shared by the server and the CLI commands.
package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/pysugar/drivesweep/internal/api"
	"github.com/pysugar/drivesweep/internal/auth/google"
	"github.com/pysugar/drivesweep/internal/auth/token"
	"github.com/pysugar/drivesweep/internal/bulk"
	"github.com/pysugar/drivesweep/internal/cache"
	"github.com/pysugar/drivesweep/internal/cleanup"
	"github.com/pysugar/drivesweep/internal/config"
	"github.com/pysugar/drivesweep/internal/db"
	"github.com/pysugar/drivesweep/internal/drive"
	"gorm.io/gorm"
)

// App holds the wired components. Close releases the database and cache connections.
type App struct {
	Config  *config.Config
	DB      *gorm.DB
	Store   *db.Store
	Cache   cache.Cache
	Tokens  *token.Manager
	Service *cleanup.Service
	Auth    *google.Authenticator
}

// New opens the database and cache and wires every component.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	database, err := db.InitDB(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	store := db.NewStore(database)

	c, err := cache.New(ctx, cfg.Redis)
	if err != nil {
		closeDB(database)
		return nil, fmt.Errorf("failed to initialize cache: %w", err)
	}

	oauthConfig := google.NewOAuthConfig(cfg.Google)
	tokens := token.NewManager(store, token.NewOAuthRefresher(oauthConfig))

	svc := cleanup.NewService(cleanup.Deps{
		Store:    store,
		Creds:    tokens,
		Sources:  drive.NewGoogleFactory(),
		Executor: bulk.NewExecutor(store, bulk.Options{Concurrency: cfg.Bulk.Concurrency, CallTimeout: cfg.Bulk.CallTimeout}),
		Cache:    c,
		Config:   cfg.Cleanup,
	})

	auth := google.NewAuthenticator(oauthConfig, store, google.NewStateSigner(cfg.Session.Secret, 0), cfg)

	return &App{
		Config:  cfg,
		DB:      database,
		Store:   store,
		Cache:   c,
		Tokens:  tokens,
		Service: svc,
		Auth:    auth,
	}, nil
}

// Handler returns the HTTP router.
func (a *App) Handler() http.Handler {
	return api.NewRouter(api.Deps{Service: a.Service, Sessions: a.Store, Auth: a.Auth})
}

// Close releases connections.
func (a *App) Close() error {
	if r, ok := a.Cache.(*cache.Redis); ok {
		r.Close()
	}
	return closeDB(a.DB)
}

func closeDB(database *gorm.DB) error {
	sqlDB, err := database.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
