// Package app initializes and runs the shortener.
// It configures logging, storage, authentication and routing,
// and handles graceful shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/patric-chuzhbe/adshrt/internal/auth"
	"github.com/patric-chuzhbe/adshrt/internal/config"
	"github.com/patric-chuzhbe/adshrt/internal/db/jsondb"
	"github.com/patric-chuzhbe/adshrt/internal/db/memorystorage"
	"github.com/patric-chuzhbe/adshrt/internal/db/postgresdb"
	"github.com/patric-chuzhbe/adshrt/internal/ipchecker"
	"github.com/patric-chuzhbe/adshrt/internal/logger"
	"github.com/patric-chuzhbe/adshrt/internal/models"
	"github.com/patric-chuzhbe/adshrt/internal/router"
	"github.com/patric-chuzhbe/adshrt/internal/service"
	"github.com/patric-chuzhbe/adshrt/internal/user"
)

const shutdownTimeout = 10 * time.Second

type storage interface {
	CreateUser(ctx context.Context, usr *user.User) (int64, error)
	GetUserByID(ctx context.Context, userID int64) (*user.User, error)
	GetUserByUsername(ctx context.Context, username string) (*user.User, error)
	GetNumberOfUsers(ctx context.Context) (int64, error)
	InsertShortLink(ctx context.Context, link *models.ShortLink) error
	FindFullByShort(ctx context.Context, short string) (string, bool, error)
	IncrementCounters(ctx context.Context, short string, impressions, clicks int64) (string, bool, error)
	GetUserLinks(ctx context.Context, userID int64) ([]models.ShortLink, error)
	ResetUserCounters(ctx context.Context, userID int64) error
	GetNumberOfShortenedURLs(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
	Close() error
}

// App bundles the configuration, the storage backend and the HTTP handler.
type App struct {
	cfg         *config.Config
	db          storage
	httpHandler http.Handler
}

type initOptions struct {
	configOptions []config.InitOption
}

// InitOption tweaks New.
type InitOption func(*initOptions)

// WithConfigOptions forwards options to config.New.
func WithConfigOptions(opts ...config.InitOption) InitOption {
	return func(options *initOptions) {
		options.configOptions = append(options.configOptions, opts...)
	}
}

// New loads the configuration, initializes the logger, opens the storage
// selected by the configuration and builds the router.
func New(optionsProto ...InitOption) (*App, error) {
	options := &initOptions{}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	var err error
	app := &App{}

	app.cfg, err = config.New(options.configOptions...)
	if err != nil {
		return nil, err
	}

	err = logger.Init(app.cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	app.db, err = getStorageByType(app.cfg)
	if err != nil {
		return nil, err
	}

	checker, err := ipchecker.New(app.cfg.TrustedSubnet)
	if err != nil {
		return nil, errors.Join(err, app.db.Close())
	}

	app.httpHandler = router.New(
		service.New(
			app.db,
			app.cfg.ShortURLBase,
			service.WithAdChain(app.cfg.AdChain),
			service.WithRates(app.cfg.CPCRate, app.cfg.CPMRate),
		),
		auth.New(
			app.db,
			app.cfg.AuthCookieName,
			[]byte(app.cfg.SecretKey),
			app.cfg.SessionTTL,
		),
		checker,
		app.cfg.RequireLoginForRedirects,
	)

	return app, nil
}

// Handler exposes the router, mostly for tests.
func (a *App) Handler() http.Handler {
	return a.httpHandler
}

// Run starts the HTTP server with graceful shutdown support.
// It listens for system signals and cleans up resources upon termination.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Log.Infow(
		"server running",
		"RunAddr", a.cfg.RunAddr,
		"AdChain", a.cfg.AdChain,
		"Storage", storageTypeName(getAvailableStorageType(a.cfg)),
	)

	server := &http.Server{
		Addr:    a.cfg.RunAddr,
		Handler: a.httpHandler,
	}

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Log.Infoln("Received shutdown signal. Saving database and exiting...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return errors.Join(fmt.Errorf("server shutdown error: %w", err), a.db.Close())
		}

		return a.db.Close()

	case err := <-serverErrCh:
		return errors.Join(fmt.Errorf("server error: %w", err), a.db.Close())
	}
}

// Close finalizes resources used by App such as logging.
func (a *App) Close() {
	if err := logger.Sync(); err != nil {
		fmt.Println("Logger sync error:", err)
	}
}

func getAvailableStorageType(cfg *config.Config) int {
	if cfg.DatabaseDSN != "" {
		return models.StorageTypePostgresql
	}

	if cfg.DBFileName != "" {
		return models.StorageTypeFile
	}

	return models.StorageTypeMemory
}

func storageTypeName(storageType int) string {
	switch storageType {
	case models.StorageTypePostgresql:
		return "postgresql"
	case models.StorageTypeFile:
		return "file"
	case models.StorageTypeMemory:
		return "memory"
	}

	return "unknown"
}

func getStorageByType(cfg *config.Config) (storage, error) {
	switch getAvailableStorageType(cfg) {
	case models.StorageTypeUnknown:
		return nil, errors.New("unknown storage type")

	case models.StorageTypePostgresql:
		return postgresdb.New(
			context.Background(),
			cfg.DatabaseDSN,
			cfg.DBConnectionTimeout,
			cfg.MigrationsDir,
		)

	case models.StorageTypeFile:
		return jsondb.New(cfg.DBFileName)
	}

	return memorystorage.New()
}
