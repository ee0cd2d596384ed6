// Command server starts the counter-orion HTTP API.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/counter-orion/internal/cache"
	"github.com/and161185/counter-orion/internal/config"
	"github.com/and161185/counter-orion/internal/limiter"
	"github.com/and161185/counter-orion/internal/migrate"
	"github.com/and161185/counter-orion/internal/repository/postgres"
	httpserver "github.com/and161185/counter-orion/internal/server/http"
	"github.com/and161185/counter-orion/internal/service"
	"github.com/and161185/counter-orion/internal/token"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func newLogger(dev bool) *zap.Logger {
	if dev {
		l, _ := zap.NewDevelopment()
		return l
	}
	l, _ := zap.NewProduction()
	return l
}

// main loads configuration, runs migrations, and serves HTTP until SIGINT/SIGTERM.
func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		zap.NewExample().Fatal("config", zap.Error(err))
	}
	if cfg.AppVersion == "dev" {
		cfg.AppVersion = version
	}

	logger := newLogger(cfg.Dev)
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", cfg.AppVersion),
		zap.String("buildDate", buildDate),
		zap.String("addr", cfg.Addr),
	)

	// Context with OS signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := migrate.Up(ctx, cfg.DatabaseDSN); err != nil {
		logger.Fatal("migrate up", zap.Error(err))
	}

	db, err := postgres.New(ctx, cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("postgres", zap.Error(err))
	}
	defer db.Close()

	// Repositories
	userRepo := postgres.NewUserRepo(db)
	catalogRepo := postgres.NewCatalogRepo(db)
	entryRepo := postgres.NewEntryRepo(db)

	lim := limiter.NewPG(db.Pool, cfg.LoginWindow, cfg.LoginMaxFails, cfg.LoginBlockFor)
	tokens := token.New([]byte(cfg.JWTSecret), cfg.AccessTTL, cfg.RefreshTTL)

	var catalogCache cache.Cache = cache.Nop{}
	if cfg.RedisAddr != "" {
		rdb, err := cache.Dial(ctx, cfg.RedisAddr)
		if err != nil {
			logger.Fatal("redis", zap.Error(err))
		}
		defer func() { _ = rdb.Close() }()
		catalogCache = cache.NewRedis(rdb, "catalog", cfg.CatalogCacheTTL)
		logger.Info("catalog cache enabled", zap.String("redis", cfg.RedisAddr))
	}

	// Services
	authSvc := service.NewAuthService(userRepo, tokens, lim)
	catalogSvc := service.NewCatalogService(catalogRepo, catalogCache, logger)
	inventorySvc := service.NewInventoryService(entryRepo)

	h := httpserver.NewHandler(authSvc, catalogSvc, inventorySvc, logger, cfg.AppName, cfg.AppVersion)
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpserver.NewRouter(h, logger),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	// Wait for stop
	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shCtx); err != nil {
			logger.Warn("graceful shutdown", zap.Error(err))
			_ = srv.Close()
		}
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}

	logger.Info("shutdown complete")
}
