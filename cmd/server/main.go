package main // Entry point package

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/technotes/internal/config"
	"github.com/iliyamo/technotes/internal/database"
	"github.com/iliyamo/technotes/internal/handler"
	"github.com/iliyamo/technotes/internal/logging"
	"github.com/iliyamo/technotes/internal/middleware"
	"github.com/iliyamo/technotes/internal/queue"
	"github.com/iliyamo/technotes/internal/repository"
	"github.com/iliyamo/technotes/internal/router"
	"github.com/iliyamo/technotes/internal/service"
	"github.com/iliyamo/technotes/internal/utils"
)

func main() {
	cfg := config.MustLoad()

	logger, err := logging.New(cfg.IsProd())
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	channels := logging.NewChannels(cfg.LogDir, logger)
	defer func() { _ = channels.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, database.DSN(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName))
	if err != nil {
		channels.Log(logging.DBErrorChannel, fmt.Sprintf("connect\t%s:%s\t%v", cfg.DBHost, cfg.DBPort, err))
		logger.Fatal("database connect failed", zap.Error(err))
	}
	defer db.Close()
	if err := database.Migrate(db); err != nil {
		channels.Log(logging.DBErrorChannel, fmt.Sprintf("migrate\t%s\t%v", cfg.DBName, err))
		logger.Fatal("database migration failed", zap.Error(err))
	}
	logger.Info("connected to database", zap.String("host", cfg.DBHost), zap.String("name", cfg.DBName))

	users := repository.NewUserRepo(db)
	notes := repository.NewNoteRepo(db)
	tokens := utils.NewTokenService(cfg.AccessTokenSecret, cfg.RefreshTokenSecret, cfg.AccessTTL, cfg.RefreshTTL)

	var publisher handler.EventPublisher = service.NopPublisher{}
	if cfg.EventsEnabled {
		publisher = service.NewEventPublisher(cfg.RabbitMQURL, logger)
		go func() {
			if err := queue.StartEventConsumer(ctx, cfg.RabbitMQURL, channels, logger); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("event consumer stopped", zap.Error(err))
			}
		}()
	}

	// A nil *redis.Client must not reach the limiter as a non-nil interface.
	var store redis.Scripter
	limitCfg := config.LoadLoginLimitConfig()
	if limitCfg.Enabled {
		if rdb := config.NewRedisClient(); rdb != nil {
			defer rdb.Close()
			store = rdb
		} else {
			logger.Warn("redis unreachable, login limiter disabled")
		}
	}

	e := router.New(router.Deps{
		AllowedOrigins: cfg.AllowedOrigins,
		PublicDir:      cfg.PublicDir,
		Logger:         logger,
		Events:         channels,
		Tokens:         tokens,
		Auth:           handler.NewAuthHandler(users, tokens, cfg.CookieMaxAge, cfg.BcryptCost, logger),
		Users:          handler.NewUserHandler(users, notes, cfg.BcryptCost, publisher, logger),
		Notes:          handler.NewNoteHandler(notes, users, publisher, logger),
		LoginLimiter:   middleware.NewLoginLimiter(limitCfg, store, logger),
	})

	addr := ":" + cfg.Port
	go func() {
		logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
