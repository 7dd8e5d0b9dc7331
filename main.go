package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"socialapi/internal/api"
	"socialapi/internal/config"
	"socialapi/internal/logging"
	"socialapi/internal/metrics"
	"socialapi/internal/redis"
	"socialapi/internal/service/account"
	"socialapi/internal/service/message"
	"socialapi/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load(os.Getenv("SOCIALAPI_CONFIG"))
	if err != nil {
		logrus.Fatalf("load config: %v", err)
	}
	logger := logging.New(cfg.Logging)

	dbType := cfg.BasicConfig.Driver
	logger.WithField("driver", dbType).Info("opening database")
	db, err := storage.Open(dbType, cfg)
	if err != nil {
		logger.Fatalf("open database: %v", err)
	}
	defer db.Close()

	// Create necessary tables: account, message
	if err := storage.Migrate(db, dbType); err != nil {
		logger.Fatalf("migrate database: %v", err)
	}

	var cache message.Cache
	if cfg.Redis.Enabled {
		rdb, err := redis.NewRedisClient(cfg.Redis)
		if err != nil {
			logger.Fatalf("create redis client: %v", err)
		}
		defer rdb.Close()
		cache = message.NewRedisCache(rdb, time.Duration(cfg.Redis.TTLSeconds)*time.Second, logger)
		logger.Info("message cache enabled")
	}

	accountService := account.NewService(storage.NewAccountStore(db, dbType, logger))
	messageService := message.NewService(storage.NewMessageStore(db, dbType, logger), cache)

	if existing, err := accountService.ListAccounts(context.Background()); err == nil {
		logger.WithField("accounts", len(existing)).Info("database ready")
	}

	var m *metrics.Metrics
	metricsPath := ""
	if cfg.Metrics.Enabled {
		m = metrics.New()
		metricsPath = cfg.Metrics.Path
	}
	handlers := api.NewHandler(accountService, messageService, db, logger, m)

	if cfg.BasicConfig.GinMode != "" {
		gin.SetMode(cfg.BasicConfig.GinMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	handlers.RegisterRoutes(router, metricsPath)

	srv := &http.Server{
		Addr:    cfg.BasicConfig.ServerAddress,
		Handler: router,
	}

	go func() {
		logger.WithField("addr", srv.Addr).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server stopped: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("graceful shutdown failed")
	}
}
