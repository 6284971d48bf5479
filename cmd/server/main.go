// Package main runs the caption relay HTTP/WebSocket server with graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/context-subtitles/relay/config"
	"github.com/context-subtitles/relay/internal/access"
	"github.com/context-subtitles/relay/internal/definitions"
	"github.com/context-subtitles/relay/internal/middleware"
	"github.com/context-subtitles/relay/internal/realtime"
	"github.com/context-subtitles/relay/internal/stats"
	"github.com/context-subtitles/relay/pkg/response"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	if cfg.LLM.APIKey == "" {
		logger.Warn("OPENAI_API_KEY not set; definition lookups will fail upstream")
	}

	ctx := context.Background()

	// Definition cache: Redis when configured, in-process LRU otherwise.
	var store definitions.Store
	if cfg.Cache.Enabled {
		if cfg.Redis.Addr != "" {
			redisStore, err := definitions.NewRedisStore(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Cache.TTL, logger)
			if err != nil {
				logger.Warn("redis cache unavailable, falling back to memory", zap.Error(err))
				store = definitions.NewMemoryStore(cfg.Cache.Capacity, cfg.Cache.TTL)
			} else {
				defer redisStore.Close()
				store = redisStore
			}
		} else {
			store = definitions.NewMemoryStore(cfg.Cache.Capacity, cfg.Cache.TTL)
		}
	} else {
		logger.Info("definition cache disabled")
	}

	provider := definitions.NewOpenAIProvider(cfg.LLM.APIKey, cfg.LLM.Model)
	defineSvc := definitions.NewService(provider, store, logger, cfg.Define)

	aggregator := stats.New()

	hub := realtime.NewHub(logger, cfg.Realtime.MaxConnections)
	hub.SetAudienceChangeHandler(aggregator.SetAudience)
	hub.SetCaptionHandler(func(words []realtime.CaptionWord) {
		texts := make([]string, len(words))
		for i, w := range words {
			texts[i] = w.Text
		}
		aggregator.RecordWords(texts)
	})
	hub.SetTapHandler(aggregator.RecordTap)

	defineHandler := definitions.NewHandler(defineSvc, aggregator, logger)
	statsHandler := stats.NewHandler(aggregator)
	accessHandler := access.NewHandler(cfg.Server.Port, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.GET("/ws", realtime.ServeWs(hub, logger, cfg.Realtime))
	router.POST("/define", defineHandler.Define)
	router.GET("/api/top", statsHandler.Top)
	router.GET("/api/stats", statsHandler.Get)
	router.POST("/api/stats/reset", statsHandler.Reset)
	router.GET("/qr", accessHandler.ConnectionInfo)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	hub.CloseAll("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
