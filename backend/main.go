package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prajwallshetty/ClientX/backend/config"
	"github.com/prajwallshetty/ClientX/backend/handler"
	"github.com/prajwallshetty/ClientX/backend/middleware"
	"github.com/prajwallshetty/ClientX/backend/pkg/logger"
	"github.com/prajwallshetty/ClientX/backend/service"
)

func main() {
	configPath := os.Getenv("CLIENTX_CONFIG")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", "path", configPath, "error", err)
		os.Exit(1)
	}

	logger.Init(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	slog.Info("configuration loaded successfully",
		"store", cfg.Store.Driver,
		"artifacts", cfg.Artifacts.Driver,
	)

	ctx := context.Background()

	repo, err := newRepository(cfg)
	if err != nil {
		slog.Error("failed to initialize contract store", "error", err)
		os.Exit(1)
	}

	storage, err := newArtifactStorage(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialize artifact storage", "error", err)
		os.Exit(1)
	}

	contracts := service.NewContractService(repo, storage)

	gin.SetMode(gin.ReleaseMode)
	router := setupRouter(cfg, contracts)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server exited gracefully")
}

func newRepository(cfg *config.Config) (service.ContractRepository, error) {
	switch cfg.Store.Driver {
	case config.StorePostgres:
		return service.OpenGormContractStore(cfg.Store.DSN)
	default:
		return service.NewContractStore(), nil
	}
}

func newArtifactStorage(ctx context.Context, cfg *config.Config) (service.ArtifactStorage, error) {
	switch cfg.Artifacts.Driver {
	case config.ArtifactsMinio:
		minioSvc, err := service.NewMinioService(&cfg.Minio)
		if err != nil {
			return nil, err
		}
		if err := minioSvc.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return minioSvc, nil
	default:
		return service.NewLocalStorage(cfg.Artifacts.LocalDir)
	}
}

func setupRouter(cfg *config.Config, contracts *service.ContractService) *gin.Engine {
	authHandler := handler.NewAuthHandler(cfg)
	contractHandler := handler.NewContractHandler(contracts)

	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(corsMiddleware())
	router.Use(cacheMiddleware())
	router.Use(middleware.RateLimit(cfg.RateLimit.Requests, time.Duration(cfg.RateLimit.WindowSeconds)*time.Second))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	api := router.Group("/api")
	api.POST("/auth/login", authHandler.Login)

	protected := api.Group("/", middleware.AuthMiddleware(&cfg.Auth))
	protected.GET("/auth/me", authHandler.GetCurrentUser)
	contractHandler.RegisterRoutes(protected.Group("/contract"))

	return router
}

// corsMiddleware handles CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Request-ID, X-Content-SHA256, Content-Disposition")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// cacheMiddleware keeps API responses, including PDF downloads, out of caches
func cacheMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api") {
			c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
			c.Header("Pragma", "no-cache")
			c.Header("Expires", "0")
		}
		c.Next()
	}
}
