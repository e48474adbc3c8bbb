package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fridday/backend/internal/config"
	"github.com/fridday/backend/internal/core/services"
	"github.com/fridday/backend/internal/infrastructure/cache"
	"github.com/fridday/backend/internal/infrastructure/llm"
	"github.com/fridday/backend/internal/infrastructure/logger"
	"github.com/fridday/backend/internal/infrastructure/supabase"
	transporthttp "github.com/fridday/backend/internal/transport/http"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
)

func main() {
	configPath := "config/config.yaml"
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		configPath = "../config/config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log, err := logger.New(cfg.Logger)
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer log.Sync()

	supaClient := supabase.NewClient(cfg.Supabase, log)
	progressStore := supabase.NewProgressStore(supaClient, log, cfg.Researcher)
	conversationRepo := supabase.NewConversationRepository(supaClient, log)

	sessionCache, err := cache.New(cfg.Redis, log)
	if err != nil {
		log.Fatalf("failed to initialize redis cache: %v", err)
	}
	pingCtx, cancelPing := context.WithTimeout(context.Background(), cfg.Redis.DialTimeout)
	if err := sessionCache.Ping(pingCtx); err != nil {
		log.Warnf("redis not reachable at startup, session memory degraded: %v", err)
	}
	cancelPing()

	openaiClient := llm.NewOpenAI(cfg.OpenAI, log)

	registry := services.NewResearchRegistry()
	researchService := services.NewResearchService(services.ResearchServiceConfig{
		Store:    progressStore,
		Registry: registry,
		Logger:   log,
		Config:   cfg.Researcher,
	})
	chatService := services.NewChatService(services.ChatServiceConfig{
		Conversations: conversationRepo,
		Embedder:      openaiClient,
		Model:         openaiClient,
		Cache:         sessionCache,
		Logger:        log,
		MemoryTTL:     cfg.Redis.MemoryTTL,
	})

	app := fiber.New(fiber.Config{
		ReadTimeout:           cfg.Server.ReadTimeout,
		WriteTimeout:          cfg.Server.WriteTimeout,
		IdleTimeout:           cfg.Server.IdleTimeout,
		ErrorHandler:          globalErrorHandler(log),
		DisableStartupMessage: true,
	})

	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	allowedOrigins := "http://localhost:3000"
	if len(cfg.Auth.AllowedOrigins) > 0 {
		allowedOrigins = strings.Join(cfg.Auth.AllowedOrigins, ",")
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins: allowedOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, HEAD, PUT, DELETE, PATCH",
	}))

	app.Use(func(c *fiber.Ctx) error {
		hdr := cfg.Features.RequestIDHeader
		var reqID string
		if hdr != "" {
			reqID = c.Get(hdr)
		}
		if reqID == "" {
			reqID = uuid.New().String()
		}
		c.Locals("request_id", reqID)
		return c.Next()
	})

	if cfg.Features.EnableRequestLogging {
		app.Use(func(c *fiber.Ctx) error {
			start := time.Now()
			err := c.Next()
			log.Infow("http_access",
				"method", c.Method(),
				"path", c.Path(),
				"status", c.Response().StatusCode(),
				"latency_ms", time.Since(start).Milliseconds(),
				"client_ip", c.IP(),
				"request_id", c.Locals("request_id"),
			)
			return err
		})
	}

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"message": "Welcome to Fridday Agents API"})
	})
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy"})
	})

	transporthttp.SetupRoutes(app, transporthttp.RouterConfig{
		Logger:   log,
		Config:   cfg,
		Research: researchService,
		Registry: registry,
		Chat:     chatService,
		Auth:     supaClient,
	})

	go func() {
		if err := app.Listen(cfg.Server.Address()); err != nil {
			log.Fatalf("server failed to start: %v", err)
		}
	}()

	log.Infof("server started on %s", cfg.Server.Address())

	gracefulShutdown(app, sessionCache, log)
}

func globalErrorHandler(log *logger.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
		}

		if code == fiber.StatusNotFound {
			log.Warnw("request failed",
				"method", c.Method(),
				"path", c.Path(),
				"status", code,
				"error", err.Error(),
				"request_id", c.Locals("request_id"),
			)
		} else {
			log.Errorw("request error",
				"method", c.Method(),
				"path", c.Path(),
				"status", code,
				"error", err.Error(),
				"request_id", c.Locals("request_id"),
			)
		}

		return c.Status(code).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
}

func gracefulShutdown(app *fiber.App, sessionCache *cache.RedisCache, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	log.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Errorf("server forced to shutdown: %v", err)
	}

	if err := sessionCache.Close(); err != nil {
		log.Errorf("failed to close redis connection: %v", err)
	}

	log.Info("server exited gracefully")
}
