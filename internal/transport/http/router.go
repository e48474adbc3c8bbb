package http

import (
	"github.com/fridday/backend/internal/config"
	"github.com/fridday/backend/internal/core/ports"
	"github.com/fridday/backend/internal/core/services"
	"github.com/fridday/backend/internal/infrastructure/logger"
	"github.com/fridday/backend/internal/transport/http/handlers"
	httpmw "github.com/fridday/backend/internal/transport/http/middleware"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

type RouterConfig struct {
	Logger   *logger.Logger
	Config   *config.Config
	Research *services.ResearchService
	Registry *services.ResearchRegistry
	Chat     *services.ChatService
	Auth     ports.AuthProvider
}

func SetupRoutes(app *fiber.App, cfg RouterConfig) {
	authRequired := httpmw.SupabaseAuth(cfg.Auth, cfg.Config.Supabase.JWTSecret, cfg.Logger)

	researchHandler := handlers.NewResearchHandler(cfg.Research, cfg.Registry, cfg.Logger)
	researchWSHandler := handlers.NewResearchWSHandler(cfg.Registry, cfg.Logger)
	chatHandler := handlers.NewChatHandler(cfg.Chat, cfg.Logger)
	authHandler := handlers.NewAuthHandler(cfg.Auth, cfg.Logger)

	// Live progress subscription
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})
	app.Get("/ws/research/:id", websocket.New(researchWSHandler.Handle))

	// API v1 routes
	api := app.Group("/api/v1")

	// Research relay routes
	api.Post("/gpt-researcher", researchHandler.SubmitResearch)
	research := api.Group("/research", authRequired)
	research.Get("/:id", researchHandler.GetResearch)
	research.Post("/:id/cancel", researchHandler.CancelResearch)

	// Chat routes
	api.Post("/chat", authRequired, chatHandler.Chat)
	api.Post("/conversations/search", authRequired, chatHandler.SearchConversations)

	// Auth routes
	auth := api.Group("/auth")
	auth.Get("/me", authRequired, authHandler.Me)
	if cfg.Config.Auth.DevEndpoints {
		auth.Post("/dev/token", authHandler.DevToken)
		auth.Post("/dev/refresh", authHandler.DevRefresh)
	}
}
