package api

import (
	"log/slog"
	"os"
	"strings"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/listmill/listmill/internal/api/handlers"
	"github.com/listmill/listmill/internal/api/middleware"
	"github.com/listmill/listmill/internal/ingest"
	"github.com/listmill/listmill/internal/repository"
	"github.com/listmill/listmill/internal/websocket"
)

// RouterConfig holds dependencies for the router
type RouterConfig struct {
	DB      *gorm.DB
	Bounces *ingest.BounceService
	Hub     *websocket.Hub
	Logger  *slog.Logger
	// Security configuration
	APIKey         string   // API key for authentication (empty = disabled)
	AllowedOrigins []string // Allowed CORS origins
	RateLimit      int      // Requests per second (0 = use env default)
	RateBurst      int      // Burst size for rate limiter
	EnableAuth     bool     // Enable API key authentication
}

// NewRouter creates and configures the Echo router with all routes
func NewRouter(cfg *RouterConfig) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// Security middleware, in order: recover first, then headers, CORS,
	// rate limiting, request logging.
	e.Use(middleware.Recover())
	e.Use(middleware.SecureHeaders())

	if len(cfg.AllowedOrigins) > 0 {
		os.Setenv("ALLOWED_ORIGINS", strings.Join(cfg.AllowedOrigins, ","))
	}
	e.Use(middleware.SecureCORS())

	if cfg.RateLimit > 0 {
		e.Use(middleware.RateLimiterWithConfig(float64(cfg.RateLimit), cfg.RateBurst, cfg.Logger))
	} else {
		e.Use(middleware.RateLimiter(cfg.Logger))
	}

	if cfg.Logger != nil {
		e.Use(middleware.RequestLogger(cfg.Logger))
	}

	// Initialize repositories
	listRepo := repository.NewListRepository(cfg.DB)
	postRepo := repository.NewPostRepository(cfg.DB)
	digestRepo := repository.NewDigestRepository(cfg.DB)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(cfg.DB)
	listHandler := handlers.NewListHandler(listRepo, postRepo)
	postHandler := handlers.NewPostHandler(postRepo, listRepo)
	bounceHandler := handlers.NewBounceHandler(cfg.Bounces)
	digestHandler := handlers.NewDigestHandler(digestRepo, listRepo)

	// Health routes (no auth required)
	e.GET("/health", healthHandler.Health)
	e.GET("/ready", healthHandler.Ready)

	// Websocket endpoint for live new-post events
	if cfg.Hub != nil {
		wsHandler := handlers.NewWSHandler(cfg.Hub, cfg.Logger)
		e.GET("/ws", wsHandler.Serve)
	}

	// API routes
	api := e.Group("/api")

	if cfg.EnableAuth && cfg.APIKey != "" {
		os.Setenv("API_KEY", cfg.APIKey)
	}
	api.Use(middleware.APIKeyAuth(cfg.Logger))

	// Mailing list routes
	lists := api.Group("/lists")
	lists.POST("", listHandler.Create)
	lists.GET("", listHandler.List)
	lists.GET("/:group_id", listHandler.Get)
	lists.DELETE("/:group_id", listHandler.Delete)

	// Archive routes (nested under lists)
	lists.GET("/:group_id/topics", postHandler.ListTopics)
	lists.GET("/:group_id/posts", postHandler.ListPosts)

	// Topic routes
	topics := api.Group("/topics")
	topics.GET("/:topic_id", postHandler.GetTopic)
	topics.GET("/:topic_id/posts", postHandler.TopicPosts)

	// Post routes
	posts := api.Group("/posts")
	posts.GET("/:post_id", postHandler.Get)
	posts.DELETE("/:post_id", postHandler.Delete)

	// Bounce routes
	bounces := api.Group("/bounces")
	bounces.POST("", bounceHandler.Report)
	bounces.POST("/batch", bounceHandler.ReportBatch)
	bounces.GET("/status", bounceHandler.Status)

	// Digest scheduling routes
	digests := api.Group("/digests")
	digests.GET("/due", digestHandler.Due)
	digests.POST("/:group_id/sent", digestHandler.MarkSent)

	return e
}
