// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"skillswap/internal/bootstrap"
	"skillswap/internal/config"
	"skillswap/internal/featureflags"
	"skillswap/internal/middleware"
	"skillswap/internal/models"
	"skillswap/internal/notifications"
	"skillswap/internal/repository"
	"skillswap/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc
	notifier       *notifications.Notifier
	hub            *notifications.Hub
	tickets        *ticketStore

	authService         *service.AuthService
	userService         *service.UserService
	searchService       *service.SearchService
	swapService         *service.SwapService
	feedbackService     *service.FeedbackService
	notificationService *service.NotificationService
}

// NewServer creates a server over the services connected by bootstrap.
func NewServer(cfg *config.Config, rt *bootstrap.Runtime) *Server {
	var searcher service.UserSearcher
	if rt.Search != nil {
		searcher = rt.Search
	}
	return NewServerWithDeps(cfg, rt.DB, rt.Redis, searcher)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient and searcher may be nil.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, searcher service.UserSearcher) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	userRepo := repository.NewUserRepository(db)
	skillRepo := repository.NewSkillRepository(db)
	swapRepo := repository.NewSwapRepository(db)
	feedbackRepo := repository.NewFeedbackRepository(db)

	hub := notifications.NewHub()
	var (
		store     notifications.Store
		publisher service.Publisher
		notifier  *notifications.Notifier
	)
	if redisClient != nil {
		store = notifications.NewRedisStore(redisClient)
		notifier = notifications.NewNotifier(redisClient)
		publisher = notifier
	} else {
		store = notifications.NewMemoryStore()
		publisher = hub
	}

	flags := featureflags.NewManager(cfg.FeatureFlags)
	notificationService := service.NewNotificationService(store, publisher)

	return &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("skillswap-api"),
		shutdownCtx:    ctx,
		shutdownFn:     cancel,
		notifier:       notifier,
		hub:            hub,
		tickets:        newTicketStore(redisClient),

		authService: service.NewAuthService(userRepo, redisClient, service.AuthConfig{
			Secret:     cfg.JWTSecret,
			TTL:        cfg.JWTTTL,
			BcryptCost: cfg.BcryptCost,
		}),
		userService:         service.NewUserService(userRepo, skillRepo, searcher, flags, cfg.BcryptCost),
		searchService:       service.NewSearchService(userRepo, skillRepo, searcher),
		swapService:         service.NewSwapService(swapRepo, userRepo, notificationService),
		feedbackService:     service.NewFeedbackService(feedbackRepo, swapRepo),
		notificationService: notificationService,
	}
}

// App builds the Fiber application with middleware and routes installed.
func (s *Server) App() *fiber.App {
	if s.app != nil {
		return s.app
	}
	app := fiber.New(fiber.Config{
		AppName:      "SkillSwap API",
		ErrorHandler: errorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

// errorHandler reports errors no handler responded to. Fiber errors keep
// their status; anything else is a 500 carrying the error message.
func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
	}
	middleware.Logger.ErrorContext(c.UserContext(), "unhandled request error",
		slog.String("path", c.Path()), slog.String("error", err.Error()))
	return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: err.Error()})
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Context Middleware to propagate Request ID and User ID
	app.Use(middleware.ContextMiddleware())
	app.Use(middleware.TracingMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers
	app.Use(helmet.New())

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		MaxAge:       86400,
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || !s.config.IsProduction()
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	requireDB := middleware.DatabaseRequired(s.db)
	auth := middleware.AuthRequired(s.authService)
	rl := middleware.NewRateLimiter(s.redis, s.config.IsProduction())

	app.Post("/register", rl.Limit(5, 10*time.Minute, "register"), requireDB, s.Register)
	app.Post("/login", rl.Limit(10, 5*time.Minute, "login"), s.Login)
	app.Post("/logout", auth, s.Logout)

	app.Get("/user", auth, s.GetCurrentUser)
	app.Put("/user", auth, requireDB, s.UpdateCurrentUser)
	app.Get("/user/:username", middleware.OptionalAuth(s.authService), s.GetUserProfile)

	app.Get("/browse", rl.Limit(30, time.Minute, "browse"), s.Browse)
	app.Get("/skills", s.ListSkills)

	swaps := app.Group("/swaps", auth)
	swaps.Get("/", s.ListSwaps)
	swaps.Post("/", rl.Limit(20, time.Minute, "create_swap"), requireDB, s.CreateSwap)
	swaps.Patch("/:id/status", requireDB, s.UpdateSwapStatus)
	swaps.Delete("/:id", requireDB, s.DeleteSwap)

	feedback := app.Group("/feedback", auth)
	feedback.Get("/", s.ListFeedback)
	feedback.Post("/", requireDB, s.SubmitFeedback)

	notes := app.Group("/notifications", auth)
	notes.Get("/", s.ListNotifications)
	// Specific /read-all route before generic /:id
	notes.Post("/read-all", s.MarkAllNotificationsRead)
	notes.Post("/:id/read", s.MarkNotificationRead)

	app.Post("/ws/ticket", auth, s.IssueWSTicket)
	app.Get("/ws/notifications", s.WSTicketRequired(), s.NotificationsWebSocket())
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests. Redis is optional, so
// only the database decides readiness.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if s.db == nil {
		dbStatus = "unhealthy"
	} else if sqlDB, err := s.db.DB(); err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// Start wires the notification hub and listens until Shutdown.
func (s *Server) Start() error {
	app := s.App()

	if s.notifier != nil {
		go func() {
			if err := s.hub.StartWiring(s.shutdownCtx, s.notifier); err != nil {
				middleware.Logger.Error("failed to start notification wiring", slog.String("error", err.Error()))
			}
		}()
	}

	middleware.Logger.Info("Server starting", slog.String("port", s.config.Port))
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	// Cancel the server-scoped context to stop the wiring goroutine
	s.shutdownFn()

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if err := s.hub.Shutdown(ctx); err != nil {
		middleware.Logger.Error("error shutting down notification hub", slog.String("error", err.Error()))
	}

	middleware.Logger.Info("Server shutdown complete")
	return nil
}
