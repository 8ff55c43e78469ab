// Package server contains the HTTP handlers for the application's API endpoints.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	_ "lcnetwork/docs" // swagger docs
	"lcnetwork/internal/cache"
	"lcnetwork/internal/config"
	"lcnetwork/internal/database"
	"lcnetwork/internal/featureflags"
	"lcnetwork/internal/middleware"
	"lcnetwork/internal/models"
	"lcnetwork/internal/repository"
	"lcnetwork/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
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
	featureFlags   *featureflags.Manager

	activity      *service.ActivityService
	notifications *service.NotificationService
	auth          *service.AuthService
	users         *service.UserService
	posts         *service.PostService
	comments      *service.CommentService
	friends       *service.FriendService
	blocks        *service.BlockService
	moderation    *service.ModerationService
	appeals       *service.AppealService
	violations    *service.ViolationService
	reports       *service.ReportService
	media         *service.MediaService
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	if cfg == nil || db == nil {
		return nil, fmt.Errorf("server requires config and database")
	}

	repos := repository.NewRepos(db)
	uow := repository.NewUnitOfWork(db)
	flags := featureflags.NewManager(cfg.FeatureFlags)

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("lcnetwork-api"),
		featureFlags:   flags,
	}

	s.activity = service.NewActivityService(repos.Activity)
	s.notifications = service.NewNotificationService(repos.Notifications)
	s.auth = service.NewAuthService(uow, repos.Users, s.activity, service.NewMailer(cfg), flags, cfg, cache.RevokeToken)
	s.users = service.NewUserService(repos.Users, repos.Roles, s.activity)
	s.posts = service.NewPostService(uow, repos.Posts, repos.Users, service.NewKeywordScreener(repos.Keywords),
		flags, s.notifications, s.activity, cfg)
	s.comments = service.NewCommentService(uow, repos.Comments, repos.Posts, repos.Users, s.notifications)
	s.friends = service.NewFriendService(uow, repos.Friends, repos.Users, s.notifications)
	s.blocks = service.NewBlockService(uow, repos.Blocks, repos.Users)
	s.moderation = service.NewModerationService(uow, repos.Queue, repos.Posts, repos.Keywords, s.notifications)
	s.appeals = service.NewAppealService(uow, repos.Appeals, s.notifications, cfg)
	s.violations = service.NewViolationService(uow, repos.Violations, s.notifications)
	s.reports = service.NewReportService(uow, repos.Reports, flags)
	s.media = service.NewMediaService(cfg)

	return s, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panics are reported to Sentry, then recovered below.
	if sentry.CurrentHub().Client() != nil {
		app.Use(sentryfiber.New(sentryfiber.Options{
			Repanic:         true,
			WaitForDelivery: false,
		}))
	}

	app.Use(recover.New())
	app.Use(requestid.New())

	// Propagate request id and trace context into the logger
	app.Use(middleware.ContextMiddleware())
	if s.config.TracingEnabled {
		app.Use(middleware.TracingMiddleware())
	}

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New(helmet.Config{
		// Uploaded media is fetched cross-origin by the web client.
		CrossOriginResourcePolicy: "cross-origin",
	}))

	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
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

	app.Static("/uploads", s.media.UploadDir(), fiber.Static{
		Compress:      true,
		MaxAge:        3600,
		Browse:        false,
		ByteRange:     true,
		CacheDuration: 10 * time.Second,
	})

	api := app.Group("/api")
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "LC Network Backend Metrics Dashboard",
	}))
	api.Get("/swagger/*", swagger.HandlerDefault)

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/register", middleware.RateLimit(s.redis, middleware.LimitRegister), s.Register)
	auth.Post("/verify-otp", middleware.RateLimit(s.redis, middleware.LimitVerifyOTP), s.VerifyOTP)
	auth.Post("/resend-otp", middleware.RateLimit(s.redis, middleware.LimitResendOTP), s.ResendOTP)
	auth.Post("/login", middleware.RateLimit(s.redis, middleware.LimitLogin), s.Login)
	auth.Post("/refresh", s.RefreshRequired(), s.Refresh)
	auth.Post("/logout", s.AuthRequired(), s.Logout)

	protected := api.Group("", s.AuthRequired())

	// User routes; specific paths before /:id
	users := protected.Group("/users")
	users.Get("/profile", s.GetProfile)
	users.Put("/profile", s.UpdateProfile)
	users.Post("/profile/avatar", s.UploadAvatar)
	users.Get("/profile/:id", s.GetPublicProfile)
	users.Get("/activity-logs", s.GetActivityLogs)
	users.Post("/change-password", s.ChangePassword)
	users.Get("/blocks", s.GetBlockedUsers)
	users.Get("/violations", s.GetMyViolations)
	users.Post("/:id/block", s.BlockUser)
	users.Delete("/:id/block", s.UnblockUser)

	// Post routes
	posts := protected.Group("/posts")
	posts.Post("/", middleware.RateLimit(s.redis, middleware.LimitCreatePost), s.CreatePost)
	posts.Get("/", s.GetFeed)
	posts.Get("/my-posts", s.GetMyPosts)
	posts.Post("/upload-media", s.UploadPostMedia)

	// Comment routes under /posts/comments before the generic /:id routes
	posts.Post("/comments/upload-media", s.UploadCommentMedia)
	posts.Put("/comments/:id", s.UpdateComment)
	posts.Delete("/comments/:id", s.DeleteComment)
	posts.Post("/comments/:id/like", s.LikeComment)
	posts.Get("/comments/:id/replies", s.GetReplies)

	posts.Post("/:id/comments", middleware.RateLimit(s.redis, middleware.LimitCreateComment), s.CreateComment)
	posts.Get("/:id/comments", s.GetComments)
	posts.Post("/:id/like", s.LikePost)
	posts.Post("/:id/share", s.SharePost)
	posts.Get("/:id", s.GetPost)
	posts.Put("/:id", s.UpdatePost)
	posts.Delete("/:id", s.DeletePost)

	// Friend routes
	friends := protected.Group("/friends")
	friends.Get("/", s.GetFriends)
	friends.Get("/requests", s.GetFriendRequests)
	friends.Post("/request/:id", middleware.RateLimit(s.redis, middleware.LimitFriendRequest), s.SendFriendRequest)
	friends.Post("/request/:id/accept", s.AcceptFriendRequest)
	friends.Post("/request/:id/reject", s.RejectFriendRequest)
	friends.Delete("/:id", s.RemoveFriend)

	// Reports and appeals
	protected.Post("/reports", middleware.RateLimit(s.redis, middleware.LimitReport), s.CreateReport)
	protected.Post("/appeals", s.CreateAppeal)
	protected.Get("/appeals/me", s.GetMyAppeals)

	// Notification routes
	notifications := protected.Group("/notifications")
	notifications.Get("/", s.GetNotifications)
	notifications.Get("/unread-count", s.GetUnreadCount)
	notifications.Post("/mark-all-read", s.MarkAllNotificationsRead)
	notifications.Post("/:id/read", s.MarkNotificationRead)

	// Moderation routes
	mod := protected.Group("/moderation", s.ModeratorRequired())
	mod.Get("/queue", s.GetModerationQueue)
	mod.Post("/queue/:id/lock", s.LockQueueItem)
	mod.Post("/review/:post_id", s.ReviewPost)
	mod.Get("/appeals", s.GetAppeals)
	mod.Post("/appeal/:id/review", s.ReviewAppeal)
	mod.Get("/reports", s.GetReports)
	mod.Post("/reports/:id/resolve", s.ResolveReport)
	mod.Post("/violations", s.RecordViolation)
	mod.Get("/users/:id/violations", s.GetUserViolations)

	keywords := mod.Group("/keywords", s.AdminRequired())
	keywords.Get("/", s.GetKeywords)
	keywords.Post("/", s.AddKeyword)
	keywords.Delete("/:id", s.DeleteKeyword)

	// Admin routes
	admin := protected.Group("/admin", s.AdminRequired())
	admin.Get("/feature-flags", s.GetFeatureFlags)
	admin.Post("/users/:id/roles", s.GrantRole)
	admin.Delete("/users/:id/roles/:role", s.RevokeRole)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if err := database.Ping(ctx, s.db); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" || redisStatus != "healthy" {
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

// AuthRequired accepts only unrevoked access tokens.
func (s *Server) AuthRequired() fiber.Handler {
	return middleware.RequireToken(s.config.JWTSecret, middleware.TokenTypeAccess, cache.IsTokenRevoked)
}

// RefreshRequired accepts only unrevoked refresh tokens.
func (s *Server) RefreshRequired() fiber.Handler {
	return middleware.RequireToken(s.config.JWTSecret, middleware.TokenTypeRefresh, cache.IsTokenRevoked)
}

// ModeratorRequired rejects callers without the moderator or admin role.
// Must be placed after AuthRequired so that userID is available in locals.
func (s *Server) ModeratorRequired() fiber.Handler {
	return s.requireRole("Moderator access required", models.RoleModerator, models.RoleAdmin)
}

// AdminRequired returns middleware that rejects non-admin users with 403.
// Must be placed after AuthRequired so that userID is available in locals.
func (s *Server) AdminRequired() fiber.Handler {
	return s.requireRole("Admin access required", models.RoleAdmin)
}

func (s *Server) requireRole(message string, roles ...models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ok, err := s.users.HasAnyRole(c.UserContext(), currentUserID(c), roles...)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
		}
		if !ok {
			return models.RespondWithError(c, fiber.StatusForbidden, models.NewForbiddenError(message))
		}
		return c.Next()
	}
}

// App builds the Fiber application with middleware and routes installed.
func (s *Server) App() *fiber.App {
	if s.app != nil {
		return s.app
	}
	app := fiber.New(fiber.Config{
		AppName:      "LC Network API",
		BodyLimit:    (s.config.MediaMaxUploadSizeMB + 1) * 1024 * 1024,
		ErrorHandler: s.errorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

// errorHandler answers errors no handler turned into a response.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	if fe, ok := err.(*fiber.Error); ok {
		return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
	}

	middleware.Logger.ErrorContext(c.UserContext(), "unhandled error",
		slog.String("path", c.Path()), slog.String("error", err.Error()))
	if hub := sentryfiber.GetHubFromContext(c); hub != nil {
		hub.CaptureException(err)
	} else {
		sentry.CaptureException(err)
	}
	return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
}

// Start starts the server
func (s *Server) Start() error {
	app := s.App()
	middleware.Logger.Info("server starting", slog.String("port", s.config.Port))
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", slog.String("error", cerr.Error()))
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", rerr.Error()))
		}
	}

	middleware.Logger.Info("server shutdown complete")
	return nil
}
