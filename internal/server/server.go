package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"anoa.com/blooddonation/internal/config"
	"anoa.com/blooddonation/internal/entity"
	"anoa.com/blooddonation/internal/middleware"
	"anoa.com/blooddonation/internal/modules/eligibility"
	"anoa.com/blooddonation/pkg/clock"
	"anoa.com/blooddonation/pkg/ratelimiter"
	"anoa.com/blooddonation/pkg/storage"
	"anoa.com/blooddonation/pkg/token"

	notiHttp "anoa.com/blooddonation/internal/modules/notification/delivery/http"
	notifRepo "anoa.com/blooddonation/internal/modules/notification/repository"
	notifService "anoa.com/blooddonation/internal/modules/notification/service"

	profileHttp "anoa.com/blooddonation/internal/modules/profile/delivery/http"
	profileRepo "anoa.com/blooddonation/internal/modules/profile/repository"
	profileService "anoa.com/blooddonation/internal/modules/profile/service"

	requestHttp "anoa.com/blooddonation/internal/modules/request/delivery/http"
	requestRepo "anoa.com/blooddonation/internal/modules/request/repository"
	requestService "anoa.com/blooddonation/internal/modules/request/service"

	searchService "anoa.com/blooddonation/internal/modules/search/service"

	statHttp "anoa.com/blooddonation/internal/modules/stat/delivery/http"
	statService "anoa.com/blooddonation/internal/modules/stat/service"

	userHttp "anoa.com/blooddonation/internal/modules/user/delivery/http"
	userRepo "anoa.com/blooddonation/internal/modules/user/repository"
	userService "anoa.com/blooddonation/internal/modules/user/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/meilisearch/meilisearch-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Server struct {
	engine      *gin.Engine
	db          *gorm.DB
	redisClient *redis.Client
	logger      *zap.Logger
}

// NewServer wires repositories, services and handlers. redisClient may be nil,
// in which case throttling and live notifications are disabled.
func NewServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, logger *zap.Logger) (*Server, error) {
	clk, err := clock.NewFromName(cfg.Timezone)
	if err != nil {
		return nil, err
	}
	engine := eligibility.NewEngine(clk)

	tokens := token.NewManager(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	imageStorage, err := newImageStorage(cfg, logger)
	if err != nil {
		return nil, err
	}

	var searchSvc searchService.SearchService
	if cfg.MeiliSearchHost != "" {
		meiliHost := cfg.MeiliSearchHost
		if !strings.HasPrefix(meiliHost, "http") {
			meiliHost = "http://" + meiliHost + ":7700"
		}
		meiliClient := meilisearch.New(meiliHost, meilisearch.WithAPIKey(cfg.MeiliMasterKey))
		searchSvc = searchService.NewMeiliSearchService(meiliClient, logger)
	} else {
		logger.Warn("MEILISEARCH_HOST not set, donor search index disabled")
	}

	userRepository := userRepo.NewUserRepository(db)
	profileRepository := profileRepo.NewProfileRepository(db)
	requestRepository := requestRepo.NewRequestRepository(db)
	notificationRepository := notifRepo.NewNotificationRepository(db)

	authSvc := userService.NewAuthService(userRepository, imageStorage, searchSvc, tokens, engine, logger)
	authHandler := userHttp.NewAuthHandler(authSvc)

	profileSvc := profileService.NewProfileService(profileRepository, imageStorage, searchSvc, engine, logger)
	profileHandler := profileHttp.NewProfileHandler(profileSvc)

	// Notification Module
	notificationSvc := notifService.NewNotificationService(notificationRepository, redisClient, logger)
	notificationHandler := notiHttp.NewNotificationHandler(notificationSvc, redisClient, originChecker(cfg.AllowedOrigins), logger)

	requestSvc := requestService.NewRequestService(requestService.Deps{
		Requests:      requestRepository,
		Profiles:      profileRepository,
		Notifications: notificationSvc,
		Search:        searchSvc,
		Limiter:       ratelimiter.New(redisClient),
		RateWindow:    cfg.RateLimitRequest,
		Engine:        engine,
		Logger:        logger,
	})
	requestHandler := requestHttp.NewRequestHandler(requestSvc)

	statSvc := statService.NewStatService(profileRepository, requestRepository, engine)
	statHandler := statHttp.NewStatHandler(statSvc)

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	setupCORS(router, cfg.AllowedOrigins)

	router.Use(gin.Recovery())
	router.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz"},
	}))

	s := &Server{
		engine:      router,
		db:          db,
		redisClient: redisClient,
		logger:      logger,
	}

	router.GET("/healthz", s.health)

	authMiddleware := middleware.NewAuthMiddleware(tokens, userRepository, profileRepository)

	api := router.Group("/api")

	// Public routes (no auth required)
	users := api.Group("/users")
	{
		users.POST("/register", authHandler.Register)
		users.POST("/login", authHandler.Login)
		users.POST("/token/refresh", authHandler.Refresh)
	}
	api.GET("/donors", profileHandler.ListDonors)

	// Protected routes (apply auth middleware explicitly)
	protected := api.Group("")
	protected.Use(authMiddleware.RequireAuth())
	{
		adminGroup := protected.Group("/admin")
		adminGroup.Use(authMiddleware.RequireStaff())
		{
			adminGroup.GET("/stats", statHandler.GetStats)
			adminGroup.GET("/donors/export", statHandler.ExportDonors)
		}

		// Profile routes
		protected.GET("/profile/me", profileHandler.GetCurrentProfile)
		protected.PUT("/profile/update", profileHandler.UpdateProfile)

		// Request routes
		requests := protected.Group("/requests")
		{
			requests.POST("/send/:donor_id", authMiddleware.RequireRole(entity.RolePatient), requestHandler.SendRequest)
			requests.GET("/patient", authMiddleware.RequireRole(entity.RolePatient), requestHandler.ListPatientRequests)
			requests.GET("/donor", authMiddleware.RequireRole(entity.RoleDonor), requestHandler.ListDonorRequests)
			requests.POST("/respond/:request_id", authMiddleware.RequireRole(entity.RoleDonor), requestHandler.RespondToRequest)
		}

		// Notification routes
		protected.GET("/notifications", notificationHandler.GetNotifications)
		protected.GET("/notifications/unread-count", notificationHandler.UnreadCount)
		protected.PUT("/notifications/:id/read", notificationHandler.MarkAsRead)
		protected.PUT("/notifications/read-all", notificationHandler.MarkAllAsRead)
		protected.GET("/notifications/ws", notificationHandler.HandleWebSocket)
	}

	api.GET("/profile/:id", profileHandler.GetProfile)

	return s, nil
}

func (s *Server) Run(addr string) error {
	s.logger.Info("http server listening", zap.String("addr", addr))
	return s.engine.Run(addr)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := gin.H{"status": "ok", "database": "ok"}
	code := http.StatusOK

	if sqlDB, err := s.db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
		status["status"] = "degraded"
		status["database"] = "unreachable"
		code = http.StatusServiceUnavailable
	}

	if s.redisClient == nil {
		status["redis"] = "disabled"
	} else if err := s.redisClient.Ping(ctx).Err(); err != nil {
		status["redis"] = "unreachable"
	} else {
		status["redis"] = "ok"
	}

	c.JSON(code, status)
}

func newImageStorage(cfg *config.Config, logger *zap.Logger) (storage.ImageStorage, error) {
	switch cfg.StorageDriver {
	case "cloudinary":
		return storage.NewCloudinaryStorage(cfg.Cloudinary.CloudName, cfg.Cloudinary.APIKey, cfg.Cloudinary.APISecret, cfg.Cloudinary.UploadFolder)
	case "minio":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return storage.NewMinIOStorage(ctx, cfg.MinIO.Endpoint, cfg.MinIO.AccessKey, cfg.MinIO.SecretKey, cfg.MinIO.Bucket, cfg.MinIO.UseSSL, cfg.MinIO.PublicBase)
	case "", "none":
		logger.Warn("no image storage configured, photo uploads are disabled")
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.StorageDriver)
	}
}

func setupCORS(router *gin.Engine, origins []string) {
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}

// originChecker accepts websocket upgrades from the configured CORS origins.
// Requests without an Origin header (non-browser clients) are allowed.
func originChecker(origins []string) func(r *http.Request) bool {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[strings.TrimRight(o, "/")] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if _, ok := allowed["*"]; ok {
			return true
		}
		_, ok := allowed[strings.TrimRight(origin, "/")]
		return ok
	}
}
