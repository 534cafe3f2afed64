package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gharkhoj/gharkhoj/internal/api"
	"github.com/gharkhoj/gharkhoj/internal/config"
	"github.com/gharkhoj/gharkhoj/internal/db"
	"github.com/gharkhoj/gharkhoj/internal/middleware"
	"github.com/gharkhoj/gharkhoj/internal/models"
	"github.com/gharkhoj/gharkhoj/internal/observ"
	"github.com/gharkhoj/gharkhoj/internal/realtime"
	"github.com/gharkhoj/gharkhoj/internal/repository/postgres"
	"github.com/gharkhoj/gharkhoj/internal/storage"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := observ.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	// Startup has no deadline; once serving, every query runs under its
	// request's context.
	database, err := db.New(context.Background(), cfg.DatabaseURL, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer database.Close()

	if err := database.Migrate(context.Background()); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	store, err := storage.NewDiskStore(cfg.ImageDir, cfg.PublicBaseURL)
	if err != nil {
		return fmt.Errorf("init image store: %w", err)
	}

	hub := realtime.NewHub()
	bridge, err := realtime.NewBridge(cfg.RedisURL, hub, logger)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer bridge.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := bridge.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("realtime bridge stopped", zap.Error(err))
		}
	}()

	pool := database.Pool()
	userRepo := postgres.NewUserStore(pool)
	profileRepo := postgres.NewProfileStore(pool)
	roleRepo := postgres.NewRoleStore(pool)
	propertyRepo := postgres.NewPropertyStore(pool)
	imageRepo := postgres.NewImageStore(pool)
	favoriteRepo := postgres.NewFavoriteStore(pool)
	inquiryRepo := postgres.NewInquiryStore(pool)
	convRepo := postgres.NewConversationStore(pool)
	messageRepo := postgres.NewMessageStore(pool)

	authHandler := api.NewAuthHandler(userRepo, profileRepo, roleRepo, cfg.JWTSecret, cfg.JWTTTL, logger)
	profileHandler := api.NewProfileHandler(profileRepo, logger)
	propertyHandler := api.NewPropertyHandler(propertyRepo, imageRepo, roleRepo, store, logger)
	imageHandler := api.NewImageHandler(imageRepo, propertyRepo, store, logger)
	favoriteHandler := api.NewFavoriteHandler(favoriteRepo, logger)
	inquiryHandler := api.NewInquiryHandler(inquiryRepo, propertyRepo, logger)
	convHandler := api.NewConversationHandler(convRepo, messageRepo, propertyRepo, bridge, logger)
	adminHandler := api.NewAdminHandler(userRepo, profileRepo, propertyRepo, logger)
	wsHandler := api.NewWSHandler(hub, convRepo, messageRepo, logger)

	limiter := middleware.NewLimiterStore(30, 10, 5*time.Minute)
	defer limiter.Stop()

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := gin.New()
	srv.Use(gin.Recovery())

	srv.GET("/v1/health", func(c *gin.Context) {
		if err := database.Health(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Uploaded property images are served straight off disk.
	srv.Static("/images", store.Dir())

	// Public routes: signup/login sit behind the per-IP limiter; search
	// and property details are browsable without an account.
	public := srv.Group("/v1")
	{
		authed := public.Group("/auth")
		authed.Use(middleware.RateLimit(limiter))
		authed.POST("/signup", authHandler.Signup)
		authed.POST("/login", authHandler.Login)

		public.GET("/search", propertyHandler.Search)
		public.GET("/properties/:id", propertyHandler.Get)
		public.GET("/users/:id/profile", profileHandler.GetPublic)
	}

	v1 := srv.Group("/v1")
	v1.Use(middleware.AuthMiddleware(cfg.JWTSecret))
	{
		v1.GET("/me", authHandler.Me)
		v1.POST("/auth/password", authHandler.UpdatePassword)

		v1.GET("/profile", profileHandler.Get)
		v1.PUT("/profile", profileHandler.Update)

		v1.POST("/properties", propertyHandler.Create)
		v1.GET("/properties", propertyHandler.ListMine)
		v1.PUT("/properties/:id", propertyHandler.Update)
		v1.PATCH("/properties/:id/vacancy", propertyHandler.SetVacancy)
		v1.DELETE("/properties/:id", propertyHandler.Delete)

		v1.POST("/properties/:id/images", imageHandler.Upload)
		v1.DELETE("/properties/:id/images/:imageID", imageHandler.Delete)

		v1.GET("/favorites", favoriteHandler.List)
		v1.PUT("/favorites/:propertyID", favoriteHandler.Add)
		v1.DELETE("/favorites/:propertyID", favoriteHandler.Remove)
		v1.GET("/favorites/:propertyID", favoriteHandler.Check)

		v1.POST("/properties/:id/inquiries", inquiryHandler.Create)
		v1.GET("/inquiries", inquiryHandler.List)
		v1.PATCH("/inquiries/:id/close", inquiryHandler.Close)
		v1.DELETE("/inquiries/:id", inquiryHandler.Delete)

		v1.GET("/conversations", convHandler.List)
		v1.POST("/conversations", convHandler.Open)
		v1.GET("/conversations/:id/messages", convHandler.ListMessages)
		v1.POST("/conversations/:id/messages", convHandler.SendMessage)
		v1.POST("/conversations/:id/messages/:messageID/read", convHandler.MarkMessageRead)
		v1.PATCH("/conversations/:id/archive", convHandler.Archive)
		v1.GET("/me/unread_count", convHandler.UnreadCount)

		v1.GET("/ws", wsHandler.Serve)

		// Admin routes re-check the role against the database on every
		// call; a stale token alone never grants admin.
		admin := v1.Group("/admin")
		admin.Use(middleware.RequireRole(roleRepo, models.RoleAdmin))
		admin.GET("/properties", adminHandler.PendingProperties)
		admin.PATCH("/properties/:id/status", adminHandler.SetPropertyStatus)
		admin.GET("/users", adminHandler.ListUsers)
		admin.DELETE("/users/:id", adminHandler.DeleteUser)
		admin.POST("/users/:id/password", adminHandler.ChangePassword)
		admin.PUT("/users/:id/profile", adminHandler.UpdateProfile)
		admin.GET("/users/:id/email", adminHandler.GetUserEmail)
	}

	httpSrv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("shutdown", zap.Error(err))
		}
	}()

	logger.Info("starting GharKhoj",
		zap.String("port", cfg.Port),
		zap.String("env", cfg.Env),
	)

	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}

	logger.Info("server stopped")
	return nil
}
