package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/quocanhngo/recovery/internal/config"
	"github.com/quocanhngo/recovery/internal/handler"
	"github.com/quocanhngo/recovery/internal/jobs"
	"github.com/quocanhngo/recovery/internal/middleware"
	"github.com/quocanhngo/recovery/internal/model"
	"github.com/quocanhngo/recovery/internal/otp"
	"github.com/quocanhngo/recovery/internal/ratelimit"
	"github.com/quocanhngo/recovery/internal/repository"
	"github.com/quocanhngo/recovery/internal/service"
	"github.com/quocanhngo/recovery/migrations"
	"github.com/quocanhngo/recovery/pkg/auth"
	"github.com/quocanhngo/recovery/pkg/mailer"
	"github.com/quocanhngo/recovery/pkg/password"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// @title           Recovery API
// @version         1.0
// @description     Password recovery with one-time email codes, plus registration and login.

// @contact.name   API Support
// @contact.email  support@recovery.local

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      api.localhost
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	// ==================== Load Config ====================
	cfg := config.Load()

	logger, err := newLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting recovery API server", zap.String("env", cfg.App.Env))

	// ==================== Database (PostgreSQL) ====================
	gormLog := gormlogger.Default.LogMode(gormlogger.Info)
	if cfg.App.IsProduction() {
		gormLog = gormlogger.Default.LogMode(gormlogger.Warn)
	}

	db, err := gorm.Open(postgres.Open(cfg.DB.DSN()), &gorm.Config{
		Logger:         gormLog,
		TranslateError: true,
	})
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	logger.Info("connected to PostgreSQL")

	// ==================== Run Migrations ====================
	if err := migrations.Run(cfg.DB.URL(), logger); err != nil {
		logger.Warn("migration failed, falling back to GORM AutoMigrate", zap.Error(err))
		if err := db.AutoMigrate(&model.Account{}); err != nil {
			logger.Fatal("failed to migrate database", zap.Error(err))
		}
	}
	logger.Info("database migrated successfully")

	// ==================== Redis ====================
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	ctx := context.Background()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		if cfg.OTP.Backend == "redis" {
			logger.Fatal("failed to connect to Redis", zap.Error(err))
		}
		logger.Warn("Redis not available, request throttling disabled until it recovers", zap.Error(err))
	} else {
		logger.Info("connected to Redis")
	}

	// ==================== OTP Store ====================
	otpConfig := otp.Config{
		TTL:         cfg.OTP.TTL,
		MaxAttempts: cfg.OTP.MaxAttempts,
		Retention:   cfg.OTP.Retention,
	}

	var (
		otpStore    otp.Store
		memoryStore *otp.MemoryStore
	)
	switch cfg.OTP.Backend {
	case "redis":
		otpStore = otp.NewRedisStore(rdb, "", otpConfig)
	default:
		memoryStore = otp.NewMemoryStore(otpConfig)
		otpStore = memoryStore
	}
	logger.Info("OTP store configured", zap.String("backend", cfg.OTP.Backend), zap.Duration("ttl", cfg.OTP.TTL))

	// ==================== Email ====================
	var notifier service.Notifier
	switch cfg.Mail.Driver {
	case "log":
		notifier = mailer.NewLogNotifier(logger)
		logger.Warn("MAIL_DRIVER=log: recovery codes are written to the log")
	default:
		notifier = mailer.New(mailer.Config{
			Host:      cfg.SMTP.Host,
			Port:      cfg.SMTP.Port,
			Username:  cfg.SMTP.Username,
			Password:  cfg.SMTP.Password,
			From:      cfg.SMTP.From,
			FromName:  cfg.SMTP.FromName,
			TLSPolicy: cfg.SMTP.TLSPolicy,
			CodeTTL:   cfg.OTP.TTL,
		}, logger)
		logger.Info("SMTP configured", zap.String("host", cfg.SMTP.Host), zap.Int("port", cfg.SMTP.Port))
	}

	// ==================== Initialize Layers ====================
	jwtManager := auth.NewJWTManager(cfg.JWT.Secret, cfg.JWT.Expiry)
	hasher := password.NewHasher(cfg.Password.BcryptCost)
	limiter := ratelimit.NewLimiter(rdb, ratelimit.Config{
		Limit:  cfg.OTP.RequestsPerHour,
		Window: time.Hour,
	})

	// Repositories
	accountRepo := repository.NewAccountRepository(db)

	// Services
	recoveryService := service.NewRecoveryService(accountRepo, notifier, otpStore, hasher, limiter, cfg.OTP.TTL, logger)
	authService := service.NewAuthService(accountRepo, otpStore, hasher, jwtManager, logger)

	// Handlers
	recoveryHandler := handler.NewRecoveryHandler(recoveryService, logger)
	authHandler := handler.NewAuthHandler(authService, logger)

	// ==================== Background Jobs ====================
	scheduler, err := jobs.NewScheduler(logger)
	if err != nil {
		logger.Fatal("failed to create job scheduler", zap.Error(err))
	}
	if memoryStore != nil {
		// Redis expires records on its own through key TTLs
		if err := scheduler.RegisterCronJob(cfg.OTP.SweepCron, jobs.NewOTPSweepJob(memoryStore)); err != nil {
			logger.Fatal("failed to register OTP sweep job", zap.Error(err))
		}
	}
	scheduler.Start()

	// ==================== Gin Router ====================
	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.CORSMiddleware(cfg.CORS.Origins))

	// Serve swagger.json at /docs/swagger.json to avoid conflict with /swagger/* wildcard
	router.StaticFile("/docs/swagger.json", "./docs/swagger.json")
	url := ginSwagger.URL("/docs/swagger.json")
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, url))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "recovery-api",
			"time":    time.Now().Format(time.RFC3339),
		})
	})

	// ==================== API Routes ====================
	api := router.Group("/api/v1")
	{
		// Auth routes (public)
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/forgot-password", recoveryHandler.ForgotPassword)
			authGroup.POST("/verify-otp", recoveryHandler.VerifyOTP)
			authGroup.POST("/reset-password", recoveryHandler.ResetPassword)
		}

		// Protected routes
		protected := api.Group("/auth")
		protected.Use(middleware.AuthMiddleware(jwtManager))
		{
			protected.GET("/profile", authHandler.GetProfile)
			protected.POST("/change-password", authHandler.ChangePassword)
		}
	}

	// ==================== Start Server ====================
	srv := &http.Server{
		Addr:    ":" + cfg.App.Port,
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	logger.Info("recovery API running",
		zap.String("addr", "http://0.0.0.0:"+cfg.App.Port),
		zap.String("docs", "http://0.0.0.0:"+cfg.App.Port+"/swagger/index.html"))

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	// Give ongoing requests 5 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	if err := scheduler.Shutdown(); err != nil {
		logger.Warn("job scheduler shutdown failed", zap.Error(err))
	}

	logger.Info("server exited gracefully")
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	zapConfig := zap.NewDevelopmentConfig()
	if cfg.App.IsProduction() {
		zapConfig = zap.NewProductionConfig()
	}
	if level, err := zap.ParseAtomicLevel(cfg.Log.Level); err == nil {
		zapConfig.Level = level
	}
	return zapConfig.Build()
}
