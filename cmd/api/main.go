package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/warta-go-api/internal/config"
	"github.com/noah-isme/warta-go-api/internal/database"
	"github.com/noah-isme/warta-go-api/internal/handler"
	"github.com/noah-isme/warta-go-api/internal/middleware"
	"github.com/noah-isme/warta-go-api/internal/models"
	"github.com/noah-isme/warta-go-api/internal/repository"
	"github.com/noah-isme/warta-go-api/internal/router"
	"github.com/noah-isme/warta-go-api/internal/service"
	"github.com/noah-isme/warta-go-api/pkg/magiclink"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(&models.User{}, &models.AuditLog{}); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	natsConn, err := database.ConnectNATS(cfg.NATSURL, cfg.AppName)
	if err != nil {
		log.Fatalf("failed to connect to nats: %v", err)
	}
	defer natsConn.Close()

	provider, err := magiclink.New(magiclink.Config{
		BaseURL: cfg.MagicLinkBaseURL,
		APIKey:  cfg.MagicLinkAPIKey,
		Timeout: cfg.MagicLinkTimeout,
	}, logger)
	if err != nil {
		log.Fatalf("failed to create magic link client: %v", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	userRepo := repository.NewUserRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)

	auditService := service.NewAuditService(auditRepo, logger)
	tokenService := service.NewTokenService(cfg.JWTSecret, cfg.JWTTTL, redisClient, logger)
	authService := service.NewAuthService(userRepo, tokenService, auditService, cfg.PasswordRotationDays, cfg.PasswordWarnDays, logger)
	magicLinkService := service.NewMagicLinkService(userRepo, provider, tokenService, auditService, cfg.MagicLinkRetryBurned, logger)
	adminUserService, err := service.NewAdminUserService(userRepo, validate, auditService, logger)
	if err != nil {
		log.Fatalf("failed to create admin user service: %v", err)
	}

	listener := service.NewMagicLinkListener(natsConn, cfg.MagicLinkSubject, magicLinkService, logger)
	if err := listener.Start(); err != nil {
		log.Fatalf("failed to start magic link listener: %v", err)
	}
	defer listener.Close()

	authHandler := handler.NewAuthHandler(authService, logger)
	magicLinkHandler := handler.NewMagicLinkHandler(magicLinkService, logger)
	adminUserHandler := handler.NewAdminUserHandler(adminUserService, logger)
	auditHandler := handler.NewAuditHandler(auditService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		AuthHandler:      authHandler,
		MagicLinkHandler: magicLinkHandler,
		AdminUserHandler: adminUserHandler,
		AuditHandler:     auditHandler,
		JWTMiddleware:    middleware.JWTProtected(tokenService),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
