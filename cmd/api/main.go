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

	"github.com/kioskworks/kiosk-admin-api/internal/config"
	"github.com/kioskworks/kiosk-admin-api/internal/database"
	"github.com/kioskworks/kiosk-admin-api/internal/handler"
	"github.com/kioskworks/kiosk-admin-api/internal/middleware"
	"github.com/kioskworks/kiosk-admin-api/internal/models"
	"github.com/kioskworks/kiosk-admin-api/internal/repository"
	"github.com/kioskworks/kiosk-admin-api/internal/router"
	"github.com/kioskworks/kiosk-admin-api/internal/service"
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

	if err := db.AutoMigrate(&models.ActivityLog{}); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	natsConn, err := database.ConnectNATS(cfg.NATSURL)
	if err != nil {
		log.Fatalf("failed to connect to nats: %v", err)
	}
	if natsConn != nil {
		defer natsConn.Close()
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	logRepo := repository.NewActivityLogRepository(db)
	filterState := service.NewFilterStateManager(redisClient, cfg.SessionStateTTL, logger)
	selection := service.NewSelectionTracker(redisClient, cfg.SessionStateTTL, logger)
	resolver := service.NewTaxonomyResolver()

	activityService := service.NewActivityService(logRepo, filterState, resolver, validate, logger)
	bulkService := service.NewBulkService(logRepo, selection, filterState, service.ActorPermissions, natsConn, cfg.ExportMaxRows, logger)

	activityHandler := handler.NewActivityLogHandler(activityService, filterState, selection, bulkService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		ActivityLogHandler: activityHandler,
		JWTMiddleware:      middleware.JWTProtected(cfg.JWTSecret),
		HealthProbes: []handler.HealthProbe{
			{Name: "postgres", Check: func(ctx context.Context) error {
				sqlDB, err := db.DB()
				if err != nil {
					return err
				}
				return sqlDB.PingContext(ctx)
			}},
			{Name: "redis", Check: func(ctx context.Context) error {
				return redisClient.Ping(ctx).Err()
			}},
		},
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
