package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"stocksense-backend/internal/alert"
	"stocksense-backend/internal/audit"
	"stocksense-backend/internal/auth"
	"stocksense-backend/internal/catalog"
	"stocksense-backend/internal/config"
	"stocksense-backend/internal/database"
	"stocksense-backend/internal/insights"
	"stocksense-backend/internal/integration"
	"stocksense-backend/internal/llm"
	"stocksense-backend/internal/logger"
	"stocksense-backend/internal/metrics"
	"stocksense-backend/internal/models"
	"stocksense-backend/internal/notify"
	"stocksense-backend/internal/warehouse"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"go.uber.org/zap"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zl, err := logger.New(cfg.LogLevel, cfg.LogEncoding)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	db, err := database.Open(cfg, zl)
	if err != nil {
		zl.Fatal("database", zap.Error(err))
	}
	m := metrics.New()

	// Notifications: webhooks always, kafka when brokers are configured.
	webhooks := notify.NewWebhookNotifier(db, cfg.WebhookTimeout, zl, m)
	sinks := notify.Multi{webhooks}
	var kafka *notify.KafkaSink
	if len(cfg.KafkaBrokers) > 0 {
		kafka = notify.NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaTopic, zl, m)
		sinks = append(sinks, kafka)
		zl.Info("kafka notifications enabled", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaTopic))
	}
	notifier := notify.NewAsync(sinks, cfg.WebhookTimeout+5*time.Second, zl)

	client := llm.New(cfg, zl, m)

	warehouseSvc := warehouse.NewService(db, zl, notifier, m, warehouse.WithDefaultReorderLevel(cfg.DefaultReorderLevel))
	catalogSvc := catalog.NewService(db, zl, notifier, client, catalog.WithDefaultReorderLevel(cfg.DefaultReorderLevel))
	alertEngine := alert.NewEngine(db, zl, notifier, m)
	insightsSvc := insights.NewService(db, zl)
	webhookSvc := notify.NewService(db, webhooks)
	integrationSvc := integration.NewService(db, zl, notifier, webhookSvc)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var e *fiber.Error
			if errors.As(err, &e) {
				return c.Status(e.Code).JSON(fiber.Map{
					"error": e.Message,
				})
			}
			zl.Error("unexpected error", zap.String("path", c.Path()), zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Unexpected server error",
			})
		},
	})

	app.Use(logger.Middleware(zl))
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(cfg.CORSOriginList(), ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
	}))

	app.Get("/metrics", m.Handler())

	api := app.Group("/api")

	// Public
	api.Post("/auth/register", auth.RegisterHandler(db, cfg))
	api.Post("/auth/login", auth.LoginHandler(db, cfg))
	integration.RegisterIncoming(api.Group("/integrations"), integrationSvc, cfg.IntegrationSecret)

	// Protected
	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(cfg))

	adminOnly := auth.RequireRole(models.RoleAdmin)
	writers := auth.RequireRole(models.RoleAdmin, models.RoleManager)

	protected.Get("/auth/me", auth.MeHandler(db))
	protected.Put("/auth/users/:id/role", adminOnly, auth.UpdateRoleHandler(db))
	protected.Get("/audit-logs", writers, audit.ListAuditLogsHandler(db))

	catalog.RegisterProducts(protected.Group("/products"), catalogSvc, writers)
	catalog.RegisterSuppliers(protected.Group("/suppliers"), catalogSvc, writers)
	catalog.RegisterShipments(protected.Group("/shipments"), catalogSvc, writers)
	catalog.RegisterBarcodes(protected.Group("/barcodes"), catalogSvc)
	catalog.RegisterReports(protected.Group("/reports"), catalogSvc)

	warehouse.Register(protected.Group("/warehouses"), warehouseSvc, writers)
	alert.Register(protected.Group("/alerts"), alertEngine)
	insights.Register(protected.Group("/insights"), insightsSvc)

	notify.Register(protected.Group("/integrations/webhooks"), webhookSvc, adminOnly)
	integration.Register(protected.Group("/integrations"), integrationSvc, adminOnly)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		zl.Info("server listening", zap.String("port", cfg.HTTPPort))
		if err := app.Listen(":" + cfg.HTTPPort); err != nil {
			zl.Error("listen", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	zl.Info("shutting down")
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		zl.Warn("http shutdown", zap.Error(err))
	}

	// let queued notifications finish before closing their sinks
	notifier.Wait()
	if kafka != nil {
		if err := kafka.Close(); err != nil {
			zl.Warn("kafka close", zap.Error(err))
		}
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
