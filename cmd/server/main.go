package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/riskroute/backend/internal/config"
	httpdelivery "github.com/riskroute/backend/internal/delivery/http"
	"github.com/riskroute/backend/internal/domain"
	"github.com/riskroute/backend/internal/repository/postgres"
	"github.com/riskroute/backend/internal/risk"
	"github.com/riskroute/backend/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	// Database connection (optional; mock repository without one)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var pool *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		pool, err = pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Printf("Warning: Could not connect to database: %v", err)
			pool = nil
		}
	}
	if pool != nil {
		defer pool.Close()
		log.Println("Connected to PostgreSQL")
	} else {
		log.Println("Running with in-memory preference storage")
	}

	// Dependency Injection: Repositories
	var repo domain.DataRepository
	if pool != nil {
		repo = postgres.NewPostgresRepository(pool)
	} else {
		repo = postgres.NewMockRepository()
	}

	// Dependency Injection: Services
	session := service.NewSession(ctx, repo, cfg.DefaultCenter, cfg.MockMode, cfg.Location)
	weatherSvc := service.NewWeatherService(cfg.OpenWeatherAPIKey, cfg.OpenWeatherBase, cfg.OpenMeteoBase)
	geocoder := service.NewGeocodeService(cfg.NominatimBase, cfg.CountryCodes, cfg.ServiceBBox)
	modelSvc := service.NewModelService(cfg.ModelsDir)
	roadInfo := service.NewRoadInfoService(cfg.OverpassEndpoint)

	mockSource := risk.NewMock(cfg.SegmentBBox, cfg.Location)
	clientSource := risk.NewClient(cfg.APIBaseURL)
	riskSvc := service.NewRiskService(mockSource, clientSource, session, weatherSvc, roadInfo, repo, cfg.ServiceBBox)
	analyticsSvc := service.NewAnalyticsService(riskSvc, session, repo)

	router := service.NewRouter(
		service.NewOSRMProvider(cfg.OSRMBase),
		service.NewORSProvider(cfg.ORSBase, cfg.ORSAPIKey),
		service.NewStraightLineProvider(),
	)

	simulator := service.NewDriveSimulator(riskSvc.Source, 2*time.Second)

	// Fiber App
	app := fiber.New(fiber.Config{
		AppName:      "RiskRoute API v1.0",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorHandler: customErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${method} ${path} (${latency})\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Routes
	handler := httpdelivery.NewHandler(
		riskSvc, session, weatherSvc, router, geocoder, modelSvc, analyticsSvc, simulator, repo, cfg.SegmentBBox,
	)
	httpdelivery.SetupRoutes(app, handler)

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on %s (env=%s, mock=%v)", cfg.ListenAddr(), cfg.Env, cfg.MockMode)
		if err := app.Listen(cfg.ListenAddr()); err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	simulator.Stop()
	if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
	riskSvc.WaitBackground()
	session.WaitBackground()
	log.Println("Server exited gracefully")
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}
