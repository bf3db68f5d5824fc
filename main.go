package main

import (
	"log"
	"os"
	"time"

	"studenttrack_go/config"
	"studenttrack_go/database"
	"studenttrack_go/database/seeders"
	"studenttrack_go/middleware"
	"studenttrack_go/routes"
	"studenttrack_go/services"
	"studenttrack_go/services/alerts"
	"studenttrack_go/services/notifications"
	"studenttrack_go/services/offline"
	"studenttrack_go/services/websocket"
	"studenttrack_go/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"
)

func init() {
	setupLogging()
	config.LoadConfig()
	database.Connect()
	seeders.SeedAll()
}

func main() {
	startTime := time.Now()

	// WebSocket hub
	wsHub := websocket.NewHub()
	go wsHub.Run()

	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    int(config.AppConfig.MaxFileSize),
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(helmet.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "*",
		AllowMethods:     "GET,POST,HEAD,PUT,DELETE,PATCH,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization",
		AllowCredentials: true,
	}))
	app.Use(middleware.LoggerMiddleware())
	app.Use(middleware.LogActivityMiddleware())

	// Notifications over Redis + WebSocket
	notifications.SetDefaultWSHub(wsHub)
	notifService := notifications.NewService()
	notifService.SetWebSocketHub(wsHub)
	if config.AppConfig.UseRedisNotifications {
		stopNotif := make(chan struct{})
		notifService.StartWorker(stopNotif)
	}

	// App settings, loaded once and cached
	settingsService := services.NewSettingsService()
	if _, err := settingsService.Load(); err != nil {
		log.Fatalf("Failed to load app settings: %v", err)
	}

	// Block cache
	blocksService := services.NewBlocksService()
	if err := blocksService.Reload(); err != nil {
		log.Fatalf("Failed to load student blocks: %v", err)
	}

	// Offline queue: Redis-backed when available, in-memory otherwise
	var store offline.Store
	if config.AppConfig.UseRedisQueue && database.GetRedisClient() != nil {
		store = offline.NewRedisStore(database.GetRedisClient())
		logrus.Info("offline queue backed by redis")
	} else {
		store = offline.NewMemoryStore()
		logrus.Warn("offline queue held in memory only")
	}

	online := func() bool { return database.Ping(2 * time.Second) }
	applier := offline.NewApplier(database.GetDB())
	writer := offline.NewWriter(store, applier, online)
	engine := offline.NewEngine(store, applier, online)

	stopWatcher := make(chan struct{})
	engine.StartWatcher(config.AppConfig.SyncProbeInterval, stopWatcher)

	// Domain services
	alertService := alerts.NewService()
	attendanceService := services.NewAttendanceService(writer)
	paymentService := services.NewPaymentService(blocksService, writer)
	gradingService := services.NewGradingService(blocksService, writer)

	// S3-backed file storage is optional
	var storageService *storage.StorageService
	if config.AppConfig.S3BucketName != "" {
		var err error
		storageService, err = storage.NewStorageService()
		if err != nil {
			logrus.WithError(err).Warn("file storage disabled")
			storageService = nil
		}
	}

	// Health reporting
	healthService := services.NewHealthService("Student Track API", "1.0.0")
	healthService.SetStartTime(startTime)
	healthService.SetQueue(store)

	// Cron jobs: daily alert sweep, periodic sync, log maintenance
	scheduler := services.NewScheduler(alertService, engine, notifService, settingsService)
	if err := scheduler.Start(); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	routes.SetupRoutes(app, &routes.Deps{
		Hub:        wsHub,
		Health:     healthService,
		Settings:   settingsService,
		Blocks:     blocksService,
		Attendance: attendanceService,
		Payments:   paymentService,
		Grading:    gradingService,
		Alerts:     alertService,
		Writer:     writer,
		Engine:     engine,
		Store:      store,
		Storage:    storageService,
	})

	// 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":  "Route not found",
			"path":   c.Path(),
			"method": c.Method(),
		})
	})

	addr := ":" + config.AppConfig.Port
	logrus.WithFields(logrus.Fields{
		"port":        config.AppConfig.Port,
		"environment": config.AppConfig.AppEnv,
	}).Info("server starting")

	if err := app.Listen(addr); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}

// setupLogging configures the logging system
func setupLogging() {
	if err := os.MkdirAll("logs", 0755); err != nil {
		log.Printf("Warning: Could not create logs directory: %v", err)
	}

	logrus.SetFormatter(&logrus.JSONFormatter{})

	if level, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		logrus.SetLevel(level)
	} else {
		logrus.SetLevel(logrus.InfoLevel)
	}

	if os.Getenv("APP_ENV") == "development" {
		logrus.SetOutput(os.Stdout)
	} else {
		file, err := os.OpenFile("logs/app.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err == nil {
			logrus.SetOutput(file)
		}
	}
}

// customErrorHandler handles application errors
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	logrus.WithFields(logrus.Fields{
		"error":  err.Error(),
		"path":   c.Path(),
		"method": c.Method(),
		"ip":     c.IP(),
		"status": code,
	}).Error("Request error")

	return c.Status(code).JSON(fiber.Map{
		"error":  message,
		"code":   code,
		"path":   c.Path(),
		"method": c.Method(),
	})
}
