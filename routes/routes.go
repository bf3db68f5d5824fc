package routes

import (
	"studenttrack_go/controllers"
	"studenttrack_go/middleware"
	"studenttrack_go/services"
	"studenttrack_go/services/alerts"
	"studenttrack_go/services/offline"
	"studenttrack_go/services/websocket"
	"studenttrack_go/storage"

	"github.com/gofiber/fiber/v2"
	fiberws "github.com/gofiber/websocket/v2"
)

// Deps carries the shared services the route handlers need.
type Deps struct {
	Hub        *websocket.Hub
	Health     *services.HealthService
	Settings   *services.SettingsService
	Blocks     *services.BlocksService
	Attendance *services.AttendanceService
	Payments   *services.PaymentService
	Grading    *services.GradingService
	Alerts     *alerts.Service
	Writer     *offline.Writer
	Engine     *offline.Engine
	Store      offline.Store
	Storage    *storage.StorageService
}

// SetupRoutes configures all application routes
func SetupRoutes(app *fiber.App, deps *Deps) {
	authController := &controllers.AuthController{}
	userController := &controllers.UserController{}
	groupController := &controllers.GroupController{}
	notificationController := &controllers.NotificationController{}
	logController := &controllers.LogController{}
	studentController := controllers.NewStudentController(deps.Writer, deps.Storage)
	attendanceController := controllers.NewAttendanceController(deps.Attendance, deps.Alerts, deps.Settings)
	paymentController := controllers.NewPaymentController(deps.Payments, deps.Settings)
	gradingController := controllers.NewGradingController(deps.Grading)
	alertController := controllers.NewAlertController(deps.Alerts)
	blockController := controllers.NewBlockController(deps.Blocks)
	syncController := controllers.NewSyncController(deps.Engine, deps.Store)
	settingsController := controllers.NewSettingsController(deps.Settings)
	healthController := controllers.NewHealthController(deps.Health)
	wsController := controllers.NewWebSocketController(deps.Hub)

	// API group
	api := app.Group("/api")

	// Health (no authentication required)
	api.Get("/health", healthController.GetHealthStatus)

	// Authentication routes (no middleware)
	auth := api.Group("/auth")
	auth.Post("/login", authController.Login)
	auth.Get("/profile", middleware.JWTMiddleware(), authController.GetProfile)

	// Protected routes (require authentication)
	protected := api.Group("/", middleware.JWTMiddleware())

	protected.Get("/profile", authController.GetProfile)
	protected.Put("/profile/password", authController.ChangePassword)
	protected.Post("/auth/logout", authController.Logout)

	// User management (owner only for mutations)
	users := protected.Group("/users")
	users.Get("/", middleware.RequireOwnerOrAdmin(), userController.GetUsers)
	users.Get("/:id", middleware.RequireOwnerOrAdmin(), userController.GetUser)
	users.Post("/", middleware.RequireOwner(), authController.Register)
	users.Put("/:id", middleware.RequireOwner(), userController.UpdateUser)
	users.Delete("/:id", middleware.RequireOwner(), userController.DeleteUser)

	// Groups
	groups := protected.Group("/groups")
	groups.Get("/", groupController.GetGroups)
	groups.Get("/:id", groupController.GetGroup)
	groups.Post("/", middleware.RequireOwnerOrAdmin(), groupController.CreateGroup)
	groups.Put("/:id", middleware.RequireOwnerOrAdmin(), groupController.UpdateGroup)
	groups.Delete("/:id", middleware.RequireOwnerOrAdmin(), groupController.DeleteGroup)

	// Students
	students := protected.Group("/students")
	students.Get("/", studentController.GetStudents)
	students.Get("/code/:code", studentController.GetStudentByCode)
	students.Get("/:id", studentController.GetStudent)
	students.Post("/", middleware.RequireOwnerOrAdmin(), studentController.CreateStudent)
	students.Put("/:id", middleware.RequireOwnerOrAdmin(), studentController.UpdateStudent)
	students.Post("/:id/deactivate", middleware.RequireOwnerOrAdmin(), studentController.DeactivateStudent)
	students.Get("/:id/qr", studentController.GetStudentQR)
	students.Post("/:id/photo", middleware.RequireOwnerOrAdmin(), studentController.UploadStudentPhoto)

	// Per-student history
	students.Get("/:id/attendance", attendanceController.StudentHistory)
	students.Get("/:id/payments", paymentController.StudentPayments)
	students.Get("/:id/scores", gradingController.StudentScores)
	students.Get("/:id/block", blockController.StudentBlockStatus)
	students.Get("/:id/blocks", blockController.StudentBlockHistory)

	// Attendance
	attendance := protected.Group("/attendance")
	attendance.Post("/mark", attendanceController.Mark)
	attendance.Get("/roster", attendanceController.DayRoster)
	attendance.Post("/:id/absence-link", attendanceController.AbsenceLink)

	// Payments
	payments := protected.Group("/payments")
	payments.Post("/", paymentController.RegisterPayment)
	payments.Post("/refund", middleware.RequireOwnerOrAdmin(), paymentController.RefundPayment)
	payments.Get("/summary", paymentController.MonthSummary)
	payments.Post("/:id/reminder-link", paymentController.ReminderLink)

	// Exams and lessons
	exams := protected.Group("/exams")
	exams.Get("/", gradingController.GetExams)
	exams.Get("/:id", gradingController.GetExam)
	exams.Post("/", middleware.RequireOwnerOrAdmin(), gradingController.CreateExam)
	exams.Post("/:id/results", gradingController.EnterExamResults)

	lessons := protected.Group("/lessons")
	lessons.Get("/", gradingController.GetLessons)
	lessons.Get("/:id/scores", gradingController.GetLessonScores)
	lessons.Post("/", middleware.RequireOwnerOrAdmin(), gradingController.CreateLesson)
	lessons.Post("/:id/sheets", gradingController.EnterLessonSheets)
	lessons.Post("/:id/recitations", gradingController.EnterRecitations)

	// Alerts
	alertRoutes := protected.Group("/alerts")
	alertRoutes.Get("/events", alertController.GetEvents)
	alertRoutes.Post("/events/:id/resolve", alertController.ResolveEvent)
	alertRoutes.Post("/students/:id/evaluate", alertController.EvaluateStudent)
	alertRoutes.Post("/sweep", middleware.RequireOwnerOrAdmin(), alertController.RunSweep)
	alertRoutes.Get("/rules", alertController.GetRules)
	alertRoutes.Put("/rules/:code", middleware.RequireOwnerOrAdmin(), alertController.ToggleRule)

	// Blocks
	blocks := protected.Group("/blocks")
	blocks.Get("/", blockController.GetActiveBlocks)
	blocks.Post("/students/:id/freeze", middleware.RequireOwnerOrAdmin(), blockController.Freeze)
	blocks.Post("/students/:id/unfreeze", middleware.RequireOwnerOrAdmin(), blockController.Unfreeze)
	blocks.Delete("/:id", middleware.RequireOwner(), blockController.DeleteHistoricalBlock)

	// Offline queue & sync
	sync := protected.Group("/sync")
	sync.Get("/status", syncController.Status)
	sync.Get("/pending", syncController.PendingOperations)
	sync.Post("/trigger", syncController.Trigger)

	// Notifications
	notifications := protected.Group("/notifications")
	notifications.Get("/", notificationController.GetNotifications)
	notifications.Get("/unread-count", notificationController.GetUnreadCount)
	notifications.Put("/:id/read", notificationController.MarkAsRead)
	notifications.Put("/read-all", notificationController.MarkAllAsRead)
	notifications.Delete("/:id", notificationController.DeleteNotification)

	// Settings
	settings := protected.Group("/settings", middleware.RequireOwnerOrAdmin())
	settings.Get("/", settingsController.GetSettings)
	settings.Put("/", settingsController.UpdateSettings)

	// Activity logs
	protected.Get("/logs", middleware.RequireOwnerOrAdmin(), logController.GetActivityLogs)

	// WebSocket endpoint (token validated inside the handler)
	app.Use("/ws", func(c *fiber.Ctx) error {
		if fiberws.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return wsController.UpgradeRequired(c)
	})
	app.Get("/ws", wsController.Handler())
}
