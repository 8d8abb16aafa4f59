package main

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"finora/internal/handlers"
	"finora/internal/middleware"
	"finora/internal/models"
)

// routes bundles the handlers mounted by newRouter.
type routes struct {
	auth          *handlers.AuthHandler
	incomes       *handlers.RecordHandler[models.Income, *models.Income, handlers.IncomeRequest]
	expenses      *handlers.RecordHandler[models.Expense, *models.Expense, handlers.ExpenseRequest]
	clients       *handlers.RecordHandler[models.Client, *models.Client, handlers.ClientRequest]
	invoices      *handlers.RecordHandler[models.Invoice, *models.Invoice, handlers.InvoiceRequest]
	invoiceStatus *handlers.InvoiceHandler
	dashboard     *handlers.DashboardHandler
	calendar      *handlers.CalendarHandler
	backup        *handlers.BackupHandler
	classify      *handlers.ClassifyHandler
	notifications *handlers.NotificationHandler
	sessions      middleware.SessionResolver
}

type crud interface {
	List(c *gin.Context)
	Get(c *gin.Context)
	Create(c *gin.Context)
	Update(c *gin.Context)
	Delete(c *gin.Context)
}

func mountCRUD(group *gin.RouterGroup, h crud) {
	group.GET("", h.List)
	group.POST("", h.Create)
	group.GET("/:id", h.Get)
	group.PUT("/:id", h.Update)
	group.DELETE("/:id", h.Delete)
}

func newRouter(r routes) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")

	// Public routes
	auth := v1.Group("/auth")
	auth.POST("/register", r.auth.Register)
	auth.POST("/login", r.auth.Login)
	auth.POST("/refresh", r.auth.Refresh)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())
	protected.POST("/auth/logout", r.auth.Logout)
	protected.GET("/profile", r.auth.GetProfile)

	// Engine routes run against the caller's session.
	api := protected.Group("/")
	api.Use(middleware.SessionMiddleware(r.sessions))

	mountCRUD(api.Group("/incomes"), r.incomes)
	mountCRUD(api.Group("/expenses"), r.expenses)
	mountCRUD(api.Group("/clients"), r.clients)
	invoices := api.Group("/invoices")
	mountCRUD(invoices, r.invoices)
	invoices.PUT("/:id/status", r.invoiceStatus.UpdateStatus)
	api.GET("/invoices-by-status/:status", r.invoiceStatus.ListByStatus)

	api.GET("/dashboard", r.dashboard.GetDashboard)
	api.GET("/transactions/recent", r.dashboard.GetRecent)

	cal := api.Group("/calendar")
	cal.GET("/events", r.calendar.GetEvents)
	cal.GET("/reminders", r.calendar.GetReminders)
	cal.GET("/export.ics", r.calendar.ExportICS)
	cal.GET("/export.json", r.calendar.ExportJSON)
	cal.POST("/import", r.calendar.Import)

	api.GET("/backup", r.backup.Export)
	api.POST("/backup", r.backup.Restore)
	api.GET("/reports", r.backup.Report)

	cls := api.Group("/classify")
	cls.POST("", r.classify.Classify)
	cls.POST("/suggest", r.classify.Suggest)
	cls.POST("/learn", r.classify.Learn)
	cls.GET("/categories", r.classify.GetCategories)
	cls.GET("/categories/:id/keywords", r.classify.GetKeywords)

	api.GET("/notifications", r.notifications.List)
	api.DELETE("/notifications", r.notifications.Clear)

	return router
}
