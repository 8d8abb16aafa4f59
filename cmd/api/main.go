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

	"finora/internal/amqp"
	"finora/internal/cache"
	"finora/internal/calendar"
	"finora/internal/config"
	"finora/internal/database"
	"finora/internal/events"
	"finora/internal/gateway"
	"finora/internal/handlers"
	"finora/internal/logger"
	"finora/internal/notify"
	"finora/internal/services"
	"finora/internal/session"
	"finora/internal/validator"
)

const (
	inboxLimit       = 100
	firedFlagTTL     = 90 * 24 * time.Hour
	shutdownDeadline = 15 * time.Second
)

// @title           Finora API
// @version         1.0
// @description     Finora tracks freelance incomes, expenses, clients and invoices with optimistic writes, derived invoices and a payment calendar.

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	dbManager, err := database.NewManager(cfg)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer dbManager.Close()

	if err := dbManager.Migrate(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}
	db := dbManager.DB()

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Notifications always land in the inbox and the log; AMQP is optional.
	inbox := notify.NewInbox(inboxLimit)
	notifiers := notify.Multi{inbox, notify.NewLogNotifier()}
	var sinks []events.Sink
	if cfg.AMQPURL != "" {
		broker, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			return fmt.Errorf("failed to connect to message broker: %w", err)
		}
		defer broker.Close()
		notifiers = append(notifiers, notify.NewAMQPNotifier(broker))
		sinks = append(sinks, events.NewAMQPSink(broker))
		log.Infof("Publishing events to exchange %s", cfg.AMQPExchange)
	}

	var fired calendar.FiredStore = calendar.NewMemoryFiredStore()
	if cfg.RedisAddr != "" {
		rdb, err := cache.New(rootCtx, cfg.RedisAddr)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer rdb.Close()
		fired = calendar.NewRedisFiredStore(rdb, firedFlagTTL)
		log.Infof("Reminder state stored in redis at %s", cfg.RedisAddr)
	}

	gateways := gateway.NewGormGateways(db)
	sessions := session.NewManager(session.Deps{
		Gateways:   gateways,
		Notifier:   notifiers,
		Sinks:      sinks,
		FiredStore: fired,
		Calendar: calendar.Options{
			LeadDays:     cfg.ReminderLeadDays,
			ReminderHour: cfg.ReminderHour,
			Location:     cfg.Location(),
		},
		OverdueInterval:  cfg.OverdueSweepInterval,
		ReminderInterval: cfg.ReminderSweepInterval,
		MaxKeywords:      cfg.MaxKeywordsPerCategory,
	})

	validator.Register()

	// Initialize services
	userService := services.NewUserService(db)
	auditService := services.NewAuditService(db)

	router := newRouter(routes{
		auth:          handlers.NewAuthHandler(userService, auditService, sessions),
		incomes:       handlers.NewIncomeHandler(),
		expenses:      handlers.NewExpenseHandler(),
		clients:       handlers.NewClientHandler(),
		invoices:      handlers.NewInvoiceRecordHandler(),
		invoiceStatus: handlers.NewInvoiceHandler(auditService),
		dashboard:     handlers.NewDashboardHandler(),
		calendar:      handlers.NewCalendarHandler(auditService),
		backup:        handlers.NewBackupHandler(gateways, db, auditService),
		classify:      handlers.NewClassifyHandler(),
		notifications: handlers.NewNotificationHandler(inbox),
		sessions:      sessions,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Infof("Starting finora server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-rootCtx.Done():
		log.Info("Shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownDeadline)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("HTTP shutdown error: %v", err)
	}
	// Sessions settle their in-flight writes before the broker and database close.
	if err := sessions.Shutdown(ctx); err != nil {
		log.Errorf("Session shutdown error: %v", err)
	}
	log.Info("Server stopped")
	return nil
}
