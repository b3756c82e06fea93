package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	v1 "github.com/ticketero-io/ticketero/internal/api/v1"
	"github.com/ticketero-io/ticketero/internal/cache"
	"github.com/ticketero-io/ticketero/internal/config"
	"github.com/ticketero-io/ticketero/internal/database"
	"github.com/ticketero-io/ticketero/internal/notifications"
	"github.com/ticketero-io/ticketero/internal/repository"
	"github.com/ticketero-io/ticketero/internal/service"
	"github.com/ticketero-io/ticketero/internal/service/ticket_number"
	"github.com/ticketero-io/ticketero/internal/services/scheduler"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the background scheduler",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := log.New(os.Stdout, "ticketero ", log.LstdFlags)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	os.Setenv("DB_DRIVER", cfg.Database.Driver)

	db, err := database.Open(cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()

	ticketRepo := repository.NewTicketRepository(db)
	advisorRepo := repository.NewAdvisorRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	var redisCache *cache.RedisCache
	if cfg.Redis.Enabled {
		redisCache, err = cache.NewRedisCache(cmd.Context(), cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer redisCache.Close()
	}

	sender := notifications.NewTelegramSender(notifications.TelegramConfig{
		BotToken:   cfg.Telegram.BotToken,
		APIBaseURL: cfg.Telegram.APIBaseURL,
		Timeout:    cfg.Telegram.Timeout(),
	})

	auditSvc := service.NewAuditService(auditRepo, logger)
	notifySvc := service.NewNotificationService(messageRepo, ticketRepo, sender, auditSvc, logger)
	numbers := ticket_number.NewGenerator(ticketRepo, logger, nil)
	ticketSvc := service.NewTicketService(ticketRepo, advisorRepo, numbers, notifySvc, auditSvc, logger)
	assignmentSvc := service.NewAssignmentService(ticketRepo, advisorRepo, notifySvc, auditSvc, logger)
	advisorSvc := service.NewAdvisorService(advisorRepo, assignmentSvc, auditSvc, logger)

	var summaryCache service.SummaryCache
	if redisCache != nil {
		summaryCache = redisCache
	}
	dashboardSvc := service.NewDashboardService(ticketRepo, advisorRepo, messageRepo, summaryCache, logger)

	schedOpts := []scheduler.Option{
		scheduler.WithLogger(logger),
		scheduler.WithTicketSweeper(ticketSvc),
		scheduler.WithQueueDispatcher(assignmentSvc),
		scheduler.WithMessageDispatcher(notifySvc),
		scheduler.WithJobs(scheduler.DefaultJobs(cfg.Scheduler.DispatchBatchLimit, cfg.Scheduler.RetentionDays)),
	}
	if redisCache != nil {
		schedOpts = append(schedOpts, scheduler.WithCache(redisCache))
	}
	sched := scheduler.NewService(schedOpts...)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router := v1.NewAPIRouter(ticketSvc, advisorSvc, assignmentSvc, dashboardSvc, auditSvc, logger)
	router.RegisterRoutes(engine)

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Printf("listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case sig := <-quit:
		logger.Printf("received %s, shutting down", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := sched.Stop(shutdownCtx); err != nil {
		logger.Printf("scheduler stop: %v", err)
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
