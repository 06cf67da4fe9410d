package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vhvplatform/go-recovery-notifier/internal/apiclient"
	"github.com/vhvplatform/go-recovery-notifier/internal/consumer"
	"github.com/vhvplatform/go-recovery-notifier/internal/handler"
	"github.com/vhvplatform/go-recovery-notifier/internal/middleware"
	"github.com/vhvplatform/go-recovery-notifier/internal/service"
	"github.com/vhvplatform/go-recovery-notifier/internal/shared/config"
	"github.com/vhvplatform/go-recovery-notifier/internal/shared/logger"
	"github.com/vhvplatform/go-recovery-notifier/internal/shared/rabbitmq"
	"github.com/vhvplatform/go-recovery-notifier/internal/smtp"
)

func main() {
	log := logger.NewLogger()
	defer log.Sync()

	log.Info("Starting Recovery Notifier...")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load configuration", "error", err)
	}

	// Backend API client
	apiClient := apiclient.NewClient(cfg.API.ResolveBaseURL(), log.With("component", "apiclient"))
	log.Info("Backend API configured", "platform", cfg.API.Platform, "base_url", apiClient.BaseURL())

	// Email notifier
	sender := smtp.NewSender(smtp.SMTPConfig{
		Host:     cfg.Mail.Host,
		Port:     cfg.Mail.Port,
		Username: cfg.Mail.Username,
		Password: cfg.Mail.Password,
	})
	emailService := service.NewEmailService(service.EmailConfig{
		Username: cfg.Mail.Username,
		Password: cfg.Mail.Password,
		From:     cfg.Mail.From,
	}, sender, service.NewMailLog(cfg.Mail.LogPath), log.With("component", "email"))

	if !cfg.Mail.HasCredentials() {
		log.Warn("Mail credentials not configured, emails will be skipped")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Auth event consumer
	if cfg.RabbitMQ.Enabled {
		rabbitMQClient, err := rabbitmq.NewRabbitMQClient(cfg.RabbitMQ.URL)
		if err != nil {
			log.Fatal("Failed to connect to RabbitMQ", "error", err)
		}
		defer rabbitMQClient.Close()

		eventConsumer := consumer.NewEventConsumer(rabbitMQClient, emailService, log.With("component", "consumer"))
		go func() {
			if err := eventConsumer.Start(ctx); err != nil {
				log.Error("Event consumer stopped", "error", err)
			}
		}()
	}

	notificationHandler := handler.NewNotificationHandler(emailService, log)
	accountHandler := handler.NewAccountHandler(apiClient, emailService, log)
	rateLimiter := middleware.NewClientRateLimiter(cfg.Server.RateLimit, cfg.Server.RateBurst)
	go rateLimiter.StartCleanup(ctx, time.Minute, 10*time.Minute)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.Logger())

	router.GET("/health", handler.Health)
	router.GET("/ready", handler.Ready)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.NoRoute(handler.NotFound)

	v1 := router.Group("/api/v1")
	v1.Use(middleware.RateLimitMiddleware(rateLimiter))
	{
		v1.POST("/notifications/email", notificationHandler.SendEmail)
		v1.POST("/auth/change-password", accountHandler.ChangePassword)
		v1.GET("/recovery-guides/:id", accountHandler.GetRecoveryGuide)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Info("Recovery Notifier started", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down Recovery Notifier...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	log.Info("Recovery Notifier stopped")
}
