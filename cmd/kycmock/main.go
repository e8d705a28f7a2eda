// ==============================================================================
// DEVELOPMENT BACKEND - cmd/kycmock/main.go
// ==============================================================================
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"launchkart/internal/middleware"
	"launchkart/internal/mockapi"
	"launchkart/pkg/config"
	"launchkart/pkg/logger"
	"launchkart/pkg/mailer"
	"launchkart/pkg/validator"
)

func main() {
	// Load configuration
	cfg := config.Load()
	mockCfg := config.LoadMockConfig()

	// Initialize logger
	log := logger.NewWithCore("kycmock", cfg.IsDevelopment())
	defer log.Sync()

	if err := cfg.ValidateServer(); err != nil {
		log.Fatal("Invalid configuration", map[string]interface{}{"error": err.Error()})
	}

	store, err := mockapi.NewDemoStore(mockCfg.DemoPassword)
	if err != nil {
		log.Fatal("Failed to seed demo accounts", map[string]interface{}{"error": err.Error()})
	}

	opts := mockapi.Options{
		JWTSecret:           cfg.JWT.Secret,
		JWTExpiry:           cfg.JWT.Expiration,
		AutoApprove:         mockCfg.AutoApprove,
		MaxUploadBytes:      cfg.Upload.MaxImageBytes,
		VideoBaseURL:        mockCfg.VideoBaseURL,
		SessionTTL:          mockCfg.SessionTTL,
		PublicURL:           mockCfg.PublicURL,
		VerificationTimeout: mockCfg.VerificationTimeout,
		CORSOrigins:         mockCfg.CORSOrigins,
	}

	// Configure email verification
	mailCfg := mailer.Config{
		Host:     cfg.Email.SMTPHost,
		Port:     cfg.Email.SMTPPort,
		Username: cfg.Email.SMTPUsername,
		Password: cfg.Email.SMTPPassword,
		From:     cfg.Email.SMTPFrom,
		UseTLS:   cfg.Email.SMTPUseTLS,
	}
	if mailCfg.Enabled() {
		m, err := mailer.New(mailCfg)
		if err != nil {
			log.Fatal("Failed to configure mailer", map[string]interface{}{"error": err.Error()})
		}
		opts.Mailer = m
	} else {
		log.Warn("SMTP not configured, verification links will be logged", nil)
	}

	// Connect to Redis
	if mockCfg.RateLimitEnabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.URL,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Fatal("Failed to connect to Redis", map[string]interface{}{"error": err.Error()})
		}
		defer redisClient.Close()
		opts.RateLimiter = middleware.NewRateLimiter(redisClient, mockCfg.VerifyAttempts, mockCfg.VerifyWindow)
	}

	if mockCfg.MetricsEnabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		opts.Registry = reg
	}

	server := mockapi.New(store, opts, validator.New(), log)

	// Start server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      server.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Graceful shutdown
	go func() {
		log.Info("KYC development backend starting", map[string]interface{}{
			"port":         cfg.Server.Port,
			"auto_approve": mockCfg.AutoApprove,
			"rate_limited": mockCfg.RateLimitEnabled,
		})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed", map[string]interface{}{"error": err.Error()})
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", map[string]interface{}{"error": err.Error()})
	}

	log.Info("Server stopped", nil)
}
