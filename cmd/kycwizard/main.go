// ==============================================================================
// KYC WIZARD - cmd/kycwizard/main.go
// ==============================================================================
package main

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"launchkart/internal/auth"
	"launchkart/internal/kyc"
	"launchkart/internal/notification"
	"launchkart/internal/session"
	"launchkart/pkg/cache"
	"launchkart/pkg/config"
	"launchkart/pkg/logger"
	"launchkart/pkg/validator"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Logs go to stderr so they never interleave with the wizard on stdout.
	log := logger.NewWithCore("kycwizard", cfg.IsDevelopment())
	defer log.Sync()

	if err := cfg.ValidateClient(); err != nil {
		log.Fatal("Invalid configuration", map[string]interface{}{"error": err.Error()})
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var store session.Store = session.NewMemoryStore()
	if cfg.Session.Backend == "redis" {
		c, err := cache.NewRedisCache(ctx, cfg.Redis.URL, cfg.Redis.Password, cfg.Redis.DB, "launchkart")
		if err != nil {
			log.Fatal("Failed to connect to Redis", map[string]interface{}{"error": err.Error()})
		}
		defer c.Close()
		store = session.NewRedisStore(c, cfg.Session.Key)
	}

	val := validator.New()
	httpClient := &http.Client{Timeout: cfg.API.Timeout}
	sessions := session.NewManager(store, cfg.Session.TTL, log)

	sh := &shell{
		out:       os.Stdout,
		log:       log,
		sessions:  sessions,
		auth:      auth.NewClient(cfg.API.BaseURL, httpClient, sessions, val, log),
		api:       kyc.NewClient(cfg.API.BaseURL, httpClient, sessions, log),
		otp:       kyc.NewSimulatedOTPSender(cfg.OTP.Issuer, cfg.OTP.Delay, log),
		center:    notification.NewCenter(log),
		validator: val,
		maxImage:  cfg.Upload.MaxImageBytes,
	}
	defer sh.closeWizard()

	fmt.Fprintln(sh.out, "LaunchKart KYC. Type 'help' for commands.")
	sh.resume(ctx)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		fmt.Fprint(sh.out, "kyc> ")
		select {
		case <-ctx.Done():
			fmt.Fprintln(sh.out)
			return
		case line, ok := <-lines:
			if !ok {
				fmt.Fprintln(sh.out)
				return
			}
			if sh.exec(ctx, line) {
				return
			}
		}
	}
}
