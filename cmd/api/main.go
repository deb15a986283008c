package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/clinicflow/clinicflow/internal/api/router"
	"github.com/clinicflow/clinicflow/internal/calendar"
	appconfig "github.com/clinicflow/clinicflow/internal/config"
	"github.com/clinicflow/clinicflow/internal/conversation"
	"github.com/clinicflow/clinicflow/internal/directory"
	"github.com/clinicflow/clinicflow/internal/notify"
	"github.com/clinicflow/clinicflow/internal/observability/metrics"
	"github.com/clinicflow/clinicflow/internal/scheduling"
	"github.com/clinicflow/clinicflow/internal/triage"
	"github.com/clinicflow/clinicflow/internal/webchat"
	"github.com/clinicflow/clinicflow/pkg/logging"
)

func main() {
	// Load .env in development; ignored when absent.
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting clinicflow API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"demo_mode", cfg.DemoMode,
	)

	ctx := context.Background()

	loc, err := time.LoadLocation(cfg.CalendarTimezone)
	if err != nil {
		logger.Error("invalid calendar timezone", "error", err, "timezone", cfg.CalendarTimezone)
		os.Exit(1)
	}

	// Specialist roster: file-backed when configured, otherwise built-in.
	dir := directory.Default()
	if cfg.SpecialistDirectoryFile != "" {
		dir, err = directory.LoadFile(cfg.SpecialistDirectoryFile, directory.CategoryGeneralPractitioner)
		if err != nil {
			logger.Error("failed to load specialist directory", "error", err, "path", cfg.SpecialistDirectoryFile)
			os.Exit(1)
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	schedMetrics := metrics.NewSchedulingMetrics(registry)

	// Symptom triage: live Gemini unless demo mode is on.
	var llm triage.LLMClient
	if cfg.DemoMode {
		llm = triage.NewDemoClient()
	} else {
		gemini, err := triage.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
		if err != nil {
			logger.Error("failed to create Gemini client", "error", err)
			os.Exit(1)
		}
		defer gemini.Close()
		llm = gemini
	}
	classifier := triage.NewClassifier(llm, dir, logger.Component("triage"))

	// Calendar provider: Google Calendar unless demo mode is on.
	var provider calendar.Provider
	if cfg.DemoMode {
		provider = calendar.NewFake()
	} else {
		google, err := calendar.NewGoogleProvider(ctx, cfg.GoogleCredentialsFile, cfg.CalendarTimezone, logger.Component("calendar"))
		if err != nil {
			logger.Error("failed to create Google Calendar provider", "error", err)
			os.Exit(1)
		}
		provider = google
	}

	template := scheduling.AvailabilityTemplate{
		OpenHour:   cfg.ClinicOpenHour,
		CloseHour:  cfg.ClinicCloseHour,
		SlotLength: cfg.SlotLength,
		Location:   loc,
	}
	selector := scheduling.NewSelector(provider, template, schedMetrics, logger.Component("scheduling"))

	// Confirmation email: SendGrid when configured, log-only otherwise.
	var emailSender notify.EmailSender
	if sg := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.SendGridFromEmail,
		FromName:  cfg.SendGridFromName,
	}, logger.Component("notify")); sg != nil {
		emailSender = sg
	} else {
		logger.Warn("SendGrid not configured, confirmation emails will only be logged")
		emailSender = notify.NewStubEmailSender(logger.Component("notify"))
	}
	notifier := notify.NewService(emailSender, loc, logger.Component("notify"))

	booker := scheduling.NewBooker(provider, notifier, cfg.CalendarTimezone, schedMetrics, logger.Component("scheduling"))

	// Session store: Redis when configured, in-process otherwise.
	var store conversation.SessionStore = conversation.NewMemoryStore()
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Error("failed to connect to Redis", "error", err, "addr", cfg.RedisAddr)
			os.Exit(1)
		}
		defer client.Close()
		store = conversation.NewRedisStore(client, cfg.SessionTTL, nil)
		logger.Info("using Redis session store", "addr", cfg.RedisAddr)
	}

	controller := conversation.NewController(conversation.ControllerConfig{
		Classifier:      classifier,
		Directory:       dir,
		Selector:        selector,
		Booker:          booker,
		Store:           store,
		ProviderTimeout: cfg.ProviderTimeout,
		WindowDays:      cfg.BookingWindowDays,
		Metrics:         schedMetrics,
		Logger:          logger.Component("conversation"),
	})

	chatHandler := webchat.NewHandler(controller, nil, logger.Component("webchat"))

	r := router.New(&router.Config{
		Logger:             logger,
		ChatHandler:        chatHandler,
		MetricsHandler:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		ChatRateLimit:      5,
		ChatRateBurst:      10,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // chat turns include outbound provider calls
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
