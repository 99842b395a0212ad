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

	"github.com/oakwell/portal-api/internal/api/router"
	"github.com/oakwell/portal-api/internal/availability"
	"github.com/oakwell/portal-api/internal/booking"
	appconfig "github.com/oakwell/portal-api/internal/config"
	"github.com/oakwell/portal-api/internal/ehr"
	"github.com/oakwell/portal-api/internal/http/handlers"
	"github.com/oakwell/portal-api/internal/messages"
	"github.com/oakwell/portal-api/internal/notify"
	"github.com/oakwell/portal-api/internal/observability/metrics"
	"github.com/oakwell/portal-api/internal/payments"
	"github.com/oakwell/portal-api/internal/selection"
	"github.com/oakwell/portal-api/pkg/logging"
)

func main() {
	// .env is optional; real deployments use the environment directly.
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting portal API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logger.Error("redis unreachable", "error", err, "addr", cfg.RedisAddr)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	bookingMetrics := metrics.NewBookingMetrics(reg)

	ehrClient := ehr.NewClient(cfg.EHRBaseURL, cfg.EHRAPIKey, logger.WithComponent("ehr"),
		ehr.WithTimeout(cfg.EHRTimeout))
	gateway := payments.NewClient(cfg.PaymentBaseURL, cfg.PaymentSecretKey, cfg.PaymentCurrency,
		logger.WithComponent("payments")).WithDryRun(cfg.PaymentDryRun)

	emailSender := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.SendGridFromEmail,
		FromName:  cfg.SendGridFromName,
	}, logger.WithComponent("notify"))
	var notifier *notify.Service
	if emailSender != nil {
		notifier = notify.NewService(emailSender, logger.WithComponent("notify"))
	} else {
		logger.Warn("SENDGRID_API_KEY not set, confirmation emails disabled")
		notifier = notify.NewService(nil, logger.WithComponent("notify"))
	}

	selections := selection.NewStore(redisClient, cfg.SelectionTTL)
	pendings := booking.NewStore(redisClient, cfg.SelectionTTL, cfg.BookingLockTTL)
	resolver := availability.NewResolver(ehrClient, logger.WithComponent("availability"))
	flow := booking.NewOrchestrator(ehrClient, gateway, notifier, pendings, bookingMetrics, logger.WithComponent("booking"))
	relay := messages.NewRelay(redisClient, logger.WithComponent("messages"))

	r := router.New(&router.Config{
		Logger:             logger,
		Booking:            handlers.NewBookingHandler(selections, pendings, resolver, flow, ehrClient, bookingMetrics, logger.WithComponent("booking")),
		Catalog:            handlers.NewCatalogHandler(ehrClient, selections, logger.WithComponent("catalog")),
		Appointments:       handlers.NewAppointmentsHandler(ehrClient, logger.WithComponent("appointments")),
		MessageRelay:       relay,
		MetricsHandler:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		PatientJWTSecret:   cfg.PatientJWTSecret,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("forced shutdown", "error", err)
		os.Exit(1)
	}
	if err := redisClient.Close(); err != nil {
		logger.Error("redis close failed", "error", err)
	}

	logger.Info("server stopped")
}
