package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fjod/soundpack-store/internal/config"
	"github.com/fjod/soundpack-store/internal/payment"
	"github.com/fjod/soundpack-store/pkg/logger"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	cfg, err := config.LoadPaymentService()
	if err != nil {
		logger.New("payment-service", "info").Error("invalid configuration", "err", err)
		os.Exit(1)
	}
	log := logger.New("payment-service", cfg.LogLevel)

	intents, err := payment.NewIntentService(cfg.StripeSecretKey, cfg.Currency, log)
	if err != nil {
		log.Error("stripe misconfigured", "err", err)
		os.Exit(1)
	}

	var publisher payment.EventPublisher
	if len(cfg.KafkaBrokers) > 0 {
		kp := payment.NewKafkaPublisher(cfg.KafkaTopic, cfg.KafkaBrokers...)
		defer func() {
			if err := kp.Close(); err != nil {
				log.Error("error closing kafka writer", "err", err)
			}
		}()
		publisher = kp
		log.Info("publishing payment events", "topic", cfg.KafkaTopic)
	}

	webhooks, err := payment.NewWebhookHandler(cfg.StripeWebhookSecret, publisher, log)
	if err != nil {
		log.Error("webhook misconfigured", "err", err)
		os.Exit(1)
	}

	router := payment.NewRouter(payment.NewIntentHandler(intents, cfg.RequestTimeout, log), webhooks, cfg.RequestTimeout)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(router, "payment-service"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("payment service listening", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down payment service")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server forced to shutdown", "err", err)
	}
	log.Info("payment service stopped")
}
