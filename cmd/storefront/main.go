package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fjod/soundpack-store/internal/cache"
	"github.com/fjod/soundpack-store/internal/catalog"
	"github.com/fjod/soundpack-store/internal/checkout"
	"github.com/fjod/soundpack-store/internal/config"
	"github.com/fjod/soundpack-store/internal/contact"
	h "github.com/fjod/soundpack-store/internal/http"
	"github.com/fjod/soundpack-store/internal/poller"
	"github.com/fjod/soundpack-store/internal/pricing"
	"github.com/fjod/soundpack-store/internal/repository"
	"github.com/fjod/soundpack-store/internal/service"
	"github.com/fjod/soundpack-store/pkg/logger"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const sweepInterval = time.Minute

func main() {
	cfg, err := config.LoadStorefront()
	if err != nil {
		logger.New("storefront", "info").Error("invalid configuration", "err", err)
		os.Exit(1)
	}
	log := logger.New("storefront", cfg.LogLevel)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	defer redisClient.Close()

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		pingCancel()
		log.Error("failed to connect to redis", "addr", cfg.RedisAddr, "err", err)
		os.Exit(1)
	}
	pingCancel()

	carts := service.NewCartService(repository.NewRedisRepository(redisClient, cfg.CartTTL), log)

	sanity := catalog.NewSanityClient(catalog.SanityConfig{
		ProjectID:  cfg.SanityProjectID,
		Dataset:    cfg.SanityDataset,
		APIVersion: cfg.SanityAPIVersion,
		Token:      cfg.SanityToken,
	}, nil)
	products := service.NewCatalogService(sanity, cache.NewRedisCache(redisClient, cfg.CatalogTTL), log)

	backend := checkout.NewBackendClient(cfg.PaymentBackendURL, cfg.PaymentTimeout)
	sessions := checkout.NewRegistry(backend, carts, pricing.Default(), cfg.SessionTTL, log)
	unsubscribe := carts.Subscribe(sessions.OnCartChanged)
	defer unsubscribe()

	mailer, err := contact.NewMailer(contact.Config{
		ServiceID:  cfg.EmailJSServiceID,
		TemplateID: cfg.EmailJSTemplateID,
		PublicKey:  cfg.EmailJSPublicKey,
		PrivateKey: cfg.EmailJSPrivateKey,
		Recipient:  cfg.ContactRecipient,
	}, nil, log)
	if err != nil {
		log.Error("contact relay misconfigured", "err", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go sessions.Run(ctx, sweepInterval)

	if len(cfg.KafkaBrokers) > 0 {
		p := poller.NewPoller(carts, log, cfg.KafkaTopic, cfg.KafkaBrokers...)
		defer p.Close()
		go p.Run(ctx)
		log.Info("payment event consumer started", "topic", cfg.KafkaTopic)
	}

	router := h.NewRouter(h.RouterConfig{
		RequestTimeout:     cfg.RequestTimeout,
		SessionTTL:         cfg.CartTTL,
		MaxRequestBodySize: cfg.MaxRequestBodySize,
		SecureCookies:      cfg.SecureCookies,
	}, h.Handlers{
		Products: h.NewProductHandler(products, cfg.RequestTimeout, log),
		Cart:     h.NewCartHandler(carts, products, cfg.RequestTimeout, log),
		Checkout: h.NewCheckoutHandler(carts, sessions, cfg.CheckoutReturnURL, cfg.PaymentTimeout+5*time.Second, log),
		Contact:  h.NewContactHandler(mailer, cfg.RequestTimeout, log),
	}, log)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(router, "storefront"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("storefront starting", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "err", err)
	}
	log.Info("server exited")
}
