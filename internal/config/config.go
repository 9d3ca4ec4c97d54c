package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
)

var ErrConfigurationMissing = errors.New("required configuration is missing")

type Storefront struct {
	HTTPPort           string
	LogLevel           string
	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
	MaxRequestBodySize int64

	RedisAddr     string
	RedisPassword string
	CartTTL       time.Duration
	CatalogTTL    time.Duration
	SessionTTL    time.Duration

	PaymentBackendURL string
	PaymentTimeout    time.Duration
	CheckoutReturnURL string
	SecureCookies     bool

	SanityProjectID  string
	SanityDataset    string
	SanityAPIVersion string
	SanityToken      string

	EmailJSServiceID  string
	EmailJSTemplateID string
	EmailJSPublicKey  string
	EmailJSPrivateKey string
	ContactRecipient  string

	KafkaBrokers []string
	KafkaTopic   string
}

type PaymentService struct {
	HTTPPort        string
	LogLevel        string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration

	StripeSecretKey     string
	StripeWebhookSecret string
	Currency            string

	KafkaBrokers []string
	KafkaTopic   string
}

func LoadStorefront() (*Storefront, error) {
	cfg := &Storefront{
		HTTPPort:           getEnv("HTTP_PORT", "8080"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		RequestTimeout:     getDuration("REQUEST_TIMEOUT", 30*time.Second),
		ShutdownTimeout:    getDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		MaxRequestBodySize: 1 << 20, // 1MB
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		CartTTL:            getDuration("CART_TTL", 12*time.Hour),
		CatalogTTL:         getDuration("CATALOG_TTL", 5*time.Minute),
		SessionTTL:         getDuration("CHECKOUT_SESSION_TTL", 30*time.Minute),
		PaymentBackendURL:  getEnv("PAYMENT_BACKEND_URL", "http://localhost:8081/api/create-payment-intent"),
		PaymentTimeout:     getDuration("PAYMENT_TIMEOUT", 10*time.Second),
		CheckoutReturnURL:  getEnv("CHECKOUT_RETURN_URL", "/checkout/success"),
		SecureCookies:      getEnv("SECURE_COOKIES", "false") == "true",
		SanityProjectID:    os.Getenv("SANITY_PROJECT_ID"),
		SanityDataset:      getEnv("SANITY_DATASET", "production"),
		SanityAPIVersion:   getEnv("SANITY_API_VERSION", "2024-01-01"),
		SanityToken:        os.Getenv("SANITY_AUTH_TOKEN"),
		EmailJSServiceID:   os.Getenv("EMAILJS_SERVICE_ID"),
		EmailJSTemplateID:  os.Getenv("EMAILJS_TEMPLATE_ID"),
		EmailJSPublicKey:   os.Getenv("EMAILJS_PUBLIC_KEY"),
		EmailJSPrivateKey:  os.Getenv("EMAILJS_PRIVATE_KEY"),
		ContactRecipient:   os.Getenv("CONTACT_RECIPIENT"),
		KafkaBrokers:       getList("KAFKA_BROKERS"),
		KafkaTopic:         getEnv("KAFKA_TOPIC", "payment-events"),
	}

	if err := requireSet(map[string]string{
		"SANITY_PROJECT_ID":   cfg.SanityProjectID,
		"EMAILJS_SERVICE_ID":  cfg.EmailJSServiceID,
		"EMAILJS_TEMPLATE_ID": cfg.EmailJSTemplateID,
		"EMAILJS_PUBLIC_KEY":  cfg.EmailJSPublicKey,
	}); err != nil {
		return nil, err
	}
	return cfg, nil
}

func LoadPaymentService() (*PaymentService, error) {
	cfg := &PaymentService{
		HTTPPort:            getEnv("HTTP_PORT", "8081"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		RequestTimeout:      getDuration("REQUEST_TIMEOUT", 30*time.Second),
		ShutdownTimeout:     getDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		Currency:            "eur",
		KafkaBrokers:        getList("KAFKA_BROKERS"),
		KafkaTopic:          getEnv("KAFKA_TOPIC", "payment-events"),
	}

	if err := requireSet(map[string]string{
		"STRIPE_SECRET_KEY":     cfg.StripeSecretKey,
		"STRIPE_WEBHOOK_SECRET": cfg.StripeWebhookSecret,
	}); err != nil {
		return nil, err
	}
	return cfg, nil
}

func requireSet(values map[string]string) error {
	var missing []string
	for k, v := range values {
		if v == "" {
			missing = append(missing, k)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	slices.Sort(missing)
	return fmt.Errorf("%w: %s", ErrConfigurationMissing, strings.Join(missing, ", "))
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func getList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
