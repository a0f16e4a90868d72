package config

import (
	"os"
	"strconv"
	"time"
)

type GatewayConfig struct {
	// BaseURL is the hosted payment page the customer is redirected to.
	BaseURL string

	// MerchantCode identifies this marketplace at the gateway.
	MerchantCode string

	// Secret is the shared HMAC-SHA512 signing key.
	Secret string

	// ReturnURL is where the gateway sends the customer's browser back.
	ReturnURL string

	// PayWindow bounds how long an issued payment URL stays valid.
	PayWindow time.Duration
}

type Config struct {
	// Server configuration
	Port        string
	Environment string

	// Redis configuration
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// PubNub configuration (downstream notification fan-out)
	PubNubPublishKey   string
	PubNubSubscribeKey string
	PubNubSecretKey    string

	// Payment gateway
	Gateway GatewayConfig

	// Order expiry
	OrderExpiryWindow  time.Duration
	OrderSweepInterval time.Duration
	EventSweepInterval time.Duration

	// Availability cache
	AvailabilityCacheTTL time.Duration

	// Rate limiting
	OrderRateLimit  int
	OrderRateWindow time.Duration

	// Monitoring
	EnableMetrics bool
}

func LoadConfig() *Config {
	return &Config{
		// Server
		Port:        getEnv("PORT", "8090"),
		Environment: getEnv("ENVIRONMENT", "development"),

		// Redis
		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		// PubNub
		PubNubPublishKey:   getEnv("PUBNUB_PUBLISH_KEY", ""),
		PubNubSubscribeKey: getEnv("PUBNUB_SUBSCRIBE_KEY", ""),
		PubNubSecretKey:    getEnv("PUBNUB_SECRET_KEY", ""),

		// Gateway
		Gateway: GatewayConfig{
			BaseURL:      getEnv("GATEWAY_BASE_URL", "https://sandbox.gateway.example/paymentv2/vpcpay.html"),
			MerchantCode: getEnv("GATEWAY_MERCHANT_CODE", ""),
			Secret:       getEnv("GATEWAY_SECRET", ""),
			ReturnURL:    getEnv("GATEWAY_RETURN_URL", "http://localhost:8090/api/v1/payment/return"),
			PayWindow:    getEnvAsDuration("GATEWAY_PAY_WINDOW", "15m"),
		},

		// Sweeps
		OrderExpiryWindow:  getEnvAsDuration("ORDER_EXPIRY_WINDOW", "15m"),
		OrderSweepInterval: getEnvAsDuration("ORDER_SWEEP_INTERVAL", "1m"),
		EventSweepInterval: getEnvAsDuration("EVENT_SWEEP_INTERVAL", "5m"),

		// Availability cache
		AvailabilityCacheTTL: getEnvAsDuration("AVAILABILITY_CACHE_TTL", "5s"),

		// Rate limiting
		OrderRateLimit:  getEnvAsInt("ORDER_RATE_LIMIT", 30),
		OrderRateWindow: getEnvAsDuration("ORDER_RATE_WINDOW", "1m"),

		// Monitoring
		EnableMetrics: getEnvAsBool("ENABLE_METRICS", true),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	// If parsing fails, try to parse default value
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
