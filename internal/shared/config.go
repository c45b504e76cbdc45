package shared

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	LogLevel    string
	HTTPAddr    string
	MetricsAddr string
	MySQLDSN    string
	RedisAddr   string
	RedisDB     int
	RedisPass   string
	AMQPURL     string

	BackendBase         string
	BackendRPS          int
	BackendServiceToken string

	ProcessorBase           string
	ProcessorPublishableKey string

	CacheTTL          time.Duration
	PaymentSessionTTL time.Duration
	ReconcileWorkers  int
	ReconcileBatch    int
}

// Load reads the environment. Files named in files are loaded first when
// they exist; variables already set win over file values.
func Load(files ...string) Config {
	if len(files) == 0 {
		files = []string{".env.local", ".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			log.Warn().Err(err).Str("file", f).Msg("env file not loaded")
		}
	}

	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		LogLevel:    env("LOG_LEVEL", "info"),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		MetricsAddr: env("METRICS_ADDR", ":9100"),
		MySQLDSN:    env("MYSQL_DSN", ""),
		RedisAddr:   env("REDIS_ADDR", "localhost:6379"),
		RedisPass:   env("REDIS_PASSWORD", ""),
		RedisDB:     atoi("REDIS_DB", 0),
		AMQPURL:     env("AMQP_URL", ""),

		BackendBase:         env("BACKEND_BASE_URL", "http://localhost:5000"),
		BackendRPS:          atoi("BACKEND_RPS", 10),
		BackendServiceToken: env("BACKEND_SERVICE_TOKEN", ""),

		ProcessorBase:           env("PROCESSOR_BASE_URL", "https://api.stripe.com"),
		ProcessorPublishableKey: env("PROCESSOR_PUBLISHABLE_KEY", ""),

		CacheTTL:          time.Duration(atoi("CACHE_TTL_SECONDS", 300)) * time.Second,
		PaymentSessionTTL: time.Duration(atoi("PAYMENT_SESSION_TTL_SECONDS", 1800)) * time.Second,
		ReconcileWorkers:  atoi("RECONCILE_WORKERS", 4),
		ReconcileBatch:    atoi("RECONCILE_BATCH", 100),
	}
	if c.ProcessorPublishableKey == "" {
		log.Warn().Msg("PROCESSOR_PUBLISHABLE_KEY is empty; payments are disabled")
	}
	return c
}

func (c Config) PaymentsEnabled() bool { return c.ProcessorPublishableKey != "" }

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func atoi(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		log.Warn().Str("key", k).Str("value", v).Msg("not an integer; using default")
	}
	return def
}
