package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

var Module = fx.Module("config",
	fx.Provide(Load),
	fx.Provide(NewStorefrontHolder),
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	PublicBaseURL string
	StorageDir    string

	AuthJWTSecret   string
	AdminJWTSecret  string
	AccessTokenTTL  time.Duration
	AdminTokenTTL   time.Duration
	RefreshTokenTTL time.Duration
	DownloadLinkTTL time.Duration

	OTLPEndpoint string

	SnowflakeNodeID int64

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int
	DBSlowQuery       time.Duration
	DBLogStatements   bool

	StorefrontConfigPath string

	Bootstrap BootstrapConfig
	Integrations
}

type BootstrapConfig struct {
	AdminUsername string
	AdminPassword string
}

// Integrations groups the settings of external collaborators. They are
// parsed from prefixed environment variables.
type Integrations struct {
	Payment   PaymentConfig   `envPrefix:"RAZORPAY_"`
	Email     EmailConfig     `envPrefix:"SMTP_"`
	RateLimit RateLimitConfig `envPrefix:"RATE_LIMIT_"`
	Kafka     KafkaConfig     `envPrefix:"KAFKA_"`
	Scheduler SchedulerConfig `envPrefix:"SCHEDULER_"`

	Notification NotificationConfig `envPrefix:"NOTIFY_"`
}

type PaymentConfig struct {
	Provider      string        `env:"PROVIDER" envDefault:"razorpay"`
	KeyID         string        `env:"KEY_ID"`
	KeySecret     string        `env:"KEY_SECRET"`
	WebhookSecret string        `env:"WEBHOOK_SECRET"`
	BaseURL       string        `env:"BASE_URL" envDefault:"https://api.razorpay.com"`
	Currency      string        `env:"CURRENCY" envDefault:"INR"`
	Timeout       time.Duration `env:"TIMEOUT" envDefault:"15s"`
	VerifyCapture bool          `env:"VERIFY_CAPTURE" envDefault:"true"`
}

type EmailConfig struct {
	Enabled  bool   `env:"ENABLED" envDefault:"false"`
	Host     string `env:"HOST" envDefault:"localhost"`
	Port     int    `env:"PORT" envDefault:"587"`
	Username string `env:"USERNAME"`
	Password string `env:"PASSWORD"`
	From     string `env:"FROM" envDefault:"no-reply@notemart.local"`
	// SupportAddress receives contact form notifications when set.
	SupportAddress string `env:"SUPPORT_ADDRESS"`
}

type RateLimitConfig struct {
	Enabled       bool    `env:"ENABLED" envDefault:"false"`
	RedisAddr     string  `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string  `env:"REDIS_PASSWORD"`
	RedisDB       int     `env:"REDIS_DB" envDefault:"0"`
	AuthRate      float64 `env:"AUTH_RATE" envDefault:"0.2"`
	AuthBurst     int     `env:"AUTH_BURST" envDefault:"5"`
	PublicRate    float64 `env:"PUBLIC_RATE" envDefault:"1"`
	PublicBurst   int     `env:"PUBLIC_BURST" envDefault:"10"`
}

type KafkaConfig struct {
	Brokers []string `env:"BROKERS" envSeparator:","`
	Topic   string   `env:"ORDER_TOPIC" envDefault:"notemart.orders"`
}

// NotificationConfig controls how order emails and events are delivered.
// Async moves them off the request path.
type NotificationConfig struct {
	Async bool `env:"ASYNC" envDefault:"false"`
}

// SchedulerConfig drives the in-process maintenance jobs.
type SchedulerConfig struct {
	Enabled         bool          `env:"ENABLED" envDefault:"false"`
	RunInterval     time.Duration `env:"RUN_INTERVAL" envDefault:"1m"`
	BatchSize       int           `env:"BATCH_SIZE" envDefault:"50"`
	PendingOrderTTL time.Duration `env:"PENDING_ORDER_TTL" envDefault:"24h"`
}

// Load loads configuration from environment variables and .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	environment := getenv("ENVIRONMENT", "development")

	cfg := Config{
		AppName:              getenv("APP_SERVICE", "notemart"),
		AppVersion:           getenv("APP_VERSION", "0.1.0"),
		Environment:          environment,
		HTTPAddr:             getenv("HTTP_ADDR", ":8080"),
		PublicBaseURL:        strings.TrimRight(getenv("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
		StorageDir:           getenv("STORAGE_DIR", "./storage"),
		AuthJWTSecret:        strings.TrimSpace(getenv("AUTH_JWT_SECRET", "")),
		AdminJWTSecret:       strings.TrimSpace(getenv("ADMIN_JWT_SECRET", "")),
		AccessTokenTTL:       getenvDuration("ACCESS_TOKEN_TTL", 24*time.Hour),
		AdminTokenTTL:        getenvDuration("ADMIN_TOKEN_TTL", 24*time.Hour),
		RefreshTokenTTL:      getenvDuration("REFRESH_TOKEN_TTL", 30*24*time.Hour),
		DownloadLinkTTL:      getenvDuration("DOWNLOAD_LINK_TTL", time.Hour),
		OTLPEndpoint:         getenv("OTLP_ENDPOINT", "localhost:4317"),
		SnowflakeNodeID:      int64(getenvInt("SNOWFLAKE_NODE_ID", 1)),
		DBType:               getenv("DATABASE_TYPE", "postgres"),
		DBHost:               getenv("DATABASE_HOST", "localhost"),
		DBPort:               getenv("DATABASE_PORT", "5432"),
		DBName:               getenv("DATABASE_NAME", "notemart"),
		DBUser:               getenv("DATABASE_USER", "postgres"),
		DBPassword:           getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:            getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:        getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:        getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime:    getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime:    getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),
		DBSlowQuery:          getenvDuration("DATABASE_SLOW_QUERY", 200*time.Millisecond),
		DBLogStatements:      getenv("DATABASE_LOG_STATEMENTS", "false") == "true",
		StorefrontConfigPath: getenv("STOREFRONT_CONFIG_PATH", ""),
		Bootstrap: BootstrapConfig{
			AdminUsername: strings.TrimSpace(getenv("ADMIN_USERNAME", "")),
			AdminPassword: getenv("ADMIN_PASSWORD", ""),
		},
	}

	if err := env.Parse(&cfg.Integrations); err != nil {
		return Config{}, fmt.Errorf("parse integration config: %w", err)
	}

	if cfg.IsProduction() {
		if cfg.AuthJWTSecret == "" || cfg.AdminJWTSecret == "" {
			return Config{}, fmt.Errorf("AUTH_JWT_SECRET and ADMIN_JWT_SECRET are required in production")
		}
		if cfg.AuthJWTSecret == cfg.AdminJWTSecret {
			return Config{}, fmt.Errorf("AUTH_JWT_SECRET and ADMIN_JWT_SECRET must differ")
		}
	}

	return cfg, nil
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
