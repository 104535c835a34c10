package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config captures runtime configuration for the checkout API service.
type Config struct {
	HTTP        HTTPConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Kafka       KafkaConfig
	Gateway     GatewayConfig
	Email       EmailConfig
	Idempotency IdempotencyConfig
	Telemetry   TelemetryConfig
	Service     ServiceConfig
}

type HTTPConfig struct {
	Port          int
	ShutdownGrace int
}

type DatabaseConfig struct {
	URL            string
	AutoMigrate    bool
	MigrationsPath string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type KafkaConfig struct {
	Brokers []string
}

// GatewayConfig holds payment gateway credentials and connection settings.
// KeyID is the publishable key returned to clients for completing payment.
type GatewayConfig struct {
	BaseURL        string
	KeyID          string
	KeySecret      string
	Currency       string
	TimeoutSeconds int
}

type EmailConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Username string
	Password string
	From     string
	AdminTo  string
}

// IdempotencyConfig selects the stored-response backend: postgres, redis, or memory.
type IdempotencyConfig struct {
	Backend    string
	TTLSeconds int
}

type TelemetryConfig struct {
	LogLevel      string
	OTelEndpoint  string
	EnableTracing bool
	EnableMetrics bool
	SampleRate    float64
}

type ServiceConfig struct {
	Name        string
	Version     string
	Environment string
}

const (
	defaultHTTPPort        = 8080
	defaultShutdownGrace   = 15
	defaultMigrationsPath  = "migrations"
	defaultAutoMigrate     = true
	defaultServiceName     = "checkout-api"
	defaultServiceVersion  = "0.1.0"
	defaultEnvironment     = "development"
	defaultLogLevel        = "info"
	defaultOTelSampleRate  = 1.0
	defaultGatewayBaseURL  = "https://api.razorpay.com"
	defaultGatewayCurrency = "INR"
	defaultGatewayTimeout  = 10
	defaultIdemBackend     = "postgres"
	defaultIdemTTL         = 86400
	defaultSMTPPort        = 587
)

// Load reads configuration from environment variables, applying defaults when needed.
func Load() (*Config, error) {
	httpCfg, err := loadHTTPConfig()
	if err != nil {
		return nil, fmt.Errorf("loading HTTP config: %w", err)
	}

	dbCfg := loadDatabaseConfig()
	redisCfg, err := loadRedisConfig()
	if err != nil {
		return nil, fmt.Errorf("loading redis config: %w", err)
	}

	kafkaCfg := loadKafkaConfig()

	gatewayCfg, err := loadGatewayConfig()
	if err != nil {
		return nil, fmt.Errorf("loading gateway config: %w", err)
	}

	emailCfg, err := loadEmailConfig()
	if err != nil {
		return nil, fmt.Errorf("loading email config: %w", err)
	}

	idemCfg, err := loadIdempotencyConfig()
	if err != nil {
		return nil, fmt.Errorf("loading idempotency config: %w", err)
	}

	telCfg, err := loadTelemetryConfig()
	if err != nil {
		return nil, fmt.Errorf("loading telemetry config: %w", err)
	}

	serviceCfg := loadServiceConfig()

	return &Config{
		HTTP:        httpCfg,
		Database:    dbCfg,
		Redis:       redisCfg,
		Kafka:       kafkaCfg,
		Gateway:     gatewayCfg,
		Email:       emailCfg,
		Idempotency: idemCfg,
		Telemetry:   telCfg,
		Service:     serviceCfg,
	}, nil
}

func loadHTTPConfig() (HTTPConfig, error) {
	port := defaultHTTPPort
	if value, ok := os.LookupEnv("API_HTTP_PORT"); ok {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return HTTPConfig{}, fmt.Errorf("invalid API_HTTP_PORT: %w", err)
		}
		port = parsed
	}

	shutdownGrace := defaultShutdownGrace
	if value, ok := os.LookupEnv("API_SHUTDOWN_GRACE_SECONDS"); ok {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return HTTPConfig{}, fmt.Errorf("invalid API_SHUTDOWN_GRACE_SECONDS: %w", err)
		}
		shutdownGrace = parsed
	}

	return HTTPConfig{
		Port:          port,
		ShutdownGrace: shutdownGrace,
	}, nil
}

func loadDatabaseConfig() DatabaseConfig {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		databaseURL = buildDatabaseURL()
	}

	autoMigrate := defaultAutoMigrate
	if value, ok := os.LookupEnv("AUTO_MIGRATE"); ok {
		autoMigrate = value == "true"
	}

	migrationsPath := getEnvOrDefault("MIGRATIONS_PATH", defaultMigrationsPath)

	return DatabaseConfig{
		URL:            databaseURL,
		AutoMigrate:    autoMigrate,
		MigrationsPath: migrationsPath,
	}
}

func loadRedisConfig() (RedisConfig, error) {
	db := 0
	if value, ok := os.LookupEnv("REDIS_DB"); ok {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return RedisConfig{}, fmt.Errorf("invalid REDIS_DB: %w", err)
		}
		db = parsed
	}

	return RedisConfig{
		Addr:     getEnvOrDefault("REDIS_ADDR", ""),
		Password: getEnvOrDefault("REDIS_PASSWORD", ""),
		DB:       db,
	}, nil
}

func loadKafkaConfig() KafkaConfig {
	var brokers []string
	if value, ok := os.LookupEnv("KAFKA_BROKERS"); ok && value != "" {
		brokers = strings.Split(value, ",")
	}

	return KafkaConfig{
		Brokers: brokers,
	}
}

func loadGatewayConfig() (GatewayConfig, error) {
	timeout := defaultGatewayTimeout
	if value, ok := os.LookupEnv("GATEWAY_TIMEOUT_SECONDS"); ok {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return GatewayConfig{}, fmt.Errorf("invalid GATEWAY_TIMEOUT_SECONDS: %w", err)
		}
		timeout = parsed
	}

	return GatewayConfig{
		BaseURL:        getEnvOrDefault("GATEWAY_BASE_URL", defaultGatewayBaseURL),
		KeyID:          os.Getenv("GATEWAY_KEY_ID"),
		KeySecret:      os.Getenv("GATEWAY_KEY_SECRET"),
		Currency:       getEnvOrDefault("GATEWAY_CURRENCY", defaultGatewayCurrency),
		TimeoutSeconds: timeout,
	}, nil
}

func loadEmailConfig() (EmailConfig, error) {
	port := defaultSMTPPort
	if value, ok := os.LookupEnv("EMAIL_PORT"); ok {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return EmailConfig{}, fmt.Errorf("invalid EMAIL_PORT: %w", err)
		}
		port = parsed
	}

	host := os.Getenv("EMAIL_HOST")
	user := os.Getenv("EMAIL_USER")
	from := getEnvOrDefault("EMAIL_FROM", user)

	return EmailConfig{
		Enabled:  getBoolEnv("EMAIL_ENABLED", host != ""),
		Host:     host,
		Port:     port,
		Username: user,
		Password: os.Getenv("EMAIL_PASS"),
		From:     from,
		AdminTo:  getEnvOrDefault("EMAIL_ADMIN_TO", from),
	}, nil
}

func loadIdempotencyConfig() (IdempotencyConfig, error) {
	ttl := defaultIdemTTL
	if value, ok := os.LookupEnv("IDEMPOTENCY_TTL_SECONDS"); ok {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return IdempotencyConfig{}, fmt.Errorf("invalid IDEMPOTENCY_TTL_SECONDS: %w", err)
		}
		ttl = parsed
	}

	backend := getEnvOrDefault("IDEMPOTENCY_BACKEND", defaultIdemBackend)
	switch backend {
	case "postgres", "redis", "memory":
	default:
		return IdempotencyConfig{}, fmt.Errorf("invalid IDEMPOTENCY_BACKEND: %q", backend)
	}

	return IdempotencyConfig{
		Backend:    backend,
		TTLSeconds: ttl,
	}, nil
}

func loadTelemetryConfig() (TelemetryConfig, error) {
	logLevel := getEnvOrDefault("LOG_LEVEL", defaultLogLevel)
	otelEndpoint := getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")

	enableTracing := getBoolEnv("OTEL_ENABLE_TRACING", true)
	enableMetrics := getBoolEnv("OTEL_ENABLE_METRICS", true)

	sampleRate := defaultOTelSampleRate
	if value, ok := os.LookupEnv("OTEL_SAMPLE_RATE"); ok {
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return TelemetryConfig{}, fmt.Errorf("invalid OTEL_SAMPLE_RATE: %w", err)
		}
		sampleRate = parsed
	}

	return TelemetryConfig{
		LogLevel:      logLevel,
		OTelEndpoint:  otelEndpoint,
		EnableTracing: enableTracing,
		EnableMetrics: enableMetrics,
		SampleRate:    sampleRate,
	}, nil
}

func loadServiceConfig() ServiceConfig {
	return ServiceConfig{
		Name:        getEnvOrDefault("API_SERVICE_NAME", defaultServiceName),
		Version:     getEnvOrDefault("SERVICE_VERSION", defaultServiceVersion),
		Environment: getEnvOrDefault("ENVIRONMENT", defaultEnvironment),
	}
}

func buildDatabaseURL() string {
	host := getEnvOrDefault("DB_HOST", "localhost")
	port := getEnvOrDefault("DB_PORT", "5432")
	user := getEnvOrDefault("DB_USER", "postgres")
	password := getEnvOrDefault("DB_PASSWORD", "postgres")
	dbName := getEnvOrDefault("DB_NAME", "checkout")
	sslMode := getEnvOrDefault("DB_SSLMODE", "disable")

	maxConns := getEnvOrDefault("DB_MAX_CONNS", "25")
	minConns := getEnvOrDefault("DB_MIN_CONNS", "5")
	maxLifetime := getEnvOrDefault("DB_MAX_CONN_LIFETIME", "5m")

	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s&pool_max_conns=%s&pool_min_conns=%s&pool_max_conn_lifetime=%s",
		user, password, host, port, dbName, sslMode, maxConns, minConns, maxLifetime,
	)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		return value == "true"
	}
	return defaultValue
}
