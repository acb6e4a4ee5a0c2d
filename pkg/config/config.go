package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"time"

	"campusbook/pkg/client"
	"campusbook/pkg/locale"
	"campusbook/pkg/logger"
	"campusbook/pkg/sealer"

	"github.com/joho/godotenv"
)

type Config struct {
	Port      string
	LogLevel  string
	LogFormat string

	APIBaseURL string
	APITimeout time.Duration

	TokenRefreshLead      time.Duration
	TokenPollInterval     time.Duration
	TokenMalformedRecheck time.Duration

	SessionStore       string
	SessionNamespace   string
	SessionSyncChannel string
	SessionSealKey     string

	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	RedisConnTimeout time.Duration

	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	TimeZone string
	Location *time.Location

	KafkaEnabled          bool
	BookingEventsTopic    string
	BookingEventsDLQTopic string
	NotificationsTopic    string
	NotificationsGroupID  string
	NotificationsDLQTopic string
	NotificationsLimit    int

	RateLimitRequests int
	RateLimitWindow   time.Duration

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	Log    *logger.Logger
	Client *client.Client
}

// Load reads .env (if present) and the environment, and exits on invalid
// configuration.
func Load(serviceName string) *Config {
	cfg, err := load(serviceName)
	if err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

func load(serviceName string) (*Config, error) {
	envErr := godotenv.Load()

	cfg := &Config{
		Port:      getEnvStr(EnvPort, DefaultPort),
		LogLevel:  getEnvStr(EnvLogLevel, DefaultLogLevel),
		LogFormat: getEnvStr(EnvLogFormat, DefaultLogFormat),

		APIBaseURL: getEnvStr(EnvAPIBaseURL, DefaultAPIBaseURL),
		APITimeout: getEnvDuration(EnvAPITimeout, DefaultAPITimeout),

		TokenRefreshLead:      getEnvDuration(EnvTokenRefreshLead, DefaultTokenRefreshLead),
		TokenPollInterval:     getEnvDuration(EnvTokenPollInterval, DefaultTokenPollInterval),
		TokenMalformedRecheck: getEnvDuration(EnvTokenMalformedRecheck, DefaultTokenMalformedRecheck),

		SessionStore:       getEnvStr(EnvSessionStore, DefaultSessionStore),
		SessionNamespace:   getEnvStr(EnvSessionNamespace, DefaultSessionNamespace),
		SessionSyncChannel: getEnvStr(EnvSessionSyncChannel, DefaultSessionSyncChannel),
		SessionSealKey:     getEnvStr(EnvSessionSealKey, ""),

		RedisAddr:        getEnvStr(EnvRedisAddr, DefaultRedisAddr),
		RedisPassword:    getEnvStr(EnvRedisPassword, ""),
		RedisDB:          getEnvNum(EnvRedisDB, DefaultRedisDB),
		RedisConnTimeout: getEnvDuration(EnvRedisConnTimeout, DefaultRedisConnTimeout),

		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		TimeZone: getEnvStr(EnvTimeZone, DefaultTimeZone),

		KafkaEnabled:          getEnvBool(EnvKafkaEnabled, DefaultKafkaEnabled),
		BookingEventsTopic:    getEnvStr(EnvBookingEventsTopic, DefaultBookingEventsTopic),
		BookingEventsDLQTopic: getEnvStr(EnvBookingEventsDLQTopic, ""),
		NotificationsTopic:    getEnvStr(EnvNotificationsTopic, DefaultNotificationsTopic),
		NotificationsGroupID:  getEnvStr(EnvNotificationsGroupID, DefaultNotificationsGroupID),
		NotificationsDLQTopic: getEnvStr(EnvNotificationsDLQTopic, ""),
		NotificationsLimit:    getEnvNum(EnvNotificationsLimit, DefaultNotificationsLimit),

		RateLimitRequests: getEnvNum(EnvRateLimitRequests, DefaultRateLimitRequests),
		RateLimitWindow:   getEnvDuration(EnvRateLimitWindow, DefaultRateLimitWindow),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL: getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		Client: client.NewClient(),
	}

	format := logger.JSON
	if cfg.LogFormat == logger.TEXT {
		format = logger.TEXT
	}
	cfg.Log = logger.New(logger.Config{
		Level:     cfg.LogLevel,
		Format:    format,
		AddSource: true,
		Service:   serviceName,
	})

	if envErr != nil && !errors.Is(envErr, fs.ErrNotExist) {
		cfg.Log.Warn("Failed to read .env file", "error", envErr)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

func (cfg *Config) SetRedis() {
	cfg.Client.SetRedis(cfg.Log, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisConnTimeout)
}

// Sealer returns nil when no seal key is configured.
func (cfg *Config) Sealer() (*sealer.Sealer, error) {
	if cfg.SessionSealKey == "" {
		return nil, nil
	}
	return sealer.New(cfg.SessionSealKey)
}

// Validate also resolves Location from TimeZone.
func (cfg *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if u, err := url.Parse(cfg.APIBaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Sprintf("APIBaseURL must be an absolute http(s) URL, got: %s", cfg.APIBaseURL))
	}

	switch cfg.SessionStore {
	case StoreMemory:
	case StoreRedis:
		if cfg.RedisAddr == "" {
			errs = append(errs, "RedisAddr cannot be empty when SessionStore is redis")
		}
		if cfg.RedisDB < 0 {
			errs = append(errs, fmt.Sprintf("RedisDB cannot be negative, got: %d", cfg.RedisDB))
		}
		if cfg.SessionSyncChannel == "" {
			errs = append(errs, "SessionSyncChannel cannot be empty when SessionStore is redis")
		}
	case StoreMongo:
		if !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
			errs = append(errs, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", redactMongoURI(cfg.MongoURI)))
		}
		if cfg.MongoDatabaseName == "" {
			errs = append(errs, "MongoDatabaseName cannot be empty when SessionStore is mongo")
		}
	default:
		errs = append(errs, fmt.Sprintf("SessionStore must be one of [memory, redis, mongo], got: %s", cfg.SessionStore))
	}

	if cfg.SessionNamespace == "" {
		errs = append(errs, "SessionNamespace cannot be empty")
	}
	if cfg.SessionSealKey != "" {
		if _, err := sealer.New(cfg.SessionSealKey); err != nil {
			errs = append(errs, fmt.Sprintf("SessionSealKey is invalid: %v", err))
		}
	}

	loc, err := locale.ResolveLocation(cfg.TimeZone)
	if err != nil {
		errs = append(errs, fmt.Sprintf("TimeZone is invalid: %v", err))
	} else {
		cfg.Location = loc
	}

	if cfg.KafkaEnabled {
		if cfg.BookingEventsTopic == "" {
			errs = append(errs, "BookingEventsTopic cannot be empty when Kafka is enabled")
		}
		if cfg.NotificationsTopic == "" || cfg.NotificationsGroupID == "" {
			errs = append(errs, "NotificationsTopic and NotificationsGroupID are required when Kafka is enabled")
		}
	}
	if cfg.NotificationsLimit <= 0 {
		errs = append(errs, fmt.Sprintf("NotificationsLimit must be positive, got: %d", cfg.NotificationsLimit))
	}

	positive := []struct {
		name string
		d    time.Duration
	}{
		{"APITimeout", cfg.APITimeout},
		{"TokenRefreshLead", cfg.TokenRefreshLead},
		{"TokenPollInterval", cfg.TokenPollInterval},
		{"TokenMalformedRecheck", cfg.TokenMalformedRecheck},
		{"RedisConnTimeout", cfg.RedisConnTimeout},
		{"MongoConnTimeout", cfg.MongoConnTimeout},
		{"RateLimitWindow", cfg.RateLimitWindow},
		{"RequestTimeout", cfg.RequestTimeout},
		{"IdempotencyTTL", cfg.IdempotencyTTL},
		{"ReadTimeout", cfg.ReadTimeout},
		{"WriteTimeout", cfg.WriteTimeout},
		{"IdleTimeout", cfg.IdleTimeout},
		{"ShutdownTimeout", cfg.ShutdownTimeout},
	}
	for _, p := range positive {
		if p.d <= 0 {
			errs = append(errs, fmt.Sprintf("%s must be positive, got: %s", p.name, p.d))
		}
	}
	if cfg.RequestTimeout > 0 && cfg.WriteTimeout > 0 && cfg.WriteTimeout <= cfg.RequestTimeout {
		errs = append(errs, fmt.Sprintf("WriteTimeout (%s) must be greater than RequestTimeout (%s)", cfg.WriteTimeout, cfg.RequestTimeout))
	}

	if cfg.RateLimitRequests <= 0 {
		errs = append(errs, fmt.Sprintf("RateLimitRequests must be positive, got: %d", cfg.RateLimitRequests))
	}
	if cfg.MaxRequestSize <= 0 {
		errs = append(errs, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}

	if len(errs) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, err := range errs {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"port", cfg.Port,
		"api_base_url", cfg.APIBaseURL,
		"api_timeout", cfg.APITimeout,
		"token_refresh_lead", cfg.TokenRefreshLead,
		"token_poll_interval", cfg.TokenPollInterval,
		"token_malformed_recheck", cfg.TokenMalformedRecheck,
		"session_store", cfg.SessionStore,
		"session_namespace", cfg.SessionNamespace,
		"session_sealed", cfg.SessionSealKey != "",
		"redis_addr", cfg.RedisAddr,
		"redis_password_set", cfg.RedisPassword != "",
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"time_zone", cfg.Location.String(),
		"kafka_enabled", cfg.KafkaEnabled,
		"booking_events_topic", cfg.BookingEventsTopic,
		"notifications_topic", cfg.NotificationsTopic,
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
	)
}

func (cfg *Config) GracefulShutdown(ctx context.Context) {
	cfg.Client.Close(ctx)
}

func redactMongoURI(uri string) string {
	credentialRegex := regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
