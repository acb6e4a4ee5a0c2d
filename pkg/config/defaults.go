package config

import "time"

const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
	StoreMongo  = "mongo"
)

const (
	DefaultPort      = "8080"
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultAPIBaseURL = "http://localhost:3000/api"
	DefaultAPITimeout = 10 * time.Second

	DefaultTokenRefreshLead      = 5 * time.Minute
	DefaultTokenPollInterval     = 60 * time.Second
	DefaultTokenMalformedRecheck = 5 * time.Minute

	DefaultSessionStore       = StoreMemory
	DefaultSessionNamespace   = "campusbook"
	DefaultSessionSyncChannel = "campusbook:session-sync"

	DefaultRedisAddr        = "localhost:6379"
	DefaultRedisDB          = 0
	DefaultRedisConnTimeout = 5 * time.Second

	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "campusbook"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultTimeZone = "Local"

	DefaultKafkaEnabled         = false
	DefaultBookingEventsTopic   = "campusbook.booking-events"
	DefaultNotificationsTopic   = "campusbook.notifications"
	DefaultNotificationsGroupID = "campus-agent"
	DefaultNotificationsLimit   = 50

	DefaultRateLimitRequests = 60
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 10 * time.Minute
	DefaultMaxRequestSize = 64 * 1024

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 35 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 15 * time.Second
)
