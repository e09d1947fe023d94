package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	PostStorePostgres = "postgres"
	PostStoreMongo    = "mongo"

	// DefaultJWTSecret is only accepted outside production.
	DefaultJWTSecret = "supersecretjwtkey"
)

type Config struct {
	Port                    string
	Env                     string
	PostgresConnStr         string
	PostStore               string
	MongoURI                string
	MongoDatabase           string
	JWTSecret               string
	SessionTTL              time.Duration
	FirebaseCredentialsPath string
	RedisAddr               string
	RedisStream             string
	LogLevel                string
	LogFormat               string
	LoginRateLimit          float64
	LoginRateBurst          int

	// EnvFileLoaded reports whether a .env file was found.
	EnvFileLoaded bool
}

// Load reads a .env file when present and then the process environment.
func Load() *Config {
	loaded := godotenv.Load() == nil

	return &Config{
		Port:                    getEnv("PORT", "8080"),
		Env:                     getEnv("ENV", "development"),
		PostgresConnStr:         getEnv("POSTGRES_CONN_STR", ""),
		PostStore:               getEnv("POST_STORE", PostStorePostgres),
		MongoURI:                getEnv("MONGO_URI", ""),
		MongoDatabase:           getEnv("MONGO_DATABASE", "silex_blog"),
		JWTSecret:               getEnv("JWT_SECRET", DefaultJWTSecret),
		SessionTTL:              getDuration("SESSION_TTL", 72*time.Hour),
		FirebaseCredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", ""),
		RedisAddr:               getEnv("REDIS_ADDR", ""),
		RedisStream:             getEnv("REDIS_STREAM", "blog:posts"),
		LogLevel:                getEnv("LOG_LEVEL", "info"),
		LogFormat:               getEnv("LOG_FORMAT", "text"),
		LoginRateLimit:          getFloat("LOGIN_RATE_LIMIT", 5),
		LoginRateBurst:          getInt("LOGIN_RATE_BURST", 10),
		EnvFileLoaded:           loaded,
	}
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	if c.PostgresConnStr == "" {
		return fmt.Errorf("POSTGRES_CONN_STR environment variable not set")
	}
	switch c.PostStore {
	case PostStorePostgres:
	case PostStoreMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI environment variable not set but POST_STORE=%s", c.PostStore)
		}
	default:
		return fmt.Errorf("unknown POST_STORE %q", c.PostStore)
	}
	if !c.IsDebug() && (c.JWTSecret == "" || c.JWTSecret == DefaultJWTSecret) {
		return fmt.Errorf("JWT_SECRET must be set to a private value when ENV=%s", c.Env)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive, got %s", c.SessionTTL)
	}
	return nil
}

// IsDebug is true outside production; errors are then rendered with details.
func (c *Config) IsDebug() bool {
	return c.Env != "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return defaultValue
}

func getFloat(key string, defaultValue float64) float64 {
	if f, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return f
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if i, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return i
	}
	return defaultValue
}
