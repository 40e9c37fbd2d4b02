// Package config loads application configuration from environment
// variables, optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers accepted in STORE_DRIVER.
const (
	StoreMySQL  = "mysql"
	StoreMongo  = "mongo"
	StoreMemory = "memory"
)

// Notification drivers accepted in NOTIFY_DRIVER.
const (
	NotifyAMQP = "amqp"
	NotifyLog  = "log"
)

// Config holds all runtime configuration values.
type Config struct {
	Env       string // application environment (dev, prod)
	Port      string // HTTP port to listen on
	JWTSecret string // HMAC key for session tokens

	StoreDriver string
	DBUser      string
	DBPass      string
	DBHost      string
	DBPort      string
	DBName      string
	MongoURI    string
	MongoDB     string

	BcryptCost int

	NotifyDriver  string
	NotifyTimeout time.Duration
	AMQPURL       string
	SMTP          SMTPConfig

	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration

	Redis     RedisConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
}

// SMTPConfig addresses the outgoing mail relay used by the mailer worker.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// LoadDotEnv seeds the environment from path when the file exists.
// Variables already set in the environment win.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return godotenv.Load(path)
}

// Load reads the configuration.  Every missing or malformed required
// variable is reported in the returned error.
func Load() (Config, error) {
	var r reader
	cfg := Config{
		Env:       envStr("APP_ENV", "dev"),
		Port:      r.must("APP_PORT"),
		JWTSecret: r.must("JWT_SECRET"),

		StoreDriver: strings.ToLower(envStr("STORE_DRIVER", StoreMySQL)),
		DBUser:      envStr("DB_USER", "root"),
		DBPass:      os.Getenv("DB_PASS"),
		DBHost:      envStr("DB_HOST", "127.0.0.1"),
		DBPort:      envStr("DB_PORT", "3306"),
		DBName:      envStr("DB_NAME", "accounts"),
		MongoURI:    envStr("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:     envStr("MONGO_DB", "accounts"),

		BcryptCost: envInt("BCRYPT_COST", 8),

		NotifyDriver:  strings.ToLower(envStr("NOTIFY_DRIVER", NotifyLog)),
		NotifyTimeout: envDur("NOTIFY_TIMEOUT", 5*time.Second),
		AMQPURL:       envStr("RABBITMQ_URL", os.Getenv("AMQP_URL")),
		SMTP:          loadSMTP(),

		RequestTimeout:  envDur("REQUEST_TIMEOUT", 5*time.Second),
		ShutdownTimeout: envDur("SHUTDOWN_TIMEOUT", 10*time.Second),

		Redis:     LoadRedisConfig(),
		RateLimit: LoadRateLimitConfig(),
		Cache:     LoadCacheConfig(),
	}

	switch cfg.StoreDriver {
	case StoreMySQL, StoreMongo, StoreMemory:
	default:
		r.fail("STORE_DRIVER", fmt.Sprintf("unknown driver %q", cfg.StoreDriver))
	}
	switch cfg.NotifyDriver {
	case NotifyAMQP, NotifyLog:
	default:
		r.fail("NOTIFY_DRIVER", fmt.Sprintf("unknown driver %q", cfg.NotifyDriver))
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		r.fail("BCRYPT_COST", "must be between 4 and 31")
	}

	if err := r.err(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadMailer reads only what the mailer worker needs.
func LoadMailer() Config {
	return Config{
		Env:     envStr("APP_ENV", "dev"),
		AMQPURL: envStr("RABBITMQ_URL", os.Getenv("AMQP_URL")),
		SMTP:    loadSMTP(),
	}
}

func loadSMTP() SMTPConfig {
	return SMTPConfig{
		Host:     os.Getenv("SMTP_HOST"),
		Port:     envInt("SMTP_PORT", 587),
		Username: os.Getenv("SMTP_USER"),
		Password: os.Getenv("SMTP_PASS"),
		From:     envStr("SMTP_FROM", "noreply@example.com"),
	}
}

// reader collects problems instead of exiting on the first one.
type reader struct{ problems []string }

// must retrieves the value of a required environment variable.
func (r *reader) must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		r.fail(key, "missing required env var")
	}
	return v
}

func (r *reader) fail(key, msg string) {
	r.problems = append(r.problems, key+": "+msg)
}

func (r *reader) err() error {
	if len(r.problems) == 0 {
		return nil
	}
	return fmt.Errorf("config: %s", strings.Join(r.problems, "; "))
}
