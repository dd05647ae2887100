package config

import (
	"os"
	"strings"
)

type Config struct {
	Server    ServerConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Auth      AuthConfig
	TwoFactor TwoFactorConfig
	Mail      MailConfig
	Store     StoreConfig
}

type ServerConfig struct {
	Addr           string
	GinMode        string
	AllowedOrigins []string
	Version        string
}

type PostgresConfig struct {
	DatabaseURL string
	Host        string
	Port        string
	User        string
	Password    string
	Database    string
	SSLMode     string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       string
}

// AuthConfig values stay as raw strings; service.NewAuthenticator parses and
// validates them so a bad deployment fails at startup with ErrMisconfigured.
type AuthConfig struct {
	JWTSecret   string
	SessionTTL  string
	BcryptCost  string
	AllowSignup string
	AutoLogin   string
}

type TwoFactorConfig struct {
	Enabled     string
	CodeLength  string
	CodeTTL     string
	MaxAttempts string
	// Backend selects the challenge store: memory, redis or postgres.
	Backend string
}

type MailConfig struct {
	// Provider is "log" (development) or "resend".
	Provider string
	APIKey   string
	From     string
}

type StoreConfig struct {
	// Backend is "postgres" or "memory".
	Backend string
}

func Load() Config {
	return Config{
		Server: ServerConfig{
			Addr:           getenv("HTTP_ADDR", ":8080"),
			GinMode:        getenv("GIN_MODE", "release"),
			AllowedOrigins: splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
			Version:        getenv("APP_VERSION", "dev"),
		},
		Postgres: PostgresConfig{
			DatabaseURL: os.Getenv("DATABASE_URL"),
			Host:        getenv("PGHOST", "localhost"),
			Port:        getenv("PGPORT", "5432"),
			User:        os.Getenv("PGUSER"),
			Password:    os.Getenv("PGPASSWORD"),
			Database:    os.Getenv("PGDATABASE"),
			SSLMode:     getenv("PGSSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getenv("REDIS_ADDR", "localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getenv("REDIS_DB", "0"),
		},
		Auth: AuthConfig{
			JWTSecret:   os.Getenv("JWT_SECRET"),
			SessionTTL:  getenv("AUTH_SESSION_TTL", "720h"),
			BcryptCost:  getenv("AUTH_BCRYPT_COST", "10"),
			AllowSignup: getenv("AUTH_ALLOW_SIGNUP", "true"),
			AutoLogin:   getenv("AUTH_AUTO_LOGIN", "false"),
		},
		TwoFactor: TwoFactorConfig{
			Enabled:     getenv("TWO_FACTOR_ENABLED", "false"),
			CodeLength:  getenv("TWO_FACTOR_CODE_LENGTH", "6"),
			CodeTTL:     getenv("TWO_FACTOR_CODE_TTL", "10m"),
			MaxAttempts: getenv("TWO_FACTOR_MAX_ATTEMPTS", "5"),
			Backend:     getenv("TWO_FACTOR_STORE", "memory"),
		},
		Mail: MailConfig{
			Provider: getenv("MAIL_PROVIDER", "log"),
			APIKey:   os.Getenv("RESEND_API_KEY"),
			From:     getenv("MAIL_FROM", "no-reply@localhost"),
		},
		Store: StoreConfig{
			Backend: getenv("STORE_BACKEND", "postgres"),
		},
	}
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
