package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"
)

// Config is the process configuration, read once in main and passed down.
type Config struct {
	Port    string
	Env     string
	Domain  string
	Origins []string

	DBDriver      string
	DatabaseURL   string
	MongoURI      string
	MongoDatabase string

	RedisAddress     string
	RedisPassword    string
	ReportLimitQueue string
	ReportDailyLimit int

	JWTSecret string
	JWTTTL    time.Duration

	MapsAPIKey           string
	OTPDebugResponse     bool
	ImageCleanupInterval time.Duration
	RequestTimeout       time.Duration

	AdminEmail    string
	AdminPassword string
}

// IsProduction reports whether GO_ENV is "production".
func (c *Config) IsProduction() bool { return c.Env == "production" }

// RedisEnabled reports whether a Redis address was configured.
func (c *Config) RedisEnabled() bool { return c.RedisAddress != "" }

var keys = []string{
	"PORT", "GO_ENV", "DOMAIN", "CORS_ORIGINS",
	"DB_DRIVER", "DATABASE_URL", "MONGODB_URI", "MONGODB_DATABASE",
	"REDIS_ADDRESS", "REDIS_PASSWORD", "REDIS_QUEUE_FOR_REPORT_LIMIT", "REPORT_DAILY_LIMIT",
	"JWT_SECRET", "JWT_TTL",
	"GOOGLE_MAPS_API_KEY", "OTP_DEBUG_RESPONSE", "IMAGE_CLEANUP_INTERVAL", "REQUEST_TIMEOUT",
	"ADMIN_EMAIL", "ADMIN_PASSWORD",
}

// Load reads the configuration from the environment. Callers load any .env
// file first.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}
	v.AutomaticEnv()

	cfg := &Config{
		Port:                 v.GetString("PORT"),
		Env:                  v.GetString("GO_ENV"),
		Domain:               v.GetString("DOMAIN"),
		Origins:              splitList(v.GetString("CORS_ORIGINS")),
		DBDriver:             strings.ToLower(strings.TrimSpace(v.GetString("DB_DRIVER"))),
		DatabaseURL:          v.GetString("DATABASE_URL"),
		MongoURI:             v.GetString("MONGODB_URI"),
		MongoDatabase:        v.GetString("MONGODB_DATABASE"),
		RedisAddress:         v.GetString("REDIS_ADDRESS"),
		RedisPassword:        v.GetString("REDIS_PASSWORD"),
		ReportLimitQueue:     v.GetString("REDIS_QUEUE_FOR_REPORT_LIMIT"),
		ReportDailyLimit:     v.GetInt("REPORT_DAILY_LIMIT"),
		JWTSecret:            v.GetString("JWT_SECRET"),
		JWTTTL:               v.GetDuration("JWT_TTL"),
		MapsAPIKey:           v.GetString("GOOGLE_MAPS_API_KEY"),
		OTPDebugResponse:     v.GetBool("OTP_DEBUG_RESPONSE"),
		ImageCleanupInterval: v.GetDuration("IMAGE_CLEANUP_INTERVAL"),
		RequestTimeout:       v.GetDuration("REQUEST_TIMEOUT"),
		AdminEmail:           strings.ToLower(strings.TrimSpace(v.GetString("ADMIN_EMAIL"))),
		AdminPassword:        v.GetString("ADMIN_PASSWORD"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("GO_ENV", "development")
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("DB_DRIVER", DriverPostgres)
	v.SetDefault("MONGODB_DATABASE", "civicreporter")
	v.SetDefault("REDIS_QUEUE_FOR_REPORT_LIMIT", "report-limit")
	v.SetDefault("REPORT_DAILY_LIMIT", 20)
	v.SetDefault("JWT_TTL", 72*time.Hour)
	v.SetDefault("OTP_DEBUG_RESPONSE", false)
	v.SetDefault("IMAGE_CLEANUP_INTERVAL", time.Duration(0))
	v.SetDefault("REQUEST_TIMEOUT", 10*time.Second)
}

// Validate checks the settings startup cannot proceed without.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET environment variable is not set")
	}
	switch c.DBDriver {
	case DriverPostgres, DriverSQLite:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for DB_DRIVER=%s", c.DBDriver)
		}
	case DriverMongo:
		if c.MongoURI == "" {
			return errors.New("please define the MONGODB_URI environment variable")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.ReportDailyLimit < 1 {
		return errors.New("REPORT_DAILY_LIMIT must be positive")
	}
	if c.JWTTTL <= 0 {
		return errors.New("JWT_TTL must be positive")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("REQUEST_TIMEOUT must be positive")
	}
	if c.ImageCleanupInterval < 0 {
		return errors.New("IMAGE_CLEANUP_INTERVAL must not be negative")
	}
	if (c.AdminEmail == "") != (c.AdminPassword == "") {
		return errors.New("ADMIN_EMAIL and ADMIN_PASSWORD must be set together")
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
