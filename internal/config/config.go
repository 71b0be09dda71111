package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Family    FamilyConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Host        string
	Port        int
	Secure      bool   // Emit HSTS
	Environment string // "development", "production", "test"
	Debug       bool
	LogFormat   string // "json" or "console"
}

type DatabaseConfig struct {
	Host           string
	Port           int
	User           string
	Password       string
	DBName         string
	SSLMode        string
	MigrationsPath string
	MaxConns       int32
	MinConns       int32
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type AuthConfig struct {
	JWTSecret  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// FamilyConfig controls what happens to a recipient's previous family when
// they accept an invite: "keep" leaves it in place, "prune" deletes it once
// it has no members left.
type FamilyConfig struct {
	PriorFamilyPolicy string
}

type RateLimitConfig struct {
	AuthPerMinute int
}

const (
	PriorFamilyKeep  = "keep"
	PriorFamilyPrune = "prune"

	devJWTSecret = "dev-only-change-me"
)

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

func newViper() *viper.Viper {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AutomaticEnv()

	v.SetDefault("server_host", "0.0.0.0")
	v.SetDefault("server_port", 8080)
	v.SetDefault("server_secure", false)
	v.SetDefault("app_env", "development")
	v.SetDefault("debug", false)
	v.SetDefault("log_format", "json")

	v.SetDefault("db_host", "localhost")
	v.SetDefault("db_port", 5432)
	v.SetDefault("db_user", "money")
	v.SetDefault("db_password", "money")
	v.SetDefault("db_name", "fire_fruit_money")
	v.SetDefault("db_sslmode", "disable")
	v.SetDefault("db_migrations_path", "migrations")
	v.SetDefault("db_max_conns", 25)
	v.SetDefault("db_min_conns", 5)

	v.SetDefault("redis_host", "localhost")
	v.SetDefault("redis_port", 6379)
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)

	v.SetDefault("jwt_secret", "")
	v.SetDefault("jwt_access_ttl", 5*time.Minute)
	v.SetDefault("jwt_refresh_ttl", 24*time.Hour)

	v.SetDefault("family_prior_policy", PriorFamilyKeep)
	v.SetDefault("auth_rate_limit", 10)

	return v
}

// Load reads config.yaml (if present) and the environment. Environment
// variables win over the file.
func Load() (*Config, error) {
	v := newViper()
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:        v.GetString("server_host"),
			Port:        v.GetInt("server_port"),
			Secure:      v.GetBool("server_secure"),
			Environment: v.GetString("app_env"),
			Debug:       v.GetBool("debug"),
			LogFormat:   strings.ToLower(v.GetString("log_format")),
		},
		Database: DatabaseConfig{
			Host:           v.GetString("db_host"),
			Port:           v.GetInt("db_port"),
			User:           v.GetString("db_user"),
			Password:       v.GetString("db_password"),
			DBName:         v.GetString("db_name"),
			SSLMode:        v.GetString("db_sslmode"),
			MigrationsPath: v.GetString("db_migrations_path"),
			MaxConns:       v.GetInt32("db_max_conns"),
			MinConns:       v.GetInt32("db_min_conns"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis_host"),
			Port:     v.GetInt("redis_port"),
			Password: v.GetString("redis_password"),
			DB:       v.GetInt("redis_db"),
		},
		Auth: AuthConfig{
			JWTSecret:  v.GetString("jwt_secret"),
			AccessTTL:  v.GetDuration("jwt_access_ttl"),
			RefreshTTL: v.GetDuration("jwt_refresh_ttl"),
		},
		Family: FamilyConfig{
			PriorFamilyPolicy: strings.ToLower(strings.TrimSpace(v.GetString("family_prior_policy"))),
		},
		RateLimit: RateLimitConfig{
			AuthPerMinute: v.GetInt("auth_rate_limit"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Auth.JWTSecret == "" {
		if c.Server.Environment == "production" {
			return errors.New("JWT_SECRET must be set in production")
		}
		c.Auth.JWTSecret = devJWTSecret
	}
	if c.Auth.AccessTTL <= 0 || c.Auth.RefreshTTL <= 0 {
		return errors.New("token lifetimes must be positive")
	}
	if c.Auth.RefreshTTL < c.Auth.AccessTTL {
		return errors.New("JWT_REFRESH_TTL must not be shorter than JWT_ACCESS_TTL")
	}
	switch c.Family.PriorFamilyPolicy {
	case PriorFamilyKeep, PriorFamilyPrune:
	default:
		return fmt.Errorf("FAMILY_PRIOR_POLICY must be %q or %q, got %q", PriorFamilyKeep, PriorFamilyPrune, c.Family.PriorFamilyPolicy)
	}
	if c.Database.MaxConns <= 0 || c.Database.MinConns < 0 || c.Database.MinConns > c.Database.MaxConns {
		return fmt.Errorf("invalid pool size: DB_MIN_CONNS=%d DB_MAX_CONNS=%d", c.Database.MinConns, c.Database.MaxConns)
	}
	if c.RateLimit.AuthPerMinute <= 0 {
		c.RateLimit.AuthPerMinute = 10
	}
	return nil
}
