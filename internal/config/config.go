// Package config provides configuration management for the zabbid core.
//
// Configuration is loaded from:
// 1. config.yaml file (optional)
// 2. Environment variables (standard names like DATABASE_URL, SERVER_PORT)
// 3. Command-line flags, bound into the same viper instance by cmd/server
// 4. Default values
package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config is the root configuration structure.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Session  SessionConfig  `mapstructure:"session"`
	Log      LogConfig      `mapstructure:"log"`
	Security SecurityConfig `mapstructure:"security"`
	Worker   WorkerConfig   `mapstructure:"worker"`
	Bidding  BiddingConfig  `mapstructure:"bidding"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	AllowedOrigins        []string `mapstructure:"allowed_origins"`
	AllowCredentials      bool     `mapstructure:"allow_credentials"`
	UnsafeAllowAllOrigins bool     `mapstructure:"unsafe_allow_all_origins"`
}

// DatabaseConfig selects and configures the persistence backend.
//
// Backend is one of "sqlite" or "mysql" (spec.md §6.A --db-backend). Exactly
// one of SQLitePath / MySQLURL is meaningful depending on Backend; cmd/server
// enforces the mutual exclusion at startup.
type DatabaseConfig struct {
	Backend    string `mapstructure:"backend"`
	SQLitePath string `mapstructure:"sqlite_path"`
	MySQLURL   string `mapstructure:"mysql_url"`

	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// SessionConfig contains operator session settings.
type SessionConfig struct {
	Lifetime    time.Duration `mapstructure:"lifetime"`
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
	Cookie      string        `mapstructure:"cookie"`
	Secure      bool          `mapstructure:"secure"`
	HttpOnly    bool          `mapstructure:"http_only"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
}

// SecurityConfig contains security-related settings.
// Secrets are auto-generated on first boot if missing, so a fresh checkout
// never ships with a blank secret.
type SecurityConfig struct {
	SessionSecret string `mapstructure:"session_secret"`
	JWTSigningKey string `mapstructure:"jwt_signing_key"`
	BcryptCost    int    `mapstructure:"bcrypt_cost"`
}

// WorkerConfig contains goroutine pool sizing for fan-out work (CSV import row
// validation).
type WorkerConfig struct {
	CSVImportPoolSize int `mapstructure:"csv_import_pool_size"`
}

// BiddingConfig carries the fixed literal the core checks against on
// ConfirmReadyToBid / TransitionToBiddingActive (spec.md §6 "Fixed string
// literals"). It is exposed to the UI via the API layer so the confirmation
// prompt can tell operators exactly what to type.
type BiddingConfig struct {
	ConfirmationToken string `mapstructure:"confirmation_token"`
}

// SystemAreaCode is the bit-exact reserved area code (spec.md §6).
const SystemAreaCode = "NO BID"

var (
	bootstrapLoggerOnce sync.Once
	bootstrapLogger     *zap.Logger
)

// Load reads configuration from file, environment variables, and defaults.
func Load() (*Config, error) {
	return load(viper.New())
}

// LoadWithFlags is like Load but binds the given viper instance (already
// populated with CLI flag values by cmd/server) before applying defaults,
// so flags outrank env vars and env vars outrank the config file.
func LoadWithFlags(v *viper.Viper) (*Config, error) {
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/zabbid")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.ensureSecrets(); err != nil {
		return nil, fmt.Errorf("ensure secrets: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// Validate checks for critical configuration errors.
func (c *Config) Validate() error {
	if c.Security.SessionSecret == "" {
		return fmt.Errorf("security.session_secret must not be empty")
	}
	if len(c.Security.SessionSecret) < 32 {
		return fmt.Errorf("security.session_secret must be at least 32 characters")
	}
	switch c.Database.Backend {
	case "sqlite", "mysql":
	default:
		return fmt.Errorf("database.backend must be %q or %q, got %q", "sqlite", "mysql", c.Database.Backend)
	}
	if c.Database.Backend == "sqlite" && c.Database.SQLitePath == "" {
		return fmt.Errorf("database.sqlite_path is required for the sqlite backend")
	}
	if c.Database.Backend == "mysql" && c.Database.MySQLURL == "" {
		return fmt.Errorf("database.mysql_url is required for the mysql backend")
	}
	return nil
}

func (c *Config) ensureSecrets() error {
	if c.Security.SessionSecret == "" {
		secret, err := generateSecureRandomHex(32)
		if err != nil {
			return fmt.Errorf("auto-generate session secret: %w", err)
		}
		c.Security.SessionSecret = secret
		logBootstrapWarn(
			"auto-generated session_secret; set SECURITY_SESSION_SECRET env var for persistence",
			zap.Int("length", len(secret)),
		)
	}
	if c.Security.JWTSigningKey == "" {
		key, err := generateSecureRandomHex(32)
		if err != nil {
			return fmt.Errorf("auto-generate jwt signing key: %w", err)
		}
		c.Security.JWTSigningKey = key
		logBootstrapWarn(
			"auto-generated jwt_signing_key; set SECURITY_JWT_SIGNING_KEY env var for persistence",
			zap.Int("length", len(key)),
		)
	}
	return nil
}

func logBootstrapWarn(msg string, fields ...zap.Field) {
	bootstrapLoggerOnce.Do(func() {
		cfg := zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
		l, err := cfg.Build()
		if err != nil {
			bootstrapLogger = zap.NewNop()
			return
		}
		bootstrapLogger = l
	})
	bootstrapLogger.Warn(msg, fields...)
}

func generateSecureRandomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("crypto/rand: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.allow_credentials", true)
	v.SetDefault("server.unsafe_allow_all_origins", false)

	v.SetDefault("database.backend", "sqlite")
	v.SetDefault("database.sqlite_path", "./zabbid.db")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "1h")

	v.SetDefault("session.lifetime", "24h")
	v.SetDefault("session.idle_timeout", "30m")
	v.SetDefault("session.cookie", "zabbid_session")
	v.SetDefault("session.secure", true)
	v.SetDefault("session.http_only", true)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("security.bcrypt_cost", 12)

	v.SetDefault("worker.csv_import_pool_size", 16)

	v.SetDefault("bidding.confirmation_token", "I CONFIRM THIS BID YEAR IS READY")
}
