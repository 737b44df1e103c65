package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Store drivers accepted by store.driver.
const (
	StoreMemory = "memory"
	StoreSQL    = "sql"
	StoreRedis  = "redis"
)

type Config struct {
	HTTP struct {
		Addr string
	}
	Store struct {
		Driver    string
		KeyPrefix string
	}
	DB struct {
		Driver string
		DSN    string
	}
	Redis struct {
		URL string
	}
	Gate struct {
		Duration int
		Interval time.Duration
	}
	Redirect struct {
		Base    string
		Default string
		Refs    map[string]string
	}
	Admin struct {
		Username     string
		Password     string
		PasswordHash string
	}
	Log struct {
		Level  string
		Format string
	}
	CORSAllowedOrigins []string
	SessionLifetime    time.Duration
	InsecureCookies    bool
}

// Load reads config from .env, the environment (GATE_ prefix) and an optional joe-gate.yaml.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("GATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetConfigName("joe-gate")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // optional config file

	setDefaults(v)
	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("store.driver", StoreMemory)
	v.SetDefault("store.key_prefix", "")
	v.SetDefault("gate.duration", 5)
	v.SetDefault("gate.interval", "1s")
	v.SetDefault("redirect.base", "https://example.com")
	v.SetDefault("redirect.default", "https://example.com/default")
	v.SetDefault("redirect.refs.instagram", "https://example.com/instagram-exclusive")
	v.SetDefault("redirect.refs.story", "https://example.com/story-access")
	v.SetDefault("redirect.refs.premium", "https://example.com/premium-content")
	v.SetDefault("session.lifetime", "720h")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	cfg.HTTP.Addr = v.GetString("http.addr")
	cfg.Store.Driver = v.GetString("store.driver")
	cfg.Store.KeyPrefix = v.GetString("store.key_prefix")
	cfg.DB.Driver = v.GetString("db.driver")
	cfg.DB.DSN = v.GetString("db.dsn")
	cfg.Redis.URL = v.GetString("redis.url")
	cfg.Gate.Duration = v.GetInt("gate.duration")
	cfg.Redirect.Base = strings.TrimRight(v.GetString("redirect.base"), "/")
	cfg.Redirect.Default = v.GetString("redirect.default")
	cfg.Redirect.Refs = v.GetStringMapString("redirect.refs")
	cfg.Admin.Username = v.GetString("admin.username")
	cfg.Admin.Password = v.GetString("admin.password")
	cfg.Admin.PasswordHash = v.GetString("admin.password_hash")
	cfg.Log.Level = v.GetString("log.level")
	cfg.Log.Format = v.GetString("log.format")
	cfg.CORSAllowedOrigins = v.GetStringSlice("cors.allowed_origins")
	cfg.InsecureCookies = v.GetBool("insecure_cookies")

	interval, err := time.ParseDuration(v.GetString("gate.interval"))
	if err != nil {
		return nil, fmt.Errorf("invalid GATE_GATE_INTERVAL: %w", err)
	}
	cfg.Gate.Interval = interval

	lifetime, err := time.ParseDuration(v.GetString("session.lifetime"))
	if err != nil {
		return nil, fmt.Errorf("invalid GATE_SESSION_LIFETIME: %w", err)
	}
	cfg.SessionLifetime = lifetime

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Gate.Duration <= 0 {
		return fmt.Errorf("GATE_GATE_DURATION must be positive, got %d", c.Gate.Duration)
	}
	if c.Gate.Interval <= 0 {
		return fmt.Errorf("GATE_GATE_INTERVAL must be positive, got %s", c.Gate.Interval)
	}
	switch c.Store.Driver {
	case StoreMemory:
	case StoreSQL:
		if c.DB.Driver == "" {
			return fmt.Errorf("GATE_DB_DRIVER is required for the sql store (sqlite3, mysql, postgres)")
		}
		if c.DB.DSN == "" {
			return fmt.Errorf("GATE_DB_DSN is required for the sql store")
		}
	case StoreRedis:
		if c.Redis.URL == "" {
			return fmt.Errorf("GATE_REDIS_URL is required for the redis store")
		}
	default:
		return fmt.Errorf("unsupported GATE_STORE_DRIVER %q: must be memory, sql, or redis", c.Store.Driver)
	}
	return nil
}

// RequireAdmin checks that admin credentials are configured. Only the
// commands that verify a login need them.
func (c *Config) RequireAdmin() error {
	if c.Admin.Username == "" {
		return fmt.Errorf("GATE_ADMIN_USERNAME is required")
	}
	if c.Admin.Password == "" && c.Admin.PasswordHash == "" {
		return fmt.Errorf("one of GATE_ADMIN_PASSWORD or GATE_ADMIN_PASSWORD_HASH is required")
	}
	return nil
}
