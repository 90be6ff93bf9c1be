package config

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/greenfield-academy/website/pkg"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Environment string `toml:"-"`

	Host string `toml:"host"`
	Port int    `toml:"port"`

	// logging
	LogLevel      string `toml:"log_level"`
	LogsPath      string `toml:"logs_path"`
	LogToStdout   bool   `toml:"log_to_stdout"`
	LogFormatJSON bool   `toml:"log_format_json"`
	LogMaxSizeMB  int    `toml:"log_max_size_mb"`
	LogMaxBackups int    `toml:"log_max_backups"`
	SentryEnabled bool   `toml:"sentry_enabled"`

	// postgres
	PostgresHost   string `toml:"postgres_host"`
	PostgresPort   string `toml:"postgres_port"`
	PostgresDBName string `toml:"postgres_db_name"`
	PostgresUser   string `toml:"postgres_user"`

	// redis
	RedisHost string `toml:"redis_host"`
	RedisPort string `toml:"redis_port"`

	// metrics
	PrometheusMetricsHost string `toml:"prometheus_metrics_host"`
	PrometheusMetricsPort string `toml:"prometheus_metrics_port"`

	// auth
	ProtectedPathPrefixes []string `toml:"protected_path_prefixes"`
	LoginPath             string   `toml:"login_path"`
	SessionTTLHours       int      `toml:"session_ttl_hours"`
	AllowedOrigins        []string `toml:"allowed_origins"`
	// reverse proxies (addresses or CIDRs) whose forwarding headers are trusted
	TrustedProxies []string `toml:"trusted_proxies"`
	// paths under a protected prefix served without a session (login page assets)
	AdminPanelPublicPaths []string `toml:"admin_panel_public_paths"`
	// built admin panel (static files); empty serves a placeholder page
	AdminPanelDir string `toml:"admin_panel_dir"`

	// content
	ContentCacheSizeMB       int `toml:"content_cache_size_mb"`
	ContentCacheTTLSeconds   int `toml:"content_cache_ttl_seconds"`
	SubscribeRateLimitPerMin int `toml:"subscribe_rate_limit_per_min"`
}

type Toml struct {
	Development *Config
	Production  *Config
}

func (t *Toml) Get(env string) (*Config, error) {
	var cfg *Config
	switch strings.ToLower(env) {
	case "dev", "development":
		cfg = t.Development
		env = EnvDevelopment
	case "prod", "production":
		cfg = t.Production
		env = EnvProduction
	default:
		return nil, fmt.Errorf("unknown env: %s", env)
	}
	if cfg == nil {
		return nil, fmt.Errorf("no [%s] section in config", env)
	}
	cfg.Environment = env
	return cfg, nil
}

// Load reads the TOML file at path and returns the section for env,
// with defaults applied and validated.
func Load(env, path string) (*Config, error) {
	var t Toml
	if _, err := toml.DecodeFile(path, &t); err != nil {
		return nil, fmt.Errorf("decode config [%s]: %w", path, err)
	}
	return fromToml(&t, env)
}

// Parse is Load for in-memory TOML content.
func Parse(env, content string) (*Config, error) {
	var t Toml
	if _, err := toml.Decode(content, &t); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return fromToml(&t, env)
}

func fromToml(t *Toml, env string) (*Config, error) {
	cfg, err := t.Get(env)
	if err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.LoginPath == "" {
		c.LoginPath = "/admin/login"
	}
	if len(c.ProtectedPathPrefixes) == 0 {
		c.ProtectedPathPrefixes = []string{"/admin", "/api/admin"}
	}
	if c.SessionTTLHours == 0 {
		c.SessionTTLHours = 24 * 7
	}
	if c.ContentCacheSizeMB == 0 {
		c.ContentCacheSizeMB = 10
	}
	if c.ContentCacheTTLSeconds == 0 {
		c.ContentCacheTTLSeconds = 300
	}
	if c.SubscribeRateLimitPerMin == 0 {
		c.SubscribeRateLimitPerMin = 10
	}
	if c.PostgresUser == "" {
		c.PostgresUser = "postgres"
	}
}

func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.PostgresHost == "" || c.PostgresPort == "" || c.PostgresDBName == "" {
		return errors.New("postgres host, port and db name must be set")
	}
	if c.RedisHost == "" || c.RedisPort == "" {
		return errors.New("redis host and port must be set")
	}
	if !strings.HasPrefix(c.LoginPath, "/") {
		return fmt.Errorf("login path must be absolute: %s", c.LoginPath)
	}
	for _, prefix := range c.ProtectedPathPrefixes {
		if !strings.HasPrefix(prefix, "/") {
			return fmt.Errorf("protected path prefix must be absolute: %s", prefix)
		}
	}
	for _, p := range c.AdminPanelPublicPaths {
		if !strings.HasPrefix(p, "/") || path.Clean(p) == "/" {
			return fmt.Errorf("invalid admin panel public path: %s", p)
		}
		for _, prefix := range c.ProtectedPathPrefixes {
			if path.Clean(p) == path.Clean(prefix) {
				return fmt.Errorf("admin panel public path opens a whole protected prefix: %s", p)
			}
		}
	}
	if _, err := pkg.ParseTrustedProxies(c.TrustedProxies); err != nil {
		return err
	}
	if c.SessionTTLHours < 0 {
		return fmt.Errorf("invalid session ttl: %dh", c.SessionTTLHours)
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}
