// Package config loads server configuration from defaults, an optional YAML
// file and the environment. The dashboard's historical variable names
// (NEXT_PUBLIC_API_URL and friends) are accepted alongside the newer ones.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Backend   BackendConfig   `mapstructure:"backend"`
	Google    GoogleConfig    `mapstructure:"google"`
	Planner   PlannerConfig   `mapstructure:"planner"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Session   SessionConfig   `mapstructure:"session"`
	ErrorLog  ErrorLogConfig  `mapstructure:"error_log"`
	Credits   CreditsConfig   `mapstructure:"credits"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Providers ProvidersConfig `mapstructure:"providers"`
}

type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"` // development, production
}

// BackendConfig points at the external generation backend that /api/python forwards to.
type BackendConfig struct {
	URL     string        `mapstructure:"url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"` // 0 = no client timeout
}

type GoogleConfig struct {
	ClientID        string        `mapstructure:"client_id"`
	ClientSecret    string        `mapstructure:"client_secret"`
	CredentialsFile string        `mapstructure:"credentials_file"`
	TokenFile       string        `mapstructure:"token_file"`
	Timeout         time.Duration `mapstructure:"timeout"`
	RequestsPerSec  float64       `mapstructure:"rps"`
	Burst           int           `mapstructure:"burst"`
	DriveBaseURL    string        `mapstructure:"drive_base_url"`
	UploadBaseURL   string        `mapstructure:"upload_base_url"`
	DocsBaseURL     string        `mapstructure:"docs_base_url"`
	SheetsBaseURL   string        `mapstructure:"sheets_base_url"`
	YouTubeBaseURL  string        `mapstructure:"youtube_base_url"`
}

type PlannerConfig struct {
	Backend  string `mapstructure:"backend"` // file, postgres, redis
	FilePath string `mapstructure:"file_path"`
}

type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

type RedisConfig struct {
	URL string `mapstructure:"url"`
}

type StorageConfig struct {
	Strategy   string `mapstructure:"strategy"` // local, drive
	ContentDir string `mapstructure:"content_dir"`
}

type SessionConfig struct {
	Secret string `mapstructure:"secret"`
	Name   string `mapstructure:"name"`
	// InternalSecret lets the frontend server vouch for X-User-ID.
	InternalSecret string `mapstructure:"internal_secret"`
}

type ErrorLogConfig struct {
	Path          string        `mapstructure:"path"`
	MaxBytes      int64         `mapstructure:"max_bytes"`
	Keep          int           `mapstructure:"keep"`
	CheckInterval time.Duration `mapstructure:"check_interval"`
}

type CreditsConfig struct {
	GateEnabled bool `mapstructure:"gate_enabled"`
}

type RateLimitConfig struct {
	RequestsPerSec float64 `mapstructure:"rps"`
	Burst          int     `mapstructure:"burst"`
}

// ProvidersConfig carries keys the dashboard needs at build/run time. The
// gateway only reports whether they are set.
type ProvidersConfig struct {
	GroqAPIKey          string `mapstructure:"groq_api_key"`
	ReplicateAPIToken   string `mapstructure:"replicate_api_token"`
	RazorpayKeyID       string `mapstructure:"razorpay_key_id"`
	ClerkSecretKey      string `mapstructure:"clerk_secret_key"`
	ClerkPublishableKey string `mapstructure:"clerk_publishable_key"`
}

// Present reports which provider keys are configured, without their values.
func (p ProvidersConfig) Present() map[string]bool {
	return map[string]bool{
		"groq":      p.GroqAPIKey != "",
		"replicate": p.ReplicateAPIToken != "",
		"razorpay":  p.RazorpayKeyID != "",
		"clerk":     p.ClerkSecretKey != "" || p.ClerkPublishableKey != "",
	}
}

func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Server.Environment, "development") || c.Server.Environment == ""
}

// envBindings maps config keys to env var names; earlier names win.
var envBindings = map[string][]string{
	"server.port":                     {"PORT"},
	"server.environment":              {"APP_ENV", "NODE_ENV"},
	"backend.url":                     {"BACKEND_API_URL", "NEXT_PUBLIC_API_URL"},
	"backend.api_key":                 {"BACKEND_API_KEY"},
	"backend.timeout":                 {"BACKEND_TIMEOUT"},
	"google.client_id":                {"GOOGLE_CLIENT_ID", "NEXT_PUBLIC_GOOGLE_CLIENT_ID"},
	"google.client_secret":            {"GOOGLE_CLIENT_SECRET"},
	"google.credentials_file":         {"GOOGLE_CREDENTIALS_FILE"},
	"google.token_file":               {"GOOGLE_TOKEN_FILE"},
	"google.timeout":                  {"GOOGLE_TIMEOUT"},
	"google.rps":                      {"GOOGLE_RPS"},
	"google.burst":                    {"GOOGLE_BURST"},
	"planner.backend":                 {"PLANNER_BACKEND"},
	"planner.file_path":               {"PLANNER_FILE"},
	"database.url":                    {"DATABASE_URL"},
	"redis.url":                       {"REDIS_URL"},
	"storage.strategy":                {"STORAGE_STRATEGY"},
	"storage.content_dir":             {"CONTENT_DIR"},
	"session.secret":                  {"SESSION_SECRET"},
	"session.internal_secret":         {"INTERNAL_API_SECRET"},
	"error_log.path":                  {"ERROR_LOG_PATH"},
	"error_log.max_bytes":             {"ERROR_LOG_MAX_BYTES"},
	"credits.gate_enabled":            {"CREDITS_GATE_ENABLED"},
	"rate_limit.rps":                  {"CLIENT_RATE_LIMIT_RPS"},
	"rate_limit.burst":                {"CLIENT_RATE_LIMIT_BURST"},
	"providers.groq_api_key":          {"GROQ_API_KEY"},
	"providers.replicate_api_token":   {"REPLICATE_API_TOKEN"},
	"providers.razorpay_key_id":       {"NEXT_PUBLIC_RAZORPAY_KEY_ID"},
	"providers.clerk_secret_key":      {"CLERK_SECRET_KEY"},
	"providers.clerk_publishable_key": {"NEXT_PUBLIC_CLERK_PUBLISHABLE_KEY"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "18911")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.environment", "development")

	v.SetDefault("backend.url", "http://localhost:8000")
	v.SetDefault("backend.timeout", "0s")

	v.SetDefault("google.credentials_file", "credentials.json")
	v.SetDefault("google.token_file", "token.json")
	v.SetDefault("google.timeout", "30s")
	v.SetDefault("google.rps", 5.0)
	v.SetDefault("google.burst", 5)
	v.SetDefault("google.drive_base_url", "https://www.googleapis.com/drive/v3")
	v.SetDefault("google.upload_base_url", "https://www.googleapis.com/upload/drive/v3")
	v.SetDefault("google.docs_base_url", "https://docs.googleapis.com/v1")
	v.SetDefault("google.sheets_base_url", "https://sheets.googleapis.com/v4")
	v.SetDefault("google.youtube_base_url", "https://www.googleapis.com/youtube/v3")

	v.SetDefault("planner.backend", "file")
	v.SetDefault("planner.file_path", "content/planner.json")

	v.SetDefault("storage.strategy", "local")
	v.SetDefault("storage.content_dir", "content")

	v.SetDefault("session.name", "nocturnal_session")

	v.SetDefault("error_log.path", "error.log")
	v.SetDefault("error_log.max_bytes", 5<<20)
	v.SetDefault("error_log.keep", 5)
	v.SetDefault("error_log.check_interval", "10m")

	v.SetDefault("credits.gate_enabled", false)

	v.SetDefault("rate_limit.rps", 20.0)
	v.SetDefault("rate_limit.burst", 40)
}

// Load builds the configuration. getenv is injected so tests do not touch the
// process environment; pass os.Getenv in production.
func Load(getenv func(string) string) (*Config, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	v := viper.New()
	setDefaults(v)

	if file := getenv("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !asConfigNotFound(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	for key, names := range envBindings {
		for _, name := range names {
			if val := strings.TrimSpace(getenv(name)); val != "" {
				v.Set(key, val)
				break
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Backend.URL = strings.TrimRight(cfg.Backend.URL, "/")

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func asConfigNotFound(err error, target *viper.ConfigFileNotFoundError) bool {
	if nf, ok := err.(viper.ConfigFileNotFoundError); ok {
		*target = nf
		return true
	}
	return false
}

func (c *Config) validate() error {
	switch c.Planner.Backend {
	case "file":
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("planner backend postgres requires DATABASE_URL")
		}
	case "redis":
		if c.Redis.URL == "" {
			return fmt.Errorf("planner backend redis requires REDIS_URL")
		}
	default:
		return fmt.Errorf("unknown planner backend %q (want file, postgres or redis)", c.Planner.Backend)
	}
	switch c.Storage.Strategy {
	case "local", "drive":
	default:
		return fmt.Errorf("unknown storage strategy %q (want local or drive)", c.Storage.Strategy)
	}
	return nil
}
