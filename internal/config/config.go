package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	ProviderHTTP   = "http"
	ProviderGemini = "gemini"

	DefaultUpstreamEndpoint = "https://intertest.woolf.engineering/invoke"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Upstream UpstreamConfig
	Gemini   GeminiConfig
	Pipeline PipelineConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port      string
	Env       string
	BodyLimit int
}

type DatabaseConfig struct {
	AuditEnabled bool
	Host         string
	Port         string
	User         string
	Password     string
	DBName       string
}

// UpstreamConfig describes the generative-model endpoint. AuthToken is the single shared
// credential sent in the Authorization header.
type UpstreamConfig struct {
	Provider  string
	Endpoint  string
	AuthToken string
	Timeout   time.Duration
}

type GeminiConfig struct {
	APIKey string
	Model  string
}

type PipelineConfig struct {
	RequestTimeout time.Duration
}

type LogConfig struct {
	JSON  bool
	Debug bool
}

var defaults = map[string]any{
	"PORT":              "4000",
	"ENV":               "development",
	"BODY_LIMIT":        20 * 1024 * 1024,
	"AUDIT_ENABLED":     false,
	"DB_HOST":           "localhost",
	"DB_PORT":           "5432",
	"DB_USER":           "postgres",
	"DB_PASSWORD":       "postgres",
	"DB_NAME":           "cv_analyzer",
	"UPSTREAM_PROVIDER": ProviderHTTP,
	"UPSTREAM_ENDPOINT": DefaultUpstreamEndpoint,
	"GEMINI_AUTH_TOKEN": "",
	"UPSTREAM_TIMEOUT":  "60s",
	"GEMINI_API_KEY":    "",
	"GEMINI_MODEL":      "gemini-2.5-flash",
	"REQUEST_TIMEOUT":   "90s",
	"LOG_JSON":          false,
	"LOG_DEBUG":         false,
}

// LoadDotEnv loads the given env files (or .env when none is given) into the process
// environment. A missing file is not an error.
func LoadDotEnv(files ...string) error {
	if err := godotenv.Load(files...); err != nil {
		if len(files) > 0 {
			return fmt.Errorf("loading env file: %w", err)
		}
	}
	return nil
}

// Load resolves the configuration from v. Environment variables always win over defaults;
// flags bound to v win over both.
func Load(v *viper.Viper) *Config {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	return &Config{
		Server: ServerConfig{
			Port:      v.GetString("PORT"),
			Env:       v.GetString("ENV"),
			BodyLimit: v.GetInt("BODY_LIMIT"),
		},
		Database: DatabaseConfig{
			AuditEnabled: v.GetBool("AUDIT_ENABLED"),
			Host:         v.GetString("DB_HOST"),
			Port:         v.GetString("DB_PORT"),
			User:         v.GetString("DB_USER"),
			Password:     v.GetString("DB_PASSWORD"),
			DBName:       v.GetString("DB_NAME"),
		},
		Upstream: UpstreamConfig{
			Provider:  strings.ToLower(strings.TrimSpace(v.GetString("UPSTREAM_PROVIDER"))),
			Endpoint:  strings.TrimSpace(v.GetString("UPSTREAM_ENDPOINT")),
			AuthToken: strings.TrimSpace(v.GetString("GEMINI_AUTH_TOKEN")),
			Timeout:   v.GetDuration("UPSTREAM_TIMEOUT"),
		},
		Gemini: GeminiConfig{
			APIKey: strings.TrimSpace(v.GetString("GEMINI_API_KEY")),
			Model:  strings.TrimSpace(v.GetString("GEMINI_MODEL")),
		},
		Pipeline: PipelineConfig{
			RequestTimeout: v.GetDuration("REQUEST_TIMEOUT"),
		},
		Log: LogConfig{
			JSON:  v.GetBool("LOG_JSON"),
			Debug: v.GetBool("LOG_DEBUG"),
		},
	}
}

// Validate checks the settings serve cannot run without.
func (c *Config) Validate() error {
	var errs []error

	switch c.Upstream.Provider {
	case ProviderHTTP:
		if c.Upstream.Endpoint == "" {
			errs = append(errs, errors.New("UPSTREAM_ENDPOINT is required"))
		}
		if c.Upstream.AuthToken == "" {
			errs = append(errs, errors.New("GEMINI_AUTH_TOKEN is required"))
		}
	case ProviderGemini:
		if c.Gemini.APIKey == "" {
			errs = append(errs, errors.New("GEMINI_API_KEY is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown UPSTREAM_PROVIDER %q", c.Upstream.Provider))
	}

	if c.Upstream.Timeout <= 0 {
		errs = append(errs, errors.New("UPSTREAM_TIMEOUT must be positive"))
	}
	if c.Pipeline.RequestTimeout <= 0 {
		errs = append(errs, errors.New("REQUEST_TIMEOUT must be positive"))
	}

	return errors.Join(errs...)
}

func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
	)
}
