package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "UPSTREAM_PROVIDER", "UPSTREAM_ENDPOINT", "UPSTREAM_TIMEOUT", "REQUEST_TIMEOUT", "GEMINI_AUTH_TOKEN", "AUDIT_ENABLED"} {
		t.Setenv(key, "")
	}

	cfg := Load(viper.New())

	assert.Equal(t, "4000", cfg.Server.Port)
	assert.Equal(t, ProviderHTTP, cfg.Upstream.Provider)
	assert.Equal(t, DefaultUpstreamEndpoint, cfg.Upstream.Endpoint)
	assert.Equal(t, 60*time.Second, cfg.Upstream.Timeout)
	assert.Equal(t, 90*time.Second, cfg.Pipeline.RequestTimeout)
	assert.False(t, cfg.Database.AuditEnabled)
	assert.Empty(t, cfg.Upstream.AuthToken)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("GEMINI_AUTH_TOKEN", "  secret-token ")
	t.Setenv("UPSTREAM_PROVIDER", "Gemini")
	t.Setenv("UPSTREAM_TIMEOUT", "5s")
	t.Setenv("AUDIT_ENABLED", "true")

	cfg := Load(viper.New())

	assert.Equal(t, "8081", cfg.Server.Port)
	assert.Equal(t, "secret-token", cfg.Upstream.AuthToken)
	assert.Equal(t, ProviderGemini, cfg.Upstream.Provider)
	assert.Equal(t, 5*time.Second, cfg.Upstream.Timeout)
	assert.True(t, cfg.Database.AuditEnabled)
}

func TestLoadOverride(t *testing.T) {
	v := viper.New()
	v.Set("LOG_DEBUG", true)

	cfg := Load(v)

	assert.True(t, cfg.Log.Debug)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Upstream: UpstreamConfig{
				Provider:  ProviderHTTP,
				Endpoint:  DefaultUpstreamEndpoint,
				AuthToken: "token",
				Timeout:   time.Second,
			},
			Pipeline: PipelineConfig{RequestTimeout: time.Second},
		}
	}

	cases := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing token", mutate: func(c *Config) { c.Upstream.AuthToken = "" }, wantErr: "GEMINI_AUTH_TOKEN is required"},
		{name: "unknown provider", mutate: func(c *Config) { c.Upstream.Provider = "openai" }, wantErr: `unknown UPSTREAM_PROVIDER "openai"`},
		{name: "gemini without key", mutate: func(c *Config) { c.Upstream.Provider = ProviderGemini }, wantErr: "GEMINI_API_KEY is required"},
		{name: "gemini with key", mutate: func(c *Config) {
			c.Upstream.Provider = ProviderGemini
			c.Upstream.AuthToken = ""
			c.Gemini.APIKey = "key"
		}},
		{name: "zero timeout", mutate: func(c *Config) { c.Upstream.Timeout = 0 }, wantErr: "UPSTREAM_TIMEOUT must be positive"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(cfg)

			err := cfg.Validate()
			if tc.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}
