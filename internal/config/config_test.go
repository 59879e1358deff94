package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name      string
		yaml      string
		envVars   map[string]string
		wantErr   string
		checkFunc func(t *testing.T, cfg *Config)
	}{
		{
			name: "valid minimal config",
			yaml: `
database:
  host: localhost
  name: stockwatch
  user: stockwatch
source:
  listing_url: https://shop.example.com/men-new-arrivals
`,
			checkFunc: func(t *testing.T, cfg *Config) {
				t.Helper()
				assert.Equal(t, "localhost", cfg.Database.Host)
				assert.Equal(t, "stockwatch", cfg.Database.Name)
				assert.Equal(t, "https://shop.example.com/men-new-arrivals", cfg.Source.ListingURL)
				assert.False(t, cfg.Telegram.Enabled)
			},
		},
		{
			name: "defaults applied for optional fields",
			yaml: `
database:
  host: localhost
  name: stockwatch
  user: stockwatch
source:
  listing_url: https://shop.example.com/men-new-arrivals
`,
			checkFunc: func(t *testing.T, cfg *Config) {
				t.Helper()
				assert.Equal(t, "0.0.0.0", cfg.Server.Host)
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, 5432, cfg.Database.Port)
				assert.Equal(t, "disable", cfg.Database.SSLMode)
				assert.Equal(t, 10, cfg.Database.PoolSize)
				assert.Equal(t, "men", cfg.Source.Category)
				assert.Equal(t, 50, cfg.Source.MaxProducts)
				assert.Equal(t, 3, cfg.Source.RetryCount)
				assert.Equal(t, 3*time.Minute, cfg.Schedule.PollInterval)
				assert.Equal(t, 30*time.Second, cfg.Schedule.Jitter)
				assert.Equal(t, time.Minute, cfg.Schedule.MinWait)
				assert.Equal(t, 5, cfg.Schedule.FailureThreshold)
				assert.Equal(t, 5*time.Minute, cfg.Schedule.FailureCooldown)
				assert.Equal(t, 2*time.Hour, cfg.Schedule.SummaryInterval)
				assert.Equal(t, "https://api.telegram.org", cfg.Telegram.APIURL)
				assert.InDelta(t, 1.0, cfg.Telegram.SendsPerSecond, 0)
				assert.Equal(t, "info", cfg.Logging.Level)
				assert.Equal(t, "text", cfg.Logging.Format)
			},
		},
		{
			name: "env var substitution",
			yaml: `
database:
  host: localhost
  name: stockwatch
  user: stockwatch
  password: ${STOCKWATCH_TEST_DB_PASSWORD}
source:
  listing_url: https://shop.example.com/men-new-arrivals
telegram:
  enabled: true
  bot_token: ${STOCKWATCH_TEST_BOT_TOKEN}
  chat_id: "12345"
`,
			envVars: map[string]string{
				"STOCKWATCH_TEST_DB_PASSWORD": "s3cret",
				"STOCKWATCH_TEST_BOT_TOKEN":   "123:abc",
			},
			checkFunc: func(t *testing.T, cfg *Config) {
				t.Helper()
				assert.Equal(t, "s3cret", cfg.Database.Password)
				assert.Equal(t, "123:abc", cfg.Telegram.BotToken)
			},
		},
		{
			name: "missing database host",
			yaml: `
database:
  name: stockwatch
  user: stockwatch
source:
  listing_url: https://shop.example.com/men-new-arrivals
`,
			wantErr: "database.host is required",
		},
		{
			name: "missing listing url",
			yaml: `
database:
  host: localhost
  name: stockwatch
  user: stockwatch
`,
			wantErr: "source.listing_url is required",
		},
		{
			name: "telegram enabled without credentials",
			yaml: `
database:
  host: localhost
  name: stockwatch
  user: stockwatch
source:
  listing_url: https://shop.example.com/men-new-arrivals
telegram:
  enabled: true
`,
			wantErr: "telegram.bot_token is required",
		},
		{
			name: "jitter exceeding poll interval",
			yaml: `
database:
  host: localhost
  name: stockwatch
  user: stockwatch
source:
  listing_url: https://shop.example.com/men-new-arrivals
schedule:
  poll_interval: 1m
  jitter: 2m
`,
			wantErr: "schedule.jitter",
		},
		{
			name:    "invalid yaml",
			yaml:    "database: [not a map",
			wantErr: "parsing config YAML",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0o600))

			cfg, err := Load(path)

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}

			require.NoError(t, err)
			if tt.checkFunc != nil {
				tt.checkFunc(t, cfg)
			}
		})
	}
}

func TestLoad_FileMissing(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}

func TestDatabaseConfig_DSN(t *testing.T) {
	t.Parallel()

	d := DatabaseConfig{
		Host: "db.internal", Port: 5433, Name: "stockwatch",
		User: "sw", Password: "pw", SSLMode: "require",
	}
	assert.Equal(t,
		"host=db.internal port=5433 dbname=stockwatch user=sw password=pw sslmode=require",
		d.DSN(),
	)
}
