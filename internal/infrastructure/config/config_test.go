package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "backoffice", cfg.App.Name)
	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 200*time.Millisecond, cfg.Database.SlowThreshold)
	assert.Equal(t, "", cfg.Redis.Addr())
	assert.Equal(t, 100, cfg.Collection.PageSize)
	assert.Equal(t, 500*time.Millisecond, cfg.Collection.PageDelay)
	assert.Equal(t, 10, cfg.Collection.LowStockThreshold)
	assert.Equal(t, 1000, cfg.Collection.MaxPages)
	assert.Equal(t, 30*time.Minute, cfg.Collection.JobTimeout)
	assert.False(t, cfg.Worker.Enabled())
	assert.False(t, cfg.Archive.Enabled)
}

func TestLoadFrom_FileAndEnvOverride(t *testing.T) {
	path := writeConfig(t, `
app:
  name: catalog-sync
database:
  host: db.internal
  password: from-file
redis:
  host: cache.internal
collection:
  page_size: 50
  page_delay: 2s
  low_stock_threshold: 5
`)
	t.Setenv("ERP_DATABASE_PASSWORD", "from-env")
	t.Setenv("ERP_COLLECTION_MAX_PAGES", "20")

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, "catalog-sync", cfg.App.Name)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "from-env", cfg.Database.Password)
	assert.Equal(t, "cache.internal:6379", cfg.Redis.Addr())
	assert.Equal(t, 50, cfg.Collection.PageSize)
	assert.Equal(t, 2*time.Second, cfg.Collection.PageDelay)
	assert.Equal(t, 5, cfg.Collection.LowStockThreshold)
	assert.Equal(t, 20, cfg.Collection.MaxPages)
}

func TestLoadFrom_MissingExplicitFile(t *testing.T) {
	_, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func(t *testing.T) *Config {
		t.Chdir(t.TempDir())
		cfg, err := Load()
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"idle exceeds open", func(c *Config) { c.Database.MaxIdleConns = 100 }, "max_idle_conns"},
		{"sampling ratio", func(c *Config) { c.Telemetry.SamplingRatio = 2 }, "sampling_ratio"},
		{"page size", func(c *Config) { c.Collection.PageSize = 0 }, "page_size"},
		{"page timeout over job timeout", func(c *Config) { c.Collection.PageTimeout = time.Hour }, "page_timeout"},
		{"threshold", func(c *Config) { c.Collection.LowStockThreshold = 0 }, "low_stock_threshold"},
		{"archive bucket", func(c *Config) { c.Archive.Enabled = true }, "archive.bucket"},
		{"short worker secret", func(c *Config) {
			c.Worker.URL = "http://worker:9000/jobs"
			c.Worker.CallbackBaseURL = "http://api:8080"
			c.Worker.TokenSecret = "short"
		}, "token_secret"},
		{"worker callback", func(c *Config) {
			c.Worker.URL = "http://worker:9000/jobs"
			c.Worker.TokenSecret = strings.Repeat("s", 32)
		}, "callback_base_url"},
		{"production password", func(c *Config) { c.App.Env = "production" }, "database.password"},
		{"production cors", func(c *Config) {
			c.App.Env = "production"
			c.Database.Password = "secret"
			c.Database.SSLMode = "require"
			c.HTTP.CORSAllowOrigins = []string{"*"}
		}, "cors_allow_origins"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base(t)
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, User: "app", Password: "p@ss/word", DBName: "backoffice", SSLMode: "require"}
	assert.Equal(t, "postgres://app:p%40ss%2Fword@db:5432/backoffice?sslmode=require", d.DSN())
}
