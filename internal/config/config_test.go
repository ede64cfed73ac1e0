package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(New(""))
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "127.0.0.1:4000", cfg.HTTP.Addr())
	assert.Equal(t, 365*24*time.Hour, cfg.Cleanup.UnusedAfter)
	assert.Equal(t, int64(100*1024*1024), cfg.Cleanup.LargeMinSize)
	assert.Equal(t, 1, cfg.Bulk.Concurrency)
	assert.False(t, cfg.IsRelease())
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "drivesweep.yaml")
	body := `mode: release
http:
  port: 8086
database:
  driver: postgres
  dsn: postgres://localhost/drivesweep
cleanup:
  unused_after: 720h
bulk:
  concurrency: 4
  call_timeout: 10s
`
	require.NoError(t, os.WriteFile(cfgPath, []byte(body), 0o644))
	t.Setenv("DRIVESWEEP_HTTP_PORT", "9090")
	t.Setenv("DRIVESWEEP_GOOGLE_CLIENT_ID", "client-from-env")

	cfg, err := Load(New(cfgPath))
	require.NoError(t, err)

	assert.True(t, cfg.IsRelease())
	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, 720*time.Hour, cfg.Cleanup.UnusedAfter)
	assert.Equal(t, 4, cfg.Bulk.Concurrency)
	assert.Equal(t, 10*time.Second, cfg.Bulk.CallTimeout)
	assert.Equal(t, "client-from-env", cfg.Google.ClientID)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "unknown driver", mutate: func(c *Config) { c.Database.Driver = "mysql" }, wantErr: true},
		{name: "empty dsn", mutate: func(c *Config) { c.Database.DSN = "" }, wantErr: true},
		{name: "zero cutoff", mutate: func(c *Config) { c.Cleanup.UnusedAfter = 0 }, wantErr: true},
		{name: "zero timeout", mutate: func(c *Config) { c.Bulk.CallTimeout = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Database: DatabaseConfig{Driver: DriverSQLite, DSN: "test.db"},
				Cleanup:  CleanupConfig{UnusedAfter: time.Hour},
				Bulk:     BulkConfig{Concurrency: 0, CallTimeout: time.Second},
			}
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 1, cfg.Bulk.Concurrency)
		})
	}
}
