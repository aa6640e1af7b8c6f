package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "MORO", cfg.License.SerialPrefix)
	assert.Equal(t, 12*time.Hour, cfg.License.AdminTokenTTL)
	assert.Equal(t, 30*24*time.Hour, cfg.License.ActivationTokenTTL)
	assert.True(t, cfg.Security.AdminAuthEnabled)
	assert.Equal(t, "licenses.json", cfg.Paths.LicenseFile)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		cfg.Security.SigningSecret = "test-secret"
		cfg.Security.AdminPassword = "hunter2"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid config passes",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing signing secret fails",
			mutate:  func(c *Config) { c.Security.SigningSecret = "" },
			wantErr: "signing secret",
		},
		{
			name: "missing admin password fails when auth enabled",
			mutate: func(c *Config) {
				c.Security.AdminPassword = ""
				c.Security.AdminPasswordHash = ""
			},
			wantErr: "admin password",
		},
		{
			name: "missing admin password allowed when auth disabled",
			mutate: func(c *Config) {
				c.Security.AdminAuthEnabled = false
				c.Security.AdminPassword = ""
			},
		},
		{
			name:    "invalid port fails",
			mutate:  func(c *Config) { c.Server.Port = -1 },
			wantErr: "invalid server port",
		},
		{
			name:    "empty serial prefix fails",
			mutate:  func(c *Config) { c.License.SerialPrefix = "" },
			wantErr: "serial prefix",
		},
		{
			name:    "zero batch quantity fails",
			mutate:  func(c *Config) { c.License.MaxBatchQuantity = 0 },
			wantErr: "batch quantity",
		},
		{
			name:    "zero token TTL fails",
			mutate:  func(c *Config) { c.License.AdminTokenTTL = 0 },
			wantErr: "token TTLs",
		},
		{
			name:    "no allowed origins fails",
			mutate:  func(c *Config) { c.Security.AllowedOrigins = nil },
			wantErr: "allowed origin",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("KEYMINT_SECURITY_SIGNING_SECRET", "env-secret")
	t.Setenv("KEYMINT_SECURITY_ADMIN_PASSWORD", "env-password")
	t.Setenv("KEYMINT_SERVER_PORT", "4000")
	t.Setenv("KEYMINT_LICENSE_SERIAL_PREFIX", "ACME")
	t.Setenv("KEYMINT_SECURITY_ADMIN_AUTH_ENABLED", "false")

	// Run from a temp dir so no stray config.yaml is picked up.
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { os.Chdir(wd) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "env-secret", cfg.Security.SigningSecret)
	assert.Equal(t, 4000, cfg.Server.Port)
	assert.Equal(t, "ACME", cfg.License.SerialPrefix)
	assert.False(t, cfg.Security.AdminAuthEnabled)
}

func TestLicenseFilePath(t *testing.T) {
	cfg := Default()
	cfg.Paths.DataDir = "data"
	cfg.Paths.LicenseFile = "licenses.json"
	assert.Equal(t, filepath.Join("data", "licenses.json"), cfg.LicenseFilePath())

	abs := filepath.Join(t.TempDir(), "custom.json")
	cfg.Paths.LicenseFile = abs
	assert.Equal(t, abs, cfg.LicenseFilePath())
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.Paths.DataDir = filepath.Join(dir, "data")
	cfg.Paths.LogsDir = filepath.Join(dir, "logs")

	require.NoError(t, cfg.EnsureDirectories())
	assert.DirExists(t, cfg.Paths.DataDir)
	assert.DirExists(t, cfg.Paths.LogsDir)
}
