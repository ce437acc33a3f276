package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Balram04/assigno/internal/common/httpclient"
	"github.com/Balram04/assigno/internal/storage"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvAPIURL, EnvRequestTimeout, EnvVerifyTimeout, EnvPollInterval, EnvLogLevel,
		EnvInsecure, EnvStorage, EnvStoragePath, EnvRedisAddr, EnvRedisPassword, EnvRedisDB} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	cfg, err := Load(filepath.Join(dir, "missing.yaml"), filepath.Join(dir, ".env"))
	require.NoError(t, err)
	assert.Equal(t, httpclient.DefaultServerURL, cfg.ServerURL)
	assert.Equal(t, 10*time.Second, cfg.VerifyTimeout)
	assert.Equal(t, 5*time.Second, cfg.PollInterval)
	assert.Equal(t, storage.KindFile, cfg.Storage.Kind)
	assert.Equal(t, filepath.Join(dir, DefaultSessionFile), cfg.StorageOptions().FilePath)
}

func TestLoadYAMLAndTOML(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	y := writeFile(t, dir, "config.yaml", `
version: "0.1"
server_url: https://lms.example.edu/api/
verify_timeout: 3s
poll_interval: 2s
log_level: debug
storage:
  kind: redis
  redis:
    addr: 127.0.0.1:6379
    db: 2
`)
	cfg, err := Load(y, filepath.Join(dir, "none.env"))
	require.NoError(t, err)
	assert.Equal(t, "https://lms.example.edu/api", cfg.ServerURL)
	assert.Equal(t, 3*time.Second, cfg.VerifyTimeout)
	assert.Equal(t, 2*time.Second, cfg.PollInterval)
	assert.Equal(t, "debug", cfg.LogLevel)
	opts := cfg.StorageOptions()
	assert.Equal(t, storage.KindRedis, opts.Kind)
	assert.Equal(t, "127.0.0.1:6379", opts.Redis.Addr)
	assert.Equal(t, 2, opts.Redis.DB)

	tm := writeFile(t, dir, "config.toml", `
version = "0.1"
server_url = "lms.example.edu/api"
request_timeout = "15s"

[storage]
kind = "memory"
`)
	cfg, err = Load(tm, filepath.Join(dir, "none.env"))
	require.NoError(t, err)
	assert.Equal(t, "https://lms.example.edu/api", cfg.ServerURL)
	assert.Equal(t, 15*time.Second, cfg.RequestTimeout)
	assert.Equal(t, storage.KindMemory, cfg.Storage.Kind)
}

func TestLoadPrecedence(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	file := writeFile(t, dir, "config.yaml", "server_url: http://file:5000/api\nlog_level: info\npoll_interval: 9s\n")
	dotenv := writeFile(t, dir, ".env", "ASSIGNO_API_URL=http://dotenv:5000/api\nASSIGNO_LOG_LEVEL=error\n")

	cfg, err := Load(file, dotenv)
	require.NoError(t, err)
	assert.Equal(t, "http://dotenv:5000/api", cfg.ServerURL, ".env overrides the file")
	assert.Equal(t, "error", cfg.LogLevel)
	assert.Equal(t, 9*time.Second, cfg.PollInterval, "unset keys keep the file value")

	t.Setenv(EnvAPIURL, "http://env:5000/api")
	t.Setenv(EnvPollInterval, "1s")
	cfg, err = Load(file, dotenv)
	require.NoError(t, err)
	assert.Equal(t, "http://env:5000/api", cfg.ServerURL, "environment overrides .env")
	assert.Equal(t, "error", cfg.LogLevel)
	assert.Equal(t, time.Second, cfg.PollInterval)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		file string
		env  map[string]string
	}{
		{"bad yaml", "server_url: [", nil},
		{"bad log level", "log_level: loud\n", nil},
		{"bad storage", "storage:\n  kind: floppy\n", nil},
		{"redis without addr", "storage:\n  kind: redis\n", nil},
		{"bad duration", "", map[string]string{EnvVerifyTimeout: "soon"}},
		{"bad redis db", "", map[string]string{EnvRedisDB: "two"}},
		{"bad bool", "", map[string]string{EnvInsecure: "maybe"}},
		{"unsupported scheme", "server_url: ftp://lms.example.edu\n", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			dir := t.TempDir()
			file := writeFile(t, dir, "config.yaml", tt.file)
			_, err := Load(file, filepath.Join(dir, "none.env"))
			assert.Error(t, err)
		})
	}
}

func TestWriteRoundTrip(t *testing.T) {
	clearEnv(t)
	for _, name := range []string{"config.yaml", "config.toml"} {
		t.Run(name, func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "assigno")
			file := filepath.Join(dir, name)

			cfg := Default()
			cfg.ServerURL = "https://lms.example.edu/api"
			cfg.VerifyTimeout = 4 * time.Second
			require.NoError(t, cfg.Write(file))

			info, err := os.Stat(file)
			require.NoError(t, err)
			assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

			loaded, err := Load(file, filepath.Join(dir, "none.env"))
			require.NoError(t, err)
			assert.Equal(t, cfg.ServerURL, loaded.ServerURL)
			assert.Equal(t, 4*time.Second, loaded.VerifyTimeout)
			assert.Equal(t, file, loaded.Path())
		})
	}

	assert.Error(t, Default().Write(""))
}

func TestMorphServer(t *testing.T) {
	tests := map[string]string{
		"":                           "",
		"localhost:5000/api":         "http://localhost:5000/api",
		"127.0.0.1:5000/api/":        "http://127.0.0.1:5000/api",
		"lms.example.edu/api":        "https://lms.example.edu/api",
		"http://lms.example.edu/api": "http://lms.example.edu/api",
		" https://x.io// ":           "https://x.io",
	}
	for in, want := range tests {
		assert.Equal(t, want, MorphServer(in), in)
	}
}

func TestClientOptions(t *testing.T) {
	cfg := Default()
	cfg.InsecureSkipVerify = true
	opts := cfg.ClientOptions()
	assert.Equal(t, 30*time.Second, opts.Timeout)
	assert.True(t, opts.DisableCertValidation)
}
