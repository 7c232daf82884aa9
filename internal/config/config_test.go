package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unsetenv clears key for the duration of the test and restores it after.
func unsetenv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))
}

func isolate(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
	for _, key := range []string{"N8N_HOST", "N8N_API_KEY", "N8N_TIMEOUT", "DB_HOST", "LOG_LEVEL", "SERVER_ADDRESS"} {
		unsetenv(t, key)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, DefaultHost, cfg.N8N.Host)
	assert.Empty(t, cfg.N8N.APIKey)
	assert.Equal(t, 30*time.Second, cfg.N8N.Timeout)
	assert.Equal(t, 5432, cfg.DB.Port)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.DatabaseConfigured())
}

func TestLoadConfig_Environment(t *testing.T) {
	isolate(t)
	t.Setenv("N8N_HOST", "http://n8n.internal:5678/api/v1/")
	t.Setenv("N8N_API_KEY", " secret ")
	t.Setenv("N8N_TIMEOUT", "5s")
	t.Setenv("DB_HOST", "db")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "http://n8n.internal:5678", cfg.N8N.Host)
	assert.Equal(t, "secret", cfg.N8N.APIKey)
	assert.Equal(t, 5*time.Second, cfg.N8N.Timeout)
	assert.True(t, cfg.DatabaseConfigured())
	assert.Contains(t, cfg.DatabaseURL(), "host=db port=5432")
}

func TestLoadConfig_EnvFileDoesNotOverrideEnvironment(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("N8N_API_KEY=from-file\nN8N_HOST=http://file-host:5678\n"), 0600))
	t.Setenv("N8N_HOST", "http://env-host:5678")

	cfg, err := LoadConfig(envFile)
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.N8N.APIKey)
	assert.Equal(t, "http://env-host:5678", cfg.N8N.Host)
}

func TestLoadConfig_DotEnvInWorkingDirectory(t *testing.T) {
	isolate(t)
	require.NoError(t, os.WriteFile(".env", []byte("LOG_LEVEL=debug\n"), 0600))

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadConfig_YAMLFile(t *testing.T) {
	isolate(t)
	yaml := "n8n:\n  host: http://yaml-host:5678\nserver:\n  address: \":9090\"\n"
	require.NoError(t, os.WriteFile("config.yaml", []byte(yaml), 0600))

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "http://yaml-host:5678", cfg.N8N.Host)
	assert.Equal(t, ":9090", cfg.Server.Address)
}

func TestLoadConfig_MissingEnvFile(t *testing.T) {
	isolate(t)
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func TestNormalizeHost(t *testing.T) {
	assert.Equal(t, "http://localhost:5678", NormalizeHost("http://localhost:5678/"))
	assert.Equal(t, "https://n8n.example.com", NormalizeHost("https://n8n.example.com/api/v1"))
	assert.Equal(t, DefaultHost, NormalizeHost("  "))
}
