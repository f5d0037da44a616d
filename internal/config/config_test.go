package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load(envMap(nil))
	require.NoError(t, err)

	assert.Equal(t, "18911", cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "file", cfg.Planner.Backend)
	assert.Equal(t, "content/planner.json", cfg.Planner.FilePath)
	assert.Equal(t, "local", cfg.Storage.Strategy)
	assert.Equal(t, "error.log", cfg.ErrorLog.Path)
	assert.Equal(t, time.Duration(0), cfg.Backend.Timeout)
	assert.Equal(t, "https://sheets.googleapis.com/v4", cfg.Google.SheetsBaseURL)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_LegacyEnvNames(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load(envMap(map[string]string{
		"NEXT_PUBLIC_API_URL":          "https://api.example.com/",
		"BACKEND_API_KEY":              "k-123",
		"NEXT_PUBLIC_GOOGLE_CLIENT_ID": "cid.apps.googleusercontent.com",
		"GROQ_API_KEY":                 "gsk",
		"PORT":                         "9000",
		"GOOGLE_RPS":                   "2.5",
	}))
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com", cfg.Backend.URL)
	assert.Equal(t, "k-123", cfg.Backend.APIKey)
	assert.Equal(t, "cid.apps.googleusercontent.com", cfg.Google.ClientID)
	assert.Equal(t, "9000", cfg.Server.Port)
	assert.InDelta(t, 2.5, cfg.Google.RequestsPerSec, 0.0001)
	assert.True(t, cfg.Providers.Present()["groq"])
	assert.False(t, cfg.Providers.Present()["replicate"])
}

func TestLoad_NewNameWinsOverLegacy(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load(envMap(map[string]string{
		"BACKEND_API_URL":     "http://new",
		"NEXT_PUBLIC_API_URL": "http://old",
	}))
	require.NoError(t, err)
	assert.Equal(t, "http://new", cfg.Backend.URL)
}

func TestLoad_ConfigFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "nocturnal.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
planner:
  backend: redis
redis:
  url: redis://localhost:6379/0
storage:
  strategy: drive
`), 0o644))

	cfg, err := Load(envMap(map[string]string{
		"CONFIG_FILE": file,
		"REDIS_URL":   "redis://cache:6379/1",
	}))
	require.NoError(t, err)
	assert.Equal(t, "redis", cfg.Planner.Backend)
	assert.Equal(t, "redis://cache:6379/1", cfg.Redis.URL)
	assert.Equal(t, "drive", cfg.Storage.Strategy)
}

func TestLoad_RejectsIncompleteBackends(t *testing.T) {
	chdir(t, t.TempDir())

	_, err := Load(envMap(map[string]string{"PLANNER_BACKEND": "postgres"}))
	assert.Error(t, err)

	_, err = Load(envMap(map[string]string{"PLANNER_BACKEND": "sqlite"}))
	assert.Error(t, err)

	_, err = Load(envMap(map[string]string{"STORAGE_STRATEGY": "s3"}))
	assert.Error(t, err)
}

// chdir switches the working directory for the duration of the test,
// restoring it on cleanup (equivalent to testing.T.Chdir from Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
