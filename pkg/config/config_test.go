package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdirTemp(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, "degree_planner", cfg.Database.Name)
	assert.True(t, cfg.Degree.CacheEnabled)
	assert.Equal(t, 15*time.Minute, cfg.Degree.CacheTTL)
	assert.Equal(t, 200000, cfg.Degree.SearchBudget)
	assert.Equal(t, 2, cfg.Recompute.Workers)
	assert.Equal(t, 3, cfg.Recompute.Retries)
	assert.Nil(t, cfg.CORS.AllowedOrigins)
}

func TestLoadFromEnvironment(t *testing.T) {
	chdirTemp(t)
	t.Setenv("PORT", "9090")
	t.Setenv("DEGREE_CACHE_TTL", "not-a-duration")
	t.Setenv("RECOMPUTE_WORKERS", "0")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, ,http://b.test")
	t.Setenv("ENABLE_DEGREE_CACHE", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 15*time.Minute, cfg.Degree.CacheTTL)
	assert.False(t, cfg.Degree.CacheEnabled)
	assert.Equal(t, 1, cfg.Recompute.Workers)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORS.AllowedOrigins)
}
