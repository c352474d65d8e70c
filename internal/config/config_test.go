package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/mealprep-agent/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("MEALPREP_CONFIG", "")
	t.Setenv("PORT", "")

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, time.Hour, cfg.Session.Timeout)
	assert.Equal(t, config.BackendFile, cfg.Memory.Backend)
	assert.True(t, cfg.LLM.UseMock)
	assert.Equal(t, 5, cfg.Workflow.RecipeConcurrency)
	assert.Equal(t, 5*time.Second, cfg.Workflow.RecipeTimeout)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mealprep.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "9000"
session:
  timeout: 30m
memory:
  backend: sqlite
  sqlite_path: /tmp/mem.db
workflow:
  recipe_timeout: 2s
  recipe_concurrency: 3
`), 0o600))

	t.Setenv("PORT", "")
	t.Setenv("MEALPREP_RECIPE_CONCURRENCY", "8")
	t.Setenv("MEALPREP_LOG_LEVEL", "debug")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, 30*time.Minute, cfg.Session.Timeout)
	assert.Equal(t, config.BackendSQLite, cfg.Memory.Backend)
	assert.Equal(t, "/tmp/mem.db", cfg.Memory.SQLitePath)
	assert.Equal(t, 2*time.Second, cfg.Workflow.RecipeTimeout)
	assert.Equal(t, 8, cfg.Workflow.RecipeConcurrency, "env wins over the file")
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 5*time.Second, cfg.Workflow.PlannerTimeout, "unset keys keep defaults")
}

func TestLoad_BadEnv(t *testing.T) {
	t.Setenv("MEALPREP_CONFIG", "")
	t.Setenv("MEALPREP_SESSION_TIMEOUT", "soon")

	_, err := config.Load("")
	assert.ErrorContains(t, err, "MEALPREP_SESSION_TIMEOUT")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, cfg.Validate())

	cfg.Memory.Backend = "postgres"
	cfg.LLM.UseMock = false
	cfg.Workflow.RecipeConcurrency = 0
	err := cfg.Validate()
	require.ErrorIs(t, err, config.ErrInvalid)
	assert.ErrorContains(t, err, `unknown memory backend "postgres"`)
	assert.ErrorContains(t, err, "mock LLM is disabled")
	assert.ErrorContains(t, err, "recipe_concurrency")

	cfg = config.Default()
	cfg.Memory.Backend = config.BackendFirestore
	assert.ErrorContains(t, cfg.Validate(), "firestore backend")
}
