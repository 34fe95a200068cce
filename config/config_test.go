package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
http:
  port: 9000
  timeout: 5s
log:
  level: debug
ml:
  watch: true
  stop_visit:
    model_type: decision_tree
    model_path: artifacts/tree.json
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Http.Port)
	assert.Equal(t, 5*time.Second, cfg.Http.Timeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.ML.Watch)
	assert.Equal(t, "decision_tree", cfg.ML.StopVisit.ModelType)
	assert.Equal(t, "artifacts/tree.json", cfg.ML.StopVisit.ModelPath)
	// untouched keys keep their defaults
	assert.Equal(t, "model/scaler.json", cfg.ML.StopVisit.ScalerPath)
	assert.Equal(t, 1024, cfg.ML.CacheSize)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("BUSDELAY_HTTP_PORT", "8088")
	t.Setenv("BUSDELAY_STOP_MODEL_PATH", "/srv/model.json")
	t.Setenv("BUSDELAY_WATCH_ARTIFACTS", "yes")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8088, cfg.Http.Port)
	assert.Equal(t, "/srv/model.json", cfg.ML.StopVisit.ModelPath)
	assert.True(t, cfg.ML.Watch)
}

func TestLoadRejectsBadEnv(t *testing.T) {
	t.Setenv("BUSDELAY_HTTP_PORT", "eighty")
	_, err := Load("")
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadSurfacesUnreadableDotEnv(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, loadDotEnv(filepath.Join(dir, "missing.env")))

	// a directory opens but cannot be read as a file
	prev := dotEnvFile
	dotEnvFile = dir
	t.Cleanup(func() { dotEnvFile = prev })

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load "+dir)
}

func TestLoadDotEnvExportsVariables(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("BUSDELAY_DOTENV_CHECK=from-file\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("BUSDELAY_DOTENV_CHECK") })

	require.NoError(t, loadDotEnv(path))
	assert.Equal(t, "from-file", os.Getenv("BUSDELAY_DOTENV_CHECK"))
}

func TestValidate(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	cfg.ML.Schedule.ModelPath = ""
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Http.Port = 70000
	assert.Error(t, cfg.Validate())
}

func TestLoggingMapping(t *testing.T) {
	cfg := Default()
	cfg.Log.File = "logs/x.log"
	lc := cfg.Logging()
	assert.True(t, lc.File)
	assert.Equal(t, "logs/x.log", lc.FilePath)
	assert.Equal(t, "info", lc.Level)
}
