package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"busdelay/config"
	"busdelay/features"
)

func writeJSONFile(t *testing.T, path string, v any) {
	t.Helper()
	payload, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, payload, 0o600))
}

func identityScaler(names []string) map[string]any {
	mean := make([]float64, len(names))
	scale := make([]float64, len(names))
	for i := range scale {
		scale[i] = 1
	}
	return map[string]any{"feature_names": names, "mean": mean, "scale": scale}
}

func constantModel(n int, p float64) map[string]any {
	return map[string]any{"coef": make([]float64, n), "intercept": math.Log(p / (1 - p))}
}

// writeConfig lays out artifacts and a config file in a temp dir. Swapped
// scalers make every transform fail.
func writeConfig(t *testing.T, swapScalers bool) string {
	t.Helper()
	dir := t.TempDir()
	stopNames := features.StopVisitSchema.Names()
	scheduleNames := features.ScheduleDelaySchema.Names()
	if swapScalers {
		stopNames, scheduleNames = scheduleNames, stopNames
	}
	writeJSONFile(t, filepath.Join(dir, "stop_scaler.json"), identityScaler(stopNames))
	writeJSONFile(t, filepath.Join(dir, "stop_model.json"), constantModel(5, 0.75))
	writeJSONFile(t, filepath.Join(dir, "schedule_scaler.json"), identityScaler(scheduleNames))
	writeJSONFile(t, filepath.Join(dir, "schedule_model.json"), constantModel(4, 0.25))

	body := fmt.Sprintf(`
log:
  console: false
ml:
  stop_visit:
    scaler_type: standard
    scaler_path: %[1]s/stop_scaler.json
    model_type: logistic_regression
    model_path: %[1]s/stop_model.json
  schedule:
    scaler_type: standard
    scaler_path: %[1]s/schedule_scaler.json
    model_type: logistic_regression
    model_path: %[1]s/schedule_model.json
`, dir)
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestPredictStop(t *testing.T) {
	cfg := writeConfig(t, false)
	out, err := run(t, "predict", "stop", "--config", cfg,
		"--stop-sequence", "5", "--lat", "-33.87", "--lon", "151.21", "--hour", "8", "--day", "Monday")
	require.NoError(t, err)
	assert.Equal(t, "🚨 Likely to be Delayed (75.00% probability)\n", out)
}

func TestPredictStopJSON(t *testing.T) {
	cfg := writeConfig(t, false)
	out, err := run(t, "predict", "stop", "--config", cfg, "--day", "6", "--json")
	require.NoError(t, err)

	var got struct {
		Record     map[string]float64 `json:"record"`
		Prediction struct {
			Label string `json:"label"`
		} `json:"prediction"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 6.0, got.Record["day_of_week"])
	assert.Equal(t, "Delayed", got.Prediction.Label)
}

func TestPredictStopRejectsWidgetViolation(t *testing.T) {
	cfg := writeConfig(t, false)
	_, err := run(t, "predict", "stop", "--config", cfg, "--hour", "24")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hour_of_day")
}

func TestPredictStopPropagatesInferenceFailure(t *testing.T) {
	cfg := writeConfig(t, true)
	out, err := run(t, "predict", "stop", "--config", cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "prediction failed: transform")
	assert.NotContains(t, out, "Likely to be")
}

func TestPredictSchedule(t *testing.T) {
	cfg := writeConfig(t, false)
	out, err := run(t, "predict", "schedule", "--config", cfg,
		"--scheduled", "09:00", "--delay", "5", "--trip-id", "T-7")
	require.NoError(t, err)
	assert.Contains(t, out, "Trip T-7\n")
	assert.Contains(t, out, "Scheduled 09:00:00 (32400 s), actual 09:05:00 (32700 s), delay 5.0 min\n")
	assert.Contains(t, out, "✅ Likely to be On Time (75.00% probability)\n")
}

func TestPredictScheduleReportsInferenceFailure(t *testing.T) {
	cfg := writeConfig(t, true)
	out, err := run(t, "predict", "schedule", "--config", cfg, "--scheduled", "23:58:00")
	require.NoError(t, err)
	assert.Contains(t, out, "Warning: the simulated arrival falls on the next day")
	assert.Contains(t, out, "Error during prediction: transform:")
	assert.NotContains(t, out, "Likely to be")
}

func TestServeFailsWithoutArtifacts(t *testing.T) {
	cfg := config.Default()
	cfg.Log.Console = false
	cfg.ML.StopVisit.ModelPath = filepath.Join(t.TempDir(), "absent.json")

	err := serve(context.Background(), cfg)
	require.Error(t, err)
}
