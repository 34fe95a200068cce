package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, c *Collector) string {
	t.Helper()
	rr := httptest.NewRecorder()
	c.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	return rr.Body.String()
}

func TestCollectorCounts(t *testing.T) {
	c := NewCollector()
	c.ObservePrediction("stop", "Delayed", 3*time.Millisecond)
	c.ObservePrediction("stop", "Delayed", time.Millisecond)
	c.ObserveFailure("schedule", "transform")
	c.ObserveCache("stop", true)
	c.ObserveReload("stop_visit", 7, nil)
	c.ObserveReload("stop_visit", 0, errors.New("boom"))

	body := scrape(t, c)
	assert.Contains(t, body, `busdelay_predictions_total{label="Delayed",variant="stop"} 2`)
	assert.Contains(t, body, `busdelay_prediction_failures_total{stage="transform",variant="schedule"} 1`)
	assert.Contains(t, body, `busdelay_prediction_cache_lookups_total{result="hit",variant="stop"} 1`)
	assert.Contains(t, body, `busdelay_artifact_generation{schema="stop_visit"} 7`)
	assert.Contains(t, body, `busdelay_artifact_reloads_total{result="error",schema="stop_visit"} 1`)
}

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector
	c.ObservePrediction("stop", "On Time", time.Millisecond)
	c.ObserveFailure("stop", "predict")
	c.ObserveCache("stop", false)
	c.ObserveReload("stop_visit", 1, nil)
	c.ObserveRejection("stop")
	assert.Nil(t, c.Registry())
}

func TestHandlerExposesMetrics(t *testing.T) {
	c := NewCollector()
	c.ObserveRejection("schedule")
	assert.True(t, strings.Contains(scrape(t, c), `busdelay_form_rejections_total{form="schedule"} 1`))
}
