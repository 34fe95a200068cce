package features

import (
	"encoding/json"
	"errors"
	"math"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"busdelay/form"
)

func TestStopVisitScenario(t *testing.T) {
	values := url.Values{
		form.FieldStopSequence: {"5"},
		form.FieldStopLat:      {"-33.87"},
		form.FieldStopLon:      {"151.21"},
		form.FieldHourOfDay:    {"8"},
		form.FieldDayOfWeek:    {"Monday"},
	}
	sub, err := form.StopVisitForm().Collect(values)
	require.NoError(t, err)

	visit, err := FromStopVisitSubmission(sub)
	require.NoError(t, err)
	rec, err := visit.Assemble()
	require.NoError(t, err)

	assert.Equal(t, StopVisitSchema.Names(), rec.Names())
	assert.Equal(t, []float64{5, -33.87, 151.21, 8, 0}, rec.Values())

	payload, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.JSONEq(t, `{"stop_sequence":5,"stop_lat":-33.87,"stop_lon":151.21,"hour_of_day":8,"day_of_week":0}`, string(payload))
}

func TestStopVisitBoundaries(t *testing.T) {
	for _, tc := range []struct{ hour, day int }{{0, 0}, {23, 6}, {0, 6}, {23, 0}} {
		_, err := StopVisit{StopSequence: 1, HourOfDay: tc.hour, DayOfWeek: tc.day}.Assemble()
		assert.NoError(t, err, "hour=%d day=%d", tc.hour, tc.day)
	}
}

func TestScheduleDelayScenario(t *testing.T) {
	values := url.Values{
		form.FieldStopSequence:     {"7"},
		form.FieldScheduledArrival: {"09:00:00"},
		form.FieldSimulatedDelay:   {"5"},
	}
	sub, err := form.ScheduleDelayForm().Collect(values)
	require.NoError(t, err)

	sd, err := FromScheduleDelaySubmission(sub)
	require.NoError(t, err)
	rec, der, err := sd.Assemble()
	require.NoError(t, err)

	assert.Equal(t, Derivation{ScheduledSeconds: 32400, ActualSeconds: 32700, DelayMinutes: 5}, der)
	assert.Equal(t, ScheduleDelaySchema.Names(), rec.Names())
	assert.Equal(t, []float64{7, 32400, 32700, 5}, rec.Values())
}

func TestScheduleDelayMidnightIsFlaggedNotFixed(t *testing.T) {
	clock, err := form.ParseClock("23:58:00")
	require.NoError(t, err)

	der := ScheduleDelay{StopSequence: 1, ScheduledArrival: clock, SimulatedDelayMinutes: 5}.Derive()
	assert.True(t, der.CrossedMidnight)
	assert.Equal(t, 180, der.ActualSeconds)
	assert.Equal(t, float64(180-86280)/60, der.DelayMinutes)

	der = ScheduleDelay{StopSequence: 1, ScheduledArrival: clock, SimulatedDelayMinutes: 1}.Derive()
	assert.False(t, der.CrossedMidnight)
	assert.Equal(t, 1.0, der.DelayMinutes)
}

func TestValidateReportsEveryViolation(t *testing.T) {
	rec := NewRecord(
		Feature{Name: "stop_lat", Value: -33.87},
		Feature{Name: "stop_sequence", Value: 2.5},
		Feature{Name: "hour_of_day", Value: 24},
		Feature{Name: "route_id", Value: 1},
	)
	err := StopVisitSchema.Validate(rec)
	require.Error(t, err)

	assert.True(t, errors.Is(err, ErrMissingFeature))
	assert.True(t, errors.Is(err, ErrUnexpectedFeature))
	assert.True(t, errors.Is(err, ErrFeatureOrder))
	assert.True(t, errors.Is(err, ErrOutOfDomain))
	assert.Contains(t, err.Error(), "day_of_week")
	assert.Contains(t, err.Error(), "stop_lon")
}

func TestValidateRejectsNonFinite(t *testing.T) {
	rec := StopVisit{StopSequence: 1}.Record()
	feats := rec.Features()
	feats[1].Value = math.NaN()
	err := StopVisitSchema.Validate(NewRecord(feats...))
	assert.True(t, errors.Is(err, ErrOutOfDomain))
}

func TestRecordWithoutAndKey(t *testing.T) {
	rec := StopVisit{StopSequence: 5, StopLat: -33.87, StopLon: 151.21, HourOfDay: 8}.Record()
	trimmed := rec.Without("stop_lon")
	assert.Equal(t, 4, trimmed.Len())
	_, ok := trimmed.Get("stop_lon")
	assert.False(t, ok)
	assert.Equal(t, 5, rec.Len())

	assert.Equal(t, rec.Key(), StopVisit{StopSequence: 5, StopLat: -33.87, StopLon: 151.21, HourOfDay: 8}.Record().Key())
	assert.NotEqual(t, rec.Key(), trimmed.Key())
}

func TestScheduleDelayJSON(t *testing.T) {
	var sd ScheduleDelay
	require.NoError(t, json.Unmarshal([]byte(`{"stop_sequence":3,"scheduled_arrival":"09:00","simulated_delay":5}`), &sd))
	assert.Equal(t, 32400, sd.ScheduledArrival.Seconds())
	assert.Equal(t, 5, sd.SimulatedDelayMinutes)
}
