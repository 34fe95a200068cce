package features

import (
	"time"

	"busdelay/form"
)

// StopVisit is the stop visit input: where the stop is and when the bus
// calls there.
type StopVisit struct {
	StopSequence int     `json:"stop_sequence"`
	StopLat      float64 `json:"stop_lat"`
	StopLon      float64 `json:"stop_lon"`
	HourOfDay    int     `json:"hour_of_day"`
	DayOfWeek    int     `json:"day_of_week"`
}

func FromStopVisitSubmission(sub form.Submission) (StopVisit, error) {
	var (
		v   StopVisit
		err error
	)
	if v.StopSequence, err = sub.Int(form.FieldStopSequence); err != nil {
		return StopVisit{}, err
	}
	if v.StopLat, err = sub.Number(form.FieldStopLat); err != nil {
		return StopVisit{}, err
	}
	if v.StopLon, err = sub.Number(form.FieldStopLon); err != nil {
		return StopVisit{}, err
	}
	if v.HourOfDay, err = sub.Int(form.FieldHourOfDay); err != nil {
		return StopVisit{}, err
	}
	if v.DayOfWeek, err = sub.Int(form.FieldDayOfWeek); err != nil {
		return StopVisit{}, err
	}
	return v, nil
}

func (v StopVisit) Record() Record {
	return NewRecord(
		Feature{Name: "stop_sequence", Value: float64(v.StopSequence)},
		Feature{Name: "stop_lat", Value: v.StopLat},
		Feature{Name: "stop_lon", Value: v.StopLon},
		Feature{Name: "hour_of_day", Value: float64(v.HourOfDay)},
		Feature{Name: "day_of_week", Value: float64(v.DayOfWeek)},
	)
}

// Assemble builds and validates the stop visit record.
func (v StopVisit) Assemble() (Record, error) {
	rec := v.Record()
	if err := StopVisitSchema.Validate(rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// ScheduleDelay is the schedule input: a scheduled arrival and the delay to
// simulate on top of it.
type ScheduleDelay struct {
	StopSequence          int        `json:"stop_sequence"`
	TripID                string     `json:"trip_id,omitempty"`
	ScheduledArrival      form.Clock `json:"scheduled_arrival"`
	SimulatedDelayMinutes int        `json:"simulated_delay"`
}

// Derivation exposes the intermediate values of the schedule record.
type Derivation struct {
	ScheduledSeconds int     `json:"scheduled_seconds"`
	ActualSeconds    int     `json:"actual_seconds"`
	DelayMinutes     float64 `json:"delay_minutes"`
	// CrossedMidnight marks arrivals pushed into the next day. The clock
	// arithmetic wraps, so DelayMinutes comes out negative for them.
	CrossedMidnight bool `json:"crossed_midnight"`
}

func FromScheduleDelaySubmission(sub form.Submission) (ScheduleDelay, error) {
	var (
		d   ScheduleDelay
		err error
	)
	if d.StopSequence, err = sub.Int(form.FieldStopSequence); err != nil {
		return ScheduleDelay{}, err
	}
	if d.ScheduledArrival, err = sub.Clock(form.FieldScheduledArrival); err != nil {
		return ScheduleDelay{}, err
	}
	if d.SimulatedDelayMinutes, err = sub.Int(form.FieldSimulatedDelay); err != nil {
		return ScheduleDelay{}, err
	}
	d.TripID = sub.Text(form.FieldTripID)
	return d, nil
}

// Derive computes the actual arrival as a time of day and the delay between
// the two times of day.
func (d ScheduleDelay) Derive() Derivation {
	delay := time.Duration(d.SimulatedDelayMinutes) * time.Minute
	scheduled := d.ScheduledArrival.Seconds()
	actual := d.ScheduledArrival.Add(delay).Seconds()
	return Derivation{
		ScheduledSeconds: scheduled,
		ActualSeconds:    actual,
		DelayMinutes:     float64(actual-scheduled) / 60,
		CrossedMidnight:  scheduled+int(delay/time.Second) >= form.SecondsPerDay,
	}
}

func (d ScheduleDelay) Record() (Record, Derivation) {
	der := d.Derive()
	return NewRecord(
		Feature{Name: "stop_sequence", Value: float64(d.StopSequence)},
		Feature{Name: "scheduled_time", Value: float64(der.ScheduledSeconds)},
		Feature{Name: "actual_time", Value: float64(der.ActualSeconds)},
		Feature{Name: "delay_minutes", Value: der.DelayMinutes},
	), der
}

// Assemble builds and validates the schedule record.
func (d ScheduleDelay) Assemble() (Record, Derivation, error) {
	rec, der := d.Record()
	if err := ScheduleDelaySchema.Validate(rec); err != nil {
		return Record{}, der, err
	}
	return rec, der, nil
}
