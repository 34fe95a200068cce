package http

import (
	"net/url"
	"strconv"

	"busdelay/features"
	"busdelay/form"
)

// JSON callers skip the widgets, so their payloads are replayed through the
// same widget constraints the pages enforce.

func stopVisitValues(v features.StopVisit) url.Values {
	return url.Values{
		form.FieldStopSequence: {strconv.Itoa(v.StopSequence)},
		form.FieldStopLat:      {strconv.FormatFloat(v.StopLat, 'f', -1, 64)},
		form.FieldStopLon:      {strconv.FormatFloat(v.StopLon, 'f', -1, 64)},
		form.FieldHourOfDay:    {strconv.Itoa(v.HourOfDay)},
		form.FieldDayOfWeek:    {strconv.Itoa(v.DayOfWeek)},
	}
}

func scheduleDelayValues(d features.ScheduleDelay) url.Values {
	return url.Values{
		form.FieldStopSequence:     {strconv.Itoa(d.StopSequence)},
		form.FieldTripID:           {d.TripID},
		form.FieldScheduledArrival: {d.ScheduledArrival.String()},
		form.FieldSimulatedDelay:   {strconv.Itoa(d.SimulatedDelayMinutes)},
	}
}

// stopVisitDefaults is the widget state a JSON payload starts from; keys the
// caller omits keep it.
func (h *Handler) stopVisitDefaults() features.StopVisit {
	v, _ := features.FromStopVisitSubmission(h.stopForm.Defaults())
	return v
}

func (h *Handler) scheduleDelayDefaults() features.ScheduleDelay {
	d, _ := features.FromScheduleDelaySubmission(h.scheduleForm.Defaults())
	return d
}

func (h *Handler) checkStopVisit(v features.StopVisit) (features.Record, error) {
	if _, err := h.stopForm.Collect(stopVisitValues(v)); err != nil {
		h.metrics.ObserveRejection(h.stopForm.Name)
		return features.Record{}, err
	}
	rec, err := v.Assemble()
	if err != nil {
		h.metrics.ObserveRejection(h.stopForm.Name)
		return features.Record{}, err
	}
	return rec, nil
}

func (h *Handler) checkScheduleDelay(d features.ScheduleDelay) (features.Record, features.Derivation, error) {
	if _, err := h.scheduleForm.Collect(scheduleDelayValues(d)); err != nil {
		h.metrics.ObserveRejection(h.scheduleForm.Name)
		return features.Record{}, features.Derivation{}, err
	}
	rec, der, err := d.Assemble()
	if err != nil {
		h.metrics.ObserveRejection(h.scheduleForm.Name)
		return features.Record{}, features.Derivation{}, err
	}
	return rec, der, nil
}
