package form

import "time"

// Field names shared with the feature assembler.
const (
	FieldStopSequence     = "stop_sequence"
	FieldStopLat          = "stop_lat"
	FieldStopLon          = "stop_lon"
	FieldHourOfDay        = "hour_of_day"
	FieldDayOfWeek        = "day_of_week"
	FieldTripID           = "trip_id"
	FieldScheduledArrival = "scheduled_arrival"
	FieldSimulatedDelay   = "simulated_delay"
)

// Form is an ordered set of widgets rendered as one page.
type Form struct {
	Name        string
	Title       string
	Description string
	Footer      string
	Fields      []Field
	// SubmitLabel is empty for forms that re-evaluate on every change.
	SubmitLabel string
}

// Implicit reports whether the form has no submit button.
func (f Form) Implicit() bool {
	return f.SubmitLabel == ""
}

// Field looks a widget up by name.
func (f Form) Field(name string) (Field, bool) {
	for _, field := range f.Fields {
		if field.Name == name {
			return field, true
		}
	}
	return Field{}, false
}

// Weekdays lists the day choices, Monday first, as the model was fit.
func Weekdays() []Option {
	days := []time.Weekday{
		time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
		time.Friday, time.Saturday, time.Sunday,
	}
	opts := make([]Option, len(days))
	for i, d := range days {
		opts[i] = Option{Label: d.String(), Value: i}
	}
	return opts
}

// DayIndex maps a day name (or its index as text) to 0..6, Monday = 0.
func DayIndex(day string) (int, bool) {
	field := Field{Name: FieldDayOfWeek, Kind: KindSelect, Options: Weekdays()}
	v, err := field.parseOption(day)
	if err != nil {
		return 0, false
	}
	return int(v.Number), true
}

func stopSequenceField() Field {
	return Field{
		Name:    FieldStopSequence,
		Label:   "Stop Sequence (e.g., 1, 2, ...)",
		Kind:    KindNumber,
		Bounded: true,
		Min:     1,
		Max:     100,
		Step:    1,
		Integer: true,
		Default: Value{Kind: KindNumber, Number: 5},
	}
}

// StopVisitForm is the stop visit page: position in the trip, stop
// coordinates and when the bus calls.
func StopVisitForm() Form {
	return Form{
		Name:        "stop",
		Title:       "Sydney Bus Delay Predictor",
		Description: "Predict whether a Sydney bus will be delayed at a given stop.",
		Footer:      "Model trained on static GTFS & real-time transit feed data.",
		Fields: []Field{
			stopSequenceField(),
			{
				Name:    FieldStopLat,
				Label:   "Stop Latitude (e.g., -33.8700)",
				Kind:    KindNumber,
				Bounded: true,
				Min:     -90,
				Max:     90,
				Format:  "%.6f",
				Default: Value{Kind: KindNumber},
			},
			{
				Name:    FieldStopLon,
				Label:   "Stop Longitude (e.g., 151.2100)",
				Kind:    KindNumber,
				Bounded: true,
				Min:     -180,
				Max:     180,
				Format:  "%.6f",
				Default: Value{Kind: KindNumber},
			},
			{
				Name:    FieldHourOfDay,
				Label:   "Hour of Day (0-23)",
				Kind:    KindSlider,
				Bounded: true,
				Min:     0,
				Max:     23,
				Step:    1,
				Integer: true,
				Default: Value{Kind: KindSlider, Number: 8},
			},
			{
				Name:    FieldDayOfWeek,
				Label:   "Day of Week",
				Kind:    KindSelect,
				Options: Weekdays(),
				Default: Value{Kind: KindSelect, Number: 0},
			},
		},
	}
}

// ScheduleDelayForm is the schedule page: a scheduled arrival plus a
// simulated delay, evaluated when the user presses the button.
func ScheduleDelayForm() Form {
	return Form{
		Name:        "schedule",
		Title:       "Bus Arrival Delay Predictor",
		Description: "Enter the scheduled arrival and a simulated delay to check the model's verdict.",
		Fields: []Field{
			stopSequenceField(),
			{
				Name:      FieldTripID,
				Label:     "Trip ID (optional)",
				Kind:      KindText,
				Help:      "Shown with the result only.",
				MaxLength: 64,
				Default:   Value{Kind: KindText},
			},
			{
				Name:    FieldScheduledArrival,
				Label:   "Scheduled Arrival Time",
				Kind:    KindTime,
				Default: Value{Kind: KindTime, Clock: 9 * 3600},
			},
			{
				Name:    FieldSimulatedDelay,
				Label:   "Simulated Delay (minutes)",
				Kind:    KindSlider,
				Bounded: true,
				Min:     0,
				Max:     120,
				Step:    1,
				Integer: true,
				Default: Value{Kind: KindSlider, Number: 5},
			},
		},
		SubmitLabel: "Predict",
	}
}
