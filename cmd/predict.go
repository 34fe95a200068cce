package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"busdelay/config"
	"busdelay/features"
	"busdelay/form"
	"busdelay/inference"
	"busdelay/logging"
)

func newPredictCmd(load configLoader) *cobra.Command {
	predictCmd := &cobra.Command{
		Use:   "predict",
		Short: "Run a single prediction and print the verdict",
	}
	predictCmd.AddCommand(newPredictStopCmd(load), newPredictScheduleCmd(load))
	return predictCmd
}

// cliLogger keeps stdout for the verdict; records only go to the log file.
func cliLogger(cfg *config.Config) (*zap.Logger, error) {
	lc := cfg.Logging()
	lc.Console = false
	return logging.New(lc)
}

func newPredictStopCmd(load configLoader) *cobra.Command {
	var (
		stopSequence int
		lat, lon     float64
		hour         int
		day          string
		asJSON       bool
	)

	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Predict from stop sequence, stop coordinates, hour and weekday",
		Example: "  busdelay predict stop --stop-sequence 5 --lat -33.87 --lon 151.21 --hour 8 --day Monday",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load(cmd)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := cliLogger(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer logger.Sync()

			sub, err := form.StopVisitForm().Collect(url.Values{
				form.FieldStopSequence: {strconv.Itoa(stopSequence)},
				form.FieldStopLat:      {strconv.FormatFloat(lat, 'f', -1, 64)},
				form.FieldStopLon:      {strconv.FormatFloat(lon, 'f', -1, 64)},
				form.FieldHourOfDay:    {strconv.Itoa(hour)},
				form.FieldDayOfWeek:    {day},
			})
			if err != nil {
				return err
			}
			visit, err := features.FromStopVisitSubmission(sub)
			if err != nil {
				return err
			}
			rec, err := visit.Assemble()
			if err != nil {
				return err
			}

			v, err := loadVariant(cfg, "stop", cfg.ML.StopVisit, features.StopVisitSchema, nil, logger, false)
			if err != nil {
				return err
			}
			pred, err := v.predictor.Predict(cmd.Context(), rec)
			if err != nil {
				return fmt.Errorf("prediction failed: %w", err)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, map[string]any{"record": rec, "prediction": pred})
			}
			fmt.Fprintln(out, verdict(pred))
			return nil
		},
	}
	cmd.Flags().IntVar(&stopSequence, "stop-sequence", 5, "Stop sequence within the trip (1-100)")
	cmd.Flags().Float64Var(&lat, "lat", 0, "Stop latitude")
	cmd.Flags().Float64Var(&lon, "lon", 0, "Stop longitude")
	cmd.Flags().IntVar(&hour, "hour", 8, "Hour of day (0-23)")
	cmd.Flags().StringVar(&day, "day", "Monday", "Day of week, name or 0-6 with Monday = 0")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the record and prediction as JSON")
	return cmd
}

func newPredictScheduleCmd(load configLoader) *cobra.Command {
	var (
		stopSequence int
		tripID       string
		scheduled    string
		delay        int
		asJSON       bool
	)

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Predict from a scheduled arrival and a simulated delay",
		Example: "  busdelay predict schedule --stop-sequence 5 --scheduled 09:00:00 --delay 5",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load(cmd)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := cliLogger(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer logger.Sync()

			sub, err := form.ScheduleDelayForm().Collect(url.Values{
				form.FieldStopSequence:     {strconv.Itoa(stopSequence)},
				form.FieldTripID:           {tripID},
				form.FieldScheduledArrival: {scheduled},
				form.FieldSimulatedDelay:   {strconv.Itoa(delay)},
			})
			if err != nil {
				return err
			}
			sched, err := features.FromScheduleDelaySubmission(sub)
			if err != nil {
				return err
			}
			rec, der, err := sched.Assemble()
			if err != nil {
				return err
			}

			v, err := loadVariant(cfg, "schedule", cfg.ML.Schedule, features.ScheduleDelaySchema, nil, logger, false)
			if err != nil {
				return err
			}
			outcome := v.predictor.Evaluate(cmd.Context(), rec)

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, map[string]any{
					"ok":         outcome.OK(),
					"trip_id":    sched.TripID,
					"record":     rec,
					"derivation": der,
					"prediction": outcome.Prediction,
					"error":      outcome.Error,
				})
			}
			if sched.TripID != "" {
				fmt.Fprintf(out, "Trip %s\n", sched.TripID)
			}
			fmt.Fprintf(out, "Scheduled %s (%d s), actual %s (%d s), delay %.1f min\n",
				sched.ScheduledArrival, der.ScheduledSeconds,
				form.Clock(der.ActualSeconds), der.ActualSeconds, der.DelayMinutes)
			if der.CrossedMidnight {
				fmt.Fprintln(out, "Warning: the simulated arrival falls on the next day; the delay is computed on the wrapped time of day.")
			}
			if !outcome.OK() {
				fmt.Fprintln(out, outcome.Error)
				return nil
			}
			fmt.Fprintln(out, verdict(*outcome.Prediction))
			return nil
		},
	}
	cmd.Flags().IntVar(&stopSequence, "stop-sequence", 5, "Stop sequence within the trip (1-100)")
	cmd.Flags().StringVar(&tripID, "trip-id", "", "Trip identifier, shown with the result")
	cmd.Flags().StringVar(&scheduled, "scheduled", "09:00:00", "Scheduled arrival, HH:MM or HH:MM:SS")
	cmd.Flags().IntVar(&delay, "delay", 5, "Simulated delay in minutes (0-120)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the outcome as JSON")
	return cmd
}

func verdict(pred inference.Prediction) string {
	if pred.Delayed() {
		return "🚨 " + pred.Message
	}
	return "✅ " + pred.Message
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
