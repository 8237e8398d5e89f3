package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/cjeanneret/daisy/internal/hw/adc"
	"github.com/cjeanneret/daisy/internal/logic/presence"
)

// flags
var (
	sensorSamplesFlag   int
	sensorIntervalFlag  time.Duration
	sensorCalibrateFlag bool
)

func init() {
	RootCmd.AddCommand(sensorCmd)
	sensorCmd.Flags().IntVarP(&sensorSamplesFlag, "samples", "n", 200, "number of voltage samples per survey")
	sensorCmd.Flags().DurationVarP(&sensorIntervalFlag, "interval", "i", 10*time.Millisecond, "delay between samples")
	sensorCmd.Flags().BoolVar(&sensorCalibrateFlag, "calibrate", false, "survey an empty then an occupied station and suggest a dark threshold")
}

var sensorCmd = &cobra.Command{
	Use:   "sensor",
	Short: "Survey the loading-station photodiode and report what the filter sees.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if sensorSamplesFlag < 1 {
			return fmt.Errorf("samples must be >= 1, got %d", sensorSamplesFlag)
		}
		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		src, err := openSource(cfg)
		if err != nil {
			return err
		}
		defer src.Close()

		out := cmd.OutOrStdout()
		threshold := cfg.Sensor.DarkThreshold
		if !sensorCalibrateFlag {
			filter := presence.NewFilter(cfg.Sensor.WindowSize, threshold)
			s, err := survey(ctx, src, filter, sensorSamplesFlag, sensorIntervalFlag)
			if err != nil {
				return err
			}
			printSurvey(out, "station", s)
			printFilter(out, filter)
			return nil
		}

		in := bufio.NewReader(cmd.InOrStdin())
		lit, err := promptSurvey(ctx, in, out, src, "Leave the loading station empty", cfg.Sensor.WindowSize, threshold)
		if err != nil {
			return err
		}
		dark, err := promptSurvey(ctx, in, out, src, "Place an item in front of the photodiode", cfg.Sensor.WindowSize, threshold)
		if err != nil {
			return err
		}
		printSurvey(out, "empty", lit)
		printSurvey(out, "occupied", dark)
		suggested := presence.SuggestThreshold(lit, dark)
		fmt.Fprintf(out, "suggested sensor.dark_threshold: %s (configured %.3f)\n", color.BlueString("%.3f", suggested), threshold)
		if dark.Max() >= lit.Min() {
			fmt.Fprintf(out, "%s empty and occupied readings overlap; check the photodiode alignment\n", color.RedString("[WARN]"))
		}
		return nil
	},
}

// survey reads n samples from src, feeding both a running survey and the
// moving-average filter.
func survey(ctx context.Context, src adc.Source, filter *presence.Filter, n int, every time.Duration) (*presence.Survey, error) {
	s := presence.NewSurvey()
	for i := 0; i < n; i++ {
		if i > 0 && every > 0 {
			select {
			case <-ctx.Done():
				return s, ctx.Err()
			case <-time.After(every):
			}
		}
		v, err := src.ReadVoltage()
		if err != nil {
			return s, fmt.Errorf("read photodiode: %w", err)
		}
		s.Add(v)
		filter.Sample(v)
	}
	return s, nil
}

func promptSurvey(ctx context.Context, in *bufio.Reader, out io.Writer, src adc.Source, instruction string, window int, threshold float64) (*presence.Survey, error) {
	fmt.Fprintf(out, "%s, then press Enter...", instruction)
	if _, err := in.ReadString('\n'); err != nil && err != io.EOF {
		return nil, err
	}
	return survey(ctx, src, presence.NewFilter(window, threshold), sensorSamplesFlag, sensorIntervalFlag)
}

func printSurvey(w io.Writer, label string, s *presence.Survey) {
	fmt.Fprintf(w, "%-9s n=%d mean=%s stddev=%.4f min=%.4f max=%.4f\n",
		label, s.Count(), color.BlueString("%.4f", s.Mean()), s.Stddev(), s.Min(), s.Max())
}

func printFilter(w io.Writer, f *presence.Filter) {
	state := color.GreenString("[ LIT]")
	if f.IsDark() {
		state = color.YellowString("[DARK]")
	}
	fmt.Fprintf(w, "%s window mean %.4f (N=%d, threshold %.3f)\n", state, f.Mean(), f.Len(), f.Threshold())
}
