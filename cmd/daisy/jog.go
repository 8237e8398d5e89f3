package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/cjeanneret/daisy/internal/config"
	"github.com/cjeanneret/daisy/internal/logic/indexer"
	"github.com/cjeanneret/daisy/internal/logic/routine"
)

// flags
var (
	jogDurationFlag  time.Duration
	jogDischargeFlag bool
)

func init() {
	RootCmd.AddCommand(jogCmd)
	jogCmd.Flags().DurationVar(&jogDurationFlag, "duration", time.Second, "how long to turn the daisy in open loop")
	jogCmd.Flags().BoolVar(&jogDischargeFlag, "discharge", false, "instead of jogging, run one closed-loop discharge revolution")
}

var jogCmd = &cobra.Command{
	Use:   "jog",
	Short: "Turn the daisy by hand: a slow open-loop jog, or one discharge revolution.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		r, err := openRig(cfg)
		if err != nil {
			return err
		}
		defer r.Close()

		ctl := indexer.New(r.drv, controllerConfig(cfg))
		var job routine.Routine = routine.WithTimeout(routine.NewJog(ctl), jogDurationFlag, nil)
		if jogDischargeFlag {
			if err := ctl.Calibrate(); err != nil {
				return err
			}
			job = routine.NewDischarge(ctl, cfg.Indexer.ToleranceFraction)
			if t := cfg.RoutineTimeout(); t > 0 {
				job = routine.WithTimeout(job, t, nil)
			}
		}
		return drive(ctx, cmd.OutOrStdout(), cfg, r, ctl, job)
	},
}

// drive runs job to completion at the control period, then reports where
// the daisy ended up.
func drive(ctx context.Context, w io.Writer, cfg *config.Config, r *rig, ctl *indexer.Controller, job routine.Routine) error {
	sched := routine.NewScheduler()
	sched.Start(job)
	defer sched.Cancel()

	ticker := time.NewTicker(cfg.TickPeriod())
	defer ticker.Stop()
	for sched.Active() != nil {
		select {
		case <-ctx.Done():
			ctl.Stop()
			return ctx.Err()
		case <-ticker.C:
			r.step()
			ctl.Periodic()
			sched.Tick()
		}
	}

	state := color.GreenString("[ OK ]")
	if !ctl.Settled() && job.Name() != "jog" {
		state = color.YellowString("[WARN]")
	}
	fmt.Fprintf(w, "%s %s done: slot index %d (mod %d), closed-loop error %s\n",
		state, job.Name(), ctl.SlotIndex(), ctl.CurrentSlotMod(ctl.Slots()),
		color.BlueString("%.1f", ctl.ClosedLoopError()))
	if err := ctl.LastError(); err != nil {
		fmt.Fprintf(w, "%s last driver error: %v\n", color.RedString("[FAIL]"), err)
	}
	return nil
}
