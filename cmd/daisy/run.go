package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/cjeanneret/daisy/internal/config"
	"github.com/cjeanneret/daisy/internal/debug"
	"github.com/cjeanneret/daisy/internal/diag"
	"github.com/cjeanneret/daisy/internal/logic/indexer"
	"github.com/cjeanneret/daisy/internal/logic/presence"
	"github.com/cjeanneret/daisy/internal/loop"
	"github.com/cjeanneret/daisy/internal/web"
)

// flags
var (
	runWebFlag       = &webPortFlag{defaultPort: 8080}
	runCalibrateFlag bool
	runStatusFlag    time.Duration
)

func init() {
	RootCmd.AddCommand(runCmd)
	runCmd.Flags().Var(runWebFlag, "web", "start web console on port; --web for default 8080, --web=8980 for custom port")
	runCmd.Flags().Lookup("web").NoOptDefVal = strconv.Itoa(runWebFlag.defaultPort)
	runCmd.Flags().BoolVar(&runCalibrateFlag, "calibrate", true, "align the relative encoder with the absolute one before starting")
	runCmd.Flags().DurationVar(&runStatusFlag, "status-interval", time.Second, "minimum interval between unchanged status events on the web stream")
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the control loop (and optionally the web console) until interrupted.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		return run(ctx, cfg, runWebFlag.port(), runCalibrateFlag)
	},
}

// run wires the hardware, the controller, the control loop and, when port
// is non-zero, the web console. It blocks until ctx is done.
func run(ctx context.Context, cfg *config.Config, port int, calibrate bool) error {
	r, err := openRig(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := r.Close(); err != nil {
			log.Errorf("closing hardware failed: %v", err)
		}
	}()

	metrics := diag.NewPrometheus("daisy_")

	debug.Step(4, "Configuring indexer")
	ctl := indexer.New(r.drv, controllerConfig(cfg), indexer.WithSink(metrics))
	if calibrate {
		if err := ctl.Calibrate(); err != nil {
			return fmt.Errorf("calibration failed: %w", err)
		}
	}
	filter := presence.NewFilter(cfg.Sensor.WindowSize, cfg.Sensor.DarkThreshold)

	opts := []loop.Option{loop.WithSink(metrics), loop.WithPlant(r.step)}
	broadcaster := web.NewStatusBroadcaster()
	if port > 0 {
		debug.AddHook(web.NewHook(broadcaster))
		publisher := web.NewStatusPublisher(broadcaster, runStatusFlag)
		opts = append(opts, loop.WithObserver(publisher.Observe))
	}
	runner := loop.New(loopConfig(cfg), ctl, filter, r.source, opts...)

	debug.Summary("Daisy ready")
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return runner.Run(gctx)
	})
	if port > 0 {
		srv := web.NewServer(fmt.Sprintf(":%d", port), broadcaster, runner, metrics.Handler())
		g.Go(func() error {
			if err := srv.Run(gctx); err != nil {
				return fmt.Errorf("web server: %w", err)
			}
			return nil
		})
	}
	return g.Wait()
}
