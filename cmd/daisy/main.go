// Command daisy drives the carousel indexer: the control loop with its web
// console, a photodiode survey tool and a jog utility.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/cjeanneret/daisy/internal/config"
	"github.com/cjeanneret/daisy/internal/debug"
)

// RootCmd is the main entry point.
var RootCmd = &cobra.Command{
	Use:           "daisy",
	Short:         "Closed-loop carousel indexer controller",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// flags
var (
	rootConfigFlag string
	rootDebugFlag  int
)

func init() {
	RootCmd.PersistentFlags().StringVarP(&rootConfigFlag, "config", "c", filepath.Join("configs", "default.yaml"), "path to config file (configs/*.yaml)")
	RootCmd.PersistentFlags().IntVarP(&rootDebugFlag, "debug", "d", -1, "override defaults.debug_level (0-4)")
}

// loadConfig validates the config path, loads it and initializes the debug
// logger. Every subcommand calls it first.
func loadConfig() (*config.Config, error) {
	if err := config.ValidateConfigPath(rootConfigFlag); err != nil {
		return nil, err
	}
	cfg, err := config.Load(rootConfigFlag)
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}
	if rootDebugFlag >= 0 {
		if rootDebugFlag > 4 {
			return nil, fmt.Errorf("debug level must be between 0 and 4, got %d", rootDebugFlag)
		}
		cfg.Defaults.DebugLevel = rootDebugFlag
	}
	debug.Init(cfg.Defaults.DebugLevel)
	debug.Section("Initialization")
	debug.Value("Config path", rootConfigFlag)
	debug.Value("Debug level", cfg.Defaults.DebugLevel)
	debug.Value("Units per slot", fmt.Sprintf("%.2f", cfg.UnitsPerSlot()))
	return cfg, nil
}

// webPortFlag implements pflag.Value for --web: 0 = disabled, --web alone → 8080, --web=8980 → 8980.
type webPortFlag struct {
	val         int
	defaultPort int
}

func (w *webPortFlag) String() string {
	return strconv.Itoa(w.val)
}

func (w *webPortFlag) Set(s string) error {
	if s == "" {
		w.val = w.defaultPort
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	if v < 0 || v > 65535 {
		return fmt.Errorf("port must be 0-65535, got %d", v)
	}
	w.val = v
	return nil
}

func (w *webPortFlag) Type() string { return "port" }

func (w *webPortFlag) port() int { return w.val }

func main() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
