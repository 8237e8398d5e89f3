package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// ---------- ValidateConfigPath ----------

func TestValidateConfigPath_Valid(t *testing.T) {
	// Create a real configs/ directory so filepath.Abs resolves correctly.
	dir := t.TempDir()
	cfgDir := filepath.Join(dir, "configs")
	if err := os.Mkdir(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(cfgDir, "default.yaml")
	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := ValidateConfigPath(path); err != nil {
		t.Errorf("expected valid path, got error: %v", err)
	}
}

func TestValidateConfigPath_PathTraversal(t *testing.T) {
	cases := []string{
		"../../etc/passwd",
		"configs/../../../etc/shadow",
	}
	for _, path := range cases {
		if err := ValidateConfigPath(path); err == nil {
			t.Errorf("expected error for traversal path %q, got nil", path)
		}
	}
}

func TestValidateConfigPath_WrongExtension(t *testing.T) {
	cases := []string{
		"configs/default.json",
		"configs/default.yml",
		"configs/default.txt",
		"configs/default",
	}
	for _, path := range cases {
		if err := ValidateConfigPath(path); err == nil {
			t.Errorf("expected error for extension in %q, got nil", path)
		}
	}
}

func TestValidateConfigPath_NotInConfigsDir(t *testing.T) {
	cases := []string{
		"other/default.yaml",
		"default.yaml",
		"/tmp/default.yaml",
	}
	for _, path := range cases {
		if err := ValidateConfigPath(path); err == nil {
			t.Errorf("expected error for path outside configs/ %q, got nil", path)
		}
	}
}

func TestValidateConfigPath_EmptyPath(t *testing.T) {
	if err := ValidateConfigPath(""); err == nil {
		t.Error("expected error for empty path, got nil")
	}
}

func TestValidateConfigPath_VeryLongPath(t *testing.T) {
	long := "configs/" + strings.Repeat("a", 1000) + ".yaml"
	// Should not panic; error or success is OS-dependent, but must not crash.
	_ = ValidateConfigPath(long)
}

func TestValidateConfigPath_SpecialChars(t *testing.T) {
	dir := t.TempDir()
	cfgDir := filepath.Join(dir, "configs")
	if err := os.Mkdir(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name    string
		wantErr bool
	}{
		{"con fig.yaml", false},
		{"café.yaml", false},
	}
	for _, tc := range cases {
		path := filepath.Join(cfgDir, tc.name)
		err := ValidateConfigPath(path)
		if tc.wantErr && err == nil {
			t.Errorf("expected error for %q, got nil", tc.name)
		}
		if !tc.wantErr && err != nil {
			t.Errorf("unexpected error for %q: %v", tc.name, err)
		}
	}
}

func TestValidateConfigPath_DoubleTraversal(t *testing.T) {
	dir := t.TempDir()
	cfgDir := filepath.Join(dir, "configs")
	if err := os.Mkdir(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	// Try to escape via ../../configs/ok.yaml; filepath.Clean resolves this
	// and the parent must still be "configs".
	path := filepath.Join(cfgDir, "../../configs/ok.yaml")
	err := ValidateConfigPath(path)
	// After Clean the parent may or may not be "configs" depending on resolution.
	// The important thing is it either succeeds with a valid parent or fails.
	_ = err
}

// ---------- Load ----------

// writeConfig creates a temporary configs/ dir with the given YAML content and returns the path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	cfgDir := filepath.Join(dir, "configs")
	if err := os.Mkdir(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(cfgDir, "test.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const validYAML = `
indexer:
  slots_per_revolution: 6
  units_per_revolution: 4096
  offset_units: 250
  allowable_error: 20
  tolerance_fraction: 0.04
  jog_output: 0.25
  full_slot: 5
  sensor_phase: true
  motor_invert: false
gains:
  p: 1.5
  i: 0.001
  d: 10
  f: 0
  max_output: 0.6
  min_output: -0.6
sensor:
  type: "mcp3008"
  channel: 2
  vref: 3.3
  spi_speed_hz: 500000
  window_size: 12
  dark_threshold: 0.8
actuator:
  type: "serial"
  port: "/dev/ttyACM0"
  baud_rate: 57600
  timeout_ms: 30
  enable_pin: 16
defaults:
  tick_ms: 10
  routine_timeout_ms: 2500
  debug_level: 0
  mock_hw: false
  tune: true
`

func TestLoad_ValidFullConfig(t *testing.T) {
	path := writeConfig(t, validYAML)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Indexer.OffsetUnits != 250 {
		t.Errorf("offset_units = %v, want 250", cfg.Indexer.OffsetUnits)
	}
	if !cfg.Indexer.SensorPhase || cfg.Indexer.MotorInvert {
		t.Errorf("sensor_phase/motor_invert = %v/%v, want true/false", cfg.Indexer.SensorPhase, cfg.Indexer.MotorInvert)
	}
	if cfg.Gains.D != 10 || cfg.Gains.MinOutput != -0.6 {
		t.Errorf("gains = %+v", cfg.Gains)
	}
	if cfg.Sensor.Type != "mcp3008" || cfg.Sensor.Channel != 2 || cfg.Sensor.WindowSize != 12 {
		t.Errorf("sensor = %+v", cfg.Sensor)
	}
	if cfg.Actuator.Type != "serial" || cfg.Actuator.BaudRate != 57600 || cfg.Actuator.EnablePin != 16 {
		t.Errorf("actuator = %+v", cfg.Actuator)
	}
	if !cfg.Defaults.Tune || cfg.Defaults.MockHW {
		t.Errorf("defaults = %+v", cfg.Defaults)
	}
	if got := cfg.TickPeriod(); got != 10*time.Millisecond {
		t.Errorf("TickPeriod() = %v, want 10ms", got)
	}
	if got := cfg.ActuatorTimeout(); got != 30*time.Millisecond {
		t.Errorf("ActuatorTimeout() = %v, want 30ms", got)
	}
	if got := cfg.RoutineTimeout(); got != 2500*time.Millisecond {
		t.Errorf("RoutineTimeout() = %v, want 2.5s", got)
	}
}

func TestLoad_ShippedDefaultConfig(t *testing.T) {
	path := filepath.Join("..", "..", "configs", "default.yaml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("configs/default.yaml: %v", err)
	}
	if cfg.Actuator.Type != "mock" || cfg.Sensor.Type != "mock" {
		t.Errorf("shipped config should use mock hardware, got actuator=%s sensor=%s", cfg.Actuator.Type, cfg.Sensor.Type)
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	path := writeConfig(t, "")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	checks := []struct {
		name      string
		got, want interface{}
	}{
		{"slots_per_revolution", cfg.Indexer.SlotsPerRevolution, 6},
		{"units_per_revolution", cfg.Indexer.UnitsPerRevolution, 4096.0},
		{"tolerance_fraction", cfg.Indexer.ToleranceFraction, 0.05},
		{"jog_output", cfg.Indexer.JogOutput, 0.2},
		{"full_slot", cfg.Indexer.FullSlot, 5},
		{"max_output", cfg.Gains.MaxOutput, 1.0},
		{"min_output", cfg.Gains.MinOutput, -1.0},
		{"sensor.type", cfg.Sensor.Type, "mock"},
		{"window_size", cfg.Sensor.WindowSize, 10},
		{"dark_threshold", cfg.Sensor.DarkThreshold, 0.5},
		{"actuator.type", cfg.Actuator.Type, "mock"},
		{"baud_rate", cfg.Actuator.BaudRate, 115200},
		{"timeout_ms", cfg.Actuator.TimeoutMs, 50},
		{"tick_ms", cfg.Defaults.TickMs, 20},
		{"routine_timeout_ms", cfg.Defaults.RoutineTimeoutMs, 3000},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s default = %v, want %v", c.name, c.got, c.want)
		}
	}
	if got := cfg.UnitsPerSlot(); fmt.Sprintf("%.4f", got) != "682.6667" {
		t.Errorf("UnitsPerSlot() = %v, want 4096/6", got)
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if !cfg.Defaults.MockHW {
		t.Error("Default() must use mock hardware")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default() does not validate: %v", err)
	}
}

func TestLoad_FullSlotFollowsSlots(t *testing.T) {
	path := writeConfig(t, "indexer:\n  slots_per_revolution: 8\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Indexer.FullSlot != 7 {
		t.Errorf("full_slot default = %d, want 7", cfg.Indexer.FullSlot)
	}
}

func TestRoutineTimeout_Disabled(t *testing.T) {
	path := writeConfig(t, "defaults:\n  routine_timeout_ms: -1\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := cfg.RoutineTimeout(); got != 0 {
		t.Errorf("RoutineTimeout() = %v, want 0 (never)", got)
	}
}

func TestLoad_Invalid(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"zero_units", "indexer:\n  units_per_revolution: -4096\n"},
		{"negative_slots", "indexer:\n  slots_per_revolution: -1\n"},
		{"negative_allowable_error", "indexer:\n  allowable_error: -1\n"},
		{"tolerance_too_large", "indexer:\n  tolerance_fraction: 1.5\n"},
		{"jog_out_of_range", "indexer:\n  jog_output: 1.2\n"},
		{"full_slot_out_of_range", "indexer:\n  full_slot: 6\n"},
		{"inverted_limits", "gains:\n  max_output: -0.5\n  min_output: 0.5\n"},
		{"limits_too_wide", "gains:\n  max_output: 2\n  min_output: -1\n"},
		{"unknown_sensor", "sensor:\n  type: \"ldr\"\n"},
		{"sensor_channel", "sensor:\n  channel: 8\n"},
		{"window_size", "sensor:\n  window_size: -3\n"},
		{"unknown_actuator", "actuator:\n  type: \"can\"\n"},
		{"serial_without_port", "actuator:\n  type: \"serial\"\n  port: \"\"\n"},
		{"debug_level", "defaults:\n  debug_level: 5\n"},
		{"nan_offset", "indexer:\n  offset_units: .nan\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfig(t, tc.yaml)
			if _, err := Load(path); err == nil {
				t.Errorf("expected error for %s, got nil", tc.name)
			}
		})
	}
}

func TestLoad_FileTooLarge(t *testing.T) {
	dir := t.TempDir()
	cfgDir := filepath.Join(dir, "configs")
	if err := os.Mkdir(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(cfgDir, "big.yaml")
	data := make([]byte, MaxConfigFileBytes+1)
	for i := range data {
		data[i] = '#'
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path)
	if err == nil {
		t.Error("expected error for oversized config file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "{{{{invalid yaml!!!!")
	_, err := Load(path)
	if err == nil {
		t.Error("expected error for invalid YAML, got nil")
	}
}

func TestLoad_UnknownFields(t *testing.T) {
	yaml := `
indexer:
  slots_per_revolution: 6
unknown_section:
  foo: bar
`
	path := writeConfig(t, yaml)
	_, err := Load(path)
	if err != nil {
		t.Errorf("unknown fields should be ignored, got error: %v", err)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	dir := t.TempDir()
	cfgDir := filepath.Join(dir, "configs")
	if err := os.Mkdir(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(cfgDir, "nonexistent.yaml")
	_, err := Load(path)
	if err == nil {
		t.Error("expected error for nonexistent file, got nil")
	}
}
