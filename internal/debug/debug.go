package debug

import (
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
)

// Debug levels
const (
	LevelOff     = 0 // No output
	LevelInfo    = 1 // Important info (startup, calibration, config)
	LevelLive    = 2 // Live info (slot moves, routines started/finished)
	LevelVerbose = 3 // Verbose (setpoint math, gain updates, sensor means)
	LevelTrace   = 4 // Trace (actuator commands, GPIO/SPI, very low level)
)

var (
	level  int
	logger *log.Entry
)

func newLogger(w io.Writer) *log.Entry {
	l := log.New()
	l.SetOutput(w)
	l.SetLevel(log.TraceLevel)
	l.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05.000000",
		DisableQuote:    true,
	})
	return l.WithField("app", "daisy")
}

// Init initializes the debug system with a level (0-4).
// 0 = no output
// 1 = important info (startup, calibration)
// 2 = live info (slot moves, routines)
// 3 = verbose (setpoints, gains, sensor means)
// 4 = trace (actuator commands, GPIO, SPI)
func Init(debugLevel int) {
	level = debugLevel
	if level > LevelOff {
		logger = newLogger(os.Stdout)
	} else {
		logger = nil
	}
}

// SetOutput redirects log output (e.g. to stdout and the web status stream).
// It is a no-op while the debug level is off.
func SetOutput(w io.Writer) {
	if logger != nil {
		logger.Logger.SetOutput(w)
	}
}

// AddHook attaches a logrus hook (e.g. the web status stream). Like
// SetOutput it is a no-op while the debug level is off.
func AddHook(h log.Hook) {
	if logger != nil {
		logger.Logger.AddHook(h)
	}
}

// Level returns the current debug level.
func Level() int {
	return level
}

// IsEnabled returns true if debug level is >= the requested level.
func IsEnabled(minLevel int) bool {
	return level >= minLevel
}

// --- Level 1 functions (Info): important info ---

// Info prints a level 1 message (important info).
func Info(format string, args ...interface{}) {
	if level >= LevelInfo && logger != nil {
		logger.Infof("[INFO] "+format, args...)
	}
}

// Summary prints an important summary banner (level 1).
func Summary(title string) {
	if level >= LevelInfo && logger != nil {
		logger.Info("═══════════════════════════════════════")
		logger.Infof("  %s", title)
		logger.Info("═══════════════════════════════════════")
	}
}

// Warn prints a level 1 warning.
func Warn(format string, args ...interface{}) {
	if level >= LevelInfo && logger != nil {
		logger.Warnf("[WARN] "+format, args...)
	}
}

// --- Level 2 functions (Live): real-time info ---

// Live prints a level 2 message (live info).
func Live(format string, args ...interface{}) {
	if level >= LevelLive && logger != nil {
		logger.Infof("[LIVE] "+format, args...)
	}
}

// Move prints a carousel movement (level 2).
func Move(op string, slot int64, target float64) {
	if level >= LevelLive && logger != nil {
		logger.Infof("[LIVE] Daisy %s: slot index %d, setpoint %.2f", op, slot, target)
	}
}

// --- Level 3 functions (Verbose): everything ---

// Verbose prints a level 3 message (verbose).
func Verbose(format string, args ...interface{}) {
	if level >= LevelVerbose && logger != nil {
		logger.Debugf("[VERBOSE] "+format, args...)
	}
}

// Printf is an alias for Verbose.
func Printf(format string, args ...interface{}) {
	Verbose(format, args...)
}

// PrintStruct prints a struct in formatted form (level 3).
func PrintStruct(name string, v interface{}) {
	if level >= LevelVerbose && logger != nil {
		logger.Debugf("[VERBOSE] %s: %+v", name, v)
	}
}

// Section prints a section separator (level 3).
func Section(name string) {
	if level >= LevelVerbose && logger != nil {
		logger.Debug("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		logger.Debugf("  %s", name)
		logger.Debug("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	}
}

// Step prints a numbered step (level 3).
func Step(num int, description string) {
	if level >= LevelVerbose && logger != nil {
		logger.Debugf("[VERBOSE] Step %d: %s", num, description)
	}
}

// Value prints a named value in formatted form (level 1).
func Value(name string, value interface{}) {
	if level >= LevelInfo && logger != nil {
		logger.Infof("[INFO]   %s = %v", name, value)
	}
}

// --- Level 4 functions (Trace): very low level ---

// Trace prints a level 4 message (trace).
func Trace(format string, args ...interface{}) {
	if level >= LevelTrace && logger != nil {
		logger.Tracef("[TRACE] "+format, args...)
	}
}

// GPIO prints a GPIO operation (level 4).
func GPIO(operation string, pin int, value interface{}) {
	if level >= LevelTrace && logger != nil {
		logger.Tracef("[GPIO] %s pin=%d value=%v", operation, pin, value)
	}
}

// Command prints a command sent to the actuator driver (level 4).
func Command(operation string, value interface{}) {
	if level >= LevelTrace && logger != nil {
		logger.Tracef("[ACTUATOR] %s %v", operation, value)
	}
}

// --- General functions ---

// Error prints a debug error (level 1+).
func Error(err error) {
	if level >= LevelInfo && logger != nil {
		logger.Errorf("[ERROR] %v", err)
	}
}

// Fmt is a helper function that returns a formatted string
// only if debug is enabled (to avoid unnecessary allocations).
func Fmt(format string, args ...interface{}) string {
	if level > 0 {
		return fmt.Sprintf(format, args...)
	}
	return ""
}
