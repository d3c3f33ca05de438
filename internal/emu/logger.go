package emu

import "github.com/retroenv/retrogolib/log"

// NewLogger creates the application logger. Verbosity 0 logs warnings and
// errors, 1 adds info and 2 or more, or debug, adds debug output.
func NewLogger(debug bool, verbosity int) *log.Logger {
	cfg := log.DefaultConfig()
	switch {
	case debug || verbosity >= 2:
		cfg.Level = log.DebugLevel
	case verbosity == 1:
		cfg.Level = log.InfoLevel
	default:
		cfg.Level = log.WarnLevel
	}
	return log.NewWithConfig(cfg)
}
