package logger

import "go.uber.org/zap/zapcore"

// Verbosity constants for CLI flag counts.
const (
	VerbosityUser  = 0 // no flags: normal operational output
	VerbosityDebug = 1 // -v: debug detail
)

// VerbosityToLevel maps repeated -v flags to zap levels.
//
//	0 (none) -> InfoLevel
//	1+ (-v)  -> DebugLevel
func VerbosityToLevel(verbosity int) zapcore.Level {
	if verbosity >= VerbosityDebug {
		return zapcore.DebugLevel
	}
	return zapcore.InfoLevel
}
