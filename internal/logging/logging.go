/*
Package logging builds the structured zap loggers used across the pipeline.

The correlator writes JSON entries to stderr and, when configured, to a log
file. The file output uses the same JSON encoding so the TUI monitor can tail
and parse it.
*/
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New creates a production JSON logger at the given level. When logFile is not
// empty the logger also appends to that file.
//
// Parameters:
//   - level: Minimum level ("debug", "info", "warn", "error").
//   - logFile: Optional file path for a second output.
//
// Returns:
//   - *zap.Logger: The configured logger.
//   - error: An error if the level is unknown or the file cannot be opened.
func New(level, logFile string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	cfg.OutputPaths = []string{"stderr"}
	if logFile != "" {
		cfg.OutputPaths = append(cfg.OutputPaths, logFile)
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("unable to build logger: %w", err)
	}
	return logger, nil
}
