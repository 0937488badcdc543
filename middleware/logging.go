package middleware

import (
	"context"
	"time"

	"github.com/kbukum/mizzle/logger"
)

// LoggingConfig configures the Logging policy.
type LoggingConfig struct {
	// Level is used for the start and timing lines. Failures always log at error.
	Level Level
	// Logger receives the lines. Nil uses the "mizzle.logging" component logger.
	Logger Logger
	// OmitTimings suppresses the elapsed-time line after a successful call.
	OmitTimings bool
	// IncludeDetails adds filter, data and options to the start line when Level is debug.
	IncludeDetails bool
}

// DefaultLoggingConfig returns info level with timings and without details.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{Level: LevelInfo}
}

// Logging returns a policy that logs each call's start, completion time and
// failures. Errors are returned unchanged.
func Logging(cfg LoggingConfig) Middleware {
	if cfg.Level == "" {
		cfg.Level = LevelInfo
	}
	log := componentLogger(cfg.Logger, "logging")

	return func(ctx context.Context, mc *Context, next Next) (any, error) {
		name := mc.Name()
		start := time.Now()

		fields := opFields(mc)
		if cfg.Level == LevelDebug && cfg.IncludeDetails {
			fields["filter"] = mc.Filter
			fields["data"] = mc.Data
			fields["options"] = mc.Options
			log.Debug(name+" started", fields)
		} else {
			logAt(log, cfg.Level, name, fields)
		}

		result, err := next(ctx)
		elapsed := time.Since(start)

		if err != nil {
			log.Error(name+" failed", logger.MergeWithDuration(logger.MergeWithError(opFields(mc), err), elapsed))
			return result, err
		}

		if !cfg.OmitTimings {
			logAt(log, cfg.Level, name+" completed", logger.MergeWithDuration(opFields(mc), elapsed))
		}
		return result, nil
	}
}
