package middleware

import (
	"github.com/kbukum/mizzle/logger"
)

// Logger is the logging capability the built-in policies need.
// *logger.Logger satisfies it.
type Logger interface {
	Debug(msg string, fields ...map[string]interface{})
	Info(msg string, fields ...map[string]interface{})
	Warn(msg string, fields ...map[string]interface{})
	Error(msg string, fields ...map[string]interface{})
}

var _ Logger = (*logger.Logger)(nil)

// Level selects which Logger method a policy writes routine lines with.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// ParseLevel converts a level name, defaulting to info for unknown names.
func ParseLevel(name string) Level {
	switch Level(name) {
	case LevelDebug, LevelInfo, LevelWarn, LevelError:
		return Level(name)
	}
	return LevelInfo
}

func logAt(log Logger, level Level, msg string, fields map[string]interface{}) {
	switch level {
	case LevelDebug:
		log.Debug(msg, fields)
	case LevelWarn:
		log.Warn(msg, fields)
	case LevelError:
		log.Error(msg, fields)
	default:
		log.Info(msg, fields)
	}
}

func componentLogger(log Logger, component string) Logger {
	if log != nil {
		return log
	}
	return logger.Get("mizzle." + component)
}

func opFields(mc *Context) map[string]interface{} {
	fields := logger.OperationFields(mc.Collection, string(mc.Operation))
	if id := mc.RequestID(); id != "" {
		fields[logger.FieldRequestID] = id
	}
	return fields
}
