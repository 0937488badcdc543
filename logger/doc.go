// Package logger provides structured logging for mizzle built on zerolog.
//
// Every built-in pipeline policy logs through a *Logger (or anything with
// the same Debug/Info/Warn/Error method set). When no logger is configured
// the policies fall back to a component logger from the registry, which is
// derived from the global logger.
//
//	logger.Init(logger.Config{Level: "debug", Format: "json"})
//	log := logger.Get("cache")
//	log.Info("cache hit", logger.Fields("collection", "users", "operation", "findOne"))
package logger
