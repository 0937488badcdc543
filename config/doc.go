// Package config loads service and pipeline configuration.
//
// It uses Viper to read a config.yml (searched in cmd/<service>/, config/ and
// the working directory), binds environment variables, and loads an optional
// .env file with godotenv. Durations are written as strings ("250ms", "1m")
// and operations by name ("findMany", "updateById").
//
// # Usage
//
//	cfg, err := config.Load("orders")
//	reg, err := pipeline.NewRegistryFromConfig(cfg.Pipeline)
//
// Environment variables override file values using underscore-separated
// paths (e.g., PIPELINE_CACHE_TTL=5m).
package config
