// Package pipeline assembles middleware scopes around a storage executor.
//
// A Registry holds process-wide (global) and per-collection middlewares. For
// each call it builds the chain global ++ collection ++ call-scoped and runs
// it around the Executor. Registration order is preserved within each scope,
// and the first registered middleware is the outermost.
//
//	reg := pipeline.NewRegistry().
//	    Use(middleware.Logging(middleware.DefaultLoggingConfig())).
//	    UseFor("users", middleware.Audit(middleware.AuditConfig{}))
//
//	users := pipeline.NewCollection[User](reg, "users", executor)
//	u, err := users.FindByID(ctx, id, pipeline.WithSession(session))
//
// NewRegistryFromConfig builds the global scope from a config.PipelineConfig.
package pipeline
