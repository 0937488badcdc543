// Package database provides a GORM-backed audit store for the mizzle audit
// policy.
//
// The caller supplies the dialector (postgres, mysql, sqlite, ...), keeping
// this module driver-agnostic:
//
//	db, err := database.Open(ctx, database.Config{Enabled: true, DSN: dsn}, postgres.Open(dsn), log)
//	store, err := database.NewAuditStore(ctx, db, database.AuditStoreOptions{})
//	reg, err := pipeline.NewRegistryFromConfig(cfg.Pipeline, pipeline.WithAuditStore(store))
//
// Audit rows keep filter, data, old document, result and metadata as JSON
// columns.
package database
