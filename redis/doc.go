// Package redis provides a Redis-backed cache store for the mizzle cache
// policy, built on go-redis.
//
// Cached results are JSON-encoded, so a hit decodes into generic values
// (maps, slices, float64 numbers). pipeline.Collection re-decodes those into
// the collection's document type.
//
//	client, err := redis.New(redis.Config{Enabled: true, Addr: "localhost:6379"}, log)
//	store := redis.NewCacheStore(client, "mizzle:cache")
//	reg, err := pipeline.NewRegistryFromConfig(cfg.Pipeline, pipeline.WithCacheStore(store))
package redis
