// Package worker provides a bounded goroutine pool for the pipeline's
// detached work (cache writes, audit logging).
//
// A *Pool satisfies middleware.Runner:
//
//	pool, err := worker.New("mizzle-detached", worker.Config{Size: 64})
//	defer pool.Release(5 * time.Second)
//
//	mw := middleware.Audit(middleware.AuditConfig{Runner: pool})
package worker
