package middleware

import (
	"context"
	"fmt"

	"github.com/kbukum/mizzle/logger"
)

// Runner executes detached work. *worker.Pool and *ants.Pool satisfy it.
type Runner interface {
	Submit(task func()) error
}

// detach schedules fn without making the caller wait for it. The task runs
// with a context that is never cancelled by the caller, recovers panics and
// only logs failures. If the runner rejects the task it falls back to a
// plain goroutine so the side effect still happens.
func detach(ctx context.Context, runner Runner, log Logger, name string, fields map[string]interface{}, fn func(ctx context.Context) error) {
	taskCtx := context.WithoutCancel(ctx)
	task := func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error(name+" panicked", logger.MergeWithError(copyFields(fields), fmt.Errorf("panic: %v", r)))
			}
		}()
		if err := fn(taskCtx); err != nil {
			log.Error(name+" failed", logger.MergeWithError(copyFields(fields), err))
		}
	}

	if runner != nil {
		err := runner.Submit(task)
		if err == nil {
			return
		}
		log.Warn(name+" rejected by runner, running on a goroutine", logger.MergeWithError(copyFields(fields), err))
	}
	go task()
}

func copyFields(fields map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	return out
}
