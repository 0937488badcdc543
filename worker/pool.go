package worker

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/kbukum/mizzle/logger"
)

var (
	// ErrPoolClosed is returned by Submit after Release.
	ErrPoolClosed = errors.New("worker pool is closed")
	// ErrPoolOverload is returned by a non-blocking pool that is full.
	ErrPoolOverload = errors.New("worker pool is overloaded")
)

// Config configures a Pool.
type Config struct {
	// Size is the maximum number of concurrently running tasks.
	Size int `yaml:"size" mapstructure:"size"`
	// ExpiryDuration is how long an idle worker is kept.
	ExpiryDuration time.Duration `yaml:"expiry_duration" mapstructure:"expiry_duration"`
	// Nonblocking makes Submit fail with ErrPoolOverload instead of waiting
	// when all workers are busy.
	Nonblocking bool `yaml:"nonblocking" mapstructure:"nonblocking"`
	// MaxBlockingTasks bounds the number of Submit calls waiting for a
	// worker when Nonblocking is false. Zero means unbounded.
	MaxBlockingTasks int `yaml:"max_blocking_tasks" mapstructure:"max_blocking_tasks"`
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if c.Size <= 0 {
		c.Size = 256
	}
	if c.ExpiryDuration <= 0 {
		c.ExpiryDuration = 10 * time.Second
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Size <= 0 {
		return fmt.Errorf("worker.size must be positive (got: %d)", c.Size)
	}
	if c.MaxBlockingTasks < 0 {
		return fmt.Errorf("worker.max_blocking_tasks must not be negative (got: %d)", c.MaxBlockingTasks)
	}
	return nil
}

// Stats is a snapshot of pool counters.
type Stats struct {
	Submitted int64
	Completed int64
	Panics    int64
	Rejected  int64
	Running   int
	Capacity  int
}

// Pool runs tasks on a bounded set of goroutines backed by ants.
type Pool struct {
	name string
	pool *ants.Pool
	log  *logger.Logger

	submitted atomic.Int64
	completed atomic.Int64
	panics    atomic.Int64
	rejected  atomic.Int64

	closeOnce sync.Once
	closed    atomic.Bool
}

// New creates a pool. cfg is defaulted and validated first.
func New(name string, cfg Config) (*Pool, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Pool{
		name: name,
		log:  logger.WithComponent("worker").WithFields(logger.Fields("pool", name)),
	}

	inner, err := ants.NewPool(cfg.Size,
		ants.WithExpiryDuration(cfg.ExpiryDuration),
		ants.WithNonblocking(cfg.Nonblocking),
		ants.WithMaxBlockingTasks(cfg.MaxBlockingTasks),
		ants.WithPanicHandler(func(r interface{}) {
			p.panics.Add(1)
			p.log.Error("worker task panicked", logger.Fields("panic", fmt.Sprint(r)))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("creating worker pool %s: %w", name, err)
	}
	p.pool = inner

	p.log.Debug("worker pool created", logger.Fields("size", cfg.Size, "nonblocking", cfg.Nonblocking))
	return p, nil
}

// Submit schedules task. It fails with ErrPoolClosed after Release and with
// ErrPoolOverload when a non-blocking pool is full.
func (p *Pool) Submit(task func()) error {
	if p.closed.Load() {
		return ErrPoolClosed
	}

	err := p.pool.Submit(func() {
		defer p.completed.Add(1)
		task()
	})
	switch {
	case err == nil:
		p.submitted.Add(1)
		return nil
	case errors.Is(err, ants.ErrPoolOverload):
		p.rejected.Add(1)
		return ErrPoolOverload
	case errors.Is(err, ants.ErrPoolClosed):
		p.rejected.Add(1)
		return ErrPoolClosed
	default:
		p.rejected.Add(1)
		return err
	}
}

// Name returns the pool name.
func (p *Pool) Name() string { return p.name }

// Stats returns a snapshot of the pool counters.
func (p *Pool) Stats() Stats {
	return Stats{
		Submitted: p.submitted.Load(),
		Completed: p.completed.Load(),
		Panics:    p.panics.Load(),
		Rejected:  p.rejected.Load(),
		Running:   p.pool.Running(),
		Capacity:  p.pool.Cap(),
	}
}

// Release waits up to timeout for running tasks and stops the pool.
// Subsequent Submit calls fail with ErrPoolClosed.
func (p *Pool) Release(timeout time.Duration) error {
	var err error
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		if timeout <= 0 {
			p.pool.Release()
		} else {
			err = p.pool.ReleaseTimeout(timeout)
		}
		p.log.Debug("worker pool released")
	})
	return err
}
