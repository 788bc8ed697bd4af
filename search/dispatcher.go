package search

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/gamerec/core"
)

// Dispatcher runs recommendation queries on a worker pool. Every
// accepted query delivers exactly one result on its own channel.
type Dispatcher struct {
	recommender *Recommender
	pool        *ants.Pool
	logger      *slog.Logger
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher) error

// WithPoolSize sets the number of concurrent workers.
// Default is runtime.NumCPU().
func WithPoolSize(size int) DispatcherOption {
	return func(d *Dispatcher) error {
		if size < 1 {
			size = 1
		}
		if d.pool != nil {
			d.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		d.pool = pool
		return nil
	}
}

// WithDispatcherLogger sets a custom logger.
// Default is slog.Default().
func WithDispatcherLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		d.logger = logger
		return nil
	}
}

// NewDispatcher creates a dispatcher backed by recommender.
func NewDispatcher(recommender *Recommender, opts ...DispatcherOption) (*Dispatcher, error) {
	if recommender == nil {
		return nil, ErrRecommenderRequired
	}

	pool, err := ants.NewPool(runtime.NumCPU())
	if err != nil {
		return nil, err
	}
	d := &Dispatcher{
		recommender: recommender,
		pool:        pool,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			d.Release()
			return nil, err
		}
	}
	d.logger = d.logger.With("component", "dispatcher")
	return d, nil
}

// Submit queues input and returns a channel that receives its result
// once and is then closed. Queries cannot be cancelled.
func (d *Dispatcher) Submit(input string) (<-chan core.Recommendation, error) {
	out := make(chan core.Recommendation, 1)
	err := d.pool.Submit(func() {
		defer close(out)
		out <- d.recommender.Recommend(input)
	})
	if err != nil {
		if errors.Is(err, ants.ErrPoolClosed) {
			return nil, ErrDispatcherClosed
		}
		d.logger.Error("error submitting query", "err", err)
		return nil, fmt.Errorf("submit query: %w", err)
	}
	return out, nil
}

// Release stops the worker pool. Queries already accepted still
// deliver their result.
func (d *Dispatcher) Release() {
	if d.pool != nil {
		d.pool.Release()
	}
}
