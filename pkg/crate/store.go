package crate

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/cratewatch/pkg/errors"
)

// Store keeps one [Aggregate] per crate name.
//
// Concurrent Get calls for a crate that is not yet known share one crate
// record fetch. A failed fetch is not remembered.
type Store struct {
	loader Loader
	opts   []Option
	logger *log.Logger

	mu    sync.Mutex
	aggs  map[string]*Aggregate
	loads map[string]*Task[*Aggregate]
}

// NewStore creates a store. opts are applied to every aggregate it creates.
func NewStore(loader Loader, opts ...Option) *Store {
	return &Store{
		loader: loader,
		opts:   opts,
		logger: buildOptions(opts).logger,
		aggs:   make(map[string]*Aggregate),
		loads:  make(map[string]*Task[*Aggregate]),
	}
}

// Get returns the aggregate for name, fetching the crate record on first
// use.
func (s *Store) Get(ctx context.Context, name string) (*Aggregate, error) {
	if err := errors.ValidateCrateName(name); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if agg, ok := s.aggs[name]; ok {
		s.mu.Unlock()
		return agg, nil
	}
	task, ok := s.loads[name]
	if !ok {
		task = NewTask(name+"/loadCrate", func(ctx context.Context) (*Aggregate, error) {
			return s.fetch(ctx, name)
		})
		s.loads[name] = task
	}
	s.mu.Unlock()

	return task.Perform(ctx)
}

func (s *Store) fetch(ctx context.Context, name string) (*Aggregate, error) {
	c, err := s.loader.LoadCrate(ctx, name)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFetchFailed, err, "load crate %s", name)
	}
	agg := New(c, s.loader, s.opts...)

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.aggs[name]; ok {
		return existing, nil
	}
	s.aggs[name] = agg
	delete(s.loads, name)
	s.logger.Debug("crate loaded", "crate", name)
	return agg, nil
}

// Forget drops the aggregate for name. The next Get fetches it again.
func (s *Store) Forget(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.aggs, name)
}

// Len returns the number of known aggregates.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.aggs)
}
