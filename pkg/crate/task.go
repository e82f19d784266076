package crate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/cratewatch/pkg/errors"
	"github.com/matzehuels/cratewatch/pkg/observability"
)

// TaskState is the state of a [Task].
type TaskState int

const (
	TaskIdle TaskState = iota
	TaskRunning
	TaskCompleted
)

func (s TaskState) String() string {
	switch s {
	case TaskIdle:
		return "idle"
	case TaskRunning:
		return "running"
	case TaskCompleted:
		return "completed"
	default:
		return fmt.Sprintf("TaskState(%d)", int(s))
	}
}

// TaskFunc is the work of one task run.
type TaskFunc[T any] func(ctx context.Context) (T, error)

// Outcome is the result of one finished run.
type Outcome[T any] struct {
	Value       T
	Err         error
	RunID       string
	Seq         uint64
	StartedAt   time.Time
	CompletedAt time.Time
}

// Run is one execution of a [Task].
type Run[T any] struct {
	id      string
	seq     uint64
	started time.Time
	done    chan struct{}
	out     Outcome[T]
}

// Task is a named background operation with at most one run in flight.
//
// Perform while a run is in flight joins that run. Runs are detached from the
// caller's context: a caller whose context ends stops waiting, the run goes
// on and still records its outcome. Failed runs are not cached; the next
// Perform after a failure starts a new run.
type Task[T any] struct {
	name  string
	start func() TaskFunc[T]

	mu       sync.Mutex
	seq      uint64
	inflight *Run[T]
	last     *Outcome[T]
	lastOK   *Outcome[T]
}

// NewTask creates a task that runs fn.
func NewTask[T any](name string, fn TaskFunc[T]) *Task[T] {
	return NewStagedTask(name, func() TaskFunc[T] { return fn })
}

// NewStagedTask creates a task whose runs are prepared by start. start is
// called synchronously, in the order runs are started, and returns the work
// of the run.
func NewStagedTask[T any](name string, start func() TaskFunc[T]) *Task[T] {
	return &Task[T]{name: name, start: start}
}

// Name returns the task name.
func (t *Task[T]) Name() string { return t.name }

// Perform joins the in-flight run or starts a new one, and waits for it.
func (t *Task[T]) Perform(ctx context.Context) (T, error) {
	return t.Start(ctx).Wait(ctx)
}

// Join returns the in-flight run, if any, without starting a new one.
func (t *Task[T]) Join(ctx context.Context) (*Run[T], bool) {
	t.mu.Lock()
	run := t.inflight
	t.mu.Unlock()
	if run == nil {
		return nil, false
	}
	observability.Task().OnTaskJoin(ctx, t.name, run.id)
	return run, true
}

// Start joins the in-flight run or starts a new one without waiting. The
// returned channel is closed once the run has finished.
func (t *Task[T]) Start(ctx context.Context) *Run[T] {
	t.mu.Lock()
	if run := t.inflight; run != nil {
		t.mu.Unlock()
		observability.Task().OnTaskJoin(ctx, t.name, run.id)
		return run
	}
	t.seq++
	run := &Run[T]{
		id:      uuid.NewString(),
		seq:     t.seq,
		started: time.Now(),
		done:    make(chan struct{}),
	}
	fn := t.start()
	t.inflight = run
	t.mu.Unlock()

	runCtx := context.WithoutCancel(ctx)
	observability.Task().OnTaskStart(runCtx, t.name, run.id)
	go t.execute(runCtx, run, fn)
	return run
}

// Wait blocks until the run finishes or ctx ends. A cancelled ctx only
// stops the wait; the run continues.
func (r *Run[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-r.done:
		return r.out.Value, r.out.Err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Done returns a channel closed when the run finishes.
func (r *Run[T]) Done() <-chan struct{} { return r.done }

// ID returns the run id.
func (r *Run[T]) ID() string { return r.id }

func (t *Task[T]) execute(ctx context.Context, run *Run[T], fn TaskFunc[T]) {
	var (
		value T
		err   error
	)
	func() {
		defer func() {
			if p := recover(); p != nil {
				err = errors.New(errors.ErrCodeInternal, "task %s panicked: %v", t.name, p)
			}
		}()
		value, err = fn(ctx)
	}()

	run.out = Outcome[T]{
		Value:       value,
		Err:         err,
		RunID:       run.id,
		Seq:         run.seq,
		StartedAt:   run.started,
		CompletedAt: time.Now(),
	}

	t.mu.Lock()
	out := run.out
	if t.last == nil || out.Seq > t.last.Seq {
		t.last = &out
	}
	if err == nil && (t.lastOK == nil || out.Seq > t.lastOK.Seq) {
		t.lastOK = &out
	}
	if t.inflight == run {
		t.inflight = nil
	}
	t.mu.Unlock()

	observability.Task().OnTaskComplete(ctx, t.name, run.id, out.CompletedAt.Sub(out.StartedAt), err)
	close(run.done)
}

// State returns the current state of the task.
func (t *Task[T]) State() TaskState {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch {
	case t.inflight != nil:
		return TaskRunning
	case t.last != nil:
		return TaskCompleted
	default:
		return TaskIdle
	}
}

// IsRunning reports whether a run is in flight.
func (t *Task[T]) IsRunning() bool { return t.State() == TaskRunning }

// Last returns the outcome of the most recently started finished run.
func (t *Task[T]) Last() (Outcome[T], bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.last == nil {
		return Outcome[T]{}, false
	}
	return *t.last, true
}

// LastSuccessful returns the outcome of the most recently started run that
// succeeded.
func (t *Task[T]) LastSuccessful() (Outcome[T], bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.lastOK == nil {
		return Outcome[T]{}, false
	}
	return *t.lastOK, true
}

// Outcome returns the outcome of the run. It must only be called after Done
// is closed.
func (r *Run[T]) Outcome() Outcome[T] { return r.out }

// MarshalText encodes the state by name.
func (s TaskState) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText decodes a state name.
func (s *TaskState) UnmarshalText(text []byte) error {
	for _, st := range []TaskState{TaskIdle, TaskRunning, TaskCompleted} {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown task state %q", text)
}
