// Package task runs one long operation off the caller's goroutine and relays
// its progress and outcome to an Observer.
//
// A Runner holds a single slot. While a task occupies it, Start refuses new
// work with ErrBusy and Ready reports false. Observers receive zero or more
// Progress notifications followed by exactly one of Succeeded or Failed, all
// from the same dispatcher goroutine and in emission order.
package task

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Indeterminate marks a progress notification without a completion estimate.
const Indeterminate = -1

// ErrBusy is returned by Start while another task holds the runner.
var ErrBusy = errors.New("a task is already running")

type Progress struct {
	Percent int
	Message string
}

// Reporter is handed to the task body for progress notifications.
type Reporter func(percent int, message string)

// Func is the body of a task.
type Func[T any] func(ctx context.Context, report Reporter) (T, error)

// Observer receives notifications for one task.
type Observer[T any] interface {
	Progress(p Progress)
	Succeeded(result T)
	Failed(err error)
}

type Runner[T any] struct {
	slot *semaphore.Weighted
}

func NewRunner[T any]() *Runner[T] {
	return &Runner[T]{slot: semaphore.NewWeighted(1)}
}

// Ready reports whether a new task may be started.
func (r *Runner[T]) Ready() bool {
	if r.slot.TryAcquire(1) {
		r.slot.Release(1)
		return true
	}
	return false
}

// Handle tracks a started task.
type Handle struct {
	done chan struct{}
}

// Wait blocks until the terminal notification has been delivered.
func (h *Handle) Wait() {
	<-h.done
}

// Done is closed once the terminal notification has been delivered.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

type event[T any] struct {
	progress *Progress
	result   T
	err      error
	terminal bool
}

// Start runs fn on its own goroutine. It returns ErrBusy without calling fn
// when the runner is occupied.
func (r *Runner[T]) Start(
	ctx context.Context,
	fn Func[T],
	obs Observer[T],
) (*Handle, error) {
	if !r.slot.TryAcquire(1) {
		return nil, ErrBusy
	}

	events := make(chan event[T], 16)
	h := &Handle{done: make(chan struct{})}

	var (
		mu     sync.Mutex
		closed bool
	)
	emit := func(ev event[T]) {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		events <- ev
		if ev.terminal {
			closed = true
			close(events)
		}
	}

	report := func(percent int, message string) {
		emit(event[T]{progress: &Progress{
			Percent: clampPercent(percent),
			Message: message,
		}})
	}

	go r.dispatch(events, obs, h)

	go func() {
		var (
			result T
			err    error
		)
		defer func() {
			if p := recover(); p != nil {
				var zero T
				emit(event[T]{
					result:   zero,
					err:      fmt.Errorf("task panicked: %v", p),
					terminal: true,
				})
				return
			}
			emit(event[T]{result: result, err: err, terminal: true})
		}()
		result, err = fn(ctx, report)
	}()

	return h, nil
}

func (r *Runner[T]) dispatch(events <-chan event[T], obs Observer[T], h *Handle) {
	defer close(h.done)
	for ev := range events {
		if !ev.terminal {
			obs.Progress(*ev.progress)
			continue
		}

		r.slot.Release(1)
		if ev.err != nil {
			obs.Failed(ev.err)
		} else {
			obs.Succeeded(ev.result)
		}
	}
}

func clampPercent(p int) int {
	switch {
	case p == Indeterminate:
		return Indeterminate
	case p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}

// Funcs adapts plain functions to Observer. Nil fields are skipped.
type Funcs[T any] struct {
	OnProgress func(Progress)
	OnSuccess  func(T)
	OnFailure  func(error)
}

func (f Funcs[T]) Progress(p Progress) {
	if f.OnProgress != nil {
		f.OnProgress(p)
	}
}

func (f Funcs[T]) Succeeded(result T) {
	if f.OnSuccess != nil {
		f.OnSuccess(result)
	}
}

func (f Funcs[T]) Failed(err error) {
	if f.OnFailure != nil {
		f.OnFailure(err)
	}
}
