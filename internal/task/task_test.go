package task

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// recorder collects notifications and checks the runner state at the
// terminal callback.
type recorder struct {
	runner *Runner[string]

	mu               sync.Mutex
	progress         []Progress
	successes        []string
	failures         []error
	readyAtTerminal  bool
	afterTerminalOps int
	terminated       bool
}

func (r *recorder) Progress(p Progress) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.terminated {
		r.afterTerminalOps++
	}
	r.progress = append(r.progress, p)
}

func (r *recorder) Succeeded(result string) {
	r.terminal()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.successes = append(r.successes, result)
}

func (r *recorder) Failed(err error) {
	r.terminal()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, err)
}

func (r *recorder) terminal() {
	ready := r.runner.Ready()
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.terminated {
		r.afterTerminalOps++
	}
	r.terminated = true
	r.readyAtTerminal = ready
}

func (r *recorder) terminalCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.successes) + len(r.failures)
}

func TestRunnerOutcomes(t *testing.T) {
	errExpected := errors.New("encoder rejected input")

	tests := []struct {
		name        string
		fn          Func[string]
		wantSuccess bool
		wantErr     string
	}{
		{
			name: "success",
			fn: func(ctx context.Context, report Reporter) (string, error) {
				report(10, "preparing")
				report(60, "working")
				return "done", nil
			},
			wantSuccess: true,
		},
		{
			name: "expected failure",
			fn: func(ctx context.Context, report Reporter) (string, error) {
				report(10, "preparing")
				return "", errExpected
			},
			wantErr: "encoder rejected input",
		},
		{
			name: "unexpected failure",
			fn: func(ctx context.Context, report Reporter) (string, error) {
				report(10, "preparing")
				panic("external tool crashed")
			},
			wantErr: "task panicked: external tool crashed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := NewRunner[string]()
			rec := &recorder{runner: runner}

			h, err := runner.Start(context.Background(), tt.fn, rec)
			if err != nil {
				t.Fatalf("Start failed: %v", err)
			}
			h.Wait()

			if got := rec.terminalCount(); got != 1 {
				t.Fatalf("expected exactly one terminal notification, got %d", got)
			}
			if !rec.readyAtTerminal {
				t.Error("runner should be ready when the terminal notification fires")
			}
			if !runner.Ready() {
				t.Error("runner should be ready after the task finished")
			}
			if rec.afterTerminalOps != 0 {
				t.Errorf("%d notifications after terminal", rec.afterTerminalOps)
			}

			if tt.wantSuccess {
				if len(rec.successes) != 1 || rec.successes[0] != "done" {
					t.Errorf("successes = %v", rec.successes)
				}
				return
			}
			if len(rec.failures) != 1 || rec.failures[0].Error() != tt.wantErr {
				t.Errorf("failures = %v, want %q", rec.failures, tt.wantErr)
			}
		})
	}
}

func TestRunnerProgressOrder(t *testing.T) {
	runner := NewRunner[string]()
	rec := &recorder{runner: runner}

	h, err := runner.Start(context.Background(), func(ctx context.Context, report Reporter) (string, error) {
		for i := 0; i <= 100; i += 5 {
			report(i, "step")
		}
		report(150, "over")
		report(-20, "under")
		report(Indeterminate, "encoding")
		return "ok", nil
	}, rec)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	h.Wait()

	var want []int
	for i := 0; i <= 100; i += 5 {
		want = append(want, i)
	}
	want = append(want, 100, 0, Indeterminate)

	if len(rec.progress) != len(want) {
		t.Fatalf("got %d progress notifications, want %d", len(rec.progress), len(want))
	}
	for i, p := range rec.progress {
		if p.Percent != want[i] {
			t.Errorf("progress[%d] = %d, want %d", i, p.Percent, want[i])
		}
	}
}

func TestRunnerRejectsConcurrentStart(t *testing.T) {
	runner := NewRunner[string]()
	release := make(chan struct{})
	started := make(chan struct{})

	h, err := runner.Start(context.Background(), func(ctx context.Context, report Reporter) (string, error) {
		close(started)
		<-release
		return "first", nil
	}, &recorder{runner: runner})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	<-started

	if runner.Ready() {
		t.Error("runner should not be ready while a task is active")
	}

	called := false
	_, err = runner.Start(context.Background(), func(ctx context.Context, report Reporter) (string, error) {
		called = true
		return "second", nil
	}, &recorder{runner: runner})
	if !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}

	close(release)
	h.Wait()

	if called {
		t.Error("rejected task must not run")
	}
	if !runner.Ready() {
		t.Error("runner should be ready after the first task finished")
	}
}

func TestRunnerDropsLateProgress(t *testing.T) {
	runner := NewRunner[string]()
	rec := &recorder{runner: runner}

	var late Reporter
	h, err := runner.Start(context.Background(), func(ctx context.Context, report Reporter) (string, error) {
		late = report
		return "ok", nil
	}, rec)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	h.Wait()

	late(99, "too late")

	select {
	case <-h.Done():
	case <-time.After(time.Second):
		t.Fatal("handle should stay done")
	}
	if len(rec.progress) != 0 {
		t.Errorf("late progress delivered: %v", rec.progress)
	}
}

func TestFuncsObserver(t *testing.T) {
	runner := NewRunner[int]()
	var (
		got      int
		progress []string
	)

	h, err := runner.Start(context.Background(), func(ctx context.Context, report Reporter) (int, error) {
		report(50, "half")
		return 42, nil
	}, Funcs[int]{
		OnProgress: func(p Progress) { progress = append(progress, p.Message) },
		OnSuccess:  func(v int) { got = v },
	})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	h.Wait()

	if got != 42 {
		t.Errorf("got %d, want 42", got)
	}
	if len(progress) != 1 || progress[0] != "half" {
		t.Errorf("progress = %v", progress)
	}
}
