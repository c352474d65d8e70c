package agentflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/PabloGalante/mealprep-agent/internal/domain"
)

// WorkerError describes why a worker call did not produce a usable value.
type WorkerError struct {
	Stage   domain.Stage
	Timeout bool
	Cause   error
}

func (e *WorkerError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("%s: timed out", e.Stage)
	}
	return fmt.Sprintf("%s: %v", e.Stage, e.Cause)
}

func (e *WorkerError) Unwrap() error { return e.Cause }

// Outcome is the result of a wrapped worker call together with the path it took.
type Outcome[T any] struct {
	Value  T
	Status domain.OutcomeStatus
	Reason string
}

func (o Outcome[T]) Report(stage domain.Stage) domain.StageReport {
	return domain.StageReport{Stage: stage, Status: o.Status, Reason: o.Reason}
}

type result[T any] struct {
	value T
	err   error
}

// Timebox runs fn on its own goroutine and waits at most d for it. When the
// time is up (or ctx ends first) it returns a timeout WorkerError right away;
// fn keeps running and whatever it returns later is dropped. fn receives a
// context carrying the same deadline so well-behaved workers can stop early.
// A panic inside fn is reported as an error.
func Timebox[T any](ctx context.Context, stage domain.Stage, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	wctx, cancel := context.WithTimeout(ctx, d)
	// Buffered so a late worker can always deliver and exit.
	done := make(chan result[T], 1)

	go func() {
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				done <- result[T]{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		v, err := fn(wctx)
		done <- result[T]{value: v, err: err}
	}()

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case r := <-done:
		if r.err != nil {
			return zero, &WorkerError{Stage: stage, Cause: r.err, Timeout: errors.Is(r.err, context.DeadlineExceeded)}
		}
		return r.value, nil
	case <-timer.C:
		return zero, &WorkerError{Stage: stage, Timeout: true, Cause: context.DeadlineExceeded}
	case <-ctx.Done():
		return zero, &WorkerError{Stage: stage, Timeout: errors.Is(ctx.Err(), context.DeadlineExceeded), Cause: ctx.Err()}
	}
}

// reason renders a worker failure for an Outcome.
func reason(err error) string {
	var we *WorkerError
	if errors.As(err, &we) && we.Timeout {
		return "timeout"
	}
	return err.Error()
}
