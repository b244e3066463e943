package engine

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Item is one unit of work offered to the Executor. A synchronous item
// runs inline on the scheduling goroutine and its result is emitted
// before any later item is even submitted; an asynchronous item goes to
// the worker pool and its result surfaces whenever it completes.
type Item[T any] struct {
	Value T
	Sync  bool
}

// Result pairs a work item with what its worker produced. Err is set
// when the worker failed; a failed item never stops the run or other
// in-flight items.
type Result[T, R any] struct {
	Item  T
	Value R
	Err   error
}

// Worker processes one work item.
type Worker[T, R any] func(ctx context.Context, item T) (R, error)

// Executor schedules work items through a fixed worker pool, capping
// both concurrency and submission rate. Results stream out in
// completion order; synchronous items are the exception and appear
// exactly where they were scheduled.
type Executor[T, R any] struct {
	capacity int
	perSec   float64
	worker   Worker[T, R]
}

// NewExecutor creates an executor with the given concurrency capacity
// and target submissions per second. Non-positive arguments fall back
// to 10.
func NewExecutor[T, R any](capacity int, perSec float64, worker Worker[T, R]) *Executor[T, R] {
	if capacity <= 0 {
		capacity = 10
	}
	if perSec <= 0 {
		perSec = 10
	}
	return &Executor[T, R]{
		capacity: capacity,
		perSec:   perSec,
		worker:   worker,
	}
}

// Run consumes items until the channel closes and returns the lazy
// result stream. The stream is finite when the producer is, and is not
// restartable. Cancelling the context abandons unscheduled work; the
// result channel always closes.
func (e *Executor[T, R]) Run(ctx context.Context, items <-chan Item[T]) <-chan Result[T, R] {
	out := make(chan Result[T, R])
	go e.run(ctx, items, out)
	return out
}

func (e *Executor[T, R]) run(ctx context.Context, items <-chan Item[T], out chan<- Result[T, R]) {
	defer close(out)

	submit := make(chan T)
	defer close(submit)

	// Buffered to capacity so workers never block reporting back.
	done := make(chan Result[T, R], e.capacity)

	for i := 0; i < e.capacity; i++ {
		go func() {
			for item := range submit {
				value, err := e.worker(ctx, item)
				done <- Result[T, R]{Item: item, Value: value, Err: err}
			}
		}()
	}

	burst := int(e.perSec)
	if burst < 1 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(e.perSec), burst)
	interval := time.Duration(float64(time.Second) / e.perSec)
	inFlight := 0

	emit := func(r Result[T, R]) bool {
		select {
		case out <- r:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for {
		// Surface whatever has already completed before scheduling
		// more, so workers never block handing results back.
	completed:
		for inFlight > 0 {
			select {
			case r := <-done:
				inFlight--
				if !emit(r) {
					return
				}
			default:
				break completed
			}
		}

		if !limiter.Allow() {
			// Out of tokens: wait for at least one in-flight
			// operation, drain everything that completed, and pad
			// the wait out to one submission interval so the next
			// loop has capacity without bursting.
			start := time.Now()
			if inFlight > 0 {
				select {
				case r := <-done:
					inFlight--
					if !emit(r) {
						return
					}
				case <-ctx.Done():
					return
				}
			drain:
				for {
					select {
					case r := <-done:
						inFlight--
						if !emit(r) {
							return
						}
					default:
						break drain
					}
				}
			}
			if time.Since(start) < time.Second {
				timer := time.NewTimer(interval)
				select {
				case <-ctx.Done():
					timer.Stop()
					return
				case <-timer.C:
				}
			}
		}

		var item Item[T]
		var ok bool
		select {
		case item, ok = <-items:
		case <-ctx.Done():
			return
		}
		if !ok {
			// Producer exhausted: drain the remaining in-flight
			// operations and terminate.
			for inFlight > 0 {
				select {
				case r := <-done:
					inFlight--
					if !emit(r) {
						return
					}
				case <-ctx.Done():
					return
				}
			}
			return
		}

		if item.Sync {
			value, err := e.worker(ctx, item.Value)
			if !emit(Result[T, R]{Item: item.Value, Value: value, Err: err}) {
				return
			}
			continue
		}

		select {
		case submit <- item.Value:
			inFlight++
		case <-ctx.Done():
			return
		}
	}
}
