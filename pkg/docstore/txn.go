/*
 MIT License

 (C) Copyright 2026 RedMane Technology LLC

 Permission is hereby granted, free of charge, to any person obtaining a
 copy of this software and associated documentation files (the "Software"),
 to deal in the Software without restriction, including without limitation
 the rights to use, copy, modify, merge, publish, distribute, sublicense,
 and/or sell copies of the Software, and to permit persons to whom the
 Software is furnished to do so, subject to the following conditions:

 The above copyright notice and this permission notice shall be included
 in all copies or substantial portions of the Software.

 THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL
 THE AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR
 OTHER LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE,
 ARISING FROM, OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR
 OTHER DEALINGS IN THE SOFTWARE.
*/

package docstore

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// DefaultAttempts is the write retry budget. Only store-level conflicts
// consume it; validation and permission errors short-circuit immediately.
const DefaultAttempts = 5

// ExhaustedError is returned when every attempt lost the conditional
// replace. Msg is the operation's caller-facing message.
type ExhaustedError struct {
	Msg  string
	Last error
}

func (e *ExhaustedError) Error() string {
	return e.Msg
}

func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

// Runner wraps a write operation in the optimistic-concurrency retry
// envelope: the attempt re-reads the document, recomputes the mutation,
// and performs the conditional replace. Validators that consult the store
// run inside the attempt so they see the state being written against.
type Runner struct {
	attempts  int
	baseDelay time.Duration
	maxDelay  time.Duration
	log       *zap.Logger
}

// NewRunner builds a runner with the default budget.
func NewRunner(log *zap.Logger) *Runner {
	return &Runner{
		attempts:  DefaultAttempts,
		baseDelay: 50 * time.Millisecond,
		maxDelay:  time.Second,
		log:       log,
	}
}

// Run executes attempt until it succeeds, fails with a non-conflict error,
// or the budget runs out. errMsg becomes the caller-facing message when
// the budget is exhausted.
func (r *Runner) Run(ctx context.Context, errMsg string, attempt func(ctx context.Context) error) error {
	var last error
	for i := 0; i < r.attempts; i++ {
		err := attempt(ctx)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrPreconditionFailed) {
			return err
		}
		last = err

		if i == r.attempts-1 {
			break
		}
		backoff := r.backoff(i)
		r.log.Warn("document replace conflict, retrying",
			zap.Int("attempt", i+1),
			zap.Int("budget", r.attempts),
			zap.Duration("backoff", backoff),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return &ExhaustedError{Msg: errMsg, Last: last}
}

// backoff is exponential with half-range jitter, capped at maxDelay.
func (r *Runner) backoff(attempt int) time.Duration {
	delay := float64(r.baseDelay) * math.Pow(2, float64(attempt))
	if delay > float64(r.maxDelay) {
		delay = float64(r.maxDelay)
	}
	delay += (rand.Float64() - 0.5) * delay * 0.5
	if delay < float64(r.baseDelay) {
		delay = float64(r.baseDelay)
	}
	return time.Duration(delay)
}
