// Package fallback provides the language-model backends consulted when no
// skill claims an utterance.
package fallback

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultTimeout bounds one completion.
const DefaultTimeout = 30 * time.Second

// Backend completes a prompt. Implementations may keep their own
// multi-turn state; callers treat them as opaque.
type Backend interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Func adapts a plain function into a Backend.
type Func func(ctx context.Context, prompt string) (string, error)

func (f Func) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Error is returned for any failed or timed-out completion.
type Error struct {
	Backend string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s backend: %v", e.Backend, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Timeout reports whether the completion ran out of time.
func (e *Error) Timeout() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}

type bounded struct {
	name    string
	b       Backend
	timeout time.Duration
}

// WithTimeout bounds every call to b by d and wraps failures in *Error. The
// call returns when the deadline passes even if b ignores its context.
func WithTimeout(name string, b Backend, d time.Duration) Backend {
	if d <= 0 {
		d = DefaultTimeout
	}
	return &bounded{name: name, b: b, timeout: d}
}

func (t *bounded) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	type result struct {
		out string
		err error
	}
	ch := make(chan result, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				ch <- result{err: fmt.Errorf("panic: %v", p)}
			}
		}()
		out, err := t.b.Complete(ctx, prompt)
		ch <- result{out: out, err: err}
	}()

	select {
	case res := <-ch:
		if res.err != nil {
			return "", &Error{Backend: t.name, Err: res.err}
		}
		return res.out, nil
	case <-ctx.Done():
		return "", &Error{Backend: t.name, Err: ctx.Err()}
	}
}
