package skills

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// DefaultTimeout bounds a single skill execution.
const DefaultTimeout = 15 * time.Second

// ErrSealed is returned when registering after the registry went read-only.
var ErrSealed = errors.New("skill registry is sealed")

// ExecutionError reports a matched skill that failed, panicked or timed out.
type ExecutionError struct {
	Skill string
	Err   error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("skill %q failed: %v", e.Skill, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// Registry holds skills in registration order. It is populated once at
// startup and then sealed; after Seal it is read-only and needs no locking.
type Registry struct {
	skills  []Skill
	index   map[string]int
	sc      *Context
	timeout time.Duration
	sealed  bool
	logger  *zap.Logger
}

type Option func(*Registry)

// WithTimeout sets the per-execution bound. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(r *Registry) { r.timeout = d }
}

func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

func NewRegistry(sc *Context, opts ...Option) *Registry {
	if sc == nil {
		sc = &Context{}
	}
	r := &Registry{
		index:   make(map[string]int),
		sc:      sc,
		timeout: DefaultTimeout,
		logger:  sc.logger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Context returns the shared context handed to skills.
func (r *Registry) Context() *Context {
	return r.sc
}

// Register appends a skill. Names must be unique.
func (r *Registry) Register(s Skill) error {
	if r.sealed {
		return ErrSealed
	}
	name := s.Name()
	if name == "" {
		return fmt.Errorf("skill has an empty name")
	}
	if _, dup := r.index[name]; dup {
		return fmt.Errorf("skill %q already registered", name)
	}
	r.add(name, s)
	return nil
}

// add appends a skill whose name has already been validated.
func (r *Registry) add(name string, s Skill) {
	r.index[name] = len(r.skills)
	r.skills = append(r.skills, s)
}

// Use builds skills from f and registers them. Either every skill from the
// factory is registered or none is.
func (r *Registry) Use(f Factory) ([]string, error) {
	if r.sealed {
		return nil, ErrSealed
	}
	built, err := f(r.sc)
	if err != nil {
		return nil, err
	}
	if len(built) == 0 {
		return nil, fmt.Errorf("factory produced no skills")
	}
	seen := make(map[string]bool, len(built))
	names := make([]string, 0, len(built))
	for _, s := range built {
		name := s.Name()
		if name == "" {
			return nil, fmt.Errorf("skill has an empty name")
		}
		if _, dup := r.index[name]; dup || seen[name] {
			return nil, fmt.Errorf("skill %q already registered", name)
		}
		seen[name] = true
		names = append(names, name)
	}
	for i, s := range built {
		r.add(names[i], s)
	}
	return names, nil
}

// Seal makes the registry read-only.
func (r *Registry) Seal() {
	r.sealed = true
}

// Match returns the first registered skill whose predicate accepts the
// utterance, or nil.
func (r *Registry) Match(utterance string) Skill {
	for _, s := range r.skills {
		if s.Match(utterance) {
			return s
		}
	}
	return nil
}

func (r *Registry) Get(name string) (Skill, bool) {
	i, ok := r.index[name]
	if !ok {
		return nil, false
	}
	return r.skills[i], true
}

// Names lists skills in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.skills))
	for i, s := range r.skills {
		names[i] = s.Name()
	}
	return names
}

func (r *Registry) Len() int {
	return len(r.skills)
}

// Execute runs s with the shared context, bounded by the registry timeout.
// Failures, panics and timeouts come back as *ExecutionError. A skill that
// ignores ctx keeps running in the background but no longer blocks the
// caller.
func (r *Registry) Execute(ctx context.Context, s Skill, utterance string) (string, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

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
		out, err := s.Execute(ctx, utterance, r.sc)
		ch <- result{out: out, err: err}
	}()

	select {
	case res := <-ch:
		if res.err != nil {
			return "", &ExecutionError{Skill: s.Name(), Err: res.err}
		}
		return res.out, nil
	case <-ctx.Done():
		r.logger.Warn("Skill execution abandoned",
			zap.String("skill", s.Name()),
			zap.Error(ctx.Err()))
		return "", &ExecutionError{Skill: s.Name(), Err: ctx.Err()}
	}
}
