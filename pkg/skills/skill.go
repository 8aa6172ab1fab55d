package skills

import (
	"context"
	"strings"

	"github.com/nathfavour/flora/pkg/pause"
	"go.uber.org/zap"
)

// Skill defines a modular command capability for Flora.
//
// Match must be pure and deterministic: the registry may call it for any
// utterance without committing to Execute.
type Skill interface {
	Name() string
	Match(utterance string) bool
	Execute(ctx context.Context, utterance string, sc *Context) (string, error)
}

// Context is the shared collaborator set handed to every skill at
// construction and execution time.
type Context struct {
	Pause    *pause.Controller
	WakeWord string
	Logger   *zap.Logger
}

func (c *Context) logger() *zap.Logger {
	if c == nil || c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

// Map exposes the context to interpreted plugins, which only see plain
// values and funcs.
func (c *Context) Map() map[string]interface{} {
	m := map[string]interface{}{
		"wake_word":  "",
		"paused":     func() bool { return false },
		"set_paused": func(bool) {},
	}
	if c == nil {
		return m
	}
	m["wake_word"] = c.WakeWord
	if c.Pause != nil {
		m["paused"] = c.Pause.IsPaused
		m["set_paused"] = c.Pause.Set
	}
	return m
}

// Factory builds one or more skills from the shared context. Built-in skills
// and every discovered plugin are registered through a Factory.
type Factory func(sc *Context) ([]Skill, error)

// Single adapts a constructor of one skill into a Factory.
func Single(fn func(sc *Context) Skill) Factory {
	return func(sc *Context) ([]Skill, error) {
		return []Skill{fn(sc)}, nil
	}
}

// FuncSkill is a Skill assembled from plain functions.
type FuncSkill struct {
	ID      string
	MatchFn func(utterance string) bool
	ExecFn  func(ctx context.Context, utterance string, sc *Context) (string, error)
}

func (f *FuncSkill) Name() string { return f.ID }

func (f *FuncSkill) Match(utterance string) bool {
	return f.MatchFn != nil && f.MatchFn(utterance)
}

func (f *FuncSkill) Execute(ctx context.Context, utterance string, sc *Context) (string, error) {
	if f.ExecFn == nil {
		return "", nil
	}
	return f.ExecFn(ctx, utterance, sc)
}

// ContainsAny returns a predicate that accepts utterances containing any of
// the phrases, ignoring case.
func ContainsAny(phrases ...string) func(string) bool {
	lower := make([]string, 0, len(phrases))
	for _, p := range phrases {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			lower = append(lower, p)
		}
	}
	return func(utterance string) bool {
		u := strings.ToLower(utterance)
		for _, p := range lower {
			if strings.Contains(u, p) {
				return true
			}
		}
		return false
	}
}
