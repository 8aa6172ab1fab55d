package skills

import (
	"context"
	"fmt"
	"go/parser"
	"go/token"
	"sort"
	"strconv"
	"sync"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

// ScriptCompiler turns Go source plugins into skills using the yaegi
// interpreter. A plugin declares, in any package:
//
//	func Name() string
//	func Match(utterance string) bool
//	func Execute(utterance string) (string, error)
//	func Setup(ctx map[string]interface{}) error // optional
//
// Only allowlisted stdlib imports are accepted.
type ScriptCompiler struct {
	allowed map[string]bool
}

func NewScriptCompiler() *ScriptCompiler {
	return &ScriptCompiler{
		allowed: map[string]bool{
			"bytes":           true,
			"encoding/base64": true,
			"encoding/json":   true,
			"errors":          true,
			"fmt":             true,
			"math":            true,
			"math/rand":       true,
			"path":            true,
			"regexp":          true,
			"sort":            true,
			"strconv":         true,
			"strings":         true,
			"time":            true,
			"unicode":         true,
		},
	}
}

// Compile evaluates src and resolves the plugin entry points.
func (c *ScriptCompiler) Compile(path string, src []byte) (Factory, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, src, parser.ImportsOnly)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	var forbidden []string
	for _, imp := range file.Imports {
		p, _ := strconv.Unquote(imp.Path.Value)
		if !c.allowed[p] {
			forbidden = append(forbidden, p)
		}
	}
	if len(forbidden) > 0 {
		sort.Strings(forbidden)
		return nil, fmt.Errorf("forbidden imports: %v", forbidden)
	}
	pkg := file.Name.Name

	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("load stdlib: %w", err)
	}
	if _, err := i.Eval(string(src)); err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}

	var (
		nameFn  func() string
		matchFn func(string) bool
		execFn  func(string) (string, error)
		setupFn func(map[string]interface{}) error
	)
	if err := lookup(i, pkg, "Name", &nameFn); err != nil {
		return nil, err
	}
	if err := lookup(i, pkg, "Match", &matchFn); err != nil {
		return nil, err
	}
	if err := lookup(i, pkg, "Execute", &execFn); err != nil {
		return nil, err
	}
	if err := lookup(i, pkg, "Setup", &setupFn); err != nil && !isMissing(err) {
		return nil, err
	}

	return func(sc *Context) ([]Skill, error) {
		if setupFn != nil {
			if err := setupFn(sc.Map()); err != nil {
				return nil, fmt.Errorf("setup: %w", err)
			}
		}
		return []Skill{&scriptSkill{
			name:    nameFn(),
			matchFn: matchFn,
			execFn:  execFn,
		}}, nil
	}, nil
}

type missingSymbol struct{ name string }

func (m missingSymbol) Error() string { return fmt.Sprintf("%s not defined", m.name) }

func isMissing(err error) bool {
	_, ok := err.(missingSymbol)
	return ok
}

// lookup resolves pkg.sym and stores it in dst, which must point to a func
// variable of the expected signature.
func lookup[T any](i *interp.Interpreter, pkg, sym string, dst *T) error {
	v, err := i.Eval(pkg + "." + sym)
	if err != nil {
		return missingSymbol{name: sym}
	}
	fn, ok := v.Interface().(T)
	if !ok {
		return fmt.Errorf("%s has signature %s, want %T", sym, v.Type(), *dst)
	}
	*dst = fn
	return nil
}

// scriptSkill runs one Execute at a time, even when an earlier call was
// abandoned on timeout and is still inside the interpreter.
type scriptSkill struct {
	name    string
	matchFn func(string) bool
	execFn  func(string) (string, error)

	mu sync.Mutex
}

func (s *scriptSkill) Name() string { return s.name }

func (s *scriptSkill) Match(utterance string) bool {
	return s.matchFn(utterance)
}

func (s *scriptSkill) Execute(ctx context.Context, utterance string, _ *Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.execFn(utterance)
}
