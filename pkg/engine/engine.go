// Package engine routes one utterance at a time between skills and the
// language-model fallback.
package engine

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nathfavour/flora/pkg/fallback"
	"github.com/nathfavour/flora/pkg/filter"
	"github.com/nathfavour/flora/pkg/pause"
	"github.com/nathfavour/flora/pkg/skills"
	"go.uber.org/zap"
)

// Replies shown instead of internal error detail.
const (
	DefaultErrorReply    = "System error."
	DefaultFallbackReply = "Sorry, I can't reach my language model right now."
)

// Recorder receives every routed turn. Failures are logged and ignored.
type Recorder interface {
	RecordTurn(ctx context.Context, t Turn) error
}

type Config struct {
	Policy        filter.Policy
	Registry      *skills.Registry
	Fallback      fallback.Backend
	Pause         *pause.Controller
	Recorder      Recorder
	Logger        *zap.Logger
	ErrorReply    string
	FallbackReply string
}

// Engine owns the turn. It holds no per-turn state between calls.
type Engine struct {
	policy        filter.Policy
	registry      *skills.Registry
	fallback      fallback.Backend
	pause         *pause.Controller
	recorder      Recorder
	logger        *zap.Logger
	errorReply    string
	fallbackReply string
	now           func() time.Time
}

func New(cfg Config) *Engine {
	e := &Engine{
		policy:        cfg.Policy,
		registry:      cfg.Registry,
		fallback:      cfg.Fallback,
		pause:         cfg.Pause,
		recorder:      cfg.Recorder,
		logger:        cfg.Logger,
		errorReply:    cfg.ErrorReply,
		fallbackReply: cfg.FallbackReply,
		now:           time.Now,
	}
	if e.registry == nil {
		e.registry = skills.NewRegistry(nil)
	}
	if e.fallback == nil {
		e.fallback = fallback.NewHeuristic()
	}
	if e.pause == nil {
		e.pause = pause.NewController()
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	if e.errorReply == "" {
		e.errorReply = DefaultErrorReply
	}
	if e.fallbackReply == "" {
		e.fallbackReply = DefaultFallbackReply
	}
	return e
}

// Run processes one utterance and returns the resolved turn.
func (e *Engine) Run(ctx context.Context, utterance string) Turn {
	t := Turn{
		ID:      uuid.NewString(),
		Raw:     utterance,
		Started: e.now(),
	}
	t.enter(StateReceived)

	if !e.policy.ShouldProcess(utterance) {
		t.enter(StateFilteredOut)
		t.Outcome = OutcomeIgnored
		t.Reason = ReasonFiltered
		e.logger.Debug("Ignored utterance", zap.String("utterance", utterance))
		t.Finished = e.now()
		return t
	}

	t.Cleaned = e.policy.Clean(utterance)
	if t.Cleaned == "" {
		t.enter(StateFilteredOut)
		t.Outcome = OutcomeIgnored
		t.Reason = ReasonEmpty
		t.Finished = e.now()
		return t
	}

	t.enter(StateRouted)
	if s := e.registry.Match(t.Cleaned); s != nil {
		e.runSkill(ctx, &t, s)
	} else {
		e.runFallback(ctx, &t)
	}

	// Last checkpoint before anything reaches the sink.
	if e.pause.IsPaused() {
		t.enter(StateSuppressed)
		t.Outcome = OutcomeIgnored
		t.Reason = ReasonPaused
		t.Response = ""
		e.logger.Info("Suppressed output while paused", zap.String("turn", t.ID), zap.String("path", t.Path))
	}

	t.Finished = e.now()
	e.record(ctx, t)
	return t
}

// RunConversation returns the text to emit, or false when there is none.
func (e *Engine) RunConversation(ctx context.Context, utterance string) (string, bool) {
	t := e.Run(ctx, utterance)
	if !t.Emits() {
		return "", false
	}
	return t.Response, true
}

func (e *Engine) runSkill(ctx context.Context, t *Turn, s skills.Skill) {
	t.Path = s.Name()
	out, err := e.registry.Execute(ctx, s, t.Cleaned)
	t.enter(StateSkillExecuted)
	if err != nil {
		t.Outcome = OutcomeError
		t.Err = err
		t.Response = e.errorReply
		e.logger.Error("Skill execution failed",
			zap.String("turn", t.ID),
			zap.String("skill", s.Name()),
			zap.Error(err))
		return
	}
	t.Outcome = OutcomeSkill
	t.Response = strings.TrimSpace(out)
	e.logger.Info("Skill handled utterance",
		zap.String("turn", t.ID),
		zap.String("skill", s.Name()))
}

func (e *Engine) runFallback(ctx context.Context, t *Turn) {
	t.Path = PathFallback
	t.enter(StateFallbackInvoked)
	out, err := e.fallback.Complete(ctx, t.Cleaned)
	if err == nil && strings.TrimSpace(out) == "" {
		err = errors.New("empty completion")
	}
	if err != nil {
		t.enter(StateFallbackError)
		t.Outcome = OutcomeError
		t.Err = err
		t.Response = e.fallbackReply
		e.logger.Error("Fallback failed", zap.String("turn", t.ID), zap.Error(err))
		return
	}
	t.enter(StateFallbackResponse)
	t.Outcome = OutcomeFallback
	t.Response = strings.TrimSpace(out)
	e.logger.Info("Fallback answered", zap.String("turn", t.ID))
}

func (e *Engine) record(ctx context.Context, t Turn) {
	if e.recorder == nil {
		return
	}
	if err := e.recorder.RecordTurn(ctx, t); err != nil {
		e.logger.Warn("Failed to record turn", zap.String("turn", t.ID), zap.Error(err))
	}
}
