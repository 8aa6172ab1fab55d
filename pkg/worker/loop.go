// Package worker runs the long-lived listen, dispatch, respond loop.
package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nathfavour/flora/pkg/engine"
	"github.com/nathfavour/flora/pkg/pause"
	"go.uber.org/zap"
)

// Messages emitted by the loop itself.
const (
	DefaultGreeting   = "Flora online. Ready for command."
	DefaultFarewell   = "Shutting down."
	DefaultErrorReply = "System error."
)

// Source yields the next utterance. It blocks until one is available and
// returns io.EOF once input is exhausted.
type Source interface {
	Next(ctx context.Context) (string, error)
}

// Flusher is implemented by sources that buffer input while nobody is
// listening. The loop calls Flush on resume so nothing said during a pause
// is replayed.
type Flusher interface {
	Flush()
}

// Sink delivers a response. Delivery is best-effort.
type Sink interface {
	Emit(ctx context.Context, text string) error
}

// Runner processes one utterance. *engine.Engine satisfies it.
type Runner interface {
	Run(ctx context.Context, utterance string) engine.Turn
}

// AcquisitionError wraps a failed read from the input source.
type AcquisitionError struct {
	Err error
}

func (e *AcquisitionError) Error() string {
	return fmt.Sprintf("acquire utterance: %v", e.Err)
}

func (e *AcquisitionError) Unwrap() error { return e.Err }

type Config struct {
	Source          Source
	Sink            Sink
	Engine          Runner
	Pause           *pause.Controller
	Logger          *zap.Logger
	QuitWords       []string
	PollInterval    time.Duration
	MaxPollInterval time.Duration
	Greeting        string
	Farewell        string
	ErrorReply      string
	// OnTurn, when set, observes every dispatched turn.
	OnTurn func(engine.Turn)
}

type Loop struct {
	source     Source
	sink       Sink
	engine     Runner
	pause      *pause.Controller
	logger     *zap.Logger
	quitWords  []string
	backoff    pause.Backoff
	greeting   string
	farewell   string
	errorReply string
	onTurn     func(engine.Turn)
}

func New(cfg Config) *Loop {
	l := &Loop{
		source:     cfg.Source,
		sink:       cfg.Sink,
		engine:     cfg.Engine,
		pause:      cfg.Pause,
		logger:     cfg.Logger,
		quitWords:  cfg.QuitWords,
		backoff:    pause.Backoff{Min: cfg.PollInterval, Max: cfg.MaxPollInterval},
		greeting:   cfg.Greeting,
		farewell:   cfg.Farewell,
		errorReply: cfg.ErrorReply,
		onTurn:     cfg.OnTurn,
	}
	if l.pause == nil {
		l.pause = pause.NewController()
	}
	if l.logger == nil {
		l.logger = zap.NewNop()
	}
	if len(l.quitWords) == 0 {
		l.quitWords = []string{"quit"}
	}
	if l.backoff.Min <= 0 {
		l.backoff.Min = pause.DefaultPollInterval
	}
	if l.backoff.Max < l.backoff.Min {
		l.backoff.Max = 4 * l.backoff.Min
	}
	if l.greeting == "" {
		l.greeting = DefaultGreeting
	}
	if l.farewell == "" {
		l.farewell = DefaultFarewell
	}
	if l.errorReply == "" {
		l.errorReply = DefaultErrorReply
	}
	return l
}

// Run loops until a quit word, end of input or ctx cancellation. Quit and
// end of input return nil; cancellation returns ctx.Err(). Per-turn
// failures never end the loop.
func (l *Loop) Run(ctx context.Context) error {
	if !l.pause.IsPaused() {
		l.emit(ctx, l.greeting)
	}

	wasPaused := false
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		// Checkpoint 1: before acquiring input.
		if l.pause.IsPaused() {
			wasPaused = true
			if err := l.backoff.Wait(ctx, l.pause); err != nil {
				return err
			}
			continue
		}
		if wasPaused {
			wasPaused = false
			l.backoff.Reset()
			if f, ok := l.source.(Flusher); ok {
				f.Flush()
			}
			l.logger.Info("Resumed")
		}

		utterance, err := l.acquire(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				l.logger.Info("End of input")
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if l.pause.IsPaused() {
				l.logger.Debug("Input acquisition interrupted by pause")
				continue
			}
			l.logger.Warn("Skipping cycle", zap.Error(&AcquisitionError{Err: err}))
			if err := l.sleep(ctx); err != nil {
				return err
			}
			continue
		}

		// Checkpoint 2: input may have arrived after a pause was requested.
		if l.pause.IsPaused() {
			l.logger.Debug("Dropped utterance received while paused")
			continue
		}

		utterance = strings.TrimSpace(utterance)
		if utterance == "" || strings.EqualFold(utterance, "none") {
			continue
		}
		if l.isQuit(utterance) {
			l.logger.Info("Quit requested")
			l.emit(ctx, l.farewell)
			return nil
		}

		turn := l.dispatch(ctx, utterance)
		if l.onTurn != nil {
			l.onTurn(turn)
		}

		// Checkpoint 3: nothing reaches the sink while paused.
		if !turn.Emits() || l.pause.IsPaused() {
			continue
		}
		l.emit(ctx, turn.Response)
	}
}

func (l *Loop) acquire(ctx context.Context) (string, error) {
	actx, cancel := l.pause.WhileRunning(ctx)
	defer cancel()
	return l.source.Next(actx)
}

// dispatch runs the engine, converting a panic into an error turn.
func (l *Loop) dispatch(ctx context.Context, utterance string) (turn engine.Turn) {
	defer func() {
		if p := recover(); p != nil {
			l.logger.Error("Turn panicked", zap.String("utterance", utterance), zap.Any("panic", p))
			turn = engine.Turn{
				Raw:      utterance,
				Outcome:  engine.OutcomeError,
				Err:      fmt.Errorf("panic: %v", p),
				Response: l.errorReply,
			}
		}
	}()
	return l.engine.Run(ctx, utterance)
}

func (l *Loop) emit(ctx context.Context, text string) {
	if l.sink == nil || text == "" {
		return
	}
	if err := l.sink.Emit(ctx, text); err != nil {
		l.logger.Warn("Failed to emit response", zap.Error(err))
	}
}

func (l *Loop) isQuit(utterance string) bool {
	u := strings.ToLower(utterance)
	for _, w := range l.quitWords {
		if w != "" && strings.Contains(u, strings.ToLower(w)) {
			return true
		}
	}
	return false
}

func (l *Loop) sleep(ctx context.Context) error {
	t := time.NewTimer(l.backoff.Min)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
