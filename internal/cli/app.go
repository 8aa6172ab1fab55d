package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/nathfavour/flora/pkg/config"
	"github.com/nathfavour/flora/pkg/engine"
	"github.com/nathfavour/flora/pkg/fallback"
	"github.com/nathfavour/flora/pkg/memory"
	"github.com/nathfavour/flora/pkg/pause"
	"github.com/nathfavour/flora/pkg/skills"
	"github.com/nathfavour/flora/pkg/vault"
	"github.com/nathfavour/flora/pkg/worker"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// app is one assembled assistant: shared pause flag, sealed registry,
// fallback backend, engine and optional journal.
type app struct {
	settings config.Settings
	logger   *zap.Logger
	pause    *pause.Controller
	registry *skills.Registry
	loaded   skills.LoadResult
	engine   *engine.Engine
	history  *memory.HistoryStore
}

// loadRegistry registers built-ins then discovered plugins and seals the
// registry.
func loadRegistry(s config.Settings, ctl *pause.Controller, logger *zap.Logger) (*skills.Registry, skills.LoadResult, error) {
	sc := &skills.Context{Pause: ctl, WakeWord: s.WakeWord, Logger: logger}
	reg := skills.NewRegistry(sc, skills.WithTimeout(s.SkillTimeout), skills.WithLogger(logger))
	for _, f := range skills.Builtins() {
		if _, err := reg.Use(f); err != nil {
			return nil, skills.LoadResult{}, fmt.Errorf("register built-in skill: %w", err)
		}
	}
	res, err := skills.NewLoader(afero.NewOsFs(), logger).Load(reg, s.SkillsDir)
	if err != nil {
		return nil, res, err
	}
	reg.Seal()
	return reg, res, nil
}

// newApp assembles the assistant. A backend credential that is missing or
// still a placeholder is a startup error.
func newApp(ctx context.Context, s config.Settings, logger *zap.Logger) (*app, error) {
	cfg := s.Fallback
	if name := fallback.CredentialName(cfg.Backend); name != "" {
		key, err := vault.GetVault().ResolveAPIKey(name)
		if err != nil {
			return nil, err
		}
		cfg.APIKey = key
		logger.Info("Resolved credential", zap.String("name", name), zap.String("value", vault.Mask(key)))
	}

	ctl := pause.NewController()
	reg, res, err := loadRegistry(s, ctl, logger)
	if err != nil {
		return nil, err
	}
	for _, f := range res.Failures {
		logger.Warn("Plugin failed to load", zap.String("path", f.Path), zap.Error(f.Err))
	}

	backend, err := fallback.New(ctx, cfg)
	if err != nil {
		return nil, err
	}

	a := &app{settings: s, logger: logger, pause: ctl, registry: reg, loaded: res}

	ecfg := engine.Config{
		Policy:   s.Policy(),
		Registry: reg,
		Fallback: backend,
		Pause:    ctl,
		Logger:   logger,
	}
	if s.HistoryEnabled {
		if j := a.openJournal(ctx); j != nil {
			ecfg.Recorder = j
		}
	}
	a.engine = engine.New(ecfg)

	logger.Info("Flora assembled",
		zap.Strings("skills", reg.Names()),
		zap.Int("load_failures", res.FailureCount()),
		zap.String("backend", cfg.Backend))
	return a, nil
}

// openJournal starts a history session. Failure only disables history.
func (a *app) openJournal(ctx context.Context) *memory.Journal {
	store, err := memory.NewHistoryStore(config.HistoryPath())
	if err != nil {
		a.logger.Warn("History disabled", zap.Error(err))
		return nil
	}
	j, err := store.StartSession(ctx, "session "+time.Now().Format(time.RFC3339))
	if err != nil {
		store.Close()
		a.logger.Warn("History disabled", zap.Error(err))
		return nil
	}
	a.history = store
	return j
}

func (a *app) newLoop(src worker.Source, sink worker.Sink, onTurn func(engine.Turn)) *worker.Loop {
	return worker.New(worker.Config{
		Source:          src,
		Sink:            sink,
		Engine:          a.engine,
		Pause:           a.pause,
		Logger:          a.logger,
		QuitWords:       a.settings.QuitWords,
		PollInterval:    a.settings.PollInterval,
		MaxPollInterval: a.settings.MaxPollInterval,
		OnTurn:          onTurn,
	})
}

// voiceIO returns the speech source and sink when both commands are set.
func (a *app) voiceIO() (worker.Source, worker.Sink, error) {
	src, err := worker.NewCommandSource(a.settings.ListenCmd)
	if err != nil {
		return nil, nil, fmt.Errorf("voice.listen_cmd: %w", err)
	}
	sink, err := worker.NewCommandSink(a.settings.SpeakCmd)
	if err != nil {
		return nil, nil, fmt.Errorf("voice.speak_cmd: %w", err)
	}
	return src, sink, nil
}

func (a *app) Close() error {
	if a.history != nil {
		return a.history.Close()
	}
	return nil
}
