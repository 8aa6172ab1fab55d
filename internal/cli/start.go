package cli

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/nathfavour/flora/internal/tui"
	"github.com/nathfavour/flora/pkg/config"
	"github.com/nathfavour/flora/pkg/engine"
	"github.com/nathfavour/flora/pkg/watcher"
	"github.com/nathfavour/flora/pkg/worker"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func init() {
	startCmd.Flags().Bool("voice", false, "listen and speak through the configured voice commands")
	rootCmd.Flags().Bool("voice", false, "listen and speak through the configured voice commands")
	rootCmd.AddCommand(startCmd)
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the interactive control surface",
	RunE:  runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	voice, _ := cmd.Flags().GetBool("voice")
	s := settings()

	logger, err := newLogger(s.LogLevel, s.LogFile, true)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	a, err := newApp(ctx, s, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	var (
		src    worker.Source
		speech worker.Sink
		submit func(string) bool
	)
	if voice {
		if src, speech, err = a.voiceIO(); err != nil {
			return err
		}
	} else {
		typed := worker.NewChanSource(16)
		src, submit = typed, typed.Submit
	}

	model := tui.New(tui.Options{
		Pause:    a.pause,
		Submit:   submit,
		Skills:   a.registry.Names(),
		Failures: a.loaded.Failures,
		Voice:    voice,
		Version:  config.Version,
	})
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))

	var sink worker.Sink = worker.SinkFunc(func(_ context.Context, text string) error {
		p.Send(tui.ResponseMsg(text))
		return nil
	})
	if speech != nil {
		sink = worker.MultiSink{sink, speech}
	}
	loop := a.newLoop(src, sink, func(t engine.Turn) { p.Send(tui.TurnMsg(t)) })

	w, err := watcher.NewWatcher(func(path string) {
		logger.Info("Plugin directory changed", zap.String("path", path))
		p.Send(tui.PluginChangedMsg(path))
	}, watcher.WithLogger(logger))
	if err != nil {
		logger.Warn("Plugin watcher unavailable", zap.Error(err))
	} else {
		if err := w.Start(ctx, s.SkillsDir); err != nil {
			logger.Warn("Plugin watcher unavailable", zap.Error(err))
		}
		defer w.Close()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// The worker is abandoned, not awaited, once the surface quits: a
		// turn blocked in a skill must not hold the terminal.
		done := make(chan error, 1)
		go func() { done <- loop.Run(gctx) }()
		select {
		case <-gctx.Done():
			return nil
		case err := <-done:
			if err == nil {
				// Quit word or end of input.
				p.Quit()
				return nil
			}
			if !errors.Is(err, context.Canceled) {
				logger.Error("Worker stopped", zap.Error(err))
				p.Send(tui.WorkerDoneMsg{Err: err})
			}
			return nil
		}
	})
	g.Go(func() error {
		defer cancel()
		_, err := p.Run()
		if errors.Is(err, tea.ErrProgramKilled) {
			return nil
		}
		return err
	})
	return g.Wait()
}
