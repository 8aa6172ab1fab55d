package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nathfavour/flora/pkg/config"
	"github.com/nathfavour/flora/pkg/daemon"
	"github.com/nathfavour/flora/pkg/worker"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the assistant headless on the terminal or microphone",
	Long: `Runs the listen, dispatch, respond loop without the control surface.

Text mode reads one utterance per line from stdin and prints responses to
stdout. Voice mode uses voice.listen_cmd and voice.speak_cmd. While running,
"flora pause" and "flora resume" (or SIGUSR1/SIGUSR2) control listening.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		voice, _ := cmd.Flags().GetBool("voice")
		if text, _ := cmd.Flags().GetBool("text"); text && voice {
			return fmt.Errorf("--text and --voice are mutually exclusive")
		}
		s := settings()

		logger, err := newLogger(s.LogLevel, s.LogFile, false)
		if err != nil {
			return err
		}
		defer logger.Sync()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, s, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		pid := daemon.PIDFile(config.PIDPath())
		if err := pid.Write(); err != nil {
			return err
		}
		defer pid.Remove()

		var (
			src  worker.Source
			sink worker.Sink
		)
		if voice {
			if src, sink, err = a.voiceIO(); err != nil {
				return err
			}
		} else {
			src = worker.NewLineSource(os.Stdin, os.Stdout, "YOU: ")
			sink = worker.NewWriterSink(os.Stdout, "FLORA: ")
		}

		relayCtx, stopRelay := context.WithCancel(ctx)
		relayDone := daemon.Relay(relayCtx, a.pause, logger)
		defer func() {
			stopRelay()
			<-relayDone
		}()

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return a.newLoop(src, sink, nil).Run(gctx)
		})
		err = g.Wait()
		if errors.Is(err, context.Canceled) {
			logger.Info("Interrupted")
			return nil
		}
		if err != nil {
			logger.Error("Worker stopped", zap.Error(err))
		}
		return err
	},
}

func init() {
	runCmd.Flags().Bool("text", false, "read utterances from stdin and print responses (default)")
	runCmd.Flags().Bool("voice", false, "listen and speak through the configured voice commands")
	rootCmd.AddCommand(runCmd)
}
