package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var askCmd = &cobra.Command{
	Use:   "ask <utterance>",
	Short: "Run a single utterance through the assistant and print the reply",
	Long: `Routes one utterance exactly like the running assistant would: it must
pass the wake word or keyword filter, then a matching skill or the fallback
backend answers.

Example:
  flora ask "flora what time is it"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s := settings()
		logger, err := newLogger(s.LogLevel, s.LogFile, true)
		if err != nil {
			return err
		}
		defer logger.Sync()

		a, err := newApp(cmd.Context(), s, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		reply, ok := a.engine.RunConversation(cmd.Context(), strings.Join(args, " "))
		if !ok {
			fmt.Println("(no reply: the utterance was not addressed to Flora)")
			return nil
		}
		fmt.Println(reply)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
}
