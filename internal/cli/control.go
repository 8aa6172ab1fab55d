package cli

import (
	"fmt"

	"github.com/nathfavour/flora/pkg/config"
	"github.com/nathfavour/flora/pkg/daemon"
	"github.com/spf13/cobra"
)

var pauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Pause the running headless assistant",
	RunE: func(cmd *cobra.Command, args []string) error {
		return requestPause(true)
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume the running headless assistant",
	RunE: func(cmd *cobra.Command, args []string) error {
		return requestPause(false)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report whether a headless assistant is running",
	Run: func(cmd *cobra.Command, args []string) {
		if pid, ok := daemon.PIDFile(config.PIDPath()).Running(); ok {
			fmt.Printf("Flora is running (pid %d).\n", pid)
			return
		}
		fmt.Println("Flora is not running.")
	},
}

func requestPause(paused bool) error {
	if err := daemon.PIDFile(config.PIDPath()).RequestPause(paused); err != nil {
		return err
	}
	if paused {
		fmt.Println("Pause requested.")
	} else {
		fmt.Println("Resume requested.")
	}
	return nil
}

func init() {
	rootCmd.AddCommand(pauseCmd, resumeCmd, statusCmd)
}
