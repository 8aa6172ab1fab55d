package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/nathfavour/flora/pkg/config"
	"github.com/nathfavour/flora/pkg/memory"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recently handled turns",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		session, _ := cmd.Flags().GetString("session")
		asJSON, _ := cmd.Flags().GetBool("json")

		store, err := memory.NewHistoryStore(config.HistoryPath())
		if err != nil {
			return err
		}
		defer store.Close()

		var entries []memory.Entry
		if session != "" {
			entries, err = store.SessionTurns(cmd.Context(), session)
		} else {
			entries, err = store.Recent(cmd.Context(), limit)
		}
		if err != nil {
			return err
		}

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(entries)
		}
		if len(entries) == 0 {
			fmt.Println("No history yet.")
			return nil
		}
		for _, e := range entries {
			fmt.Printf("%s  [%s/%s] %s\n", e.StartedAt.Format(time.DateTime), e.Outcome, e.Path, e.Raw)
			switch {
			case e.Error != "":
				fmt.Printf("    ! %s\n", e.Error)
			case e.Response != "":
				fmt.Printf("    > %s\n", strings.ReplaceAll(e.Response, "\n", "\n      "))
			case e.Reason != "":
				fmt.Printf("    (%s)\n", e.Reason)
			}
		}
		return nil
	},
}

var historySessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List journaled sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := memory.NewHistoryStore(config.HistoryPath())
		if err != nil {
			return err
		}
		defer store.Close()

		sessions, err := store.ListSessions(cmd.Context(), 20)
		if err != nil {
			return err
		}
		for _, s := range sessions {
			fmt.Printf("%s  %-28s %3d turns  %s\n", s.ID, s.Title, s.Turns, s.UpdatedAt.Format(time.DateTime))
		}
		return nil
	},
}

var historyRmCmd = &cobra.Command{
	Use:   "rm <session-id>",
	Short: "Delete a session and its turns",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := memory.NewHistoryStore(config.HistoryPath())
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.DeleteSession(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Session %s deleted.\n", args[0])
		return nil
	},
}

func init() {
	historyCmd.Flags().Int("limit", 20, "number of turns to show")
	historyCmd.Flags().String("session", "", "show every turn of one session")
	historyCmd.Flags().Bool("json", false, "print entries as JSON")
	historyCmd.AddCommand(historySessionsCmd, historyRmCmd)
	rootCmd.AddCommand(historyCmd)
}
