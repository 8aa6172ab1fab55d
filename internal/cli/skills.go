package cli

import (
	"fmt"

	"github.com/nathfavour/flora/pkg/pause"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var skillsCmd = &cobra.Command{
	Use:   "skills",
	Short: "List built-in and plugin skills, and plugins that failed to load",
	RunE: func(cmd *cobra.Command, args []string) error {
		s := settings()
		reg, res, err := loadRegistry(s, pause.NewController(), zap.NewNop())
		if err != nil {
			return err
		}

		fmt.Printf("Plugin directory: %s\n\n", s.SkillsDir)
		fmt.Println("Skills (matched in this order):")
		for i, name := range reg.Names() {
			fmt.Printf("  %2d. %s\n", i+1, name)
		}
		if res.FailureCount() > 0 {
			fmt.Printf("\n%d plugin(s) failed to load:\n", res.FailureCount())
			for _, f := range res.Failures {
				fmt.Printf("  - %s: %v\n", f.Path, f.Err)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(skillsCmd)
}
