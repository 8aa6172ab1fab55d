package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/nathfavour/flora/pkg/config"
	"github.com/nathfavour/flora/pkg/fallback"
	"github.com/nathfavour/flora/pkg/security"
	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Audit data directory permissions and credential hygiene",
	RunE: func(cmd *cobra.Command, args []string) error {
		s := settings()
		report, err := security.RunAudit(security.Options{
			Targets: []security.Target{
				{Path: config.DataDir()},
				{Path: s.SkillsDir, Code: true},
				{Path: config.SecretsPath(), Secret: true},
				{Path: config.HistoryPath(), Secret: true},
			},
			EnvKeys: []string{
				fallback.CredentialName(fallback.BackendGroq),
				fallback.CredentialName(fallback.BackendGemini),
			},
		})
		if err != nil {
			return err
		}

		if s.Fallback.Backend == fallback.BackendVibe {
			ctx, cancel := context.WithTimeout(cmd.Context(), 3*time.Second)
			err := fallback.NewVibeClient(s.Fallback.Socket).Ping(ctx)
			cancel()
			if err != nil {
				report.Findings = append(report.Findings, security.Finding{
					ID:          "backend.unreachable",
					Title:       "Vibe backend is unreachable",
					Description: err.Error(),
					Severity:    security.SeverityWarn,
					Remediation: "start the vibe daemon or set fallback.backend",
				})
			}
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}
		if len(report.Findings) == 0 {
			fmt.Println("No issues found.")
			return nil
		}
		for _, f := range report.Findings {
			fmt.Printf("[%s] %s\n    %s\n", f.Severity, f.Title, f.Description)
			if f.Remediation != "" {
				fmt.Printf("    fix: %s\n", f.Remediation)
			}
		}
		if report.Worst() == security.SeverityCritical {
			return fmt.Errorf("critical issues found")
		}
		return nil
	},
}

func init() {
	doctorCmd.Flags().Bool("json", false, "print the report as JSON")
	rootCmd.AddCommand(doctorCmd)
}
