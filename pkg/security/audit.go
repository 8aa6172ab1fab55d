// Package security inspects the local installation for settings that would
// let someone else inject plugins or read credentials.
package security

import (
	"fmt"
	"os"
	"os/user"
	"runtime"
	"sort"
)

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarn     Severity = "warn"
	SeverityCritical Severity = "critical"
)

type Finding struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
	Remediation string   `json:"remediation,omitempty"`
}

type AuditReport struct {
	Findings []Finding `json:"findings"`
}

// Worst returns the most severe finding level, or "" for a clean report.
func (r *AuditReport) Worst() Severity {
	rank := map[Severity]int{SeverityInfo: 1, SeverityWarn: 2, SeverityCritical: 3}
	var worst Severity
	for _, f := range r.Findings {
		if rank[f.Severity] > rank[worst] {
			worst = f.Severity
		}
	}
	return worst
}

// Target is a path whose permissions matter.
type Target struct {
	Path string
	// Code marks directories whose contents are executed, such as the
	// plugin directory; write access there is arbitrary code execution.
	Code bool
	// Secret marks files that must only be readable by the owner.
	Secret bool
}

type Options struct {
	Targets []Target
	// EnvKeys are credentials that would be better kept in the vault.
	EnvKeys []string
	Getenv  func(string) string
}

func RunAudit(opts Options) (*AuditReport, error) {
	if opts.Getenv == nil {
		opts.Getenv = os.Getenv
	}
	report := &AuditReport{Findings: make([]Finding, 0)}

	if err := auditFilesystem(report, opts.Targets); err != nil {
		return nil, err
	}
	auditEnvironment(report, opts)

	sort.SliceStable(report.Findings, func(i, j int) bool {
		return report.Findings[i].ID < report.Findings[j].ID
	})
	return report, nil
}

func auditFilesystem(report *AuditReport, targets []Target) error {
	for _, t := range targets {
		info, err := os.Stat(t.Path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return err
		}
		mode := info.Mode().Perm()

		switch {
		case mode&0002 != 0:
			sev := SeverityWarn
			if t.Code || t.Secret {
				sev = SeverityCritical
			}
			report.Findings = append(report.Findings, Finding{
				ID:          "fs.world_writable",
				Title:       "World-writable path",
				Description: fmt.Sprintf("%s has permissions %o", t.Path, mode),
				Severity:    sev,
				Remediation: fmt.Sprintf("chmod o-w %s", t.Path),
			})
		case mode&0020 != 0 && t.Code:
			report.Findings = append(report.Findings, Finding{
				ID:          "fs.group_writable_plugins",
				Title:       "Plugin directory is group-writable",
				Description: fmt.Sprintf("%s has permissions %o; group members can add skills", t.Path, mode),
				Severity:    SeverityWarn,
				Remediation: fmt.Sprintf("chmod g-w %s", t.Path),
			})
		}

		if t.Secret && mode&0044 != 0 {
			report.Findings = append(report.Findings, Finding{
				ID:          "fs.secret_readable",
				Title:       "Secrets file is readable by others",
				Description: fmt.Sprintf("%s has permissions %o", t.Path, mode),
				Severity:    SeverityWarn,
				Remediation: fmt.Sprintf("chmod 600 %s", t.Path),
			})
		}
	}
	return nil
}

func auditEnvironment(report *AuditReport, opts Options) {
	if runtime.GOOS == "linux" {
		if u, err := user.Current(); err == nil && u.Uid == "0" {
			report.Findings = append(report.Findings, Finding{
				ID:          "env.root",
				Title:       "Running as root",
				Description: "Plugins and manifest commands run with root privileges.",
				Severity:    SeverityWarn,
				Remediation: "Run as a non-privileged user.",
			})
		}
	}

	for _, key := range opts.EnvKeys {
		if opts.Getenv(key) != "" {
			report.Findings = append(report.Findings, Finding{
				ID:          "env.sensitive_var",
				Title:       fmt.Sprintf("Credential in environment: %s", key),
				Description: fmt.Sprintf("%s is set in the environment and visible to every child process.", key),
				Severity:    SeverityInfo,
				Remediation: fmt.Sprintf("flora vault set %s <value>", key),
			})
		}
	}
}
