package skills

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"
)

// SystemSkill reports on the host and the assistant process.
type SystemSkill struct {
	started time.Time
	run     func(ctx context.Context, name string, args ...string) ([]byte, error)
}

func NewSystemSkill() *SystemSkill {
	return &SystemSkill{
		started: time.Now(),
		run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).CombinedOutput()
		},
	}
}

func (s *SystemSkill) Name() string {
	return "system"
}

var systemMatch = ContainsAny("system status", "disk space", "disk usage")

func (s *SystemSkill) Match(utterance string) bool {
	return systemMatch(utterance)
}

func (s *SystemSkill) Execute(ctx context.Context, utterance string, sc *Context) (string, error) {
	if strings.Contains(strings.ToLower(utterance), "disk") {
		out, err := s.run(ctx, "df", "-h", "/")
		if err != nil {
			return "", fmt.Errorf("df: %w", err)
		}
		return summariseDF(string(out)), nil
	}

	host, _ := os.Hostname()
	up := time.Since(s.started).Round(time.Second)
	return fmt.Sprintf("All systems nominal on %s. Running %s on %s for %s.",
		host, runtime.Version(), runtime.GOOS, up), nil
}

// summariseDF turns the data line of `df -h /` into a sentence.
func summariseDF(out string) string {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) < 2 {
		return strings.TrimSpace(out)
	}
	f := strings.Fields(lines[len(lines)-1])
	if len(f) < 5 {
		return strings.TrimSpace(out)
	}
	return fmt.Sprintf("Disk %s: %s used of %s, %s free.", f[len(f)-1], f[2], f[1], f[3])
}
