package skills

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// BrowserSkill opens well-known sites or anything that looks like a domain.
// "open browser" on its own is not a site and is left to the fallback.
type BrowserSkill struct {
	sites map[string]string
	open  func(ctx context.Context, url string) error
}

func NewBrowserSkill() *BrowserSkill {
	return &BrowserSkill{
		sites: map[string]string{
			"youtube":   "https://www.youtube.com",
			"google":    "https://www.google.com",
			"github":    "https://github.com",
			"wikipedia": "https://www.wikipedia.org",
			"gmail":     "https://mail.google.com",
			"maps":      "https://maps.google.com",
		},
		open: openURL,
	}
}

func (s *BrowserSkill) Name() string {
	return "browser"
}

func (s *BrowserSkill) Match(utterance string) bool {
	_, ok := s.target(utterance)
	return ok
}

func (s *BrowserSkill) Execute(ctx context.Context, utterance string, sc *Context) (string, error) {
	url, ok := s.target(utterance)
	if !ok {
		return "", fmt.Errorf("no site in %q", utterance)
	}
	if err := s.open(ctx, url); err != nil {
		return "", err
	}
	return fmt.Sprintf("Opening %s.", strings.TrimPrefix(strings.TrimPrefix(url, "https://"), "www.")), nil
}

func (s *BrowserSkill) target(utterance string) (string, bool) {
	words := strings.Fields(strings.ToLower(utterance))
	for i, w := range words {
		if w != "open" || i+1 >= len(words) {
			continue
		}
		site := strings.Trim(words[i+1], ".,!?")
		if url, ok := s.sites[site]; ok {
			return url, true
		}
		if strings.Contains(site, ".") && !strings.HasSuffix(site, ".") {
			if strings.HasPrefix(site, "http://") || strings.HasPrefix(site, "https://") {
				return site, true
			}
			return "https://" + site, true
		}
	}
	return "", false
}

func openURL(ctx context.Context, url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "linux":
		cmd = exec.CommandContext(ctx, "xdg-open", url)
	case "darwin":
		cmd = exec.CommandContext(ctx, "open", url)
	case "windows":
		cmd = exec.CommandContext(ctx, "rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported platform")
	}
	return cmd.Run()
}
