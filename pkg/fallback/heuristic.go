package fallback

import (
	"context"
	"strings"
)

// Heuristic gives canned rule-based answers. It backs the offline mode and
// never fails.
type Heuristic struct{}

func NewHeuristic() *Heuristic {
	return &Heuristic{}
}

func (h *Heuristic) Complete(_ context.Context, prompt string) (string, error) {
	return h.Synthesize(prompt), nil
}

func (h *Heuristic) Synthesize(prompt string) string {
	prompt = strings.ToLower(prompt)

	switch {
	case strings.Contains(prompt, "who are you"):
		return "I am Flora, your assistant. My language model is offline, so I can only handle basic requests."
	case strings.Contains(prompt, "hello") || strings.HasPrefix(prompt, "hi"):
		return "Hello! I'm running in offline mode, but I'm here to help with basic tasks."
	case strings.Contains(prompt, "thank"):
		return "You're welcome."
	case strings.Contains(prompt, "status"):
		return "Language model offline. Local skills active."
	case strings.Contains(prompt, "help"):
		return "Try asking for the time, the date, system status, or to open a site."
	}
	return "I heard you, but my language model is offline right now. I can only run local skills."
}
