package fallback

import (
	"context"
	"fmt"
	"time"
)

// Backend names accepted in configuration.
const (
	BackendGroq    = "groq"
	BackendGemini  = "gemini"
	BackendVibe    = "vibe"
	BackendOffline = "offline"
)

// Config selects and configures a backend.
type Config struct {
	Backend      string
	Model        string
	BaseURL      string
	SystemPrompt string
	Socket       string
	APIKey       string
	Timeout      time.Duration
}

// CredentialName returns the secret a backend needs, or "" when it needs
// none.
func CredentialName(backend string) string {
	switch backend {
	case BackendGroq, "":
		return "GROQ_API_KEY"
	case BackendGemini:
		return "GEMINI_API_KEY"
	}
	return ""
}

// New builds the configured backend wrapped in its timeout boundary.
func New(ctx context.Context, cfg Config) (Backend, error) {
	name := cfg.Backend
	if name == "" {
		name = BackendGroq
	}

	var b Backend
	switch name {
	case BackendGroq:
		b = NewChatClient(ChatConfig{
			BaseURL:      cfg.BaseURL,
			APIKey:       cfg.APIKey,
			Model:        cfg.Model,
			SystemPrompt: cfg.SystemPrompt,
		})
	case BackendGemini:
		g, err := NewGeminiClient(ctx, cfg.APIKey, cfg.Model, cfg.SystemPrompt)
		if err != nil {
			return nil, err
		}
		b = g
	case BackendVibe:
		b = NewVibeClient(cfg.Socket)
	case BackendOffline:
		b = NewHeuristic()
	default:
		return nil, fmt.Errorf("unknown fallback backend %q", name)
	}
	return WithTimeout(name, b, cfg.Timeout), nil
}
