package fallback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
)

const (
	DefaultGroqBaseURL  = "https://api.groq.com/openai/v1"
	DefaultGroqModel    = "llama-3.3-70b-versatile"
	DefaultSystemPrompt = "You are Flora, a concise voice assistant. " +
		"Answer in one or two short spoken sentences without markdown."
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// ChatClient calls an OpenAI-compatible chat completions endpoint (Groq by
// default). It remembers the last few exchanges so follow-up questions keep
// their context.
type ChatClient struct {
	baseURL    string
	apiKey     string
	model      string
	system     string
	maxHistory int
	httpClient *http.Client

	mu      sync.Mutex
	history []chatMessage
}

type ChatConfig struct {
	BaseURL      string
	APIKey       string
	Model        string
	SystemPrompt string
	MaxHistory   int // exchanges kept; zero means 6
	HTTPClient   *http.Client
}

func NewChatClient(cfg ChatConfig) *ChatClient {
	c := &ChatClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		system:     cfg.SystemPrompt,
		maxHistory: cfg.MaxHistory,
		httpClient: cfg.HTTPClient,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultGroqBaseURL
	}
	if c.model == "" {
		c.model = DefaultGroqModel
	}
	if c.system == "" {
		c.system = DefaultSystemPrompt
	}
	if c.maxHistory <= 0 {
		c.maxHistory = 6
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}
	return c
}

func (c *ChatClient) Complete(ctx context.Context, prompt string) (string, error) {
	c.mu.Lock()
	msgs := make([]chatMessage, 0, len(c.history)+2)
	msgs = append(msgs, chatMessage{Role: "system", Content: c.system})
	msgs = append(msgs, c.history...)
	c.mu.Unlock()
	msgs = append(msgs, chatMessage{Role: "user", Content: prompt})

	body, err := json.Marshal(chatRequest{Model: c.model, Messages: msgs})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", err
	}
	var out chatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		if out.Error != nil && out.Error.Message != "" {
			return "", fmt.Errorf("status %d: %s", resp.StatusCode, out.Error.Message)
		}
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("response has no choices")
	}
	answer := strings.TrimSpace(out.Choices[0].Message.Content)

	c.remember(prompt, answer)
	return answer, nil
}

func (c *ChatClient) remember(prompt, answer string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = append(c.history,
		chatMessage{Role: "user", Content: prompt},
		chatMessage{Role: "assistant", Content: answer})
	if n := 2 * c.maxHistory; len(c.history) > n {
		c.history = append([]chatMessage(nil), c.history[len(c.history)-n:]...)
	}
}

// Reset forgets the conversation so far.
func (c *ChatClient) Reset() {
	c.mu.Lock()
	c.history = nil
	c.mu.Unlock()
}
