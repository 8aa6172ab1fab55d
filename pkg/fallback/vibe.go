package fallback

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"
)

type vibeRequest struct {
	Type    string      `json:"type"`
	Method  string      `json:"method"`
	ID      string      `json:"id"`
	Payload interface{} `json:"payload"`
}

type vibeResponse struct {
	Type    string          `json:"type"`
	ID      string          `json:"id"`
	Payload json.RawMessage `json:"payload"`
}

type queryPayload struct {
	Content string `json:"content"`
	Intent  string `json:"intent,omitempty"`
}

// VibeClient talks to a local vibeauracle daemon over its unix socket using
// newline-delimited JSON requests.
type VibeClient struct {
	socketPath string
	retries    int
	retryWait  time.Duration
}

// DefaultVibeSocket is the daemon's socket under the user's home.
func DefaultVibeSocket() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".vibeauracle", "vibeaura.sock")
}

func NewVibeClient(socketPath string) *VibeClient {
	if socketPath == "" {
		socketPath = DefaultVibeSocket()
	}
	return &VibeClient{
		socketPath: socketPath,
		retries:    3,
		retryWait:  500 * time.Millisecond,
	}
}

func (c *VibeClient) dial(ctx context.Context) (net.Conn, error) {
	var d net.Dialer
	var conn net.Conn
	var err error
	for i := 0; i < c.retries; i++ {
		conn, err = d.DialContext(ctx, "unix", c.socketPath)
		if err == nil {
			return conn, nil
		}
		if i < c.retries-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.retryWait):
			}
		}
	}
	return nil, fmt.Errorf("failed to connect to vibeauracle UDS after retries: %w", err)
}

func (c *VibeClient) call(ctx context.Context, method string, payload interface{}) (json.RawMessage, error) {
	conn, err := c.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
	}
	// Unblock the read below if ctx is cancelled without a deadline.
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	defer stop()

	reqID := fmt.Sprintf("flora-%d", time.Now().UnixNano())
	data, err := json.Marshal(vibeRequest{
		Type:    "request",
		Method:  method,
		ID:      reqID,
		Payload: payload,
	})
	if err != nil {
		return nil, err
	}
	if _, err := conn.Write(append(data, '\n')); err != nil {
		return nil, err
	}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	if scanner.Scan() {
		var resp vibeResponse
		if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
			return nil, fmt.Errorf("failed to unmarshal response: %w", err)
		}
		if resp.ID != reqID {
			return nil, fmt.Errorf("response ID mismatch: expected %s, got %s", reqID, resp.ID)
		}
		if resp.Type == "error" {
			var errPayload struct {
				Message string `json:"message"`
			}
			if err := json.Unmarshal(resp.Payload, &errPayload); err == nil && errPayload.Message != "" {
				return nil, fmt.Errorf("vibeauracle error: %s", errPayload.Message)
			}
			return nil, fmt.Errorf("vibeauracle error: %s", string(resp.Payload))
		}
		return resp.Payload, nil
	}
	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	return nil, fmt.Errorf("no response from vibeauracle")
}

// Complete sends the prompt as an "ask" query.
func (c *VibeClient) Complete(ctx context.Context, prompt string) (string, error) {
	raw, err := c.call(ctx, "query", queryPayload{Content: prompt, Intent: "ask"})
	if err != nil {
		return "", err
	}

	var result struct {
		Content string `json:"content"`
	}
	if err := json.Unmarshal(raw, &result); err == nil && result.Content != "" {
		return result.Content, nil
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return str, nil
	}
	return string(raw), nil
}

func (c *VibeClient) Ping(ctx context.Context) error {
	_, err := c.call(ctx, "ping", map[string]interface{}{})
	return err
}
