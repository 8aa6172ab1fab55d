package fallback

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// serveVibe answers each request on a fresh unix socket with reply(req).
func serveVibe(t *testing.T, reply func(vibeRequest) vibeResponse) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "vibe")
	require.NoError(t, err)
	sock := filepath.Join(dir, "v.sock")
	ln, err := net.Listen("unix", sock)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			sc := bufio.NewScanner(conn)
			if sc.Scan() {
				var req vibeRequest
				_ = json.Unmarshal(sc.Bytes(), &req)
				data, _ := json.Marshal(reply(req))
				_, _ = conn.Write(append(data, '\n'))
			}
			conn.Close()
		}
	}()
	t.Cleanup(func() {
		ln.Close()
		<-done
		os.RemoveAll(dir)
	})
	return sock
}

func TestVibeClientComplete(t *testing.T) {
	sock := serveVibe(t, func(req vibeRequest) vibeResponse {
		payload, _ := json.Marshal(map[string]string{"content": "answer to " + req.Method})
		return vibeResponse{Type: "response", ID: req.ID, Payload: payload}
	})

	c := NewVibeClient(sock)
	out, err := c.Complete(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "answer to query", out)
	assert.NoError(t, c.Ping(context.Background()))
}

func TestVibeClientErrorResponse(t *testing.T) {
	sock := serveVibe(t, func(req vibeRequest) vibeResponse {
		return vibeResponse{Type: "error", ID: req.ID, Payload: json.RawMessage(`{"message":"model unavailable"}`)}
	})

	_, err := NewVibeClient(sock).Complete(context.Background(), "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model unavailable")
}

func TestVibeClientUnreachable(t *testing.T) {
	c := NewVibeClient(filepath.Join(t.TempDir(), "missing.sock"))
	c.retryWait = time.Millisecond
	_, err := c.Complete(context.Background(), "hi")
	assert.Error(t, err)
}
