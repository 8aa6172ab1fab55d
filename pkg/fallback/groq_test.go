package fallback

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatClientComplete(t *testing.T) {
	var got []chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		got = append(got, req)

		last := req.Messages[len(req.Messages)-1].Content
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": " re: " + last + " "}},
			},
		})
	}))
	defer srv.Close()

	c := NewChatClient(ChatConfig{BaseURL: srv.URL + "/", APIKey: "test-key", MaxHistory: 1})

	out, err := c.Complete(context.Background(), "open browser")
	require.NoError(t, err)
	assert.Equal(t, "re: open browser", out)

	_, err = c.Complete(context.Background(), "and then")
	require.NoError(t, err)
	_, err = c.Complete(context.Background(), "third")
	require.NoError(t, err)

	require.Len(t, got, 3)
	assert.Equal(t, DefaultGroqModel, got[0].Model)
	assert.Equal(t, "system", got[0].Messages[0].Role)
	assert.Len(t, got[0].Messages, 2)
	// system + one remembered exchange + new prompt
	require.Len(t, got[2].Messages, 4)
	assert.Equal(t, "and then", got[2].Messages[1].Content)
	assert.Equal(t, "re: and then", got[2].Messages[2].Content)

	c.Reset()
	_, err = c.Complete(context.Background(), "fresh")
	require.NoError(t, err)
	assert.Len(t, got[3].Messages, 2)
}

func TestChatClientErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid API Key"}}`))
	}))
	defer srv.Close()

	c := NewChatClient(ChatConfig{BaseURL: srv.URL, APIKey: "bad"})
	_, err := c.Complete(context.Background(), "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid API Key")
	assert.Contains(t, err.Error(), "401")
}

func TestChatClientNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	_, err := NewChatClient(ChatConfig{BaseURL: srv.URL}).Complete(context.Background(), "hi")
	assert.Error(t, err)
}
