package openrouter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Corphon/SceneSplitter/internal/llm"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) llm.Provider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	p, err := llm.GetProvider("openrouter", map[string]string{
		"api_key":  "sk-test",
		"base_url": server.URL,
	})
	require.NoError(t, err)
	return p
}

// TestCompleteText 测试请求格式和响应解析
func TestCompleteText(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var body struct {
			Model    string        `json:"model"`
			Messages []chatMessage `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, defaultModel, body.Model)
		require.Len(t, body.Messages, 2)
		assert.Equal(t, "system", body.Messages[0].Role)
		assert.Equal(t, "split this", body.Messages[1].Content)

		_, _ = w.Write([]byte(`{"model":"m","choices":[{"message":{"role":"assistant","content":"[]"},"finish_reason":"stop"}],"usage":{"prompt_tokens":3,"completion_tokens":2,"total_tokens":5}}`))
	})

	resp, err := p.CompleteText(context.Background(), llm.CompletionRequest{
		Prompt:       "split this",
		SystemPrompt: "you split scenes",
	})
	require.NoError(t, err)
	assert.Equal(t, "[]", resp.Text)
	assert.Equal(t, 5, resp.TokensUsed)
	assert.Equal(t, "m", resp.ModelName)
	assert.Equal(t, "OpenRouter", resp.ProviderName)
}

// TestCompleteTextStatusError 测试非 200 响应
func TestCompleteTextStatusError(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	})

	_, err := p.CompleteText(context.Background(), llm.CompletionRequest{Prompt: "x"})
	var statusErr *llm.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusTooManyRequests, statusErr.StatusCode)
}

// TestCompleteTextNoChoices 测试空结果
func TestCompleteTextNoChoices(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})

	_, err := p.CompleteText(context.Background(), llm.CompletionRequest{Prompt: "x"})
	assert.Error(t, err)
}

// TestInitializeRequiresKey 测试缺少密钥
func TestInitializeRequiresKey(t *testing.T) {
	_, err := llm.GetProvider("openrouter", map[string]string{})
	assert.Error(t, err)
}
