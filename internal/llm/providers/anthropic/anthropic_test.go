package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Corphon/SceneSplitter/internal/llm"
)

// TestCompleteText 测试请求头、默认 max_tokens 与多段文本拼接
func TestCompleteText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "sk-ant", r.Header.Get("X-Api-Key"))
		assert.Equal(t, defaultAPIVersion, r.Header.Get("Anthropic-Version"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, float64(defaultMaxTokens), body["max_tokens"])
		assert.Equal(t, "system prompt", body["system"])

		_, _ = w.Write([]byte(`{"model":"claude","stop_reason":"end_turn","content":[{"type":"text","text":"[{"},{"type":"text","text":"}]"}],"usage":{"input_tokens":7,"output_tokens":3}}`))
	}))
	defer server.Close()

	p, err := llm.GetProvider("anthropic", map[string]string{"api_key": "sk-ant", "base_url": server.URL + "/"})
	require.NoError(t, err)

	resp, err := p.CompleteText(context.Background(), llm.CompletionRequest{Prompt: "hi", SystemPrompt: "system prompt"})
	require.NoError(t, err)
	assert.Equal(t, "[{}]", resp.Text)
	assert.Equal(t, 10, resp.TokensUsed)
	assert.Equal(t, "end_turn", resp.FinishReason)
}

// TestCompleteTextEmptyContent 测试无文本内容时报错
func TestCompleteTextEmptyContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"content":[]}`))
	}))
	defer server.Close()

	p, err := llm.GetProvider("anthropic", map[string]string{"api_key": "k", "base_url": server.URL})
	require.NoError(t, err)

	_, err = p.CompleteText(context.Background(), llm.CompletionRequest{Prompt: "hi"})
	assert.Error(t, err)
}
