// internal/services/services_test.go
package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"go.uber.org/goleak"

	"github.com/Corphon/SceneSplitter/internal/llm"
	"github.com/Corphon/SceneSplitter/internal/utils"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const stubProviderName = "stub"

// stubReply 测试中替换的提供者响应
var (
	stubMu    sync.Mutex
	stubReply = func(req llm.CompletionRequest) (string, error) {
		return "", errors.New("stub reply not set")
	}
	stubCalls atomic.Int64
)

type stubProvider struct{}

func (stubProvider) Initialize(cfg map[string]string) error {
	if cfg["api_key"] == "" {
		return errors.New("missing api key")
	}
	return nil
}

func (stubProvider) GetName() string             { return "Stub" }
func (stubProvider) GetSupportedModels() []string { return []string{"stub-model"} }

func (stubProvider) CompleteText(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	stubCalls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	stubMu.Lock()
	reply := stubReply
	stubMu.Unlock()

	text, err := reply(req)
	if err != nil {
		return nil, err
	}
	return &llm.CompletionResponse{Text: text, TokensUsed: 42, ModelName: req.Model, ProviderName: "Stub"}, nil
}

func init() {
	llm.Register(stubProviderName, func() llm.Provider { return stubProvider{} })
}

// setStubReply 设置桩提供者的响应并重置调用计数
func setStubReply(t *testing.T, reply func(req llm.CompletionRequest) (string, error)) {
	t.Helper()
	stubMu.Lock()
	prev := stubReply
	stubReply = reply
	stubMu.Unlock()
	stubCalls.Store(0)

	t.Cleanup(func() {
		stubMu.Lock()
		stubReply = prev
		stubMu.Unlock()
	})
}

func newTestMetrics() *utils.SplitMetrics {
	return utils.NewSplitMetrics(utils.NewMetricsCollector())
}

// readyLLMService 返回已接入桩提供者的 LLM 服务
func readyLLMService(t *testing.T) *LLMService {
	t.Helper()
	svc := NewLLMService(newTestMetrics())
	if err := svc.UpdateProvider(stubProviderName, map[string]string{"api_key": "test-key"}); err != nil {
		t.Fatalf("UpdateProvider failed: %v", err)
	}
	return svc
}

const testStory = `장소: 서울역 광장

민수: 여기서 만나기로 했잖아.
지영: 조금 늦었어. 미안해.

민수는 가방을 들고 역 안으로 달려간다. 사람들이 그를 쳐다본다.

다음 날 아침, 두 사람은 부산행 열차에 앉아 있다.

창밖으로 바다가 보이기 시작한다. 지영은 조용히 창문에 기대어 잠이 든다.`
