// internal/api/api_test.go
package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/Corphon/SceneSplitter/internal/app"
	"github.com/Corphon/SceneSplitter/internal/config"
	"github.com/Corphon/SceneSplitter/internal/di"
)

const testStory = "서울역 광장에 비가 내렸다. 민수는 우산도 없이 서 있었다.\n\n" +
	"지영: \"오래 기다렸어?\"\n민수: \"아니, 방금 왔어.\"\n\n" +
	"한편, 부산의 작은 카페에서는 사장님이 문을 열 준비를 하고 있었다.\n\n" +
	"다음날 아침, 두 사람은 부산행 열차에 올랐다. 창밖으로 논밭이 빠르게 지나갔다.\n\n" +
	"민수가 갑자기 달려 나가 플랫폼 끝까지 뛰었다."

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	goleak.VerifyTestMain(m)
}

// apiEnvelope 解析标准响应，Data 延迟解析
type apiEnvelope struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Error     *APIError       `json:"error"`
	Message   string          `json:"message"`
	Warnings  []string        `json:"warnings"`
	RequestID string          `json:"request_id"`
}

// newTestRouter 初始化配置与服务并返回路由
func newTestRouter(t *testing.T, rateLimit string) *Router {
	t.Helper()
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("LLM_API_KEY", "")
	t.Setenv("CONFIG_SECRET", "")
	t.Setenv("LEXICON_FILE", "")
	t.Setenv("RATE_LIMIT_PER_MINUTE", rateLimit)
	require.NoError(t, config.InitConfig(t.TempDir()))

	a, err := app.InitServices(di.NewContainer())
	require.NoError(t, err)

	router, err := SetupRouter(a.Container())
	require.NoError(t, err)
	t.Cleanup(func() {
		router.Close()
		a.Shutdown()
	})
	return router
}

func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}) (*httptest.ResponseRecorder, apiEnvelope) {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var env apiEnvelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func decodeData(t *testing.T, env apiEnvelope, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, v))
}
