// internal/api/websocket_test.go
package api

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Corphon/SceneSplitter/internal/models"
)

func dialSplitSocket(t *testing.T, router *Router) *websocket.Conn {
	t.Helper()
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/split"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	var hello wsEvent
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	require.NoError(t, conn.ReadJSON(&hello))
	assert.Equal(t, wsTypeConnected, hello.Type)
	assert.NotEmpty(t, hello.ClientID)
	return conn
}

// readUntil 读取事件直到出现指定类型
func readUntil(t *testing.T, conn *websocket.Conn, eventType string) ([]wsEvent, wsEvent) {
	t.Helper()
	var seen []wsEvent
	for {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		var ev wsEvent
		require.NoError(t, conn.ReadJSON(&ev))
		if ev.Type == eventType {
			return seen, ev
		}
		seen = append(seen, ev)
	}
}

// TestWebSocketSplitProgress 测试通过 WebSocket 推送分割进度与结果
func TestWebSocketSplitProgress(t *testing.T) {
	router := newTestRouter(t, "0")
	conn := dialSplitSocket(t, router)

	require.NoError(t, conn.WriteJSON(wsRequest{Type: wsTypeSplit, Text: testStory, Options: noAI}))
	progress, result := readUntil(t, conn, wsTypeResult)

	stages := make([]string, 0, len(progress))
	lastPercent := 0
	for _, ev := range progress {
		require.Equal(t, wsTypeProgress, ev.Type)
		stages = append(stages, ev.Stage)
		assert.GreaterOrEqual(t, ev.Percent, lastPercent)
		lastPercent = ev.Percent
	}
	assert.Contains(t, stages, "analyzed")
	assert.Contains(t, stages, "completed")

	data, ok := result.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, true, data["success"])
	assert.NotEmpty(t, data["scenes"])
}

// TestWebSocketSplitInvalidOptions 测试分割失败时推送错误事件
func TestWebSocketSplitInvalidOptions(t *testing.T) {
	router := newTestRouter(t, "0")
	conn := dialSplitSocket(t, router)

	require.NoError(t, conn.WriteJSON(wsRequest{
		Type: wsTypeSplit,
		Text: testStory,
		Options: models.SceneSplitOptions{
			UseAI: models.Bool(false), MinSceneDuration: 100, MaxSceneDuration: 10,
		},
	}))
	_, failed := readUntil(t, conn, wsTypeError)
	require.NotNil(t, failed.Error)
	assert.Equal(t, ErrorInvalidSplitOptions, failed.Error.Code)
}

// TestWebSocketPingAndUnknown 测试 ping 与未知消息
func TestWebSocketPingAndUnknown(t *testing.T) {
	router := newTestRouter(t, "0")
	conn := dialSplitSocket(t, router)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": wsTypePing}))
	_, pong := readUntil(t, conn, wsTypePong)
	assert.Equal(t, wsTypePong, pong.Type)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "dance"}))
	_, unknown := readUntil(t, conn, wsTypeError)
	assert.Equal(t, ErrorBadRequest, unknown.Error.Code)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	_, invalid := readUntil(t, conn, wsTypeError)
	assert.Equal(t, ErrorBadRequest, invalid.Error.Code)

	assert.Eventually(t, func() bool {
		return router.WebSocketManager().Count() == 1
	}, 2*time.Second, 10*time.Millisecond)
}

// TestWebSocketManagerShutdown 测试关闭管理器后断开连接并拒绝新连接
func TestWebSocketManagerShutdown(t *testing.T) {
	router := newTestRouter(t, "0")
	conn := dialSplitSocket(t, router)

	router.WebSocketManager().Shutdown()
	assert.Equal(t, 0, router.WebSocketManager().Count())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}
