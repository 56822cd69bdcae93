// internal/api/websocket.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	apperrors "github.com/Corphon/SceneSplitter/internal/errors"
	"github.com/Corphon/SceneSplitter/internal/models"
	"github.com/Corphon/SceneSplitter/internal/services"
	"github.com/Corphon/SceneSplitter/internal/splitter"
)

const (
	wsPongWait     = 60 * time.Second
	wsPingInterval = 54 * time.Second
	wsWriteWait    = 10 * time.Second
	wsSendBuffer   = 64
)

// WebSocket 消息类型
const (
	wsTypeSplit     = "split"
	wsTypePing      = "ping"
	wsTypeConnected = "connected"
	wsTypeProgress  = "progress"
	wsTypeResult    = "result"
	wsTypeError     = "error"
	wsTypePong      = "pong"
)

var errClientClosed = errors.New("websocket client closed")

// WebSocket 升级器配置
var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// wsRequest 客户端发来的消息
type wsRequest struct {
	Type    string                   `json:"type"`
	Text    string                   `json:"text"`
	Options models.SceneSplitOptions `json:"options"`
}

// wsEvent 推送给客户端的事件
type wsEvent struct {
	Type      string      `json:"type"`
	ClientID  string      `json:"client_id,omitempty"`
	Stage     string      `json:"stage,omitempty"`
	Percent   int         `json:"percent,omitempty"`
	Message   string      `json:"message,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// WebSocketClient 表示一个 WebSocket 客户端连接
type WebSocketClient struct {
	id        string
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	busy      atomic.Bool
	lastPing  atomic.Int64
	createdAt time.Time
}

func newWebSocketClient(conn *websocket.Conn) *WebSocketClient {
	client := &WebSocketClient{
		id:        uuid.NewString(),
		conn:      conn,
		send:      make(chan []byte, wsSendBuffer),
		done:      make(chan struct{}),
		createdAt: time.Now(),
	}
	client.UpdatePing()
	return client
}

// Close 安全关闭客户端连接
func (client *WebSocketClient) Close() {
	client.closeOnce.Do(func() {
		close(client.done)
		client.conn.Close()
	})
}

// IsClosed 检查连接是否已关闭
func (client *WebSocketClient) IsClosed() bool {
	select {
	case <-client.done:
		return true
	default:
		return false
	}
}

// UpdatePing 更新最后活跃时间
func (client *WebSocketClient) UpdatePing() {
	client.lastPing.Store(time.Now().UnixNano())
}

// sendEvent 进度事件在队列满时丢弃，其他事件最多等待一个写超时
func (client *WebSocketClient) sendEvent(ev wsEvent) error {
	ev.Timestamp = time.Now()
	msg, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	if ev.Type == wsTypeProgress {
		select {
		case client.send <- msg:
		case <-client.done:
			return errClientClosed
		default:
			logger.Warn("WebSocket 消息队列已满，进度事件被丢弃", map[string]interface{}{"client_id": client.id})
		}
		return nil
	}

	select {
	case client.send <- msg:
		return nil
	case <-client.done:
		return errClientClosed
	case <-time.After(wsWriteWait):
		return errors.New("websocket send timeout")
	}
}

func (client *WebSocketClient) sendError(code, message string) {
	_ = client.sendEvent(wsEvent{
		Type:  wsTypeError,
		Error: &APIError{Code: code, Message: sanitizeErrorMessage(message)},
	})
}

// WebSocketManager 管理所有 WebSocket 连接
type WebSocketManager struct {
	clients map[string]*WebSocketClient
	closed  bool
	mutex   sync.RWMutex
}

// NewWebSocketManager 创建连接管理器
func NewWebSocketManager() *WebSocketManager {
	return &WebSocketManager{
		clients: make(map[string]*WebSocketClient),
	}
}

func (manager *WebSocketManager) register(client *WebSocketClient) error {
	manager.mutex.Lock()
	defer manager.mutex.Unlock()

	if manager.closed {
		return errClientClosed
	}
	manager.clients[client.id] = client
	return nil
}

func (manager *WebSocketManager) unregister(client *WebSocketClient) {
	manager.mutex.Lock()
	delete(manager.clients, client.id)
	manager.mutex.Unlock()
	client.Close()
}

// Count 当前连接数
func (manager *WebSocketManager) Count() int {
	manager.mutex.RLock()
	defer manager.mutex.RUnlock()
	return len(manager.clients)
}

// GetStatus 获取管理器状态
func (manager *WebSocketManager) GetStatus() map[string]interface{} {
	manager.mutex.RLock()
	defer manager.mutex.RUnlock()

	clients := make([]map[string]interface{}, 0, len(manager.clients))
	for _, client := range manager.clients {
		clients = append(clients, map[string]interface{}{
			"client_id":    client.id,
			"connected_at": client.createdAt.Format(time.RFC3339),
			"last_ping":    time.Unix(0, client.lastPing.Load()).Format(time.RFC3339),
			"busy":         client.busy.Load(),
		})
	}
	return map[string]interface{}{
		"total_connections": len(manager.clients),
		"clients":           clients,
	}
}

// Shutdown 关闭所有连接并拒绝新连接
func (manager *WebSocketManager) Shutdown() {
	manager.mutex.Lock()
	manager.closed = true
	clients := make([]*WebSocketClient, 0, len(manager.clients))
	for _, client := range manager.clients {
		clients = append(clients, client)
	}
	manager.clients = make(map[string]*WebSocketClient)
	manager.mutex.Unlock()

	for _, client := range clients {
		client.Close()
	}
}

// WebSocketHandler 通过 WebSocket 推送分割进度
type WebSocketHandler struct {
	split   *services.SplitService
	manager *WebSocketManager
}

// NewWebSocketHandler 创建 WebSocket 处理器
func NewWebSocketHandler(split *services.SplitService, manager *WebSocketManager) *WebSocketHandler {
	return &WebSocketHandler{split: split, manager: manager}
}

// SplitWebSocket 处理 /ws/split 连接，每个连接同一时间只运行一个分割任务
func (wh *WebSocketHandler) SplitWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("WebSocket 升级失败", map[string]interface{}{"err": err.Error()})
		return
	}

	client := newWebSocketClient(conn)
	if err := wh.manager.register(client); err != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(wsWriteWait))
		conn.Close()
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	var jobs sync.WaitGroup
	writerDone := make(chan struct{})

	defer func() {
		cancel()
		jobs.Wait()
		wh.manager.unregister(client)
		<-writerDone
		logger.Debug("WebSocket 连接已关闭", map[string]interface{}{"client_id": client.id})
	}()

	go func() {
		defer close(writerDone)
		wh.writeLoop(client)
	}()

	_ = client.sendEvent(wsEvent{Type: wsTypeConnected, ClientID: client.id})
	wh.readLoop(ctx, client, &jobs)
}

func (wh *WebSocketHandler) readLoop(ctx context.Context, client *WebSocketClient, jobs *sync.WaitGroup) {
	client.conn.SetReadLimit(4 << 20)
	_ = client.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	client.conn.SetPongHandler(func(string) error {
		client.UpdatePing()
		return client.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		_, data, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logger.Warn("WebSocket 读取错误", map[string]interface{}{"err": err.Error()})
			}
			return
		}
		client.UpdatePing()
		_ = client.conn.SetReadDeadline(time.Now().Add(wsPongWait))

		var req wsRequest
		if err := json.Unmarshal(data, &req); err != nil {
			client.sendError(ErrorBadRequest, "无效的消息格式")
			continue
		}

		switch req.Type {
		case wsTypePing:
			_ = client.sendEvent(wsEvent{Type: wsTypePong})
		case wsTypeSplit:
			if !client.busy.CompareAndSwap(false, true) {
				client.sendError(ErrorConflict, "已有分割任务在进行")
				continue
			}
			jobs.Add(1)
			go func() {
				defer jobs.Done()
				defer client.busy.Store(false)
				wh.runSplit(ctx, client, req)
			}()
		default:
			client.sendError(ErrorBadRequest, "未知的消息类型: "+req.Type)
		}
	}
}

func (wh *WebSocketHandler) runSplit(ctx context.Context, client *WebSocketClient, req wsRequest) {
	progress := func(stage splitter.Stage, percent int, message string) {
		_ = client.sendEvent(wsEvent{
			Type:    wsTypeProgress,
			Stage:   string(stage),
			Percent: percent,
			Message: message,
		})
	}

	result := wh.split.SplitStoryWithProgress(ctx, req.Text, req.Options, progress)
	if !result.Success {
		err := result.Err
		if err == nil {
			err = apperrors.NewPipelineError(result.Error, nil)
		}
		_, code := statusForError(err)
		_ = client.sendEvent(wsEvent{
			Type:  wsTypeError,
			Error: &APIError{Code: code, Message: sanitizeErrorMessage(result.Error)},
			Data:  result,
		})
		return
	}
	_ = client.sendEvent(wsEvent{Type: wsTypeResult, Data: result})
}

func (wh *WebSocketHandler) writeLoop(client *WebSocketClient) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-client.done:
			return

		case message := <-client.send:
			_ = client.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				client.Close()
				return
			}

		case <-ticker.C:
			_ = client.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				client.Close()
				return
			}
		}
	}
}
