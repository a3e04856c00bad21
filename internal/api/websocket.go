// internal/api/websocket.go
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Corphon/TaleWeaver/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// WebSocket 升级器配置
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// 本地应用，不做来源限制
		return true
	},
}

const (
	wsWriteTimeout = 10 * time.Second
	wsPongTimeout  = 60 * time.Second
	wsPingInterval = 30 * time.Second
)

// wsClient 表示一个游玩会话的 WebSocket 连接
type wsClient struct {
	conn      *websocket.Conn
	sessionID string
	send      chan []byte
	closed    int32
}

// wsRegistry 管理所有会话连接
type wsRegistry struct {
	mu      sync.RWMutex
	clients map[string]map[*wsClient]bool // sessionID -> clients
}

var sessionStreams = &wsRegistry{
	clients: make(map[string]map[*wsClient]bool),
}

// wsInput 客户端发来的输入消息
type wsInput struct {
	Input string `json:"input"`
}

func (client *wsClient) close() {
	if atomic.CompareAndSwapInt32(&client.closed, 0, 1) {
		client.conn.Close()
	}
}

func (client *wsClient) isClosed() bool {
	return atomic.LoadInt32(&client.closed) == 1
}

func (r *wsRegistry) add(client *wsClient) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.clients[client.sessionID] == nil {
		r.clients[client.sessionID] = make(map[*wsClient]bool)
	}
	r.clients[client.sessionID][client] = true
}

func (r *wsRegistry) remove(client *wsClient) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if peers, ok := r.clients[client.sessionID]; ok {
		delete(peers, client)
		if len(peers) == 0 {
			delete(r.clients, client.sessionID)
		}
	}
}

// Broadcast 向同一会话的所有连接推送消息
func (r *wsRegistry) Broadcast(sessionID string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		utils.GetLogger().Warnf("序列化推送消息失败: %v", err)
		return
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for client := range r.clients[sessionID] {
		if client.isClosed() {
			continue
		}
		select {
		case client.send <- data:
		default:
			// 发送缓冲满，断开慢连接
			client.close()
		}
	}
}

// Count 统计活动连接数
func (r *wsRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	total := 0
	for _, peers := range r.clients {
		total += len(peers)
	}
	return total
}

// SessionWebSocket 建立游玩会话的实时流：
// 客户端发送 {"input": "..."} 文本帧，收到的每帧是一个回合结果。
func (h *Handler) SessionWebSocket(c *gin.Context) {
	sessionID := c.Param("id")
	if _, err := h.Sessions.GetSession(sessionID); err != nil {
		h.response.AppError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.GetLogger().Warnf("WebSocket 升级失败: %v", err)
		return
	}

	client := &wsClient{
		conn:      conn,
		sessionID: sessionID,
		send:      make(chan []byte, 16),
	}
	sessionStreams.add(client)

	go client.writeLoop()
	client.readLoop(h)
}

// readLoop 读取玩家输入并推进会话状态机
func (client *wsClient) readLoop(h *Handler) {
	defer func() {
		sessionStreams.remove(client)
		client.close()
	}()

	client.conn.SetReadLimit(4096)
	client.conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
		return nil
	})

	for {
		_, data, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				utils.GetLogger().Warnf("WebSocket 连接异常关闭: %v", err)
			}
			return
		}

		var input wsInput
		if err := json.Unmarshal(data, &input); err != nil {
			sessionStreams.Broadcast(client.sessionID, gin.H{
				"error": "消息格式无效",
			})
			continue
		}

		result, err := h.Sessions.HandleInput(context.Background(), client.sessionID, input.Input)
		if err != nil {
			sessionStreams.Broadcast(client.sessionID, gin.H{
				"error": err.Error(),
			})
			continue
		}

		sessionStreams.Broadcast(client.sessionID, result)
	}
}

// writeLoop 序列化所有出站写入并维持心跳
func (client *wsClient) writeLoop() {
	ticker := time.NewTicker(wsPingInterval)
	defer func() {
		ticker.Stop()
		client.close()
	}()

	for {
		select {
		case data, ok := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if !ok {
				client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// GetWebSocketStatus 返回连接统计（调试用）
func (h *Handler) GetWebSocketStatus(c *gin.Context) {
	h.response.Success(c, gin.H{
		"connections": sessionStreams.Count(),
	})
}
