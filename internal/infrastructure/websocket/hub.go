// Package websocket 向桌面 UI 推送文档状态变化
// 推送只是提示，可靠路径仍然是客户端的自适应轮询
package websocket

import (
	"encoding/json"
	"sync"
)

// Hub WebSocket 连接管理中心
type Hub struct {
	// 按案件 ID 分组的连接
	cases map[string]map[*Connection]bool
	// 注册连接
	register chan *Connection
	// 注销连接
	unregister chan *Connection
	// 广播消息
	broadcast chan *Message
	mu        sync.RWMutex
}

// Connection WebSocket 连接
type Connection struct {
	CaseID string
	Send   chan []byte
}

// Message 消息
type Message struct {
	CaseID string
	Data   []byte
}

// StatusEvent 文档状态变化事件
type StatusEvent struct {
	Type       string `json:"type"`
	CaseID     string `json:"case_id"`
	DocumentID string `json:"document_id"`
	Status     string `json:"status"`
}

// NewHub 创建 Hub
func NewHub() *Hub {
	return &Hub{
		cases:      make(map[string]map[*Connection]bool),
		register:   make(chan *Connection),
		unregister: make(chan *Connection),
		broadcast:  make(chan *Message),
	}
}

// Run 运行 Hub（需要在 goroutine 中运行）
func (h *Hub) Run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			if h.cases[conn.CaseID] == nil {
				h.cases[conn.CaseID] = make(map[*Connection]bool)
			}
			h.cases[conn.CaseID][conn] = true
			h.mu.Unlock()

		case conn := <-h.unregister:
			h.mu.Lock()
			if conns, ok := h.cases[conn.CaseID]; ok {
				if _, ok := conns[conn]; ok {
					delete(conns, conn)
					close(conn.Send)
					if len(conns) == 0 {
						delete(h.cases, conn.CaseID)
					}
				}
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.Lock()
			if conns, ok := h.cases[msg.CaseID]; ok {
				for conn := range conns {
					select {
					case conn.Send <- msg.Data:
					default:
						// 发送缓冲已满的连接视为死连接
						close(conn.Send)
						delete(conns, conn)
					}
				}
			}
			h.mu.Unlock()
		}
	}
}

// Start 启动 Hub（启动后台 goroutine）
func (h *Hub) Start() {
	go h.Run()
}

// Register 注册连接
func (h *Hub) Register(conn *Connection) {
	h.register <- conn
}

// Unregister 注销连接
func (h *Hub) Unregister(conn *Connection) {
	h.unregister <- conn
}

// BroadcastToCase 向关注指定案件的连接广播消息
func (h *Hub) BroadcastToCase(caseID string, data interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}
	h.broadcast <- &Message{
		CaseID: caseID,
		Data:   jsonData,
	}
	return nil
}

// NotifyStatusChange 推送一条文档状态变化事件
// 没有任何连接关注该案件时，消息被丢弃
func (h *Hub) NotifyStatusChange(caseID, documentID, status string) {
	_ = h.BroadcastToCase(caseID, &StatusEvent{
		Type:       "document_status",
		CaseID:     caseID,
		DocumentID: documentID,
		Status:     status,
	})
}
