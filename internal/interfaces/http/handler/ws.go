package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	gorilla "github.com/gorilla/websocket"

	"github.com/CaseMark/discovery-desktop/internal/domain/cases"
	"github.com/CaseMark/discovery-desktop/internal/infrastructure/log"
	"github.com/CaseMark/discovery-desktop/internal/infrastructure/websocket"
	"github.com/CaseMark/discovery-desktop/internal/interfaces/http/response"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPingPeriod = 30 * time.Second
	wsSendBuffer = 16
)

// 本地桌面服务，不做跨域限制
var upgrader = gorilla.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// WSHandler 文档状态推送的 WebSocket 处理器
type WSHandler struct {
	hub      *websocket.Hub
	caseRepo cases.Repository
	logger   *slog.Logger
}

// NewWSHandler 创建 WebSocket 处理器
func NewWSHandler(hub *websocket.Hub, caseRepo cases.Repository) *WSHandler {
	return &WSHandler{
		hub:      hub,
		caseRepo: caseRepo,
		logger:   log.NewModuleLogger("http", "ws"),
	}
}

// Subscribe 订阅案件的文档状态变化
func (h *WSHandler) Subscribe(c *gin.Context) {
	caseID := c.Param("id")
	if _, err := h.caseRepo.Get(caseID); err != nil {
		response.FromDomainError(c, err)
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket 升级失败", "case_id", caseID, "error", err)
		return
	}

	conn := &websocket.Connection{
		CaseID: caseID,
		Send:   make(chan []byte, wsSendBuffer),
	}
	h.hub.Register(conn)

	go h.writePump(ws, conn)
	go h.readPump(ws, conn)
}

// writePump 把 Hub 广播的事件写到客户端，附带 ping 保活
func (h *WSHandler) writePump(ws *gorilla.Conn, conn *websocket.Connection) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		ws.Close()
	}()

	for {
		select {
		case data, ok := <-conn.Send:
			ws.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				ws.WriteMessage(gorilla.CloseMessage, []byte{})
				return
			}
			if err := ws.WriteMessage(gorilla.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			ws.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := ws.WriteMessage(gorilla.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump 只消费客户端关闭/错误，断开时从 Hub 注销
func (h *WSHandler) readPump(ws *gorilla.Conn, conn *websocket.Connection) {
	defer func() {
		h.hub.Unregister(conn)
		ws.Close()
	}()

	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			return
		}
	}
}
