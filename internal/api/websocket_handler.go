package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/wfunc/reel-slot/internal/errors"
	"github.com/wfunc/reel-slot/internal/middleware"
	ws "github.com/wfunc/reel-slot/internal/websocket"
	"go.uber.org/zap"
)

// WebSocketHandler WebSocket处理器
type WebSocketHandler struct {
	hub      *ws.Hub
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewWebSocketHandler 创建WebSocket处理器
func NewWebSocketHandler(hub *ws.Hub, logger *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// 已通过令牌认证
				return true
			},
		},
		logger: logger,
	}
}

// GameWebSocket 游戏WebSocket连接，一个连接对应令牌中的会话
func (h *WebSocketHandler) GameWebSocket(c *gin.Context) {
	sessionID, exists := middleware.GetSessionID(c)
	if !exists {
		respondError(c, errors.New(errors.ErrAuthentication))
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("WebSocket升级失败",
			zap.String("session_id", sessionID),
			zap.Error(err))
		return
	}

	client := ws.NewClient(h.hub, conn, sessionID)
	if err := h.hub.Register(client); err != nil {
		conn.Close()
		return
	}

	// 连接生命周期独立于HTTP请求
	go client.WritePump()
	go client.ReadPump(h.hub.Context())

	h.logger.Info("WebSocket连接建立",
		zap.String("client_id", client.ID),
		zap.String("session_id", sessionID),
		zap.String("ip", c.ClientIP()))
}
