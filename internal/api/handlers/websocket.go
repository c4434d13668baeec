package handlers

import (
	"net/http"

	"github.com/TKim713/bee-smart-backend-sub000/internal/websocket"
	"github.com/gin-gonic/gin"
)

// WebSocketHandler WebSocket 연결 처리
type WebSocketHandler struct {
	hub     *websocket.Hub
	gateway *websocket.Gateway
}

// NewWebSocketHandler WebSocketHandler 생성
func NewWebSocketHandler(hub *websocket.Hub, gateway *websocket.Gateway) *WebSocketHandler {
	return &WebSocketHandler{
		hub:     hub,
		gateway: gateway,
	}
}

// HandleWebSocket WebSocket 연결 엔드포인트
// battleId 쿼리 파라미터가 있으면 해당 배틀 룸에 붙는다 (참가자/관전자)
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	// 인증 미들웨어에서 설정한 userId 가져오기
	userID, exists := c.Get("userId")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	battleID := c.Query("battleId")

	// WebSocket 연결 업그레이드
	websocket.ServeWs(h.hub, h.gateway, c.Writer, c.Request, userID.(string), battleID)
}
