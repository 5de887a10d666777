package realtime

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

// UserResolver 从请求上下文取出已认证用户的 ID
type UserResolver func(c *gin.Context) (string, bool)

// StreamHandler 实时推送的 SSE 传输端点
type StreamHandler struct {
	hub         *Hub
	resolveUser UserResolver
}

// NewStreamHandler 创建 SSE 处理器
func NewStreamHandler(hub *Hub, resolveUser UserResolver) *StreamHandler {
	return &StreamHandler{hub: hub, resolveUser: resolveUser}
}

// RegisterRoutes 注册路由
func (h *StreamHandler) RegisterRoutes(router gin.IRouter) {
	router.GET("/api/v1/stream", h.Stream)
}

// Stream 订阅当前用户的实时消息流
func (h *StreamHandler) Stream(c *gin.Context) {
	userID, ok := h.resolveUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	sub := h.hub.Subscribe(userID)
	defer sub.Close()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case payload, open := <-sub.C:
			if !open {
				return false
			}
			c.SSEvent("message", string(payload))
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
