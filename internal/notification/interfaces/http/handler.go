package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/wyfcoding/supervision/internal/notification/application"
	"github.com/wyfcoding/supervision/internal/notification/domain"
	userhttp "github.com/wyfcoding/supervision/internal/user/interfaces/http"
	"github.com/wyfcoding/supervision/pkg/logger"
)

// NotificationHandler 通知相关的 HTTP 处理器
type NotificationHandler struct {
	query *application.QueryService
}

// NewNotificationHandler 创建通知处理器
func NewNotificationHandler(query *application.QueryService) *NotificationHandler {
	return &NotificationHandler{query: query}
}

// RegisterRoutes 注册路由
func (h *NotificationHandler) RegisterRoutes(router gin.IRouter) {
	api := router.Group("/api/v1/notifications")
	{
		api.GET("", h.List)
		api.POST("/:id/read", h.MarkRead)
	}
}

// List 返回当前用户的未过期通知
func (h *NotificationHandler) List(c *gin.Context) {
	actor, ok := userhttp.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	notifications, err := h.query.ListActive(c.Request.Context(), actor.UserID, limit)
	if err != nil {
		logger.Error(c.Request.Context(), "notification listing failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": notifications, "total": len(notifications)})
}

// MarkRead 标记通知已读，只允许归属用户操作
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	actor, ok := userhttp.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	n, err := h.query.MarkRead(c.Request.Context(), actor.UserID, c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "notification not found"})
		case errors.Is(err, domain.ErrNotOwner):
			c.JSON(http.StatusForbidden, gin.H{"error": "notification belongs to another user"})
		default:
			logger.Error(c.Request.Context(), "mark read failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, n)
}
