package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	reportdomain "github.com/wyfcoding/supervision/internal/report/domain"
	"github.com/wyfcoding/supervision/internal/user/application"
	"github.com/wyfcoding/supervision/internal/user/domain"
	"github.com/wyfcoding/supervision/pkg/logger"
)

// ContextUserKey 认证中间件写入 gin context 的当前用户键
const ContextUserKey = "current_user"

// CurrentUser 从 gin context 取出已认证用户
func CurrentUser(c *gin.Context) (*domain.User, bool) {
	v, ok := c.Get(ContextUserKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*domain.User)
	return user, ok
}

// UserHandler 用户与管理相关的 HTTP 处理器
type UserHandler struct {
	admin *application.AdminService
}

// NewUserHandler 创建用户处理器
func NewUserHandler(admin *application.AdminService) *UserHandler {
	return &UserHandler{admin: admin}
}

// RegisterRoutes 注册路由
func (h *UserHandler) RegisterRoutes(router gin.IRouter) {
	api := router.Group("/api/v1/users")
	{
		api.GET("/me", h.Me)
		api.GET("", h.ListUsers)
		api.POST("/:id/deactivate", h.DeactivateUser)
		api.POST("/:id/roles", h.AssignRole)
	}
}

// Me 返回当前用户信息
func (h *UserHandler) Me(c *gin.Context) {
	user, ok := CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	c.JSON(http.StatusOK, user)
}

// ListUsers 管理员查询用户列表
func (h *UserHandler) ListUsers(c *gin.Context) {
	actor, ok := CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	users, err := h.admin.ListUsers(c.Request.Context(), actor, c.Query("role"), c.Query("active") == "true")
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users, "total": len(users)})
}

// DeactivateUser 管理员停用用户
func (h *UserHandler) DeactivateUser(c *gin.Context) {
	actor, ok := CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	if err := h.admin.DeactivateUser(c.Request.Context(), actor, c.Param("id")); err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deactivated"})
}

// AssignRoleRequest 角色授予请求
type AssignRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// AssignRole 管理员给用户追加角色
func (h *UserHandler) AssignRole(c *gin.Context) {
	actor, ok := CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	var req AssignRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.admin.AssignRole(c.Request.Context(), actor, c.Param("id"), req.Role)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) renderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, reportdomain.ErrAccessDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": "admin role required"})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
	case errors.Is(err, domain.ErrSelfDeactivation), errors.Is(err, domain.ErrInvalidRole):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logger.Error(c.Request.Context(), "user operation failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
