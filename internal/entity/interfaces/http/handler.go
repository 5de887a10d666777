package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wyfcoding/supervision/internal/entity/application"
	"github.com/wyfcoding/supervision/internal/entity/domain"
	reportdomain "github.com/wyfcoding/supervision/internal/report/domain"
	userhttp "github.com/wyfcoding/supervision/internal/user/interfaces/http"
	"github.com/wyfcoding/supervision/pkg/logger"
)

// EntityHandler 受监管机构目录的 HTTP 处理器
type EntityHandler struct {
	directory *application.DirectoryService
}

// NewEntityHandler 创建机构处理器
func NewEntityHandler(directory *application.DirectoryService) *EntityHandler {
	return &EntityHandler{directory: directory}
}

// RegisterRoutes 注册路由
func (h *EntityHandler) RegisterRoutes(router gin.IRouter) {
	api := router.Group("/api/v1/entities")
	{
		api.GET("", h.List)
		api.GET("/:code", h.Get)
		api.GET("/:code/statistics", h.Statistics)
	}
}

// List 返回调用者可见的机构，支持 type 和 search 查询参数
func (h *EntityHandler) List(c *gin.Context) {
	actor, ok := userhttp.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	entities, err := h.directory.List(c.Request.Context(), actor, c.Query("type"), c.Query("search"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entities": entities, "total": len(entities)})
}

// Get 按机构代码查询
func (h *EntityHandler) Get(c *gin.Context) {
	actor, ok := userhttp.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	entity, err := h.directory.Get(c.Request.Context(), actor, c.Param("code"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, entity)
}

// Statistics 机构的派生统计
func (h *EntityHandler) Statistics(c *gin.Context) {
	actor, ok := userhttp.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	stats, err := h.directory.GetStatistics(c.Request.Context(), actor, c.Param("code"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *EntityHandler) renderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, reportdomain.ErrAccessDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "entity not found"})
	default:
		logger.Error(c.Request.Context(), "entity operation failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
