package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/wyfcoding/supervision/internal/report/application"
	"github.com/wyfcoding/supervision/internal/report/domain"
	userdomain "github.com/wyfcoding/supervision/internal/user/domain"
	userhttp "github.com/wyfcoding/supervision/internal/user/interfaces/http"
	"github.com/wyfcoding/supervision/pkg/logger"
)

// ReportHandler 报告相关的 HTTP 处理器
type ReportHandler struct {
	submit *application.SubmitService
	review *application.ReviewService
	query  *application.QueryService
}

// NewReportHandler 创建报告处理器
func NewReportHandler(submit *application.SubmitService, review *application.ReviewService, query *application.QueryService) *ReportHandler {
	return &ReportHandler{submit: submit, review: review, query: query}
}

// RegisterRoutes 注册路由
func (h *ReportHandler) RegisterRoutes(router gin.IRouter) {
	api := router.Group("/api/v1/reports")
	{
		api.POST("", h.Submit)
		api.GET("", h.List)
		api.GET("/:id", h.Get)
		api.POST("/:id/approve", h.Approve)
		api.POST("/:id/reject", h.Reject)
		api.GET("/:id/download", h.Download)
	}
}

// Submit 提交报告，multipart 表单：file + entity_code + report_type
func (h *ReportHandler) Submit(c *gin.Context) {
	actor, ok := userhttp.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if fileHeader.Size > application.MaxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file exceeds 50MB limit"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read uploaded file"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read uploaded file"})
		return
	}

	report, err := h.submit.Submit(c.Request.Context(), application.SubmitCommand{
		EntityCode: c.PostForm("entity_code"),
		ReportType: domain.ReportType(c.PostForm("report_type")),
		FileName:   fileHeader.Filename,
		Data:       data,
		Submitter:  actor,
	})
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, report)
}

// List 按角色返回可见报告
func (h *ReportHandler) List(c *gin.Context) {
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

	reports, err := h.query.List(c.Request.Context(), actor, domain.ReportStatus(c.Query("status")), limit)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports, "total": len(reports)})
}

// Get 查询单个报告
func (h *ReportHandler) Get(c *gin.Context) {
	actor, ok := userhttp.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	report, err := h.query.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// ReviewRequest 审核请求体
type ReviewRequest struct {
	Comment string `json:"comment"`
}

// Approve 审核通过
func (h *ReportHandler) Approve(c *gin.Context) {
	h.decide(c, h.review.Approve)
}

// Reject 审核拒绝
func (h *ReportHandler) Reject(c *gin.Context) {
	h.decide(c, h.review.Reject)
}

type decisionFunc func(ctx context.Context, actor *userdomain.User, reportID, comment string) (*domain.Report, error)

func (h *ReportHandler) decide(c *gin.Context, op decisionFunc) {
	actor, ok := userhttp.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	var req ReviewRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	report, err := op(c.Request.Context(), actor, c.Param("id"), req.Comment)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *ReportHandler) renderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrAccessDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "report not found"})
	case errors.Is(err, domain.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": "report is not awaiting review"})
	case errors.Is(err, domain.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": "rejection comment must have at least 10 characters"})
	case errors.Is(err, domain.ErrUnsupportedFileType):
		c.JSON(http.StatusBadRequest, gin.H{"error": "only .xlsx and .xls files are accepted"})
	case errors.Is(err, domain.ErrFileTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file exceeds 50MB limit"})
	default:
		logger.Error(c.Request.Context(), "report operation failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// Download 下载元数据。文件本体不落盘，只返回描述信息。
func (h *ReportHandler) Download(c *gin.Context) {
	actor, ok := userhttp.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	report, err := h.query.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"report_id": report.ReportID,
		"file_name": report.FileName,
		"file_size": report.FileSize,
		"status":    report.Status,
		"message":   "file storage is handled by the archive service",
	})
}
