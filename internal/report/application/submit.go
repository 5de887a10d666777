// Package application 报告管线的应用服务：提交编排、审核决定、角色化查询
package application

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	entitydomain "github.com/wyfcoding/supervision/internal/entity/domain"
	"github.com/wyfcoding/supervision/internal/judge"
	notificationapp "github.com/wyfcoding/supervision/internal/notification/application"
	"github.com/wyfcoding/supervision/internal/report/domain"
	"github.com/wyfcoding/supervision/internal/report/infrastructure/extract"
	userdomain "github.com/wyfcoding/supervision/internal/user/domain"
	"github.com/wyfcoding/supervision/pkg/logger"
	"github.com/wyfcoding/supervision/pkg/metrics"
)

// MaxUploadBytes 上传大小上限
const MaxUploadBytes = 50 << 20

// allowedExtensions 接受的文件扩展名，按现行策略只检查扩展名不嗅探内容
var allowedExtensions = map[string]bool{".xlsx": true, ".xls": true}

// SubmitCommand 提交请求
type SubmitCommand struct {
	EntityCode string
	ReportType domain.ReportType
	FileName   string
	Data       []byte
	Submitter  *userdomain.User
}

// SubmitService 提交编排器。串联提取 → 校验 → （门控）→ 风险分析 →
// 持久化 → 通知；非终止性阶段的异常一律转换为文档化的降级值，
// 不允许中断提交。
type SubmitService struct {
	reports    domain.ReportRepository
	entities   entitydomain.EntityRepository
	extractor  *extract.Extractor
	judge      judge.Provider
	dispatcher *notificationapp.Dispatcher
	metrics    *metrics.Metrics
}

// NewSubmitService 创建提交编排器，metrics 可为 nil
func NewSubmitService(
	reports domain.ReportRepository,
	entities entitydomain.EntityRepository,
	extractor *extract.Extractor,
	judgeProvider judge.Provider,
	dispatcher *notificationapp.Dispatcher,
	m *metrics.Metrics,
) *SubmitService {
	return &SubmitService{
		reports:    reports,
		entities:   entities,
		extractor:  extractor,
		judge:      judgeProvider,
		dispatcher: dispatcher,
		metrics:    m,
	}
}

// ValidateUpload 边界检查：扩展名与大小
func ValidateUpload(fileName string, size int64) error {
	if size > MaxUploadBytes {
		return domain.ErrFileTooLarge
	}
	ext := strings.ToLower(filepath.Ext(fileName))
	if !allowedExtensions[ext] {
		return domain.ErrUnsupportedFileType
	}
	return nil
}

// Submit 处理一次报告提交。校验不通过返回 REJECTED 状态的报告而不是错误；
// 只有访问控制和输入边界问题才作为错误返回。
func (s *SubmitService) Submit(ctx context.Context, cmd SubmitCommand) (*domain.Report, error) {
	if !cmd.Submitter.CanAccessEntity(cmd.EntityCode) {
		return nil, domain.ErrAccessDenied
	}
	if err := ValidateUpload(cmd.FileName, int64(len(cmd.Data))); err != nil {
		return nil, err
	}

	entityName := cmd.EntityCode
	if entity, err := s.entities.GetByCode(ctx, cmd.EntityCode); err == nil {
		entityName = entity.Name
	}

	report, err := domain.NewReport(cmd.EntityCode, entityName, cmd.ReportType, cmd.FileName, int64(len(cmd.Data)), cmd.Submitter.UserID)
	if err != nil {
		return nil, err
	}
	if err := s.reports.Save(ctx, report); err != nil {
		return nil, err
	}

	ctx = judge.WithReportID(ctx, report.ReportID)
	defer logger.LogDuration(ctx, "submission pipeline finished", "report_id", report.ReportID)()

	table, extractErr := s.timedExtract(ctx, cmd.Data, cmd.ReportType)
	if extractErr != nil {
		// 无法解析是终止性失败：作为校验错误落盘，不做风险分析
		_ = report.ApplyValidation(domain.ValidationResult{
			IsValid:    false,
			Confidence: 1.0,
			Errors: []domain.ValidationError{
				{Column: "file", Row: 0, Issue: fmt.Sprintf("file cannot be parsed: %v", extractErr)},
			},
		})
		return s.finish(ctx, report)
	}

	validation := s.timedValidate(ctx, table, cmd.ReportType)
	if err := report.ApplyValidation(validation); err != nil {
		return nil, err
	}

	if report.Status == domain.StatusRejected {
		return s.finish(ctx, report)
	}

	s.timedAnalyze(ctx, report, table, cmd.ReportType)

	report, err = s.finish(ctx, report)
	if err != nil {
		return nil, err
	}

	s.dispatcher.NotifyReportSubmitted(ctx, report)
	return report, nil
}

// timedExtract 提取阶段
func (s *SubmitService) timedExtract(ctx context.Context, data []byte, reportType domain.ReportType) (*extract.Table, error) {
	start := time.Now()
	table, err := s.extractor.Extract(data, reportType)
	s.observeStage("extract", start)
	if err != nil {
		logger.Warn(ctx, "extraction failed", "error", err)
	}
	return table, err
}

// timedValidate 校验阶段。提供方失败转换为确定性的降级结果：
// is_valid=false、confidence=1.0、单条合成错误。
func (s *SubmitService) timedValidate(ctx context.Context, table *extract.Table, reportType domain.ReportType) domain.ValidationResult {
	start := time.Now()
	result, err := s.judge.Validate(ctx, table, reportType)
	s.observeStage("validate", start)
	if err != nil {
		logger.Error(ctx, "validation provider failed, applying fallback", "error", err)
		return domain.ValidationResult{
			IsValid:    false,
			Confidence: 1.0,
			Errors: []domain.ValidationError{
				{Column: "file", Row: 0, Issue: fmt.Sprintf("validation provider failure: %v", err)},
			},
			ValidatedAt: time.Now(),
		}
	}
	return result
}

// timedAnalyze 风险分析阶段，尽力而为：失败时记降级分析结果并追加警告
func (s *SubmitService) timedAnalyze(ctx context.Context, report *domain.Report, table *extract.Table, reportType domain.ReportType) {
	start := time.Now()
	analysis, err := s.judge.AnalyzeRisk(ctx, table, reportType)
	s.observeStage("analyze_risk", start)
	if err != nil {
		logger.Error(ctx, "risk analysis provider failed, applying fallback", "report_id", report.ReportID, "error", err)
		analysis = domain.RiskAnalysis{
			Category:       string(reportType) + "_risk",
			RiskScore:      5.0,
			Urgency:        domain.UrgencyRoutine,
			Anomalies:      []string{fmt.Sprintf("risk analysis unavailable: %v", err)},
			Confidence:     0.3,
			ProcessingTime: time.Since(start),
		}
		report.AppendWarning(fmt.Sprintf("risk analysis failed and defaults were applied: %v", err))
	}
	report.ApplyRiskAnalysis(analysis)
}

// finish 持久化终态并上报指标
func (s *SubmitService) finish(ctx context.Context, report *domain.Report) (*domain.Report, error) {
	if err := s.reports.Save(ctx, report); err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.SubmissionsTotal.WithLabelValues(string(report.Status)).Inc()
	}
	logger.Info(ctx, "report persisted",
		"report_id", report.ReportID,
		"entity_code", report.EntityCode,
		"status", report.Status,
		"requires_escalation", report.RequiresEscalation(),
	)
	return report, nil
}

func (s *SubmitService) observeStage(stage string, start time.Time) {
	if s.metrics != nil {
		s.metrics.PipelineStageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	}
}
