package application

import (
	"context"
	"fmt"
	"time"

	"github.com/wyfcoding/supervision/internal/judge"
	"github.com/wyfcoding/supervision/internal/notification/domain"
	"github.com/wyfcoding/supervision/internal/realtime"
	reportdomain "github.com/wyfcoding/supervision/internal/report/domain"
	userdomain "github.com/wyfcoding/supervision/internal/user/domain"
	"github.com/wyfcoding/supervision/pkg/logger"
	"github.com/wyfcoding/supervision/pkg/metrics"
)

// Dispatcher 通知分发服务。投递是尽力而为的：
// 仓储或推送失败只记日志，触发通知的管线步骤照常成功。
type Dispatcher struct {
	notifications domain.NotificationRepository
	users         userdomain.UserRepository
	composer      judge.Provider
	broadcaster   realtime.Broadcaster
	metrics       *metrics.Metrics
}

// NewDispatcher 创建通知分发服务，metrics 可为 nil
func NewDispatcher(
	notifications domain.NotificationRepository,
	users userdomain.UserRepository,
	composer judge.Provider,
	broadcaster realtime.Broadcaster,
	m *metrics.Metrics,
) *Dispatcher {
	return &Dispatcher{
		notifications: notifications,
		users:         users,
		composer:      composer,
		broadcaster:   broadcaster,
		metrics:       m,
	}
}

// NotifyReportSubmitted 报告提交后向每个监管侧用户各发一条通知（7 天有效）
func (d *Dispatcher) NotifyReportSubmitted(ctx context.Context, report *reportdomain.Report) {
	users, err := d.users.GetAll(ctx)
	if err != nil {
		logger.Error(ctx, "notification fan-out skipped: cannot list users", "report_id", report.ReportID, "error", err)
		return
	}

	title := "Nowy raport do weryfikacji"
	message := fmt.Sprintf("Instytucja %s przesłała raport (%s) do weryfikacji.", report.EntityName, report.Type)
	contextMap := map[string]string{
		"entity_name": report.EntityName,
		"report_type": string(report.Type),
	}

	for _, u := range users {
		if !u.IsUKNF() || !u.Active {
			continue
		}
		n := domain.New(u.UserID, report.ReportID, domain.TypeReportSubmitted, title, message, contextMap, domain.SupervisorNoticeTTL)
		d.deliver(ctx, n)
	}
}

// NotifyDecision 审核决定后通知原提交人（30 天有效）。
// 文案优先由判定提供方生成，失败时退回固定模板。
func (d *Dispatcher) NotifyDecision(ctx context.Context, report *reportdomain.Report) {
	var typ domain.NotificationType
	var title, decision string

	switch report.Status {
	case reportdomain.StatusApproved:
		typ = domain.TypeReportApproved
		title = "Raport zatwierdzony"
		decision = "approved"
	case reportdomain.StatusRejected:
		typ = domain.TypeReportRejected
		title = "Raport odrzucony"
		decision = "rejected"
	default:
		logger.Warn(ctx, "decision notification skipped: report not decided", "report_id", report.ReportID, "status", report.Status)
		return
	}

	contextMap := map[string]string{
		"entity_name": report.EntityName,
		"report_type": string(report.Type),
	}
	if report.ReviewedAt != nil {
		contextMap["decided_at"] = report.ReviewedAt.Format(time.RFC3339)
	}
	if report.Status == reportdomain.StatusRejected {
		contextMap["reason"] = report.ReviewComment
	}

	message, err := d.composer.ComposeMessage(ctx, judge.ComposeRequest{
		Decision:   decision,
		EntityName: report.EntityName,
		ReportType: report.Type,
		Reason:     report.ReviewComment,
	})
	if err != nil {
		logger.Warn(ctx, "message composition failed, using template", "report_id", report.ReportID, "error", err)
		message = fallbackMessage(report)
	}

	n := domain.New(report.SubmittedBy, report.ReportID, typ, title, message, contextMap, domain.DecisionNoticeTTL)
	d.deliver(ctx, n)
}

// deliver 持久化并实时推送一条通知，失败只记日志
func (d *Dispatcher) deliver(ctx context.Context, n *domain.Notification) {
	if err := d.notifications.Save(ctx, n); err != nil {
		logger.Error(ctx, "notification save failed", "notification_id", n.NotificationID, "user_id", n.UserID, "error", err)
		return
	}
	if d.metrics != nil {
		d.metrics.NotificationsTotal.Inc()
	}

	d.broadcaster.SendToUser(ctx, n.UserID, map[string]any{
		"type":            "notification",
		"notification_id": n.NotificationID,
		"report_id":       n.ReportID,
		"title":           n.Title,
		"message":         n.Message,
	})
}

// fallbackMessage 固定的波兰语模板文案
func fallbackMessage(report *reportdomain.Report) string {
	if report.Status == reportdomain.StatusApproved {
		return fmt.Sprintf("Raport %s instytucji %s został zatwierdzony.", report.Type, report.EntityName)
	}
	return fmt.Sprintf("Raport %s instytucji %s został odrzucony. Powód: %s", report.Type, report.EntityName, report.ReviewComment)
}

// QueryService 通知查询与已读标记
type QueryService struct {
	notifications domain.NotificationRepository
}

// NewQueryService 创建通知查询服务
func NewQueryService(notifications domain.NotificationRepository) *QueryService {
	return &QueryService{notifications: notifications}
}

// ListActive 返回用户的未过期通知。过期只在查询侧过滤，记录不删除。
func (s *QueryService) ListActive(ctx context.Context, userID string, limit int) ([]*domain.Notification, error) {
	all, err := s.notifications.ListByUser(ctx, userID, 0)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	out := make([]*domain.Notification, 0, len(all))
	for _, n := range all {
		if n.Expired(now) {
			continue
		}
		out = append(out, n)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// MarkRead 标记通知已读，只允许归属用户操作
func (s *QueryService) MarkRead(ctx context.Context, userID, notificationID string) (*domain.Notification, error) {
	n, err := s.notifications.GetByID(ctx, notificationID)
	if err != nil {
		return nil, err
	}
	if err := n.MarkRead(userID); err != nil {
		return nil, err
	}
	if err := s.notifications.Save(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}
