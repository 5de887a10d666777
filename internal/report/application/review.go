package application

import (
	"context"

	notificationapp "github.com/wyfcoding/supervision/internal/notification/application"
	"github.com/wyfcoding/supervision/internal/report/domain"
	userdomain "github.com/wyfcoding/supervision/internal/user/domain"
	"github.com/wyfcoding/supervision/pkg/logger"
	"github.com/wyfcoding/supervision/pkg/metrics"
)

// ReviewService 审核用例：通过与拒绝
type ReviewService struct {
	reports    domain.ReportRepository
	dispatcher *notificationapp.Dispatcher
	metrics    *metrics.Metrics
}

// NewReviewService 创建审核服务，metrics 可为 nil
func NewReviewService(reports domain.ReportRepository, dispatcher *notificationapp.Dispatcher, m *metrics.Metrics) *ReviewService {
	return &ReviewService{reports: reports, dispatcher: dispatcher, metrics: m}
}

// Approve 审核通过，要求审核或管理角色
func (s *ReviewService) Approve(ctx context.Context, actor *userdomain.User, reportID, comment string) (*domain.Report, error) {
	return s.decide(ctx, actor, reportID, "approve", func(r *domain.Report) error {
		return r.Approve(actor.UserID, comment)
	})
}

// Reject 审核拒绝，要求审核或管理角色，意见不少于 10 个字符
func (s *ReviewService) Reject(ctx context.Context, actor *userdomain.User, reportID, comment string) (*domain.Report, error) {
	return s.decide(ctx, actor, reportID, "reject", func(r *domain.Report) error {
		return r.Reject(actor.UserID, comment)
	})
}

func (s *ReviewService) decide(ctx context.Context, actor *userdomain.User, reportID, decision string, transition func(*domain.Report) error) (*domain.Report, error) {
	if !actor.CanReview() {
		return nil, domain.ErrAccessDenied
	}

	report, err := s.reports.GetByID(ctx, reportID)
	if err != nil {
		return nil, err
	}

	if err := transition(report); err != nil {
		return nil, err
	}

	if err := s.reports.Save(ctx, report); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.ReviewDecisionsTotal.WithLabelValues(decision).Inc()
	}
	logger.Info(ctx, "review decision recorded",
		"report_id", reportID,
		"decision", decision,
		"reviewer", actor.UserID,
	)

	s.dispatcher.NotifyDecision(ctx, report)
	return report, nil
}
