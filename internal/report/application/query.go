package application

import (
	"context"
	"sort"

	"github.com/wyfcoding/supervision/internal/report/domain"
	userdomain "github.com/wyfcoding/supervision/internal/user/domain"
)

// QueryService 角色化的报告查询。
// 监管侧看到全部报告，按优先级（风险评分，缺失按 0）降序、提交时间降序；
// 机构侧只看到本机构报告，按提交时间降序。
type QueryService struct {
	reports domain.ReportRepository
}

// NewQueryService 创建查询服务
func NewQueryService(reports domain.ReportRepository) *QueryService {
	return &QueryService{reports: reports}
}

// List 按调用者角色返回可见报告
func (s *QueryService) List(ctx context.Context, actor *userdomain.User, status domain.ReportStatus, limit int) ([]*domain.Report, error) {
	if actor.IsUKNF() {
		reports, err := s.reports.GetAll(ctx, status, limit)
		if err != nil {
			return nil, err
		}
		sortForSupervisor(reports)
		return reports, nil
	}

	reports, err := s.reports.GetByEntityCodes(ctx, actor.EntityAccess, status, limit)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(reports, func(i, j int) bool {
		return reports[i].SubmittedAt.After(reports[j].SubmittedAt)
	})
	return reports, nil
}

// Get 按 ID 查询单个报告并做机构归属检查
func (s *QueryService) Get(ctx context.Context, actor *userdomain.User, reportID string) (*domain.Report, error) {
	report, err := s.reports.GetByID(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if !actor.IsUKNF() && !actor.CanAccessEntity(report.EntityCode) {
		return nil, domain.ErrAccessDenied
	}
	return report, nil
}

// sortForSupervisor 监管队列排序：风险评分降序（缺失按 0），再按提交时间降序
func sortForSupervisor(reports []*domain.Report) {
	sort.SliceStable(reports, func(i, j int) bool {
		si, sj := reports[i].RiskScoreOrZero(), reports[j].RiskScoreOrZero()
		if si != sj {
			return si > sj
		}
		return reports[i].SubmittedAt.After(reports[j].SubmittedAt)
	})
}
