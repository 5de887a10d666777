// Package memory 报告仓储的进程内实现，用于演示与测试，
// 与 MySQL 实现共用同一仓储接口。
package memory

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/wyfcoding/supervision/internal/report/domain"
)

// ReportRepository 进程内报告仓储
type ReportRepository struct {
	mu      sync.RWMutex
	reports map[string]*domain.Report
}

// NewReportRepository 创建进程内报告仓储
func NewReportRepository() *ReportRepository {
	return &ReportRepository{
		reports: make(map[string]*domain.Report),
	}
}

// Save 实现 domain.ReportRepository.Save
func (r *ReportRepository) Save(ctx context.Context, report *domain.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *report
	r.reports[report.ReportID] = &cp
	return nil
}

// GetByID 实现 domain.ReportRepository.GetByID
func (r *ReportRepository) GetByID(ctx context.Context, reportID string) (*domain.Report, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	report, ok := r.reports[reportID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *report
	return &cp, nil
}

// GetByEntityCodes 实现 domain.ReportRepository.GetByEntityCodes
func (r *ReportRepository) GetByEntityCodes(ctx context.Context, entityCodes []string, status domain.ReportStatus, limit int) ([]*domain.Report, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.Report
	for _, report := range r.reports {
		if !slices.Contains(entityCodes, report.EntityCode) {
			continue
		}
		if status != "" && report.Status != status {
			continue
		}
		cp := *report
		out = append(out, &cp)
	}
	return trim(sortBySubmittedAt(out), limit), nil
}

// GetAll 实现 domain.ReportRepository.GetAll
func (r *ReportRepository) GetAll(ctx context.Context, status domain.ReportStatus, limit int) ([]*domain.Report, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.Report
	for _, report := range r.reports {
		if status != "" && report.Status != status {
			continue
		}
		cp := *report
		out = append(out, &cp)
	}
	return trim(sortBySubmittedAt(out), limit), nil
}

// CountPending 实现 domain.ReportRepository.CountPending
func (r *ReportRepository) CountPending(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var n int64
	for _, report := range r.reports {
		if report.Status == domain.StatusSubmitted {
			n++
		}
	}
	return n, nil
}

func sortBySubmittedAt(reports []*domain.Report) []*domain.Report {
	sort.Slice(reports, func(i, j int) bool {
		return reports[i].SubmittedAt.After(reports[j].SubmittedAt)
	})
	return reports
}

func trim(reports []*domain.Report, limit int) []*domain.Report {
	if limit > 0 && len(reports) > limit {
		return reports[:limit]
	}
	return reports
}
