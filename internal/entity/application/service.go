package application

import (
	"context"
	"strings"

	"github.com/wyfcoding/supervision/internal/entity/domain"
	reportdomain "github.com/wyfcoding/supervision/internal/report/domain"
	userdomain "github.com/wyfcoding/supervision/internal/user/domain"
)

// DirectoryService 机构目录查询，应用与报告列表一致的机构归属过滤
type DirectoryService struct {
	entities domain.EntityRepository
}

// NewDirectoryService 创建机构目录服务
func NewDirectoryService(entities domain.EntityRepository) *DirectoryService {
	return &DirectoryService{entities: entities}
}

// Statistics 机构汇总统计视图
type Statistics struct {
	Code            string  `json:"code"`
	Name            string  `json:"name"`
	TotalReports    int     `json:"total_reports"`
	ApprovedReports int     `json:"approved_reports"`
	ApprovalRate    float64 `json:"approval_rate"`
	AvgRiskScore    float64 `json:"avg_risk_score"`
	HighVolume      bool    `json:"high_volume"`
}

// List 返回调用者可见的机构，支持类型过滤和名称搜索
func (s *DirectoryService) List(ctx context.Context, actor *userdomain.User, typeFilter, nameSearch string) ([]*domain.Entity, error) {
	all, err := s.entities.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	search := strings.ToLower(strings.TrimSpace(nameSearch))
	out := make([]*domain.Entity, 0, len(all))
	for _, e := range all {
		if !actor.CanAccessEntity(e.Code) {
			continue
		}
		if typeFilter != "" && string(e.Type) != typeFilter {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(e.Name), search) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// Get 按机构代码查询，调用者必须有该机构的访问权限
func (s *DirectoryService) Get(ctx context.Context, actor *userdomain.User, code string) (*domain.Entity, error) {
	if !actor.CanAccessEntity(code) {
		return nil, reportdomain.ErrAccessDenied
	}
	return s.entities.GetByCode(ctx, code)
}

// GetStatistics 机构的派生统计
func (s *DirectoryService) GetStatistics(ctx context.Context, actor *userdomain.User, code string) (*Statistics, error) {
	entity, err := s.Get(ctx, actor, code)
	if err != nil {
		return nil, err
	}

	return &Statistics{
		Code:            entity.Code,
		Name:            entity.Name,
		TotalReports:    entity.TotalReports,
		ApprovedReports: entity.ApprovedReports,
		ApprovalRate:    entity.ApprovalRate(),
		AvgRiskScore:    entity.AvgRiskScore,
		HighVolume:      entity.HighVolume(),
	}, nil
}
