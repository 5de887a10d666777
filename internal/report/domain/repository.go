package domain

import "context"

// ReportRepository 报告仓储接口
type ReportRepository interface {
	// Save 保存报告（插入或按 report_id 覆盖）
	Save(ctx context.Context, report *Report) error
	// GetByID 按业务 ID 查询，不存在时返回 ErrNotFound
	GetByID(ctx context.Context, reportID string) (*Report, error)
	// GetByEntityCodes 查询指定机构集合的报告，status 为空表示全部
	GetByEntityCodes(ctx context.Context, entityCodes []string, status ReportStatus, limit int) ([]*Report, error)
	// GetAll 查询全部报告，status 为空表示全部
	GetAll(ctx context.Context, status ReportStatus, limit int) ([]*Report, error)
	// CountPending 统计待审核报告数
	CountPending(ctx context.Context) (int64, error)
}
