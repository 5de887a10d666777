// Package mysql 报告仓储接口的 MySQL GORM 实现
package mysql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wyfcoding/supervision/internal/report/domain"
	"github.com/wyfcoding/supervision/pkg/logger"
)

// ReportModel 报告数据库模型，校验与风险结果序列化为 JSON 列
type ReportModel struct {
	gorm.Model
	ReportID      string     `gorm:"column:report_id;type:varchar(36);uniqueIndex;not null"`
	EntityCode    string     `gorm:"column:entity_code;type:varchar(32);index;not null"`
	EntityName    string     `gorm:"column:entity_name;type:varchar(200);not null"`
	ReportType    string     `gorm:"column:report_type;type:varchar(20);not null"`
	FileName      string     `gorm:"column:file_name;type:varchar(255);not null"`
	FileSize      int64      `gorm:"column:file_size;not null"`
	Status        string     `gorm:"column:status;type:varchar(20);index;not null"`
	SubmittedBy   string     `gorm:"column:submitted_by;type:varchar(36);index;not null"`
	SubmittedAt   time.Time  `gorm:"column:submitted_at;type:datetime;index;not null"`
	Validation    []byte     `gorm:"column:validation;type:json"`
	Risk          []byte     `gorm:"column:risk;type:json"`
	ReviewedBy    string     `gorm:"column:reviewed_by;type:varchar(36)"`
	ReviewedAt    *time.Time `gorm:"column:reviewed_at;type:datetime"`
	ReviewComment string     `gorm:"column:review_comment;type:text"`
}

// TableName 指定表名
func (ReportModel) TableName() string {
	return "reports"
}

// reportRepositoryImpl 是 domain.ReportRepository 接口的 GORM 实现
type reportRepositoryImpl struct {
	db *gorm.DB
}

// NewReportRepository 创建报告仓储实例
func NewReportRepository(db *gorm.DB) domain.ReportRepository {
	return &reportRepositoryImpl{db: db}
}

// Save 实现 domain.ReportRepository.Save
func (r *reportRepositoryImpl) Save(ctx context.Context, report *domain.Report) error {
	m, err := toModel(report)
	if err != nil {
		return err
	}

	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "report_id"}},
		UpdateAll: true,
	}).Create(m).Error
	if err != nil {
		logger.Error(ctx, "report_repository.Save failed", "report_id", report.ReportID, "error", err)
		return fmt.Errorf("failed to save report: %w", err)
	}

	report.Model = m.Model
	return nil
}

// GetByID 实现 domain.ReportRepository.GetByID
func (r *reportRepositoryImpl) GetByID(ctx context.Context, reportID string) (*domain.Report, error) {
	var m ReportModel
	if err := r.db.WithContext(ctx).Where("report_id = ?", reportID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		logger.Error(ctx, "report_repository.GetByID failed", "report_id", reportID, "error", err)
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	return toDomain(&m)
}

// GetByEntityCodes 实现 domain.ReportRepository.GetByEntityCodes
func (r *reportRepositoryImpl) GetByEntityCodes(ctx context.Context, entityCodes []string, status domain.ReportStatus, limit int) ([]*domain.Report, error) {
	db := r.db.WithContext(ctx).Where("entity_code IN ?", entityCodes)
	return r.query(ctx, db, status, limit)
}

// GetAll 实现 domain.ReportRepository.GetAll
func (r *reportRepositoryImpl) GetAll(ctx context.Context, status domain.ReportStatus, limit int) ([]*domain.Report, error) {
	return r.query(ctx, r.db.WithContext(ctx), status, limit)
}

// CountPending 实现 domain.ReportRepository.CountPending
func (r *reportRepositoryImpl) CountPending(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&ReportModel{}).
		Where("status = ?", string(domain.StatusSubmitted)).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count pending reports: %w", err)
	}
	return n, nil
}

func (r *reportRepositoryImpl) query(ctx context.Context, db *gorm.DB, status domain.ReportStatus, limit int) ([]*domain.Report, error) {
	if status != "" {
		db = db.Where("status = ?", string(status))
	}
	if limit > 0 {
		db = db.Limit(limit)
	}

	var ms []ReportModel
	if err := db.Order("submitted_at desc").Find(&ms).Error; err != nil {
		logger.Error(ctx, "report_repository.query failed", "error", err)
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}

	out := make([]*domain.Report, 0, len(ms))
	for i := range ms {
		report, err := toDomain(&ms[i])
		if err != nil {
			return nil, err
		}
		out = append(out, report)
	}
	return out, nil
}

func toModel(report *domain.Report) (*ReportModel, error) {
	m := &ReportModel{
		Model:         report.Model,
		ReportID:      report.ReportID,
		EntityCode:    report.EntityCode,
		EntityName:    report.EntityName,
		ReportType:    string(report.Type),
		FileName:      report.FileName,
		FileSize:      report.FileSize,
		Status:        string(report.Status),
		SubmittedBy:   report.SubmittedBy,
		SubmittedAt:   report.SubmittedAt,
		ReviewedBy:    report.ReviewedBy,
		ReviewedAt:    report.ReviewedAt,
		ReviewComment: report.ReviewComment,
	}

	if report.Validation != nil {
		data, err := json.Marshal(report.Validation)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal validation result: %w", err)
		}
		m.Validation = data
	}
	if report.Risk != nil {
		data, err := json.Marshal(report.Risk)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal risk analysis: %w", err)
		}
		m.Risk = data
	}
	return m, nil
}

func toDomain(m *ReportModel) (*domain.Report, error) {
	report := &domain.Report{
		Model:         m.Model,
		ReportID:      m.ReportID,
		EntityCode:    m.EntityCode,
		EntityName:    m.EntityName,
		Type:          domain.ReportType(m.ReportType),
		FileName:      m.FileName,
		FileSize:      m.FileSize,
		Status:        domain.ReportStatus(m.Status),
		SubmittedBy:   m.SubmittedBy,
		SubmittedAt:   m.SubmittedAt,
		ReviewedBy:    m.ReviewedBy,
		ReviewedAt:    m.ReviewedAt,
		ReviewComment: m.ReviewComment,
	}

	if len(m.Validation) > 0 {
		var v domain.ValidationResult
		if err := json.Unmarshal(m.Validation, &v); err != nil {
			return nil, fmt.Errorf("failed to unmarshal validation result: %w", err)
		}
		report.Validation = &v
	}
	if len(m.Risk) > 0 {
		var risk domain.RiskAnalysis
		if err := json.Unmarshal(m.Risk, &risk); err != nil {
			return nil, fmt.Errorf("failed to unmarshal risk analysis: %w", err)
		}
		report.Risk = &risk
	}
	return report, nil
}
