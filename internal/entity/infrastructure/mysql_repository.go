package infrastructure

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wyfcoding/supervision/internal/entity/domain"
	"github.com/wyfcoding/supervision/pkg/logger"
)

// EntityModel 机构数据库模型
type EntityModel struct {
	gorm.Model
	Code            string  `gorm:"column:code;type:varchar(32);uniqueIndex;not null"`
	Name            string  `gorm:"column:name;type:varchar(200);not null"`
	NIP             string  `gorm:"column:nip;type:varchar(20)"`
	KRS             string  `gorm:"column:krs;type:varchar(20)"`
	LEI             string  `gorm:"column:lei;type:varchar(20)"`
	Type            string  `gorm:"column:type;type:varchar(20);index"`
	TotalReports    int     `gorm:"column:total_reports;not null;default:0"`
	ApprovedReports int     `gorm:"column:approved_reports;not null;default:0"`
	AvgRiskScore    float64 `gorm:"column:avg_risk_score;not null;default:0"`
}

// TableName 指定表名
func (EntityModel) TableName() string {
	return "entities"
}

// entityRepositoryImpl 是 domain.EntityRepository 接口的 GORM 实现
type entityRepositoryImpl struct {
	db *gorm.DB
}

// NewEntityRepository 创建机构仓储实例
func NewEntityRepository(db *gorm.DB) domain.EntityRepository {
	return &entityRepositoryImpl{db: db}
}

// Save 实现 domain.EntityRepository.Save
func (r *entityRepositoryImpl) Save(ctx context.Context, entity *domain.Entity) error {
	m := &EntityModel{
		Model:           entity.Model,
		Code:            entity.Code,
		Name:            entity.Name,
		NIP:             entity.NIP,
		KRS:             entity.KRS,
		LEI:             entity.LEI,
		Type:            string(entity.Type),
		TotalReports:    entity.TotalReports,
		ApprovedReports: entity.ApprovedReports,
		AvgRiskScore:    entity.AvgRiskScore,
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		UpdateAll: true,
	}).Create(m).Error
	if err != nil {
		logger.Error(ctx, "entity_repository.Save failed", "code", entity.Code, "error", err)
		return fmt.Errorf("failed to save entity: %w", err)
	}

	entity.Model = m.Model
	return nil
}

// GetByCode 实现 domain.EntityRepository.GetByCode
func (r *entityRepositoryImpl) GetByCode(ctx context.Context, code string) (*domain.Entity, error) {
	var m EntityModel
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get entity: %w", err)
	}
	return entityToDomain(&m), nil
}

// GetAll 实现 domain.EntityRepository.GetAll
func (r *entityRepositoryImpl) GetAll(ctx context.Context) ([]*domain.Entity, error) {
	var ms []EntityModel
	if err := r.db.WithContext(ctx).Order("code").Find(&ms).Error; err != nil {
		logger.Error(ctx, "entity_repository.GetAll failed", "error", err)
		return nil, fmt.Errorf("failed to list entities: %w", err)
	}

	out := make([]*domain.Entity, 0, len(ms))
	for i := range ms {
		out = append(out, entityToDomain(&ms[i]))
	}
	return out, nil
}

func entityToDomain(m *EntityModel) *domain.Entity {
	return &domain.Entity{
		Model:           m.Model,
		Code:            m.Code,
		Name:            m.Name,
		NIP:             m.NIP,
		KRS:             m.KRS,
		LEI:             m.LEI,
		Type:            domain.EntityType(m.Type),
		TotalReports:    m.TotalReports,
		ApprovedReports: m.ApprovedReports,
		AvgRiskScore:    m.AvgRiskScore,
	}
}
