// Package domain 受监管机构的领域模型
package domain

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// EntityType 机构类型
type EntityType string

const (
	EntityTypeBank      EntityType = "bank"
	EntityTypeInsurance EntityType = "insurance"
	EntityTypeBrokerage EntityType = "brokerage"
	EntityTypeFund      EntityType = "fund"
)

// 领域错误定义
var (
	// ErrNotFound 机构不存在
	ErrNotFound = errors.New("entity not found")
)

// HighVolumeThreshold 报告总数超过该值视为高报送量机构
const HighVolumeThreshold = 50

// Entity 受监管机构。读多写少，汇总统计由外部流程更新，管线内不修改。
type Entity struct {
	gorm.Model
	// Code 机构代码，唯一
	Code string `json:"code"`
	// Name 法定名称
	Name string `json:"name"`
	// NIP 税号
	NIP string `json:"nip,omitempty"`
	// KRS 注册号
	KRS string `json:"krs,omitempty"`
	// LEI 法人识别编码
	LEI string `json:"lei,omitempty"`
	// Type 机构类型
	Type EntityType `json:"type"`
	// TotalReports 报告总数
	TotalReports int `json:"total_reports"`
	// ApprovedReports 通过的报告数
	ApprovedReports int `json:"approved_reports"`
	// AvgRiskScore 平均风险评分
	AvgRiskScore float64 `json:"avg_risk_score"`
}

// ApprovalRate 通过率，无报告时为 0
func (e *Entity) ApprovalRate() float64 {
	if e.TotalReports == 0 {
		return 0
	}
	return float64(e.ApprovedReports) / float64(e.TotalReports)
}

// HighVolume 是否为高报送量机构
func (e *Entity) HighVolume() bool {
	return e.TotalReports > HighVolumeThreshold
}

// EntityRepository 机构仓储接口
type EntityRepository interface {
	// Save 保存机构（插入或按 code 覆盖）
	Save(ctx context.Context, entity *Entity) error
	// GetByCode 按机构代码查询，不存在时返回 ErrNotFound
	GetByCode(ctx context.Context, code string) (*Entity, error)
	// GetAll 查询全部机构
	GetAll(ctx context.Context) ([]*Entity, error)
}
