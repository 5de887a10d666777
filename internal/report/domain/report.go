// Package domain 监管报告的领域模型：报告实体、状态机与校验/风险分析值对象
package domain

import (
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReportType 报告类型
type ReportType string

const (
	ReportTypeLiquidity  ReportType = "liquidity"  // 流动性报告
	ReportTypeAML        ReportType = "aml"        // 反洗钱报告
	ReportTypeCapital    ReportType = "capital"    // 资本充足率报告
	ReportTypeGovernance ReportType = "governance" // 公司治理报告
)

// Valid 检查报告类型是否合法
func (t ReportType) Valid() bool {
	switch t {
	case ReportTypeLiquidity, ReportTypeAML, ReportTypeCapital, ReportTypeGovernance:
		return true
	}
	return false
}

// ReportStatus 报告状态
type ReportStatus string

const (
	StatusDraft      ReportStatus = "DRAFT"      // 草稿（自动流程不经过，保留给手工起草）
	StatusValidating ReportStatus = "VALIDATING" // 校验中
	StatusSubmitted  ReportStatus = "SUBMITTED"  // 已提交，等待审核
	StatusApproved   ReportStatus = "APPROVED"   // 审核通过
	StatusRejected   ReportStatus = "REJECTED"   // 已拒绝（系统或审核员）
	StatusEscalated  ReportStatus = "ESCALATED"  // 已升级
)

// RiskLevel 风险等级
type RiskLevel string

const (
	RiskLevelLow    RiskLevel = "LOW"
	RiskLevelMedium RiskLevel = "MEDIUM"
	RiskLevelHigh   RiskLevel = "HIGH"
)

// RiskLevelFromScore 由风险评分推导风险等级。
// 等级永远是评分的纯函数，不允许独立设置。
func RiskLevelFromScore(score float64) RiskLevel {
	switch {
	case score < 5:
		return RiskLevelLow
	case score < 7:
		return RiskLevelMedium
	default:
		return RiskLevelHigh
	}
}

// Urgency 风险处理紧迫度
type Urgency string

const (
	UrgencyRoutine  Urgency = "routine"
	UrgencyUrgent   Urgency = "urgent"
	UrgencyCritical Urgency = "critical"
)

// ValidationError 单条校验错误，定位到列和行
type ValidationError struct {
	Column string `json:"column"`
	Row    int    `json:"row"`
	Issue  string `json:"issue"`
}

// ValidationResult 校验阶段的结果值对象，仅随报告持久化
type ValidationResult struct {
	IsValid     bool              `json:"is_valid"`
	Confidence  float64           `json:"confidence"`
	Errors      []ValidationError `json:"errors"`
	Warnings    []string          `json:"warnings"`
	ValidatedAt time.Time         `json:"validated_at"`
}

// NeedsManualReview 置信度低于 0.8 视为需要人工复核，仅做标记不自动升级
func (v ValidationResult) NeedsManualReview() bool {
	return v.Confidence < 0.8
}

// RiskAnalysis 风险分析阶段的结果值对象，仅随报告持久化
type RiskAnalysis struct {
	Category       string        `json:"category"`
	RiskScore      float64       `json:"risk_score"`
	RiskLevel      RiskLevel     `json:"risk_level"`
	Urgency        Urgency       `json:"urgency"`
	Anomalies      []string      `json:"anomalies"`
	KeyInsights    []string      `json:"key_insights"`
	ReasoningChain string        `json:"reasoning_chain"`
	Confidence     float64       `json:"confidence"`
	ProcessingTime time.Duration `json:"processing_time"`
}

// PriorityScore 审核队列优先级 = round(score*10) + 紧迫度加成 + min(异常数*5, 20)
func (r RiskAnalysis) PriorityScore() int {
	score := int(math.Round(r.RiskScore * 10))

	switch r.Urgency {
	case UrgencyUrgent:
		score += 20
	case UrgencyCritical:
		score += 50
	}

	bonus := len(r.Anomalies) * 5
	if bonus > 20 {
		bonus = 20
	}
	return score + bonus
}

// Report 报告聚合根。状态只通过本文件的状态机方法变更。
type Report struct {
	gorm.Model
	// ReportID 报告业务 ID
	ReportID string `json:"report_id"`
	// EntityCode 提交机构代码
	EntityCode string `json:"entity_code"`
	// EntityName 提交机构名称
	EntityName string `json:"entity_name"`
	// Type 报告类型
	Type ReportType `json:"report_type"`
	// FileName 上传文件名
	FileName string `json:"file_name"`
	// FileSize 上传文件大小（字节）
	FileSize int64 `json:"file_size"`
	// Status 当前状态
	Status ReportStatus `json:"status"`
	// SubmittedBy 提交人用户 ID
	SubmittedBy string `json:"submitted_by"`
	// SubmittedAt 提交时间
	SubmittedAt time.Time `json:"submitted_at"`

	// Validation 校验结果，校验阶段完成后填充
	Validation *ValidationResult `json:"validation,omitempty"`
	// Risk 风险分析结果，分析阶段完成后填充
	Risk *RiskAnalysis `json:"risk,omitempty"`

	// ReviewedBy 审核人用户 ID，系统拒绝时为空
	ReviewedBy string `json:"reviewed_by,omitempty"`
	// ReviewedAt 审核时间
	ReviewedAt *time.Time `json:"reviewed_at,omitempty"`
	// ReviewComment 审核意见
	ReviewComment string `json:"review_comment,omitempty"`
}

// MinRejectCommentLen 拒绝意见最少字符数（去除首尾空白后）
const MinRejectCommentLen = 10

// NewReport 创建报告，初始状态为 VALIDATING
func NewReport(entityCode, entityName string, reportType ReportType, fileName string, fileSize int64, submittedBy string) (*Report, error) {
	if !reportType.Valid() {
		return nil, ErrInvalidInput
	}
	return &Report{
		ReportID:    uuid.New().String(),
		EntityCode:  entityCode,
		EntityName:  entityName,
		Type:        reportType,
		FileName:    fileName,
		FileSize:    fileSize,
		Status:      StatusValidating,
		SubmittedBy: submittedBy,
		SubmittedAt: time.Now(),
	}, nil
}

// ApplyValidation 记录校验结果并执行自动转移：
// 不通过 → REJECTED（系统拒绝，不填审核字段）；通过 → SUBMITTED。
func (r *Report) ApplyValidation(result ValidationResult) error {
	if r.Status != StatusValidating {
		return ErrInvalidTransition
	}

	if result.ValidatedAt.IsZero() {
		result.ValidatedAt = time.Now()
	}
	r.Validation = &result

	if result.IsValid {
		r.Status = StatusSubmitted
	} else {
		r.Status = StatusRejected
	}
	return nil
}

// ApplyRiskAnalysis 记录风险分析结果，等级由评分重新推导
func (r *Report) ApplyRiskAnalysis(analysis RiskAnalysis) {
	analysis.RiskLevel = RiskLevelFromScore(analysis.RiskScore)
	r.Risk = &analysis
}

// AppendWarning 向校验警告列表追加一条警告
func (r *Report) AppendWarning(warning string) {
	if r.Validation == nil {
		r.Validation = &ValidationResult{IsValid: true, Confidence: 1.0, ValidatedAt: time.Now()}
	}
	r.Validation.Warnings = append(r.Validation.Warnings, warning)
}

// Approve 审核通过。仅允许 SUBMITTED 状态，意见可选。
func (r *Report) Approve(reviewerID, comment string) error {
	if r.Status != StatusSubmitted {
		return ErrInvalidTransition
	}

	now := time.Now()
	r.Status = StatusApproved
	r.ReviewedBy = reviewerID
	r.ReviewedAt = &now
	r.ReviewComment = strings.TrimSpace(comment)
	return nil
}

// Reject 审核拒绝。仅允许 SUBMITTED 状态，意见去除空白后不少于 10 个字符。
func (r *Report) Reject(reviewerID, comment string) error {
	if r.Status != StatusSubmitted {
		return ErrInvalidTransition
	}

	comment = strings.TrimSpace(comment)
	if len([]rune(comment)) < MinRejectCommentLen {
		return ErrInvalidInput
	}

	now := time.Now()
	r.Status = StatusRejected
	r.ReviewedBy = reviewerID
	r.ReviewedAt = &now
	r.ReviewComment = comment
	return nil
}

// RequiresEscalation 是否需要升级：评分 > 7 或异常数 ≥ 3。
// 仅做标记，不触发 ESCALATED 转移。
func (r *Report) RequiresEscalation() bool {
	if r.Risk == nil {
		return false
	}
	return r.Risk.RiskScore > 7 || len(r.Risk.Anomalies) >= 3
}

// IsSystemRejected 是否为系统拒绝（校验不通过导致，无审核人）
func (r *Report) IsSystemRejected() bool {
	return r.Status == StatusRejected && r.ReviewedBy == ""
}

// RiskScoreOrZero 返回风险评分，未分析时按 0 处理（用于排序）
func (r *Report) RiskScoreOrZero() float64 {
	if r.Risk == nil {
		return 0
	}
	return r.Risk.RiskScore
}
