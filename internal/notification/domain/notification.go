// Package domain 通知的领域模型
package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NotificationType 通知类型
type NotificationType string

const (
	TypeReportSubmitted NotificationType = "REPORT_SUBMITTED" // 新报告等待审核
	TypeReportApproved  NotificationType = "REPORT_APPROVED"  // 报告审核通过
	TypeReportRejected  NotificationType = "REPORT_REJECTED"  // 报告被拒绝
)

// 通知有效期：审核提醒 7 天，决定结果 30 天
const (
	SupervisorNoticeTTL = 7 * 24 * time.Hour
	DecisionNoticeTTL   = 30 * 24 * time.Hour
)

// Notification 通知实体。只由通知分发服务创建；
// 只有归属用户可以标记已读；过期通知在查询侧过滤，从不删除。
type Notification struct {
	gorm.Model
	// NotificationID 通知业务 ID
	NotificationID string `json:"notification_id"`
	// UserID 接收用户 ID
	UserID string `json:"user_id"`
	// ReportID 来源报告 ID
	ReportID string `json:"report_id"`
	// Type 通知类型
	Type NotificationType `json:"type"`
	// Title 标题
	Title string `json:"title"`
	// Message 正文
	Message string `json:"message"`
	// Context 附加上下文（机构名、报告类型、决定时间、拒绝原因等）
	Context map[string]string `json:"context,omitempty"`
	// Read 是否已读
	Read bool `json:"read"`
	// ReadAt 已读时间
	ReadAt *time.Time `json:"read_at,omitempty"`
	// ExpiresAt 过期时间，nil 表示不过期
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// New 创建通知，ttl 为 0 表示不过期。
// CreatedAt 在构造时落定，内存仓储按它排序，不等持久化层补。
func New(userID, reportID string, typ NotificationType, title, message string, context map[string]string, ttl time.Duration) *Notification {
	now := time.Now()
	n := &Notification{
		NotificationID: uuid.New().String(),
		UserID:         userID,
		ReportID:       reportID,
		Type:           typ,
		Title:          title,
		Message:        message,
		Context:        context,
	}
	n.CreatedAt = now
	if ttl > 0 {
		expires := now.Add(ttl)
		n.ExpiresAt = &expires
	}
	return n
}

// Expired 是否已过期，查询时惰性判断
func (n *Notification) Expired(now time.Time) bool {
	return n.ExpiresAt != nil && now.After(*n.ExpiresAt)
}

// MarkRead 标记已读。只允许归属用户调用，越权返回 ErrNotOwner。
func (n *Notification) MarkRead(userID string) error {
	if n.UserID != userID {
		return ErrNotOwner
	}
	if !n.Read {
		now := time.Now()
		n.Read = true
		n.ReadAt = &now
	}
	return nil
}
