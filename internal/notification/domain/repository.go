package domain

import (
	"context"
	"errors"
)

// 领域错误定义
var (
	// ErrNotFound 通知不存在
	ErrNotFound = errors.New("notification not found")
	// ErrNotOwner 操作者不是通知的归属用户
	ErrNotOwner = errors.New("notification belongs to another user")
)

// NotificationRepository 通知仓储接口
type NotificationRepository interface {
	// Save 保存通知（插入或按 notification_id 覆盖）
	Save(ctx context.Context, n *Notification) error
	// GetByID 按业务 ID 查询，不存在时返回 ErrNotFound
	GetByID(ctx context.Context, notificationID string) (*Notification, error)
	// ListByUser 查询用户的全部通知，按创建时间倒序
	ListByUser(ctx context.Context, userID string, limit int) ([]*Notification, error)
}
