package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wyfcoding/supervision/internal/notification/domain"
	"github.com/wyfcoding/supervision/pkg/logger"
)

// NotificationModel 通知数据库模型
type NotificationModel struct {
	gorm.Model
	NotificationID string     `gorm:"column:notification_id;type:varchar(36);uniqueIndex;not null"`
	UserID         string     `gorm:"column:user_id;type:varchar(36);index;not null"`
	ReportID       string     `gorm:"column:report_id;type:varchar(36);index"`
	Type           string     `gorm:"column:type;type:varchar(30);not null"`
	Title          string     `gorm:"column:title;type:varchar(200);not null"`
	Message        string     `gorm:"column:message;type:text"`
	Context        []byte     `gorm:"column:context;type:json"`
	Read           bool       `gorm:"column:read;not null;default:false"`
	ReadAt         *time.Time `gorm:"column:read_at;type:datetime"`
	ExpiresAt      *time.Time `gorm:"column:expires_at;type:datetime;index"`
}

// TableName 指定表名
func (NotificationModel) TableName() string {
	return "notifications"
}

// notificationRepositoryImpl 是 domain.NotificationRepository 接口的 GORM 实现
type notificationRepositoryImpl struct {
	db *gorm.DB
}

// NewNotificationRepository 创建通知仓储实例
func NewNotificationRepository(db *gorm.DB) domain.NotificationRepository {
	return &notificationRepositoryImpl{db: db}
}

// Save 实现 domain.NotificationRepository.Save
func (r *notificationRepositoryImpl) Save(ctx context.Context, n *domain.Notification) error {
	var contextJSON []byte
	if len(n.Context) > 0 {
		data, err := json.Marshal(n.Context)
		if err != nil {
			return fmt.Errorf("failed to marshal notification context: %w", err)
		}
		contextJSON = data
	}

	m := &NotificationModel{
		Model:          n.Model,
		NotificationID: n.NotificationID,
		UserID:         n.UserID,
		ReportID:       n.ReportID,
		Type:           string(n.Type),
		Title:          n.Title,
		Message:        n.Message,
		Context:        contextJSON,
		Read:           n.Read,
		ReadAt:         n.ReadAt,
		ExpiresAt:      n.ExpiresAt,
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "notification_id"}},
		UpdateAll: true,
	}).Create(m).Error
	if err != nil {
		logger.Error(ctx, "notification_repository.Save failed", "notification_id", n.NotificationID, "error", err)
		return fmt.Errorf("failed to save notification: %w", err)
	}

	n.Model = m.Model
	return nil
}

// GetByID 实现 domain.NotificationRepository.GetByID
func (r *notificationRepositoryImpl) GetByID(ctx context.Context, notificationID string) (*domain.Notification, error) {
	var m NotificationModel
	if err := r.db.WithContext(ctx).Where("notification_id = ?", notificationID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}
	return notificationToDomain(&m)
}

// ListByUser 实现 domain.NotificationRepository.ListByUser
func (r *notificationRepositoryImpl) ListByUser(ctx context.Context, userID string, limit int) ([]*domain.Notification, error) {
	db := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at desc")
	if limit > 0 {
		db = db.Limit(limit)
	}

	var ms []NotificationModel
	if err := db.Find(&ms).Error; err != nil {
		logger.Error(ctx, "notification_repository.ListByUser failed", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}

	out := make([]*domain.Notification, 0, len(ms))
	for i := range ms {
		n, err := notificationToDomain(&ms[i])
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func notificationToDomain(m *NotificationModel) (*domain.Notification, error) {
	var contextMap map[string]string
	if len(m.Context) > 0 {
		if err := json.Unmarshal(m.Context, &contextMap); err != nil {
			return nil, fmt.Errorf("failed to unmarshal notification context: %w", err)
		}
	}

	return &domain.Notification{
		Model:          m.Model,
		NotificationID: m.NotificationID,
		UserID:         m.UserID,
		ReportID:       m.ReportID,
		Type:           domain.NotificationType(m.Type),
		Title:          m.Title,
		Message:        m.Message,
		Context:        contextMap,
		Read:           m.Read,
		ReadAt:         m.ReadAt,
		ExpiresAt:      m.ExpiresAt,
	}, nil
}
