// Package infrastructure 通知仓储的进程内与 MySQL 实现
package infrastructure

import (
	"context"
	"sort"
	"sync"

	"github.com/wyfcoding/supervision/internal/notification/domain"
)

// MemoryNotificationRepository 通知仓储的进程内实现
type MemoryNotificationRepository struct {
	mu    sync.RWMutex
	items map[string]*domain.Notification
}

// NewMemoryNotificationRepository 创建进程内通知仓储
func NewMemoryNotificationRepository() *MemoryNotificationRepository {
	return &MemoryNotificationRepository{
		items: make(map[string]*domain.Notification),
	}
}

// Save 实现 domain.NotificationRepository.Save
func (r *MemoryNotificationRepository) Save(ctx context.Context, n *domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *n
	r.items[n.NotificationID] = &cp
	return nil
}

// GetByID 实现 domain.NotificationRepository.GetByID
func (r *MemoryNotificationRepository) GetByID(ctx context.Context, notificationID string) (*domain.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n, ok := r.items[notificationID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *n
	return &cp, nil
}

// ListByUser 实现 domain.NotificationRepository.ListByUser
func (r *MemoryNotificationRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*domain.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.Notification
	for _, n := range r.items {
		if n.UserID != userID {
			continue
		}
		cp := *n
		out = append(out, &cp)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
