package infrastructure

import (
	"context"
	"sort"
	"sync"

	"github.com/wyfcoding/supervision/internal/user/domain"
)

// MemoryUserRepository 用户仓储的进程内实现
type MemoryUserRepository struct {
	mu    sync.RWMutex
	byID  map[string]*domain.User
	byEml map[string]string
}

// NewMemoryUserRepository 创建进程内用户仓储
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		byID:  make(map[string]*domain.User),
		byEml: make(map[string]string),
	}
}

// Save 实现 domain.UserRepository.Save
func (r *MemoryUserRepository) Save(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *user
	r.byID[user.UserID] = &cp
	r.byEml[user.Email] = user.UserID
	return nil
}

// GetByID 实现 domain.UserRepository.GetByID
func (r *MemoryUserRepository) GetByID(ctx context.Context, userID string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byID[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *user
	return &cp, nil
}

// GetByEmail 实现 domain.UserRepository.GetByEmail
func (r *MemoryUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEml[email]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *r.byID[id]
	return &cp, nil
}

// GetAll 实现 domain.UserRepository.GetAll
func (r *MemoryUserRepository) GetAll(ctx context.Context) ([]*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.User, 0, len(r.byID))
	for _, user := range r.byID {
		cp := *user
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}
