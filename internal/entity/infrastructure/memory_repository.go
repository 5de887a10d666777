// Package infrastructure 机构仓储的进程内与 MySQL 实现
package infrastructure

import (
	"context"
	"sort"
	"sync"

	"github.com/wyfcoding/supervision/internal/entity/domain"
)

// MemoryEntityRepository 机构仓储的进程内实现
type MemoryEntityRepository struct {
	mu    sync.RWMutex
	items map[string]*domain.Entity
}

// NewMemoryEntityRepository 创建进程内机构仓储
func NewMemoryEntityRepository() *MemoryEntityRepository {
	return &MemoryEntityRepository{
		items: make(map[string]*domain.Entity),
	}
}

// Save 实现 domain.EntityRepository.Save
func (r *MemoryEntityRepository) Save(ctx context.Context, entity *domain.Entity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *entity
	r.items[entity.Code] = &cp
	return nil
}

// GetByCode 实现 domain.EntityRepository.GetByCode
func (r *MemoryEntityRepository) GetByCode(ctx context.Context, code string) (*domain.Entity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entity, ok := r.items[code]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *entity
	return &cp, nil
}

// GetAll 实现 domain.EntityRepository.GetAll
func (r *MemoryEntityRepository) GetAll(ctx context.Context) ([]*domain.Entity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Entity, 0, len(r.items))
	for _, entity := range r.items {
		cp := *entity
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// SeedDemoEntities 演示模式的机构目录
func SeedDemoEntities(ctx context.Context, repo domain.EntityRepository) error {
	demo := []*domain.Entity{
		{Code: "MBANK001", Name: "mBank S.A.", NIP: "5260215088", KRS: "0000025237", Type: domain.EntityTypeBank},
		{Code: "PKOBP001", Name: "PKO Bank Polski S.A.", NIP: "5250007738", KRS: "0000026438", Type: domain.EntityTypeBank},
		{Code: "PZU001", Name: "PZU S.A.", NIP: "5260251049", KRS: "0000009831", Type: domain.EntityTypeInsurance},
		{Code: "XTB001", Name: "XTB S.A.", NIP: "5272443955", KRS: "0000217580", Type: domain.EntityTypeBrokerage},
	}

	for _, e := range demo {
		if err := repo.Save(ctx, e); err != nil {
			return err
		}
	}
	return nil
}
