package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wyfcoding/supervision/internal/user/domain"
	"github.com/wyfcoding/supervision/pkg/logger"
)

// UserModel 用户数据库模型，角色与机构权限序列化为 JSON 列
type UserModel struct {
	gorm.Model
	UserID       string     `gorm:"column:user_id;type:varchar(36);uniqueIndex;not null"`
	Email        string     `gorm:"column:email;type:varchar(200);uniqueIndex;not null"`
	Name         string     `gorm:"column:name;type:varchar(200)"`
	Roles        []byte     `gorm:"column:roles;type:json;not null"`
	EntityAccess []byte     `gorm:"column:entity_access;type:json"`
	Active       bool       `gorm:"column:active;not null;default:true"`
	LastLoginAt  *time.Time `gorm:"column:last_login_at;type:datetime"`
}

// TableName 指定表名
func (UserModel) TableName() string {
	return "users"
}

// userRepositoryImpl 是 domain.UserRepository 接口的 GORM 实现
type userRepositoryImpl struct {
	db *gorm.DB
}

// NewUserRepository 创建用户仓储实例
func NewUserRepository(db *gorm.DB) domain.UserRepository {
	return &userRepositoryImpl{db: db}
}

// Save 实现 domain.UserRepository.Save
func (r *userRepositoryImpl) Save(ctx context.Context, user *domain.User) error {
	roles, err := json.Marshal(user.Roles)
	if err != nil {
		return fmt.Errorf("failed to marshal roles: %w", err)
	}
	access, err := json.Marshal(user.EntityAccess)
	if err != nil {
		return fmt.Errorf("failed to marshal entity access: %w", err)
	}

	m := &UserModel{
		Model:        user.Model,
		UserID:       user.UserID,
		Email:        user.Email,
		Name:         user.Name,
		Roles:        roles,
		EntityAccess: access,
		Active:       user.Active,
		LastLoginAt:  user.LastLoginAt,
	}

	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		UpdateAll: true,
	}).Create(m).Error
	if err != nil {
		logger.Error(ctx, "user_repository.Save failed", "email", user.Email, "error", err)
		return fmt.Errorf("failed to save user: %w", err)
	}

	user.Model = m.Model
	return nil
}

// GetByID 实现 domain.UserRepository.GetByID
func (r *userRepositoryImpl) GetByID(ctx context.Context, userID string) (*domain.User, error) {
	return r.getOne(ctx, "user_id = ?", userID)
}

// GetByEmail 实现 domain.UserRepository.GetByEmail
func (r *userRepositoryImpl) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, "email = ?", email)
}

// GetAll 实现 domain.UserRepository.GetAll
func (r *userRepositoryImpl) GetAll(ctx context.Context) ([]*domain.User, error) {
	var ms []UserModel
	if err := r.db.WithContext(ctx).Order("email").Find(&ms).Error; err != nil {
		logger.Error(ctx, "user_repository.GetAll failed", "error", err)
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	out := make([]*domain.User, 0, len(ms))
	for i := range ms {
		user, err := userToDomain(&ms[i])
		if err != nil {
			return nil, err
		}
		out = append(out, user)
	}
	return out, nil
}

func (r *userRepositoryImpl) getOne(ctx context.Context, query string, arg any) (*domain.User, error) {
	var m UserModel
	if err := r.db.WithContext(ctx).Where(query, arg).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return userToDomain(&m)
}

func userToDomain(m *UserModel) (*domain.User, error) {
	var roles []domain.Role
	if err := json.Unmarshal(m.Roles, &roles); err != nil {
		return nil, fmt.Errorf("failed to unmarshal roles: %w", err)
	}
	var access []string
	if len(m.EntityAccess) > 0 {
		if err := json.Unmarshal(m.EntityAccess, &access); err != nil {
			return nil, fmt.Errorf("failed to unmarshal entity access: %w", err)
		}
	}

	return &domain.User{
		Model:        m.Model,
		UserID:       m.UserID,
		Email:        m.Email,
		Name:         m.Name,
		Roles:        roles,
		EntityAccess: access,
		Active:       m.Active,
		LastLoginAt:  m.LastLoginAt,
	}, nil
}
