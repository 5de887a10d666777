package domain

import "context"

// UserRepository 用户仓储接口
type UserRepository interface {
	// Save 保存用户（插入或按 email 覆盖）
	Save(ctx context.Context, user *User) error
	// GetByID 按业务 ID 查询，不存在时返回 ErrNotFound
	GetByID(ctx context.Context, userID string) (*User, error)
	// GetByEmail 按邮箱查询，不存在时返回 ErrNotFound
	GetByEmail(ctx context.Context, email string) (*User, error)
	// GetAll 查询全部用户
	GetAll(ctx context.Context) ([]*User, error)
}

// Claims 身份网关校验令牌后返回的声明
type Claims struct {
	Subject      string   `json:"sub"`
	Email        string   `json:"email"`
	Name         string   `json:"name,omitempty"`
	Roles        []string `json:"roles"`
	EntityAccess []string `json:"entity_access"`
	EntityNames  []string `json:"entity_names,omitempty"`
}

// IdentityGateway 身份网关接口，封装外部身份提供方的令牌校验
type IdentityGateway interface {
	// ValidateToken 校验令牌并返回声明，失败时返回 ErrInvalidToken
	ValidateToken(ctx context.Context, token string) (*Claims, error)
}
