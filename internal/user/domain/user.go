// Package domain 用户与角色的领域模型，集中承载访问控制判定
package domain

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role 用户角色
type Role string

const (
	RoleEntityOfficer  Role = "entity_officer"  // 受监管机构报送员
	RoleUKNFSupervisor Role = "uknf_supervisor" // 监管审核员
	RoleUKNFAdmin      Role = "uknf_admin"      // 监管管理员
)

// WildcardEntityAccess 通配所有机构的访问标记，UKNF 角色持有
const WildcardEntityAccess = "*"

// ParseRole 解析角色字符串，未知角色返回 ErrInvalidRole
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleEntityOfficer, RoleUKNFSupervisor, RoleUKNFAdmin:
		return Role(s), nil
	}
	return "", ErrInvalidRole
}

// User 用户实体。只由认证用例在令牌校验成功后创建或更新。
type User struct {
	gorm.Model
	// UserID 用户业务 ID
	UserID string `json:"user_id"`
	// Email 邮箱，唯一标识
	Email string `json:"email"`
	// Name 显示名称
	Name string `json:"name"`
	// Roles 角色集合，创建时不允许为空
	Roles []Role `json:"roles"`
	// EntityAccess 可访问的机构代码集合，"*" 表示全部
	EntityAccess []string `json:"entity_access"`
	// Active 是否启用
	Active bool `json:"active"`
	// LastLoginAt 最近登录时间
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// NewUser 创建用户。角色集合为空时返回 ErrNoRoles。
func NewUser(email, name string, roles []Role, entityAccess []string) (*User, error) {
	if len(roles) == 0 {
		return nil, ErrNoRoles
	}
	return &User{
		UserID:       uuid.New().String(),
		Email:        email,
		Name:         name,
		Roles:        roles,
		EntityAccess: entityAccess,
		Active:       true,
	}, nil
}

// HasRole 是否持有指定角色
func (u *User) HasRole(role Role) bool {
	return slices.Contains(u.Roles, role)
}

// IsUKNF 是否为监管侧用户（审核员或管理员）
func (u *User) IsUKNF() bool {
	return u.HasRole(RoleUKNFSupervisor) || u.HasRole(RoleUKNFAdmin)
}

// IsAdmin 是否为管理员。管理操作要求该角色本身，仅 IsUKNF 不够。
func (u *User) IsAdmin() bool {
	return u.HasRole(RoleUKNFAdmin)
}

// CanReview 是否有报告审核权限
func (u *User) CanReview() bool {
	return u.IsUKNF()
}

// CanAccessEntity 是否可访问指定机构的数据
func (u *User) CanAccessEntity(entityCode string) bool {
	return slices.Contains(u.EntityAccess, WildcardEntityAccess) ||
		slices.Contains(u.EntityAccess, entityCode)
}

// AssignRole 追加角色，已持有时为幂等空操作
func (u *User) AssignRole(role Role) {
	if !u.HasRole(role) {
		u.Roles = append(u.Roles, role)
	}
}

// Deactivate 停用用户
func (u *User) Deactivate() {
	u.Active = false
}

// TouchLogin 更新最近登录时间
func (u *User) TouchLogin() {
	now := time.Now()
	u.LastLoginAt = &now
}
