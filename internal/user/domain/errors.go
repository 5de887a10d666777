package domain

import "errors"

// 领域错误定义
var (
	// ErrInvalidToken 身份令牌无效或过期
	ErrInvalidToken = errors.New("invalid identity token")
	// ErrNoRoles 用户创建时角色集合为空
	ErrNoRoles = errors.New("user must have at least one role")
	// ErrNotFound 用户不存在
	ErrNotFound = errors.New("user not found")
	// ErrSelfDeactivation 管理员不能停用自己
	ErrSelfDeactivation = errors.New("cannot deactivate own account")
	// ErrInvalidRole 未知角色
	ErrInvalidRole = errors.New("invalid role")
)
