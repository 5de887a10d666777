package application

import (
	"context"
	"fmt"

	reportdomain "github.com/wyfcoding/supervision/internal/report/domain"
	"github.com/wyfcoding/supervision/internal/user/domain"
	"github.com/wyfcoding/supervision/pkg/logger"
)

// AuthService 认证用例。用户只在这里创建或更新：
// 令牌校验成功后按声明 upsert，报告处理代码从不写用户。
type AuthService struct {
	gateway domain.IdentityGateway
	repo    domain.UserRepository
}

// NewAuthService 创建认证服务
func NewAuthService(gateway domain.IdentityGateway, repo domain.UserRepository) *AuthService {
	return &AuthService{gateway: gateway, repo: repo}
}

// Authenticate 校验令牌并返回（必要时先创建）对应的启用用户
func (s *AuthService) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	claims, err := s.gateway.ValidateToken(ctx, token)
	if err != nil {
		return nil, err
	}

	roles := make([]domain.Role, 0, len(claims.Roles))
	for _, r := range claims.Roles {
		role, err := domain.ParseRole(r)
		if err != nil {
			logger.Warn(ctx, "ignoring unknown role from identity provider", "role", r, "email", claims.Email)
			continue
		}
		roles = append(roles, role)
	}

	user, err := s.repo.GetByEmail(ctx, claims.Email)
	switch {
	case err == nil:
		// 声明是权威来源，登录时同步角色与机构权限
		user.Name = claims.Name
		user.Roles = roles
		user.EntityAccess = claims.EntityAccess
		if len(roles) == 0 {
			return nil, domain.ErrNoRoles
		}
	case err == domain.ErrNotFound:
		user, err = domain.NewUser(claims.Email, claims.Name, roles, claims.EntityAccess)
		if err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	if !user.Active {
		return nil, fmt.Errorf("%w: account deactivated", domain.ErrInvalidToken)
	}

	user.TouchLogin()
	if err := s.repo.Save(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// AdminService 管理用例，所有操作要求 admin 角色本身
type AdminService struct {
	repo domain.UserRepository
}

// NewAdminService 创建管理服务
func NewAdminService(repo domain.UserRepository) *AdminService {
	return &AdminService{repo: repo}
}

// ListUsers 按角色和启用状态过滤用户列表
func (s *AdminService) ListUsers(ctx context.Context, actor *domain.User, roleFilter string, activeOnly bool) ([]*domain.User, error) {
	if !actor.IsAdmin() {
		return nil, reportdomain.ErrAccessDenied
	}

	users, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]*domain.User, 0, len(users))
	for _, u := range users {
		if activeOnly && !u.Active {
			continue
		}
		if roleFilter != "" {
			role, err := domain.ParseRole(roleFilter)
			if err != nil {
				return nil, err
			}
			if !u.HasRole(role) {
				continue
			}
		}
		out = append(out, u)
	}
	return out, nil
}

// DeactivateUser 停用用户，管理员不能停用自己
func (s *AdminService) DeactivateUser(ctx context.Context, actor *domain.User, userID string) error {
	if !actor.IsAdmin() {
		return reportdomain.ErrAccessDenied
	}
	if actor.UserID == userID {
		return domain.ErrSelfDeactivation
	}

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	user.Deactivate()
	if err := s.repo.Save(ctx, user); err != nil {
		return err
	}
	logger.Info(ctx, "user deactivated", "user_id", userID, "by", actor.UserID)
	return nil
}

// AssignRole 给用户追加角色，重复授予是幂等的
func (s *AdminService) AssignRole(ctx context.Context, actor *domain.User, userID, role string) (*domain.User, error) {
	if !actor.IsAdmin() {
		return nil, reportdomain.ErrAccessDenied
	}

	parsed, err := domain.ParseRole(role)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	user.AssignRole(parsed)
	if err := s.repo.Save(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
