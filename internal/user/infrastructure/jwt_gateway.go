// Package infrastructure 用户模块的基础设施实现：身份网关与仓储
package infrastructure

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/wyfcoding/supervision/internal/user/domain"
)

// sessionClaims 会话令牌的声明结构
type sessionClaims struct {
	Email        string   `json:"email"`
	Name         string   `json:"name,omitempty"`
	Roles        []string `json:"roles"`
	EntityAccess []string `json:"entity_access"`
	EntityNames  []string `json:"entity_names,omitempty"`
	jwt.RegisteredClaims
}

// JWTGateway 基于 HS256 会话令牌的身份网关实现
type JWTGateway struct {
	secret   []byte
	tokenTTL time.Duration
}

// NewJWTGateway 创建身份网关
func NewJWTGateway(secret string, tokenTTL time.Duration) *JWTGateway {
	return &JWTGateway{secret: []byte(secret), tokenTTL: tokenTTL}
}

// ValidateToken 实现 domain.IdentityGateway.ValidateToken
func (g *JWTGateway) ValidateToken(ctx context.Context, token string) (*domain.Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &sessionClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return g.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, domain.ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*sessionClaims)
	if !ok || claims.Email == "" {
		return nil, domain.ErrInvalidToken
	}

	return &domain.Claims{
		Subject:      claims.Subject,
		Email:        claims.Email,
		Name:         claims.Name,
		Roles:        claims.Roles,
		EntityAccess: claims.EntityAccess,
		EntityNames:  claims.EntityNames,
	}, nil
}

// IssueToken 签发会话令牌，供演示模式和测试使用
func (g *JWTGateway) IssueToken(claims *domain.Claims) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		Email:        claims.Email,
		Name:         claims.Name,
		Roles:        claims.Roles,
		EntityAccess: claims.EntityAccess,
		EntityNames:  claims.EntityNames,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(g.tokenTTL)),
		},
	})

	signed, err := token.SignedString(g.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}
