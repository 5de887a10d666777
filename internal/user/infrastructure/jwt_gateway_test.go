package infrastructure

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/supervision/internal/user/domain"
)

func TestIssueAndValidateToken(t *testing.T) {
	gw := NewJWTGateway("test-secret", time.Hour)

	token, err := gw.IssueToken(&domain.Claims{
		Subject:      "sub-1",
		Email:        "officer@mbank.pl",
		Name:         "Jan Kowalski",
		Roles:        []string{"entity_officer"},
		EntityAccess: []string{"MBANK001"},
		EntityNames:  []string{"mBank S.A."},
	})
	require.NoError(t, err)

	claims, err := gw.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "officer@mbank.pl", claims.Email)
	assert.Equal(t, []string{"entity_officer"}, claims.Roles)
	assert.Equal(t, []string{"MBANK001"}, claims.EntityAccess)
}

func TestValidateTokenFailures(t *testing.T) {
	gw := NewJWTGateway("test-secret", time.Hour)

	_, err := gw.ValidateToken(context.Background(), "garbage")
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	// 其他密钥签发的令牌不被接受
	other := NewJWTGateway("other-secret", time.Hour)
	token, err := other.IssueToken(&domain.Claims{Email: "a@b.pl", Roles: []string{"entity_officer"}})
	require.NoError(t, err)
	_, err = gw.ValidateToken(context.Background(), token)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestValidateExpiredToken(t *testing.T) {
	gw := NewJWTGateway("test-secret", -time.Minute)
	token, err := gw.IssueToken(&domain.Claims{Email: "a@b.pl", Roles: []string{"entity_officer"}})
	require.NoError(t, err)

	_, err = gw.ValidateToken(context.Background(), token)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestMemoryUserRepository(t *testing.T) {
	repo := NewMemoryUserRepository()
	ctx := context.Background()

	u, err := domain.NewUser("a@b.pl", "A", []domain.Role{domain.RoleEntityOfficer}, []string{"MBANK001"})
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, u))

	got, err := repo.GetByEmail(ctx, "a@b.pl")
	require.NoError(t, err)
	assert.Equal(t, u.UserID, got.UserID)

	got, err = repo.GetByID(ctx, u.UserID)
	require.NoError(t, err)
	assert.Equal(t, "a@b.pl", got.Email)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
