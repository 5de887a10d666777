package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStampsCreatedAt(t *testing.T) {
	before := time.Now()
	n := New("user-1", "report-1", TypeReportSubmitted, "t", "m", nil, SupervisorNoticeTTL)

	// 构造即落定创建时间，排序不依赖持久化层回填
	assert.False(t, n.CreatedAt.IsZero())
	assert.False(t, n.CreatedAt.Before(before))
	require.NotNil(t, n.ExpiresAt)
	assert.Equal(t, n.CreatedAt.Add(SupervisorNoticeTTL), *n.ExpiresAt)
}

func TestExpiry(t *testing.T) {
	n := New("user-1", "report-1", TypeReportSubmitted, "t", "m", nil, SupervisorNoticeTTL)
	require.NotNil(t, n.ExpiresAt)

	assert.False(t, n.Expired(time.Now()))
	assert.True(t, n.Expired(time.Now().Add(8*24*time.Hour)))

	// ttl 为 0 不设置过期
	forever := New("user-1", "report-1", TypeReportApproved, "t", "m", nil, 0)
	assert.Nil(t, forever.ExpiresAt)
	assert.False(t, forever.Expired(time.Now().Add(365*24*time.Hour)))
}

func TestMarkRead(t *testing.T) {
	n := New("user-1", "report-1", TypeReportApproved, "t", "m", nil, DecisionNoticeTTL)

	err := n.MarkRead("user-2")
	assert.ErrorIs(t, err, ErrNotOwner)
	assert.False(t, n.Read)

	require.NoError(t, n.MarkRead("user-1"))
	assert.True(t, n.Read)
	require.NotNil(t, n.ReadAt)
	assert.False(t, n.ReadAt.Before(n.CreatedAt))

	// 重复标记保持第一次的时间
	first := *n.ReadAt
	require.NoError(t, n.MarkRead("user-1"))
	assert.Equal(t, first, *n.ReadAt)
}
