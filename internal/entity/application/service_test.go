package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/supervision/internal/entity/domain"
	"github.com/wyfcoding/supervision/internal/entity/infrastructure"
	reportdomain "github.com/wyfcoding/supervision/internal/report/domain"
	userdomain "github.com/wyfcoding/supervision/internal/user/domain"
)

func directoryFixture(t *testing.T) (*DirectoryService, *userdomain.User, *userdomain.User) {
	t.Helper()
	repo := infrastructure.NewMemoryEntityRepository()
	require.NoError(t, infrastructure.SeedDemoEntities(context.Background(), repo))

	supervisor, err := userdomain.NewUser("s@uknf.gov.pl", "S", []userdomain.Role{userdomain.RoleUKNFSupervisor}, []string{"*"})
	require.NoError(t, err)
	officer, err := userdomain.NewUser("o@mbank.pl", "O", []userdomain.Role{userdomain.RoleEntityOfficer}, []string{"MBANK001"})
	require.NoError(t, err)

	return NewDirectoryService(repo), supervisor, officer
}

func TestListAppliesEntityMembership(t *testing.T) {
	svc, supervisor, officer := directoryFixture(t)
	ctx := context.Background()

	all, err := svc.List(ctx, supervisor, "", "")
	require.NoError(t, err)
	assert.Len(t, all, 4)

	mine, err := svc.List(ctx, officer, "", "")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "MBANK001", mine[0].Code)
}

func TestListFilters(t *testing.T) {
	svc, supervisor, _ := directoryFixture(t)
	ctx := context.Background()

	banks, err := svc.List(ctx, supervisor, "bank", "")
	require.NoError(t, err)
	assert.Len(t, banks, 2)

	byName, err := svc.List(ctx, supervisor, "", "pzu")
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, "PZU001", byName[0].Code)
}

func TestGetEnforcesAccess(t *testing.T) {
	svc, _, officer := directoryFixture(t)
	ctx := context.Background()

	_, err := svc.Get(ctx, officer, "PKOBP001")
	assert.ErrorIs(t, err, reportdomain.ErrAccessDenied)

	entity, err := svc.Get(ctx, officer, "MBANK001")
	require.NoError(t, err)
	assert.Equal(t, "mBank S.A.", entity.Name)

	supervisor, err2 := userdomain.NewUser("x@uknf.gov.pl", "X", []userdomain.Role{userdomain.RoleUKNFAdmin}, []string{"*"})
	require.NoError(t, err2)
	_, err = svc.Get(ctx, supervisor, "GHOST001")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetStatistics(t *testing.T) {
	repo := infrastructure.NewMemoryEntityRepository()
	ctx := context.Background()
	require.NoError(t, repo.Save(ctx, &domain.Entity{
		Code: "MBANK001", Name: "mBank S.A.", Type: domain.EntityTypeBank,
		TotalReports: 60, ApprovedReports: 45, AvgRiskScore: 4.2,
	}))
	svc := NewDirectoryService(repo)

	supervisor, err := userdomain.NewUser("s@uknf.gov.pl", "S", []userdomain.Role{userdomain.RoleUKNFSupervisor}, []string{"*"})
	require.NoError(t, err)

	stats, err := svc.GetStatistics(ctx, supervisor, "MBANK001")
	require.NoError(t, err)
	assert.InDelta(t, 0.75, stats.ApprovalRate, 1e-9)
	assert.True(t, stats.HighVolume)
	assert.Equal(t, 4.2, stats.AvgRiskScore)
}
