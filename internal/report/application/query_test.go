package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/supervision/internal/report/domain"
)

func seedReport(t *testing.T, fx *pipelineFixture, entityCode string, score *float64, submittedAt time.Time) *domain.Report {
	t.Helper()
	r, err := domain.NewReport(entityCode, entityCode, domain.ReportTypeLiquidity, "q.xlsx", 10, fx.officer.UserID)
	require.NoError(t, err)
	require.NoError(t, r.ApplyValidation(domain.ValidationResult{IsValid: true, Confidence: 1}))
	r.SubmittedAt = submittedAt
	if score != nil {
		r.ApplyRiskAnalysis(domain.RiskAnalysis{RiskScore: *score})
	}
	require.NoError(t, fx.reports.Save(context.Background(), r))
	return r
}

func ptr(f float64) *float64 { return &f }

func TestSupervisorListingSortedByPriority(t *testing.T) {
	fx := newPipelineFixture(t, nil)
	ctx := context.Background()
	base := time.Now()

	a := seedReport(t, fx, "MBANK001", ptr(8), base.Add(10*time.Minute))
	b := seedReport(t, fx, "PKOBP001", ptr(9), base.Add(5*time.Minute))
	c := seedReport(t, fx, "MBANK001", nil, base.Add(20*time.Minute))

	reports, err := fx.query.List(ctx, fx.supervisor, "", 0)
	require.NoError(t, err)
	require.Len(t, reports, 3)

	// 评分降序（缺失按 0），同分按提交时间降序
	assert.Equal(t, b.ReportID, reports[0].ReportID)
	assert.Equal(t, a.ReportID, reports[1].ReportID)
	assert.Equal(t, c.ReportID, reports[2].ReportID)
}

func TestEntityListingScopedAndSortedByRecency(t *testing.T) {
	fx := newPipelineFixture(t, nil)
	ctx := context.Background()
	base := time.Now()

	older := seedReport(t, fx, "MBANK001", ptr(9), base.Add(-time.Hour))
	newer := seedReport(t, fx, "MBANK001", ptr(1), base)
	seedReport(t, fx, "PKOBP001", ptr(10), base.Add(time.Hour))

	reports, err := fx.query.List(ctx, fx.officer, "", 0)
	require.NoError(t, err)
	require.Len(t, reports, 2)

	// 机构侧只按提交时间降序，评分不参与
	assert.Equal(t, newer.ReportID, reports[0].ReportID)
	assert.Equal(t, older.ReportID, reports[1].ReportID)

	// 任何状态过滤下都不会看到其他机构的报告
	for _, status := range []domain.ReportStatus{"", domain.StatusSubmitted, domain.StatusApproved, domain.StatusRejected} {
		scoped, err := fx.query.List(ctx, fx.officer, status, 0)
		require.NoError(t, err)
		for _, r := range scoped {
			assert.Equal(t, "MBANK001", r.EntityCode)
		}
	}
}

func TestGetEnforcesEntityMembership(t *testing.T) {
	fx := newPipelineFixture(t, nil)
	ctx := context.Background()

	foreign := seedReport(t, fx, "PKOBP001", ptr(5), time.Now())

	_, err := fx.query.Get(ctx, fx.officer, foreign.ReportID)
	assert.ErrorIs(t, err, domain.ErrAccessDenied)

	got, err := fx.query.Get(ctx, fx.supervisor, foreign.ReportID)
	require.NoError(t, err)
	assert.Equal(t, foreign.ReportID, got.ReportID)

	_, err = fx.query.Get(ctx, fx.supervisor, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
