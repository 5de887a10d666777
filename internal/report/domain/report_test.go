package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRiskLevelFromScore(t *testing.T) {
	tests := []struct {
		name  string
		score float64
		want  RiskLevel
	}{
		{"zero", 0, RiskLevelLow},
		{"just below low boundary", 4.99, RiskLevelLow},
		{"low boundary", 5, RiskLevelMedium},
		{"mid medium", 6.5, RiskLevelMedium},
		{"medium boundary", 7, RiskLevelHigh},
		{"max", 10, RiskLevelHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RiskLevelFromScore(tt.score))
			// 重复推导结果不变
			assert.Equal(t, tt.want, RiskLevelFromScore(tt.score))
		})
	}
}

func TestNewReport(t *testing.T) {
	r, err := NewReport("MBANK001", "mBank S.A.", ReportTypeLiquidity, "q1.xlsx", 1024, "user-1")
	require.NoError(t, err)

	assert.NotEmpty(t, r.ReportID)
	assert.Equal(t, StatusValidating, r.Status)
	assert.False(t, r.SubmittedAt.IsZero())
	assert.Nil(t, r.Validation)
	assert.Nil(t, r.Risk)
}

func TestNewReportInvalidType(t *testing.T) {
	_, err := NewReport("MBANK001", "mBank S.A.", ReportType("payroll"), "q1.xlsx", 1024, "user-1")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestApplyValidationTransitions(t *testing.T) {
	t.Run("invalid result rejects without reviewer", func(t *testing.T) {
		r := mustNewReport(t)
		err := r.ApplyValidation(ValidationResult{
			IsValid:    false,
			Confidence: 1.0,
			Errors:     []ValidationError{{Column: "file", Row: 0, Issue: "parse failure"}},
		})
		require.NoError(t, err)

		assert.Equal(t, StatusRejected, r.Status)
		assert.Empty(t, r.ReviewedBy)
		assert.True(t, r.IsSystemRejected())
	})

	t.Run("valid result moves to submitted", func(t *testing.T) {
		r := mustNewReport(t)
		err := r.ApplyValidation(ValidationResult{IsValid: true, Confidence: 0.95})
		require.NoError(t, err)

		assert.Equal(t, StatusSubmitted, r.Status)
		assert.False(t, r.Validation.ValidatedAt.IsZero())
	})

	t.Run("only allowed from validating", func(t *testing.T) {
		r := mustNewReport(t)
		require.NoError(t, r.ApplyValidation(ValidationResult{IsValid: true, Confidence: 1}))

		err := r.ApplyValidation(ValidationResult{IsValid: true, Confidence: 1})
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})
}

func TestApproveGuards(t *testing.T) {
	r := submittedReport(t)

	require.NoError(t, r.Approve("supervisor-1", "ok"))
	assert.Equal(t, StatusApproved, r.Status)
	assert.Equal(t, "supervisor-1", r.ReviewedBy)
	require.NotNil(t, r.ReviewedAt)
	assert.False(t, r.ReviewedAt.Before(r.SubmittedAt))

	// 第二次审批必须失败且无副作用
	before := *r
	err := r.Approve("supervisor-2", "again")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, before.Status, r.Status)
	assert.Equal(t, before.ReviewedBy, r.ReviewedBy)
}

func TestRejectCommentLength(t *testing.T) {
	t.Run("nine characters fails", func(t *testing.T) {
		r := submittedReport(t)
		err := r.Reject("supervisor-1", "123456789")
		assert.ErrorIs(t, err, ErrInvalidInput)
		assert.Equal(t, StatusSubmitted, r.Status)
	})

	t.Run("ten trimmed characters succeeds", func(t *testing.T) {
		r := submittedReport(t)
		err := r.Reject("supervisor-1", "  1234567890  ")
		require.NoError(t, err)
		assert.Equal(t, StatusRejected, r.Status)
		assert.Equal(t, "1234567890", r.ReviewComment)
		assert.False(t, r.IsSystemRejected())
	})

	t.Run("whitespace padding does not count", func(t *testing.T) {
		r := submittedReport(t)
		err := r.Reject("supervisor-1", "   short        ")
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestRejectOnNonSubmitted(t *testing.T) {
	r := mustNewReport(t)
	err := r.Reject("supervisor-1", "long enough comment")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, StatusValidating, r.Status)
}

func TestApplyRiskAnalysisDerivesLevel(t *testing.T) {
	r := submittedReport(t)

	r.ApplyRiskAnalysis(RiskAnalysis{RiskScore: 8.2, RiskLevel: RiskLevelLow})
	// 等级必须由评分重新推导，传入值被忽略
	assert.Equal(t, RiskLevelHigh, r.Risk.RiskLevel)
	assert.Equal(t, 8.2, r.RiskScoreOrZero())
}

func TestRequiresEscalation(t *testing.T) {
	tests := []struct {
		name      string
		score     float64
		anomalies []string
		want      bool
	}{
		{"low score no anomalies", 3, nil, false},
		{"score above seven", 7.1, nil, true},
		{"exactly seven", 7, nil, false},
		{"three anomalies", 2, []string{"a", "b", "c"}, true},
		{"two anomalies", 2, []string{"a", "b"}, false},
		{"both triggers", 9, []string{"a", "b", "c", "d"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := submittedReport(t)
			r.ApplyRiskAnalysis(RiskAnalysis{RiskScore: tt.score, Anomalies: tt.anomalies})
			assert.Equal(t, tt.want, r.RequiresEscalation())
		})
	}

	t.Run("no analysis means no escalation", func(t *testing.T) {
		r := submittedReport(t)
		assert.False(t, r.RequiresEscalation())
	})
}

func TestPriorityScore(t *testing.T) {
	tests := []struct {
		name     string
		analysis RiskAnalysis
		want     int
	}{
		{"routine no anomalies", RiskAnalysis{RiskScore: 5, Urgency: UrgencyRoutine}, 50},
		{"urgent bonus", RiskAnalysis{RiskScore: 5, Urgency: UrgencyUrgent}, 70},
		{"critical bonus", RiskAnalysis{RiskScore: 5, Urgency: UrgencyCritical}, 100},
		{"anomaly bonus", RiskAnalysis{RiskScore: 5, Urgency: UrgencyRoutine, Anomalies: []string{"a", "b"}}, 60},
		{"anomaly bonus capped", RiskAnalysis{RiskScore: 5, Urgency: UrgencyRoutine, Anomalies: []string{"a", "b", "c", "d", "e", "f"}}, 70},
		{"rounding", RiskAnalysis{RiskScore: 7.26, Urgency: UrgencyRoutine}, 73},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.analysis.PriorityScore())
		})
	}
}

func TestAppendWarning(t *testing.T) {
	r := submittedReport(t)
	r.AppendWarning("risk analysis unavailable")
	require.NotNil(t, r.Validation)
	assert.Contains(t, r.Validation.Warnings, "risk analysis unavailable")
}

func TestNeedsManualReview(t *testing.T) {
	assert.True(t, ValidationResult{IsValid: true, Confidence: 0.79}.NeedsManualReview())
	assert.False(t, ValidationResult{IsValid: true, Confidence: 0.8}.NeedsManualReview())
}

func mustNewReport(t *testing.T) *Report {
	t.Helper()
	r, err := NewReport("MBANK001", "mBank S.A.", ReportTypeLiquidity, "q1.xlsx", 1024, "user-1")
	require.NoError(t, err)
	return r
}

func submittedReport(t *testing.T) *Report {
	t.Helper()
	r := mustNewReport(t)
	require.NoError(t, r.ApplyValidation(ValidationResult{IsValid: true, Confidence: 0.95}))
	return r
}
