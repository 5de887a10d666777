package judge

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/supervision/internal/audit"
	"github.com/wyfcoding/supervision/internal/report/domain"
	"github.com/wyfcoding/supervision/pkg/metrics"
)

type capturingRecorder struct {
	entries []audit.Entry
}

func (c *capturingRecorder) Record(ctx context.Context, entry audit.Entry) error {
	c.entries = append(c.entries, entry)
	return nil
}

func (c *capturingRecorder) Close() error { return nil }

func TestAuditedProviderRecordsSuccess(t *testing.T) {
	rec := &capturingRecorder{}
	p := NewAuditedProvider(NewRulesProvider(), rec, nil)

	ctx := WithReportID(context.Background(), "report-42")
	result, err := p.Validate(ctx, liquidityTable("1.25"), domain.ReportTypeLiquidity)
	require.NoError(t, err)
	assert.True(t, result.IsValid)

	require.Len(t, rec.entries, 1)
	entry := rec.entries[0]
	assert.Equal(t, "validate", entry.Agent)
	assert.Equal(t, "rules-engine", entry.Provider)
	assert.Equal(t, "rules-v1", entry.Model)
	assert.Equal(t, "report-42", entry.ReportID)
	assert.Len(t, entry.InputDigest, 64)
	assert.Contains(t, entry.Output, "is_valid=true")
	assert.Empty(t, entry.Error)
}

func TestAuditedProviderRecordsFailure(t *testing.T) {
	rec := &capturingRecorder{}
	p := NewAuditedProvider(NewRulesProvider(), rec, nil)

	_, err := p.ComposeMessage(context.Background(), ComposeRequest{Decision: "shredded"})
	require.ErrorIs(t, err, ErrProviderFailure)

	// 失败调用也必须留审计记录
	require.Len(t, rec.entries, 1)
	assert.Equal(t, "compose_message", rec.entries[0].Agent)
	assert.Equal(t, "rules-v1", rec.entries[0].Model)
	assert.NotEmpty(t, rec.entries[0].Error)
	assert.Empty(t, rec.entries[0].Output)
}

func TestRemoteProviderModelPerAgent(t *testing.T) {
	p := NewRemoteProvider(RemoteOptions{
		BaseURL:       "https://api.example.com",
		ValidateModel: "model-validate",
		AnalyzeModel:  "model-analyze",
		ComposeModel:  "model-compose",
	})

	assert.Equal(t, "model-validate", p.Model("validate"))
	assert.Equal(t, "model-analyze", p.Model("analyze_risk"))
	assert.Equal(t, "model-compose", p.Model("compose_message"))
	assert.Empty(t, p.Model("unknown"))
}

func TestAuditedProviderObservesMetrics(t *testing.T) {
	m := metrics.New("judge_test")
	p := NewAuditedProvider(NewRulesProvider(), &capturingRecorder{}, m)

	ctx := context.Background()
	_, err := p.Validate(ctx, liquidityTable("1.25"), domain.ReportTypeLiquidity)
	require.NoError(t, err)
	_, err = p.ComposeMessage(ctx, ComposeRequest{Decision: "shredded"})
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.JudgeCallsTotal.WithLabelValues("validate", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.JudgeCallsTotal.WithLabelValues("compose_message", "failure")))
	// 每个 agent 各记了一条耗时直方图
	assert.Equal(t, 2, testutil.CollectAndCount(m.JudgeCallDuration))
}

func TestAuditedProviderPassthrough(t *testing.T) {
	p := NewAuditedProvider(NewRulesProvider(), &capturingRecorder{}, nil)
	assert.Equal(t, "rules-engine", p.Name())
	assert.NoError(t, p.Health(context.Background()))
}
