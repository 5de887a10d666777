package judge

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/wyfcoding/supervision/internal/audit"
	"github.com/wyfcoding/supervision/internal/report/domain"
	"github.com/wyfcoding/supervision/internal/report/infrastructure/extract"
	"github.com/wyfcoding/supervision/pkg/logger"
	"github.com/wyfcoding/supervision/pkg/metrics"
)

type reportIDKey struct{}

// WithReportID 把报告 ID 放入 context，审计记录会带上它
func WithReportID(ctx context.Context, reportID string) context.Context {
	return context.WithValue(ctx, reportIDKey{}, reportID)
}

func reportIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(reportIDKey{}).(string); ok {
		return id
	}
	return ""
}

// AuditedProvider 给任意判定提供方加上审计记录和调用指标。
// 成功和失败都会落一条记录；审计写入失败只记日志，不影响判定结果。
type AuditedProvider struct {
	inner    Provider
	recorder audit.Recorder
	metrics  *metrics.Metrics
}

// NewAuditedProvider 包装判定提供方，metrics 可为 nil
func NewAuditedProvider(inner Provider, recorder audit.Recorder, m *metrics.Metrics) *AuditedProvider {
	return &AuditedProvider{inner: inner, recorder: recorder, metrics: m}
}

// Name 实现 Provider.Name
func (p *AuditedProvider) Name() string {
	return p.inner.Name()
}

// Model 实现 Provider.Model
func (p *AuditedProvider) Model(agent string) string {
	return p.inner.Model(agent)
}

// Health 实现 Provider.Health，探活不记审计
func (p *AuditedProvider) Health(ctx context.Context) error {
	return p.inner.Health(ctx)
}

func (p *AuditedProvider) record(ctx context.Context, agent string, input []byte, output string, callErr error, start time.Time) {
	duration := time.Since(start)

	if p.metrics != nil {
		result := "success"
		if callErr != nil {
			result = "failure"
		}
		p.metrics.JudgeCallsTotal.WithLabelValues(agent, result).Inc()
		p.metrics.JudgeCallDuration.WithLabelValues(agent).Observe(duration.Seconds())
	}

	entry := audit.Entry{
		Agent:       agent,
		Provider:    p.inner.Name(),
		Model:       p.inner.Model(agent),
		ReportID:    reportIDFrom(ctx),
		InputDigest: audit.Digest(input),
		Duration:    duration,
		Timestamp:   time.Now(),
	}
	if callErr != nil {
		entry.Error = callErr.Error()
	} else {
		entry.Output = output
	}

	if err := p.recorder.Record(ctx, entry); err != nil {
		logger.Error(ctx, "audit record failed", "agent", agent, "error", err)
	}
}

// Validate 实现 Provider.Validate
func (p *AuditedProvider) Validate(ctx context.Context, table *extract.Table, reportType domain.ReportType) (domain.ValidationResult, error) {
	start := time.Now()
	input, _ := json.Marshal(table)

	result, err := p.inner.Validate(ctx, table, reportType)

	output := ""
	if err == nil {
		output = fmt.Sprintf("is_valid=%t confidence=%.2f errors=%d warnings=%d",
			result.IsValid, result.Confidence, len(result.Errors), len(result.Warnings))
	}
	p.record(ctx, "validate", input, output, err, start)
	return result, err
}

// AnalyzeRisk 实现 Provider.AnalyzeRisk
func (p *AuditedProvider) AnalyzeRisk(ctx context.Context, table *extract.Table, reportType domain.ReportType) (domain.RiskAnalysis, error) {
	start := time.Now()
	input, _ := json.Marshal(table)

	analysis, err := p.inner.AnalyzeRisk(ctx, table, reportType)

	output := ""
	if err == nil {
		output = fmt.Sprintf("score=%.1f level=%s urgency=%s anomalies=%d",
			analysis.RiskScore, analysis.RiskLevel, analysis.Urgency, len(analysis.Anomalies))
	}
	p.record(ctx, "analyze_risk", input, output, err, start)
	return analysis, err
}

// ComposeMessage 实现 Provider.ComposeMessage
func (p *AuditedProvider) ComposeMessage(ctx context.Context, req ComposeRequest) (string, error) {
	start := time.Now()
	input, _ := json.Marshal(req)

	message, err := p.inner.ComposeMessage(ctx, req)
	p.record(ctx, "compose_message", input, message, err, start)
	return message, err
}
