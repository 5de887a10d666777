package judge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/wyfcoding/supervision/internal/report/domain"
	"github.com/wyfcoding/supervision/internal/report/infrastructure/extract"
	"github.com/wyfcoding/supervision/pkg/logger"
)

// RemoteOptions 远端判定提供方配置
type RemoteOptions struct {
	BaseURL       string
	APIKey        string
	ValidateModel string
	AnalyzeModel  string
	ComposeModel  string
	Timeout       time.Duration
}

// RemoteProvider 调用 DeepSeek 兼容的 chat-completions 接口做判定。
// 所有失败都包装为 ErrProviderFailure，由调用方降级处理。
type RemoteProvider struct {
	client *resty.Client
	opts   RemoteOptions
}

// NewRemoteProvider 创建远端判定提供方
func NewRemoteProvider(opts RemoteOptions) *RemoteProvider {
	client := resty.New().
		SetBaseURL(opts.BaseURL).
		SetTimeout(opts.Timeout).
		SetHeader("Authorization", "Bearer "+opts.APIKey).
		SetHeader("Content-Type", "application/json").
		SetRetryCount(1)

	return &RemoteProvider{client: client, opts: opts}
}

// Name 实现 Provider.Name
func (p *RemoteProvider) Name() string {
	return "remote:" + p.opts.BaseURL
}

// Model 实现 Provider.Model，三类环节各自配置模型
func (p *RemoteProvider) Model(agent string) string {
	switch agent {
	case "validate":
		return p.opts.ValidateModel
	case "analyze_risk":
		return p.opts.AnalyzeModel
	case "compose_message":
		return p.opts.ComposeModel
	default:
		return ""
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	ResponseFormat *struct {
		Type string `json:"type"`
	} `json:"response_format,omitempty"`
	Temperature float64 `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// complete 发起一次对话补全，返回首个回复的文本内容
func (p *RemoteProvider) complete(ctx context.Context, model, system, user string, jsonMode bool) (string, error) {
	req := chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: 0.1,
	}
	if jsonMode {
		req.ResponseFormat = &struct {
			Type string `json:"type"`
		}{Type: "json_object"}
	}

	var out chatResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		Post("/chat/completions")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProviderFailure, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("%w: status %d: %s", ErrProviderFailure, resp.StatusCode(), resp.String())
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("%w: empty completion", ErrProviderFailure)
	}
	return out.Choices[0].Message.Content, nil
}

// tableDigest 给模型看的表格摘要
func tableDigest(table *extract.Table) string {
	digest := map[string]any{
		"row_count":          table.RowCount,
		"column_names":       table.Columns,
		"column_types":       table.ColumnTypes,
		"null_counts":        table.NullCounts,
		"sample_rows":        table.SampleRows,
		"summary_statistics": table.Statistics,
	}
	data, _ := json.Marshal(digest)
	return string(data)
}

// Validate 实现 Provider.Validate
func (p *RemoteProvider) Validate(ctx context.Context, table *extract.Table, reportType domain.ReportType) (domain.ValidationResult, error) {
	system := "You are a financial supervision report validator. " +
		"Respond with a JSON object: {\"is_valid\": bool, \"confidence\": number 0..1, " +
		"\"errors\": [{\"column\": string, \"row\": int, \"issue\": string}], \"warnings\": [string]}."
	user := fmt.Sprintf("Report type: %s. Validate this extracted table: %s", reportType, tableDigest(table))

	content, err := p.complete(ctx, p.opts.ValidateModel, system, user, true)
	if err != nil {
		return domain.ValidationResult{}, err
	}

	var result domain.ValidationResult
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		logger.Warn(ctx, "remote validate verdict not parseable", "error", err)
		return domain.ValidationResult{}, fmt.Errorf("%w: unparseable verdict: %v", ErrProviderFailure, err)
	}
	result.ValidatedAt = time.Now()
	return result, nil
}

// riskVerdict 远端风险分析响应
type riskVerdict struct {
	Category       string   `json:"category"`
	RiskScore      float64  `json:"risk_score"`
	Urgency        string   `json:"urgency"`
	Anomalies      []string `json:"anomalies"`
	KeyInsights    []string `json:"key_insights"`
	ReasoningChain string   `json:"reasoning_chain"`
	Confidence     float64  `json:"confidence"`
}

// AnalyzeRisk 实现 Provider.AnalyzeRisk
func (p *RemoteProvider) AnalyzeRisk(ctx context.Context, table *extract.Table, reportType domain.ReportType) (domain.RiskAnalysis, error) {
	start := time.Now()

	system := "You are a financial supervision risk analyst. " +
		"Respond with a JSON object: {\"category\": string, \"risk_score\": number 0..10, " +
		"\"urgency\": \"routine\"|\"urgent\"|\"critical\", \"anomalies\": [string], " +
		"\"key_insights\": [string], \"reasoning_chain\": string, \"confidence\": number 0..1}."
	user := fmt.Sprintf("Report type: %s. Analyze risk for this extracted table: %s", reportType, tableDigest(table))

	content, err := p.complete(ctx, p.opts.AnalyzeModel, system, user, true)
	if err != nil {
		return domain.RiskAnalysis{}, err
	}

	var verdict riskVerdict
	if err := json.Unmarshal([]byte(content), &verdict); err != nil {
		return domain.RiskAnalysis{}, fmt.Errorf("%w: unparseable verdict: %v", ErrProviderFailure, err)
	}

	if verdict.RiskScore < 0 {
		verdict.RiskScore = 0
	}
	if verdict.RiskScore > 10 {
		verdict.RiskScore = 10
	}

	urgency := domain.Urgency(verdict.Urgency)
	switch urgency {
	case domain.UrgencyRoutine, domain.UrgencyUrgent, domain.UrgencyCritical:
	default:
		urgency = domain.UrgencyRoutine
	}

	return domain.RiskAnalysis{
		Category:       verdict.Category,
		RiskScore:      verdict.RiskScore,
		RiskLevel:      domain.RiskLevelFromScore(verdict.RiskScore),
		Urgency:        urgency,
		Anomalies:      verdict.Anomalies,
		KeyInsights:    verdict.KeyInsights,
		ReasoningChain: verdict.ReasoningChain,
		Confidence:     verdict.Confidence,
		ProcessingTime: time.Since(start),
	}, nil
}

// ComposeMessage 实现 Provider.ComposeMessage
func (p *RemoteProvider) ComposeMessage(ctx context.Context, req ComposeRequest) (string, error) {
	system := "You compose short, formal Polish notification messages for a financial supervision portal. " +
		"Respond with the message text only."
	user := fmt.Sprintf("Decision: %s. Entity: %s. Report type: %s. Reason: %s",
		req.Decision, req.EntityName, req.ReportType, req.Reason)

	content, err := p.complete(ctx, p.opts.ComposeModel, system, user, false)
	if err != nil {
		return "", err
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return "", fmt.Errorf("%w: empty message", ErrProviderFailure)
	}
	return content, nil
}

// Health 探测远端接口可用性
func (p *RemoteProvider) Health(ctx context.Context) error {
	resp, err := p.client.R().SetContext(ctx).Get("/models")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderFailure, err)
	}
	if resp.IsError() {
		return fmt.Errorf("%w: status %d", ErrProviderFailure, resp.StatusCode())
	}
	return nil
}
