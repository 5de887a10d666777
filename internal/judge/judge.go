// Package judge 定义可插拔的判定提供方：结构化输入进，结构化结论或失败出。
// 同一接口覆盖三类调用：表格校验、风险分析、通知文案生成；
// 规则引擎、测试桩和远端模型都实现同一接口，管线不绑定具体厂商。
package judge

import (
	"context"
	"errors"

	"github.com/wyfcoding/supervision/internal/report/domain"
	"github.com/wyfcoding/supervision/internal/report/infrastructure/extract"
)

// ErrProviderFailure 判定调用失败（网络、超时、响应不可解析）。
// 调用方必须把它转换成文档化的降级值，不允许向提交流程继续抛出。
var ErrProviderFailure = errors.New("judgment provider failure")

// ComposeRequest 通知文案生成请求
type ComposeRequest struct {
	// Decision 决定类型：approved 或 rejected
	Decision string
	// EntityName 机构名称
	EntityName string
	// ReportType 报告类型
	ReportType domain.ReportType
	// Reason 拒绝原因，审核通过时为空
	Reason string
}

// Provider 判定提供方接口
type Provider interface {
	// Name 提供方标识，写入审计日志
	Name() string
	// Model 某个判定环节实际使用的模型标识，写入审计日志
	Model(agent string) string
	// Validate 校验表格结构与业务规则
	Validate(ctx context.Context, table *extract.Table, reportType domain.ReportType) (domain.ValidationResult, error)
	// AnalyzeRisk 对已通过校验的报告做风险分析
	AnalyzeRisk(ctx context.Context, table *extract.Table, reportType domain.ReportType) (domain.RiskAnalysis, error)
	// ComposeMessage 生成面向用户的通知正文
	ComposeMessage(ctx context.Context, req ComposeRequest) (string, error)
	// Health 探活
	Health(ctx context.Context) error
}
