// Package audit 判定调用的合规审计落盘。每一次判定调用（校验、风险分析、
// 文案生成）连同输入摘要、输出或错误、耗时和模型标识都追加记录，
// 失败路径也不允许跳过。
package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Entry 一条审计记录
type Entry struct {
	// Agent 判定环节名称：validate, analyze_risk, compose_message
	Agent string `json:"agent"`
	// Provider 提供方标识
	Provider string `json:"provider"`
	// Model 本次调用使用的模型标识
	Model string `json:"model"`
	// ReportID 关联报告 ID，可为空
	ReportID string `json:"report_id,omitempty"`
	// InputDigest 输入内容的 SHA-256 摘要
	InputDigest string `json:"input_digest"`
	// Output 成功时的输出摘要
	Output string `json:"output,omitempty"`
	// Error 失败时的错误描述
	Error string `json:"error,omitempty"`
	// Duration 调用耗时
	Duration time.Duration `json:"duration"`
	// Timestamp 记录时间
	Timestamp time.Time `json:"timestamp"`
}

// Recorder 审计记录器接口，追加写，不提供删除
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
	Close() error
}

// Digest 计算输入内容的十六进制 SHA-256 摘要
func Digest(input []byte) string {
	sum := sha256.Sum256(input)
	return hex.EncodeToString(sum[:])
}

// NopRecorder 丢弃所有记录的实现，用于显式关闭审计的部署
type NopRecorder struct{}

// Record 实现 Recorder.Record
func (NopRecorder) Record(ctx context.Context, entry Entry) error { return nil }

// Close 实现 Recorder.Close
func (NopRecorder) Close() error { return nil }

// MultiRecorder 把记录同时写入多个下游
type MultiRecorder []Recorder

// Record 实现 Recorder.Record，任一下游失败返回首个错误，但所有下游都会被尝试
func (m MultiRecorder) Record(ctx context.Context, entry Entry) error {
	var first error
	for _, r := range m {
		if err := r.Record(ctx, entry); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Close 实现 Recorder.Close
func (m MultiRecorder) Close() error {
	var first error
	for _, r := range m {
		if err := r.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
