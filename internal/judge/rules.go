package judge

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/supervision/internal/report/domain"
	"github.com/wyfcoding/supervision/internal/report/infrastructure/extract"
)

// 阈值常量
const (
	// badDateCriticalRatio 日期格式错误超过该比例视为严重问题
	badDateCriticalRatio = 0.10
	// rowFaultWarningRatio 低于该比例的行级格式问题只记警告
	rowFaultWarningRatio = 0.05
	// nullWarningRatio 空值超过该比例的列记警告
	nullWarningRatio = 0.5
	// amlReportingThreshold 反洗钱单笔申报阈值（PLN）
	amlReportingThreshold = 15000
	// capitalMinRatio 最低资本充足率
	capitalMinRatio = 0.08
)

// requiredColumns 各报告类型的必填列
var requiredColumns = map[domain.ReportType][]string{
	domain.ReportTypeLiquidity: {"Data", "Aktywa_Płynne", "Zobowiązania", "Wskaźnik_Płynności"},
	domain.ReportTypeAML:       {"PESEL", "Kwota", "Data_Transakcji", "Typ_Operacji"},
	domain.ReportTypeCapital:   {"Data", "Kapitał_Własny", "Kapitał_Podstawowy", "Aktywa_Ważone_Ryzykiem"},
	domain.ReportTypeGovernance: nil,
}

// dateColumns 各报告类型中的日期列
var dateColumns = map[domain.ReportType][]string{
	domain.ReportTypeLiquidity: {"Data"},
	domain.ReportTypeAML:       {"Data_Transakcji"},
	domain.ReportTypeCapital:   {"Data"},
}

// amountColumns 不允许为负的金额列
var amountColumns = map[domain.ReportType][]string{
	domain.ReportTypeLiquidity: {"Aktywa_Płynne", "Zobowiązania"},
	domain.ReportTypeAML:       {"Kwota"},
	domain.ReportTypeCapital:   {"Kapitał_Własny", "Kapitał_Podstawowy", "Aktywa_Ważone_Ryzykiem"},
}

// RulesProvider 内置规则引擎实现，全部判定是确定性的
type RulesProvider struct{}

// NewRulesProvider 创建规则引擎提供方
func NewRulesProvider() *RulesProvider {
	return &RulesProvider{}
}

// Name 实现 Provider.Name
func (p *RulesProvider) Name() string {
	return "rules-engine"
}

// Model 实现 Provider.Model，规则引擎所有环节共用一个规则集版本
func (p *RulesProvider) Model(agent string) string {
	return "rules-v1"
}

// Health 规则引擎总是可用
func (p *RulesProvider) Health(ctx context.Context) error {
	return nil
}

// Validate 实现 Provider.Validate。
// 严重问题（缺必填列、日期错误超一成、负金额、校验码错误）判不通过；
// 轻微问题（零星格式错误、空值偏多）只记警告。
func (p *RulesProvider) Validate(ctx context.Context, table *extract.Table, reportType domain.ReportType) (domain.ValidationResult, error) {
	result := domain.ValidationResult{
		IsValid:     true,
		Confidence:  1.0,
		ValidatedAt: time.Now(),
	}

	for _, col := range requiredColumns[reportType] {
		if !table.HasColumn(col) {
			result.IsValid = false
			result.Errors = append(result.Errors, domain.ValidationError{
				Column: col,
				Row:    0,
				Issue:  "missing required column",
			})
		}
	}

	for _, col := range dateColumns[reportType] {
		if !table.HasColumn(col) {
			continue
		}
		values := table.ColumnValues(col)
		if len(values) == 0 {
			continue
		}
		bad := 0
		for _, v := range values {
			if !validDate(v) {
				bad++
			}
		}
		ratio := float64(bad) / float64(len(values))
		switch {
		case ratio > badDateCriticalRatio:
			result.IsValid = false
			result.Errors = append(result.Errors, domain.ValidationError{
				Column: col,
				Row:    0,
				Issue:  fmt.Sprintf("malformed dates in %.0f%% of rows", ratio*100),
			})
		case bad > 0 && ratio < rowFaultWarningRatio:
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("column %s: %d rows with non-standard date format", col, bad))
		case bad > 0:
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("column %s: %.0f%% of rows have malformed dates", col, ratio*100))
		}
	}

	for _, col := range amountColumns[reportType] {
		if !table.HasColumn(col) {
			continue
		}
		for row, v := range table.ColumnValues(col) {
			d, err := decimal.NewFromString(strings.ReplaceAll(v, ",", "."))
			if err != nil {
				continue
			}
			if d.IsNegative() {
				result.IsValid = false
				result.Errors = append(result.Errors, domain.ValidationError{
					Column: col,
					Row:    row + 1,
					Issue:  "negative amount not allowed",
				})
			}
		}
	}

	if reportType == domain.ReportTypeAML && table.HasColumn("PESEL") {
		for row, v := range table.ColumnValues("PESEL") {
			if !validPESEL(v) {
				result.IsValid = false
				result.Errors = append(result.Errors, domain.ValidationError{
					Column: "PESEL",
					Row:    row + 1,
					Issue:  "invalid PESEL checksum",
				})
			}
		}
	}

	for col, nulls := range table.NullCounts {
		if table.RowCount == 0 {
			break
		}
		if float64(nulls)/float64(table.RowCount) > nullWarningRatio {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("column %s is mostly empty (%d of %d rows)", col, nulls, table.RowCount))
		}
	}

	// 警告越多置信度越低，0.7 封底
	result.Confidence = 1.0 - 0.05*float64(len(result.Warnings))
	if result.Confidence < 0.7 {
		result.Confidence = 0.7
	}

	return result, nil
}

// AnalyzeRisk 实现 Provider.AnalyzeRisk，基于关键列统计推导评分
func (p *RulesProvider) AnalyzeRisk(ctx context.Context, table *extract.Table, reportType domain.ReportType) (domain.RiskAnalysis, error) {
	start := time.Now()

	score := 2.0
	var anomalies []string
	var insights []string
	var reasoning []string

	switch reportType {
	case domain.ReportTypeLiquidity:
		if stats, ok := table.Statistics["Wskaźnik_Płynności"]; ok {
			insights = append(insights, fmt.Sprintf("liquidity ratio range %s..%s", stats.Min, stats.Max))
			if stats.Min.LessThan(decimal.NewFromInt(1)) {
				anomalies = append(anomalies, fmt.Sprintf("liquidity ratio below 1.0 (min %s)", stats.Min))
				score += 3.5
			}
			reasoning = append(reasoning, fmt.Sprintf("checked liquidity ratio, min=%s", stats.Min))
		}
	case domain.ReportTypeAML:
		if stats, ok := table.Statistics["Kwota"]; ok {
			insights = append(insights, fmt.Sprintf("transaction amounts up to %s", stats.Max))
			if stats.Max.GreaterThan(decimal.NewFromInt(amlReportingThreshold)) {
				anomalies = append(anomalies, fmt.Sprintf("transaction above reporting threshold (max %s)", stats.Max))
				score += 2.5
			}
			if stats.Min.IsNegative() {
				anomalies = append(anomalies, "negative transaction amounts present")
				score += 2
			}
			reasoning = append(reasoning, fmt.Sprintf("screened %d transactions against %d PLN threshold", stats.Count, amlReportingThreshold))
		}
	case domain.ReportTypeCapital:
		own, okOwn := table.Statistics["Kapitał_Własny"]
		rwa, okRWA := table.Statistics["Aktywa_Ważone_Ryzykiem"]
		if okOwn && okRWA && rwa.Sum.IsPositive() {
			ratio := own.Sum.Div(rwa.Sum)
			insights = append(insights, fmt.Sprintf("aggregate capital ratio %s", ratio.Round(4)))
			if ratio.LessThan(decimal.NewFromFloat(capitalMinRatio)) {
				anomalies = append(anomalies, fmt.Sprintf("capital ratio %s below regulatory minimum", ratio.Round(4)))
				score += 3.5
			}
			reasoning = append(reasoning, fmt.Sprintf("capital ratio computed as %s", ratio.Round(4)))
		}
	}

	for col, nulls := range table.NullCounts {
		if table.RowCount > 0 && float64(nulls)/float64(table.RowCount) > nullWarningRatio {
			anomalies = append(anomalies, fmt.Sprintf("column %s largely incomplete", col))
			score += 1
		}
	}

	if score > 10 {
		score = 10
	}

	urgency := domain.UrgencyRoutine
	switch {
	case score > 8:
		urgency = domain.UrgencyCritical
	case score > 6:
		urgency = domain.UrgencyUrgent
	}

	return domain.RiskAnalysis{
		Category:       string(reportType) + "_risk",
		RiskScore:      score,
		RiskLevel:      domain.RiskLevelFromScore(score),
		Urgency:        urgency,
		Anomalies:      anomalies,
		KeyInsights:    insights,
		ReasoningChain: strings.Join(reasoning, "; "),
		Confidence:     0.85,
		ProcessingTime: time.Since(start),
	}, nil
}

// ComposeMessage 实现 Provider.ComposeMessage，返回固定模板文案
func (p *RulesProvider) ComposeMessage(ctx context.Context, req ComposeRequest) (string, error) {
	switch req.Decision {
	case "approved":
		return fmt.Sprintf("Raport %s instytucji %s został zatwierdzony.", req.ReportType, req.EntityName), nil
	case "rejected":
		return fmt.Sprintf("Raport %s instytucji %s został odrzucony. Powód: %s", req.ReportType, req.EntityName, req.Reason), nil
	}
	return "", fmt.Errorf("%w: unknown decision %q", ErrProviderFailure, req.Decision)
}

// validDate 检查日期格式
func validDate(v string) bool {
	for _, layout := range []string{"2006-01-02", "02.01.2006", "2006/01/02"} {
		if _, err := time.Parse(layout, v); err == nil {
			return true
		}
	}
	return false
}

// validPESEL 校验 PESEL 号码的长度与校验位
func validPESEL(v string) bool {
	if len(v) != 11 {
		return false
	}
	weights := []int{1, 3, 7, 9, 1, 3, 7, 9, 1, 3}
	sum := 0
	for i, w := range weights {
		d := int(v[i] - '0')
		if d < 0 || d > 9 {
			return false
		}
		sum += d * w
	}
	control := (10 - sum%10) % 10
	last := int(v[10] - '0')
	return last >= 0 && last <= 9 && control == last
}
