// Package extract 把上传的电子表格字节解析成结构化表格：
// 列名、行数、空值统计、类型推断、抽样行，以及按报告类型
// 选取关键列并计算描述性统计。
package extract

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/wyfcoding/supervision/internal/report/domain"
)

// SampleRowLimit 抽样行数
const SampleRowLimit = 5

// ColumnType 推断出的列类型
type ColumnType string

const (
	ColumnTypeNumeric ColumnType = "numeric"
	ColumnTypeDate    ColumnType = "date"
	ColumnTypeText    ColumnType = "text"
)

// ColumnStats 数值列的描述性统计
type ColumnStats struct {
	Count int             `json:"count"`
	Sum   decimal.Decimal `json:"sum"`
	Mean  decimal.Decimal `json:"mean"`
	Min   decimal.Decimal `json:"min"`
	Max   decimal.Decimal `json:"max"`
}

// Table 提取结果
type Table struct {
	RowCount    int                    `json:"row_count"`
	Columns     []string               `json:"column_names"`
	ColumnTypes map[string]ColumnType  `json:"column_types"`
	NullCounts  map[string]int         `json:"null_counts"`
	SampleRows  []map[string]string    `json:"sample_rows"`
	Statistics  map[string]ColumnStats `json:"summary_statistics"`

	// rows 数据行缓存，供规则引擎按列取值
	rows [][]string
}

// HasColumn 表格是否包含指定列
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// ColumnValues 返回指定列的全部非空值
func (t *Table) ColumnValues(name string) []string {
	idx := -1
	for i, c := range t.Columns {
		if c == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}

	values := make([]string, 0, len(t.rows))
	for _, row := range t.rows {
		if idx < len(row) && strings.TrimSpace(row[idx]) != "" {
			values = append(values, strings.TrimSpace(row[idx]))
		}
	}
	return values
}

// 报告类型 → 统计关键列的名称关键字
var statsKeywords = map[domain.ReportType][]string{
	domain.ReportTypeLiquidity: {"aktywa", "zobowiązania", "wskaźnik"},
	domain.ReportTypeAML:       {"kwota"},
	domain.ReportTypeCapital:   {"kapitał", "aktywa"},
}

// Extractor 表格提取器
type Extractor struct{}

// NewExtractor 创建提取器
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract 解析电子表格字节。无法解析时返回 domain.ErrMalformedFile，
// 该错误对本次提交是终止性的。
func (e *Extractor) Extract(data []byte, reportType domain.ReportType) (*Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedFile, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", domain.ErrMalformedFile)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedFile, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: sheet %q is empty", domain.ErrMalformedFile, sheets[0])
	}

	header := rows[0]
	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = strings.TrimSpace(h)
	}

	return BuildTable(columns, rows[1:], reportType), nil
}

// BuildTable 从列名和数据行构建表格并计算类型、空值与描述性统计
func BuildTable(columns []string, dataRows [][]string, reportType domain.ReportType) *Table {
	table := &Table{
		RowCount:    len(dataRows),
		Columns:     columns,
		ColumnTypes: make(map[string]ColumnType, len(columns)),
		NullCounts:  make(map[string]int, len(columns)),
		SampleRows:  make([]map[string]string, 0, SampleRowLimit),
		Statistics:  make(map[string]ColumnStats),
		rows:        dataRows,
	}

	for i, col := range columns {
		if col == "" {
			continue
		}
		table.ColumnTypes[col] = inferColumnType(dataRows, i)
		table.NullCounts[col] = countNulls(dataRows, i)
	}

	for i, row := range dataRows {
		if i >= SampleRowLimit {
			break
		}
		sample := make(map[string]string, len(columns))
		for j, col := range columns {
			if col == "" {
				continue
			}
			if j < len(row) {
				sample[col] = row[j]
			} else {
				sample[col] = ""
			}
		}
		table.SampleRows = append(table.SampleRows, sample)
	}

	computeStatistics(table, reportType)
	return table
}

// computeStatistics 对关键数值列计算描述性统计
func computeStatistics(table *Table, reportType domain.ReportType) {
	keywords := statsKeywords[reportType]

	for _, col := range table.Columns {
		if col == "" || table.ColumnTypes[col] != ColumnTypeNumeric {
			continue
		}
		if len(keywords) > 0 && !matchesKeyword(col, keywords) {
			continue
		}

		values := table.ColumnValues(col)
		stats := ColumnStats{}
		for _, v := range values {
			d, err := parseDecimal(v)
			if err != nil {
				continue
			}
			if stats.Count == 0 {
				stats.Min = d
				stats.Max = d
			} else {
				if d.LessThan(stats.Min) {
					stats.Min = d
				}
				if d.GreaterThan(stats.Max) {
					stats.Max = d
				}
			}
			stats.Sum = stats.Sum.Add(d)
			stats.Count++
		}
		if stats.Count > 0 {
			stats.Mean = stats.Sum.Div(decimal.NewFromInt(int64(stats.Count))).Round(4)
			table.Statistics[col] = stats
		}
	}
}

func matchesKeyword(column string, keywords []string) bool {
	lower := strings.ToLower(column)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func countNulls(rows [][]string, idx int) int {
	nulls := 0
	for _, row := range rows {
		if idx >= len(row) || strings.TrimSpace(row[idx]) == "" {
			nulls++
		}
	}
	return nulls
}

// inferColumnType 以多数非空值的解析结果决定列类型
func inferColumnType(rows [][]string, idx int) ColumnType {
	numeric, date, text := 0, 0, 0
	for _, row := range rows {
		if idx >= len(row) {
			continue
		}
		v := strings.TrimSpace(row[idx])
		if v == "" {
			continue
		}
		switch {
		case isDate(v):
			date++
		case isNumeric(v):
			numeric++
		default:
			text++
		}
	}

	switch {
	case numeric >= date && numeric >= text && numeric > 0:
		return ColumnTypeNumeric
	case date >= text && date > 0:
		return ColumnTypeDate
	default:
		return ColumnTypeText
	}
}

// dateLayouts 接受的日期格式
var dateLayouts = []string{"2006-01-02", "02.01.2006", "01-02-06", "2006/01/02"}

func isDate(v string) bool {
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, v); err == nil {
			return true
		}
	}
	return false
}

func isNumeric(v string) bool {
	_, err := parseDecimal(v)
	return err == nil
}

// parseDecimal 解析数值，兼容千位分隔和逗号小数点
func parseDecimal(v string) (decimal.Decimal, error) {
	v = strings.ReplaceAll(v, " ", "")
	if strings.Contains(v, ",") && !strings.Contains(v, ".") {
		v = strings.ReplaceAll(v, ",", ".")
	} else {
		v = strings.ReplaceAll(v, ",", "")
	}
	return decimal.NewFromString(v)
}
