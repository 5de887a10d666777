package extract

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/wyfcoding/supervision/internal/report/domain"
)

func buildWorkbook(t *testing.T, rows [][]any) []byte {
	t.Helper()

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return buf.Bytes()
}

func liquidityWorkbook(t *testing.T) []byte {
	return buildWorkbook(t, [][]any{
		{"Data", "Aktywa_Płynne", "Zobowiązania", "Wskaźnik_Płynności"},
		{"2024-01-31", "1000.50", "800.00", "1.25"},
		{"2024-02-29", "1100.00", "850.00", "1.29"},
		{"2024-03-31", "900.00", "900.00", "1.00"},
		{"2024-04-30", "", "700.00", "1.10"},
		{"2024-05-31", "1200.00", "750.00", "1.60"},
		{"2024-06-30", "1300.00", "760.00", "1.71"},
	})
}

func TestExtractMalformedBytes(t *testing.T) {
	e := NewExtractor()
	_, err := e.Extract([]byte("definitely not a spreadsheet"), domain.ReportTypeLiquidity)
	assert.ErrorIs(t, err, domain.ErrMalformedFile)
}

func TestExtractBasicShape(t *testing.T) {
	e := NewExtractor()
	table, err := e.Extract(liquidityWorkbook(t), domain.ReportTypeLiquidity)
	require.NoError(t, err)

	assert.Equal(t, 6, table.RowCount)
	assert.Equal(t, []string{"Data", "Aktywa_Płynne", "Zobowiązania", "Wskaźnik_Płynności"}, table.Columns)
	assert.Equal(t, ColumnTypeDate, table.ColumnTypes["Data"])
	assert.Equal(t, ColumnTypeNumeric, table.ColumnTypes["Aktywa_Płynne"])
	assert.Equal(t, 1, table.NullCounts["Aktywa_Płynne"])
	assert.Equal(t, 0, table.NullCounts["Data"])
	assert.Len(t, table.SampleRows, SampleRowLimit)
	assert.Equal(t, "2024-01-31", table.SampleRows[0]["Data"])
}

func TestExtractStatisticsOnKeywordColumns(t *testing.T) {
	e := NewExtractor()
	table, err := e.Extract(liquidityWorkbook(t), domain.ReportTypeLiquidity)
	require.NoError(t, err)

	stats, ok := table.Statistics["Aktywa_Płynne"]
	require.True(t, ok, "liquidity keyword column should carry statistics")
	assert.Equal(t, 5, stats.Count)
	assert.Equal(t, "900", stats.Min.String())
	assert.Equal(t, "1300", stats.Max.String())
	assert.Equal(t, "1100.1", stats.Mean.String())

	// 日期列不计算统计
	_, ok = table.Statistics["Data"]
	assert.False(t, ok)
}

func TestColumnValuesSkipsBlanks(t *testing.T) {
	e := NewExtractor()
	table, err := e.Extract(liquidityWorkbook(t), domain.ReportTypeLiquidity)
	require.NoError(t, err)

	values := table.ColumnValues("Aktywa_Płynne")
	assert.Len(t, values, 5)
	assert.NotContains(t, values, "")

	assert.Nil(t, table.ColumnValues("Nieistniejąca"))
}

func TestExtractEmptySheet(t *testing.T) {
	f := excelize.NewFile()
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	e := NewExtractor()
	_, err := e.Extract(buf.Bytes(), domain.ReportTypeAML)
	assert.ErrorIs(t, err, domain.ErrMalformedFile)
}

func TestParseDecimalFormats(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1234.56", "1234.56"},
		{"1,234.56", "1234.56"},
		{"1234,56", "1234.56"},
		{"1 234,56", "1234.56"},
	}
	for _, tt := range tests {
		d, err := parseDecimal(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, d.String(), tt.in)
	}
}
