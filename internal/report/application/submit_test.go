package application

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	entityinfra "github.com/wyfcoding/supervision/internal/entity/infrastructure"
	"github.com/wyfcoding/supervision/internal/judge"
	notificationapp "github.com/wyfcoding/supervision/internal/notification/application"
	notificationinfra "github.com/wyfcoding/supervision/internal/notification/infrastructure"
	"github.com/wyfcoding/supervision/internal/realtime"
	"github.com/wyfcoding/supervision/internal/report/domain"
	"github.com/wyfcoding/supervision/internal/report/infrastructure/extract"
	"github.com/wyfcoding/supervision/internal/report/infrastructure/persistence/memory"
	userdomain "github.com/wyfcoding/supervision/internal/user/domain"
	userinfra "github.com/wyfcoding/supervision/internal/user/infrastructure"
)

// failingValidator 校验调用总是失败
type failingValidator struct {
	judge.Provider
}

func (f failingValidator) Validate(ctx context.Context, table *extract.Table, reportType domain.ReportType) (domain.ValidationResult, error) {
	return domain.ValidationResult{}, errors.New("validator unreachable")
}

// failingAnalyzer 风险分析调用总是失败
type failingAnalyzer struct {
	judge.Provider
}

func (f failingAnalyzer) AnalyzeRisk(ctx context.Context, table *extract.Table, reportType domain.ReportType) (domain.RiskAnalysis, error) {
	return domain.RiskAnalysis{}, errors.New("analyzer unreachable")
}

type pipelineFixture struct {
	submit        *SubmitService
	review        *ReviewService
	query         *QueryService
	reports       *memory.ReportRepository
	users         userdomain.UserRepository
	notifications *notificationapp.QueryService
	officer       *userdomain.User
	supervisor    *userdomain.User
}

func newPipelineFixture(t *testing.T, provider judge.Provider) *pipelineFixture {
	t.Helper()
	ctx := context.Background()

	reports := memory.NewReportRepository()
	entities := entityinfra.NewMemoryEntityRepository()
	require.NoError(t, entityinfra.SeedDemoEntities(ctx, entities))

	users := userinfra.NewMemoryUserRepository()
	officer, err := userdomain.NewUser("o@mbank.pl", "Officer", []userdomain.Role{userdomain.RoleEntityOfficer}, []string{"MBANK001"})
	require.NoError(t, err)
	require.NoError(t, users.Save(ctx, officer))
	supervisor, err := userdomain.NewUser("s@uknf.gov.pl", "Supervisor", []userdomain.Role{userdomain.RoleUKNFSupervisor}, []string{"*"})
	require.NoError(t, err)
	require.NoError(t, users.Save(ctx, supervisor))

	if provider == nil {
		provider = judge.NewRulesProvider()
	}

	notifications := notificationinfra.NewMemoryNotificationRepository()
	dispatcher := notificationapp.NewDispatcher(notifications, users, provider, realtime.NewHub(nil), nil)

	return &pipelineFixture{
		submit:        NewSubmitService(reports, entities, extract.NewExtractor(), provider, dispatcher, nil),
		review:        NewReviewService(reports, dispatcher, nil),
		query:         NewQueryService(reports),
		reports:       reports,
		users:         users,
		notifications: notificationapp.NewQueryService(notifications),
		officer:       officer,
		supervisor:    supervisor,
	}
}

func validLiquidityXLSX(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]any{
		{"Data", "Aktywa_Płynne", "Zobowiązania", "Wskaźnik_Płynności"},
		{"2024-01-31", "1000.00", "800.00", "1.25"},
		{"2024-02-29", "1100.00", "850.00", "1.29"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return buf.Bytes()
}

func (fx *pipelineFixture) submitLiquidity(t *testing.T, data []byte) *domain.Report {
	t.Helper()
	report, err := fx.submit.Submit(context.Background(), SubmitCommand{
		EntityCode: "MBANK001",
		ReportType: domain.ReportTypeLiquidity,
		FileName:   "q1.xlsx",
		Data:       data,
		Submitter:  fx.officer,
	})
	require.NoError(t, err)
	return report
}

func TestSubmitValidReport(t *testing.T) {
	fx := newPipelineFixture(t, nil)
	ctx := context.Background()

	report := fx.submitLiquidity(t, validLiquidityXLSX(t))

	assert.Equal(t, domain.StatusSubmitted, report.Status)
	assert.Equal(t, "mBank S.A.", report.EntityName)
	require.NotNil(t, report.Validation)
	assert.True(t, report.Validation.IsValid)
	require.NotNil(t, report.Risk)
	assert.Equal(t, domain.RiskLevelFromScore(report.Risk.RiskScore), report.Risk.RiskLevel)

	// 报告已持久化
	stored, err := fx.reports.GetByID(ctx, report.ReportID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSubmitted, stored.Status)

	// 监管用户收到提醒，提交人不收
	list, err := fx.notifications.ListActive(ctx, fx.supervisor.UserID, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	mine, err := fx.notifications.ListActive(ctx, fx.officer.UserID, 0)
	require.NoError(t, err)
	assert.Empty(t, mine)
}

func TestSubmitMalformedFile(t *testing.T) {
	fx := newPipelineFixture(t, nil)

	report := fx.submitLiquidity(t, []byte("not a spreadsheet at all"))

	assert.Equal(t, domain.StatusRejected, report.Status)
	assert.True(t, report.IsSystemRejected())
	require.NotNil(t, report.Validation)
	assert.False(t, report.Validation.IsValid)
	assert.Equal(t, 1.0, report.Validation.Confidence)
	require.Len(t, report.Validation.Errors, 1)
	assert.Equal(t, "file", report.Validation.Errors[0].Column)
	// 解析失败不做风险分析
	assert.Nil(t, report.Risk)
}

func TestSubmitValidationProviderFailure(t *testing.T) {
	fx := newPipelineFixture(t, failingValidator{Provider: judge.NewRulesProvider()})

	report := fx.submitLiquidity(t, validLiquidityXLSX(t))

	assert.Equal(t, domain.StatusRejected, report.Status)
	require.NotNil(t, report.Validation)
	assert.False(t, report.Validation.IsValid)
	assert.Equal(t, 1.0, report.Validation.Confidence)
	require.Len(t, report.Validation.Errors, 1)
	// 校验失败后不尝试风险分析
	assert.Nil(t, report.Risk)
}

func TestSubmitRiskProviderFailure(t *testing.T) {
	fx := newPipelineFixture(t, failingAnalyzer{Provider: judge.NewRulesProvider()})

	report := fx.submitLiquidity(t, validLiquidityXLSX(t))

	// 风险分析失败不阻塞提交
	assert.Equal(t, domain.StatusSubmitted, report.Status)
	require.NotNil(t, report.Risk)
	assert.Equal(t, 5.0, report.Risk.RiskScore)
	assert.Equal(t, domain.RiskLevelMedium, report.Risk.RiskLevel)
	assert.Equal(t, 0.3, report.Risk.Confidence)
	assert.Equal(t, domain.UrgencyRoutine, report.Risk.Urgency)
	require.Len(t, report.Validation.Warnings, 1)
	assert.Contains(t, report.Validation.Warnings[0], "risk analysis failed")
}

func TestSubmitAccessDenied(t *testing.T) {
	fx := newPipelineFixture(t, nil)

	_, err := fx.submit.Submit(context.Background(), SubmitCommand{
		EntityCode: "PKOBP001",
		ReportType: domain.ReportTypeLiquidity,
		FileName:   "q1.xlsx",
		Data:       validLiquidityXLSX(t),
		Submitter:  fx.officer,
	})
	assert.ErrorIs(t, err, domain.ErrAccessDenied)
}

func TestValidateUpload(t *testing.T) {
	assert.NoError(t, ValidateUpload("report.xlsx", 1024))
	assert.NoError(t, ValidateUpload("REPORT.XLS", 1024))
	assert.ErrorIs(t, ValidateUpload("report.csv", 1024), domain.ErrUnsupportedFileType)
	assert.ErrorIs(t, ValidateUpload("report.xlsx", MaxUploadBytes+1), domain.ErrFileTooLarge)
}
