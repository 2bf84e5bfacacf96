package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/workstead/workstead/internal/models"
)

func TestDashboardServiceSummary(t *testing.T) {
	db := openServiceTestDB(t)
	svc, err := NewDashboardService(db)
	require.NoError(t, err)

	now := time.Now()

	company := seedCompany(t, db, "Acme", "800000001")
	other := seedCompany(t, db, "Other", "800000002")
	worker := seedUser(t, db, "worker@acme.test", models.RoleEmployee, &company.ID)
	seedUser(t, db, "out@other.test", models.RoleEmployee, &other.ID)

	require.NoError(t, db.Create(&models.Task{CompanyID: company.ID, Title: "a", Status: models.TaskStatusOpen}).Error)
	require.NoError(t, db.Create(&models.Task{CompanyID: company.ID, Title: "b", Status: models.TaskStatusDone}).Error)
	require.NoError(t, db.Create(&models.Task{CompanyID: other.ID, Title: "c", Status: models.TaskStatusOpen}).Error)

	require.NoError(t, db.Create(&models.AccidentReport{
		ReportBase:  models.ReportBase{CompanyID: company.ID, EmployeeID: worker.ID, Status: models.ReportStatusDraft},
		OccurredAt:  now,
		Description: "x",
	}).Error)
	require.NoError(t, db.Create(&models.IllnessReport{
		ReportBase: models.ReportBase{CompanyID: company.ID, EmployeeID: worker.ID, Status: models.ReportStatusDraft},
		StartDate:  now,
	}).Error)

	ctx := context.Background()

	summary, err := svc.Summary(ctx, adminScope("admin", company.ID))
	require.NoError(t, err)
	require.EqualValues(t, 1, summary.Companies)
	require.EqualValues(t, 1, summary.Users)
	require.EqualValues(t, 2, summary.Tasks.Total)
	require.EqualValues(t, 1, summary.Tasks.Open)
	require.EqualValues(t, 1, summary.Tasks.Done)
	require.EqualValues(t, 1, summary.Reports.Accidents)
	require.EqualValues(t, 1, summary.Reports.Illnesses)
	require.EqualValues(t, 2, summary.Reports.Total)

	require.Len(t, summary.ReportsByMonth, 12)
	require.Equal(t, monthStart(now).AddDate(0, -11, 0).Format("2006-01"), summary.ReportsByMonth[0].Month)
	require.Equal(t, now.Format("2006-01"), summary.ReportsByMonth[11].Month)
	require.EqualValues(t, 2, summary.ReportsByMonth[11].Count)

	// Everything was created this month against an empty previous month.
	require.InDelta(t, 100, summary.UserGrowthPct, 0.001)
	require.InDelta(t, 100, summary.ReportGrowthPct, 0.001)
	require.EqualValues(t, 1, summary.ChartTickStep)

	// Super admins see across companies.
	all, err := svc.Summary(ctx, superScope("root"))
	require.NoError(t, err)
	require.EqualValues(t, 2, all.Companies)
	require.EqualValues(t, 3, all.Tasks.Total)
}

func TestDashboardSummaryEmployeeSeesOwnRowsOnly(t *testing.T) {
	db := openServiceTestDB(t)
	svc, err := NewDashboardService(db)
	require.NoError(t, err)

	company := seedCompany(t, db, "Acme", "800000003")
	worker := seedUser(t, db, "worker@acme.test", models.RoleEmployee, &company.ID)
	colleague := seedUser(t, db, "colleague@acme.test", models.RoleEmployee, &company.ID)

	require.NoError(t, db.Create(&models.Task{CompanyID: company.ID, AssigneeID: &worker.ID, Title: "mine", Status: models.TaskStatusOpen}).Error)
	require.NoError(t, db.Create(&models.Task{CompanyID: company.ID, AssigneeID: &colleague.ID, Title: "theirs", Status: models.TaskStatusOpen}).Error)
	require.NoError(t, db.Create(&models.Task{CompanyID: company.ID, Title: "unassigned", Status: models.TaskStatusDone}).Error)

	require.NoError(t, db.Create(&models.AccidentReport{
		ReportBase:  models.ReportBase{CompanyID: company.ID, EmployeeID: colleague.ID, Status: models.ReportStatusDraft},
		OccurredAt:  time.Now(),
		Description: "x",
	}).Error)

	summary, err := svc.Summary(context.Background(), employeeScope(worker.ID, company.ID))
	require.NoError(t, err)

	// The summary mirrors the list visibility rule: an employee counts only
	// rows that reference them, never the whole company's.
	require.EqualValues(t, 1, summary.Companies)
	require.EqualValues(t, 1, summary.Users)
	require.EqualValues(t, 1, summary.Tasks.Total)
	require.EqualValues(t, 1, summary.Tasks.Open)
	require.EqualValues(t, 0, summary.Tasks.Done)
	require.EqualValues(t, 0, summary.Reports.Total)
	require.EqualValues(t, 0, summary.ReportsByMonth[11].Count)
}

func TestGrowthPct(t *testing.T) {
	require.InDelta(t, 0, growthPct(0, 0), 0.001)
	require.InDelta(t, 100, growthPct(3, 0), 0.001)
	require.InDelta(t, 50, growthPct(3, 2), 0.001)
	require.InDelta(t, -50, growthPct(1, 2), 0.001)
}

func TestNiceTickStep(t *testing.T) {
	cases := []struct {
		max  int64
		step int64
	}{
		{0, 1},
		{4, 1},
		{5, 1},
		{6, 2},
		{10, 2},
		{11, 5},
		{25, 5},
		{26, 10},
		{48, 10},
		{90, 20},
		{230, 50},
		{480, 100},
	}
	for _, tc := range cases {
		require.Equal(t, tc.step, NiceTickStep(tc.max), "max=%d", tc.max)
	}
}
