package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/workstead/workstead/internal/listing"
	"github.com/workstead/workstead/internal/models"
	apperrors "github.com/workstead/workstead/pkg/errors"
)

func TestReportServiceAccidentLifecycle(t *testing.T) {
	db := openServiceTestDB(t)
	svc, err := NewReportService(db, nil, nil)
	require.NoError(t, err)

	company := seedCompany(t, db, "Acme", "700000001")
	worker := seedUser(t, db, "worker@acme.test", models.RoleEmployee, &company.ID)

	ctx := context.Background()
	self := employeeScope(worker.ID, company.ID)

	report, err := svc.CreateAccident(ctx, self, CreateAccidentReportInput{
		OccurredAt:  time.Now().Add(-2 * time.Hour),
		Location:    "Warehouse B",
		Description: "Fell from ladder",
		InjuryType:  "sprain",
	})
	require.NoError(t, err)
	require.Equal(t, models.ReportStatusDraft, report.Status)
	require.Equal(t, worker.ID, report.EmployeeID)
	require.Equal(t, company.ID, report.CompanyID)

	location := "Warehouse C"
	updated, err := svc.UpdateAccident(ctx, self, report.ID, UpdateAccidentReportInput{Location: &location})
	require.NoError(t, err)
	require.Equal(t, "Warehouse C", updated.Location)

	submitted, err := svc.SubmitAccident(ctx, self, report.ID)
	require.NoError(t, err)
	require.Equal(t, models.ReportStatusSubmitted, submitted.Status)
	require.NotNil(t, submitted.SubmittedAt)

	// Submitted reports are frozen for their author.
	_, err = svc.UpdateAccident(ctx, self, report.ID, UpdateAccidentReportInput{Location: &location})
	require.ErrorIs(t, err, ErrReportImmutable)

	// Approval requires an admin.
	_, err = svc.ApproveAccident(ctx, self, report.ID)
	require.ErrorIs(t, err, apperrors.ErrForbidden)

	admin := adminScope("admin", company.ID)
	approved, err := svc.ApproveAccident(ctx, admin, report.ID)
	require.NoError(t, err)
	require.Equal(t, models.ReportStatusApproved, approved.Status)
	require.NotNil(t, approved.ApprovedAt)
}

func TestReportServiceEmployeeVisibility(t *testing.T) {
	db := openServiceTestDB(t)
	svc, err := NewReportService(db, nil, nil)
	require.NoError(t, err)

	company := seedCompany(t, db, "Acme", "700000002")
	alice := seedUser(t, db, "alice@acme.test", models.RoleEmployee, &company.ID)
	bob := seedUser(t, db, "bob@acme.test", models.RoleEmployee, &company.ID)

	ctx := context.Background()

	mine, err := svc.CreateIllness(ctx, employeeScope(alice.ID, company.ID), CreateIllnessReportInput{
		StartDate: time.Now(),
	})
	require.NoError(t, err)

	_, err = svc.CreateIllness(ctx, employeeScope(bob.ID, company.ID), CreateIllnessReportInput{
		StartDate: time.Now(),
	})
	require.NoError(t, err)

	reports, total, err := svc.ListIllnesses(ctx, employeeScope(alice.ID, company.ID), listing.Params{})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, mine.ID, reports[0].ID)

	// Admins see the whole company.
	_, total, err = svc.ListIllnesses(ctx, adminScope("admin", company.ID), listing.Params{})
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
}

func TestReportServiceIllnessDateValidation(t *testing.T) {
	db := openServiceTestDB(t)
	svc, err := NewReportService(db, nil, nil)
	require.NoError(t, err)

	company := seedCompany(t, db, "Acme", "700000003")
	worker := seedUser(t, db, "worker@acme.test", models.RoleEmployee, &company.ID)

	start := time.Now()
	end := start.Add(-24 * time.Hour)
	_, err = svc.CreateIllness(context.Background(), employeeScope(worker.ID, company.ID), CreateIllnessReportInput{
		StartDate: start,
		EndDate:   &end,
	})
	require.Error(t, err)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "BAD_REQUEST", appErr.Code)
}

func TestReportServiceDepartureLifecycle(t *testing.T) {
	db := openServiceTestDB(t)
	svc, err := NewReportService(db, nil, nil)
	require.NoError(t, err)

	company := seedCompany(t, db, "Acme", "700000004")
	worker := seedUser(t, db, "leaver@acme.test", models.RoleEmployee, &company.ID)

	ctx := context.Background()
	admin := adminScope("admin", company.ID)

	report, err := svc.CreateDeparture(ctx, admin, CreateDepartureReportInput{
		EmployeeID:     worker.ID,
		LastWorkingDay: time.Now().AddDate(0, 1, 0),
		Reason:         "resignation",
	})
	require.NoError(t, err)
	require.Equal(t, worker.ID, report.EmployeeID)

	submitted, err := svc.SubmitDeparture(ctx, admin, report.ID)
	require.NoError(t, err)

	// Submitting twice is rejected.
	_, err = svc.SubmitDeparture(ctx, admin, submitted.ID)
	require.Error(t, err)

	// Submitted reports cannot be withdrawn by employees, only admins.
	require.ErrorIs(t, svc.DeleteDeparture(ctx, employeeScope(worker.ID, company.ID), report.ID), apperrors.ErrForbidden)
	require.NoError(t, svc.DeleteDeparture(ctx, admin, report.ID))

	_, err = svc.GetDeparture(ctx, admin, report.ID)
	require.ErrorIs(t, err, ErrReportNotFound)
}

func TestReportServiceStatusFilter(t *testing.T) {
	db := openServiceTestDB(t)
	svc, err := NewReportService(db, nil, nil)
	require.NoError(t, err)

	company := seedCompany(t, db, "Acme", "700000005")
	worker := seedUser(t, db, "worker@acme.test", models.RoleEmployee, &company.ID)

	ctx := context.Background()
	self := employeeScope(worker.ID, company.ID)

	first, err := svc.CreateAccident(ctx, self, CreateAccidentReportInput{
		OccurredAt:  time.Now(),
		Description: "first",
	})
	require.NoError(t, err)
	_, err = svc.CreateAccident(ctx, self, CreateAccidentReportInput{
		OccurredAt:  time.Now(),
		Description: "second",
	})
	require.NoError(t, err)

	_, err = svc.SubmitAccident(ctx, self, first.ID)
	require.NoError(t, err)

	reports, total, err := svc.ListAccidents(ctx, self, listing.Params{Status: models.ReportStatusSubmitted})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, first.ID, reports[0].ID)
}
