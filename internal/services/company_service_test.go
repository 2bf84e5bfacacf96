package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/workstead/workstead/internal/cache"
	"github.com/workstead/workstead/internal/listing"
	apperrors "github.com/workstead/workstead/pkg/errors"
)

func TestCompanyServiceLifecycle(t *testing.T) {
	db := openServiceTestDB(t)
	auditSvc, err := NewAuditService(db)
	require.NoError(t, err)

	svc, err := NewCompanyService(db, cache.NewMemoryStore(), auditSvc)
	require.NoError(t, err)

	ctx := context.Background()
	scope := superScope("root")

	company, err := svc.Create(ctx, scope, CreateCompanyInput{
		Name:               "Acme Industries",
		OrganizationNumber: "987654321",
		ContactEmail:       "Post@Acme.test",
		City:               "Oslo",
	})
	require.NoError(t, err)
	require.NotEmpty(t, company.ID)
	require.Equal(t, "post@acme.test", company.ContactEmail)
	require.True(t, company.IsActive)

	retrieved, err := svc.GetByID(ctx, scope, company.ID)
	require.NoError(t, err)
	require.Equal(t, "Acme Industries", retrieved.Name)

	newCity := "Bergen"
	updated, err := svc.Update(ctx, scope, company.ID, UpdateCompanyInput{City: &newCity})
	require.NoError(t, err)
	require.Equal(t, "Bergen", updated.City)

	require.NoError(t, svc.Delete(ctx, scope, company.ID))

	_, err = svc.GetByID(ctx, scope, company.ID)
	require.ErrorIs(t, err, ErrCompanyNotFound)
}

func TestCompanyServiceCreateRequiresSuperAdmin(t *testing.T) {
	db := openServiceTestDB(t)
	svc, err := NewCompanyService(db, nil, nil)
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), adminScope("admin", "company-1"), CreateCompanyInput{
		Name:               "Acme",
		OrganizationNumber: "123456789",
	})
	require.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestCompanyServiceDuplicateOrgNumber(t *testing.T) {
	db := openServiceTestDB(t)
	svc, err := NewCompanyService(db, nil, nil)
	require.NoError(t, err)

	ctx := context.Background()
	scope := superScope("root")

	_, err = svc.Create(ctx, scope, CreateCompanyInput{Name: "First", OrganizationNumber: "111222333"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, scope, CreateCompanyInput{Name: "Second", OrganizationNumber: "111222333"})
	require.Error(t, err)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "BAD_REQUEST", appErr.Code)
}

func TestCompanyServiceListScopedToOwnCompany(t *testing.T) {
	db := openServiceTestDB(t)
	svc, err := NewCompanyService(db, nil, nil)
	require.NoError(t, err)

	first := seedCompany(t, db, "First AS", "100000001")
	seedCompany(t, db, "Second AS", "100000002")

	ctx := context.Background()

	all, total, err := svc.List(ctx, superScope("root"), listing.Params{})
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.Len(t, all, 2)

	own, total, err := svc.List(ctx, adminScope("admin", first.ID), listing.Params{})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, first.ID, own[0].ID)
}

func TestCompanyServiceListSearchWidens(t *testing.T) {
	db := openServiceTestDB(t)
	svc, err := NewCompanyService(db, nil, nil)
	require.NoError(t, err)

	a := seedCompany(t, db, "Nordlys AS", "200000001")
	a.ContactEmail = "hello@nordlys.test"
	require.NoError(t, db.Save(a).Error)
	b := seedCompany(t, db, "Fjellheim AS", "200000002")
	b.ContactEmail = "post@nordic-fjellheim.test"
	require.NoError(t, db.Save(b).Error)

	ctx := context.Background()
	scope := superScope("root")

	// Two characters: prefix match on name only.
	got, total, err := svc.List(ctx, scope, listing.Params{Search: "no"})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, "Nordlys AS", got[0].Name)

	// Three characters: contains match across name and contact email.
	_, total, err = svc.List(ctx, scope, listing.Params{Search: "nord"})
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
}

func TestCompanyServiceListPagination(t *testing.T) {
	db := openServiceTestDB(t)
	svc, err := NewCompanyService(db, nil, nil)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		seedCompany(t, db, "Company", "30000000"+string(rune('0'+i)))
	}

	ctx := context.Background()
	scope := superScope("root")

	page, total, err := svc.List(ctx, scope, listing.Params{Page: 2, PageSize: 2})
	require.NoError(t, err)
	require.EqualValues(t, 5, total)
	require.Len(t, page, 2)

	last, _, err := svc.List(ctx, scope, listing.Params{Page: 3, PageSize: 2})
	require.NoError(t, err)
	require.Len(t, last, 1)
}

func TestCompanyServiceMutationInvalidatesCache(t *testing.T) {
	db := openServiceTestDB(t)
	store := cache.NewMemoryStore()
	svc, err := NewCompanyService(db, store, nil)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "companies_p1_s20_odesc", []byte("cached"), 0))
	require.NoError(t, store.Set(ctx, "tasks_p1_s20_odesc", []byte("cached"), 0))

	_, err = svc.Create(ctx, superScope("root"), CreateCompanyInput{
		Name:               "Cachebuster",
		OrganizationNumber: "400000001",
	})
	require.NoError(t, err)

	_, ok, err := store.Get(ctx, "companies_p1_s20_odesc")
	require.NoError(t, err)
	require.False(t, ok)

	// Other entity prefixes are untouched.
	_, ok, err = store.Get(ctx, "tasks_p1_s20_odesc")
	require.NoError(t, err)
	require.True(t, ok)
}
