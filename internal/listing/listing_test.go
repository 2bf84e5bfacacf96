package listing

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestNormalizeDefaults(t *testing.T) {
	p := Params{}.Normalize()
	require.Equal(t, 1, p.Page)
	require.Equal(t, DefaultPageSize, p.PageSize)
	require.Equal(t, SortDesc, p.Sort)
}

func TestNormalizeClampsPageSize(t *testing.T) {
	p := Params{Page: -3, PageSize: 9999, Sort: "sideways"}.Normalize()
	require.Equal(t, 1, p.Page)
	require.Equal(t, MaxPageSize, p.PageSize)
	require.Equal(t, SortDesc, p.Sort)
}

func TestOffset(t *testing.T) {
	require.Equal(t, 0, Params{Page: 1, PageSize: 20}.Offset())
	require.Equal(t, 40, Params{Page: 3, PageSize: 20}.Offset())
	require.Equal(t, 0, Params{}.Offset())
}

func TestCacheKeyDeterministic(t *testing.T) {
	p := Params{Search: "  Acme ", Status: "open", SortBy: "name", Sort: "asc", Page: 2, PageSize: 50}
	key := p.CacheKey("companies")
	require.Equal(t, "companies_p2_s50_q4:acme_f4:open_o4:name.asc", key)
	require.Equal(t, key, p.CacheKey("companies"))
}

func TestCacheKeyOmitsEmptyFilters(t *testing.T) {
	key := Params{Page: 1, PageSize: 20}.CacheKey("users")
	require.Equal(t, "users_p1_s20_odesc", key)
}

func TestCacheKeyDistinctQueriesNeverCollide(t *testing.T) {
	// A search term containing a separator sequence must not read as a
	// different query's filter fields.
	a := Params{Search: "a_factive"}.CacheKey("companies")
	b := Params{Search: "a", Status: "active"}.CacheKey("companies")
	require.NotEqual(t, a, b)

	c := Params{Search: "x", Status: "y_o"}.CacheKey("companies")
	d := Params{Search: "x", Status: "y", SortBy: ""}.CacheKey("companies")
	require.NotEqual(t, c, d)

	e := Params{Search: "open", SortBy: "name"}.CacheKey("companies")
	f := Params{Status: "open", SortBy: "name"}.CacheKey("companies")
	require.NotEqual(t, e, f)
}

func TestModeFor(t *testing.T) {
	require.Equal(t, SearchPrefix, ModeFor(""))
	require.Equal(t, SearchPrefix, ModeFor("ab"))
	require.Equal(t, SearchContains, ModeFor("abc"))
	// Rune count, not byte count.
	require.Equal(t, SearchPrefix, ModeFor("æø"))
	require.Equal(t, SearchContains, ModeFor("æøå"))
}

type searchRow struct {
	ID    uint `gorm:"primaryKey"`
	Name  string
	Email string
}

func openSearchDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&searchRow{}))
	rows := []searchRow{
		{Name: "Acme Industries", Email: "post@acme.test"},
		{Name: "Borealis AS", Email: "kontakt@borealis.test"},
		{Name: "Candor Group", Email: "acme-fan@candor.test"},
	}
	require.NoError(t, db.Create(&rows).Error)
	return db
}

func TestApplySearchPrefixMatchesPrimaryFieldOnly(t *testing.T) {
	db := openSearchDB(t)

	var got []searchRow
	err := ApplySearch(db.Model(&searchRow{}), "ac", "name", "email").Find(&got).Error
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "Acme Industries", got[0].Name)
}

func TestApplySearchContainsSpansAllFields(t *testing.T) {
	db := openSearchDB(t)

	var got []searchRow
	err := ApplySearch(db.Model(&searchRow{}), "ACME", "name", "email").
		Order("id").Find(&got).Error
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "Acme Industries", got[0].Name)
	require.Equal(t, "Candor Group", got[1].Name)
}

func TestApplySearchEscapesWildcards(t *testing.T) {
	db := openSearchDB(t)
	require.NoError(t, db.Create(&searchRow{Name: "100% Fencing"}).Error)

	var got []searchRow
	err := ApplySearch(db.Model(&searchRow{}), "0% f", "name", "email").Find(&got).Error
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "100% Fencing", got[0].Name)
}

func TestApplySortWhitelist(t *testing.T) {
	db := openSearchDB(t)
	allowed := map[string]string{"name": "name"}

	var got []searchRow
	p := Params{SortBy: "name", Sort: SortAsc}.Normalize()
	require.NoError(t, ApplySort(db.Model(&searchRow{}), p, allowed, "id").Find(&got).Error)
	require.Equal(t, "Acme Industries", got[0].Name)

	// Unknown sort fields fall back rather than reaching the database.
	p = Params{SortBy: "name; DROP TABLE search_rows", Sort: SortAsc}.Normalize()
	require.NoError(t, ApplySort(db.Model(&searchRow{}), p, allowed, "id").Find(&got).Error)
	require.Equal(t, "Acme Industries", got[0].Name)
}
