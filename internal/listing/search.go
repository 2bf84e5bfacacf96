package listing

import (
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"
)

// broadSearchMinLen is the length at which a search term switches from a
// prefix match on the primary field to a contains match across all fields.
// Short terms stay narrow so a single typed character does not sweep in
// half the table.
const broadSearchMinLen = 3

// SearchMode selects how a search term is matched against columns.
type SearchMode int

const (
	// SearchPrefix matches the start of the primary field only.
	SearchPrefix SearchMode = iota
	// SearchContains matches anywhere inside any searchable field.
	SearchContains
)

// ModeFor returns the match mode for a search term, counting runes rather
// than bytes so multibyte input widens at the same point as ASCII.
func ModeFor(search string) SearchMode {
	if utf8.RuneCountInString(strings.TrimSpace(search)) < broadSearchMinLen {
		return SearchPrefix
	}
	return SearchContains
}

// ApplySearch adds the search condition for term to q. The primary column is
// always searched; the extra columns participate only once the term is wide
// enough for a contains match. Matching is case-insensitive.
func ApplySearch(q *gorm.DB, term, primary string, extra ...string) *gorm.DB {
	term = strings.TrimSpace(term)
	if term == "" {
		return q
	}

	needle := strings.ToLower(escapeLike(term))
	if ModeFor(term) == SearchPrefix {
		return q.Where("LOWER("+primary+") LIKE ? ESCAPE '\\'", needle+"%")
	}

	cols := append([]string{primary}, extra...)
	conds := make([]string, 0, len(cols))
	args := make([]interface{}, 0, len(cols))
	for _, col := range cols {
		conds = append(conds, "LOWER("+col+") LIKE ? ESCAPE '\\'")
		args = append(args, "%"+needle+"%")
	}
	return q.Where(strings.Join(conds, " OR "), args...)
}

// ApplySort orders q by the requested column when it appears in the allowed
// map, falling back to the given default column otherwise. The allowed map
// translates API field names into column names so callers can never inject
// arbitrary SQL through the sort parameter.
func ApplySort(q *gorm.DB, p Params, allowed map[string]string, fallback string) *gorm.DB {
	col, ok := allowed[p.SortBy]
	if !ok {
		col = fallback
	}
	dir := "DESC"
	if p.Sort == SortAsc {
		dir = "ASC"
	}
	return q.Order(col + " " + dir)
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
