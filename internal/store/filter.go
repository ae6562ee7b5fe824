package store

import (
	"fmt"
	"maps"
	"sort"
	"strings"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// Filter selects records by field. Field names are the logical names used by
// the models (user_id, status, category, created_at); each backend maps them
// to its own columns.
type Filter struct {
	Equals   map[string]any
	Contains map[string]string
	// SortDesc orders results by this field, newest or largest first.
	SortDesc string
	Limit    int
}

// NewFilter returns an empty filter.
func NewFilter() Filter {
	return Filter{Equals: map[string]any{}, Contains: map[string]string{}}
}

// Eq adds an equality predicate. The receiver is left unchanged.
func (f Filter) Eq(field string, value any) Filter {
	f.Equals = maps.Clone(f.Equals)
	if f.Equals == nil {
		f.Equals = map[string]any{}
	}
	f.Equals[field] = value
	return f
}

// Like adds a case-insensitive containment predicate. Empty values are ignored.
func (f Filter) Like(field, value string) Filter {
	if value == "" {
		return f
	}
	f.Contains = maps.Clone(f.Contains)
	if f.Contains == nil {
		f.Contains = map[string]string{}
	}
	f.Contains[field] = value
	return f
}

// Sort orders results by field descending.
func (f Filter) Sort(field string) Filter {
	f.SortDesc = field
	return f
}

// Take limits the number of results.
func (f Filter) Take(n int) Filter {
	f.Limit = n
	return f
}

// limit normalizes Limit to [1, maxLimit].
func (f Filter) limit() int {
	switch {
	case f.Limit <= 0:
		return defaultLimit
	case f.Limit > maxLimit:
		return maxLimit
	default:
		return f.Limit
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// sqlClause renders the filter as a WHERE/ORDER BY/LIMIT tail for a table
// whose filterable columns are listed in columns. Placeholders start at $1.
func (f Filter) sqlClause(columns map[string]string) (string, []any, error) {
	var conditions []string
	var args []any
	argIdx := 1

	for _, field := range sortedKeys(f.Equals) {
		col, ok := columns[field]
		if !ok {
			return "", nil, fmt.Errorf("%w: unknown field %q", ErrInvalidFilter, field)
		}
		conditions = append(conditions, fmt.Sprintf("%s = $%d", col, argIdx))
		args = append(args, f.Equals[field])
		argIdx++
	}
	for _, field := range sortedKeys(f.Contains) {
		col, ok := columns[field]
		if !ok {
			return "", nil, fmt.Errorf("%w: unknown field %q", ErrInvalidFilter, field)
		}
		conditions = append(conditions, fmt.Sprintf("%s ILIKE $%d", col, argIdx))
		args = append(args, "%"+escapeLike(f.Contains[field])+"%")
		argIdx++
	}

	var b strings.Builder
	if len(conditions) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(conditions, " AND "))
	}
	if f.SortDesc != "" {
		col, ok := columns[f.SortDesc]
		if !ok {
			return "", nil, fmt.Errorf("%w: unknown sort field %q", ErrInvalidFilter, f.SortDesc)
		}
		fmt.Fprintf(&b, " ORDER BY %s DESC", col)
	}
	fmt.Fprintf(&b, " LIMIT $%d", argIdx)
	args = append(args, f.limit())

	return b.String(), args, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
