// Package query defines the argument vocabulary accepted by cached data-access
// operations and the projection of those arguments used for cache keys.
package query

import (
	"github.com/uptrace/bun"
)

// Relevant argument names. Only these take part in cache key derivation.
const (
	FieldWhere    = "where"
	FieldSkip     = "skip"
	FieldTake     = "take"
	FieldCursor   = "cursor"
	FieldOrderBy  = "orderBy"
	FieldSelect   = "select"
	FieldInclude  = "include"
	FieldDistinct = "distinct"
)

// RelevantFields lists the argument names that affect result identity.
var RelevantFields = []string{
	FieldWhere,
	FieldSkip,
	FieldTake,
	FieldCursor,
	FieldOrderBy,
	FieldSelect,
	FieldInclude,
	FieldDistinct,
}

// Where is an equality filter keyed by column name. A nil value matches NULL,
// a slice value matches any of its elements.
type Where map[string]any

// Order is a single ordering term.
type Order struct {
	Field string
	Desc  bool
}

// Row is a single aggregate or group result.
type Row map[string]any

// Args are the arguments of a read or criteria-based write.
type Args struct {
	Where    Where
	Skip     *int
	Take     *int
	Cursor   Where
	OrderBy  []Order
	Select   []string
	Include  []string
	Distinct []string

	// Tx routes the operation through an open transaction. It never affects
	// the cache key and reads carrying a Tx skip the cache.
	Tx bun.IDB
}

// WithSkip returns a copy of a with the offset set.
func (a Args) WithSkip(n int) Args {
	a.Skip = &n
	return a
}

// WithTake returns a copy of a with the limit set.
func (a Args) WithTake(n int) Args {
	a.Take = &n
	return a
}

// WithTx returns a copy of a bound to tx.
func (a Args) WithTx(tx bun.IDB) Args {
	a.Tx = tx
	return a
}

// RelevantArgs projects the arguments onto the fields that change the result.
func (a Args) RelevantArgs() map[string]any {
	out := make(map[string]any)
	if a.Where != nil {
		out[FieldWhere] = map[string]any(a.Where)
	}
	if a.Skip != nil {
		out[FieldSkip] = *a.Skip
	}
	if a.Take != nil {
		out[FieldTake] = *a.Take
	}
	if a.Cursor != nil {
		out[FieldCursor] = map[string]any(a.Cursor)
	}
	if len(a.OrderBy) > 0 {
		terms := make([]map[string]string, len(a.OrderBy))
		for i, o := range a.OrderBy {
			dir := "asc"
			if o.Desc {
				dir = "desc"
			}
			terms[i] = map[string]string{o.Field: dir}
		}
		out[FieldOrderBy] = terms
	}
	if len(a.Select) > 0 {
		out[FieldSelect] = a.Select
	}
	if len(a.Include) > 0 {
		out[FieldInclude] = a.Include
	}
	if len(a.Distinct) > 0 {
		out[FieldDistinct] = a.Distinct
	}
	return out
}

// HasPagination reports whether skip or take is set.
func (a Args) HasPagination() bool {
	return a.Skip != nil || a.Take != nil
}

// FilterRelevant projects a loosely typed argument map onto RelevantFields.
// skip and take are kept whenever present; the rest only when non-nil.
func FilterRelevant(args map[string]any) map[string]any {
	out := make(map[string]any)
	for _, field := range RelevantFields {
		v, ok := args[field]
		if !ok {
			continue
		}
		if v == nil && field != FieldSkip && field != FieldTake {
			continue
		}
		out[field] = v
	}
	return out
}
