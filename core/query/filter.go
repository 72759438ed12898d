// Package query implements the declarative predicate used to select
// documents: per-field equality or set membership, combined with logical AND
// across fields. Filters never express nested, range or negated conditions.
package query

// FilterValue is the tagged variant behind a single filter condition: either
// a scalar the field must equal, or a set of candidate values the field must
// be a member of. Construct values with Eq and OneOf; the zero value behaves
// like Eq(nil).
type FilterValue struct {
	scalar     any
	candidates []any
	membership bool
}

// Eq returns a condition matching documents whose field equals v. Comparing
// against nil matches both an explicit JSON null and an absent field.
func Eq(v any) FilterValue {
	return FilterValue{scalar: v}
}

// OneOf returns a condition matching documents whose field equals any of vs.
// An empty candidate list matches nothing.
func OneOf(vs ...any) FilterValue {
	return FilterValue{candidates: vs, membership: true}
}

// Filter maps field names to the condition each must satisfy. A nil or empty
// Filter matches every document.
type Filter map[string]FilterValue

// ByID is the filter every identity-based operation reduces to.
func ByID(idField, id string) Filter {
	return Filter{idField: Eq(id)}
}
