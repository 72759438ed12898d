package query

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/asaidimu/go-docstore/core/document"
)

// ErrUnsupportedFilterValue is returned when a filter condition carries a
// value that is not a scalar: objects, arrays and other composite values are
// not valid comparison targets, neither as an Eq value nor as a OneOf
// candidate.
var ErrUnsupportedFilterValue = errors.New("query: filter values must be scalars")

// Matches reports whether doc satisfies every condition in f. A nil or empty
// filter matches vacuously. Pure function of its inputs; the document is
// never modified.
func Matches(doc document.Document, f Filter) (bool, error) {
	for field, cond := range f {
		ok, err := cond.matches(doc[field])
		if err != nil {
			return false, fmt.Errorf("field %q: %w", field, err)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func (v FilterValue) matches(actual any) (bool, error) {
	if v.membership {
		for _, candidate := range v.candidates {
			ok, err := scalarEqual(actual, candidate)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	}
	return scalarEqual(actual, v.scalar)
}

// isScalar reports whether v is a scalar for comparison purposes: nil, a
// string, a bool or a number. Every composite kind (slices, arrays, maps,
// structs, pointers, functions, channels) is not, whatever its concrete
// type. Both sides of a comparison go through this one definition.
func isScalar(v any) bool {
	if v == nil {
		return true
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

// scalarEqual compares a document field value against a filter scalar.
// Numbers are compared by value regardless of Go type, so the int a caller
// filtered with matches the float64 that comes back from a JSON load.
// Non-scalar document values never match; non-scalar filter values are a
// usage error.
func scalarEqual(actual, expected any) (bool, error) {
	if !isScalar(expected) {
		return false, fmt.Errorf("%w: got %T", ErrUnsupportedFilterValue, expected)
	}
	if af, ok := ToFloat64(actual); ok {
		if ef, ok := ToFloat64(expected); ok {
			return af == ef, nil
		}
		return false, nil
	}
	if !isScalar(actual) {
		return false, nil
	}
	return actual == expected, nil
}
