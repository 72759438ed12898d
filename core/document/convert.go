package document

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// FromStruct converts a Go struct (or pointer to one) into a Document by
// round-tripping it through encoding/json, so `json:"..."` tags, omitempty
// and nested structs behave exactly as they would on disk. Callers use this
// to insert typed records into a collection.
func FromStruct[T any](record T) (Document, error) {
	val := reflect.ValueOf(record)
	if !val.IsValid() {
		return nil, fmt.Errorf("%w: nil record", ErrInvalidDocumentKind)
	}
	if val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return nil, fmt.Errorf("%w: nil record pointer", ErrInvalidDocumentKind)
		}
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: expected a struct, got %s", ErrInvalidDocumentKind, val.Kind())
	}

	data, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("document: marshal record: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("document: convert record: %w", err)
	}
	return doc, nil
}

// ToStruct converts a Document into a new instance of the struct type T,
// the inverse of FromStruct. Fields absent from the document keep their zero
// values.
func ToStruct[T any](doc Document) (T, error) {
	var result T
	if doc == nil {
		return result, fmt.Errorf("%w: nil document", ErrInvalidDocumentKind)
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return result, fmt.Errorf("document: marshal document: %w", err)
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return result, fmt.Errorf("document: convert document: %w", err)
	}
	return result, nil
}
