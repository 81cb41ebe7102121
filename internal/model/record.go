package model

import "sort"

// Value is one field of a loaded record. A key missing from a Record means
// the field is absent; a present Value with Null set means the source held
// an explicit null or an empty cell.
type Value struct {
	Raw  string
	Null bool
}

// Text returns a non-null value holding s.
func Text(s string) Value {
	return Value{Raw: s}
}

// NullValue returns a null value.
func NullValue() Value {
	return Value{Null: true}
}

// Record is a flat, untyped row loaded from a JSON, CSV, or XLSX file.
type Record struct {
	Fields map[string]Value
	Source string
}

// NewRecord creates an empty record tagged with its source file.
func NewRecord(source string) Record {
	return Record{Fields: make(map[string]Value), Source: source}
}

// Get returns the field value and whether the key is present.
func (r Record) Get(key string) (Value, bool) {
	v, ok := r.Fields[key]
	return v, ok
}

// Has reports whether the key is present, null or not.
func (r Record) Has(key string) bool {
	_, ok := r.Fields[key]
	return ok
}

// String returns the raw text of a present, non-null field.
func (r Record) String(key string) (string, bool) {
	v, ok := r.Fields[key]
	if !ok || v.Null {
		return "", false
	}
	return v.Raw, true
}

// Set stores a field value.
func (r Record) Set(key string, v Value) {
	r.Fields[key] = v
}

// Columns returns the sorted union of field names across records.
func Columns(records []Record) []string {
	seen := make(map[string]struct{})
	for _, rec := range records {
		for k := range rec.Fields {
			seen[k] = struct{}{}
		}
	}
	cols := make([]string, 0, len(seen))
	for k := range seen {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

// AnyHas reports whether at least one record carries the key.
func AnyHas(records []Record, key string) bool {
	for _, rec := range records {
		if rec.Has(key) {
			return true
		}
	}
	return false
}
