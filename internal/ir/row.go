package ir

import "fmt"

// IRRow is a fixed-shape join result: the originating index element plus one
// named field per joined stream. Names and Values are position-aligned.
type IRRow struct {
	Index  IRValue
	Names  []string
	Values []IRValue
}

func (IRRow) irValue() {}

// Field returns the value of the named field.
func (r IRRow) Field(name string) (IRValue, bool) {
	if name == "index" {
		return r.Index, true
	}
	for i, n := range r.Names {
		if n == name {
			return r.Values[i], true
		}
	}
	return nil, false
}

// At returns the joined field at position i; position 0 is the first joined
// field, not the index.
func (r IRRow) At(i int) (IRValue, error) {
	if i < 0 || i >= len(r.Values) {
		return nil, fmt.Errorf("row field %d out of range [0,%d)", i, len(r.Values))
	}
	return r.Values[i], nil
}

// Payload returns the joined part of the row: the single field value for a
// one-field row, otherwise an object of every field.
func (r IRRow) Payload() IRValue {
	if len(r.Values) == 1 {
		return r.Values[0]
	}
	obj := make(IRObject, len(r.Names))
	for i, n := range r.Names {
		obj[n] = r.Values[i]
	}
	return obj
}

// Object renders the row as {"index": ..., field: ...}.
func (r IRRow) Object() IRObject {
	obj := make(IRObject, len(r.Names)+1)
	obj["index"] = r.Index
	for i, n := range r.Names {
		obj[n] = r.Values[i]
	}
	return obj
}

// RowMap is an index -> payload mapping built from rows. Entries keep row
// order; a repeated index keeps its first position and its last payload.
type RowMap struct {
	Keys    []IRValue
	Payload map[string]IRValue
}

// Get looks up the payload for an index element.
func (m RowMap) Get(index IRValue) (IRValue, bool) {
	v, ok := m.Payload[Key(index)]
	return v, ok
}

// Len returns the number of distinct index elements.
func (m RowMap) Len() int { return len(m.Keys) }

// RowsToMap converts a sequence of rows into an index -> payload mapping.
// Non-row elements are rejected.
func RowsToMap(values []IRValue) (RowMap, error) {
	m := RowMap{Payload: make(map[string]IRValue, len(values))}
	for i, v := range values {
		row, ok := v.(IRRow)
		if !ok {
			return RowMap{}, fmt.Errorf("element %d is %T, not a row", i, v)
		}
		k := Key(row.Index)
		if _, seen := m.Payload[k]; !seen {
			m.Keys = append(m.Keys, row.Index)
		}
		m.Payload[k] = row.Payload()
	}
	return m, nil
}
