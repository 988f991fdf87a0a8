package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
)

// Record is an insertion-ordered mapping of field name to scalar Value.
// The zero Record is empty and ready to use.
type Record struct {
	keys   []string
	values map[string]Value
}

// Get returns the value stored under key.
func (r Record) Get(key string) (Value, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Has reports whether key is present, including when its value is null.
func (r Record) Has(key string) bool {
	_, ok := r.values[key]
	return ok
}

// Text returns the display text of key, or "" when absent.
func (r Record) Text(key string) string {
	return r.values[key].Text()
}

// Set stores v under key. Existing keys keep their position.
func (r *Record) Set(key string, v Value) {
	if r.values == nil {
		r.values = make(map[string]Value)
	}
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = v
}

// Delete removes key if present.
func (r *Record) Delete(key string) {
	if _, ok := r.values[key]; !ok {
		return
	}
	delete(r.values, key)
	r.keys = slices.DeleteFunc(r.keys, func(k string) bool { return k == key })
}

// Keys returns the field names in insertion order.
func (r Record) Keys() []string {
	return slices.Clone(r.keys)
}

func (r Record) Len() int { return len(r.keys) }

// Clone returns an independent copy.
func (r Record) Clone() Record {
	out := Record{keys: slices.Clone(r.keys)}
	if r.values != nil {
		out.values = make(map[string]Value, len(r.values))
		for k, v := range r.values {
			out.values[k] = v
		}
	}
	return out
}

// Equal compares keys, order and values.
func (r Record) Equal(o Record) bool {
	if !slices.Equal(r.keys, o.keys) {
		return false
	}
	for _, k := range r.keys {
		if !r.values[k].Equal(o.values[k]) {
			return false
		}
	}
	return true
}

// WithID returns a copy with a numeric "id" field placed first.
func (r Record) WithID(id int64) Record {
	out := Record{}
	out.Set(FieldID, Int(id))
	for _, k := range r.keys {
		if k == FieldID {
			continue
		}
		out.Set(k, r.values[k])
	}
	return out
}

// MarshalJSON writes the fields as a JSON object in insertion order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := r.values[k].MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON accepts a single JSON object of scalars. Duplicate keys keep
// their first position and last value.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("%w: expected a JSON object", ErrInvalidInput)
	}

	out := Record{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("%w: expected a field name", ErrInvalidInput)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("%w: field %q: %v", ErrInvalidInput, key, err)
		}
		var v Value
		if err := v.UnmarshalJSON(raw); err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
		out.Set(key, v)
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: trailing data after object", ErrInvalidInput)
	}

	*r = out
	return nil
}

// ParseRecord decodes a JSON object into a Record.
func ParseRecord(data []byte) (Record, error) {
	var r Record
	if err := r.UnmarshalJSON(data); err != nil {
		return Record{}, err
	}
	return r, nil
}
