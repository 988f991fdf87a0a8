package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Kind identifies which scalar a Value holds.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	default:
		return "null"
	}
}

// Value is a record scalar: null, string, number or bool.
// Numbers keep their original JSON literal so they round-trip exactly.
// The zero Value is null.
type Value struct {
	kind Kind
	text string
	b    bool
}

func Null() Value { return Value{} }

func String(s string) Value { return Value{kind: KindString, text: s} }

func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

func Int(n int64) Value { return Value{kind: KindNumber, text: strconv.FormatInt(n, 10)} }

// Number builds a number from a JSON number literal such as "12", "-0.5" or "1e3".
func Number(literal string) (Value, error) {
	if !json.Valid([]byte(literal)) {
		return Value{}, fmt.Errorf("%w: %q is not a JSON number", ErrInvalidInput, literal)
	}
	if _, err := strconv.ParseFloat(literal, 64); err != nil {
		return Value{}, fmt.Errorf("%w: number %s is out of range", ErrInvalidInput, literal)
	}
	return Value{kind: KindNumber, text: literal}, nil
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) AsString() (string, bool) { return v.text, v.kind == KindString }

func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsNumber returns the original number literal.
func (v Value) AsNumber() (json.Number, bool) { return json.Number(v.text), v.kind == KindNumber }

// Text is the display form used on rendered documents. Null renders empty.
func (v Value) Text() string {
	switch v.kind {
	case KindString, KindNumber:
		return v.text
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return ""
	}
}

func (v Value) Equal(o Value) bool {
	return v.kind == o.kind && v.text == o.text && v.b == o.b
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.text)
	case KindNumber:
		return []byte(v.text), nil
	case KindBool:
		return strconv.AppendBool(nil, v.b), nil
	default:
		return []byte("null"), nil
	}
}

func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	switch t := raw.(type) {
	case nil:
		*v = Null()
	case string:
		*v = String(t)
	case bool:
		*v = Bool(t)
	case json.Number:
		n, err := Number(t.String())
		if err != nil {
			return err
		}
		*v = n
	default:
		return fmt.Errorf("%w: nested objects and arrays are not supported", ErrInvalidInput)
	}
	return nil
}
