package event

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"
)

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	Null Kind = iota
	Bool
	Number
	String
	Array
	Object
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "bool"
	case Number:
		return "number"
	case String:
		return "string"
	case Array:
		return "array"
	case Object:
		return "object"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Value is an arbitrary JSON document. Numbers keep their literal text so that
// re-encoding does not change them.
type Value struct {
	kind Kind
	b    bool
	n    json.Number
	s    string
	arr  []Value
	obj  map[string]Value
}

func NullValue() Value { return Value{} }
func BoolValue(b bool) Value { return Value{kind: Bool, b: b} }
func NumberValue(n json.Number) Value { return Value{kind: Number, n: n} }
func StringValue(s string) Value { return Value{kind: String, s: s} }
func ArrayValue(elems ...Value) Value { return Value{kind: Array, arr: elems} }
func ObjectValue(m map[string]Value) Value { return Value{kind: Object, obj: m} }

func (v Value) Kind() Kind { return v.kind }

// Bool, Number, Str, Elems and Members return the payload of the matching
// variant and the zero value otherwise.
func (v Value) Bool() bool { return v.b }
func (v Value) Number() json.Number { return v.n }
func (v Value) Str() string { return v.s }
func (v Value) Elems() []Value { return v.arr }
func (v Value) Members() map[string]Value { return v.obj }

// ParseValue decodes a single JSON document. Trailing data after the document
// is an error.
func ParseValue(data []byte) (Value, error) {
	if !json.Valid(data) {
		var discard any
		err := json.Unmarshal(data, &discard)
		if err == nil {
			err = fmt.Errorf("invalid character after top-level value")
		}
		return Value{}, err
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return Value{}, err
	}
	return FromInterface(raw)
}

// FromInterface converts the output of a generic JSON decode into a Value.
func FromInterface(x any) (Value, error) {
	switch x := x.(type) {
	case nil:
		return NullValue(), nil
	case bool:
		return BoolValue(x), nil
	case json.Number:
		return NumberValue(x), nil
	case float64:
		return NumberValue(json.Number(fmt.Sprint(x))), nil
	case string:
		return StringValue(x), nil
	case []any:
		elems := make([]Value, len(x))
		for i, e := range x {
			v, err := FromInterface(e)
			if err != nil {
				return Value{}, err
			}
			elems[i] = v
		}
		return ArrayValue(elems...), nil
	case map[string]any:
		members := make(map[string]Value, len(x))
		for k, e := range x {
			v, err := FromInterface(e)
			if err != nil {
				return Value{}, err
			}
			members[k] = v
		}
		return ObjectValue(members), nil
	}
	return Value{}, fmt.Errorf("unsupported JSON value of type %T", x)
}

// Interface returns the value as nil, bool, json.Number, string, []any or
// map[string]any.
func (v Value) Interface() any {
	switch v.kind {
	case Bool:
		return v.b
	case Number:
		return v.n
	case String:
		return v.s
	case Array:
		out := make([]any, len(v.arr))
		for i, e := range v.arr {
			out[i] = e.Interface()
		}
		return out
	case Object:
		out := make(map[string]any, len(v.obj))
		for k, e := range v.obj {
			out[k] = e.Interface()
		}
		return out
	}
	return nil
}

// MarshalJSON writes object members in key order and numbers as their
// original literal.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := ParseValue(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// String returns the compact JSON encoding, for logging.
func (v Value) String() string {
	b, err := v.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("!(%v)", err)
	}
	return string(b)
}

// Equal reports whether two values are the same JSON document. Numbers are
// compared by their literal text.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case Null:
		return true
	case Bool:
		return v.b == o.b
	case Number:
		return v.n == o.n
	case String:
		return v.s == o.s
	case Array:
		if len(v.arr) != len(o.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(o.arr[i]) {
				return false
			}
		}
		return true
	case Object:
		if len(v.obj) != len(o.obj) {
			return false
		}
		for k, e := range v.obj {
			oe, ok := o.obj[k]
			if !ok || !e.Equal(oe) {
				return false
			}
		}
		return true
	}
	return false
}
