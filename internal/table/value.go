package table

import (
	"strconv"
	"strings"
)

// Kind identifies the type held by a Value.
type Kind int

const (
	Missing Kind = iota
	String
	Number
	List
	// Mixed only describes columns; no Value holds it.
	Mixed
)

func (k Kind) String() string {
	switch k {
	case Missing:
		return "missing"
	case String:
		return "string"
	case Number:
		return "number"
	case List:
		return "list"
	case Mixed:
		return "mixed"
	default:
		return "unknown"
	}
}

// Value is a single cell. The zero Value is missing.
type Value struct {
	kind Kind
	// str is the payload of a String, or the source spelling of a Number read from a file.
	str  string
	num  float64
	list []Value
}

// Null returns the missing marker.
func Null() Value { return Value{} }

// Str wraps a string. Empty or whitespace-only strings are missing.
func Str(s string) Value {
	if strings.TrimSpace(s) == "" {
		return Value{}
	}
	return Value{kind: String, str: s}
}

// Num wraps a number.
func Num(f float64) Value { return Value{kind: Number, num: f} }

// numText wraps a number parsed from text, keeping the text for output.
func numText(f float64, text string) Value { return Value{kind: Number, num: f, str: text} }

// Many wraps an ordered list of values. The slice is copied.
func Many(vals []Value) Value {
	cp := make([]Value, len(vals))
	copy(cp, vals)
	return Value{kind: List, list: cp}
}

func (v Value) Kind() Kind      { return v.kind }
func (v Value) IsMissing() bool { return v.kind == Missing }
func (v Value) IsNumber() bool  { return v.kind == Number }

// Float returns the numeric payload and whether the value is a number.
func (v Value) Float() (float64, bool) {
	if v.kind != Number {
		return 0, false
	}
	return v.num, true
}

// Text returns the string payload of a String value, the source spelling of a Number
// read from a file, or the rendered Key otherwise.
func (v Value) Text() string {
	if v.kind == String || (v.kind == Number && v.str != "") {
		return v.str
	}
	return v.Key()
}

// Items returns a copy of the list payload.
func (v Value) Items() []Value {
	if v.kind != List {
		return nil
	}
	cp := make([]Value, len(v.list))
	copy(cp, v.list)
	return cp
}

// Key renders the canonical form used for blocking, equality and output.
// Missing renders as the empty string.
func (v Value) Key() string {
	switch v.kind {
	case String:
		return v.str
	case Number:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case List:
		parts := make([]string, len(v.list))
		for i, it := range v.list {
			parts[i] = it.Key()
		}
		return "[" + strings.Join(parts, ";") + "]"
	default:
		return ""
	}
}

// Equal compares two values by kind and canonical key.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	return v.Key() == o.Key()
}
