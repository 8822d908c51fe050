package machine

import "strconv"

// Value is the interface implemented by any value manipulated by the
// machine.
type Value interface {
	// String returns the debug representation of the value, which is
	// also what the print statement writes: numbers in their shortest
	// form, strings quoted, functions by display name.
	String() string

	// Type returns a short string describing the value's type.
	Type() string
}

// NilType is the type of nil. Its only legal value is Nil. (We
// represent it as a number, not struct{}, so that Nil may be constant.)
type NilType byte

// Nil is the nil value of the language.
const Nil = NilType(0)

var _ Value = Nil

func (NilType) String() string { return "nil" }
func (NilType) Type() string   { return "nil" }

// Bool is the type of boolean values.
type Bool bool

//nolint:revive
const (
	True  Bool = true
	False Bool = false
)

var _ Value = False

func (b Bool) String() string {
	if b {
		return "true"
	}
	return "false"
}
func (b Bool) Type() string { return "bool" }

// Number is the type of numbers, IEEE 64-bit floats.
type Number float64

var _ Value = Number(0)

func (n Number) String() string {
	return strconv.FormatFloat(float64(n), 'g', -1, 64)
}
func (n Number) Type() string { return "number" }

// String is the type of string values.
type String string

var _ Value = String("")

func (s String) String() string { return strconv.Quote(string(s)) }
func (s String) Type() string   { return "string" }

// Truth returns the truthiness of v: nil and false are falsy, every
// other value is truthy.
func Truth(v Value) Bool {
	switch v := v.(type) {
	case NilType:
		return False
	case Bool:
		return v
	}
	return True
}

// Equal reports whether x and y are equal. Numbers compare by IEEE
// equality, booleans and strings structurally, nil only equals nil;
// values of different types are never equal, and functions and
// closures are never equal to anything.
func Equal(x, y Value) bool {
	switch x := x.(type) {
	case Number:
		y, ok := y.(Number)
		return ok && x == y
	case Bool:
		y, ok := y.(Bool)
		return ok && x == y
	case String:
		y, ok := y.(String)
		return ok && x == y
	case NilType:
		_, ok := y.(NilType)
		return ok
	}
	return false
}

// AsNumber returns the numeric value of v, or ok=false if v is not a
// number.
func AsNumber(v Value) (float64, bool) {
	n, ok := v.(Number)
	return float64(n), ok
}

// AsString returns the string value of v, or ok=false if v is not a
// string.
func AsString(v Value) (string, bool) {
	s, ok := v.(String)
	return string(s), ok
}
