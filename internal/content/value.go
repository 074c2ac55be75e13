package content

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Value is a sealed interface representing a typed property value.
// Only StringValue, IntValue, FloatValue, BoolValue, DateValue, and
// ListValue implement it.
type Value interface {
	value() // Sealed - only these types implement it
}

// StringValue represents a string property value.
type StringValue string

func (StringValue) value() {}

// IntValue represents an integer property value. Always int64.
type IntValue int64

func (IntValue) value() {}

// FloatValue represents a floating-point property value.
type FloatValue float64

func (FloatValue) value() {}

// BoolValue represents a boolean property value.
type BoolValue bool

func (BoolValue) value() {}

// DateValue represents a date/time property value.
type DateValue time.Time

func (DateValue) value() {}

// ListValue represents a homogeneous list of scalar values.
//
// The element type is fixed per key within one mutation operation; the
// engine never mixes element types inside a single list.
type ListValue []Value

func (ListValue) value() {}

// Append returns a new list with v appended. The receiver is not mutated,
// so concurrent readers of the old list stay valid.
func (l ListValue) Append(v Value) ListValue {
	out := make(ListValue, len(l), len(l)+1)
	copy(out, l)
	return append(out, v)
}

// Contains reports whether the list holds an element equal to v under
// element-wise typed equality.
func (l ListValue) Contains(v Value) bool {
	for _, e := range l {
		if Equal(e, v) {
			return true
		}
	}
	return false
}

// Equal compares two values element-wise under their declared types.
//
// Dates compare by instant. Floats compare by parsed-value equality;
// tolerance-based comparison is deliberately not offered.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case StringValue:
		bv, ok := b.(StringValue)
		return ok && av == bv
	case IntValue:
		bv, ok := b.(IntValue)
		return ok && av == bv
	case FloatValue:
		bv, ok := b.(FloatValue)
		return ok && av == bv
	case BoolValue:
		bv, ok := b.(BoolValue)
		return ok && av == bv
	case DateValue:
		bv, ok := b.(DateValue)
		return ok && time.Time(av).Equal(time.Time(bv))
	case ListValue:
		bv, ok := b.(ListValue)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// ValueType tags the scalar type of a property value.
//
// Each variant carries its own parser; selection is by explicit dispatch,
// not inheritance or reflection.
type ValueType string

const (
	TypeString ValueType = "string"
	TypeInt    ValueType = "integer"
	TypeFloat  ValueType = "float"
	TypeBool   ValueType = "boolean"
	TypeDate   ValueType = "date"
)

// ValueTypes lists all valid type tags, for CLI validation and messages.
var ValueTypes = []ValueType{TypeString, TypeInt, TypeFloat, TypeBool, TypeDate}

// ParseValueType converts a textual tag to a ValueType.
func ParseValueType(s string) (ValueType, error) {
	t := ValueType(strings.ToLower(strings.TrimSpace(s)))
	for _, v := range ValueTypes {
		if t == v {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown value type %q: must be one of %v", s, ValueTypes)
}

// Parse converts literal text into a Value of the receiver type.
//
// String is pass-through. Integer, float, and boolean use standard textual
// parsing. Date accepts ISO calendar dates, common absolute layouts, and
// relative keywords (see ParseDate). Unparseable text yields an error the
// caller records as a per-node failure, never as a process-fatal one.
func (t ValueType) Parse(literal string) (Value, error) {
	switch t {
	case TypeString:
		return StringValue(literal), nil
	case TypeInt:
		n, err := strconv.ParseInt(strings.TrimSpace(literal), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse integer %q: %w", literal, err)
		}
		return IntValue(n), nil
	case TypeFloat:
		f, err := strconv.ParseFloat(strings.TrimSpace(literal), 64)
		if err != nil {
			return nil, fmt.Errorf("parse float %q: %w", literal, err)
		}
		return FloatValue(f), nil
	case TypeBool:
		b, err := strconv.ParseBool(strings.TrimSpace(literal))
		if err != nil {
			return nil, fmt.Errorf("parse boolean %q: %w", literal, err)
		}
		return BoolValue(b), nil
	case TypeDate:
		d, err := ParseDate(literal)
		if err != nil {
			return nil, err
		}
		return DateValue(d), nil
	default:
		return nil, fmt.Errorf("unknown value type %q", string(t))
	}
}

// Format renders a value back to literal text, inverse of Parse for
// scalars. Lists render as comma-joined elements.
func Format(v Value) string {
	switch val := v.(type) {
	case StringValue:
		return string(val)
	case IntValue:
		return strconv.FormatInt(int64(val), 10)
	case FloatValue:
		return strconv.FormatFloat(float64(val), 'g', -1, 64)
	case BoolValue:
		return strconv.FormatBool(bool(val))
	case DateValue:
		return time.Time(val).Format(time.RFC3339)
	case ListValue:
		parts := make([]string, len(val))
		for i, e := range val {
			parts[i] = Format(e)
		}
		return strings.Join(parts, ",")
	default:
		return ""
	}
}

// TypeOf returns the ValueType tag for a scalar value, or the element
// type for a non-empty list. Empty lists report TypeString.
func TypeOf(v Value) ValueType {
	switch val := v.(type) {
	case StringValue:
		return TypeString
	case IntValue:
		return TypeInt
	case FloatValue:
		return TypeFloat
	case BoolValue:
		return TypeBool
	case DateValue:
		return TypeDate
	case ListValue:
		if len(val) == 0 {
			return TypeString
		}
		return TypeOf(val[0])
	default:
		return TypeString
	}
}
