package vm

import (
	"fmt"
	"math"
	"strconv"
)

// ValueType identifies the type of value stored in the Value struct
type ValueType uint8

const (
	ValBool ValueType = iota
	ValNil
	ValNumber
	ValObj // Heap object (only strings so far)
)

var valueTypeNames = [...]string{
	ValBool:   "bool",
	ValNil:    "nil",
	ValNumber: "number",
	ValObj:    "object",
}

func (t ValueType) String() string {
	if int(t) < len(valueTypeNames) {
		return valueTypeNames[t]
	}
	return fmt.Sprintf("ValueType(%d)", uint8(t))
}

// ObjType identifies the kind of a heap object.
type ObjType uint8

const (
	ObjTypeString ObjType = iota
)

// Obj is a heap-allocated runtime object.
type Obj interface {
	ObjType() ObjType
	String() string
}

// ObjString is an immutable string object.
type ObjString struct {
	Chars string
}

func (s *ObjString) ObjType() ObjType { return ObjTypeString }
func (s *ObjString) String() string   { return s.Chars }

// Value is a tagged union. Bools and numbers live in Data; objects in Obj.
// Values are copied, never shared: the constant pool and every stack slot
// own their own Value.
type Value struct {
	Type ValueType
	Data uint64 // float64 bits for numbers, 0/1 for bools
	Obj  Obj
}

// Constructors

func NilVal() Value {
	return Value{Type: ValNil}
}

func BoolVal(v bool) Value {
	var data uint64
	if v {
		data = 1
	}
	return Value{Type: ValBool, Data: data}
}

func NumberVal(v float64) Value {
	return Value{Type: ValNumber, Data: math.Float64bits(v)}
}

func ObjVal(o Obj) Value {
	return Value{Type: ValObj, Obj: o}
}

func StringVal(s string) Value {
	return ObjVal(&ObjString{Chars: s})
}

// Predicates

func (v Value) IsBool() bool   { return v.Type == ValBool }
func (v Value) IsNil() bool    { return v.Type == ValNil }
func (v Value) IsNumber() bool { return v.Type == ValNumber }
func (v Value) IsObj() bool    { return v.Type == ValObj }

func (v Value) IsString() bool {
	return v.IsObj() && v.Obj != nil && v.Obj.ObjType() == ObjTypeString
}

// Accessors. Each reports ok=false when v holds another variant; callers
// must check ok (or the matching predicate) before using the payload.

func (v Value) AsBool() (bool, bool) {
	if !v.IsBool() {
		return false, false
	}
	return v.Data == 1, true
}

func (v Value) AsNumber() (float64, bool) {
	if !v.IsNumber() {
		return 0, false
	}
	return math.Float64frombits(v.Data), true
}

func (v Value) AsObj() (Obj, bool) {
	if !v.IsObj() {
		return nil, false
	}
	return v.Obj, true
}

func (v Value) AsString() (string, bool) {
	if !v.IsString() {
		return "", false
	}
	return v.Obj.(*ObjString).Chars, true
}

// IsFalsey reports whether v counts as false: only nil and false do.
func IsFalsey(v Value) bool {
	if v.IsNil() {
		return true
	}
	b, ok := v.AsBool()
	return ok && !b
}

// ValuesEqual compares two values structurally. Values of different types
// are never equal; there is no coercion.
func ValuesEqual(a, b Value) bool {
	if a.Type != b.Type {
		return false
	}

	switch a.Type {
	case ValNil:
		return true
	case ValBool:
		return a.Data == b.Data
	case ValNumber:
		x, _ := a.AsNumber()
		y, _ := b.AsNumber()
		return x == y
	case ValObj:
		if as, ok := a.AsString(); ok {
			bs, ok := b.AsString()
			return ok && as == bs
		}
		return a.Obj == b.Obj
	}
	return false
}

// String returns the printed form of the value.
func (v Value) String() string {
	switch v.Type {
	case ValNil:
		return "nil"
	case ValBool:
		b, _ := v.AsBool()
		return strconv.FormatBool(b)
	case ValNumber:
		n, _ := v.AsNumber()
		return formatNumber(n)
	case ValObj:
		if v.Obj == nil {
			return "<nil object>"
		}
		return v.Obj.String()
	}
	return fmt.Sprintf("<unknown %v>", v.Type)
}

func formatNumber(n float64) string {
	switch {
	case math.IsNaN(n):
		return "nan"
	case math.IsInf(n, 1):
		return "inf"
	case math.IsInf(n, -1):
		return "-inf"
	}
	return strconv.FormatFloat(n, 'g', -1, 64)
}
