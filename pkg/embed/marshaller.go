package lox

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/funvibe/lox/internal/vm"
)

// Marshaller handles conversion between Go and Lox values.
type Marshaller struct{}

func NewMarshaller() *Marshaller {
	return &Marshaller{}
}

// ToValue converts a Go value to a Lox value. Numbers of any Go numeric
// kind become Lox numbers; strings, bools and nil map directly.
func (m *Marshaller) ToValue(val interface{}) (vm.Value, error) {
	if val == nil {
		return vm.NilVal(), nil
	}

	// Check if already a Value
	if v, ok := val.(vm.Value); ok {
		return v, nil
	}

	v := reflect.ValueOf(val)
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return vm.NilVal(), nil
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return vm.NumberVal(float64(v.Int())), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return vm.NumberVal(float64(v.Uint())), nil
	case reflect.Float32, reflect.Float64:
		return vm.NumberVal(v.Float()), nil
	case reflect.Bool:
		return vm.BoolVal(v.Bool()), nil
	case reflect.String:
		return vm.StringVal(v.String()), nil
	default:
		return vm.Value{}, fmt.Errorf("unsupported Go type for conversion: %T", val)
	}
}

// FromValue converts a Lox value to a Go value.
// targetType is optional; if provided, tries to convert to that type.
// Without it numbers come back as float64.
func (m *Marshaller) FromValue(val vm.Value, targetType reflect.Type) (interface{}, error) {
	// If target type is vm.Value, return as is
	if targetType != nil && targetType == reflect.TypeOf(vm.Value{}) {
		return val, nil
	}
	if targetType != nil && targetType.Kind() == reflect.Interface {
		targetType = nil
	}

	switch val.Type {
	case vm.ValNil:
		return nil, nil
	case vm.ValBool:
		b, _ := val.AsBool()
		if targetType != nil && targetType.Kind() != reflect.Bool {
			return nil, fmt.Errorf("cannot convert bool to %s", targetType)
		}
		return b, nil
	case vm.ValNumber:
		n, _ := val.AsNumber()
		if targetType != nil {
			return numberTo(n, targetType)
		}
		return n, nil
	case vm.ValObj:
		if s, ok := val.AsString(); ok {
			if targetType != nil && targetType.Kind() != reflect.String {
				return nil, fmt.Errorf("cannot convert string to %s", targetType)
			}
			return s, nil
		}
	}
	return nil, fmt.Errorf("unsupported type for conversion: %s", val.Type)
}

func numberTo(n float64, targetType reflect.Type) (interface{}, error) {
	out := reflect.New(targetType).Elem()

	switch targetType.Kind() {
	case reflect.Float32, reflect.Float64:
		out.SetFloat(n)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if n != math.Trunc(n) || n < math.MinInt64 || n >= math.MaxInt64 || out.OverflowInt(int64(n)) {
			return nil, fmt.Errorf("number %g does not fit %s", n, targetType)
		}
		out.SetInt(int64(n))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if n < 0 || n != math.Trunc(n) || n >= math.MaxUint64 || out.OverflowUint(uint64(n)) {
			return nil, fmt.Errorf("number %g does not fit %s", n, targetType)
		}
		out.SetUint(uint64(n))
	default:
		return nil, fmt.Errorf("cannot convert number to %s", targetType)
	}
	return out.Interface(), nil
}

// Literal renders a Go value as Lox source text that evaluates back to the
// same value, so hosts can splice values into expressions. Strings holding a
// double quote have no Lox spelling and are rejected.
func (m *Marshaller) Literal(val interface{}) (string, error) {
	v, err := m.ToValue(val)
	if err != nil {
		return "", err
	}

	switch v.Type {
	case vm.ValNumber:
		n, _ := v.AsNumber()
		switch {
		case math.IsNaN(n):
			return "(0 / 0)", nil
		case math.IsInf(n, 1):
			return "(1 / 0)", nil
		case math.IsInf(n, -1):
			return "(-1 / 0)", nil
		case math.Signbit(n):
			return "(-" + strconv.FormatFloat(-n, 'f', -1, 64) + ")", nil
		}
		// Lox number literals have no exponent form
		return strconv.FormatFloat(n, 'f', -1, 64), nil
	case vm.ValObj:
		s, _ := v.AsString()
		if strings.ContainsRune(s, '"') {
			return "", fmt.Errorf("string %q cannot be written as a Lox literal", s)
		}
		return `"` + s + `"`, nil
	}
	return v.String(), nil
}
