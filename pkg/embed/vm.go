// Package lox is the embedding API for Go programs that evaluate Lox
// expressions.
package lox

import (
	"fmt"
	"io"
	"os"
	"reflect"

	"github.com/rs/zerolog"

	"github.com/funvibe/lox/internal/vm"
)

// VM wraps the underlying Lox VM and provides a high-level embedding API.
// Diagnostics are returned as errors rather than printed, unless an error
// output is set.
type VM struct {
	machine    *vm.VM
	marshaller *Marshaller
}

// New creates a new Lox VM instance.
func New() *VM {
	v := vm.New()
	v.SetOutput(io.Discard)
	v.SetErrorOutput(io.Discard)

	return &VM{
		machine:    v,
		marshaller: NewMarshaller(),
	}
}

// SetErrorOutput makes the VM also print diagnostics to w.
func (v *VM) SetErrorOutput(w io.Writer) {
	v.machine.SetErrorOutput(w)
}

// SetLogger sets the structured logger used by the VM.
func (v *VM) SetLogger(logger zerolog.Logger) {
	v.machine.SetLogger(logger)
}

// Eval evaluates a Lox expression and returns its value as a Go value:
// nil, bool, float64 or string.
func (v *VM) Eval(code string) (interface{}, error) {
	result, err := v.machine.Interpret(code)
	if err != nil {
		return nil, err
	}
	return v.marshaller.FromValue(result, nil)
}

// Evalf formats an expression with fmt verbs, substituting each argument as
// a Lox literal, then evaluates it. Use %s for every argument:
//
//	v.Evalf("%s * 2 > %s", score, limit)
func (v *VM) Evalf(format string, args ...interface{}) (interface{}, error) {
	lits := make([]interface{}, len(args))
	for i, arg := range args {
		lit, err := v.marshaller.Literal(arg)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		lits[i] = lit
	}
	return v.Eval(fmt.Sprintf(format, lits...))
}

// EvalInto evaluates code and stores the result in the value target points
// to, converting numbers to the target's numeric type.
func (v *VM) EvalInto(code string, target interface{}) error {
	ptr := reflect.ValueOf(target)
	if ptr.Kind() != reflect.Ptr || ptr.IsNil() {
		return fmt.Errorf("target must be a non-nil pointer, got %T", target)
	}

	result, err := v.machine.Interpret(code)
	if err != nil {
		return err
	}
	return v.store(result, ptr.Elem())
}

func (v *VM) store(result vm.Value, dst reflect.Value) error {
	val, err := v.marshaller.FromValue(result, dst.Type())
	if err != nil {
		return err
	}
	if val == nil {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}
	dst.Set(reflect.ValueOf(val))
	return nil
}

// Compile compiles code to a bytecode bundle that Run can execute later.
func (v *VM) Compile(code string) ([]byte, error) {
	chunk := vm.NewChunk()
	if err := vm.Compile(code, chunk); err != nil {
		return nil, err
	}
	bundle := &vm.Bundle{Chunk: chunk, SourceFile: "<embed>"}
	return bundle.Serialize()
}

// Run executes a bundle produced by Compile or by `lox -c`.
func (v *VM) Run(data []byte) (interface{}, error) {
	bundle, err := vm.Deserialize(data)
	if err != nil {
		return nil, err
	}
	result, err := v.machine.RunChunk(bundle.Chunk)
	if err != nil {
		return nil, err
	}
	return v.marshaller.FromValue(result, nil)
}

// LoadFile evaluates a source file or a compiled bundle.
func (v *VM) LoadFile(path string) (interface{}, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if vm.IsBundle(content) {
		return v.Run(content)
	}
	return v.Eval(string(content))
}
