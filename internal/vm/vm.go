package vm

import (
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/funvibe/lox/internal/diagnostics"
	"github.com/funvibe/lox/internal/logging"
)

// InitialStackSize is the starting capacity of the operand stack. The stack
// grows on demand and has no upper bound.
const InitialStackSize = 256

// VM is the virtual machine that executes bytecode
type VM struct {
	chunk *Chunk
	stack []Value

	// out receives trace and disassembly output (defaults to os.Stdout)
	out io.Writer

	// errors receives compile and runtime diagnostics (defaults to os.Stderr)
	errors *diagnostics.Printer

	logger zerolog.Logger

	// trace prints the stack and each instruction before it executes
	trace bool

	// printCode disassembles each freshly compiled chunk before running it
	printCode bool
}

// New creates a VM with an empty stack, writing to the process streams and
// discarding logs.
func New() *VM {
	return &VM{
		chunk:  NewChunk(),
		stack:  make([]Value, 0, InitialStackSize),
		out:    os.Stdout,
		errors: diagnostics.NewPrinter(os.Stderr, false),
		logger: zerolog.Nop(),
	}
}

// SetOutput sets the writer for trace and disassembly output.
func (vm *VM) SetOutput(w io.Writer) {
	vm.out = w
}

// SetErrorOutput sets the writer for diagnostics, without colors.
func (vm *VM) SetErrorOutput(w io.Writer) {
	vm.errors = diagnostics.NewPrinter(w, false)
}

// SetErrorPrinter sets the printer used for diagnostics.
func (vm *VM) SetErrorPrinter(p *diagnostics.Printer) {
	vm.errors = p
}

// SetLogger sets the structured logger.
func (vm *VM) SetLogger(logger zerolog.Logger) {
	vm.logger = logging.WithSource(logger, "vm")
}

// SetTrace turns execution tracing on or off.
func (vm *VM) SetTrace(on bool) {
	vm.trace = on
}

// SetPrintCode turns post-compile disassembly on or off.
func (vm *VM) SetPrintCode(on bool) {
	vm.printCode = on
}

// Chunk returns the chunk most recently installed for execution.
func (vm *VM) Chunk() *Chunk {
	return vm.chunk
}

// StackSize returns the number of values on the operand stack.
func (vm *VM) StackSize() int {
	return len(vm.stack)
}

// Interpret compiles source into a fresh chunk and runs it. A compile
// failure returns a *CompileError and runs nothing; a runtime failure
// returns a *RuntimeError. Either way the stack is empty afterwards, so
// successive calls on one VM do not affect each other.
func (vm *VM) Interpret(source string) (Value, error) {
	logger := vm.runLogger()

	chunk := NewChunk()
	compiler := NewCompiler(source, chunk)
	if !compiler.Compile() {
		errs := compiler.Errors()
		vm.errors.PrintAll(errs)
		logger.Debug().Int("errors", len(errs)).Msg("compile failed")
		return NilVal(), &CompileError{Diagnostics: errs}
	}

	logger.Debug().
		Int("instructions", chunk.Len()).
		Int("constants", len(chunk.Constants)).
		Msg("compiled")

	if vm.printCode {
		fmt.Fprint(vm.out, Disassemble(chunk, "code"))
	}

	return vm.execute(chunk, logger)
}

// RunChunk runs a chunk compiled earlier, typically one loaded from a
// bundle, under the same rules as Interpret. A chunk whose Lines do not
// match its Code is rejected with ErrBundleInvalid before anything runs.
func (vm *VM) RunChunk(chunk *Chunk) (Value, error) {
	if err := checkLines(chunk); err != nil {
		return NilVal(), err
	}
	return vm.execute(chunk, vm.runLogger())
}

func (vm *VM) runLogger() zerolog.Logger {
	return vm.logger.With().Str(logging.RunFieldName, uuid.NewString()).Logger()
}

func (vm *VM) execute(chunk *Chunk, logger zerolog.Logger) (Value, error) {
	vm.chunk = chunk
	vm.resetStack()
	defer vm.resetStack()

	result, err := vm.run()
	if err != nil {
		logger.Debug().Err(err).Stringer("result", ResultOf(err)).Msg("run failed")
		return NilVal(), err
	}

	logger.Debug().Stringer("value", result).Msg("run finished")
	return result, nil
}

// run executes the current chunk's instructions in order. There are no
// jumps, so a plain walk over Code is the whole dispatch loop.
func (vm *VM) run() (result Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			switch r {
			case errStackUnderflow:
				result, err = NilVal(), vm.runtimeError(diagnostics.ErrR004, "Stack underflow.")
			case errInvalidConstantIndex:
				result, err = NilVal(), vm.runtimeError(diagnostics.ErrR005, "Invalid constant index.")
			default:
				panic(r)
			}
		}
	}()

	for offset, ins := range vm.chunk.Code {
		if vm.trace {
			vm.traceInstruction(offset)
		}

		switch ins.Op {
		case OP_CONSTANT:
			vm.push(vm.readConstant(ins.Operand))

		case OP_NIL:
			vm.push(NilVal())
		case OP_TRUE:
			vm.push(BoolVal(true))
		case OP_FALSE:
			vm.push(BoolVal(false))

		case OP_EQUAL:
			b := vm.pop()
			a := vm.pop()
			vm.push(BoolVal(ValuesEqual(a, b)))

		case OP_GREATER, OP_LESS, OP_SUBTRACT, OP_MULTIPLY, OP_DIVIDE:
			if err := vm.binaryOp(ins.Op); err != nil {
				return NilVal(), err
			}

		case OP_ADD:
			// Values are copies, so peeking and then popping the same
			// slots cannot alias.
			if vm.peek(0).IsString() && vm.peek(1).IsString() {
				vm.concatenate()
			} else if vm.peek(0).IsNumber() && vm.peek(1).IsNumber() {
				if err := vm.binaryOp(OP_ADD); err != nil {
					return NilVal(), err
				}
			} else {
				return NilVal(), vm.runtimeError(diagnostics.ErrR002, "Operands must be two numbers or two strings.")
			}

		case OP_NOT:
			vm.push(BoolVal(IsFalsey(vm.pop())))

		case OP_NEGATE:
			n, ok := vm.peek(0).AsNumber()
			if !ok {
				return NilVal(), vm.runtimeError(diagnostics.ErrR001, "Operands must be numbers.")
			}
			vm.pop()
			vm.push(NumberVal(-n))

		case OP_RETURN:
			if len(vm.stack) == 0 {
				return NilVal(), emptyReturnError(vm.chunk.Lines[offset])
			}
			return vm.pop(), nil

		default:
			return NilVal(), vm.runtimeError(diagnostics.ErrR004, fmt.Sprintf("Unknown opcode %d.", byte(ins.Op)))
		}
	}

	// Only reachable for chunks without a trailing OP_RETURN
	return NilVal(), nil
}

// binaryOp applies a numeric operator to the top two stack values.
func (vm *VM) binaryOp(op Opcode) error {
	b, bok := vm.peek(0).AsNumber()
	a, aok := vm.peek(1).AsNumber()
	if !aok || !bok {
		return vm.runtimeError(diagnostics.ErrR001, "Operands must be numbers.")
	}
	vm.pop()
	vm.pop()

	switch op {
	case OP_ADD:
		vm.push(NumberVal(a + b))
	case OP_SUBTRACT:
		vm.push(NumberVal(a - b))
	case OP_MULTIPLY:
		vm.push(NumberVal(a * b))
	case OP_DIVIDE:
		// Division by zero follows IEEE-754: ±Inf or NaN
		vm.push(NumberVal(a / b))
	case OP_GREATER:
		vm.push(BoolVal(a > b))
	case OP_LESS:
		vm.push(BoolVal(a < b))
	}
	return nil
}

// concatenate pops two strings and pushes a+b, where a was beneath b.
func (vm *VM) concatenate() {
	b, _ := vm.pop().AsString()
	a, _ := vm.pop().AsString()
	vm.push(StringVal(a + b))
}

// runtimeError reports message against the line of the last instruction in
// the chunk, clears the stack and returns the error to hand back to the
// caller. The line is an approximation of where execution stopped.
func (vm *VM) runtimeError(code diagnostics.ErrorCode, message string) error {
	d := diagnostics.NewRuntimeError(code, vm.chunk.LastLine(), message)
	vm.errors.Print(d)
	vm.resetStack()
	return &RuntimeError{DiagnosticError: d}
}

// Stack operations

func (vm *VM) resetStack() {
	clear(vm.stack)
	vm.stack = vm.stack[:0]
}

func (vm *VM) push(v Value) {
	vm.stack = append(vm.stack, v)
}

func (vm *VM) pop() Value {
	n := len(vm.stack)
	if n == 0 {
		panic(errStackUnderflow)
	}
	v := vm.stack[n-1]
	vm.stack[n-1] = Value{}
	vm.stack = vm.stack[:n-1]
	return v
}

func (vm *VM) peek(distance int) Value {
	idx := len(vm.stack) - 1 - distance
	if idx < 0 {
		panic(errStackUnderflow)
	}
	return vm.stack[idx]
}

func (vm *VM) readConstant(idx int) Value {
	if idx < 0 || idx >= len(vm.chunk.Constants) {
		panic(errInvalidConstantIndex)
	}
	return vm.chunk.Constants[idx]
}
