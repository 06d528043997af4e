// Package vm implements the Lox expression compiler and the bytecode virtual
// machine that runs its output.
package vm

import "fmt"

// Opcode represents a single VM instruction
type Opcode byte

const (
	OP_CONSTANT Opcode = iota // Push constant from pool; operand is the pool index

	// Literals
	OP_NIL   // Push nil
	OP_TRUE  // Push true
	OP_FALSE // Push false

	// Comparison
	OP_EQUAL   // ==
	OP_GREATER // >
	OP_LESS    // <

	// Arithmetic
	OP_ADD      // + (numbers or strings)
	OP_SUBTRACT // -
	OP_MULTIPLY // *
	OP_DIVIDE   // /

	// Unary
	OP_NOT    // !
	OP_NEGATE // unary minus

	OP_RETURN // Pop the result and stop

	numOpcodes
)

// OpcodeNames maps opcodes to their string names (for debugging)
var OpcodeNames = map[Opcode]string{
	OP_CONSTANT: "OP_CONSTANT",
	OP_NIL:      "OP_NIL",
	OP_TRUE:     "OP_TRUE",
	OP_FALSE:    "OP_FALSE",
	OP_EQUAL:    "OP_EQUAL",
	OP_GREATER:  "OP_GREATER",
	OP_LESS:     "OP_LESS",
	OP_ADD:      "OP_ADD",
	OP_SUBTRACT: "OP_SUBTRACT",
	OP_MULTIPLY: "OP_MULTIPLY",
	OP_DIVIDE:   "OP_DIVIDE",
	OP_NOT:      "OP_NOT",
	OP_NEGATE:   "OP_NEGATE",
	OP_RETURN:   "OP_RETURN",
}

func (op Opcode) String() string {
	if name, ok := OpcodeNames[op]; ok {
		return name
	}
	return fmt.Sprintf("OP_UNKNOWN(%d)", byte(op))
}

// Valid reports whether op is a known opcode.
func (op Opcode) Valid() bool {
	return op < numOpcodes
}

// Instruction is one decoded instruction. Only OP_CONSTANT uses Operand,
// which holds the constant pool index inline.
type Instruction struct {
	Op      Opcode
	Operand int
}

// Op builds an operand-less instruction.
func Op(op Opcode) Instruction {
	return Instruction{Op: op}
}

// Constant builds an OP_CONSTANT instruction for the given pool index.
func Constant(index int) Instruction {
	return Instruction{Op: OP_CONSTANT, Operand: index}
}
