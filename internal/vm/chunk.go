package vm

// Chunk represents a sequence of bytecode instructions
type Chunk struct {
	// Code is the instruction sequence, in emission order
	Code []Instruction

	// Lines holds the source line of each instruction (same index as Code)
	Lines []int

	// Constants pool - number and string literals
	Constants []Value
}

// NewChunk creates a new empty chunk
func NewChunk() *Chunk {
	return &Chunk{
		Code:      make([]Instruction, 0, 64),
		Lines:     make([]int, 0, 64),
		Constants: make([]Value, 0, 16),
	}
}

// Write appends an instruction together with its source line
func (c *Chunk) Write(ins Instruction, line int) {
	c.Code = append(c.Code, ins)
	c.Lines = append(c.Lines, line)
}

// WriteOp writes an operand-less opcode to the chunk
func (c *Chunk) WriteOp(op Opcode, line int) {
	c.Write(Op(op), line)
}

// AddConstant adds a constant to the pool and returns its index
func (c *Chunk) AddConstant(value Value) int {
	c.Constants = append(c.Constants, value)
	return len(c.Constants) - 1
}

// WriteConstant adds value to the pool and writes the OP_CONSTANT loading it
func (c *Chunk) WriteConstant(value Value, line int) int {
	idx := c.AddConstant(value)
	c.Write(Constant(idx), line)
	return idx
}

// Len returns the number of instructions in the chunk
func (c *Chunk) Len() int {
	return len(c.Code)
}

// LastLine returns the line of the most recently written instruction, or 0
// for an empty chunk.
func (c *Chunk) LastLine() int {
	if len(c.Lines) == 0 {
		return 0
	}
	return c.Lines[len(c.Lines)-1]
}
