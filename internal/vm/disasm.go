package vm

import (
	"fmt"
	"io"
	"strings"
)

// Disassemble returns a human-readable listing of the chunk's bytecode
func Disassemble(chunk *Chunk, name string) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "== %s ==\n", name)

	for offset := 0; offset < len(chunk.Code); {
		offset = DisassembleInstruction(&sb, chunk, offset)
	}

	return sb.String()
}

// DisassembleInstruction writes one instruction to w and returns the offset
// of the next one.
func DisassembleInstruction(w io.Writer, chunk *Chunk, offset int) int {
	fmt.Fprintf(w, "%04d ", offset)

	// Print line number
	if offset > 0 && chunk.Lines[offset] == chunk.Lines[offset-1] {
		io.WriteString(w, "   | ")
	} else {
		fmt.Fprintf(w, "%4d ", chunk.Lines[offset])
	}

	ins := chunk.Code[offset]
	switch ins.Op {
	case OP_CONSTANT:
		return constantInstruction(w, ins, chunk, offset)
	default:
		return simpleInstruction(w, ins.Op, offset)
	}
}

func simpleInstruction(w io.Writer, op Opcode, offset int) int {
	fmt.Fprintf(w, "%s\n", op)
	return offset + 1
}

func constantInstruction(w io.Writer, ins Instruction, chunk *Chunk, offset int) int {
	idx := ins.Operand
	if idx < 0 || idx >= len(chunk.Constants) {
		fmt.Fprintf(w, "%-16s %4d <invalid>\n", ins.Op, idx)
		return offset + 1
	}
	fmt.Fprintf(w, "%-16s %4d '%s'\n", ins.Op, idx, chunk.Constants[idx])
	return offset + 1
}
