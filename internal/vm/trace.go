package vm

import (
	"fmt"
	"io"
)

// traceInstruction prints the operand stack, bottom first, then the
// instruction about to execute. It has no effect on execution.
func (vm *VM) traceInstruction(offset int) {
	io.WriteString(vm.out, "          ")
	for _, v := range vm.stack {
		fmt.Fprintf(vm.out, "[ %s ]", v)
	}
	io.WriteString(vm.out, "\n")
	DisassembleInstruction(vm.out, vm.chunk, offset)
}
