package vm

import (
	"bytes"
	"errors"
	"io"
	"math"
	"strings"
	"testing"

	"github.com/funvibe/lox/internal/diagnostics"
)

func newTestVM() *VM {
	vm := New()
	vm.SetOutput(io.Discard)
	vm.SetErrorOutput(io.Discard)
	return vm
}

func runVM(t *testing.T, input string) Value {
	t.Helper()
	vm := newTestVM()
	result, err := vm.Interpret(input)
	if err != nil {
		t.Fatalf("interpret error: %s", err)
	}
	if vm.StackSize() != 0 {
		t.Fatalf("stack not empty after run: %d values", vm.StackSize())
	}
	return result
}

// runVMExpectError interprets the input, expecting a runtime error, and
// returns it. Fails the test if the input runs cleanly or fails to compile.
func runVMExpectError(t *testing.T, input string) *RuntimeError {
	t.Helper()
	vm := newTestVM()
	_, err := vm.Interpret(input)
	if err == nil {
		t.Fatalf("expected runtime error, but code ran successfully")
	}
	var re *RuntimeError
	if !errors.As(err, &re) {
		t.Fatalf("expected runtime error, got %T: %s", err, err)
	}
	if vm.StackSize() != 0 {
		t.Fatalf("stack not cleared after runtime error: %d values", vm.StackSize())
	}
	return re
}

func testNumberValue(t *testing.T, v Value, expected float64) {
	t.Helper()
	n, ok := v.AsNumber()
	if !ok {
		t.Fatalf("value is not a number. got=%s (%v)", v.Type, v)
	}
	if n != expected {
		t.Errorf("value has wrong number. got=%g, want=%g", n, expected)
	}
}

func testBoolValue(t *testing.T, v Value, expected bool) {
	t.Helper()
	b, ok := v.AsBool()
	if !ok {
		t.Fatalf("value is not a bool. got=%s (%v)", v.Type, v)
	}
	if b != expected {
		t.Errorf("value has wrong bool. got=%t, want=%t", b, expected)
	}
}

func testStringValue(t *testing.T, v Value, expected string) {
	t.Helper()
	s, ok := v.AsString()
	if !ok {
		t.Fatalf("value is not a string. got=%s (%v)", v.Type, v)
	}
	if s != expected {
		t.Errorf("value has wrong string. got=%q, want=%q", s, expected)
	}
}

func TestNumberArithmetic(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
	}{
		{"1", 1},
		{"1.5", 1.5},
		{"1 + 2", 3},
		{"1 - 2", -1},
		{"2 * 3", 6},
		{"6 / 4", 1.5},
		{"1 + 2 * 3", 7},
		{"(1 + 2) * 3", 9},
		{"10 - 4 - 3", 3},
		{"8 / 4 / 2", 1},
		{"-(3)", -3},
		{"--1", 1},
		{"-2 * 3", -6},
		{"1.5 + 2.25", 3.75},
		{"(5 + 10 * 2 + 15 / 3) * 2 + -10", 50},
		{"// leading comment\n 4 * 2", 8},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			testNumberValue(t, runVM(t, tt.input), tt.expected)
		})
	}
}

func TestDivisionByZero(t *testing.T) {
	n, _ := runVM(t, "1 / 0").AsNumber()
	if !math.IsInf(n, 1) {
		t.Errorf("1 / 0: got %g, want +Inf", n)
	}

	n, _ = runVM(t, "-1 / 0").AsNumber()
	if !math.IsInf(n, -1) {
		t.Errorf("-1 / 0: got %g, want -Inf", n)
	}

	n, _ = runVM(t, "0 / 0").AsNumber()
	if !math.IsNaN(n) {
		t.Errorf("0 / 0: got %g, want NaN", n)
	}
}

func TestBooleanExpressions(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"true", true},
		{"false", false},
		{"1 < 2", true},
		{"1 > 2", false},
		{"!(1 < 2)", false},
		{"2 >= 2", true},
		{"1 >= 2", false},
		{"1 <= 0", false},
		{"0 <= 0", true},
		{"1 == 1", true},
		{"1 != 2", true},
		{"1 != 1", false},
		{"nil == nil", true},
		{"nil == false", false},
		{`"a" == "a"`, true},
		{`"a" == "b"`, false},
		{`1 == "1"`, false},
		{"true == true", true},
		{"!nil", true},
		{"!false", true},
		{"!0", false},
		{`!""`, false},
		{"!!true", true},
		{"1 < 2 == true", true},
		{"0 == nil", false},
		{"true == 1", false},
		{`"" == false`, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			testBoolValue(t, runVM(t, tt.input), tt.expected)
		})
	}
}

// The compiler rewrites >=, <= and != as the negation of <, > and ==, so
// NaN operands make >= and <= true, unlike Go's own operators.
func TestComparisonRewrites(t *testing.T) {
	operands := []struct {
		src string
		n   float64
	}{
		{"0", 0},
		{"1", 1},
		{"-1", -1},
		{"2.5", 2.5},
		{"(0 / 0)", math.NaN()},
		{"(1 / 0)", math.Inf(1)},
		{"(-1 / 0)", math.Inf(-1)},
	}

	for _, a := range operands {
		for _, b := range operands {
			cases := []struct {
				rewritten string
				negated   string
				expected  bool
			}{
				{a.src + " >= " + b.src, "!(" + a.src + " < " + b.src + ")", !(a.n < b.n)},
				{a.src + " <= " + b.src, "!(" + a.src + " > " + b.src + ")", !(a.n > b.n)},
				{a.src + " != " + b.src, "!(" + a.src + " == " + b.src + ")", !(a.n == b.n)},
			}
			for _, tt := range cases {
				testBoolValue(t, runVM(t, tt.rewritten), tt.expected)
				testBoolValue(t, runVM(t, tt.negated), tt.expected)
			}
		}
	}

	testBoolValue(t, runVM(t, "(0 / 0) >= 1"), true)
	testBoolValue(t, runVM(t, "(0 / 0) <= 1"), true)
	testBoolValue(t, runVM(t, "(0 / 0) != (0 / 0)"), true)
}

func TestNilLiteral(t *testing.T) {
	if v := runVM(t, "nil"); !v.IsNil() {
		t.Errorf("expected nil, got %v", v)
	}
}

func TestStringConcatenation(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`"ab"`, "ab"},
		{`"ab" + "cd"`, "abcd"},
		{`"" + ""`, ""},
		{`"a" + "b" + "c"`, "abc"},
		{`("x" + "y")`, "xy"},
		{`"a" + ("b" + "c")`, "abc"},
		{`("a" + "b") + "c"`, "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			testStringValue(t, runVM(t, tt.input), tt.expected)
		})
	}
}

func TestStringConcatenationAssociates(t *testing.T) {
	parts := []string{`""`, `"a"`, `"bc"`, `"d e"`}
	for _, a := range parts {
		for _, b := range parts {
			for _, c := range parts {
				left := runVM(t, "("+a+" + "+b+") + "+c)
				right := runVM(t, a+" + ("+b+" + "+c+")")
				if !ValuesEqual(left, right) {
					t.Errorf("(%s + %s) + %s = %v, but %s + (%s + %s) = %v",
						a, b, c, left, a, b, c, right)
				}
			}
		}
	}
}

func TestRuntimeErrors(t *testing.T) {
	tests := []struct {
		input   string
		code    diagnostics.ErrorCode
		message string
	}{
		{`-"x"`, diagnostics.ErrR001, "Operands must be numbers."},
		{"-nil", diagnostics.ErrR001, "Operands must be numbers."},
		{`1 + "a"`, diagnostics.ErrR002, "Operands must be two numbers or two strings."},
		{"true + true", diagnostics.ErrR002, "Operands must be two numbers or two strings."},
		{`"a" - "b"`, diagnostics.ErrR001, "Operands must be numbers."},
		{"true < 1", diagnostics.ErrR001, "Operands must be numbers."},
		{"nil * 2", diagnostics.ErrR001, "Operands must be numbers."},
		{`"a" / 1`, diagnostics.ErrR001, "Operands must be numbers."},
		{`1 >= "x"`, diagnostics.ErrR001, "Operands must be numbers."},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			re := runVMExpectError(t, tt.input)
			if re.Code != tt.code {
				t.Errorf("wrong code. got=%s, want=%s", re.Code, tt.code)
			}
			if re.Message != tt.message {
				t.Errorf("wrong message. got=%q, want=%q", re.Message, tt.message)
			}
			if ResultOf(re) != INTERPRET_RUNTIME_ERROR {
				t.Errorf("ResultOf = %s", ResultOf(re))
			}
		})
	}
}

func TestRuntimeErrorReportsLastEmittedLine(t *testing.T) {
	// The failing NEGATE is on line 1, but OP_RETURN was emitted for the EOF
	// token on line 3.
	re := runVMExpectError(t, "-\"x\"\n\n")
	if re.Line != 3 {
		t.Errorf("runtime error line: got %d, want 3", re.Line)
	}
	if got, want := re.Error(), "Operands must be numbers.\n[line 3] in script"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestRuntimeErrorIsPrinted(t *testing.T) {
	var stderr bytes.Buffer
	vm := New()
	vm.SetErrorOutput(&stderr)

	if _, err := vm.Interpret(`1 + "a"`); err == nil {
		t.Fatal("expected runtime error")
	}
	want := "Operands must be two numbers or two strings.\n[line 1] in script\n"
	if stderr.String() != want {
		t.Errorf("stderr = %q, want %q", stderr.String(), want)
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"(1 + 2", "[line 1] Error at end: Expect ')' after expression."},
		{"", "[line 1] Error at end: Expect expression."},
		{"1 +", "[line 1] Error at end: Expect expression."},
		{"+ 1", "[line 1] Error at '+': Expect expression."},
		{"1 2", "[line 1] Error at '2': Expect end of expression."},
		{")", "[line 1] Error at ')': Expect expression."},
		{`"abc`, "[line 1] Error: Unterminated string."},
		{"@", "[line 1] Error: Unexpected character."},
		{"1 +\n\n*", "[line 3] Error at '*': Expect expression."},
		{"(1 + @", "[line 1] Error: Unexpected character."},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var stderr bytes.Buffer
			vm := New()
			vm.SetErrorOutput(&stderr)

			_, err := vm.Interpret(tt.input)
			var ce *CompileError
			if !errors.As(err, &ce) {
				t.Fatalf("expected compile error, got %v", err)
			}
			if len(ce.Diagnostics) != 1 {
				t.Fatalf("expected exactly one diagnostic, got %d: %s", len(ce.Diagnostics), ce)
			}
			if ce.Error() != tt.expected {
				t.Errorf("wrong error. got=%q, want=%q", ce.Error(), tt.expected)
			}
			if stderr.String() != tt.expected+"\n" {
				t.Errorf("stderr = %q", stderr.String())
			}
			if ResultOf(err) != INTERPRET_COMPILE_ERROR {
				t.Errorf("ResultOf = %s", ResultOf(err))
			}
		})
	}
}

func TestCompileErrorRunsNothing(t *testing.T) {
	var out bytes.Buffer
	vm := newTestVM()
	vm.SetOutput(&out)
	vm.SetTrace(true)

	if _, err := vm.Interpret("(1 + 2"); err == nil {
		t.Fatal("expected compile error")
	}
	if out.Len() != 0 {
		t.Errorf("nothing should execute after a compile error, got trace:\n%s", out.String())
	}
}

func TestInterpretCallsAreIsolated(t *testing.T) {
	vm := newTestVM()

	if _, err := vm.Interpret(`-"x"`); err == nil {
		t.Fatal("expected runtime error")
	}
	if vm.StackSize() != 0 {
		t.Fatalf("stack not empty after error: %d", vm.StackSize())
	}

	result, err := vm.Interpret("1 + 2")
	if err != nil {
		t.Fatalf("interpret error: %s", err)
	}
	testNumberValue(t, result, 3)

	if _, err := vm.Interpret("(1"); err == nil {
		t.Fatal("expected compile error")
	}

	result, err = vm.Interpret(`"a" + "b"`)
	if err != nil {
		t.Fatalf("interpret error: %s", err)
	}
	testStringValue(t, result, "ab")
	if vm.StackSize() != 0 {
		t.Errorf("stack not empty: %d", vm.StackSize())
	}
}

func TestInterpretReplacesChunk(t *testing.T) {
	vm := newTestVM()
	if _, err := vm.Interpret("1"); err != nil {
		t.Fatal(err)
	}
	first := vm.Chunk()
	if _, err := vm.Interpret("2"); err != nil {
		t.Fatal(err)
	}
	if vm.Chunk() == first {
		t.Error("second Interpret should install a new chunk")
	}
}

func TestRunChunkHandBuilt(t *testing.T) {
	t.Run("underflow", func(t *testing.T) {
		chunk := NewChunk()
		chunk.WriteOp(OP_NEGATE, 1)
		chunk.WriteOp(OP_RETURN, 1)

		vm := newTestVM()
		_, err := vm.RunChunk(chunk)
		var re *RuntimeError
		if !errors.As(err, &re) {
			t.Fatalf("expected runtime error, got %v", err)
		}
		if re.Code != diagnostics.ErrR004 {
			t.Errorf("code = %s, want %s", re.Code, diagnostics.ErrR004)
		}
		if vm.StackSize() != 0 {
			t.Errorf("stack not cleared: %d", vm.StackSize())
		}
	})

	t.Run("bad constant index", func(t *testing.T) {
		chunk := NewChunk()
		chunk.Write(Constant(7), 1)
		chunk.WriteOp(OP_RETURN, 1)

		_, err := newTestVM().RunChunk(chunk)
		var re *RuntimeError
		if !errors.As(err, &re) {
			t.Fatalf("expected runtime error, got %v", err)
		}
		if re.Code != diagnostics.ErrR005 {
			t.Errorf("code = %s, want %s", re.Code, diagnostics.ErrR005)
		}
	})

	t.Run("return with empty stack", func(t *testing.T) {
		chunk := NewChunk()
		chunk.WriteOp(OP_RETURN, 4)

		_, err := newTestVM().RunChunk(chunk)
		if ResultOf(err) != INTERPRET_COMPILE_ERROR {
			t.Fatalf("ResultOf = %s, want compile error (%v)", ResultOf(err), err)
		}
		if !strings.Contains(err.Error(), "[line 4]") {
			t.Errorf("error should carry the RETURN line: %s", err)
		}
	})

	t.Run("lines out of step with code", func(t *testing.T) {
		chunks := []*Chunk{
			{Code: []Instruction{Op(OP_RETURN)}},
			{Code: []Instruction{Op(OP_TRUE), Op(OP_NEGATE), Op(OP_RETURN)}, Lines: []int{1}},
			nil,
		}
		for _, chunk := range chunks {
			vm := newTestVM()
			vm.SetTrace(true)
			_, err := vm.RunChunk(chunk)
			if !errors.Is(err, ErrBundleInvalid) {
				t.Errorf("expected ErrBundleInvalid, got %v", err)
			}
			if vm.StackSize() != 0 {
				t.Errorf("stack not empty: %d", vm.StackSize())
			}
		}
	})

	t.Run("no return", func(t *testing.T) {
		chunk := NewChunk()
		chunk.WriteConstant(NumberVal(1), 1)

		vm := newTestVM()
		result, err := vm.RunChunk(chunk)
		if err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
		if !result.IsNil() {
			t.Errorf("expected nil, got %v", result)
		}
		if vm.StackSize() != 0 {
			t.Errorf("stack not empty: %d", vm.StackSize())
		}
	})

	t.Run("compiled", func(t *testing.T) {
		chunk := NewChunk()
		if err := Compile("2 * 21", chunk); err != nil {
			t.Fatal(err)
		}
		result, err := newTestVM().RunChunk(chunk)
		if err != nil {
			t.Fatal(err)
		}
		testNumberValue(t, result, 42)
	})
}

func TestTrace(t *testing.T) {
	var out bytes.Buffer
	vm := newTestVM()
	vm.SetOutput(&out)
	vm.SetTrace(true)

	result, err := vm.Interpret("1 + 2")
	if err != nil {
		t.Fatal(err)
	}
	testNumberValue(t, result, 3)

	expected := "          \n" +
		"0000    1 OP_CONSTANT         0 '1'\n" +
		"          [ 1 ]\n" +
		"0001    | OP_CONSTANT         1 '2'\n" +
		"          [ 1 ][ 2 ]\n" +
		"0002    | OP_ADD\n" +
		"          [ 3 ]\n" +
		"0003    | OP_RETURN\n"
	if out.String() != expected {
		t.Errorf("trace output mismatch.\ngot:\n%s\nwant:\n%s", out.String(), expected)
	}
}

func TestPrintCode(t *testing.T) {
	var out bytes.Buffer
	vm := newTestVM()
	vm.SetOutput(&out)
	vm.SetPrintCode(true)

	if _, err := vm.Interpret("!true"); err != nil {
		t.Fatal(err)
	}

	expected := "== code ==\n" +
		"0000    1 OP_TRUE\n" +
		"0001    | OP_NOT\n" +
		"0002    | OP_RETURN\n"
	if out.String() != expected {
		t.Errorf("disassembly mismatch.\ngot:\n%s\nwant:\n%s", out.String(), expected)
	}
}
