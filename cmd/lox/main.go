package main

import (
	"fmt"
	"io"
	"os"

	"github.com/funvibe/lox/internal/config"
	"github.com/funvibe/lox/pkg/cli"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			if os.Getenv("DEBUG") == "1" {
				panic(r) // keep the Go stack trace
			}
			os.Exit(reportInternalError(os.Stderr, r))
		}
	}()

	os.Exit(cli.Run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// reportInternalError describes a recovered panic on w and returns the exit
// code to leave with.
func reportInternalError(w io.Writer, r any) int {
	fmt.Fprintf(w, "lox: internal error: %v\n", r)
	fmt.Fprintln(w, "lox: this is a bug in the interpreter; please report it along with the input that triggered it.")
	return config.ExitRuntimeError
}
