// Package cli implements the lox command: an interactive prompt, a file
// runner and a bytecode compiler.
package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/funvibe/lox/internal/config"
	"github.com/funvibe/lox/internal/diagnostics"
	"github.com/funvibe/lox/internal/logging"
	"github.com/funvibe/lox/internal/utils"
	"github.com/funvibe/lox/internal/vm"
)

const usage = `Usage: lox [options] [path]
       lox -c <path>

With no path, lox reads expressions from standard input, one per line.
A path may name a source file or a compiled .loxc bundle.

Options:
  -c, --compile <path>  compile path to a .loxc bundle next to it
      --trace           print the stack and each instruction as it runs
      --print-code      disassemble each program before running it
  -h, --help            show this help
`

// Env is everything the command reads from or writes to besides its
// arguments.
type Env struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Dir is where the config file search starts.
	Dir string

	// LookupEnv reads environment variables (os.LookupEnv in production).
	LookupEnv func(string) (string, bool)
}

// invocation is the parsed command line.
type invocation struct {
	help      bool
	compile   bool
	trace     bool
	printCode bool
	paths     []string
}

// Run executes the lox command against the process environment and returns
// the exit code.
func Run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	dir, err := os.Getwd()
	if err != nil {
		dir = "."
	}
	return RunEnv(args, Env{
		Stdin:     stdin,
		Stdout:    stdout,
		Stderr:    stderr,
		Dir:       dir,
		LookupEnv: os.LookupEnv,
	})
}

// RunEnv executes the lox command against env and returns the exit code.
func RunEnv(args []string, env Env) int {
	inv, err := parseArgs(args)
	if err != nil {
		fmt.Fprintf(env.Stderr, "lox: %s\n", err)
		fmt.Fprint(env.Stderr, usage)
		return config.ExitUsage
	}
	if inv.help {
		fmt.Fprint(env.Stdout, usage)
		return config.ExitOK
	}

	cfg, cfgPath, err := config.Load(env.Dir, env.LookupEnv)
	if err != nil {
		fmt.Fprintf(env.Stderr, "lox: config: %s\n", err)
		return config.ExitConfig
	}
	if inv.trace {
		cfg.Trace = true
	}
	if inv.printCode {
		cfg.PrintCode = true
	}

	base := logging.New(env.Stderr, cfg.Level())
	logger := logging.WithSource(base, "cli")
	if cfgPath != "" {
		logger.Debug().Str("path", cfgPath).Msg("loaded config")
	}

	printer := diagnostics.NewPrinter(env.Stderr, useColor(cfg.Color, env.Stderr))

	machine := vm.New()
	machine.SetOutput(env.Stdout)
	machine.SetErrorPrinter(printer)
	machine.SetLogger(base)
	machine.SetTrace(cfg.Trace)
	machine.SetPrintCode(cfg.PrintCode)

	switch {
	case inv.compile:
		return handleCompile(inv.paths[0], cfg, env, printer, logger)
	case len(inv.paths) == 1:
		return runFile(machine, inv.paths[0], env, logger)
	default:
		return runREPL(machine, cfg.Prompt, env)
	}
}

func parseArgs(args []string) (*invocation, error) {
	inv := &invocation{}
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch arg {
		case "-h", "-help", "--help", "help":
			inv.help = true
		case "-c", "--compile":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("%s needs a source path", arg)
			}
			inv.compile = true
			i++
			inv.paths = append(inv.paths, args[i])
		case "--trace", "-trace":
			inv.trace = true
		case "--print-code", "-print-code":
			inv.printCode = true
		default:
			if strings.HasPrefix(arg, "-") {
				return nil, fmt.Errorf("unknown option %s", arg)
			}
			inv.paths = append(inv.paths, arg)
		}
	}

	if len(inv.paths) > 1 {
		return nil, errors.New("too many arguments")
	}
	return inv, nil
}

func useColor(mode string, w io.Writer) bool {
	switch mode {
	case config.ColorAlways:
		return true
	case config.ColorNever:
		return false
	default:
		return utils.IsTerminal(w)
	}
}

// exitCode maps the outcome of a run to the process exit status.
func exitCode(err error) int {
	switch vm.ResultOf(err) {
	case vm.INTERPRET_COMPILE_ERROR:
		return config.ExitCompileError
	case vm.INTERPRET_RUNTIME_ERROR:
		return config.ExitRuntimeError
	}
	return config.ExitOK
}

// runREPL interprets stdin one line at a time on a single VM. Errors are
// reported and the loop moves on to the next line.
func runREPL(machine *vm.VM, prompt string, env Env) int {
	interactive := utils.IsTerminal(env.Stdin)
	reader := bufio.NewReader(env.Stdin)

	for {
		if interactive {
			fmt.Fprint(env.Stdout, prompt)
		}

		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			fmt.Fprintf(env.Stderr, "lox: read input: %s\n", err)
			return config.ExitIOError
		}

		if strings.TrimSpace(line) != "" {
			source := strings.TrimRight(line, "\r\n") + "\n"
			if result, runErr := machine.Interpret(source); runErr == nil {
				fmt.Fprintln(env.Stdout, result)
			}
		}

		if err != nil {
			if interactive {
				fmt.Fprintln(env.Stdout)
			}
			return config.ExitOK
		}
	}
}

// runFile runs a source file, or a bundle written by -c, as one program.
func runFile(machine *vm.VM, path string, env Env, logger zerolog.Logger) int {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(env.Stderr, "Could not open file %q.\n", path)
		logger.Debug().Err(err).Str("path", path).Msg("read failed")
		return config.ExitIOError
	}

	var result vm.Value
	if vm.IsBundle(data) {
		bundle, err := vm.Deserialize(data)
		if err != nil {
			fmt.Fprintf(env.Stderr, "lox: %s: %s\n", path, err)
			return config.ExitCompileError
		}
		logger.Debug().Str("path", path).Str("source", bundle.SourceFile).Msg("running bundle")
		result, err = machine.RunChunk(bundle.Chunk)
		if err != nil {
			return exitCode(err)
		}
	} else {
		result, err = machine.Interpret(string(data))
		if err != nil {
			return exitCode(err)
		}
	}

	fmt.Fprintln(env.Stdout, result)
	return config.ExitOK
}

// handleCompile compiles a source file to a bytecode bundle (.loxc file).
func handleCompile(sourcePath string, cfg *config.Config, env Env, printer *diagnostics.Printer, logger zerolog.Logger) int {
	source, err := os.ReadFile(sourcePath)
	if err != nil {
		fmt.Fprintf(env.Stderr, "Could not open file %q.\n", sourcePath)
		return config.ExitIOError
	}

	chunk := vm.NewChunk()
	if err := vm.Compile(string(source), chunk); err != nil {
		var ce *vm.CompileError
		if errors.As(err, &ce) {
			printer.PrintAll(ce.Diagnostics)
		} else {
			printer.Print(err)
		}
		return config.ExitCompileError
	}

	if cfg.PrintCode {
		fmt.Fprint(env.Stdout, vm.Disassemble(chunk, utils.DisplayName(sourcePath)))
	}

	bundle := &vm.Bundle{Chunk: chunk, SourceFile: sourcePath}
	data, err := bundle.Serialize()
	if err != nil {
		fmt.Fprintf(env.Stderr, "Serialization error: %s\n", err)
		return config.ExitCompileError
	}

	outputPath := utils.BundlePath(sourcePath)
	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		fmt.Fprintf(env.Stderr, "Error writing bytecode file: %s\n", err)
		return config.ExitIOError
	}

	logger.Debug().Str("path", outputPath).Int("bytes", len(data)).Msg("wrote bundle")
	fmt.Fprintf(env.Stdout, "Compiled %s -> %s (%d bytes)\n", sourcePath, outputPath, len(data))
	return config.ExitOK
}
