package config

import "strings"

const SourceFileExt = ".lox"

// SourceFileExtensions are all recognized source file extensions
var SourceFileExtensions = []string{".lox"}

// BundleFileExt is the extension of compiled bytecode files written by -c.
const BundleFileExt = ".loxc"

// Process exit codes, following the sysexits convention.
const (
	ExitOK           = 0
	ExitUsage        = 64
	ExitCompileError = 65
	ExitRuntimeError = 70
	ExitIOError      = 74
	ExitConfig       = 78
)

// Environment variables that override the config file.
const (
	EnvTrace     = "LOX_TRACE"
	EnvPrintCode = "LOX_PRINT_CODE"
	EnvLogLevel  = "LOX_LOG_LEVEL"
	EnvConfig    = "LOX_CONFIG"
)

// Config file names searched by FindConfig, in order.
var ConfigFileNames = []string{"lox.yaml", "lox.yml", "lox.toml"}

const DefaultPrompt = "> "

// HasSourceExt reports whether path ends in a recognized source extension.
func HasSourceExt(path string) bool {
	for _, ext := range SourceFileExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

// TrimSourceExt removes a recognized source extension from path, if any.
func TrimSourceExt(path string) string {
	for _, ext := range SourceFileExtensions {
		if strings.HasSuffix(path, ext) {
			return strings.TrimSuffix(path, ext)
		}
	}
	return path
}
