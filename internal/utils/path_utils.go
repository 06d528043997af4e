package utils

import (
	"path/filepath"

	"github.com/funvibe/lox/internal/config"
)

// BundlePath returns the compiled bytecode path for a source file:
// the source extension is replaced with the bundle extension.
func BundlePath(sourcePath string) string {
	return config.TrimSourceExt(sourcePath) + config.BundleFileExt
}

// DisplayName derives a short program name from a file path, used as the
// chunk name in disassembly headers.
func DisplayName(path string) string {
	name := filepath.Base(path)
	if filepath.Ext(name) == config.BundleFileExt {
		return name[:len(name)-len(config.BundleFileExt)]
	}
	return config.TrimSourceExt(name)
}
