package builder

import (
	"os"
	"os/exec"
)

// TODO: zig cc
var (
	commonCCompilers   = []string{"clang", "gcc", "icx", "icc", "tcc"}
	commonCxxCompilers = []string{"clang++", "g++", "clang", "gcc", "icpx", "icx", "icpc", "icc"}
)

const fallbackCompiler = "cc"

// findCompiler picks a C or C++ compiler from the environment. When searchPath is
// set, the PATH is searched for a common compiler before falling back to cc.
// Only the compiler's name is returned so generated files stay portable.
func findCompiler(needCxx, searchPath bool) string {
	cc := os.Getenv("CC")
	cxx := os.Getenv("CXX")

	if needCxx && cxx != "" {
		return cxx
	}
	if !needCxx && cc != "" {
		return cc
	}

	if cxx != "" {
		return cxx
	}
	if cc != "" {
		return cc
	}

	if !searchPath {
		return fallbackCompiler
	}

	var compilersToTry []string
	if needCxx {
		compilersToTry = commonCxxCompilers
	} else {
		compilersToTry = commonCCompilers
	}

	for _, compiler := range compilersToTry {
		if _, err := exec.LookPath(compiler); err == nil {
			return compiler
		}
	}

	return fallbackCompiler
}
