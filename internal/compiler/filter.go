// Package compiler decides which traced executions are compiler invocations
// and classifies their command lines.
package compiler

import (
	"regexp"
	"strings"
)

// namePattern matches a compiler front end by executable name.
type namePattern struct {
	name  string
	regex *regexp.Regexp
}

// version suffix like -11, -4.2 or -4.2.1, tolerated on GNU and clang names.
const versionSuffix = `(-\d+(\.\d+){0,2})?`

// compilerPatterns is matched against argv[0] with any path prefix removed.
// The literal string is used; nothing is resolved against PATH.
var compilerPatterns = []namePattern{
	{"cc", regexp.MustCompile(`^cc$`)},
	{"c++", regexp.MustCompile(`^c\+\+$`)},
	{"gcc", regexp.MustCompile(`^([^-]*-)*gcc` + versionSuffix + `$`)},
	{"g++", regexp.MustCompile(`^([^-]*-)*g\+\+` + versionSuffix + `$`)},
	{"clang", regexp.MustCompile(`^clang` + versionSuffix + `$`)},
	{"clang++", regexp.MustCompile(`^clang\+\+` + versionSuffix + `$`)},
	{"llvm-gcc", regexp.MustCompile(`^llvm-gcc$`)},
	{"llvm-g++", regexp.MustCompile(`^llvm-g\+\+$`)},
}

// cppPattern recognizes C++ front end names (c++, g++, clang++, llvm-g++,
// vendor-prefixed and versioned variants).
var cppPattern = regexp.MustCompile(`^([^-]*-)*(c|g|clang)\+\+` + versionSuffix + `$`)

// IsCompilerCall reports whether argv names a recognized compiler front end.
// Records that fail this predicate never reach the classifier.
func IsCompilerCall(argv []string) bool {
	if len(argv) == 0 {
		return false
	}
	name := basename(argv[0])
	for _, p := range compilerPatterns {
		if p.regex.MatchString(name) {
			return true
		}
	}
	return false
}

func isCppCompiler(executable string) bool {
	return cppPattern.MatchString(basename(executable))
}

// basename strips everything up to the final slash. The executable path in a
// trace record is the literal exec argument, so this is a plain string
// operation, not a filesystem path query.
func basename(executable string) string {
	if i := strings.LastIndexByte(executable, '/'); i >= 0 {
		return executable[i+1:]
	}
	return executable
}
