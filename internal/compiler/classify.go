package compiler

import (
	"path/filepath"
	"strings"
)

// Action is what a compiler invocation does. The ordering matters: the
// classifier keeps a running maximum over all per-argument signals, so a
// preprocess-only flag anywhere escalates the whole invocation to
// ActionIgnored even when -c also appears.
type Action int

const (
	ActionLink Action = iota
	ActionCompile
	ActionIgnored
)

func (a Action) String() string {
	switch a {
	case ActionLink:
		return "link"
	case ActionCompile:
		return "compile"
	case ActionIgnored:
		return "ignored"
	default:
		return "unknown"
	}
}

// Result is the classification of one compiler argument vector.
type Result struct {
	Action Action
	IsCpp  bool
	// SourceFiles holds recognized source inputs exactly as written on the
	// command line; callers resolve them against the record's directory.
	SourceFiles    []string
	CompileOptions []string
}

// flagEffect says how the classifier treats a recognized flag.
type flagEffect int

const (
	effectCompile  flagEffect = iota // marks the invocation as compiling
	effectIgnore                     // escalates the invocation to ignored
	effectDrop                       // consumed, no effect
	effectDropNext                   // consumed along with its argument, no effect
)

// flagTable maps exact flags to their effect. Adding a recognized flag is a
// one-line change here.
var flagTable = map[string]flagEffect{
	"-c": effectCompile,

	"-E":   effectIgnore,
	"-S":   effectIgnore,
	"-cc1": effectIgnore,
	"-M":   effectIgnore,
	"-MM":  effectIgnore,
	"-###": effectIgnore,

	"-MD":  effectDrop,
	"-MMD": effectDrop,
	"-MG":  effectDrop,
	"-MP":  effectDrop,

	"-MF": effectDropNext,
	"-MT": effectDropNext,
	"-MQ": effectDropNext,

	"-static":   effectDrop,
	"-shared":   effectDrop,
	"-s":        effectDrop,
	"-rdynamic": effectDrop,

	"-l":       effectDropNext,
	"-L":       effectDropNext,
	"-u":       effectDropNext,
	"-z":       effectDropNext,
	"-T":       effectDropNext,
	"-Xlinker": effectDropNext,
}

// sourceExtensions is the recognized source extension set, lower-cased.
var sourceExtensions = map[string]bool{
	".c":   true,
	".cc":  true,
	".cp":  true,
	".cpp": true,
	".cxx": true,
	".c++": true,
	".m":   true,
	".mm":  true,
	".i":   true,
	".ii":  true,
	".mii": true,
}

// AbsResolver returns a resolver that joins relative names to dir and
// normalizes the result. It does not touch the filesystem.
func AbsResolver(dir string) func(string) string {
	return func(name string) string {
		if filepath.IsAbs(name) {
			return filepath.Clean(name)
		}
		return filepath.Join(dir, name)
	}
}

// Classify scans argv[1:] left to right, dispatching each token through the
// flag table. Unknown flags pass through as compile options; the classifier
// is permissive for options and conservative only for recognized directives.
func Classify(argv []string, resolve func(string) string) Result {
	result := Result{Action: ActionLink}
	if len(argv) == 0 {
		return result
	}
	result.IsCpp = isCppCompiler(argv[0])

	args := argv[1:]
	for i := 0; i < len(args); i++ {
		arg := args[i]

		if effect, ok := flagTable[arg]; ok {
			switch effect {
			case effectCompile:
				result.Action = max(result.Action, ActionCompile)
			case effectIgnore:
				result.Action = max(result.Action, ActionIgnored)
			case effectDropNext:
				i++
			case effectDrop:
			}
			continue
		}

		switch {
		case strings.HasPrefix(arg, "-l"), strings.HasPrefix(arg, "-L"):
			// value glued to the flag, link-only
		case strings.HasPrefix(arg, "-I") && len(arg) > 2:
			result.CompileOptions = append(result.CompileOptions, "-I"+resolve(arg[2:]))
		case !strings.HasPrefix(arg, "-") && isSourceFile(arg):
			result.SourceFiles = append(result.SourceFiles, arg)
		default:
			result.CompileOptions = append(result.CompileOptions, arg)
		}
	}
	return result
}

func isSourceFile(name string) bool {
	return sourceExtensions[strings.ToLower(filepath.Ext(name))]
}
