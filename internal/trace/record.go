// Package trace decodes the per-process execution records written by the
// interception library during a traced build.
package trace

import "fmt"

// Wire format separators. Each trace file holds one or more groups separated
// by GS; a group holds five fields separated by RS; the last field is the
// argument vector with a US after every argument, including the final one.
const (
	groupSep  = 0x1d
	recordSep = 0x1e
	unitSep   = 0x1f
)

// fieldCount is the fixed number of RS-separated fields in a group.
const fieldCount = 5

// Record is one traced process execution.
type Record struct {
	Pid       string
	ParentPid string
	// Function is the interception hook that produced the record
	// (execve, posix_spawn, ...). Informational only.
	Function  string
	Directory string
	Argv      []string
}

// MalformedRecordError reports a trace group that does not have the expected
// field structure. It is fatal for the file: a short group means the trace
// was truncated or corrupted, and a silently incomplete database is worse
// than a failed run.
type MalformedRecordError struct {
	File   string
	Group  int
	Fields int
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("trace %s: group %d has %d fields, want %d",
		e.File, e.Group, e.Fields, fieldCount)
}
