// Package compdb synthesizes, merges and serializes compilation database
// entries.
package compdb

import (
	"compdb-tracer/internal/compiler"
	"compdb-tracer/internal/shell"
	"compdb-tracer/internal/trace"
)

// Entry is one row of the compilation database.
type Entry struct {
	Directory string `json:"directory"`
	Command   string `json:"command"`
	File      string `json:"file"`
}

// Synthesize turns a classified record into one entry per source file.
// Invocations classified ignored emit nothing; link and compile both emit,
// so a one-step "cc a.c -o a" call still yields an entry for a.c.
func Synthesize(record trace.Record, result compiler.Result) []Entry {
	if result.Action > compiler.ActionCompile {
		return nil
	}

	resolve := compiler.AbsResolver(record.Directory)
	wrapper := "cc"
	if result.IsCpp {
		wrapper = "c++"
	}

	entries := make([]Entry, 0, len(result.SourceFiles))
	for _, src := range result.SourceFiles {
		tokens := make([]string, 0, len(result.CompileOptions)+3)
		tokens = append(tokens, wrapper, "-c")
		tokens = append(tokens, result.CompileOptions...)
		tokens = append(tokens, src)
		entries = append(entries, Entry{
			Directory: record.Directory,
			Command:   shell.Join(tokens),
			File:      resolve(src),
		})
	}
	return entries
}
