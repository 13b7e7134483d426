package compdb

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"compdb-tracer/internal/compiler"
	"compdb-tracer/internal/trace"
)

func classify(t *testing.T, dir string, argv ...string) (trace.Record, compiler.Result) {
	t.Helper()
	record := trace.Record{Pid: "1", ParentPid: "0", Function: "execve", Directory: dir, Argv: argv}
	return record, compiler.Classify(argv, compiler.AbsResolver(dir))
}

func TestSynthesize(t *testing.T) {
	record, result := classify(t, "/src", "cc", "-c", "-Iinc", "a.c")

	entries := Synthesize(record, result)
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e.Directory != "/src" {
		t.Errorf("Directory = %q, want /src", e.Directory)
	}
	if e.File != "/src/a.c" {
		t.Errorf("File = %q, want /src/a.c", e.File)
	}
	if e.Command != "cc -c -I/src/inc a.c" {
		t.Errorf("Command = %q", e.Command)
	}
}

func TestSynthesizeIgnored(t *testing.T) {
	record, result := classify(t, "/src", "g++", "-E", "a.cpp")
	if entries := Synthesize(record, result); len(entries) != 0 {
		t.Errorf("ignored invocation emitted %d entries", len(entries))
	}
}

// A one-step compile-and-link call has no -c, classifies as a link, and
// still emits one entry per source file.
func TestSynthesizeLinkAction(t *testing.T) {
	record, result := classify(t, "/src", "cc", "a.c", "-o", "a.out")
	if result.Action != compiler.ActionLink {
		t.Fatalf("Action = %s, want link", result.Action)
	}
	entries := Synthesize(record, result)
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0].Command != "cc -c -o a.out a.c" {
		t.Errorf("Command = %q", entries[0].Command)
	}
}

func TestSynthesizeMultipleSources(t *testing.T) {
	record, result := classify(t, "/src", "gcc", "-c", "-O2", "a.c", "b.c")

	entries := Synthesize(record, result)
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Directory != entries[1].Directory {
		t.Error("entries do not share a directory")
	}
	if entries[0].Command != "cc -c -O2 a.c" || entries[1].Command != "cc -c -O2 b.c" {
		t.Errorf("commands = %q, %q", entries[0].Command, entries[1].Command)
	}
	if entries[0].File != "/src/a.c" || entries[1].File != "/src/b.c" {
		t.Errorf("files = %q, %q", entries[0].File, entries[1].File)
	}
}

func TestSynthesizeCppWrapper(t *testing.T) {
	record, result := classify(t, "/src", "clang++", "-c", "a.cpp")
	entries := Synthesize(record, result)
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0].Command != "c++ -c a.cpp" {
		t.Errorf("Command = %q", entries[0].Command)
	}
}

func existingSource(t *testing.T) (dir, file string) {
	t.Helper()
	dir = t.TempDir()
	file = filepath.Join(dir, "a.c")
	if err := os.WriteFile(file, []byte("int main(void) { return 0; }\n"), 0600); err != nil {
		t.Fatal(err)
	}
	return dir, file
}

func TestMergeDropsMissingFiles(t *testing.T) {
	dir, file := existingSource(t)
	entries := []Entry{
		{Directory: dir, Command: "cc -c a.c", File: file},
		{Directory: dir, Command: "cc -c gone.c", File: filepath.Join(dir, "gone.c")},
	}

	merged, stats := Merge(nil, entries, NewIdentitySet())
	if stats.Missing != 1 {
		t.Errorf("Missing = %d, want 1", stats.Missing)
	}
	if len(merged) != 1 {
		t.Fatalf("got %d entries, want 1", len(merged))
	}
	if merged[0].File != file {
		t.Errorf("surviving file = %q, want %q", merged[0].File, file)
	}
}

// Merging a database with itself yields the original set unchanged.
func TestMergeRoundTrip(t *testing.T) {
	dir, file := existingSource(t)
	entries := []Entry{{Directory: dir, Command: "cc -c a.c", File: file}}

	merged, stats := Merge(entries, entries, NewIdentitySet())
	if stats.Duplicates != 1 {
		t.Errorf("Duplicates = %d, want 1", stats.Duplicates)
	}
	if !reflect.DeepEqual(merged, entries) {
		t.Errorf("merged = %v, want %v", merged, entries)
	}
}

// The identity key ignores the compiler wrapper name, so cc and c++ variants
// of the same command collapse; the first occurrence wins.
func TestMergeWrapperVariantsCollapse(t *testing.T) {
	dir, file := existingSource(t)
	previous := []Entry{{Directory: dir, Command: "cc -c -O2 a.c", File: file}}
	current := []Entry{{Directory: dir, Command: "c++ -c -O2 a.c", File: file}}

	merged, _ := Merge(previous, current, NewIdentitySet())
	if len(merged) != 1 {
		t.Fatalf("got %d entries, want 1", len(merged))
	}
	if merged[0].Command != "cc -c -O2 a.c" {
		t.Errorf("survivor = %q, want the previous entry", merged[0].Command)
	}
}

func TestMergeKeepsDistinctCommands(t *testing.T) {
	dir, file := existingSource(t)
	previous := []Entry{{Directory: dir, Command: "cc -c -O2 a.c", File: file}}
	current := []Entry{{Directory: dir, Command: "cc -c -O3 a.c", File: file}}

	merged, _ := Merge(previous, current, NewIdentitySet())
	if len(merged) != 2 {
		t.Fatalf("got %d entries, want 2", len(merged))
	}
}

func TestLoadMissing(t *testing.T) {
	entries, err := Load(filepath.Join(t.TempDir(), "compile_commands.json"))
	if err != nil {
		t.Fatalf("Load of missing file: %v", err)
	}
	if entries != nil {
		t.Errorf("entries = %v, want nil", entries)
	}
}

func TestLoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "compile_commands.json")
	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load of corrupt file succeeded, want error")
	}
}

func TestSaveLoadDeterministic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "compile_commands.json")
	entries := []Entry{
		{Directory: "/src/b", Command: "cc -c b.c", File: "/src/b/b.c"},
		{Directory: "/src/a", Command: "cc -c a.c", File: "/src/a/a.c"},
		{Directory: "/src/a", Command: "cc -c a2.c", File: "/src/a/a2.c"},
	}

	if err := Save(path, entries); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded) != 3 {
		t.Fatalf("got %d entries, want 3", len(loaded))
	}
	if loaded[0].Directory != "/src/a" || loaded[2].Directory != "/src/b" {
		t.Errorf("entries not sorted: %v", loaded)
	}

	first, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := Save(path, loaded); err != nil {
		t.Fatalf("second Save: %v", err)
	}
	second, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(first) != string(second) {
		t.Error("repeated Save is not byte-identical")
	}
}

func TestSaveEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "compile_commands.json")
	if err := Save(path, nil); err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "[]\n" {
		t.Errorf("empty database = %q, want []\\n", string(data))
	}
}
