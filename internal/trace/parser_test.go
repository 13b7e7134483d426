package trace

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const (
	gs = "\x1d"
	rs = "\x1e"
	us = "\x1f"
)

// group builds one wire-format group for tests.
func group(pid, ppid, fn, dir string, argv ...string) string {
	blob := ""
	for _, a := range argv {
		blob += a + us
	}
	return strings.Join([]string{pid, ppid, fn, dir, blob}, rs)
}

func writeTrace(t *testing.T, dir, name, content string) string {
	t.Helper()
	fname := filepath.Join(dir, name)
	if err := os.WriteFile(fname, []byte(content), 0600); err != nil {
		t.Fatalf("writing trace file: %v", err)
	}
	return fname
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	content := group("101", "1", "execve", "/src", "cc", "-c", "a.c") + gs +
		group("102", "101", "posix_spawn", "/src/sub", "ld", "-o", "a.out") + gs
	fname := writeTrace(t, dir, "cmd.101", content)

	records, err := ParseFile(fname)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}

	r := records[0]
	if r.Pid != "101" || r.ParentPid != "1" || r.Function != "execve" {
		t.Errorf("record header = %q/%q/%q", r.Pid, r.ParentPid, r.Function)
	}
	if r.Directory != "/src" {
		t.Errorf("Directory = %q, want /src", r.Directory)
	}
	want := []string{"cc", "-c", "a.c"}
	if len(r.Argv) != len(want) {
		t.Fatalf("Argv = %v, want %v", r.Argv, want)
	}
	for i := range want {
		if r.Argv[i] != want[i] {
			t.Errorf("Argv[%d] = %q, want %q", i, r.Argv[i], want[i])
		}
	}
}

func TestParseFileEmptyGroups(t *testing.T) {
	dir := t.TempDir()
	// Trailing group separator must not produce a phantom record.
	fname := writeTrace(t, dir, "cmd.1", group("1", "0", "execve", "/", "true")+gs)

	records, err := ParseFile(fname)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("got %d records, want 1", len(records))
	}
}

func TestParseFileMalformed(t *testing.T) {
	dir := t.TempDir()
	// Only three fields: a truncated group is fatal, not skipped.
	fname := writeTrace(t, dir, "cmd.1", "1"+rs+"0"+rs+"execve")

	_, err := ParseFile(fname)
	var merr *MalformedRecordError
	if !errors.As(err, &merr) {
		t.Fatalf("err = %v, want MalformedRecordError", err)
	}
	if merr.Fields != 3 || merr.Group != 0 {
		t.Errorf("MalformedRecordError = %+v", merr)
	}
}

func TestParseDirSortedOrder(t *testing.T) {
	dir := t.TempDir()
	writeTrace(t, dir, "b.trace", group("2", "0", "execve", "/", "second")+gs)
	writeTrace(t, dir, "a.trace", group("1", "0", "execve", "/", "first")+gs)

	records, err := ParseDir(dir)
	if err != nil {
		t.Fatalf("ParseDir: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].Argv[0] != "first" || records[1].Argv[0] != "second" {
		t.Errorf("records out of order: %q then %q", records[0].Argv[0], records[1].Argv[0])
	}
}

func TestParseDirMissing(t *testing.T) {
	if _, err := ParseDir(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("ParseDir on missing directory succeeded, want error")
	}
}
