package trace

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
)

// ParseFile reads one trace file and returns its records in file order.
func ParseFile(fname string) ([]Record, error) {
	data, err := os.ReadFile(fname)
	if err != nil {
		return nil, fmt.Errorf("reading trace %s: %w", fname, err)
	}
	return parse(fname, data)
}

func parse(fname string, data []byte) ([]Record, error) {
	var records []Record
	for i, group := range bytes.Split(data, []byte{groupSep}) {
		if len(group) == 0 {
			// Trailing separator at end of file.
			continue
		}
		fields := strings.Split(string(group), string(rune(recordSep)))
		if len(fields) != fieldCount {
			return nil, &MalformedRecordError{File: fname, Group: i, Fields: len(fields)}
		}
		records = append(records, Record{
			Pid:       fields[0],
			ParentPid: fields[1],
			Function:  fields[2],
			Directory: fields[3],
			Argv:      splitArgv(fields[4]),
		})
	}
	return records, nil
}

// splitArgv splits the argument blob on the unit separator. The writer puts
// a separator after every argument, so the final split element is empty and
// dropped.
func splitArgv(blob string) []string {
	args := strings.Split(blob, string(rune(unitSep)))
	if n := len(args); n > 0 && args[n-1] == "" {
		args = args[:n-1]
	}
	return args
}

// ParseDir parses every trace file in dir, in sorted filename order so a
// rerun over the same traces yields the same record sequence.
func ParseDir(dir string) ([]Record, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading trace directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	var records []Record
	for _, name := range names {
		recs, err := ParseFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		records = append(records, recs...)
	}
	log.Debug().Int("files", len(names)).Int("records", len(records)).
		Str("dir", dir).Msg("parsed trace directory")
	return records, nil
}
