package compdb

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// Load reads a database file. A missing file is not an error: append mode
// over a fresh tree starts from an empty database.
func Load(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading database %s: %w", path, err)
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing database %s: %w", path, err)
	}
	return entries, nil
}

// Save writes the entries sorted by (directory, file, command) so repeated
// runs over the same build produce byte-identical files.
func Save(path string, entries []Entry) error {
	if entries == nil {
		entries = []Entry{}
	}
	Sort(entries)

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding database: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing database %s: %w", path, err)
	}
	return nil
}

// Sort orders entries by directory, then file, then command.
func Sort(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Directory != b.Directory {
			return a.Directory < b.Directory
		}
		if a.File != b.File {
			return a.File < b.File
		}
		return a.Command < b.Command
	})
}
