package compdb

import (
	"os"
	"strings"

	"github.com/rs/zerolog/log"
)

// keySep separates the identity key components. It cannot occur inside a
// path or a serialized command.
const keySep = "\x1f"

// IdentitySet tracks entry identity keys already seen during one merge. It
// is owned by the caller and never shared between merges.
type IdentitySet map[string]struct{}

// NewIdentitySet returns an empty identity set.
func NewIdentitySet() IdentitySet {
	return make(IdentitySet)
}

// Contains records the entry's identity key and reports whether it was
// already present.
func (s IdentitySet) Contains(e Entry) bool {
	key := identityKey(e)
	if _, ok := s[key]; ok {
		return true
	}
	s[key] = struct{}{}
	return false
}

// identityKey normalizes an entry for duplicate detection. The command's
// first shell word is stripped so that wrapper variants invoking the same
// toolchain (cc vs c++) with identical remaining arguments collapse to one
// entry.
func identityKey(e Entry) string {
	return e.File + keySep + e.Directory + keySep + stripFirstWord(e.Command)
}

func stripFirstWord(command string) string {
	if _, rest, ok := strings.Cut(command, " "); ok {
		return rest
	}
	return ""
}

// MergeStats counts entries filtered out during one merge.
type MergeStats struct {
	Missing    int
	Duplicates int
}

// Merge combines a previous database with the current run's entries.
// Previous entries come first so they win deduplication; entries whose file
// no longer exists on disk are dropped. The seen set is consumed by exactly
// one Merge call.
func Merge(previous, current []Entry, seen IdentitySet) ([]Entry, MergeStats) {
	var merged []Entry
	var stats MergeStats
	for _, e := range append(append([]Entry{}, previous...), current...) {
		if _, err := os.Stat(e.File); err != nil {
			stats.Missing++
			continue
		}
		if seen.Contains(e) {
			stats.Duplicates++
			continue
		}
		merged = append(merged, e)
	}
	if stats.Missing > 0 || stats.Duplicates > 0 {
		log.Debug().Int("missing", stats.Missing).Int("duplicates", stats.Duplicates).
			Msg("merge filtered entries")
	}
	return merged, stats
}
