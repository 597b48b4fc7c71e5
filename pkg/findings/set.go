package findings

import (
	"sort"
	"strings"
)

// keySeparator cannot appear in a normalized identifier: Validate rejects
// control characters.
const keySeparator = "\x1f"

// Set is an unordered collection of normalized finding identifiers.
type Set map[string]struct{}

// NewSet normalizes values into a set, silently dropping blank entries.
func NewSet(values ...string) Set {
	set := make(Set, len(values))
	for _, v := range values {
		set.Add(v)
	}
	return set
}

// Add normalizes value and inserts it. Blank values are ignored.
func (s Set) Add(value string) {
	if id := Normalize(value); id != "" {
		s[id] = struct{}{}
	}
}

// Has reports whether the already normalized id is in the set.
func (s Set) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Len returns the number of distinct findings.
func (s Set) Len() int {
	return len(s)
}

// Sorted returns the members in lexical order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Key returns a stable identifier for the set's contents, suitable for cache
// lookups.
func (s Set) Key() string {
	return strings.Join(s.Sorted(), keySeparator)
}
