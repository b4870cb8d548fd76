package model

import "sort"

// Set is an unordered collection of unique strings. It backs both the
// directory sets and the target sets the utilities derive.
type Set map[string]struct{}

// NewSet returns a set holding the given items.
func NewSet(items ...string) Set {
	s := make(Set, len(items))
	s.AddAll(items...)
	return s
}

// Add inserts an item. Empty strings are ignored because they only ever
// come from blank lines in tool output.
func (s Set) Add(item string) {
	if item == "" {
		return
	}
	s[item] = struct{}{}
}

// AddAll inserts every item.
func (s Set) AddAll(items ...string) {
	for _, item := range items {
		s.Add(item)
	}
}

// Has reports whether item is in the set.
func (s Set) Has(item string) bool {
	_, ok := s[item]
	return ok
}

// Len returns the number of items.
func (s Set) Len() int {
	return len(s)
}

// Difference returns the items of s that are not in other.
func (s Set) Difference(other Set) Set {
	out := make(Set, len(s))
	for item := range s {
		if !other.Has(item) {
			out[item] = struct{}{}
		}
	}
	return out
}

// Intersect returns the items present in both s and other.
func (s Set) Intersect(other Set) Set {
	out := make(Set)
	for item := range s {
		if other.Has(item) {
			out[item] = struct{}{}
		}
	}
	return out
}

// Sorted returns the items in lexical order so command lines and reports
// are stable across runs.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for item := range s {
		out = append(out, item)
	}
	sort.Strings(out)
	return out
}
