// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package skindl

import "strings"

// wantedSuffixes is the fixed whitelist of entry name suffixes that are extracted.
var wantedSuffixes = []string{".cbb", ".json"}

// Predicate decides by entry name whether an entry is extracted.
type Predicate func(name string) bool

// Wanted reports whether name ends with one of the wanted suffixes. The match is
// exact and case-sensitive; name is not normalized.
func Wanted(name string) bool {
	return hasAnySuffix(name, wantedSuffixes)
}

// WantedSuffixes returns a copy of the suffix whitelist.
func WantedSuffixes() []string {
	out := make([]string, len(wantedSuffixes))
	copy(out, wantedSuffixes)
	return out
}

// suffixPredicate builds a [Predicate] for an arbitrary suffix set.
func suffixPredicate(suffixes ...string) Predicate {
	return func(name string) bool {
		return hasAnySuffix(name, suffixes)
	}
}

func hasAnySuffix(name string, suffixes []string) bool {
	for _, s := range suffixes {
		if strings.HasSuffix(name, s) {
			return true
		}
	}
	return false
}
