// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package bus

import "strings"

// MatchSubject reports whether subject matches pattern, where pattern may
// contain "*" (matches exactly one dot-delimited segment) and ">" (matches
// one or more trailing segments, only valid as the final token). This
// mirrors the broker's own wildcard semantics (spec §3, §8 boundary
// behaviors) and is exercised directly in tests without needing a running
// broker.
func MatchSubject(pattern, subject string) bool {
	patternSegs := strings.Split(pattern, ".")
	subjectSegs := strings.Split(subject, ".")

	for i, p := range patternSegs {
		if p == ">" {
			return i < len(subjectSegs)
		}
		if i >= len(subjectSegs) {
			return false
		}
		if p != "*" && p != subjectSegs[i] {
			return false
		}
	}

	return len(patternSegs) == len(subjectSegs)
}
