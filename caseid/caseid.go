// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package caseid canonicalizes court case identifiers.
//
// Case numbers show up in several surface forms: "83895-4", "83895-4-I",
// "838954", or embedded in a filename. The canonical form keeps digits only,
// which makes it usable both as an indexed column and as an in-memory key.
package caseid

import "strings"

// Normalize strips every non-digit character from raw.
// It never fails and Normalize(Normalize(s)) == Normalize(s).
func Normalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for i := 0; i < len(raw); i++ {
		if c := raw[i]; c >= '0' && c <= '9' {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// Equivalent reports whether a and b name the same case.
// Identifiers without any digits are never equivalent to anything.
func Equivalent(a, b string) bool {
	na := Normalize(a)
	return na != "" && na == Normalize(b)
}

// SuffixMatch reports whether the normalized form of full ends with the
// normalized form of suffix. This is the weaker fallback match used for
// identifiers embedded in filenames.
func SuffixMatch(full, suffix string) bool {
	nf, ns := Normalize(full), Normalize(suffix)
	if nf == "" || ns == "" {
		return false
	}
	return strings.HasSuffix(nf, ns)
}
