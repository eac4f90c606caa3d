// Copyright 2023, DASH-Industry Forum. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package musiclib

import (
	"strconv"
	"strings"
)

// ParseDurationFromBasename extracts a duration in milliseconds from
// the last whitespace-delimited token of a basename, e.g. "chill vibes
// 180s" -> 180000, "chill vibes 180" -> 180000 (seconds are always
// assumed, the "s" suffix is optional). Returns ok=false if the last
// token isn't numeric.
func ParseDurationFromBasename(basenameNoExt string) (ms int, ok bool) {
	fields := strings.Fields(basenameNoExt)
	if len(fields) == 0 {
		return 0, false
	}
	tok := strings.TrimSuffix(fields[len(fields)-1], "s")
	seconds, err := strconv.ParseFloat(tok, 64)
	if err != nil || seconds <= 0 {
		return 0, false
	}
	return int(seconds * 1000), true
}
