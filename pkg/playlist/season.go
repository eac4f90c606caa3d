// Copyright 2023, DASH-Industry Forum. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package playlist

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// seasonPattern matches a path component naming a season, e.g.
// "Season 2", "s03", "season-1". seasonKeys applies it to the file's
// directory components, nearest first; this is a heuristic and can
// misattribute seasons for atypical layouts; callers may override via
// explicit season_key strings in SeasonOffsets.
var seasonPattern = regexp.MustCompile(`(?i)(?:season|s)[ _-]?(\d{1,2})`)

// seasonKeys returns the season-offset lookup keys that apply to path:
// the bare "season:N" key and, when a show name can be inferred from the
// directory directly above the matching season directory, the
// "{Show}|season:N" key. Both are returned
// when both are derivable, and their offsets sum rather than the more
// specific one winning alone. Returns nil if no season token is found
// anywhere in the path's directory components.
func seasonKeys(path string) []string {
	dir := filepath.Dir(path)
	components := strings.Split(filepath.ToSlash(dir), "/")

	var seasonNum, seasonComponent string
	for i := len(components) - 1; i >= 0; i-- {
		if m := seasonPattern.FindStringSubmatch(components[i]); m != nil {
			seasonNum = m[1]
			seasonComponent = components[i]
			break
		}
	}
	if seasonNum == "" {
		return nil
	}
	if n, err := strconv.Atoi(seasonNum); err == nil {
		seasonNum = strconv.Itoa(n)
	}

	bare := "season:" + seasonNum
	idx := -1
	for i, c := range components {
		if c == seasonComponent {
			idx = i
			break
		}
	}
	if idx <= 0 {
		return []string{bare}
	}
	show := components[idx-1]
	if show == "" || show == "." {
		return []string{bare}
	}
	return []string{show + "|" + bare, bare}
}

// kothScanLimit bounds isKOTHPlaylist to the first N episode indices,
// so a large playlist doesn't pay a full scan just to detect a
// path-token heuristic.
const kothScanLimit = 30

// isKOTHPlaylist heuristically detects a "King of the Hill"-style
// multi-part show by path tokens, the signal that triggers the
// multi-part forced-sequencing rule in get_next_index. Only the first
// kothScanLimit episode items are inspected.
func isKOTHPlaylist(items []Item) bool {
	checked := 0
	for _, it := range items {
		if it.Type != ItemVideo {
			continue
		}
		if checked >= kothScanLimit {
			break
		}
		checked++
		lower := strings.ToLower(it.Path)
		if strings.Contains(lower, "king of the hill") || strings.Contains(lower, "koth") {
			return true
		}
	}
	return false
}

// endsWithPartOne reports whether basename (without extension) ends
// with the literal multi-part marker "(1)".
func endsWithPartOne(path string) bool {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return strings.HasSuffix(strings.TrimSpace(base), "(1)")
}
