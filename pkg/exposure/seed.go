// Copyright 2023, DASH-Industry Forum. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package exposure

import (
	"strings"

	"github.com/sleepyshows/bumpsched/pkg/pathkey"
)

const seedScore = 1.0

// musicSeedBasenames are the extension-stripped basenames that receive
// a seed score of 1.0 the first time they're scanned, so a fresh
// install's small starter music library doesn't all tie at zero.
var musicSeedBasenames = map[string]bool{
	"vibe1": true, "vibe2": true, "vibe3": true, "vibe4": true,
	"chill1": true, "chill2": true, "chill3": true, "chill4": true,
}

// SeedMusic idempotently seeds basename (without extension) if it
// matches the reference seed set and has no recorded score yet. It
// returns true if a new score was written.
func (s *Store) SeedMusic(key pathkey.Key, basenameNoExt string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !musicSeedBasenames[strings.ToLower(basenameNoExt)] {
		return false
	}
	if s.has(KindMusic, key) {
		return false
	}
	s.set(KindMusic, key, seedScore)
	s.seededLastChanged = true
	return true
}

// SeedScript idempotently seeds a script whose minimum possible
// duration exceeds the short-bump window — such scripts can never be a
// short-fit bump, and the seed places them just behind unseeded scripts
// in exposure order. Short scripts are never seeded. The caller supplies
// the window so seeding and composer gating share one definition.
// Returns true if a new score was written.
func (s *Store) SeedScript(key pathkey.Key, minPossibleMS int, shortWindowMS float64) bool {
	if float64(minPossibleMS) <= shortWindowMS {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.has(KindScript, key) {
		return false
	}
	s.set(KindScript, key, seedScore)
	s.seededLastChanged = true
	return true
}
