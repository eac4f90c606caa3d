// Copyright 2023, DASH-Industry Forum. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package exposure

import (
	"math"

	"github.com/sleepyshows/bumpsched/pkg/pathkey"
)

const (
	baseEpisodeDelta = 100.0
	tierDivisor      = 3
	minDelta         = 1.0
)

// EpisodePlayDelta returns the exposure delta to add for an episode
// that just started playing. With the sleep-timer exposure feature off,
// plays are weighted flatly at 100 and no session state accrues. With
// it on, the delta decays every 3 plays within the session (tier =
// playsThisSession/3, delta = max(1, 100/2^tier)), and the session
// counter only advances while the feature is on.
func (s *Store) EpisodePlayDelta(sleepTimerExposureOn bool) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !sleepTimerExposureOn {
		return baseEpisodeDelta
	}
	delta := tieredDelta(s.episodeSessionPlays)
	s.episodeSessionPlays++
	return delta
}

// PeekEpisodePlayDelta returns what EpisodePlayDelta would add right
// now without consuming a session-play slot, used by the scheduler's
// next_play_delta tiebreak term.
func (s *Store) PeekEpisodePlayDelta(sleepTimerExposureOn bool) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !sleepTimerExposureOn {
		return baseEpisodeDelta
	}
	return tieredDelta(s.episodeSessionPlays)
}

// BumpPlayDelta returns the exposure delta for a bump component
// (script, music, video, or outro) that was just used. Bumps always
// tier down regardless of the sleep-timer-exposure toggle.
func (s *Store) BumpPlayDelta() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	delta := tieredDelta(s.bumpSessionPlays)
	s.bumpSessionPlays++
	return delta
}

func tieredDelta(sessionPlays int) float64 {
	tier := sessionPlays / tierDivisor
	delta := baseEpisodeDelta / math.Pow(2, float64(tier))
	if delta < minDelta {
		delta = minDelta
	}
	return delta
}

// ApplySkipPenalty subtracts points*factor from key's episode exposure,
// unless this exact (index, playStartMonotonic) pair already applied a
// penalty — guarding against duplicate navigate-away callbacks from the
// player for the same play attempt.
func (s *Store) ApplySkipPenalty(key pathkey.Key, index int, playStartMonotonic int64, points, factor float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sk := skipKey{index: index, playStartMonotonic: playStartMonotonic}
	if _, seen := s.skipApplied[sk]; seen {
		return false
	}
	s.skipApplied[sk] = struct{}{}
	s.episodes[key] -= points * factor
	s.dirty = true
	return true
}
