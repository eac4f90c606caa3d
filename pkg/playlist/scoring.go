// Copyright 2023, DASH-Industry Forum. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package playlist

import "github.com/sleepyshows/bumpsched/pkg/exposure"

// score computes the queue-ordering score for episode item i:
// base exposure plus frequency offsets plus the next-play-delta term
// weighted by the episode's factor. A heavier factor pushes the episode
// later even before it accrues any visible exposure, since
// next_play_delta is always positive.
func (s *Scheduler) score(i int) float64 {
	path := s.items[i].Path
	key := s.keys[i]

	base := 0.0
	if s.exposure != nil {
		base = s.exposure.Get(exposure.KindEpisode, key)
	}

	keys := seasonKeys(path)
	offset := s.freq.episodeOffset(normPathString(path))
	offset += s.freq.seasonOffsetSum(keys)

	factor := s.freq.episodeFactor(normPathString(path), keys)
	nextDelta := s.nextPlayDelta()

	return base + offset + nextDelta*factor
}

// nextPlayDelta mirrors what ExposureStore.EpisodePlayDelta would add if
// the episode were played next, without consuming session state.
func (s *Scheduler) nextPlayDelta() float64 {
	if s.exposure == nil {
		return 0
	}
	return s.exposure.PeekEpisodePlayDelta(s.sleepTimerExposureOn)
}

// normPathString is the score-side path normalization: forward slashes,
// so the same episode scores identically regardless of which OS wrote
// the playlist file. Frequency lookups key on this form; exposure
// lookups use the item's pathkey.Key instead.
func normPathString(p string) string {
	out := make([]byte, len(p))
	for i := 0; i < len(p); i++ {
		if p[i] == '\\' {
			out[i] = '/'
		} else {
			out[i] = p[i]
		}
	}
	return string(out)
}
