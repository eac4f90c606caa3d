// Copyright 2023, DASH-Industry Forum. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package playlist

import "sort"

// SkipResult is the outcome of a manual-navigation call: either restart
// the current item from zero, or play a different index outright.
type SkipResult struct {
	Index          int
	RestartCurrent bool
}

// GetNextIndex advances playback. The current item's type is resolved
// first, and any in-progress chain of
// non-episode items is allowed to finish, before a pending forced-next
// is ever consumed. Consuming forced-next unconditionally up front
// would cut a chain of two-or-more injections short: the later ones
// would be skipped straight to the forced episode instead of playing
// out.
//  1. If the current item is a non-episode and the very next item is
//     also a non-episode, the chain continues: advance by one, forced-
//     next untouched.
//  2. Once that chain ends (next item is an episode, or none remains),
//     a pending forced-next is consumed now, before falling through to
//     plain linear advance.
//  3. If the current item is an episode and the next item is an
//     injection, play it; if this is a KOTH part-1 episode, arm
//     forced-next to the chronologically-next episode so part 2 resumes
//     once the injection chain (however long) ends.
//  4. If the current item is an episode and the next item is also an
//     episode (or none follows), a KOTH part-1 episode still forces the
//     chronologically-next episode directly, unless forced-next is
//     already armed.
//  5. Any remaining pending forced-next is consumed.
//  6. Otherwise the head of play_queue is popped, rebuilding the queue
//     first if it's empty.
func (s *Scheduler) GetNextIndex() int {
	n := len(s.items)
	if n == 0 {
		return s.current
	}
	curItem := s.items[s.current]

	if curItem.Type != ItemVideo {
		nxt := s.current + 1
		if nxt < n && s.items[nxt].Type != ItemVideo {
			return nxt
		}
		if idx, ok := s.consumeForcedNext(); ok {
			return idx
		}
		if nxt < n {
			return nxt
		}
		return s.current
	}

	nxt := s.current + 1
	if nxt < n && s.items[nxt].Type != ItemVideo {
		if s.multiPartShuffleActive() && isKOTHPlaylist(s.items) && endsWithPartOne(curItem.Path) {
			if forced, ok := s.nextChronologicalEpisode(s.current); ok {
				s.forcedNext = forced
			}
		}
		return nxt
	}

	if s.multiPartShuffleActive() && s.forcedNext < 0 && isKOTHPlaylist(s.items) && endsWithPartOne(curItem.Path) {
		if forced, ok := s.nextChronologicalEpisode(s.current); ok && forced != s.current {
			s.removeFromQueue(forced)
			return forced
		}
	}

	if idx, ok := s.consumeForcedNext(); ok {
		return idx
	}

	// A freshly built queue never holds current, but a queue restored
	// from keys or outlived by manual skips can; drop such stale
	// entries so an advance never replays the current episode
	// back-to-back.
	s.removeFromQueue(s.current)
	if len(s.playQueue) == 0 {
		s.playQueue = s.buildQueue()
	}
	if len(s.playQueue) == 0 {
		return s.current
	}
	next := s.playQueue[0]
	s.playQueue = s.playQueue[1:]
	return next
}

// multiPartShuffleActive reports whether the KOTH multi-part rule is
// live for the current shuffle mode (standard or season; shuffle-off
// already plays episodes in chronological order, so forcing never
// applies there).
func (s *Scheduler) multiPartShuffleActive() bool {
	return s.shuffleMode == ShuffleStandard || s.shuffleMode == ShuffleSeason
}

// consumeForcedNext clears a pending forced-next index and returns it,
// also dropping it from play_queue so it doesn't surface a second time
// once the queue is later popped. Returns ok=false if nothing is armed
// or the armed index is no longer valid.
func (s *Scheduler) consumeForcedNext() (int, bool) {
	if s.forcedNext < 0 {
		return 0, false
	}
	forced := s.forcedNext
	s.forcedNext = -1
	s.removeFromQueue(forced)
	if forced < 0 || forced >= len(s.items) {
		return 0, false
	}
	return forced, true
}

// removeFromQueue drops every occurrence of idx from play_queue.
func (s *Scheduler) removeFromQueue(idx int) {
	out := s.playQueue[:0]
	for _, v := range s.playQueue {
		if v != idx {
			out = append(out, v)
		}
	}
	s.playQueue = out
}

// SkipToNextEpisode bypasses the bump gate: it replays a previously
// visited forward history entry if one exists, else jumps straight to
// the next chronological episode (no interludes or bumps). If current
// is already the chronologically last episode, it stays put.
func (s *Scheduler) SkipToNextEpisode() int {
	for i := s.historyPos + 1; i < len(s.playbackHistory); i++ {
		idx := s.playbackHistory[i]
		if s.items[idx].Type == ItemVideo {
			s.historyPos = i
			return idx
		}
	}
	if idx, ok := s.nextChronologicalEpisode(s.current); ok {
		return idx
	}
	return s.current
}

// SkipToPreviousEpisode implements the two-stage back-skip: a press more
// than 3 seconds into the current item seeks to 0; a press within the
// first 3 seconds (such as a second consecutive press) steps back through
// playback_history filtered to episodes, falling back to the
// chronologically previous episode if history is exhausted.
func (s *Scheduler) SkipToPreviousEpisode(timePosSeconds float64) SkipResult {
	if timePosSeconds > 3.0 {
		return SkipResult{Index: s.current, RestartCurrent: true}
	}
	for i := s.historyPos - 1; i >= 0; i-- {
		idx := s.playbackHistory[i]
		if s.items[idx].Type == ItemVideo {
			s.historyPos = i
			return SkipResult{Index: idx}
		}
	}
	if idx, ok := s.prevChronologicalEpisode(s.current); ok {
		return SkipResult{Index: idx}
	}
	return SkipResult{Index: s.current, RestartCurrent: true}
}

// RecordPlaybackIndex is called by the play driver on every successful
// start. It truncates any redo history left over from a prior rewind,
// then appends idx, unless idx is identical to the entry it would
// otherwise duplicate (a duplicate player callback must not
// double-advance history), and moves the pointer to the new end.
// current_index is updated unconditionally.
func (s *Scheduler) RecordPlaybackIndex(idx int) {
	if idx < 0 || idx >= len(s.items) {
		return
	}
	s.current = idx

	if s.items[idx].Type == ItemVideo {
		if len(s.episodeHistory) == 0 || s.episodeHistory[len(s.episodeHistory)-1] != idx {
			s.episodeHistory = append(s.episodeHistory, idx)
			if len(s.episodeHistory) > episodeHistoryCap {
				s.episodeHistory = s.episodeHistory[len(s.episodeHistory)-episodeHistoryCap:]
			}
		}
	}

	// A start that replays the entry the pointer already sits on is a
	// history navigation (skip back/forward) being confirmed by the
	// play driver; keep the redo tail intact so forward replay works.
	if s.historyPos >= 0 && s.historyPos < len(s.playbackHistory) && s.playbackHistory[s.historyPos] == idx {
		return
	}

	if s.historyPos+1 < len(s.playbackHistory) {
		s.playbackHistory = s.playbackHistory[:s.historyPos+1]
	}
	if len(s.playbackHistory) == 0 || s.playbackHistory[len(s.playbackHistory)-1] != idx {
		s.playbackHistory = append(s.playbackHistory, idx)
		if len(s.playbackHistory) > playbackHistoryCap {
			s.playbackHistory = s.playbackHistory[len(s.playbackHistory)-playbackHistoryCap:]
		}
	}
	s.historyPos = len(s.playbackHistory) - 1
}

// EpisodeHistory returns a copy of the recent episode starts, oldest
// first, for the introspection surface.
func (s *Scheduler) EpisodeHistory() []int {
	return append([]int(nil), s.episodeHistory...)
}

// chronologicalEpisodeOrder returns every episode index ordered by
// natural path sort, the same ordering chronologicalRotation uses for
// shuffle-off mode, so "chronological" means the same thing everywhere
// in this package.
func (s *Scheduler) chronologicalEpisodeOrder() []int {
	episodes := s.episodeIndices()
	sort.Slice(episodes, func(i, j int) bool {
		return naturalLess(s.items[episodes[i]].Path, s.items[episodes[j]].Path)
	})
	return episodes
}

// nextChronologicalEpisode returns the episode immediately after after
// in natural path order, or ok=false if after is the last chronological
// episode or isn't an episode itself. No wraparound at the list
// boundary: a missing target means stay put, not cycle back to the
// start.
func (s *Scheduler) nextChronologicalEpisode(after int) (int, bool) {
	ordered := s.chronologicalEpisodeOrder()
	pos := indexOfInt(ordered, after)
	if pos < 0 || pos+1 >= len(ordered) {
		return 0, false
	}
	return ordered[pos+1], true
}

// prevChronologicalEpisode returns the episode immediately before
// before in natural path order, or ok=false if before is the first
// chronological episode or isn't an episode itself. No wraparound.
func (s *Scheduler) prevChronologicalEpisode(before int) (int, bool) {
	ordered := s.chronologicalEpisodeOrder()
	pos := indexOfInt(ordered, before)
	if pos <= 0 {
		return 0, false
	}
	return ordered[pos-1], true
}

func indexOfInt(s []int, v int) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return -1
}
