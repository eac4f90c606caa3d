// Copyright 2023, DASH-Industry Forum. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package playlist

import (
	"math/rand"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/sleepyshows/bumpsched/pkg/exposure"
	"github.com/sleepyshows/bumpsched/pkg/pathkey"
)

// NewScheduler builds a Scheduler over items, starting at startIndex
// (clamped into range), with play_queue built immediately for
// shuffleMode. store may be nil (scoring then falls back to frequency
// offsets alone). rng may be nil to use the process-default source.
func NewScheduler(items []Item, startIndex int, shuffleMode ShuffleMode, freq FrequencySettings,
	store *exposure.Store, sleepTimerExposureOn bool, rng randSource) *Scheduler {

	if startIndex < 0 || startIndex >= len(items) {
		startIndex = 0
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	keys := make([]pathkey.Key, len(items))
	for i, it := range items {
		keys[i] = pathkey.FromPath(it.Path)
	}
	s := &Scheduler{
		items:                append([]Item(nil), items...),
		keys:                 keys,
		current:              startIndex,
		historyPos:           -1,
		forcedNext:           -1,
		shuffleMode:          shuffleMode,
		freq:                 freq,
		exposure:             store,
		sleepTimerExposureOn: sleepTimerExposureOn,
		rng:                  rng,
	}
	s.playQueue = s.buildQueue()
	return s
}

// CurrentIndex returns the index of the item currently playing.
func (s *Scheduler) CurrentIndex() int { return s.current }

// Items returns the flattened playlist, excluding nothing (bumps
// included); bump items are excluded from persistence by the
// resume/serialization layer, not here.
func (s *Scheduler) Items() []Item { return append([]Item(nil), s.items...) }

// ShuffleMode reports the active shuffle mode.
func (s *Scheduler) ShuffleMode() ShuffleMode { return s.shuffleMode }

// ToDocument snapshots the scheduler's persisted-relevant state for
// Document.Save. Queue contents, history, and forced-next are runtime
// state and are not part of the serialized document; resume.Coordinator
// persists those separately as queue keys.
func (s *Scheduler) ToDocument(autoGenerated bool, sourceFolder string) Document {
	return Document{
		Items:         s.Items(),
		ShuffleMode:   s.shuffleMode,
		AutoGenerated: autoGenerated,
		SourceFolder:  sourceFolder,
		Frequency:     s.freq,
	}
}

// QueueKeys returns the normalized path keys of the current play_queue,
// in order, for ResumeCoordinator to persist and later re-resolve
// against a freshly loaded playlist.
func (s *Scheduler) QueueKeys() []pathkey.Key {
	out := make([]pathkey.Key, len(s.playQueue))
	for i, idx := range s.playQueue {
		out[i] = s.keys[idx]
	}
	return out
}

// RestoreQueueFromKeys rebuilds play_queue by mapping each key to its
// index in the current playlist, best effort: keys with no match are
// dropped rather than failing the whole restore.
func (s *Scheduler) RestoreQueueFromKeys(keys []pathkey.Key) {
	byKey := make(map[pathkey.Key]int, len(s.keys))
	for i, k := range s.keys {
		byKey[k] = i
	}
	queue := make([]int, 0, len(keys))
	for _, k := range keys {
		if idx, ok := byKey[k]; ok {
			queue = append(queue, idx)
		}
	}
	s.playQueue = queue
}

// ItemCount returns the number of items in the flattened playlist.
func (s *Scheduler) ItemCount() int { return len(s.items) }

// PathAt returns the path of item i and true, or false for an
// out-of-range index, without copying the playlist the way Items does.
func (s *Scheduler) PathAt(i int) (string, bool) {
	if i < 0 || i >= len(s.items) {
		return "", false
	}
	return s.items[i].Path, true
}

// ItemTypeAt returns the type of item i and true, or false for an
// out-of-range index, without copying the playlist the way Items does.
func (s *Scheduler) ItemTypeAt(i int) (ItemType, bool) {
	if i < 0 || i >= len(s.items) {
		return ItemVideo, false
	}
	return s.items[i].Type, true
}

// KeyAt returns the normalized path key of item i, or the empty key
// for an out-of-range index.
func (s *Scheduler) KeyAt(i int) pathkey.Key {
	if i < 0 || i >= len(s.keys) {
		return ""
	}
	return s.keys[i]
}

// EpisodeFactor returns the effective exposure factor for item i, the
// per-episode override falling back to a season factor, 1.0 when
// neither is set. The skip penalty scales by this factor.
func (s *Scheduler) EpisodeFactor(i int) float64 {
	if i < 0 || i >= len(s.items) {
		return 1.0
	}
	path := s.items[i].Path
	return s.freq.episodeFactor(normPathString(path), seasonKeys(path))
}

// IndexForKey returns the playlist index whose normalized path key
// matches key, and true, or false if no item matches.
func (s *Scheduler) IndexForKey(key pathkey.Key) (int, bool) {
	for i, k := range s.keys {
		if k == key {
			return i, true
		}
	}
	return 0, false
}

// SetCurrentIndex forces current_index directly, used by
// ResumeCoordinator when restoring a saved position.
func (s *Scheduler) SetCurrentIndex(idx int) {
	if idx < 0 || idx >= len(s.items) {
		return
	}
	s.current = idx
}

// SleepTimerExposure reports whether the session-decaying play-delta
// mode is active.
func (s *Scheduler) SleepTimerExposure() bool { return s.sleepTimerExposureOn }

// SetSleepTimerExposure flips whether episode scoring projects the
// session-decaying play delta (sleep-timer exposure on) or the flat
// default, reporting whether the value changed. The projected delta
// participates in every episode's score, so callers rebuild the queue
// (RebuildQueue or SetShuffleMode) after a change.
func (s *Scheduler) SetSleepTimerExposure(on bool) bool {
	if s.sleepTimerExposureOn == on {
		return false
	}
	s.sleepTimerExposureOn = on
	return true
}

// RebuildQueue rebuilds play_queue under the current mode and scores.
func (s *Scheduler) RebuildQueue() {
	s.playQueue = s.buildQueue()
}

// SetShuffleMode rebuilds play_queue for the new mode without touching
// current_index, so playback continues uninterrupted.
func (s *Scheduler) SetShuffleMode(mode ShuffleMode) {
	s.shuffleMode = mode
	s.RebuildQueue()
}

// episodeIndices returns every index i where items[i].Type == ItemVideo.
func (s *Scheduler) episodeIndices() []int {
	var out []int
	for i, it := range s.items {
		if it.Type == ItemVideo {
			out = append(out, i)
		}
	}
	return out
}

// buildQueue constructs play_queue fresh for the current shuffle mode.
// The queue holds upcoming episodes only, so whatever the mode built,
// the currently playing index is removed before it is installed.
func (s *Scheduler) buildQueue() []int {
	episodes := s.episodeIndices()
	if len(episodes) == 0 {
		return nil
	}
	var order []int
	switch s.shuffleMode {
	case ShuffleStandard:
		order = s.bucketByScore(episodes)
	case ShuffleSeason:
		order = s.buildSeasonQueue(episodes)
	default:
		order = s.chronologicalRotation(episodes)
	}
	out := order[:0]
	for _, idx := range order {
		if idx != s.current {
			out = append(out, idx)
		}
	}
	return out
}

// chronologicalRotation sorts episodes by natural path order, then
// rotates so the queue starts right after current_index.
func (s *Scheduler) chronologicalRotation(episodes []int) []int {
	sorted := append([]int(nil), episodes...)
	sort.Slice(sorted, func(i, j int) bool {
		return naturalLess(s.items[sorted[i]].Path, s.items[sorted[j]].Path)
	})
	pos := 0
	for i, idx := range sorted {
		if idx == s.current {
			pos = i
			break
		}
	}
	out := make([]int, 0, len(sorted))
	for i := 1; i <= len(sorted); i++ {
		out = append(out, sorted[(pos+i)%len(sorted)])
	}
	return out
}

// bucketByScore groups episodes by identical score, randomizes within
// each bucket, and concatenates buckets in ascending score order.
func (s *Scheduler) bucketByScore(episodes []int) []int {
	buckets := make(map[float64][]int)
	var scores []float64
	for _, idx := range episodes {
		sc := s.score(idx)
		if _, ok := buckets[sc]; !ok {
			scores = append(scores, sc)
		}
		buckets[sc] = append(buckets[sc], idx)
	}
	sort.Float64s(scores)
	out := make([]int, 0, len(episodes))
	for _, sc := range scores {
		bucket := buckets[sc]
		shuffleInts(bucket, s.rng)
		out = append(out, bucket...)
	}
	return out
}

// buildSeasonQueue groups episodes by season, orders seasons by their
// minimum-score episode (random tie-break), then bucket-by-score within
// each season exactly as the standard mode does.
func (s *Scheduler) buildSeasonQueue(episodes []int) []int {
	groups := make(map[string]*seasonGroup)
	var order []string
	for _, idx := range episodes {
		key := seasonGroupKey(s.items[idx].Path)
		g, ok := groups[key]
		if !ok {
			g = &seasonGroup{key: key, minScore: s.score(idx)}
			groups[key] = g
			order = append(order, key)
		}
		g.indices = append(g.indices, idx)
		if sc := s.score(idx); sc < g.minScore {
			g.minScore = sc
		}
	}

	sort.Slice(order, func(i, j int) bool {
		gi, gj := groups[order[i]], groups[order[j]]
		if gi.minScore != gj.minScore {
			return gi.minScore < gj.minScore
		}
		return order[i] < order[j]
	})
	// Random tie-break among groups sharing the same minimum score.
	shuffleEqualScoreRuns(order, groups, s.rng)

	out := make([]int, 0, len(episodes))
	for _, key := range order {
		out = append(out, s.bucketByScore(groups[key].indices)...)
	}
	return out
}

func shuffleEqualScoreRuns(order []string, groups map[string]*seasonGroup, rng randSource) {
	i := 0
	for i < len(order) {
		j := i + 1
		for j < len(order) && groups[order[j]].minScore == groups[order[i]].minScore {
			j++
		}
		shuffleStrings(order[i:j], rng)
		i = j
	}
}

type seasonGroup struct {
	key      string
	indices  []int
	minScore float64
}

func shuffleInts(s []int, rng randSource) {
	for i := len(s) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		s[i], s[j] = s[j], s[i]
	}
}

func shuffleStrings(s []string, rng randSource) {
	for i := len(s) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		s[i], s[j] = s[j], s[i]
	}
}

// seasonGroupKey returns the grouping identifier used to bucket episodes
// by season in ShuffleSeason mode: the bare "season:N" derived from the
// path, or a synthetic "no-season" bucket key built from the episode's
// own directory so unseasoned shows still sort stably and separately
// from each other.
func seasonGroupKey(path string) string {
	keys := seasonKeys(path)
	if len(keys) == 0 {
		return "no-season:" + strings.ToLower(filepath.Dir(path))
	}
	// The bare key is always last in seasonKeys' return order.
	return keys[len(keys)-1]
}

// naturalLess orders paths the way a file browser does: embedded
// digit runs compare numerically, not lexically, so "Episode 2" sorts
// before "Episode 10".
func naturalLess(a, b string) bool {
	ai, bi := 0, 0
	for ai < len(a) && bi < len(b) {
		ac, bc := a[ai], b[bi]
		if isDigit(ac) && isDigit(bc) {
			aStart, bStart := ai, bi
			for ai < len(a) && isDigit(a[ai]) {
				ai++
			}
			for bi < len(b) && isDigit(b[bi]) {
				bi++
			}
			an, aerr := strconv.Atoi(a[aStart:ai])
			bn, berr := strconv.Atoi(b[bStart:bi])
			if aerr == nil && berr == nil && an != bn {
				return an < bn
			}
			continue
		}
		if ac != bc {
			return ac < bc
		}
		ai++
		bi++
	}
	return len(a)-ai < len(b)-bi
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
