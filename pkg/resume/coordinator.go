// Copyright 2023, DASH-Industry Forum. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package resume

import (
	"strings"
	"sync"

	"github.com/sleepyshows/bumpsched/pkg/playlist"
)

// RestorePlan is what the coordinator hands back to the play driver:
// which index to start, where to seek once it starts, and whether the
// bump gate (which would otherwise interpose a bump before an episode)
// should be bypassed for this one start.
type RestorePlan struct {
	Index          int
	SeekSeconds    float64
	BypassBumpGate bool
}

// Coordinator owns the saved resume state and the auto-resume arming
// logic. It is not safe for concurrent use from multiple goroutines
// except where noted; the UI/coordinator thread owns it.
type Coordinator struct {
	mu   sync.Mutex
	path string

	saved    State
	hasSaved bool

	pendingAutoResumeFilename string
	autoResumeArmed           bool
}

// NewCoordinator returns a Coordinator bound to path, loading any
// previously saved state. A missing file yields "no saved state"; a file
// that cannot be read or parsed is returned as an error.
func NewCoordinator(path string) (*Coordinator, error) {
	c := &Coordinator{path: path}
	state, ok, err := Load(path)
	if err != nil {
		return nil, err
	}
	c.saved = state
	c.hasSaved = ok
	return c, nil
}

// Persist captures the current scheduler/player state and saves it,
// always overwriting (force semantics match exposure's save-at-force
// points: shutdown and recovery entry).
func (c *Coordinator) Persist(sched *playlist.Scheduler, playlistFilename string, position, duration float64, lastPlayTarget string) error {
	state := Capture(sched, playlistFilename, position, duration, lastPlayTarget)
	if err := Save(c.path, state); err != nil {
		return err
	}
	c.mu.Lock()
	c.saved = state
	c.hasSaved = true
	c.mu.Unlock()
	return nil
}

// HasSavedState reports whether a resumable snapshot exists.
func (c *Coordinator) HasSavedState() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hasSaved
}

// ArmAutoResume arms a pending auto-resume match against the saved
// state's playlist filename, when a playlist is loaded. The filename
// comparison is normalized (case-folded, separator-agnostic) since the
// same playlist may be referenced with different path separators across
// a save/load cycle.
func (c *Coordinator) ArmAutoResume(loadedPlaylistFilename string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.hasSaved {
		c.autoResumeArmed = false
		return
	}
	c.autoResumeArmed = normalizeFilename(c.saved.PlaylistFilename) == normalizeFilename(loadedPlaylistFilename)
	c.pendingAutoResumeFilename = loadedPlaylistFilename
}

// CheckAutoResume fires only when playback is about to start at
// predictedDefaultStartIndex — any other start discards the pending
// resume outright.
func (c *Coordinator) CheckAutoResume(startIndex, predictedDefaultStartIndex int) (RestorePlan, bool) {
	c.mu.Lock()
	armed := c.autoResumeArmed
	c.autoResumeArmed = false
	c.mu.Unlock()

	if !armed || startIndex != predictedDefaultStartIndex {
		return RestorePlan{}, false
	}
	return c.Restore(nil), true
}

// Restore computes the RestorePlan from the saved state, optionally
// reconciling it against a live scheduler: queue keys
// are re-resolved into the scheduler's current index space, and the
// restore index prefers a current-episode-key lookup, falling back to
// the raw saved current_index. Passing a nil scheduler skips
// reconciliation and returns the raw saved index (used when the caller
// will build the scheduler itself from PlaylistItems next).
func (c *Coordinator) Restore(sched *playlist.Scheduler) RestorePlan {
	c.mu.Lock()
	state := c.saved
	c.mu.Unlock()

	index := state.CurrentIndex
	if sched != nil {
		sched.RestoreQueueFromKeys(state.QueueKeys)
		if idx, ok := sched.IndexForKey(state.CurrentEpisodeKey); ok {
			index = idx
		}
		sched.SetCurrentIndex(index)
	}

	seek := state.Position - 3.0
	if seek < 0 {
		seek = 0
	}
	return RestorePlan{Index: index, SeekSeconds: seek, BypassBumpGate: true}
}

// SavedPlaylistFilename returns the filename recorded in the saved
// state, used by the caller to decide whether to load that file or
// install PlaylistItems directly.
func (c *Coordinator) SavedPlaylistFilename() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saved.PlaylistFilename
}

// SavedPlaylistItems returns the episode-only items captured in the
// saved state, for installing directly when no playlist file exists.
func (c *Coordinator) SavedPlaylistItems() []playlist.Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]playlist.Item(nil), c.saved.PlaylistItems...)
}

func normalizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	return strings.ToLower(name)
}
