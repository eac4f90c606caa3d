// Copyright 2023, DASH-Industry Forum. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

// Package resume captures and restores playback position across
// restarts, including the auto-resume trigger and missing-media
// recovery polling.
package resume

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sleepyshows/bumpsched/pkg/pathkey"
	"github.com/sleepyshows/bumpsched/pkg/playlist"
)

// State is the full snapshot persisted and restored by Coordinator.
type State struct {
	ShuffleMode         playlist.ShuffleMode `json:"shuffle_mode"`
	PlaylistFilename    string               `json:"playlist_filename"`
	PlaylistItems       []playlist.Item      `json:"playlist_items"`
	QueueKeys           []pathkey.Key        `json:"queue_keys"`
	CurrentIndex        int                  `json:"current_index"`
	CurrentEpisodeKey   pathkey.Key          `json:"current_episode_key"`
	CurrentEpisodePath  string               `json:"current_episode_path"`
	Position            float64              `json:"position"`
	Duration            float64              `json:"duration"`
	LastPlayTarget      string               `json:"last_play_target"`
}

// stateJSON mirrors State's wire shape, with ShuffleMode and pathkey.Key
// written as plain strings. Loading is lenient: an unrecognized
// shuffle_mode loads as ShuffleOff and absent fields load as zero
// values; only malformed JSON or a wrongly typed field fails Load.
type stateJSON struct {
	ShuffleMode        string          `json:"shuffle_mode"`
	PlaylistFilename   string          `json:"playlist_filename"`
	PlaylistItems      []playlist.Item `json:"playlist_items"`
	QueueKeys          []string        `json:"queue_keys"`
	CurrentIndex       int             `json:"current_index"`
	CurrentEpisodeKey  string          `json:"current_episode_key"`
	CurrentEpisodePath string          `json:"current_episode_path"`
	Position           float64         `json:"position"`
	Duration           float64         `json:"duration"`
	LastPlayTarget     string          `json:"last_play_target"`
}

func (s State) toJSON() stateJSON {
	keys := make([]string, len(s.QueueKeys))
	for i, k := range s.QueueKeys {
		keys[i] = k.String()
	}
	return stateJSON{
		ShuffleMode:        s.ShuffleMode.String(),
		PlaylistFilename:   s.PlaylistFilename,
		PlaylistItems:      s.PlaylistItems,
		QueueKeys:          keys,
		CurrentIndex:       s.CurrentIndex,
		CurrentEpisodeKey:  s.CurrentEpisodeKey.String(),
		CurrentEpisodePath: s.CurrentEpisodePath,
		Position:           s.Position,
		Duration:           s.Duration,
		LastPlayTarget:     s.LastPlayTarget,
	}
}

func fromJSON(j stateJSON) State {
	keys := make([]pathkey.Key, len(j.QueueKeys))
	for i, k := range j.QueueKeys {
		keys[i] = pathkey.Key(k)
	}
	return State{
		ShuffleMode:        playlist.ParseShuffleMode(j.ShuffleMode),
		PlaylistFilename:   j.PlaylistFilename,
		PlaylistItems:      j.PlaylistItems,
		QueueKeys:          keys,
		CurrentIndex:       j.CurrentIndex,
		CurrentEpisodeKey:  pathkey.Key(j.CurrentEpisodeKey),
		CurrentEpisodePath: j.CurrentEpisodePath,
		Position:           j.Position,
		Duration:           j.Duration,
		LastPlayTarget:     j.LastPlayTarget,
	}
}

// Capture builds a State from a live scheduler plus the player-reported
// position/duration. Only episode items are kept in PlaylistItems: bumps
// are never part of the persisted playlist.
func Capture(sched *playlist.Scheduler, playlistFilename string, position, duration float64, lastPlayTarget string) State {
	var episodes []playlist.Item
	for _, it := range sched.Items() {
		if it.Type == playlist.ItemVideo {
			episodes = append(episodes, it)
		}
	}
	current := sched.CurrentIndex()
	items := sched.Items()
	var currentPath string
	if current >= 0 && current < len(items) {
		currentPath = items[current].Path
	}
	return State{
		ShuffleMode:        sched.ShuffleMode(),
		PlaylistFilename:   playlistFilename,
		PlaylistItems:      episodes,
		QueueKeys:          sched.QueueKeys(),
		CurrentIndex:       current,
		CurrentEpisodeKey:  pathkey.FromPath(currentPath),
		CurrentEpisodePath: currentPath,
		Position:           position,
		Duration:           duration,
		LastPlayTarget:     lastPlayTarget,
	}
}

// Save writes state to path atomically (temp file + rename), mirroring
// the exposure store's save pattern.
func Save(path string, state State) error {
	payload, err := json.MarshalIndent(state.toJSON(), "", "  ")
	if err != nil {
		return fmt.Errorf("resume: marshal: %w", err)
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".resume-*.tmp")
	if err != nil {
		return fmt.Errorf("resume: create temp: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("resume: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("resume: close: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("resume: rename: %w", err)
	}
	return nil
}

// Load reads state from path. A missing file returns the zero State and
// ok=false, not an error — there's simply nothing to resume yet.
func Load(path string) (State, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return State{}, false, nil
		}
		return State{}, false, fmt.Errorf("resume: read %s: %w", path, err)
	}
	var j stateJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return State{}, false, fmt.Errorf("resume: parse %s: %w", path, err)
	}
	return fromJSON(j), true, nil
}
