// Copyright 2023, DASH-Industry Forum. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package resume

import (
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sleepyshows/bumpsched/pkg/playlist"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	items := []playlist.Item{
		{Type: playlist.ItemVideo, Path: "ep1.mkv"},
		{Type: playlist.ItemVideo, Path: "ep2.mkv"},
	}
	state := State{
		ShuffleMode:        playlist.ShuffleStandard,
		PlaylistFilename:   "show.json",
		PlaylistItems:      items,
		CurrentIndex:       1,
		CurrentEpisodePath: "ep2.mkv",
		Position:           123.5,
		Duration:           1500,
		LastPlayTarget:     "ep2.mkv",
	}
	path := filepath.Join(t.TempDir(), "resume.json")
	require.NoError(t, Save(path, state))

	loaded, ok, err := Load(path)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, playlist.ShuffleStandard, loaded.ShuffleMode)
	assert.Equal(t, "show.json", loaded.PlaylistFilename)
	assert.Equal(t, items, loaded.PlaylistItems)
	assert.Equal(t, 1, loaded.CurrentIndex)
	assert.Equal(t, 123.5, loaded.Position)
}

func TestLoadMissingFileIsNotAnError(t *testing.T) {
	_, ok, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCaptureFiltersBumpsFromPlaylistItems(t *testing.T) {
	items := []playlist.Item{
		{Type: playlist.ItemVideo, Path: "ep1.mkv"},
		{Type: playlist.ItemInterstitial, Path: "bump.txt"},
		{Type: playlist.ItemVideo, Path: "ep2.mkv"},
	}
	sched := playlist.NewScheduler(items, 0, playlist.ShuffleOff, playlist.NewFrequencySettings(), nil, false, rand.New(rand.NewSource(1)))
	state := Capture(sched, "show.json", 10, 100, "ep1.mkv")
	require.Len(t, state.PlaylistItems, 2)
	for _, it := range state.PlaylistItems {
		assert.Equal(t, playlist.ItemVideo, it.Type)
	}
}
