// Copyright 2023, DASH-Industry Forum. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package exposure

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sleepyshows/bumpsched/pkg/pathkey"
)

func TestAddAndGet(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "exposure_scores.json"))
	key := pathkey.FromPath("/library/episode1.mp4")
	assert.Equal(t, 0.0, s.Get(KindEpisode, key))
	s.Add(KindEpisode, key, 100)
	assert.Equal(t, 100.0, s.Get(KindEpisode, key))
	s.Add(KindEpisode, key, -25)
	assert.Equal(t, 75.0, s.Get(KindEpisode, key))
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exposure_scores.json")
	s := New(path)
	epKey := pathkey.FromPath("/library/e1.mp4")
	scriptKey := pathkey.ScriptKey("/scripts/a.txt", 0)
	musicKey := pathkey.FromPath("/music/vibe1.mp3")

	s.Add(KindEpisode, epKey, 100)
	s.Add(KindScript, scriptKey, 50)
	s.Add(KindMusic, musicKey, 1)
	require.NoError(t, s.Save(true))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 100.0, loaded.Get(KindEpisode, epKey))
	assert.Equal(t, 50.0, loaded.Get(KindScript, scriptKey))
	assert.Equal(t, 1.0, loaded.Get(KindMusic, musicKey))
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Equal(t, 0.0, s.Get(KindEpisode, pathkey.FromPath("/x.mp4")))
}

func TestSeedMusicIdempotent(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "exposure_scores.json"))
	key := pathkey.FromPath("/music/vibe2.mp3")
	assert.True(t, s.SeedMusic(key, "vibe2"))
	assert.Equal(t, 1.0, s.Get(KindMusic, key))

	assert.False(t, s.SeedMusic(key, "vibe2"))

	s.Add(KindMusic, key, 5)
	assert.False(t, s.SeedMusic(key, "vibe2"))
	assert.Equal(t, 6.0, s.Get(KindMusic, key))

	unrelated := pathkey.FromPath("/music/random-track.mp3")
	assert.False(t, s.SeedMusic(unrelated, "random-track"))
}

func TestSeedScriptThreshold(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "exposure_scores.json"))
	key := pathkey.ScriptKey("/scripts/long.txt", 0)
	tol := 23.0/15.0 - 1
	// Exactly at threshold: not seeded.
	assert.False(t, s.SeedScript(key, int(15_000*(1+tol)), 15_000*(1+tol)))
	// Above threshold: seeded once.
	assert.True(t, s.SeedScript(key, int(15_000*(1+tol))+1, 15_000*(1+tol)))
	assert.True(t, s.SeededLastChanged())
	assert.False(t, s.SeededLastChanged()) // flag cleared after read
	assert.False(t, s.SeedScript(key, int(15_000*(1+tol))+1, 15_000*(1+tol)))
}

func TestEpisodePlayDeltaSleepTimerOff(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "exposure_scores.json"))
	for i := 0; i < 5; i++ {
		assert.Equal(t, 100.0, s.EpisodePlayDelta(false))
	}
}

func TestEpisodePlayDeltaSleepTimerOnDecays(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "exposure_scores.json"))
	want := []float64{100, 100, 100, 50, 50, 50, 25, 25, 25}
	for _, w := range want {
		assert.Equal(t, w, s.EpisodePlayDelta(true))
	}
}

func TestEpisodePlayDeltaFloorsAtOne(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "exposure_scores.json"))
	var last float64
	for i := 0; i < 60; i++ {
		last = s.EpisodePlayDelta(true)
	}
	assert.Equal(t, 1.0, last)
}

func TestApplySkipPenaltyIdempotent(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "exposure_scores.json"))
	key := pathkey.FromPath("/library/e1.mp4")
	s.Add(KindEpisode, key, 100)

	applied := s.ApplySkipPenalty(key, 3, 1000, 10, 0.5)
	assert.True(t, applied)
	assert.Equal(t, 95.0, s.Get(KindEpisode, key))

	applied = s.ApplySkipPenalty(key, 3, 1000, 10, 0.5)
	assert.False(t, applied)
	assert.Equal(t, 95.0, s.Get(KindEpisode, key))

	applied = s.ApplySkipPenalty(key, 3, 2000, 10, 0.5)
	assert.True(t, applied)
	assert.Equal(t, 90.0, s.Get(KindEpisode, key))
}
