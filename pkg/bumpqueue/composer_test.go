// Copyright 2023, DASH-Industry Forum. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package bumpqueue

import (
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sleepyshows/bumpsched/pkg/bumpscript"
	"github.com/sleepyshows/bumpsched/pkg/exposure"
	"github.com/sleepyshows/bumpsched/pkg/pathkey"
	"github.com/sleepyshows/bumpsched/pkg/timing"
)

func textCard(chars int, mode bumpscript.DurationMode, baseMS int) bumpscript.Card {
	return bumpscript.Card{
		Kind:           bumpscript.CardText,
		DurationMode:   mode,
		BaseDurationMS: baseMS,
		DurationMS:     baseMS,
		DisplayText:    repeat("x", chars),
	}
}

func repeat(s string, n int) string {
	out := make([]byte, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, s[0])
	}
	return string(out)
}

func scriptAsset(key string, cards []bumpscript.Card, cfg Config) ScriptAsset {
	s := bumpscript.Script{Cards: cards, MusicPref: "any", ScriptKey: key, OutroCardIndex: -1}
	a := timing.Analyze(cards, cfg.Fit.MinScalableFraction)
	return ScriptAsset{Script: s, Key: pathkey.Key(key), Analysis: a}
}

func videoScriptAsset(key, videoRef string, cards []bumpscript.Card, cfg Config) ScriptAsset {
	s := bumpscript.Script{Cards: cards, VideoRef: videoRef, ScriptKey: key, OutroCardIndex: -1}
	a := timing.Analyze(cards, cfg.Fit.MinScalableFraction)
	return ScriptAsset{Script: s, Key: pathkey.Key(key), Analysis: a}
}

func musicAsset(path string, durationMS int) MusicAsset {
	return MusicAsset{
		Path:       path,
		Key:        pathkey.FromPath(path),
		Basename:   filepath.Base(path[:len(path)-len(filepath.Ext(path))]),
		DurationMS: durationMS,
	}
}

func newTestComposer(cfg Config) (*Composer, *exposure.Store) {
	store := exposure.New(filepath.Join("", "unused.json"))
	return NewComposer(cfg, store, rand.New(rand.NewSource(1))), store
}

func TestRebuildQueueRespectsCapacity(t *testing.T) {
	cfg := DefaultConfig()
	c, _ := newTestComposer(cfg)
	var scripts []ScriptAsset
	for i := 0; i < 3; i++ {
		scripts = append(scripts, scriptAsset(keyFor(i), []bumpscript.Card{textCard(50, bumpscript.DurationAuto, 0)}, cfg))
	}
	var music []MusicAsset
	for i := 0; i < 2; i++ {
		music = append(music, musicAsset(keyFor(i)+".mp3", 10000))
	}
	queue, stats := c.Rebuild(scripts, music, nil)
	maxPossible := len(scripts)
	assert.LessOrEqual(t, len(queue), maxPossible)
	assert.Equal(t, stats.QueueBuilt, len(queue))
}

func TestEarlyShortOnlySlotsGateHolds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EarlyShortOnlySlots = 4
	c, _ := newTestComposer(cfg)

	// Four distinct scripts short enough to fit 15s, plus two that can't.
	// Since scripts never repeat within a rebuild, the gate must draw
	// from this short-fit pool for the first 4 audio slots without
	// needing to reuse any single script.
	var scripts []ScriptAsset
	for i := 0; i < 4; i++ {
		scripts = append(scripts, scriptAsset("short"+string(rune('a'+i)),
			[]bumpscript.Card{textCard(10, bumpscript.DurationAuto, 2000)}, cfg))
	}
	for i := 0; i < 2; i++ {
		scripts = append(scripts, scriptAsset("long"+string(rune('a'+i)),
			[]bumpscript.Card{textCard(10, bumpscript.DurationAuto, 30000)}, cfg))
	}
	var music []MusicAsset
	for i := 0; i < 5; i++ {
		music = append(music, musicAsset(keyFor(i)+".mp3", 29000))
	}

	queue, _ := c.Rebuild(scripts, music, nil)
	require.GreaterOrEqual(t, len(queue), 4)
	for i := 0; i < 4; i++ {
		assert.Contains(t, queue[i].Script.ScriptKey, "short", "slot %d must use a short-fit script", i)
	}
}

func TestConsecutiveMusicBasenamesDiffer(t *testing.T) {
	cfg := DefaultConfig()
	cfg.QueueSize = 6
	c, _ := newTestComposer(cfg)

	var scripts []ScriptAsset
	for i := 0; i < 6; i++ {
		scripts = append(scripts, scriptAsset(keyFor(i), []bumpscript.Card{textCard(10, bumpscript.DurationAuto, 2000)}, cfg))
	}
	var music []MusicAsset
	for i := 0; i < 4; i++ {
		music = append(music, musicAsset(keyFor(i)+".mp3", 29000))
	}

	queue, _ := c.Rebuild(scripts, music, nil)
	for i := 1; i < len(queue); i++ {
		assert.NotEqual(t, queue[i-1].AudioPath, queue[i].AudioPath)
	}
}

func TestEmptyPoolsReturnEmptyQueue(t *testing.T) {
	cfg := DefaultConfig()
	c, _ := newTestComposer(cfg)
	queue, _ := c.Rebuild(nil, nil, nil)
	assert.Empty(t, queue)
}

func TestVideoBumpDurationIsCardSum(t *testing.T) {
	cfg := DefaultConfig()
	c, _ := newTestComposer(cfg)
	cards := []bumpscript.Card{
		{Kind: bumpscript.CardPause, DurationMode: bumpscript.DurationFixed, DurationMS: 1000},
		{Kind: bumpscript.CardText, DurationMode: bumpscript.DurationAbs, DurationMS: 2000},
	}
	scripts := []ScriptAsset{videoScriptAsset("v1", "intro.mp4", cards, cfg)}
	queue, _ := c.Rebuild(scripts, nil, nil)
	require.Len(t, queue, 1)
	assert.True(t, queue[0].IsVideo)
	assert.Equal(t, 3000, queue[0].DurationMS)
}

func TestPopUpdatesRecentTailsAndEmptiesQueue(t *testing.T) {
	cfg := DefaultConfig()
	c, _ := newTestComposer(cfg)
	scripts := []ScriptAsset{scriptAsset("s1", []bumpscript.Card{textCard(10, bumpscript.DurationAuto, 2000)}, cfg)}
	music := []MusicAsset{musicAsset("track.mp3", 10000)}
	c.Rebuild(scripts, music, nil)
	require.Equal(t, 1, c.Len())

	bump, ok := c.Pop()
	require.True(t, ok)
	assert.Equal(t, "track.mp3", bump.AudioPath)
	assert.Equal(t, []string{"track"}, c.recentMusic.Items())
	assert.Equal(t, 0, c.Len())

	_, ok = c.Pop()
	assert.False(t, ok)
}

func TestShortFitScriptPrefersShortTrackBeyondOverageRatio(t *testing.T) {
	cfg := DefaultConfig()
	c, _ := newTestComposer(cfg)
	// Estimated 20s sits inside the fixed short-bump window (23s) even
	// though it's far past the 10s track's duration-ratio tolerance;
	// the short-fit preference must still pair them.
	scripts := []ScriptAsset{scriptAsset("s1",
		[]bumpscript.Card{textCard(10, bumpscript.DurationAuto, 20000)}, cfg)}
	music := []MusicAsset{
		musicAsset("short 10.mp3", 10000),
		musicAsset("long 29.mp3", 29000),
	}
	queue, _ := c.Rebuild(scripts, music, nil)
	require.Len(t, queue, 1)
	assert.Equal(t, "short 10.mp3", queue[0].AudioPath)
	assert.Equal(t, 10000, queue[0].DurationMS)
}

func TestRecentlyPoppedScriptDeprioritizedNextRebuild(t *testing.T) {
	cfg := DefaultConfig()
	c, _ := newTestComposer(cfg)
	scripts := []ScriptAsset{
		scriptAsset("s1", []bumpscript.Card{textCard(10, bumpscript.DurationAuto, 2000)}, cfg),
		scriptAsset("s2", []bumpscript.Card{textCard(10, bumpscript.DurationAuto, 2000)}, cfg),
	}
	music := []MusicAsset{musicAsset("t1.mp3", 10000), musicAsset("t2.mp3", 10000)}

	c.Rebuild(scripts, music, nil)
	first, ok := c.Pop()
	require.True(t, ok)

	// The consumed script lands in the recent tail, so the next rebuild
	// must open with the other one.
	queue, _ := c.Rebuild(scripts, music, nil)
	require.NotEmpty(t, queue)
	assert.NotEqual(t, first.Script.ScriptKey, queue[0].Script.ScriptKey)
}

func keyFor(i int) string {
	return "k" + string(rune('a'+i))
}
