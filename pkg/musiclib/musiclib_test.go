// Copyright 2023, DASH-Industry Forum. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package musiclib

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDurationFromBasename(t *testing.T) {
	cases := []struct {
		name   string
		wantMS int
		wantOK bool
	}{
		{"chill vibes 180s", 180000, true},
		{"chill vibes 180", 180000, true},
		{"no number here", 0, false},
		{"", 0, false},
		{"vibe1", 0, false},
	}
	for _, c := range cases {
		ms, ok := ParseDurationFromBasename(c.name)
		assert.Equal(t, c.wantOK, ok, c.name)
		if c.wantOK {
			assert.Equal(t, c.wantMS, ms, c.name)
		}
	}
}

func TestScanUsesBasenameFallback(t *testing.T) {
	fsys := fstest.MapFS{
		"vibe1.mp3":               {Data: []byte("x")},
		"late night chat 45s.mp3": {Data: []byte("x")},
		"readme.txt":              {Data: []byte("not audio")},
	}
	lib := New(nil)
	entries, err := lib.Scan(fsys)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	byName := map[string]Entry{}
	for _, e := range entries {
		byName[e.BasenameNoExt] = e
	}
	assert.False(t, byName["vibe1"].DurationKnown)
	assert.True(t, byName["late night chat 45s"].DurationKnown)
	assert.Equal(t, 45000, byName["late night chat 45s"].DurationMS)
}

func TestScanPrefersProbe(t *testing.T) {
	fsys := fstest.MapFS{
		"track 10s.mp3": {Data: []byte("x")},
	}
	probe := func(path string) (int, bool) { return 9999, true }
	lib := New(probe)
	entries, err := lib.Scan(fsys)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 9999, entries[0].DurationMS)
	assert.True(t, entries[0].DurationKnown)
}
