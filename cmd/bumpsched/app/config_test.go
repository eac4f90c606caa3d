// Copyright 2023, DASH-Industry Forum. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	osArgs := []string{"/path/bumpsched"}
	cfg, err := LoadConfig(osArgs, "/root")
	assert.NoError(t, err)
	c := DefaultConfig
	c.ScriptsDir = "/root/scripts"
	c.MusicDir = "/root/music"
	c.OutroDir = "/root/outro"
	c.PlaylistsDir = "/root/playlists"
	c.ExposureStorePath = "/root/exposure_scores.json"
	c.ResumeStatePath = "/root/resume_state.json"
	assert.Equal(t, c, *cfg)
}

func TestCommandLine(t *testing.T) {
	osArgs := []string{"/path/bumpsched", "--loglevel", "debug", "--port", "9000"}
	cfg, err := LoadConfig(osArgs, "/root")
	assert.NoError(t, err)
	c := DefaultConfig
	c.ScriptsDir = "/root/scripts"
	c.MusicDir = "/root/music"
	c.OutroDir = "/root/outro"
	c.PlaylistsDir = "/root/playlists"
	c.ExposureStorePath = "/root/exposure_scores.json"
	c.ResumeStatePath = "/root/resume_state.json"
	c.LogLevel = "debug"
	c.Port = 9000
	assert.Equal(t, c, *cfg)
}

func TestEnv(t *testing.T) {
	osArgs := []string{"/path/bumpsched", "--loglevel", "debug"}
	t.Setenv("BUMPSCHED_LOGLEVEL", "warn")
	cfg, err := LoadConfig(osArgs, "/root")
	assert.NoError(t, err)
	c := DefaultConfig
	c.ScriptsDir = "/root/scripts"
	c.MusicDir = "/root/music"
	c.OutroDir = "/root/outro"
	c.PlaylistsDir = "/root/playlists"
	c.ExposureStorePath = "/root/exposure_scores.json"
	c.ResumeStatePath = "/root/resume_state.json"
	c.LogLevel = "warn"
	assert.Equal(t, c, *cfg)
}

func TestBumpTunableOverride(t *testing.T) {
	osArgs := []string{"/path/bumpsched", "--bumpqueuesize", "12", "--recentspreadn", "3"}
	cfg, err := LoadConfig(osArgs, "/root")
	assert.NoError(t, err)
	assert.Equal(t, 12, cfg.BumpQueueSize)
	assert.Equal(t, 3, cfg.RecentSpreadN)
}
