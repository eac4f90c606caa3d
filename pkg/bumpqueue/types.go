// Copyright 2023, DASH-Industry Forum. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

// Package bumpqueue builds and maintains a FIFO of complete bumps
// (script + music/video + optional outro) satisfying eligibility,
// exposure preference, recent-usage spacing, and short-clip gating.
package bumpqueue

import (
	"github.com/sleepyshows/bumpsched/pkg/bumpscript"
	"github.com/sleepyshows/bumpsched/pkg/pathkey"
	"github.com/sleepyshows/bumpsched/pkg/timing"
)

// Config bundles the tunables that govern composer behavior.
type Config struct {
	BumpTargetCapMS           int
	MusicOverageTolerance     float64
	ShortBumpSeconds          float64
	ShortBumpOverageTolerance float64
	Fit                       timing.FitParams
	RecentSpreadN             int
	EarlyShortOnlySlots       int
	QueueSize                 int // 0 => auto-cap to the full bottleneck
	// BasePenalty is the local, rebuild-scoped score penalty applied to
	// a music/video/outro asset right after it's used, so the next
	// selection round naturally favors a different one. It also weights
	// script selection: non-short-fit audio scripts and scripts consumed
	// in recent pops carry it on top of their base exposure.
	BasePenalty float64
}

// DefaultConfig returns the reference tunables.
func DefaultConfig() Config {
	return Config{
		BumpTargetCapMS:           timing.MaxTargetMS,
		MusicOverageTolerance:     0.20,
		ShortBumpSeconds:          15.0,
		ShortBumpOverageTolerance: 23.0/15.0 - 1,
		Fit: timing.FitParams{
			MinScalableFraction:           0.40,
			DurationNormalizationExponent: 1.0,
			SoftClampK:                    4.0,
		},
		RecentSpreadN:       8,
		EarlyShortOnlySlots: 4,
		QueueSize:           0,
		BasePenalty:         50,
	}
}

// ShortMusicCeilingMS is the upper bound on music duration that still
// counts as "short" for the short-fit music preference pass.
const ShortMusicCeilingMS = 15_750

// ScriptAsset is one parsed, eligible-or-not script plus its
// precomputed timing analysis, as presented to the composer.
type ScriptAsset struct {
	Script   bumpscript.Script
	Key      pathkey.Key // exposure lookup key (script_key)
	Analysis timing.Analysis
}

// MusicAsset is one scanned music track plus its exposure key and
// basename, as presented to the composer.
type MusicAsset struct {
	Path       string
	Key        pathkey.Key
	Basename   string
	DurationMS int
}

// CompleteBump is a materialized, playable bump: its script with every
// card's duration fixed to a concrete value, plus the chosen audio or
// video asset and optional outro sound. It is never persisted — only
// queued in memory.
type CompleteBump struct {
	Script         bumpscript.Script
	DurationMS     int
	IsVideo        bool
	AudioPath      string
	VideoPath      string
	VideoInclusive bool
	OutroAudioPath string
}

// RebuildStats records per-rebuild diagnostics for observability.
type RebuildStats struct {
	QueueBuilt             int
	SkippedBaseIneligible  int
	SkippedAudioNoMusicFit int
	Stalled                bool
}
