// Copyright 2023, DASH-Industry Forum. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package bumpqueue

import "github.com/sleepyshows/bumpsched/pkg/timing"

// baseEligible reports whether a script is loaded into the playable set
// at all: its minimum possible duration and its fixed-duration floor
// must both fit under the bump target cap. Video-bump scripts still
// pass through this gate; only the later music-eligibility check is
// skipped for them.
func baseEligible(a timing.Analysis, capMS int) bool {
	return a.MinPossibleMS <= capMS && a.FixedMS <= capMS
}

// ShortWindowMS is the fixed short-bump window: the short-bump base
// scaled by the overage tolerance, independent of any particular
// track's length. Exposure seeding shares it so "can never be a short
// bump" means the same thing in both places.
func ShortWindowMS(cfg Config) float64 {
	return cfg.ShortBumpSeconds * 1000 * (1 + cfg.ShortBumpOverageTolerance)
}

// withinShortWindow reports whether a script's estimate lands inside
// the short-bump window.
func withinShortWindow(a timing.Analysis, cfg Config) bool {
	return float64(a.EstimatedMS) <= ShortWindowMS(cfg)
}

// isShortFit reports whether a script can be compressed to the short
// bump ceiling (15s, by reference) while respecting every card's
// minimum and the short-bump overage window. The music fitter must
// also actually succeed against that flat 15s target.
func isShortFit(a timing.Analysis, cfg Config) bool {
	_, ok := shortClipFit(a, int(cfg.ShortBumpSeconds*1000), cfg)
	return ok
}

// shortClipFit reports whether a script can ride this specific short
// track — the short-window bound plus a fitter run against the track's
// capped duration — returning the fitted durations on success so
// callers don't recompute them.
func shortClipFit(a timing.Analysis, musicDurationMS int, cfg Config) (map[int]int, bool) {
	if !withinShortWindow(a, cfg) {
		return nil, false
	}
	f, err := timing.Fit(a, fitTarget(musicDurationMS, cfg.BumpTargetCapMS), cfg.Fit)
	if err != nil {
		return nil, false
	}
	return f, true
}

// musicEligible reports whether a script can be fit to a music track of
// musicDurationMS without exceeding the overage tolerance or the
// per-card minima, under the configured target cap.
func musicEligible(a timing.Analysis, musicDurationMS int, overageTolerance float64, capMS int) bool {
	if musicDurationMS <= 0 {
		return false
	}
	if float64(a.EstimatedMS) > float64(musicDurationMS)*(1+overageTolerance) {
		return false
	}
	return a.MinPossibleMS <= fitTarget(musicDurationMS, capMS)
}

// fitTarget clamps a music duration to the configured cap and the
// fitter's hard ceiling, yielding the duration a bump will actually be
// fitted against.
func fitTarget(musicDurationMS, capMS int) int {
	target := musicDurationMS
	if capMS > 0 && target > capMS {
		target = capMS
	}
	if target > timing.MaxTargetMS {
		target = timing.MaxTargetMS
	}
	return target
}
