// Copyright 2023, DASH-Industry Forum. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

// Package timing derives a bump script's aggregate timing envelope and
// fits its scalable cards to a target music duration.
package timing

import "github.com/sleepyshows/bumpsched/pkg/bumpscript"

// ScalableCard is a handle into a script's card list identifying one
// card the fitter is allowed to compress or stretch.
type ScalableCard struct {
	CardIndex int
	Orig      int // base_duration_ms before fitting
	Min       int // per-card floor
	DeltaMS   int
	Mode      bumpscript.DurationMode
}

// Analysis is the aggregate timing envelope of a script, derived once
// per materialization attempt.
type Analysis struct {
	FixedMS         int
	ScalableOrigMS  int
	MinPossibleMS   int
	EstimatedMS     int
	ScalableCards   []ScalableCard
}

// Analyze derives the Analysis for a script's cards, given the
// min-scalable-fraction floor used to compute each scalable card's min.
func Analyze(cards []bumpscript.Card, minScalableFraction float64) Analysis {
	var a Analysis
	for i, c := range cards {
		if !c.DurationMode.Scalable() {
			a.FixedMS += c.DurationMS
			continue
		}
		a.FixedMS += c.DeltaMS
		a.ScalableOrigMS += c.BaseDurationMS
		min := c.MinPossibleMS(minScalableFraction)
		a.MinPossibleMS += min
		a.ScalableCards = append(a.ScalableCards, ScalableCard{
			CardIndex: i,
			Orig:      c.BaseDurationMS,
			Min:       min,
			DeltaMS:   c.DeltaMS,
			Mode:      c.DurationMode,
		})
	}
	a.MinPossibleMS += a.FixedMS
	a.EstimatedMS = a.FixedMS + a.ScalableOrigMS
	return a
}
