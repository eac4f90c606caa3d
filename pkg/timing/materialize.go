// Copyright 2023, DASH-Industry Forum. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package timing

import "github.com/sleepyshows/bumpsched/pkg/bumpscript"

// Materialize returns a copy of cards with every scalable card's
// DurationMS set to its fitted base plus delta, per the fitted map
// returned by Fit. Fixed-mode cards are returned unchanged. The input
// cards slice is not modified.
func Materialize(cards []bumpscript.Card, a Analysis, fitted map[int]int) []bumpscript.Card {
	out := make([]bumpscript.Card, len(cards))
	copy(out, cards)
	for _, sc := range a.ScalableCards {
		base := fitted[sc.CardIndex]
		out[sc.CardIndex].BaseDurationMS = base
		d := base + sc.DeltaMS
		if d < 1 {
			d = 1
		}
		out[sc.CardIndex].DurationMS = d
	}
	return out
}

// TotalDurationMS sums the DurationMS of every card, used for video
// bumps whose cards are never scaled against a music target.
func TotalDurationMS(cards []bumpscript.Card) int {
	total := 0
	for _, c := range cards {
		total += c.DurationMS
	}
	return total
}
