// Copyright 2023, DASH-Industry Forum. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package timing

import (
	"errors"
	"math"
	"sort"
)

// ErrInfeasible is returned when a script cannot be fit to the
// requested target duration.
var ErrInfeasible = errors.New("timing: script cannot be fit to target duration")

// MaxTargetMS is the hard ceiling on any fit target; a music track
// longer than this is clamped before fitting.
const MaxTargetMS = 29_000

const (
	maxRounds   = 64
	convergedMS = 0.5
)

// FitParams bundles the tunables for Fit, all sourced from
// configuration so operators can retune the fitter without a rebuild.
type FitParams struct {
	MinScalableFraction           float64
	DurationNormalizationExponent float64
	SoftClampK                    float64
}

// Fit computes integer per-card fitted base durations for the script
// whose analysis is a, against a raw music duration musicMS. It returns
// a map from card index (as recorded in a.ScalableCards) to fitted
// base_duration_ms, or ErrInfeasible.
func Fit(a Analysis, musicMS int, p FitParams) (map[int]int, error) {
	target := musicMS
	if target > MaxTargetMS {
		target = MaxTargetMS
	}
	if a.MinPossibleMS > target {
		return nil, ErrInfeasible
	}

	scalableTarget := target - a.FixedMS
	fitted := make(map[int]int, len(a.ScalableCards))
	if a.ScalableOrigMS <= scalableTarget {
		for _, sc := range a.ScalableCards {
			fitted[sc.CardIndex] = sc.Orig
		}
		return fitted, nil
	}

	cur := make([]float64, len(a.ScalableCards))
	saturated := make([]bool, len(a.ScalableCards))
	for i, sc := range a.ScalableCards {
		cur[i] = float64(sc.Orig)
	}
	remaining := float64(a.ScalableOrigMS - scalableTarget)

	alpha := p.DurationNormalizationExponent
	k := p.SoftClampK

	for round := 0; round < maxRounds && remaining > convergedMS; round++ {
		weights := make([]float64, len(a.ScalableCards))
		sumW := 0.0
		for i, sc := range a.ScalableCards {
			if saturated[i] {
				continue
			}
			w := math.Pow(float64(sc.Orig), alpha)
			weights[i] = w
			sumW += w
		}
		if sumW <= 0 {
			break // deadlock: nothing left active
		}

		progressed := false
		totalR := 0.0
		for i, sc := range a.ScalableCards {
			if saturated[i] {
				continue
			}
			rIdeal := remaining * weights[i] / sumW
			rMax := cur[i] - float64(sc.Min)
			if rMax <= convergedMS {
				saturated[i] = true
				continue
			}
			r := rMax * (1 - math.Exp(-k*rIdeal/rMax))
			if r > convergedMS {
				progressed = true
			}
			cur[i] -= r
			totalR += r
			if cur[i]-float64(sc.Min) <= convergedMS {
				saturated[i] = true
			}
		}
		remaining -= totalR
		if !progressed {
			break // deadlock
		}
	}

	if remaining > convergedMS {
		return nil, ErrInfeasible
	}

	return roundFitted(a.ScalableCards, cur, scalableTarget)
}

// roundFitted floors each card's fitted value to an integer and
// redistributes the leftover 1 ms at a time so the fitted values sum
// exactly to scalableTarget. The leftover is not only flooring residue:
// the soft clamp can remove more than the requested reduction, and that
// overshoot is handed back here as well.
func roundFitted(cards []ScalableCard, cur []float64, scalableTarget int) (map[int]int, error) {
	n := len(cards)
	base := make([]int, n)
	frac := make([]float64, n)
	sum := 0
	for i := range cards {
		base[i] = int(math.Floor(cur[i]))
		frac[i] = cur[i] - float64(base[i])
		sum += base[i]
	}
	remainder := scalableTarget - sum

	if remainder > 0 {
		order := sortIndicesByFrac(n, frac, true)
		for i := 0; remainder > 0; i = (i + 1) % n {
			base[order[i]]++
			remainder--
		}
	} else if remainder < 0 {
		order := sortIndicesByFrac(n, frac, false)
		idx := 0
		attempts := 0
		maxAttempts := n * 1000
		for remainder < 0 && attempts < maxAttempts {
			attempts++
			ci := order[idx%n]
			idx++
			if base[ci] > cards[ci].Min {
				base[ci]--
				remainder++
			}
		}
		if remainder < 0 {
			return nil, ErrInfeasible
		}
	}

	out := make(map[int]int, n)
	for i, c := range cards {
		out[c.CardIndex] = base[i]
	}
	return out, nil
}

// sortIndicesByFrac returns indices 0..n-1 ordered by fractional part,
// descending if desc is true else ascending.
func sortIndicesByFrac(n int, frac []float64, desc bool) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool {
		if desc {
			return frac[idx[a]] > frac[idx[b]]
		}
		return frac[idx[a]] < frac[idx[b]]
	})
	return idx
}
