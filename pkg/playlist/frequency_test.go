// Copyright 2023, DASH-Industry Forum. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package playlist

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyFrequencySettingsClampsNegativeOffsets(t *testing.T) {
	in := FrequencySettings{
		EpisodeOffsets: map[string]float64{"a": -5},
		SeasonOffsets:  map[string]float64{"season:1": -1},
		EpisodeFactors: map[string]float64{},
		SeasonFactors:  map[string]float64{},
	}
	out := ApplyFrequencySettings(in)
	assert.Equal(t, 0.0, out.EpisodeOffsets["a"])
	assert.Equal(t, 0.0, out.SeasonOffsets["season:1"])
}

func TestApplyFrequencySettingsRejectsNonPositiveFactors(t *testing.T) {
	in := FrequencySettings{
		EpisodeOffsets: map[string]float64{},
		SeasonOffsets:  map[string]float64{},
		EpisodeFactors: map[string]float64{"a": 0, "b": -2, "c": 2.5},
		SeasonFactors:  map[string]float64{},
	}
	out := ApplyFrequencySettings(in)
	assert.Equal(t, 1.0, out.EpisodeFactors["a"])
	assert.Equal(t, 1.0, out.EpisodeFactors["b"])
	assert.Equal(t, 2.5, out.EpisodeFactors["c"])
}

func TestSeasonOffsetSumAddsBothKeys(t *testing.T) {
	f := NewFrequencySettings()
	f.SeasonOffsets["season:2"] = 10
	f.SeasonOffsets["King of the Hill|season:2"] = 5
	total := f.seasonOffsetSum([]string{"King of the Hill|season:2", "season:2"})
	assert.Equal(t, 15.0, total)
}

func TestLegacyKeysFoldIntoModernFields(t *testing.T) {
	j := legacyFrequencyJSON{
		ExposureOverrides:  map[string]float64{"a.mkv": 3},
		EpisodeMinExposure: map[string]float64{"b.mkv": 4},
		SeasonMinExposure:  map[string]float64{"season:1": 2},
	}
	f := fromLegacyJSON(j)
	assert.Equal(t, 3.0, f.EpisodeOffsets["a.mkv"])
	assert.Equal(t, 4.0, f.EpisodeOffsets["b.mkv"])
	assert.Equal(t, 2.0, f.SeasonOffsets["season:1"])
}
