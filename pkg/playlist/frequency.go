// Copyright 2023, DASH-Industry Forum. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package playlist

// FrequencySettings holds the per-episode and per-season scoring
// offsets/factors applied on top of raw exposure, serialized under the
// "frequency_settings" key of the playlist JSON.
type FrequencySettings struct {
	EpisodeOffsets map[string]float64
	SeasonOffsets  map[string]float64
	EpisodeFactors map[string]float64
	SeasonFactors  map[string]float64
}

// NewFrequencySettings returns an empty FrequencySettings with all maps
// initialized.
func NewFrequencySettings() FrequencySettings {
	return FrequencySettings{
		EpisodeOffsets: make(map[string]float64),
		SeasonOffsets:  make(map[string]float64),
		EpisodeFactors: make(map[string]float64),
		SeasonFactors:  make(map[string]float64),
	}
}

// episodeOffset returns the configured offset for a normalized episode
// path, 0 if unset.
func (f FrequencySettings) episodeOffset(normPath string) float64 {
	return f.EpisodeOffsets[normPath]
}

// episodeFactor returns the configured factor for a normalized episode
// path. If no per-episode factor is set, it falls back to the first
// season-bucket key (of seasonKeys) that has a configured season
// factor; if neither is set, it defaults to 1.0 (neutral).
func (f FrequencySettings) episodeFactor(normPath string, seasonKeys []string) float64 {
	if v, ok := f.EpisodeFactors[normPath]; ok {
		return v
	}
	for _, k := range seasonKeys {
		if v, ok := f.SeasonFactors[k]; ok {
			return v
		}
	}
	return 1.0
}

// seasonOffsetSum sums every season-offset key that applies to this
// episode: both the bare "season:N" key and, when a show name is known,
// the "{Show}|season:N" key. Both keys contribute, not just the more
// specific one.
func (f FrequencySettings) seasonOffsetSum(keys []string) float64 {
	var total float64
	for _, k := range keys {
		total += f.SeasonOffsets[k]
	}
	return total
}

// ApplyFrequencySettings replaces f's maps with in, rejecting (resetting
// to the neutral default) any factor ≤ 0 and clamping any negative
// offset to 0.
func ApplyFrequencySettings(in FrequencySettings) FrequencySettings {
	out := NewFrequencySettings()
	for k, v := range in.EpisodeOffsets {
		out.EpisodeOffsets[k] = clampOffset(v)
	}
	for k, v := range in.SeasonOffsets {
		out.SeasonOffsets[k] = clampOffset(v)
	}
	for k, v := range in.EpisodeFactors {
		out.EpisodeFactors[k] = cleanFactor(v)
	}
	for k, v := range in.SeasonFactors {
		out.SeasonFactors[k] = cleanFactor(v)
	}
	return out
}

func clampOffset(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

func cleanFactor(v float64) float64 {
	if v <= 0 {
		return 1.0
	}
	return v
}

// legacyFrequencyJSON mirrors the on-disk shape, including the legacy
// keys accepted on load (exposure_overrides, *_min_exposure).
type legacyFrequencyJSON struct {
	EpisodeOffsets map[string]float64 `json:"episode_offsets"`
	SeasonOffsets  map[string]float64 `json:"season_offsets"`
	EpisodeFactors map[string]float64 `json:"episode_factors"`
	SeasonFactors  map[string]float64 `json:"season_factors"`

	// Legacy aliases, accepted on load and folded into the modern
	// fields; never written back out.
	ExposureOverrides  map[string]float64 `json:"exposure_overrides,omitempty"`
	EpisodeMinExposure map[string]float64 `json:"episode_min_exposure,omitempty"`
	SeasonMinExposure  map[string]float64 `json:"season_min_exposure,omitempty"`
}

func fromLegacyJSON(j legacyFrequencyJSON) FrequencySettings {
	f := NewFrequencySettings()
	for k, v := range j.EpisodeOffsets {
		f.EpisodeOffsets[k] = v
	}
	for k, v := range j.ExposureOverrides {
		f.EpisodeOffsets[k] = v
	}
	for k, v := range j.EpisodeMinExposure {
		f.EpisodeOffsets[k] = v
	}
	for k, v := range j.SeasonOffsets {
		f.SeasonOffsets[k] = v
	}
	for k, v := range j.SeasonMinExposure {
		f.SeasonOffsets[k] = v
	}
	for k, v := range j.EpisodeFactors {
		f.EpisodeFactors[k] = v
	}
	for k, v := range j.SeasonFactors {
		f.SeasonFactors[k] = v
	}
	return ApplyFrequencySettings(f)
}

func (f FrequencySettings) toJSON() legacyFrequencyJSON {
	return legacyFrequencyJSON{
		EpisodeOffsets: f.EpisodeOffsets,
		SeasonOffsets:  f.SeasonOffsets,
		EpisodeFactors: f.EpisodeFactors,
		SeasonFactors:  f.SeasonFactors,
	}
}
