// Copyright 2023, DASH-Industry Forum. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

// Package playlist implements episode ordering: shuffle modes, episode
// scoring against ExposureStore and FrequencySettings, forward/backward
// navigation, and multi-part forced sequencing.
package playlist

import (
	"encoding/json"

	"github.com/sleepyshows/bumpsched/pkg/exposure"
	"github.com/sleepyshows/bumpsched/pkg/pathkey"
)

// ItemType distinguishes a playable episode from an injected bump or
// other non-episode interstitial in the flattened playlist.
type ItemType int

const (
	ItemVideo ItemType = iota
	ItemInterstitial
)

func (t ItemType) String() string {
	if t == ItemVideo {
		return "video"
	}
	return "interstitial"
}

// Item is one entry of the flattened playlist as loaded/saved, matching
// the "playlist" array of the document JSON.
type Item struct {
	Type ItemType
	Path string
}

type itemWireForm struct {
	Type string `json:"type"`
	Path string `json:"path"`
}

// MarshalJSON writes Item in the {"type":"video"|"interstitial",
// "path":...} shape used by both the playlist document and the resume
// snapshot, so the two JSON surfaces never drift apart.
func (it Item) MarshalJSON() ([]byte, error) {
	return json.Marshal(itemWireForm{Type: it.Type.String(), Path: it.Path})
}

// UnmarshalJSON parses the wire form back into an Item.
func (it *Item) UnmarshalJSON(data []byte) error {
	var w itemWireForm
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	it.Path = w.Path
	if w.Type == "video" {
		it.Type = ItemVideo
	} else {
		it.Type = ItemInterstitial
	}
	return nil
}

// ShuffleMode selects how play_queue is ordered.
type ShuffleMode int

const (
	ShuffleOff ShuffleMode = iota
	ShuffleStandard
	ShuffleSeason
)

func (m ShuffleMode) String() string {
	switch m {
	case ShuffleOff:
		return "off"
	case ShuffleStandard:
		return "standard"
	case ShuffleSeason:
		return "season"
	default:
		return "off"
	}
}

// ParseShuffleMode parses the JSON string form, defaulting unknown
// values to off.
func ParseShuffleMode(s string) ShuffleMode {
	switch s {
	case "standard":
		return ShuffleStandard
	case "season":
		return ShuffleSeason
	default:
		return ShuffleOff
	}
}

const (
	episodeHistoryCap  = 50
	playbackHistoryCap = 200
)

// Scheduler owns playlist ordering state for one loaded playlist. It is
// not safe for concurrent use; the coordinator thread owns it.
type Scheduler struct {
	items   []Item
	keys    []pathkey.Key // parallel to items; normalized path keys
	current int

	playQueue []int

	episodeHistory  []int
	playbackHistory []int
	historyPos      int // index of the current entry in playbackHistory; -1 when empty

	forcedNext int // -1 when unset

	shuffleMode ShuffleMode
	freq        FrequencySettings

	exposure             *exposure.Store
	sleepTimerExposureOn bool

	rng randSource
}

// randSource is the minimal surface Scheduler needs from math/rand, so
// tests can substitute a seeded generator.
type randSource interface {
	Intn(n int) int
}
