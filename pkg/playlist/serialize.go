// Copyright 2023, DASH-Industry Forum. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package playlist

import (
	"encoding/json"
	"fmt"
	"os"
)

// documentJSON mirrors the on-disk playlist shape.
type documentJSON struct {
	Playlist          []Item              `json:"playlist"`
	ShuffleMode       string              `json:"shuffle_mode"`
	ShuffleDefault    *bool               `json:"shuffle_default,omitempty"`
	AutoGenerated     bool                `json:"auto_generated"`
	SourceFolder      string              `json:"source_folder"`
	FrequencySettings legacyFrequencyJSON `json:"frequency_settings"`
}

// Document is the deserialized form of a playlist file: the flattened
// item list plus its shuffle mode and frequency settings, independent of
// any in-memory Scheduler (a Document is loaded first, then handed to
// NewScheduler to start playback).
type Document struct {
	Items         []Item
	ShuffleMode   ShuffleMode
	AutoGenerated bool
	SourceFolder  string
	Frequency     FrequencySettings
}

// LoadDocument reads and parses a playlist JSON file.
// "shuffle_default: true" with no explicit shuffle_mode is the legacy
// spelling for ShuffleStandard.
func LoadDocument(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("playlist: read %s: %w", path, err)
	}
	var doc documentJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("playlist: parse %s: %w", path, err)
	}

	mode := ParseShuffleMode(doc.ShuffleMode)
	if doc.ShuffleMode == "" && doc.ShuffleDefault != nil && *doc.ShuffleDefault {
		mode = ShuffleStandard
	}

	return Document{
		Items:         doc.Playlist,
		ShuffleMode:   mode,
		AutoGenerated: doc.AutoGenerated,
		SourceFolder:  doc.SourceFolder,
		Frequency:     fromLegacyJSON(doc.FrequencySettings),
	}, nil
}

// Save writes doc to path as indented JSON. Bump/interstitial items
// inserted by the composer at runtime are never part of doc.Items — only
// the caller-curated source playlist is persisted, which is what makes
// reloading reproduce the same entries, modulo excluded bump items
// (those were never serialized in the first place).
func (d Document) Save(path string) error {
	doc := documentJSON{
		Playlist:          d.Items,
		ShuffleMode:       d.ShuffleMode.String(),
		AutoGenerated:     d.AutoGenerated,
		SourceFolder:      d.SourceFolder,
		FrequencySettings: d.Frequency.toJSON(),
	}
	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("playlist: marshal: %w", err)
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return fmt.Errorf("playlist: write %s: %w", path, err)
	}
	return nil
}
