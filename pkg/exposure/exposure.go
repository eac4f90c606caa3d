// Copyright 2023, DASH-Industry Forum. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

// Package exposure maintains additive exposure scores for episodes, bump
// scripts, bump music, bump videos, and outro sounds, persisted as a
// single JSON file so selection stays stable across process restarts.
package exposure

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sleepyshows/bumpsched/pkg/pathkey"
)

// Kind identifies which of the five exposure maps a key belongs to.
type Kind int

const (
	KindEpisode Kind = iota
	KindScript
	KindMusic
	KindVideo
	KindOutro
)

func (k Kind) String() string {
	switch k {
	case KindEpisode:
		return "episode"
	case KindScript:
		return "script"
	case KindMusic:
		return "music"
	case KindVideo:
		return "video"
	case KindOutro:
		return "outro"
	default:
		return "unknown"
	}
}

const saveThrottle = 1500 * time.Millisecond

// skipKey identifies one skip-penalty application, so a duplicate
// navigation event from the player can never double-charge an episode.
type skipKey struct {
	index              int
	playStartMonotonic int64
}

// Store holds the five exposure maps plus the bookkeeping needed to
// throttle saves and keep session-decaying play deltas. It is safe for
// concurrent use.
type Store struct {
	mu sync.Mutex

	episodes map[pathkey.Key]float64
	scripts  map[pathkey.Key]float64
	music    map[pathkey.Key]float64
	videos   map[pathkey.Key]float64
	outros   map[pathkey.Key]float64

	path     string
	dirty    bool
	lastSave time.Time

	episodeSessionPlays int
	bumpSessionPlays    int

	skipApplied map[skipKey]struct{}

	seededLastChanged bool
}

// onDiskBumpComponents is the "bump_components" subtree of the
// exposure document on disk.
type onDiskBumpComponents struct {
	Scripts map[string]float64 `json:"scripts"`
	Music   map[string]float64 `json:"music"`
	Videos  map[string]float64 `json:"videos"`
	Outro   map[string]float64 `json:"outro"`
}

type onDisk struct {
	Episodes       map[string]float64   `json:"episodes"`
	BumpComponents onDiskBumpComponents `json:"bump_components"`
}

// New returns an empty Store bound to path (not yet saved).
func New(path string) *Store {
	return &Store{
		episodes:    make(map[pathkey.Key]float64),
		scripts:     make(map[pathkey.Key]float64),
		music:       make(map[pathkey.Key]float64),
		videos:      make(map[pathkey.Key]float64),
		outros:      make(map[pathkey.Key]float64),
		path:        path,
		skipApplied: make(map[skipKey]struct{}),
	}
}

// Load reads path and returns the populated Store. A missing file
// yields an empty store with no error. A corrupt file is logged as a
// warning and also yields an empty store, matching the original
// implementation's crash-avoidance behavior (see SPEC_FULL.md).
func Load(path string) (*Store, error) {
	s := New(path)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("exposure: read %s: %w", path, err)
	}
	var d onDisk
	if err := json.Unmarshal(data, &d); err != nil {
		slog.Warn("exposure: corrupt store, starting empty", "path", path, "error", err.Error())
		return s, nil
	}
	for k, v := range d.Episodes {
		s.episodes[pathkey.Key(k)] = v
	}
	for k, v := range d.BumpComponents.Scripts {
		s.scripts[pathkey.Key(k)] = v
	}
	for k, v := range d.BumpComponents.Music {
		s.music[pathkey.Key(k)] = v
	}
	for k, v := range d.BumpComponents.Videos {
		s.videos[pathkey.Key(k)] = v
	}
	for k, v := range d.BumpComponents.Outro {
		s.outros[pathkey.Key(k)] = v
	}
	return s, nil
}

func (s *Store) mapFor(kind Kind) map[pathkey.Key]float64 {
	switch kind {
	case KindEpisode:
		return s.episodes
	case KindScript:
		return s.scripts
	case KindMusic:
		return s.music
	case KindVideo:
		return s.videos
	case KindOutro:
		return s.outros
	default:
		panic(fmt.Sprintf("exposure: unknown kind %d", kind))
	}
}

// Get returns the current exposure score for key under kind (0 if never
// seen).
func (s *Store) Get(kind Kind, key pathkey.Key) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mapFor(kind)[key]
}

// Add adds delta (which may be negative, e.g. a skip penalty) to key's
// score under kind and marks the store dirty for the next throttled
// save.
func (s *Store) Add(kind Kind, key pathkey.Key, delta float64) {
	if key.Empty() {
		return
	}
	s.mu.Lock()
	s.mapFor(kind)[key] += delta
	s.dirty = true
	s.mu.Unlock()
}

// Set overwrites key's score under kind, used by seeding.
func (s *Store) set(kind Kind, key pathkey.Key, value float64) {
	s.mapFor(kind)[key] = value
	s.dirty = true
}

// has reports whether key already has a recorded score under kind.
func (s *Store) has(kind Kind, key pathkey.Key) bool {
	_, ok := s.mapFor(kind)[key]
	return ok
}

// EntryCount returns the total number of scored keys across all five
// maps, used as a cheap size signal for observability.
func (s *Store) EntryCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.episodes) + len(s.scripts) + len(s.music) + len(s.videos) + len(s.outros)
}

// SeededLastChanged reports whether the most recent seeding call added
// a new score, and clears the flag. Callers use this to decide whether
// to force an immediate save.
func (s *Store) SeededLastChanged() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	changed := s.seededLastChanged
	s.seededLastChanged = false
	return changed
}

// Save persists the store to its JSON path. Saves are throttled to
// saveThrottle apart unless force is true (used at shutdown and right
// after a seeding change). Writes are atomic via a temp file + rename.
func (s *Store) Save(force bool) error {
	s.mu.Lock()
	if !s.dirty && !force {
		s.mu.Unlock()
		return nil
	}
	if !force && time.Since(s.lastSave) < saveThrottle {
		s.mu.Unlock()
		return nil
	}
	d := onDisk{
		Episodes: stringify(s.episodes),
		BumpComponents: onDiskBumpComponents{
			Scripts: stringify(s.scripts),
			Music:   stringify(s.music),
			Videos:  stringify(s.videos),
			Outro:   stringify(s.outros),
		},
	}
	path := s.path
	s.mu.Unlock()

	payload, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("exposure: marshal: %w", err)
	}
	if err := atomicWrite(path, payload); err != nil {
		return fmt.Errorf("exposure: write %s: %w", path, err)
	}

	s.mu.Lock()
	s.dirty = false
	s.lastSave = time.Now()
	s.mu.Unlock()
	slog.Debug("exposure: saved", "path", path, "force", force)
	return nil
}

func stringify(m map[pathkey.Key]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k.String()] = v
	}
	return out
}

func atomicWrite(path string, payload []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".exposure-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}
