// Copyright 2023, DASH-Industry Forum. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

// Package musiclib scans a directory of music tracks into MusicEntry
// values the bump queue composer can match scripts against, with a
// basename-parsed duration fallback when no audio-metadata probe is
// available.
package musiclib

import (
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// DurationProbe returns an authoritative duration for the file at path,
// or ok=false if it could not be determined (e.g. unsupported codec,
// unreadable file). Audio decoding itself is out of scope here; callers
// supply a probe backed by whatever metadata library they wire in.
type DurationProbe func(path string) (ms int, ok bool)

// Entry is one scanned music track.
type Entry struct {
	Path          string
	BasenameNoExt string
	DurationMS    int
	// DurationKnown is false when neither the probe nor the basename
	// fallback could determine a duration; such entries never satisfy
	// music eligibility.
	DurationKnown bool
}

var audioExtensions = map[string]bool{
	".mp3":  true,
	".wav":  true,
	".ogg":  true,
	".flac": true,
	".m4a":  true,
	".aac":  true,
}

type cacheEntry struct {
	mtime time.Time
	ms    int
	known bool
}

// Library scans a music directory and caches probed/parsed durations by
// path and file modification time, so a rescan of an unchanged
// directory never reprobes files it has already measured.
type Library struct {
	probe DurationProbe
	cache map[string]cacheEntry
}

// New returns a Library that uses probe to resolve durations when
// possible, falling back to basename parsing otherwise. probe may be
// nil to always use the basename fallback.
func New(probe DurationProbe) *Library {
	return &Library{
		probe: probe,
		cache: make(map[string]cacheEntry),
	}
}

// Scan walks fsys rooted at ".", returning one Entry per recognized
// audio file, sorted by path for deterministic iteration order.
func (l *Library) Scan(fsys fs.FS) ([]Entry, error) {
	var entries []Entry
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(p))
		if !audioExtensions[ext] {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			slog.Warn("musiclib: stat failed, skipping", "path", p, "error", err.Error())
			return nil
		}
		ms, known := l.resolveDuration(p, info.ModTime())
		base := filepath.Base(p)
		entries = append(entries, Entry{
			Path:          p,
			BasenameNoExt: strings.TrimSuffix(base, filepath.Ext(base)),
			DurationMS:    ms,
			DurationKnown: known,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

func (l *Library) resolveDuration(path string, mtime time.Time) (int, bool) {
	if cached, ok := l.cache[path]; ok && cached.mtime.Equal(mtime) {
		return cached.ms, cached.known
	}
	ms, known := l.probeOrParse(path)
	l.cache[path] = cacheEntry{mtime: mtime, ms: ms, known: known}
	return ms, known
}

func (l *Library) probeOrParse(path string) (int, bool) {
	if l.probe != nil {
		if ms, ok := l.probe(path); ok {
			return ms, true
		}
	}
	base := filepath.Base(path)
	noExt := strings.TrimSuffix(base, filepath.Ext(base))
	return ParseDurationFromBasename(noExt)
}
