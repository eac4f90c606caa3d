// Copyright 2023, DASH-Industry Forum. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package app

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/sleepyshows/bumpsched/pkg/bumpqueue"
	"github.com/sleepyshows/bumpsched/pkg/bumpscript"
	"github.com/sleepyshows/bumpsched/pkg/exposure"
	"github.com/sleepyshows/bumpsched/pkg/musiclib"
	"github.com/sleepyshows/bumpsched/pkg/pathkey"
	"github.com/sleepyshows/bumpsched/pkg/timing"
)

// Library is the discovered set of composer inputs: eligible scripts,
// candidate music tracks, and outro sounds.
type Library struct {
	Scripts []bumpqueue.ScriptAsset
	Music   []bumpqueue.MusicAsset
	Outros  []pathkey.Key
}

// loadLibrary scans the three asset directories named in cfg, logging
// counts per directory, and seeds initial exposure scores for the
// starter music set and for scripts too long to ever be short-fit
// (judged against shortWindowMS, the composer's short-bump window). A
// seeding change forces an immediate store save.
func loadLibrary(cfg *ServerConfig, musicLib *musiclib.Library, store *exposure.Store, shortWindowMS float64) (Library, error) {
	scripts, err := loadScripts(cfg.ScriptsDir, cfg.MinScalableFraction)
	if err != nil {
		return Library{}, fmt.Errorf("loadScripts: %w", err)
	}
	music, err := loadMusic(cfg.MusicDir, musicLib)
	if err != nil {
		return Library{}, fmt.Errorf("loadMusic: %w", err)
	}
	outros, err := loadOutros(cfg.OutroDir)
	if err != nil {
		return Library{}, fmt.Errorf("loadOutros: %w", err)
	}

	for _, s := range scripts {
		store.SeedScript(s.Key, s.Analysis.MinPossibleMS, shortWindowMS)
	}
	for _, m := range music {
		store.SeedMusic(m.Key, m.Basename)
	}
	if store.SeededLastChanged() {
		if err := store.Save(true); err != nil {
			slog.Warn("bumpsched: could not save seeded exposure scores", "error", err.Error())
		}
	}

	slog.Info("library loaded",
		"scriptsDir", cfg.ScriptsDir, "scripts", len(scripts),
		"musicDir", cfg.MusicDir, "music", len(music),
		"outroDir", cfg.OutroDir, "outros", len(outros))
	return Library{Scripts: scripts, Music: music, Outros: outros}, nil
}

func loadScripts(dir string, minScalableFraction float64) ([]bumpqueue.ScriptAsset, error) {
	var out []bumpqueue.ScriptAsset
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Warn("bumpsched: scripts directory missing", "dir", dir)
			return nil, nil
		}
		return nil, err
	}
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".txt") {
			continue
		}
		fullPath := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(fullPath)
		if err != nil {
			slog.Warn("bumpsched: could not read script file, skipping", "path", fullPath, "error", err.Error())
			continue
		}
		scripts, err := bumpscript.ParseScript(decodeScriptBytes(data), fullPath)
		if err != nil {
			slog.Warn("bumpsched: could not parse script file, skipping", "path", fullPath, "error", err.Error())
			continue
		}
		for _, s := range scripts {
			key := pathkey.Key(s.ScriptKey)
			if key.Empty() {
				key = pathkey.SyntheticScriptKey(fullPath)
			}
			out = append(out, bumpqueue.ScriptAsset{
				Script:   s,
				Key:      key,
				Analysis: timing.Analyze(s.Cards, minScalableFraction),
			})
		}
	}
	return out, nil
}

func loadMusic(dir string, lib *musiclib.Library) ([]bumpqueue.MusicAsset, error) {
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			slog.Warn("bumpsched: music directory missing", "dir", dir)
			return nil, nil
		}
		return nil, err
	}
	entries, err := lib.Scan(os.DirFS(dir))
	if err != nil {
		return nil, err
	}
	out := make([]bumpqueue.MusicAsset, 0, len(entries))
	for _, e := range entries {
		if !e.DurationKnown {
			continue
		}
		fullPath := filepath.Join(dir, e.Path)
		out = append(out, bumpqueue.MusicAsset{
			Path:       fullPath,
			Key:        pathkey.FromPath(fullPath),
			Basename:   e.BasenameNoExt,
			DurationMS: e.DurationMS,
		})
	}
	return out, nil
}

func loadOutros(dir string) ([]pathkey.Key, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Warn("bumpsched: outro directory missing", "dir", dir)
			return nil, nil
		}
		return nil, err
	}
	var out []pathkey.Key
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		out = append(out, pathkey.FromPath(filepath.Join(dir, e.Name())))
	}
	return out, nil
}

// decodeScriptBytes interprets a script file as UTF-8, falling back to
// latin-1 when the bytes aren't valid UTF-8.
func decodeScriptBytes(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	runes := make([]rune, len(data))
	for i, b := range data {
		runes[i] = rune(b)
	}
	return string(runes)
}
