// Copyright 2023, DASH-Industry Forum. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package app

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sleepyshows/bumpsched/pkg/bumpqueue"
	"github.com/sleepyshows/bumpsched/pkg/exposure"
	"github.com/sleepyshows/bumpsched/pkg/pathkey"
)

// queueBumpView is the read-only JSON projection of one queued
// CompleteBump, omitting the card timeline (internal detail the
// introspection surface has no use for).
type queueBumpView struct {
	IsVideo        bool   `json:"isVideo"`
	DurationMS     int    `json:"durationMs"`
	AudioPath      string `json:"audioPath,omitempty"`
	VideoPath      string `json:"videoPath,omitempty"`
	OutroAudioPath string `json:"outroAudioPath,omitempty"`
}

type queueView struct {
	Length int             `json:"length"`
	Stats  queueStatsView  `json:"stats"`
	Bumps  []queueBumpView `json:"bumps"`
}

type queueStatsView struct {
	QueueBuilt             int  `json:"queueBuilt"`
	SkippedBaseIneligible  int  `json:"skippedBaseIneligible"`
	SkippedAudioNoMusicFit int  `json:"skippedAudioNoMusicFit"`
	Stalled                bool `json:"stalled"`
}

// queueHandlerFunc reports the current composed bump queue (GET
// /api/queue) and triggers a rebuild on POST.
func (s *Server) queueHandlerFunc(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.Method == http.MethodPost {
		s.rebuildQueue()
	}

	bumps := make([]queueBumpView, 0)
	for _, b := range s.composer.Queue() {
		bumps = append(bumps, queueBumpView{
			IsVideo:        b.IsVideo,
			DurationMS:     b.DurationMS,
			AudioPath:      b.AudioPath,
			VideoPath:      b.VideoPath,
			OutroAudioPath: b.OutroAudioPath,
		})
	}
	stats := s.composer.Stats()
	view := queueView{
		Length: s.composer.Len(),
		Stats: queueStatsView{
			QueueBuilt:             stats.QueueBuilt,
			SkippedBaseIneligible:  stats.SkippedBaseIneligible,
			SkippedAudioNoMusicFit: stats.SkippedAudioNoMusicFit,
			Stalled:                stats.Stalled,
		},
		Bumps: bumps,
	}
	s.jsonResponse(w, view, http.StatusOK)
}

func (s *Server) rebuildQueue() {
	_, stats := s.composer.Rebuild(s.library.Scripts, s.library.Music, s.library.Outros)
	s.metrics.RebuildsTotal.Inc()
	s.metrics.QueueLength.Set(float64(s.composer.Len()))
	s.metrics.ExposureEntries.Set(float64(s.exposureStore.EntryCount()))
	if stats.Stalled {
		s.metrics.RebuildStalled.Inc()
	}
}

// queuePopHandlerFunc consumes the front of the bump queue (POST
// /api/queue/pop), rebuilding on demand when it has run empty, and
// promotes the prefetch double buffer since the popped bump is about to
// start. 404 means both the queue and a fresh rebuild came up empty.
func (s *Server) queuePopHandlerFunc(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bump, ok := s.composer.Pop()
	if !ok {
		s.rebuildQueue()
		bump, ok = s.composer.Pop()
	}
	if !ok {
		s.jsonResponse(w, map[string]any{"message": "bump queue empty"}, http.StatusNotFound)
		return
	}
	s.prefetch.Swap()
	s.accrueBumpExposure(bump)
	s.metrics.QueueLength.Set(float64(s.composer.Len()))
	s.jsonResponse(w, queueBumpView{
		IsVideo:        bump.IsVideo,
		DurationMS:     bump.DurationMS,
		AudioPath:      s.prefetch.Resolve(bump.AudioPath),
		VideoPath:      s.prefetch.Resolve(bump.VideoPath),
		OutroAudioPath: s.prefetch.Resolve(bump.OutroAudioPath),
	}, http.StatusOK)
}

// queuePrefetchHandlerFunc accepts the staged-path mapping from the
// external asset prefetcher (POST /api/queue/prefetch with a JSON
// object of original path -> staged path). The mapping lands in the
// "next" buffer and is promoted when the next bump is popped.
func (s *Server) queuePrefetchHandlerFunc(w http.ResponseWriter, r *http.Request) {
	var staged map[string]string
	if err := json.NewDecoder(r.Body).Decode(&staged); err != nil {
		s.jsonResponse(w, map[string]any{"message": "body must be a JSON object of original -> staged path"}, http.StatusBadRequest)
		return
	}
	s.prefetch.SetNext(staged)
	s.jsonResponse(w, map[string]any{"staged": len(staged)}, http.StatusOK)
}

// accrueBumpExposure adds the session-decaying bump play delta to each
// consumed component and kicks a throttled store save.
func (s *Server) accrueBumpExposure(bump bumpqueue.CompleteBump) {
	delta := s.exposureStore.BumpPlayDelta()
	if bump.Script.ScriptKey != "" {
		s.exposureStore.Add(exposure.KindScript, pathkey.Key(bump.Script.ScriptKey), delta)
	}
	if bump.IsVideo {
		s.exposureStore.Add(exposure.KindVideo, pathkey.FromPath(bump.VideoPath), delta)
	} else {
		s.exposureStore.Add(exposure.KindMusic, pathkey.FromPath(bump.AudioPath), delta)
	}
	if bump.OutroAudioPath != "" {
		s.exposureStore.Add(exposure.KindOutro, pathkey.Key(bump.OutroAudioPath), delta)
	}
	if err := s.exposureStore.Save(false); err != nil {
		slog.Warn("bumpsched: exposure save failed", "error", err.Error())
	}
}
