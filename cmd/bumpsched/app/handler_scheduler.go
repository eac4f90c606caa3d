// Copyright 2023, DASH-Industry Forum. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package app

import (
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/sleepyshows/bumpsched/pkg/exposure"
	"github.com/sleepyshows/bumpsched/pkg/playlist"
)

type schedulerView struct {
	PlaylistFile       string `json:"playlistFile,omitempty"`
	ItemCount          int    `json:"itemCount"`
	CurrentIndex       int    `json:"currentIndex"`
	CurrentPath        string `json:"currentPath,omitempty"`
	ShuffleMode        string `json:"shuffleMode"`
	SleepTimerExposure bool   `json:"sleepTimerExposure"`
	RecentEpisodes     []int  `json:"recentEpisodes,omitempty"`
}

// schedulerHandlerFunc reports the currently loaded playlist scheduler's
// state (GET) and applies runtime changes (POST ?mode= for the shuffle
// mode, ?sleeptimerexposure=true|false for the sleep-timer exposure toggle).
// There is no scheduler loaded when no playlist document was found under
// PlaylistsDir at startup.
func (s *Server) schedulerHandlerFunc(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.scheduler == nil {
		// A state change against a missing scheduler must not report
		// success; reads still get the loaded:false view.
		code := http.StatusOK
		if r.Method == http.MethodPost {
			code = http.StatusNotFound
		}
		s.jsonResponse(w, map[string]any{"loaded": false}, code)
		return
	}

	if r.Method == http.MethodPost {
		modeRaw := r.URL.Query().Get("mode")
		// Round-trip through the parser so the accepted vocabulary has
		// one source of truth.
		if modeRaw != "" && playlist.ParseShuffleMode(modeRaw).String() != modeRaw {
			s.jsonResponse(w, map[string]any{"message": "mode must be off, standard, or season"}, http.StatusBadRequest)
			return
		}
		var sleepOn, haveSleep bool
		if raw := r.URL.Query().Get("sleeptimerexposure"); raw != "" {
			on, err := strconv.ParseBool(raw)
			if err != nil {
				s.jsonResponse(w, map[string]any{"message": "sleeptimerexposure must be a boolean"}, http.StatusBadRequest)
				return
			}
			sleepOn, haveSleep = on, true
		}
		sleepChanged := false
		if haveSleep {
			sleepChanged = s.scheduler.SetSleepTimerExposure(sleepOn)
		}
		if modeRaw != "" {
			s.scheduler.SetShuffleMode(playlist.ParseShuffleMode(modeRaw))
		} else if sleepChanged {
			s.scheduler.RebuildQueue()
		}
	}

	view := schedulerView{
		PlaylistFile:       s.playlistFile,
		ItemCount:          s.scheduler.ItemCount(),
		CurrentIndex:       s.scheduler.CurrentIndex(),
		ShuffleMode:        s.scheduler.ShuffleMode().String(),
		SleepTimerExposure: s.scheduler.SleepTimerExposure(),
		RecentEpisodes:     s.scheduler.EpisodeHistory(),
	}
	if path, ok := s.scheduler.PathAt(s.scheduler.CurrentIndex()); ok {
		view.CurrentPath = path
	}
	s.jsonResponse(w, view, http.StatusOK)
}

// schedulerAdvanceHandlerFunc advances playback one step (POST
// /api/scheduler/advance): the next index is computed, recorded as a
// playback start, and reported back. This is the same path the play
// driver takes when an episode ends naturally.
func (s *Server) schedulerAdvanceHandlerFunc(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scheduler == nil {
		s.jsonResponse(w, map[string]any{"loaded": false}, http.StatusNotFound)
		return
	}
	next := s.scheduler.GetNextIndex()
	s.recordEpisodeStart(next)
	s.jsonResponse(w, map[string]any{"index": next}, http.StatusOK)
}

// recordEpisodeStart registers next as a playback start: history is
// appended, and an episode item accrues its session-decaying play
// delta. Callers hold s.mu.
func (s *Server) recordEpisodeStart(next int) {
	s.scheduler.RecordPlaybackIndex(next)
	s.playStart = time.Now().UnixNano()
	if typ, ok := s.scheduler.ItemTypeAt(next); !ok || typ != playlist.ItemVideo {
		return
	}
	delta := s.exposureStore.EpisodePlayDelta(s.scheduler.SleepTimerExposure())
	s.playDelta = delta
	s.exposureStore.Add(exposure.KindEpisode, s.scheduler.KeyAt(next), delta)
	if err := s.exposureStore.Save(false); err != nil {
		slog.Warn("bumpsched: exposure save failed", "error", err.Error())
	}
}

// applySkipPenalty charges the episode being navigated away from,
// unless playback was already within 150ms of its natural end (dur=0
// means the caller didn't report a duration, and the penalty applies).
// Callers hold s.mu.
func (s *Server) applySkipPenalty(pos, dur float64) {
	cur := s.scheduler.CurrentIndex()
	if typ, ok := s.scheduler.ItemTypeAt(cur); !ok || typ != playlist.ItemVideo {
		return
	}
	if dur > 0 && dur-pos <= 0.15 {
		return
	}
	// Refund exactly what the play start charged; a tier boundary or a
	// toggle flip between start and skip must not skew the score. The
	// first skip after startup has no recorded charge, so fall back to
	// the projected delta.
	points := s.playDelta
	if points == 0 {
		points = s.exposureStore.PeekEpisodePlayDelta(s.scheduler.SleepTimerExposure())
	}
	factor := s.scheduler.EpisodeFactor(cur)
	if s.exposureStore.ApplySkipPenalty(s.scheduler.KeyAt(cur), cur, s.playStart, points, factor) {
		s.metrics.SkipPenaltyTotal.Inc()
	}
}

// schedulerSkipHandlerFunc applies a manual navigation (POST
// /api/scheduler/skip?dir=next|prev[&pos=SECONDS][&dur=SECONDS]).
// dir=prev consults pos, the current playback position, for the
// two-stage back-skip; dur, the current item's duration, waives the
// skip penalty when playback was already at the natural end.
func (s *Server) schedulerSkipHandlerFunc(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scheduler == nil {
		s.jsonResponse(w, map[string]any{"loaded": false}, http.StatusNotFound)
		return
	}
	pos, dur, perr := parseSkipParams(r)
	if perr != nil {
		s.jsonResponse(w, map[string]any{"message": perr.Error()}, http.StatusBadRequest)
		return
	}
	cur := s.scheduler.CurrentIndex()
	switch r.URL.Query().Get("dir") {
	case "next":
		next := s.scheduler.SkipToNextEpisode()
		if next != cur {
			s.applySkipPenalty(pos, dur)
			s.recordEpisodeStart(next)
		}
		s.jsonResponse(w, map[string]any{"index": next}, http.StatusOK)
	case "prev":
		res := s.scheduler.SkipToPreviousEpisode(pos)
		if !res.RestartCurrent && res.Index != cur {
			s.applySkipPenalty(pos, dur)
			s.recordEpisodeStart(res.Index)
		}
		s.jsonResponse(w, map[string]any{"index": res.Index, "restartCurrent": res.RestartCurrent}, http.StatusOK)
	default:
		s.jsonResponse(w, map[string]any{"message": "dir must be next or prev"}, http.StatusBadRequest)
	}
}

// parseSkipParams reads the optional pos/dur query parameters of a skip
// request, rejecting malformed values so a driver bug surfaces as a 400
// instead of a silent wrong navigation.
func parseSkipParams(r *http.Request) (pos, dur float64, err error) {
	if raw := r.URL.Query().Get("pos"); raw != "" {
		if pos, err = parseSeconds(raw); err != nil {
			return 0, 0, fmt.Errorf("pos must be a finite number of seconds")
		}
	}
	if raw := r.URL.Query().Get("dur"); raw != "" {
		if dur, err = parseSeconds(raw); err != nil {
			return 0, 0, fmt.Errorf("dur must be a finite number of seconds")
		}
	}
	return pos, dur, nil
}

func parseSeconds(raw string) (float64, error) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("not finite")
	}
	// Players report tiny negative positions right after a start/seek;
	// clamp those rather than dead-ending the skip button.
	if v < 0 {
		v = 0
	}
	return v, nil
}
