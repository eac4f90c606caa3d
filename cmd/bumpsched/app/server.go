// Copyright 2023, DASH-Industry Forum. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package app

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sleepyshows/bumpsched/pkg/bumpqueue"
	"github.com/sleepyshows/bumpsched/pkg/exposure"
	"github.com/sleepyshows/bumpsched/pkg/playlist"
	"github.com/sleepyshows/bumpsched/pkg/resume"
)

// Server is the introspection surface wired over the core scheduling
// packages. It is not the player itself; it exposes health, metrics,
// log level, JSON views of queue/scheduler state, and POST endpoints
// that rebuild, pop, prefetch, advance and skip.
type Server struct {
	Router  *chi.Mux
	Cfg     *ServerConfig
	metrics *Metrics

	exposureStore *exposure.Store
	composer      *bumpqueue.Composer
	library       Library
	resumeCoord   *resume.Coordinator
	prefetch      *bumpqueue.PrefetchBuffers

	mu           sync.Mutex
	scheduler    *playlist.Scheduler
	playlistFile string
	playStart    int64   // monotonic-ish nanos of the last recorded play start
	playDelta    float64 // exposure delta charged at the last episode start
}

// Flush force-persists the exposure store, bypassing the save
// throttle. Called once at shutdown so the final window of play deltas
// and skip penalties survives a restart. It tries to take the handler
// mutex and deliberately never releases it, so any straggler handler
// still queued after the HTTP drain blocks instead of landing a
// mutation behind the final write; if a stalled handler holds the lock
// past a short grace window, the save proceeds anyway (the store is
// internally locked) rather than hanging the exit.
func (s *Server) Flush() {
	deadline := time.Now().Add(2 * time.Second)
	for !s.mu.TryLock() {
		if time.Now().After(deadline) {
			slog.Warn("flush proceeding without handler lock")
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err := s.exposureStore.Save(true); err != nil {
		slog.Error("could not save exposure scores at shutdown", "err", err)
	}
}

func (s *Server) healthzHandlerFunc(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, map[string]any{"ok": true}, http.StatusOK)
}

// jsonResponse marshals message and writes a response with code.
//
// Don't add any more content after this since Content-Length is set.
func (s *Server) jsonResponse(w http.ResponseWriter, message any, code int) {
	raw, err := json.Marshal(message)
	if err != nil {
		http.Error(w, fmt.Sprintf("{\"message\": %q}", err.Error()), http.StatusInternalServerError)
		slog.Error(err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(raw)))
	w.WriteHeader(code)
	if _, err = w.Write(raw); err != nil {
		slog.Error("could not write HTTP response", "err", err)
	}
}
