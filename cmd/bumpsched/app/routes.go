// Copyright 2023, DASH-Industry Forum. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package app

import (
	"context"

	"github.com/go-chi/chi/v5/middleware"
)

// Routes defines the introspection surface: health, Prometheus metrics
// (mounted in SetupServer), log level (mounted in SetupServer from
// logging.LogRoutes), and read-only/action JSON views of the bump queue
// and playlist scheduler.
func (s *Server) Routes(ctx context.Context) error {
	s.Router.Mount("/debug", middleware.Profiler())
	s.Router.MethodFunc("GET", "/healthz", s.healthzHandlerFunc)
	s.Router.MethodFunc("GET", "/api/queue", s.queueHandlerFunc)
	s.Router.MethodFunc("POST", "/api/queue", s.queueHandlerFunc)
	s.Router.MethodFunc("POST", "/api/queue/pop", s.queuePopHandlerFunc)
	s.Router.MethodFunc("POST", "/api/queue/prefetch", s.queuePrefetchHandlerFunc)
	s.Router.MethodFunc("GET", "/api/scheduler", s.schedulerHandlerFunc)
	s.Router.MethodFunc("POST", "/api/scheduler", s.schedulerHandlerFunc)
	s.Router.MethodFunc("POST", "/api/scheduler/advance", s.schedulerAdvanceHandlerFunc)
	s.Router.MethodFunc("POST", "/api/scheduler/skip", s.schedulerSkipHandlerFunc)
	return nil
}
