// Copyright 2023, DASH-Industry Forum. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package app

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sleepyshows/bumpsched/pkg/bumpqueue"
	"github.com/sleepyshows/bumpsched/pkg/exposure"
	"github.com/sleepyshows/bumpsched/pkg/logging"
	"github.com/sleepyshows/bumpsched/pkg/musiclib"
	"github.com/sleepyshows/bumpsched/pkg/playlist"
	"github.com/sleepyshows/bumpsched/pkg/resume"
	"github.com/sleepyshows/bumpsched/pkg/timing"
)

// SetupServer sets up the router, middleware, and core package wiring
// given the loaded configuration: bump-script/music/outro discovery,
// exposure-store load, an initial queue rebuild, and playlist/resume
// coordinator wiring.
func SetupServer(ctx context.Context, cfg *ServerConfig) (*Server, error) {
	logger := slog.Default()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	zlog := logging.LoggerWithTopic("http")
	r.Use(logging.ZerologMiddleware(zlog))
	r.Use(middleware.Recoverer)
	r.Use(NewPrometheusMiddleware())
	r.Use(addVersionAndCORSHeaders)

	if cfg.TimeoutS > 0 {
		r.Use(middleware.Timeout(time.Duration(cfg.TimeoutS) * time.Second))
	}

	r.Mount("/metrics", promhttp.Handler())
	for _, route := range logging.LogRoutes {
		r.MethodFunc(route.Method, route.Path, route.Handler)
	}

	metrics := NewMetrics()

	store, err := exposure.Load(cfg.ExposureStorePath)
	if err != nil {
		return nil, fmt.Errorf("exposure.Load: %w", err)
	}

	composerCfg := bumpqueue.DefaultConfig()
	composerCfg.BumpTargetCapMS = cfg.BumpTargetCapMS
	composerCfg.MusicOverageTolerance = cfg.MusicOverageTolerance
	composerCfg.ShortBumpSeconds = cfg.ShortBumpSeconds
	composerCfg.ShortBumpOverageTolerance = cfg.ShortBumpOverageTolerance
	composerCfg.Fit = timing.FitParams{
		MinScalableFraction:           cfg.MinScalableFraction,
		DurationNormalizationExponent: cfg.DurationNormExponent,
		SoftClampK:                    cfg.SoftClampK,
	}
	composerCfg.RecentSpreadN = cfg.RecentSpreadN
	composerCfg.EarlyShortOnlySlots = cfg.EarlyShortOnlySlots
	composerCfg.QueueSize = cfg.BumpQueueSize

	musicLib := musiclib.New(nil)
	library, err := loadLibrary(cfg, musicLib, store, bumpqueue.ShortWindowMS(composerCfg))
	if err != nil {
		return nil, fmt.Errorf("loadLibrary: %w", err)
	}

	composer := bumpqueue.NewComposer(composerCfg, store, rand.New(rand.NewSource(time.Now().UnixNano())))

	start := time.Now()
	_, stats := composer.Rebuild(library.Scripts, library.Music, library.Outros)
	metrics.RebuildsTotal.Inc()
	metrics.QueueLength.Set(float64(composer.Len()))
	metrics.ExposureEntries.Set(float64(store.EntryCount()))
	if stats.Stalled {
		metrics.RebuildStalled.Inc()
	}
	logger.Info("bump queue built",
		"built", stats.QueueBuilt, "skippedBaseIneligible", stats.SkippedBaseIneligible,
		"skippedAudioNoMusicFit", stats.SkippedAudioNoMusicFit, "stalled", stats.Stalled,
		"elapsed", time.Since(start).String())

	resumeCoord, err := resume.NewCoordinator(cfg.ResumeStatePath)
	if err != nil {
		return nil, fmt.Errorf("resume.NewCoordinator: %w", err)
	}

	server := &Server{
		Router:        r,
		Cfg:           cfg,
		metrics:       metrics,
		exposureStore: store,
		composer:      composer,
		library:       library,
		resumeCoord:   resumeCoord,
		prefetch:      bumpqueue.NewPrefetchBuffers(),
	}

	sched, playlistFile, err := loadDefaultScheduler(cfg.PlaylistsDir, store, cfg.SleepTimerExposure)
	if err != nil {
		logger.Warn("no playlist loaded at startup", "dir", cfg.PlaylistsDir, "error", err.Error())
	} else if sched != nil {
		server.scheduler = sched
		server.playlistFile = playlistFile
		resumeCoord.ArmAutoResume(playlistFile)
	}

	if err := server.Routes(ctx); err != nil {
		return nil, fmt.Errorf("routes: %w", err)
	}

	logger.Info("bumpsched starting", "port", cfg.Port)
	return server, nil
}

// loadDefaultScheduler loads the lexicographically first playlist
// document found under dir and builds a Scheduler from it. A missing
// directory, or one with no playlist document, is returned as an error;
// the caller logs it and the server still starts with no scheduler
// wired, since playlist loading is normally driven by the player, not
// the introspection surface.
func loadDefaultScheduler(dir string, store *exposure.Store, sleepTimerExposureOn bool) (*playlist.Scheduler, string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, "", err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".json") {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return nil, "", fmt.Errorf("no playlist documents in %s", dir)
	}
	name := names[0]
	for _, n := range names[1:] {
		if n < name {
			name = n
		}
	}
	doc, err := playlist.LoadDocument(filepath.Join(dir, name))
	if err != nil {
		return nil, "", err
	}
	sched := playlist.NewScheduler(doc.Items, 0, doc.ShuffleMode, doc.Frequency, store, sleepTimerExposureOn,
		rand.New(rand.NewSource(time.Now().UnixNano())))
	return sched, name, nil
}
