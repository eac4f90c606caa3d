// Copyright 2023, DASH-Industry Forum. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package app

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	defaultBuckets = []float64{5, 10, 20, 50, 100, 200, 500, 1000}
	prometheusMW   prometheusMiddleware
)

const (
	reqsName    = "bumpsched_requests_total"
	latencyName = "bumpsched_request_duration_milliseconds"
	service     = "bumpsched"
)

// prometheusMiddleware provides a handler that exposes request-level
// prometheus metrics as a single counter/histogram pair.
type prometheusMiddleware struct {
	reqs    *prometheus.CounterVec
	latency *prometheus.HistogramVec
}

// Metrics are the bump-domain gauges/counters: queue length,
// exposure-store size, rebuild counts, and skip-penalty applications.
type Metrics struct {
	QueueLength      prometheus.Gauge
	ExposureEntries  prometheus.Gauge
	RebuildsTotal    prometheus.Counter
	SkipPenaltyTotal prometheus.Counter
	RebuildStalled   prometheus.Counter
}

func init() {
	prometheusMW.reqs = newCounter(reqsName,
		"Number of introspection requests processed, partitioned by status code.", service)
	prometheusMW.latency = newHistogram(latencyName,
		"Introspection request latency.", service, defaultBuckets)
}

// NewPrometheusMiddleware returns a new prometheus middleware handler.
func NewPrometheusMiddleware() func(next http.Handler) http.Handler {
	return prometheusMW.handler
}

// NewMetrics registers and returns the domain gauges/counters.
func NewMetrics() *Metrics {
	m := &Metrics{
		QueueLength: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bumpsched_queue_length",
			Help: "Number of CompleteBumps currently queued.",
		}),
		ExposureEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bumpsched_exposure_entries",
			Help: "Total number of scored keys across all exposure maps.",
		}),
		RebuildsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bumpsched_rebuilds_total",
			Help: "Number of bump queue rebuilds performed.",
		}),
		SkipPenaltyTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bumpsched_skip_penalty_applications_total",
			Help: "Number of times a skip exposure penalty was applied.",
		}),
		RebuildStalled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bumpsched_rebuild_stalled_total",
			Help: "Number of rebuilds that stalled before reaching the target queue length.",
		}),
	}
	prometheus.MustRegister(m.QueueLength, m.ExposureEntries, m.RebuildsTotal, m.SkipPenaltyTotal, m.RebuildStalled)
	return m
}

func (mw prometheusMiddleware) handler(next http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		status := strconv.Itoa(ww.Status())
		latencyMS := float64(time.Since(start).Nanoseconds()) * 1e-6
		mw.reqs.WithLabelValues(status).Inc()
		mw.latency.WithLabelValues(status).Observe(latencyMS)
	}
	return http.HandlerFunc(fn)
}

func newCounter(counterName, help, serviceName string) *prometheus.CounterVec {
	cv := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        counterName,
			Help:        help,
			ConstLabels: prometheus.Labels{"service": serviceName},
		},
		[]string{"code"},
	)
	prometheus.MustRegister(cv)
	return cv
}

func newHistogram(histogramName, help, serviceName string, buckets []float64) *prometheus.HistogramVec {
	h := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        histogramName,
		Help:        help,
		ConstLabels: prometheus.Labels{"service": serviceName},
		Buckets:     buckets,
	},
		[]string{"code"},
	)
	prometheus.MustRegister(h)
	return h
}
