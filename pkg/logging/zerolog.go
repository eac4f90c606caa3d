// Copyright 2023, DASH-Industry Forum. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package logging

import (
	"io"
	"net/http"
	"os"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Logger = zerolog.Logger

// init sets the time zone to UTC.
func init() {
	zerolog.TimestampFunc = func() time.Time {
		return time.Now().UTC()
	}
}

// initZerologOutput points the global zerolog access logger at a sink
// matching the slog application-log format.
func initZerologOutput(logFormat string) {
	switch logFormat {
	case LogJSON:
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	case LogPretty:
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().Timestamp().Logger()
	case LogDiscard:
		log.Logger = zerolog.New(io.Discard)
	default:
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, NoColor: true, TimeFormat: time.RFC3339}).
			With().Timestamp().Logger()
	}
}

// ZerologMiddleware logs access and converts panic to stack traces.
func ZerologMiddleware(logger *zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			startTime := time.Now()

			defer func() {
				endTime := time.Now()

				// Recover and record stack traces in case of a panic
				if rec := recover(); rec != nil {
					errorLog := SubLoggerWithTopic(SubLoggerWithRequestID(logger, r), "error")
					errorLog.Error().
						Timestamp().
						Interface("recover_info", rec).
						Bytes("debug_stack", debug.Stack()).
						Msg("Runtime error (panic)")
					http.Error(ww, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				}

				accessLog := SubLoggerWithTopic(SubLoggerWithRequestID(logger, r), "access")
				accessLog.Info().
					Timestamp().
					Fields(map[string]interface{}{
						"remote_ip":  r.RemoteAddr,
						"url":        r.URL.Path,
						"proto":      r.Proto,
						"method":     r.Method,
						"user_agent": r.Header.Get("User-Agent"),
						"status":     ww.Status(),
						"latency_ms": float64(endTime.Sub(startTime).Nanoseconds()) / 1000000.0,
						"bytes_in":   r.Header.Get("Content-Length"),
						"bytes_out":  ww.BytesWritten(),
					}).
					Msg("Incoming request")
			}()
			next.ServeHTTP(ww, r)
		}
		return http.HandlerFunc(fn)
	}
}

// GetRequestID returns the request ID.
func GetRequestID(r *http.Request) string {
	key := middleware.RequestIDKey
	requestID, ok := r.Context().Value(key).(string)
	if !ok {
		requestID = "-"
	}
	return requestID
}

// SubLoggerWithRequestID creates a new sub-logger with request_id field.
func SubLoggerWithRequestID(lg *zerolog.Logger, r *http.Request) *zerolog.Logger {
	logger := lg.With().
		Str("request_id", GetRequestID(r)).
		Logger()
	return &logger
}

// SubLoggerWithTopic creates sub-logger with topic field.
func SubLoggerWithTopic(lg *zerolog.Logger, topic string) *zerolog.Logger {
	logger := lg.With().Str("topic", topic).Logger()
	return &logger
}

// LoggerWithTopic creates a top-level logger with topic field.
func LoggerWithTopic(topic string) *zerolog.Logger {
	logger := log.Logger.With().
		Str("topic", topic).
		Logger()
	return &logger
}
