// Copyright 2023, DASH-Industry Forum. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package resume

import (
	"context"
	"log/slog"
	"time"
)

const (
	stallThreshold  = 2500 * time.Millisecond
	recoveryPoll    = 2 * time.Second
	recoveryTimeout = 10 * time.Minute
)

// StallDetector watches successive player position reports and flags a
// stall: no time_pos advance for stallThreshold while the player is
// neither paused nor idle.
type StallDetector struct {
	lastPos     float64
	lastAdvance time.Time
	armed       bool
}

// NewStallDetector returns a detector with no observations yet.
func NewStallDetector() *StallDetector {
	return &StallDetector{}
}

// Observe records one position report and returns true once a stall is
// detected. It keeps reporting true while the same stall persists;
// callers act once and then Reset.
func (d *StallDetector) Observe(pos float64, paused, idle bool, now time.Time) bool {
	if paused || idle {
		d.lastPos = pos
		d.lastAdvance = now
		d.armed = false
		return false
	}
	if !d.armed || pos != d.lastPos {
		d.lastPos = pos
		d.lastAdvance = now
		d.armed = true
		return false
	}
	return now.Sub(d.lastAdvance) >= stallThreshold
}

// Reset clears the detector's state, used after recovery succeeds or
// playback moves to a new target.
func (d *StallDetector) Reset() {
	*d = StallDetector{}
}

// PollForReappearance polls exists every recoveryPoll until it returns
// true, ctx is cancelled, or recoveryTimeout elapses. It returns true
// only on a successful reappearance. The caller is expected to stop
// playback and persist state with force before calling this, and to
// re-apply resume state after a true return.
func PollForReappearance(ctx context.Context, target string, exists func(string) bool) bool {
	deadline := time.Now().Add(recoveryTimeout)
	ticker := time.NewTicker(recoveryPoll)
	defer ticker.Stop()

	if exists(target) {
		return true
	}
	for {
		select {
		case <-ctx.Done():
			slog.Info("resume: recovery cancelled", "target", target)
			return false
		case now := <-ticker.C:
			if exists(target) {
				slog.Info("resume: target reappeared", "target", target)
				return true
			}
			if now.After(deadline) {
				slog.Warn("resume: recovery timed out", "target", target)
				return false
			}
		}
	}
}
