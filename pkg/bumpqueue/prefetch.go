// Copyright 2023, DASH-Industry Forum. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package bumpqueue

import "sync"

// PrefetchBuffers holds the double-buffered mapping from an original
// asset path to its staged (decoded/copied) path, so playback can
// substitute staged paths transparently. A bump-asset prefetcher thread
// populates "next" while the coordinator plays from "active"; Swap is
// performed synchronously on the coordinator thread when the next bump
// starts. Both maps are guarded by the same mutex.
type PrefetchBuffers struct {
	mu     sync.Mutex
	active map[string]string
	next   map[string]string
}

// NewPrefetchBuffers returns an empty double buffer.
func NewPrefetchBuffers() *PrefetchBuffers {
	return &PrefetchBuffers{
		active: make(map[string]string),
		next:   make(map[string]string),
	}
}

// SetNext replaces the "next" buffer's contents, called by the
// prefetcher thread as it stages assets for the upcoming bump.
func (b *PrefetchBuffers) SetNext(staged map[string]string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next = staged
}

// Swap promotes "next" to "active" and clears "next", called on the
// coordinator thread when the next bump starts playing.
func (b *PrefetchBuffers) Swap() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.active = b.next
	b.next = make(map[string]string)
}

// Resolve returns the staged path for origPath if one was prefetched
// into the active buffer, else origPath unchanged.
func (b *PrefetchBuffers) Resolve(origPath string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if staged, ok := b.active[origPath]; ok {
		return staged
	}
	return origPath
}
