// Copyright 2023, DASH-Industry Forum. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package bumpqueue

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrefetchResolveFallsBackToOriginal(t *testing.T) {
	b := NewPrefetchBuffers()
	assert.Equal(t, "/media/a.png", b.Resolve("/media/a.png"))
}

func TestPrefetchSwapPromotesNextToActive(t *testing.T) {
	b := NewPrefetchBuffers()
	b.SetNext(map[string]string{"/media/a.png": "/cache/a.png"})

	// Staged paths are not visible until the next bump starts.
	assert.Equal(t, "/media/a.png", b.Resolve("/media/a.png"))

	b.Swap()
	assert.Equal(t, "/cache/a.png", b.Resolve("/media/a.png"))

	// The swap cleared "next"; a second swap empties "active" again.
	b.Swap()
	assert.Equal(t, "/media/a.png", b.Resolve("/media/a.png"))
}
