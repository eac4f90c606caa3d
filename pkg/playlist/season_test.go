// Copyright 2023, DASH-Industry Forum. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package playlist

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeasonKeysReturnsBothShowAndBareKeys(t *testing.T) {
	keys := seasonKeys("Shows/King of the Hill/Season 2/ep01.mkv")
	assert.Equal(t, []string{"King of the Hill|season:2", "season:2"}, keys)
}

func TestSeasonKeysMatchesCompactForm(t *testing.T) {
	keys := seasonKeys("Shows/Archer/s03/ep01.mkv")
	assert.Contains(t, keys, "season:3")
	assert.Contains(t, keys, "Archer|season:3")
}

func TestSeasonKeysNilWhenNoSeasonToken(t *testing.T) {
	keys := seasonKeys("Shows/Movies/standalone.mkv")
	assert.Nil(t, keys)
}

func TestNaturalLessOrdersEmbeddedNumbersNumerically(t *testing.T) {
	assert.True(t, naturalLess("Episode 2.mkv", "Episode 10.mkv"))
	assert.False(t, naturalLess("Episode 10.mkv", "Episode 2.mkv"))
	assert.True(t, naturalLess("a.mkv", "b.mkv"))
}

func TestIsKOTHPlaylistDetectsPathToken(t *testing.T) {
	items := []Item{{Type: ItemVideo, Path: "King of the Hill/S01/ep (1).mkv"}}
	assert.True(t, isKOTHPlaylist(items))
	other := []Item{{Type: ItemVideo, Path: "Archer/S01/ep (1).mkv"}}
	assert.False(t, isKOTHPlaylist(other))
}

func TestEndsWithPartOne(t *testing.T) {
	assert.True(t, endsWithPartOne("show/ep (1).mkv"))
	assert.False(t, endsWithPartOne("show/ep (2).mkv"))
}
