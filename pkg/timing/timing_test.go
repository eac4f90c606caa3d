package timing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sleepyshows/bumpsched/pkg/bumpscript"
)

func autoCard(base int) bumpscript.Card {
	return bumpscript.Card{
		Kind:           bumpscript.CardText,
		DurationMode:   bumpscript.DurationAuto,
		BaseDurationMS: base,
		DurationMS:     base,
	}
}

func pauseCard(ms int) bumpscript.Card {
	return bumpscript.Card{
		Kind:         bumpscript.CardPause,
		DurationMode: bumpscript.DurationFixed,
		DurationMS:   ms,
	}
}

var defaultParams = FitParams{
	MinScalableFraction:           0.40,
	DurationNormalizationExponent: 1.0,
	SoftClampK:                    4.0,
}

func TestFitNoScalingNeeded(t *testing.T) {
	cards := []bumpscript.Card{autoCard(1500), pauseCard(1200), autoCard(1300)}
	a := Analyze(cards, defaultParams.MinScalableFraction)
	fitted, err := Fit(a, 4000, defaultParams)
	require.NoError(t, err)
	assert.Equal(t, 1500, fitted[0])
	assert.Equal(t, 1300, fitted[2])
	sum := fitted[0] + fitted[2] + a.FixedMS
	assert.Equal(t, 4000, sum)
}

func TestFitScalesDownToTarget(t *testing.T) {
	cards := []bumpscript.Card{autoCard(5000), {
		Kind:         bumpscript.CardPause,
		DurationMode: bumpscript.DurationFixed,
		DurationMS:   1000,
	}}
	a := Analyze(cards, defaultParams.MinScalableFraction)
	fitted, err := Fit(a, 3000, defaultParams)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, fitted[0], 2000) // round(5000*0.40)
	total := fitted[0] + a.FixedMS
	assert.Equal(t, 3000, total)
}

func TestFitInfeasibleBelowMinPossible(t *testing.T) {
	cards := []bumpscript.Card{autoCard(5000), pauseCard(4000)}
	a := Analyze(cards, defaultParams.MinScalableFraction)
	_, err := Fit(a, 5000, defaultParams)
	assert.ErrorIs(t, err, ErrInfeasible)
}

func TestFitClampsTargetAt29Seconds(t *testing.T) {
	cards := []bumpscript.Card{autoCard(40000)}
	a := Analyze(cards, defaultParams.MinScalableFraction)
	fitted, err := Fit(a, 60000, defaultParams)
	require.NoError(t, err)
	assert.Equal(t, 29000, fitted[0]+a.FixedMS)
}

func TestFitMultiCardSumsExactly(t *testing.T) {
	cards := []bumpscript.Card{autoCard(3000), autoCard(2500), autoCard(4200), pauseCard(900)}
	a := Analyze(cards, defaultParams.MinScalableFraction)
	fitted, err := Fit(a, 6000, defaultParams)
	require.NoError(t, err)
	total := a.FixedMS
	for _, sc := range a.ScalableCards {
		got := fitted[sc.CardIndex]
		assert.GreaterOrEqual(t, got, sc.Min)
		assert.LessOrEqual(t, got, sc.Orig)
		total += got
	}
	assert.Equal(t, 6000, total)
}
