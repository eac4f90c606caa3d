package bumpscript

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScriptBasicCards(t *testing.T) {
	src := `<bump music=any>
<card>hello there
<pause>
<card>bye`
	scripts, err := ParseScript(src, "bumps/a.txt")
	require.NoError(t, err)
	require.Len(t, scripts, 1)
	s := scripts[0]
	assert.Equal(t, "any", s.MusicPref)
	require.Len(t, s.Cards, 3)
	assert.Equal(t, DurationAuto, s.Cards[0].DurationMode)
	assert.Equal(t, CardPause, s.Cards[1].Kind)
	assert.Equal(t, 1200, s.Cards[1].DurationMS)
}

func TestParseScriptExplicitDurationModes(t *testing.T) {
	src := `<bump music=lullaby.mp3>
<card=2000>abs text
<card=+300>delta text
<card=-150>negative delta`
	scripts, err := ParseScript(src, "")
	require.NoError(t, err)
	require.Len(t, scripts, 1)
	cards := scripts[0].Cards
	require.Len(t, cards, 3)
	assert.Equal(t, DurationAbs, cards[0].DurationMode)
	assert.Equal(t, 2000, cards[0].DurationMS)
	assert.Equal(t, DurationDelta, cards[1].DurationMode)
	assert.Equal(t, 300, cards[1].DeltaMS)
	assert.Equal(t, cards[1].BaseDurationMS+300, cards[1].DurationMS)
	assert.Equal(t, DurationDelta, cards[2].DurationMode)
	assert.Equal(t, -150, cards[2].DeltaMS)
}

func TestParseScriptOutroDefaults(t *testing.T) {
	src := `<bump music=any>
<card>hi
<outro>`
	scripts, err := ParseScript(src, "")
	require.NoError(t, err)
	cards := scripts[0].Cards
	outro := cards[scripts[0].OutroCardIndex]
	assert.True(t, outro.IsOutro)
	assert.Equal(t, defaultOutroMS, outro.DurationMS)
	assert.Contains(t, outro.DisplayText, defaultOutroText)
	assert.False(t, outro.OutroAudio)
}

func TestParseScriptOutroWithTextDurationAndAudio(t *testing.T) {
	src := `<bump music=any>
<card>hi
<outro=goodnight 2s audio>`
	scripts, err := ParseScript(src, "")
	require.NoError(t, err)
	outro := scripts[0].Cards[scripts[0].OutroCardIndex]
	assert.Equal(t, "goodnight", outro.DisplayText)
	assert.Equal(t, 2000, outro.DurationMS)
	assert.True(t, outro.OutroAudio)
}

func TestParseScriptImgLinesAndPercent(t *testing.T) {
	src := `<bump music=any>
<card>before text<img moon.png lines>after text
<card>before2<img star.png 40%>after2`
	scripts, err := ParseScript(src, "")
	require.NoError(t, err)
	cards := scripts[0].Cards
	require.Len(t, cards, 2)
	assert.Equal(t, CardImage, cards[0].Kind)
	assert.Equal(t, ImageLines, cards[0].ImageModeValue)
	assert.Equal(t, "moon.png", cards[0].ImageRef)
	assert.Contains(t, cards[0].TextBefore, "before text")
	assert.Contains(t, cards[0].TextAfter, "after text")

	assert.Equal(t, ImagePercent, cards[1].ImageModeValue)
	assert.Equal(t, 40, cards[1].ImagePercent)
}

func TestParseScriptSoundDefaultsAndOverrides(t *testing.T) {
	src := `<bump music=any>
<card>hi<sound bell.wav>
<card>bye<sound honk.wav interrupt duration>`
	scripts, err := ParseScript(src, "")
	require.NoError(t, err)
	cards := scripts[0].Cards
	require.Len(t, cards, 2)
	require.NotNil(t, cards[0].Sound)
	assert.Equal(t, SoundAdd, cards[0].Sound.Mode)
	assert.Equal(t, SoundTimingCard, cards[0].Sound.Timing)

	require.NotNil(t, cards[1].Sound)
	assert.Equal(t, SoundInterrupt, cards[1].Sound.Mode)
	assert.Equal(t, SoundTimingDuration, cards[1].Sound.Timing)
}

func TestParseScriptWhitespaceTagsMarkExplicitBlank(t *testing.T) {
	src := `<bump music=any>
<card><\n><\n>`
	scripts, err := ParseScript(src, "")
	require.NoError(t, err)
	require.Len(t, scripts[0].Cards, 1)
	assert.True(t, scripts[0].Cards[0].ExplicitBlank)
}

func TestParseScriptDropsWhitespaceOnlyCard(t *testing.T) {
	src := `<bump music=any>
<card>real text</card>
<card>   </card>
<card>more text`
	scripts, err := ParseScript(src, "")
	require.NoError(t, err)
	require.Len(t, scripts[0].Cards, 2)
	assert.NotContains(t, scripts[0].Cards[0].DisplayText, "</card>")
}

func TestParseScriptMultipleBumpsInOneFile(t *testing.T) {
	src := `<bump music=any>
<card>first bump
<bump video=spin.mp4 inclusive>
<card>second bump`
	scripts, err := ParseScript(src, "f.txt")
	require.NoError(t, err)
	require.Len(t, scripts, 2)
	assert.False(t, scripts[0].IsVideoBump())
	assert.True(t, scripts[1].IsVideoBump())
	assert.Equal(t, "spin.mp4", scripts[1].VideoRef)
	assert.True(t, scripts[1].VideoInclusive)
	assert.Equal(t, "f.txt#bump0", scripts[0].ScriptKey)
	assert.Equal(t, "f.txt#bump1", scripts[1].ScriptKey)
}
