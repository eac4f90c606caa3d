// Copyright 2023, DASH-Industry Forum. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

// Package bumpscript parses bump-script source text into an ordered list
// of cards with concrete per-card durations, following the tag grammar of
// the bump script file format.
package bumpscript

// DurationMode classifies how a card's duration was specified and
// whether it may be compressed by the music fitter.
type DurationMode int

const (
	// DurationAuto derives the duration from a readability formula over
	// the card's text. Scalable.
	DurationAuto DurationMode = iota
	// DurationAbs is an explicit absolute duration. Fixed.
	DurationAbs
	// DurationDelta is the auto baseline plus a signed fixed offset; the
	// baseline portion is scalable, the offset is fixed.
	DurationDelta
	// DurationFixed never scales (pauses, outro cards).
	DurationFixed
)

func (m DurationMode) String() string {
	switch m {
	case DurationAuto:
		return "auto"
	case DurationAbs:
		return "abs"
	case DurationDelta:
		return "delta"
	case DurationFixed:
		return "fixed"
	default:
		return "unknown"
	}
}

// Scalable reports whether the base portion of a card in this mode can be
// compressed by the music fitter.
func (m DurationMode) Scalable() bool {
	return m == DurationAuto || m == DurationDelta
}

// CardKind discriminates the variant a Card represents. Only the fields
// relevant to Kind are meaningful; this is a tagged union rather than a
// family of types so the fitter can switch on DurationMode without type
// assertions.
type CardKind int

const (
	CardText CardKind = iota
	CardPause
	CardImage
	CardImageChar
)

func (k CardKind) String() string {
	switch k {
	case CardText:
		return "text"
	case CardPause:
		return "pause"
	case CardImage:
		return "image"
	case CardImageChar:
		return "image_char"
	default:
		return "unknown"
	}
}

// ImageMode controls how text is laid out around an inline image.
type ImageMode int

const (
	ImageDefault ImageMode = iota
	ImageLines
	ImageChar
	ImagePercent
)

// SoundMode controls how an embedded sound interacts with other audio.
type SoundMode int

const (
	SoundAdd SoundMode = iota
	SoundInterrupt
	SoundCut
)

// SoundTiming controls how long the embedded sound plays.
type SoundTiming int

const (
	// SoundTimingCard plays until the containing card ends (default).
	SoundTimingCard SoundTiming = iota
	// SoundTimingDuration plays for the sound's own natural duration.
	SoundTimingDuration
	// SoundTimingExplicit plays for a fixed number of milliseconds.
	SoundTimingExplicit
)

// Sound is an embedded <sound> directive attached to a card.
type Sound struct {
	File       string
	Mode       SoundMode
	Timing     SoundTiming
	ExplicitMS int
}

// Card is one timeline element within a bump. Kind and DurationMode
// together determine which fields are meaningful.
type Card struct {
	Kind         CardKind
	DurationMode DurationMode

	// DurationMS is the final, concrete duration before any music-fit
	// scaling: for fixed cards it is authoritative; for scalable cards it
	// equals BaseDurationMS+DeltaMS (already clamped to >= 1).
	DurationMS int

	// BaseDurationMS is the scalable portion before a delta offset, valid
	// when DurationMode.Scalable() is true.
	BaseDurationMS int

	// DeltaMS is the signed fixed offset added to the auto baseline in
	// delta mode; zero otherwise.
	DeltaMS int

	// text card fields
	DisplayText   string
	IsOutro       bool
	OutroAudio    bool
	ExplicitBlank bool

	// image / image_char fields
	TextBefore              string
	TextAfter               string
	BeforeLines             int
	AfterLines              int
	ImageRef                string
	ImageModeValue          ImageMode
	ImagePercent            int
	TemplateWithPlaceholder string

	Sound *Sound
}

// MinPossibleMS returns the per-card floor used by TimingAnalyzer and the
// music fitter: base*minScalableFraction rounded, for scalable cards, or
// the fixed duration for fixed-mode cards.
func (c Card) MinPossibleMS(minScalableFraction float64) int {
	if !c.DurationMode.Scalable() {
		return c.DurationMS
	}
	floor := roundHalfAwayFromZero(float64(c.BaseDurationMS) * minScalableFraction)
	if floor < 1 {
		floor = 1
	}
	return floor
}

func roundHalfAwayFromZero(v float64) int {
	if v >= 0 {
		return int(v + 0.5)
	}
	return -int(-v + 0.5)
}

// Script is a parsed bump: its cards plus header metadata.
type Script struct {
	Cards          []Card
	MusicPref      string // "any" or an explicit basename
	VideoRef       string // empty unless this is a video bump
	VideoInclusive bool
	ScriptKey      string
	// OutroCardIndex is the index of the outro card in Cards, or -1 if
	// the script has none.
	OutroCardIndex int
}

// IsVideoBump reports whether this script targets a video bump rather
// than a music-backed audio bump.
func (s Script) IsVideoBump() bool {
	return s.VideoRef != ""
}
