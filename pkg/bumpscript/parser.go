// Copyright 2023, DASH-Industry Forum. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package bumpscript

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	defaultPauseMS   = 1200
	defaultOutroMS   = 800
	defaultOutroText = "[sleepy shows]"
)

// tagRe matches one angle-bracket tag, capturing its name (a run of
// letters, optionally preceded by a backslash for the whitespace tags
// or a slash for closing tags) and the raw remainder of its body. The
// name stops at the first non-letter so that both "<card 2000>" and
// "<card=2000>" spellings parse the same way.
var tagRe = regexp.MustCompile(`(?s)<([\\/]?[a-zA-Z]+)([^<>]*)>`)

// ParseScript splits raw bump script source (one file may hold several
// bumps) into a list of Scripts, one per <bump ...> header encountered.
// scriptFile is used to build ScriptKey values; pass "" for sources with
// no backing file.
func ParseScript(source, scriptFile string) ([]Script, error) {
	var scripts []Script
	var cur *Script
	bumpIndex := 0

	p := newParseState()
	flushCard := func() {
		if cur == nil {
			return
		}
		if card, ok := p.finalize(); ok {
			cur.Cards = append(cur.Cards, card)
			if card.IsOutro {
				cur.OutroCardIndex = len(cur.Cards) - 1
			}
		}
	}
	closeScript := func() {
		flushCard()
		if cur != nil {
			scripts = append(scripts, *cur)
			cur = nil
		}
	}

	pos := 0
	for pos < len(source) {
		loc := tagRe.FindStringSubmatchIndex(source[pos:])
		if loc == nil {
			p.appendText(source[pos:])
			break
		}
		textBefore := source[pos : pos+loc[0]]
		p.appendText(textBefore)

		rawTag := source[pos+loc[0] : pos+loc[1]]
		name := strings.ToLower(source[pos+loc[2] : pos+loc[3]])
		body := strings.TrimSpace(source[pos+loc[4] : pos+loc[5]])
		pos += loc[1]

		switch name {
		case "bump":
			closeScript()
			s := Script{OutroCardIndex: -1}
			parseBumpHeader(&s, body)
			if scriptFile != "" {
				s.ScriptKey = fmt.Sprintf("%s#bump%d", scriptFile, bumpIndex)
			}
			bumpIndex++
			cur = &s
			p = newParseState()
		case "card":
			flushCard()
			p = newParseState()
			if body != "" {
				if err := p.setCardDuration(body); err != nil {
					return nil, fmt.Errorf("bad <card> duration: %w", err)
				}
			}
		case "pause":
			flushCard()
			p = newParseState()
			p.kind = CardPause
			p.durationMode = DurationFixed
			ms := defaultPauseMS
			if pbody := strings.TrimPrefix(body, "="); pbody != "" {
				tok, err := parseDurationToken(pbody)
				if err != nil {
					return nil, fmt.Errorf("bad <pause> duration: %w", err)
				}
				ms = tok.ms
			}
			p.pauseMS = ms
		case "outro":
			flushCard()
			p = newParseState()
			parseOutro(&p, body)
		case "img":
			parseImg(&p, body)
			p.textBuf.WriteString(rawTag)
		case "sound":
			p.sound = parseSound(body)
			p.textBuf.WriteString(rawTag)
		case `\s`:
			p.textBuf.WriteByte(' ')
			p.explicitBlank = true
		case `\t`:
			p.textBuf.WriteByte('\t')
			p.explicitBlank = true
		case `\n`:
			p.textBuf.WriteByte('\n')
			p.explicitBlank = true
		default:
			// Unrecognized or closing tag: best-effort skip.
		}
	}
	closeScript()
	return scripts, nil
}

// parseBumpHeader reads the space-separated key=value / bare-flag fields
// of a <bump ...> tag.
func parseBumpHeader(s *Script, body string) {
	s.MusicPref = "any"
	for _, field := range strings.Fields(body) {
		switch {
		case strings.HasPrefix(field, "music="):
			s.MusicPref = strings.TrimPrefix(field, "music=")
		case strings.HasPrefix(field, "video="):
			s.VideoRef = strings.TrimPrefix(field, "video=")
		case field == "inclusive":
			s.VideoInclusive = true
		}
	}
}

// parseState accumulates the pieces of a card being built between two
// boundary tags (<card>, <pause>, <outro>, <bump>, or EOF).
type parseState struct {
	kind         CardKind
	durationMode DurationMode
	durationSpec durToken // for DurationAbs / DurationDelta cards
	pauseMS      int

	textBuf       strings.Builder
	explicitBlank bool

	isOutro    bool
	outroAudio bool
	outroMS    int

	sawImg          bool
	imgRef          string
	imgMode         ImageMode
	imgPercent      int
	imgCharTemplate string

	sound *Sound
}

func newParseState() parseState {
	return parseState{durationMode: DurationAuto}
}

func (p *parseState) appendText(s string) {
	if s == "" {
		return
	}
	p.textBuf.WriteString(s)
}

// setCardDuration parses a <card SPEC> duration token: bare N is abs
// mode, +N/-N is delta mode relative to the auto baseline.
func (p *parseState) setCardDuration(spec string) error {
	spec = strings.TrimPrefix(strings.TrimSpace(spec), "=")
	tok, err := parseDurationToken(spec)
	if err != nil {
		return err
	}
	p.durationSpec = tok
	if tok.signed {
		p.durationMode = DurationDelta
	} else {
		p.durationMode = DurationAbs
	}
	return nil
}

// finalize builds a Card from the accumulated state, or reports ok=false
// for a whitespace-only card with no explicit blank marker, duration, or
// outro flag — such cards are dropped rather than emitted.
func (p *parseState) finalize() (Card, bool) {
	rawText := p.textBuf.String()
	trimmed := strings.TrimSpace(stripImgSoundTags(rawText))

	hasContent := trimmed != "" || p.sawImg
	if !hasContent && !p.explicitBlank && p.durationMode == DurationAuto && !p.isOutro && p.kind != CardPause {
		return Card{}, false
	}

	card := Card{
		Kind:          p.kind,
		DurationMode:  p.durationMode,
		DisplayText:   rawText,
		IsOutro:       p.isOutro,
		OutroAudio:    p.outroAudio,
		ExplicitBlank: p.explicitBlank,
		Sound:         p.sound,
	}

	switch p.kind {
	case CardPause:
		card.DurationMS = p.pauseMS
		return card, true
	}

	if p.sawImg {
		if p.imgMode == ImageChar && p.imgCharTemplate != "" {
			card.Kind = CardImageChar
			card.TemplateWithPlaceholder = p.imgCharTemplate
		} else {
			card.Kind = CardImage
		}
		card.ImageRef = p.imgRef
		card.ImageModeValue = p.imgMode
		card.ImagePercent = p.imgPercent
		card.TextBefore, card.TextAfter = splitAroundImage(rawText)
		card.BeforeLines = countLines(card.TextBefore)
		card.AfterLines = countLines(card.TextAfter)
	}

	switch p.durationMode {
	case DurationFixed:
		card.DurationMS = p.outroMS
	case DurationAbs:
		card.DurationMS = p.durationSpec.ms
		if card.DurationMS < 1 {
			card.DurationMS = 1
		}
	case DurationDelta:
		base := computeAutoDurationMS(rawText)
		card.BaseDurationMS = base
		card.DeltaMS = p.durationSpec.ms
		card.DurationMS = base + p.durationSpec.ms
		if card.DurationMS < 1 {
			card.DurationMS = 1
		}
	default: // DurationAuto
		base := computeAutoDurationMS(rawText)
		card.BaseDurationMS = base
		card.DurationMS = base
	}

	return card, true
}

// parseOutro fills in an <outro[=TEXT] [DURATION] [audio]> tag. Tokens
// are scanned from the end: an optional trailing "audio" flag, then an
// optional trailing duration token; whatever remains (joined back
// together) is the outro text.
func parseOutro(p *parseState, body string) {
	p.isOutro = true
	p.durationMode = DurationFixed
	ms := defaultOutroMS

	body = strings.TrimPrefix(body, "=")
	fields := strings.Fields(body)

	if n := len(fields); n > 0 && fields[n-1] == "audio" {
		p.outroAudio = true
		fields = fields[:n-1]
	}
	if n := len(fields); n > 0 && isDurationToken(fields[n-1]) {
		if tok, err := parseDurationToken(fields[n-1]); err == nil {
			ms = tok.ms
		}
		fields = fields[:n-1]
	}

	text := strings.Join(fields, " ")
	if text == "" {
		text = defaultOutroText
	}
	p.textBuf.Reset()
	p.textBuf.WriteString(text)
	p.outroMS = ms
}

// parseImg fills in an <img FILENAME [lines|char|N%]> tag. It is called
// while the surrounding card's text is still being accumulated, so only
// the image metadata is recorded here; before/after text split happens
// at finalize time once the full body is known.
func parseImg(p *parseState, body string) {
	fields := strings.Fields(body)
	if len(fields) == 0 {
		return
	}
	p.sawImg = true
	p.imgRef = fields[0]
	p.imgMode = ImageDefault
	if len(fields) < 2 {
		return
	}
	qualifier := fields[1]
	switch {
	case qualifier == "lines":
		p.imgMode = ImageLines
	case qualifier == "char":
		p.imgMode = ImageChar
		if len(fields) > 2 {
			p.imgCharTemplate = strings.Join(fields[2:], " ")
		}
	case strings.HasSuffix(qualifier, "%"):
		p.imgMode = ImagePercent
		if n, err := strconv.Atoi(strings.TrimSuffix(qualifier, "%")); err == nil {
			p.imgPercent = n
		}
	}
}

// parseSound fills in a <sound FILENAME [add|interrupt|cut]
// [card|duration|N[ms|s]]> tag.
func parseSound(body string) *Sound {
	fields := strings.Fields(body)
	if len(fields) == 0 {
		return nil
	}
	s := &Sound{File: fields[0], Mode: SoundAdd, Timing: SoundTimingCard}
	for _, f := range fields[1:] {
		switch f {
		case "add":
			s.Mode = SoundAdd
		case "interrupt":
			s.Mode = SoundInterrupt
		case "cut":
			s.Mode = SoundCut
		case "card":
			s.Timing = SoundTimingCard
		case "duration":
			s.Timing = SoundTimingDuration
		default:
			if tok, err := parseDurationToken(f); err == nil {
				s.Timing = SoundTimingExplicit
				s.ExplicitMS = tok.ms
			}
		}
	}
	return s
}

// splitAroundImage divides a card's accumulated raw text at the first
// <img ...> tag's original position. Since img metadata has already been
// stripped from consideration, we recompute the split against the raw
// text directly.
func splitAroundImage(rawText string) (before, after string) {
	loc := imgTagRe.FindStringIndex(rawText)
	if loc == nil {
		return strings.TrimSpace(rawText), ""
	}
	before = strings.TrimSpace(rawText[:loc[0]])
	after = strings.TrimSpace(stripImgSoundTags(rawText[loc[1]:]))
	return before, after
}

var imgTagRe = regexp.MustCompile(`(?s)<img[^<>]*>`)

func countLines(s string) int {
	if s == "" {
		return 0
	}
	return strings.Count(s, "\n") + 1
}
