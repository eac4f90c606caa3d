// Copyright 2023, DASH-Industry Forum. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package bumpqueue

import (
	"log/slog"
	"math/rand"
	"strings"

	"github.com/sleepyshows/bumpsched/pkg/bumpscript"
	"github.com/sleepyshows/bumpsched/pkg/exposure"
	"github.com/sleepyshows/bumpsched/pkg/pathkey"
	"github.com/sleepyshows/bumpsched/pkg/ringbuffer"
	"github.com/sleepyshows/bumpsched/pkg/timing"
)

// Composer builds a FIFO of CompleteBumps and maintains the persistent
// recent-usage tails that space repeats out across rebuilds. It is not
// safe for concurrent use; callers own their own synchronization (the
// coordinator thread).
type Composer struct {
	cfg      Config
	exposure *exposure.Store
	rng      *rand.Rand

	recentScript *ringbuffer.Recent[string]
	recentMusic  *ringbuffer.Recent[string]
	recentVideo  *ringbuffer.Recent[string]
	recentOutro  *ringbuffer.Recent[string]

	queue []CompleteBump
	stats RebuildStats
}

// NewComposer returns a Composer bound to store. rng may be nil to use
// the process-default source (tests pass a seeded one for
// reproducibility, per the design notes).
func NewComposer(cfg Config, store *exposure.Store, rng *rand.Rand) *Composer {
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	// An unset cap means the fitter's hard ceiling, not "cap at zero".
	if cfg.BumpTargetCapMS <= 0 {
		cfg.BumpTargetCapMS = timing.MaxTargetMS
	}
	return &Composer{
		cfg:          cfg,
		exposure:     store,
		rng:          rng,
		recentScript: ringbuffer.New[string](cfg.RecentSpreadN),
		recentMusic:  ringbuffer.New[string](cfg.RecentSpreadN),
		recentVideo:  ringbuffer.New[string](cfg.RecentSpreadN),
		recentOutro:  ringbuffer.New[string](cfg.RecentSpreadN),
	}
}

// Stats returns the diagnostics from the most recent Rebuild.
func (c *Composer) Stats() RebuildStats { return c.stats }

// Len reports how many CompleteBumps remain queued.
func (c *Composer) Len() int { return len(c.queue) }

// Queue returns a copy of the currently built bump queue, in play order.
func (c *Composer) Queue() []CompleteBump {
	return append([]CompleteBump(nil), c.queue...)
}

// Rebuild (re)builds the bump queue from scratch given the current
// script and music pools and the available outro sounds. Each script is
// used at most once per rebuild (only music/video/outro assets may
// repeat); it is bounded to 6*maxN iterations to avoid
// pathological stalls.
func (c *Composer) Rebuild(scripts []ScriptAsset, music []MusicAsset, outros []pathkey.Key) ([]CompleteBump, RebuildStats) {
	c.stats = RebuildStats{}
	c.queue = nil

	var remainingVideo, remainingAudio []ScriptAsset
	for _, s := range scripts {
		if !baseEligible(s.Analysis, c.cfg.BumpTargetCapMS) {
			c.stats.SkippedBaseIneligible++
			continue
		}
		if s.Script.IsVideoBump() {
			remainingVideo = append(remainingVideo, s)
		} else {
			remainingAudio = append(remainingAudio, s)
		}
	}
	if len(remainingVideo) == 0 && len(remainingAudio) == 0 {
		slog.Warn("bumpqueue: no eligible scripts, returning empty queue")
		return nil, c.stats
	}

	shortFit := make(map[pathkey.Key]bool, len(remainingAudio))
	for _, s := range remainingAudio {
		shortFit[s.Key] = isShortFit(s.Analysis, c.cfg)
	}

	maxN := len(remainingVideo) + len(remainingAudio)
	if c.cfg.QueueSize > 0 && c.cfg.QueueSize < maxN {
		maxN = c.cfg.QueueSize
	}

	localScript := c.snapshot(exposure.KindScript, scriptKeys(remainingVideo, remainingAudio))
	localMusic := c.snapshot(exposure.KindMusic, musicKeys(music))
	localVideo := c.snapshot(exposure.KindVideo, videoKeys(remainingVideo))
	localOutro := c.snapshot(exposure.KindOutro, outros)

	buildMusic := cloneRecent(c.recentMusic, c.cfg.RecentSpreadN)
	buildVideo := cloneRecent(c.recentVideo, c.cfg.RecentSpreadN)
	buildOutro := cloneRecent(c.recentOutro, c.cfg.RecentSpreadN)

	recentScripts := make(map[pathkey.Key]bool, c.recentScript.Len())
	for _, k := range c.recentScript.Items() {
		recentScripts[pathkey.Key(k)] = true
	}

	maxIterations := 6 * maxN
	if maxIterations == 0 {
		maxIterations = 6
	}
	for iter := 0; len(c.queue) < maxN && iter < maxIterations &&
		(len(remainingVideo) > 0 || len(remainingAudio) > 0); iter++ {

		gateActive := len(c.queue) < c.cfg.EarlyShortOnlySlots && anyRemainingShortFit(remainingAudio, shortFit)

		vi, ai, isVideo, ok := pickNext(remainingVideo, remainingAudio, shortFit, gateActive,
			localScript, localVideo, recentScripts, c.cfg.BasePenalty, c.rng)
		if !ok {
			c.stats.Stalled = true
			break
		}

		if isVideo {
			s := remainingVideo[vi]
			remainingVideo = removeAt(remainingVideo, vi)
			bump := c.emitVideo(s, outros, localOutro, buildVideo, buildOutro)
			localVideo[videoKeyFor(s)] += c.cfg.BasePenalty
			c.queue = append(c.queue, bump)
			c.stats.QueueBuilt++
			continue
		}

		s := remainingAudio[ai]
		remainingAudio = removeAt(remainingAudio, ai)
		bump, emitted := c.emitAudio(s, shortFit[s.Key], music, localMusic, buildMusic, outros, localOutro, buildOutro)
		if !emitted {
			c.stats.SkippedAudioNoMusicFit++
			continue
		}
		c.queue = append(c.queue, bump)
		c.stats.QueueBuilt++
	}

	return append([]CompleteBump(nil), c.queue...), c.stats
}

// pickNext selects the minimum-score remaining script. Every non-
// short-fit audio script's score carries basePenalty added on top of
// its base exposure, for the whole rebuild, not just
// while the early-only gate is active — that penalty is what keeps
// long scripts deprioritized after the gate's hard-filter window
// closes. The gate itself is a separate, additional hard restriction:
// while active, non-short-fit audio candidates are excluded outright
// rather than merely penalized. Scripts consumed in recent pops carry
// the same penalty so spacing holds across rebuilds. Video scripts are
// always eligible and carry no non-short-fit penalty. Ties break
// randomly.
func pickNext(remainingVideo, remainingAudio []ScriptAsset, shortFit map[pathkey.Key]bool, gateActive bool,
	localScript, localVideo map[pathkey.Key]float64, recentScripts map[pathkey.Key]bool,
	basePenalty float64, rng *rand.Rand) (videoIdx, audioIdx int, isVideo, ok bool) {

	type pick struct {
		idx     int
		isVideo bool
		score   float64
	}
	var best *pick
	var ties []pick

	consider := func(p pick) {
		switch {
		case best == nil || p.score < best.score:
			b := p
			best = &b
			ties = ties[:0]
			ties = append(ties, p)
		case p.score == best.score:
			ties = append(ties, p)
		}
	}

	for i, s := range remainingVideo {
		score := localScript[s.Key] + localVideo[videoKeyFor(s)]
		if recentScripts[s.Key] {
			score += basePenalty
		}
		consider(pick{idx: i, isVideo: true, score: score})
	}
	for i, s := range remainingAudio {
		if gateActive && !shortFit[s.Key] {
			continue
		}
		score := localScript[s.Key]
		if !shortFit[s.Key] {
			score += basePenalty
		}
		if recentScripts[s.Key] {
			score += basePenalty
		}
		consider(pick{idx: i, isVideo: false, score: score})
	}

	if best == nil {
		return 0, 0, false, false
	}
	chosen := ties[0]
	if len(ties) > 1 {
		chosen = ties[rng.Intn(len(ties))]
	}
	if chosen.isVideo {
		return chosen.idx, 0, true, true
	}
	return 0, chosen.idx, false, true
}

func anyRemainingShortFit(remainingAudio []ScriptAsset, shortFit map[pathkey.Key]bool) bool {
	for _, s := range remainingAudio {
		if shortFit[s.Key] {
			return true
		}
	}
	return false
}

func removeAt(s []ScriptAsset, i int) []ScriptAsset {
	out := make([]ScriptAsset, 0, len(s)-1)
	out = append(out, s[:i]...)
	return append(out, s[i+1:]...)
}

func cloneRecent(src *ringbuffer.Recent[string], size int) *ringbuffer.Recent[string] {
	dst := ringbuffer.New[string](size)
	for _, v := range src.Items() {
		dst.Push(v)
	}
	return dst
}

func (c *Composer) emitVideo(s ScriptAsset, outros []pathkey.Key, localOutro map[pathkey.Key]float64,
	buildVideo, buildOutro *ringbuffer.Recent[string]) CompleteBump {
	cards := append([]bumpscript.Card(nil), s.Script.Cards...)
	bump := CompleteBump{
		Script:         s.Script,
		DurationMS:     timing.TotalDurationMS(cards),
		IsVideo:        true,
		VideoPath:      s.Script.VideoRef,
		VideoInclusive: s.Script.VideoInclusive,
	}
	bump.Script.Cards = cards
	buildVideo.Push(basenameOf(s.Script.VideoRef))

	if wantsOutroAudio(s.Script) {
		if outroKey, basename, ok := c.pickOutro(outros, localOutro, buildOutro); ok {
			bump.OutroAudioPath = outroKey.String()
			localOutro[outroKey] += c.cfg.BasePenalty
			buildOutro.Push(basename)
		}
	}
	return bump
}

func (c *Composer) emitAudio(s ScriptAsset, scriptShortFit bool, music []MusicAsset, localMusic map[pathkey.Key]float64,
	buildMusic *ringbuffer.Recent[string], outros []pathkey.Key, localOutro map[pathkey.Key]float64,
	buildOutro *ringbuffer.Recent[string]) (CompleteBump, bool) {

	pool := music
	var entry MusicAsset
	var fitted map[int]int
	for {
		m, f, ok := c.pickMusic(s, scriptShortFit, pool, localMusic, buildMusic)
		if !ok {
			return CompleteBump{}, false
		}
		if f == nil {
			var err error
			f, err = timing.Fit(s.Analysis, fitTarget(m.DurationMS, c.cfg.BumpTargetCapMS), c.cfg.Fit)
			if err != nil {
				// Eligibility said this track should fit but the fitter
				// disagreed (rounding exhaustion): drop the track and
				// retry with the next candidate.
				pool = filterMusic(pool, func(e MusicAsset) bool { return e.Key != m.Key })
				continue
			}
		}
		entry, fitted = m, f
		break
	}
	cards := timing.Materialize(s.Script.Cards, s.Analysis, fitted)
	target := fitTarget(entry.DurationMS, c.cfg.BumpTargetCapMS)
	bump := CompleteBump{
		Script:     s.Script,
		DurationMS: target,
		AudioPath:  entry.Path,
	}
	bump.Script.Cards = cards
	localMusic[entry.Key] += c.cfg.BasePenalty
	buildMusic.Push(entry.Basename)

	if wantsOutroAudio(s.Script) {
		if outroKey, basename, ok := c.pickOutro(outros, localOutro, buildOutro); ok {
			bump.OutroAudioPath = outroKey.String()
			localOutro[outroKey] += c.cfg.BasePenalty
			buildOutro.Push(basename)
		}
	}
	return bump, true
}

// pickMusic implements the explicit-basename and "any" music selection
// rules, including the spacing fallback and the
// short-fit preference for scripts that can land under 15s.
func (c *Composer) pickMusic(s ScriptAsset, scriptShortFit bool, music []MusicAsset, localMusic map[pathkey.Key]float64,
	buildMusic *ringbuffer.Recent[string]) (MusicAsset, map[int]int, bool) {

	if s.Script.MusicPref != "any" {
		for _, m := range music {
			if !strings.EqualFold(m.Basename, s.Script.MusicPref) {
				continue
			}
			if musicEligible(s.Analysis, m.DurationMS, c.cfg.MusicOverageTolerance, c.cfg.BumpTargetCapMS) {
				return m, nil, true
			}
			// The ratio check rejects short tracks a short script
			// compresses onto fine; honor an explicit short pairing
			// the same way the preference pass would.
			if m.DurationMS <= ShortMusicCeilingMS {
				if f, ok := shortClipFit(s.Analysis, m.DurationMS, c.cfg); ok {
					return m, f, true
				}
			}
			return MusicAsset{}, nil, false
		}
		return MusicAsset{}, nil, false
	}

	notReserved := filterMusic(music, func(m MusicAsset) bool {
		return !isReservedBasename(m.Basename)
	})

	recent := buildMusic.Items()
	excluded := make(map[string]bool, len(recent))
	for _, b := range recent {
		excluded[strings.ToLower(b)] = true
	}
	filtered := filterMusic(notReserved, func(m MusicAsset) bool {
		return !excluded[strings.ToLower(m.Basename)]
	})
	if len(filtered) == 0 {
		// The full recent-spread window starved the pool: fall back to
		// only excluding the immediately preceding pick, so two
		// consecutive bumps never share a basename as long as at least
		// two distinct tracks exist.
		if last, ok := buildMusic.Last(); ok {
			lastLower := strings.ToLower(last)
			filtered = filterMusic(notReserved, func(m MusicAsset) bool {
				return strings.ToLower(m.Basename) != lastLower
			})
		}
	}
	if len(filtered) == 0 {
		filtered = notReserved
	}

	// Short-fit scripts prefer short tracks. The duration-ratio
	// musicEligible check would reject short tracks the fitter
	// compresses onto fine, so preferred tracks are admitted on the
	// cheap per-card-minima bound instead; the winner's real fitter run
	// happens lazily in emitAudio, whose retry loop already drops the
	// rare track that fails it.
	eligible := filtered
	shortPreferred := false
	if scriptShortFit {
		preferred := filterMusic(filtered, func(m MusicAsset) bool {
			return m.DurationMS <= ShortMusicCeilingMS &&
				s.Analysis.MinPossibleMS <= fitTarget(m.DurationMS, c.cfg.BumpTargetCapMS)
		})
		if len(preferred) > 0 {
			eligible = preferred
			shortPreferred = true
		}
	}
	if !shortPreferred {
		eligible = filterMusic(eligible, func(m MusicAsset) bool {
			return musicEligible(s.Analysis, m.DurationMS, c.cfg.MusicOverageTolerance, c.cfg.BumpTargetCapMS)
		})
	}
	if len(eligible) == 0 {
		return MusicAsset{}, nil, false
	}

	best := eligible[0]
	ties := []MusicAsset{best}
	for _, m := range eligible[1:] {
		score := localMusic[m.Key]
		bestScore := localMusic[best.Key]
		switch {
		case score < bestScore:
			best = m
			ties = ties[:0]
			ties = append(ties, m)
		case score == bestScore:
			ties = append(ties, m)
		}
	}
	if len(ties) > 1 {
		best = ties[c.rng.Intn(len(ties))]
	}
	return best, nil, true
}

func (c *Composer) pickOutro(outros []pathkey.Key, localOutro map[pathkey.Key]float64,
	buildOutro *ringbuffer.Recent[string]) (pathkey.Key, string, bool) {
	if len(outros) == 0 {
		return "", "", false
	}
	recent := buildOutro.Items()
	excluded := make(map[string]bool, len(recent))
	for _, b := range recent {
		excluded[b] = true
	}
	candidates := outros
	var spaced []pathkey.Key
	for _, k := range outros {
		if !excluded[basenameOf(k.String())] {
			spaced = append(spaced, k)
		}
	}
	if len(spaced) > 0 {
		candidates = spaced
	} else if last, ok := buildOutro.Last(); ok {
		var notLast []pathkey.Key
		for _, k := range outros {
			if basenameOf(k.String()) != last {
				notLast = append(notLast, k)
			}
		}
		if len(notLast) > 0 {
			candidates = notLast
		}
	}

	best := candidates[0]
	ties := []pathkey.Key{best}
	for _, k := range candidates[1:] {
		switch {
		case localOutro[k] < localOutro[best]:
			best = k
			ties = ties[:0]
			ties = append(ties, k)
		case localOutro[k] == localOutro[best]:
			ties = append(ties, k)
		}
	}
	if len(ties) > 1 {
		best = ties[c.rng.Intn(len(ties))]
	}
	return best, basenameOf(best.String()), true
}

// Pop removes and returns the front of the queue, recording the
// consumed script/music/video/outro into the persistent recent-usage
// tails consulted by the next Rebuild. It returns ok=false on an empty
// queue; callers should Rebuild on demand.
func (c *Composer) Pop() (CompleteBump, bool) {
	if len(c.queue) == 0 {
		return CompleteBump{}, false
	}
	bump := c.queue[0]
	c.queue = c.queue[1:]

	if bump.Script.ScriptKey != "" {
		c.recentScript.Push(bump.Script.ScriptKey)
	}
	if bump.IsVideo {
		c.recentVideo.Push(basenameOf(bump.VideoPath))
	} else {
		c.recentMusic.Push(basenameOf(bump.AudioPath))
	}
	if bump.OutroAudioPath != "" {
		c.recentOutro.Push(basenameOf(bump.OutroAudioPath))
	}
	return bump, true
}

func (c *Composer) snapshot(kind exposure.Kind, keys []pathkey.Key) map[pathkey.Key]float64 {
	out := make(map[pathkey.Key]float64, len(keys))
	if c.exposure == nil {
		return out
	}
	for _, k := range keys {
		out[k] = c.exposure.Get(kind, k)
	}
	return out
}

func scriptKeys(a, b []ScriptAsset) []pathkey.Key {
	out := make([]pathkey.Key, 0, len(a)+len(b))
	for _, s := range a {
		out = append(out, s.Key)
	}
	for _, s := range b {
		out = append(out, s.Key)
	}
	return out
}

func musicKeys(m []MusicAsset) []pathkey.Key {
	out := make([]pathkey.Key, 0, len(m))
	for _, e := range m {
		out = append(out, e.Key)
	}
	return out
}

func videoKeys(scripts []ScriptAsset) []pathkey.Key {
	out := make([]pathkey.Key, 0, len(scripts))
	for _, s := range scripts {
		out = append(out, videoKeyFor(s))
	}
	return out
}

func videoKeyFor(s ScriptAsset) pathkey.Key {
	return pathkey.FromPath(s.Script.VideoRef)
}

func wantsOutroAudio(s bumpscript.Script) bool {
	if s.OutroCardIndex < 0 || s.OutroCardIndex >= len(s.Cards) {
		return false
	}
	return s.Cards[s.OutroCardIndex].OutroAudio
}

func basenameOf(p string) string {
	if i := strings.LastIndexAny(p, `/\`); i >= 0 {
		p = p[i+1:]
	}
	if i := strings.LastIndex(p, "."); i > 0 {
		p = p[:i]
	}
	return p
}

func isReservedBasename(basename string) bool {
	lower := strings.ToLower(basename)
	return strings.HasPrefix(lower, "xmas") || strings.HasPrefix(lower, "special")
}

func filterMusic(in []MusicAsset, keep func(MusicAsset) bool) []MusicAsset {
	var out []MusicAsset
	for _, m := range in {
		if keep(m) {
			out = append(out, m)
		}
	}
	return out
}
