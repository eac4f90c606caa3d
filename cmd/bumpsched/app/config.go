// Copyright 2023, DASH-Industry Forum. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package app

import (
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/providers/structs"

	"github.com/sleepyshows/bumpsched/pkg/logging"
	"github.com/spf13/pflag"
)

const (
	defaultBumpTargetCapMS     = 29_000
	defaultMusicOverageTol     = 0.20
	defaultShortBumpSeconds    = 15.0
	defaultShortBumpOverageTol = 23.0/15.0 - 1
	defaultMinScalableFraction = 0.40
	defaultDurationExponent    = 1.0
	defaultSoftClampK          = 4.0
	defaultRecentSpreadN       = 8
	defaultEarlyShortSlots     = 4
	defaultQueueSize           = 0
	defaultPort                = 8099
	defaultTimeoutS            = 60
)

// ServerConfig bundles the ambient server settings (logging, HTTP) and
// the scheduling tunables into one koanf-loadable struct.
type ServerConfig struct {
	LogFormat string `json:"logformat"`
	LogLevel  string `json:"loglevel"`
	Port      int    `json:"port"`
	TimeoutS  int    `json:"timeouts"`

	// ScriptsDir holds the bump-script source files (*.txt).
	ScriptsDir string `json:"scriptsdir"`
	// MusicDir holds candidate bump music tracks.
	MusicDir string `json:"musicdir"`
	// OutroDir holds outro sound files.
	OutroDir string `json:"outrodir"`
	// PlaylistsDir holds episode playlist JSON documents.
	PlaylistsDir string `json:"playlistsdir"`
	// ExposureStorePath is the JSON file backing the exposure store.
	ExposureStorePath string `json:"exposurestorepath"`
	// ResumeStatePath is the JSON file backing saved resume state.
	ResumeStatePath string `json:"resumestatepath"`

	BumpTargetCapMS           int     `json:"bumptargetcapms"`
	MusicOverageTolerance     float64 `json:"musicoveragetolerance"`
	ShortBumpSeconds          float64 `json:"shortbumpseconds"`
	ShortBumpOverageTolerance float64 `json:"shortbumpoveragetolerance"`
	MinScalableFraction       float64 `json:"minscalablefraction"`
	DurationNormExponent      float64 `json:"durationnormexponent"`
	SoftClampK                float64 `json:"softclampk"`
	RecentSpreadN             int     `json:"recentspreadn"`
	EarlyShortOnlySlots       int     `json:"earlyshortonlyslots"`
	BumpQueueSize             int     `json:"bumpqueuesize"`

	// SleepTimerExposure makes episode play deltas decay over the
	// session instead of weighing every play flatly; the play driver
	// can also flip it at runtime (POST /api/scheduler?sleeptimerexposure=).
	SleepTimerExposure bool `json:"sleeptimerexposure"`
}

var DefaultConfig = ServerConfig{
	LogFormat: "text",
	LogLevel:  "INFO",
	Port:      defaultPort,
	TimeoutS:  defaultTimeoutS,

	ScriptsDir:        "./scripts",
	MusicDir:          "./music",
	OutroDir:          "./outro",
	PlaylistsDir:      "./playlists",
	ExposureStorePath: "./exposure_scores.json",
	ResumeStatePath:   "./resume_state.json",

	BumpTargetCapMS:           defaultBumpTargetCapMS,
	MusicOverageTolerance:     defaultMusicOverageTol,
	ShortBumpSeconds:          defaultShortBumpSeconds,
	ShortBumpOverageTolerance: defaultShortBumpOverageTol,
	MinScalableFraction:       defaultMinScalableFraction,
	DurationNormExponent:      defaultDurationExponent,
	SoftClampK:                defaultSoftClampK,
	RecentSpreadN:             defaultRecentSpreadN,
	EarlyShortOnlySlots:       defaultEarlyShortSlots,
	BumpQueueSize:             defaultQueueSize,

	SleepTimerExposure: false,
}

type Config struct {
	Konf      *koanf.Koanf
	ServerCfg ServerConfig
}

// LoadConfig loads defaults, an optional JSON config file, command-line
// flags, and finally environment variables (BUMPSCHED_ prefix), in that
// order of increasing precedence.
//
// Relative directory/file paths are resolved against cwd.
func LoadConfig(args []string, cwd string) (*ServerConfig, error) {
	k := koanf.New(".")
	defaults := DefaultConfig
	if err := k.Load(structs.Provider(defaults, "json"), nil); err != nil {
		return nil, err
	}

	f := pflag.NewFlagSet("bumpsched", pflag.ContinueOnError)
	f.Usage = func() {
		parts := strings.Split(args[0], "/")
		name := parts[len(parts)-1]
		fmt.Fprintf(os.Stderr, "Run as %s [options]:\n", name)
		f.PrintDefaults()
	}

	cfgFile := f.String("cfg", "", "path to a JSON config file")
	f.Int("port", k.Int("port"), "HTTP port for the introspection server")
	lf := strings.Join(logging.LogFormats, ", ")
	f.String("logformat", k.String("logformat"), fmt.Sprintf("log format [%s]", lf))
	ll := strings.Join(logging.LogLevels, ", ")
	f.String("loglevel", k.String("loglevel"), fmt.Sprintf("log level [%s]", ll))
	f.Int("timeouts", k.Int("timeouts"), "timeout for all requests (seconds)")

	f.String("scriptsdir", k.String("scriptsdir"), "directory of bump-script source files")
	f.String("musicdir", k.String("musicdir"), "directory of candidate bump music tracks")
	f.String("outrodir", k.String("outrodir"), "directory of outro sound files")
	f.String("playlistsdir", k.String("playlistsdir"), "directory of episode playlist JSON documents")
	f.String("exposurestorepath", k.String("exposurestorepath"), "path to the exposure score JSON store")
	f.String("resumestatepath", k.String("resumestatepath"), "path to the saved resume-state JSON file")

	f.Int("bumptargetcapms", k.Int("bumptargetcapms"), "hard cap on a composed bump's duration (ms)")
	f.Float64("musicoveragetolerance", k.Float64("musicoveragetolerance"), "fractional amount a script's estimated duration may exceed a music track's length by")
	f.Float64("shortbumpseconds", k.Float64("shortbumpseconds"), "ceiling, in seconds, for a script to count as short-fit")
	f.Float64("shortbumpoveragetolerance", k.Float64("shortbumpoveragetolerance"), "fractional overage tolerance applied to short-fit scripts")
	f.Float64("minscalablefraction", k.Float64("minscalablefraction"), "minimum fraction a scalable card duration may be compressed to")
	f.Float64("durationnormexponent", k.Float64("durationnormexponent"), "exponent on each card's original duration when weighting its share of the fitter's reduction")
	f.Float64("softclampk", k.Float64("softclampk"), "softness constant for the fitter's clamp curve")
	f.Int("recentspreadn", k.Int("recentspreadn"), "how many recent picks of a kind to keep spaced apart")
	f.Int("earlyshortonlyslots", k.Int("earlyshortonlyslots"), "number of leading audio bump slots restricted to short-fit scripts")
	f.Int("bumpqueuesize", k.Int("bumpqueuesize"), "cap on built queue length (0 = auto-cap to the full bottleneck)")
	f.Bool("sleeptimerexposure", k.Bool("sleeptimerexposure"), "decay episode play deltas over the session instead of weighing plays flatly")

	if err := f.Parse(args[1:]); err != nil {
		return nil, fmt.Errorf("command line parse: %w", err)
	}

	if *cfgFile != "" {
		cf := file.Provider(*cfgFile)
		if err := k.Load(cf, json.Parser()); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := k.Load(posflag.Provider(f, ".", k), nil); err != nil {
		return nil, fmt.Errorf("parsing cli: %v", err)
	}

	if err := k.Load(env.Provider("BUMPSCHED_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "BUMPSCHED_")), "_", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	for _, key := range []string{"scriptsdir", "musicdir", "outrodir", "playlistsdir", "exposurestorepath", "resumestatepath"} {
		v := k.String(key)
		if v != "" && !path.IsAbs(v) {
			v = path.Join(cwd, v)
			if err := k.Load(confmap.Provider(map[string]any{key: v}, "."), nil); err != nil {
				return nil, err
			}
		}
	}

	var cfg ServerConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
