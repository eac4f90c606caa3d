// Copyright 2023, DASH-Industry Forum. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

// Package pathkey provides a normalized-path newtype so exposure maps,
// recent-usage tails, and script registries never mix a raw filesystem
// path with its normalized lookup key.
package pathkey

import (
	"path/filepath"
	"strconv"
	"strings"
)

// Key is a normalized absolute-path lookup key. The zero value is the
// empty key and never matches a real asset.
type Key string

// Empty reports whether k is the zero key.
func (k Key) Empty() bool {
	return k == ""
}

func (k Key) String() string {
	return string(k)
}

// FromPath builds a Key from a filesystem path by making it absolute,
// cleaning it, and case-folding it on platforms where the filesystem is
// case-insensitive. Relative paths are resolved against the current
// working directory by filepath.Abs.
func FromPath(p string) Key {
	if p == "" {
		return ""
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		abs = filepath.Clean(p)
	}
	return Key(normCase(abs))
}

// ScriptKey builds the key used for bump-script exposure lookups:
// "{scriptFile}#bump{n}" when the script file and bump index within that
// file are known, or the empty key when scriptFile is empty. Scripts not
// backed by a file take their key from SyntheticScriptKey instead.
func ScriptKey(scriptFile string, bumpIndexInFile int) Key {
	if scriptFile == "" {
		return ""
	}
	base := normCase(filepath.Clean(scriptFile))
	return Key(base + "#bump" + strconv.Itoa(bumpIndexInFile))
}

// SyntheticScriptKey builds a key for a script with no backing file,
// keyed on a caller-supplied identifier (e.g. an in-memory test id).
func SyntheticScriptKey(id string) Key {
	return Key("synthetic#" + id)
}

func normCase(p string) string {
	if runtimeIsCaseInsensitiveFS() {
		return strings.ToLower(p)
	}
	return p
}

// runtimeIsCaseInsensitiveFS reports whether the host filesystem is
// conventionally case-insensitive. This mirrors the platform families the
// bump player targets (Windows and macOS HFS/APFS default mode); Linux
// ext4 is case-sensitive.
func runtimeIsCaseInsensitiveFS() bool {
	return caseInsensitiveFS
}
