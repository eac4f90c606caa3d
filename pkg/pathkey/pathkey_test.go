package pathkey

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromPathEmpty(t *testing.T) {
	assert.Equal(t, Key(""), FromPath(""))
	assert.True(t, FromPath("").Empty())
}

func TestFromPathAbsolute(t *testing.T) {
	k := FromPath("music/vibe1.mp3")
	assert.False(t, k.Empty())
	assert.True(t, filepath.IsAbs(k.String()) || caseInsensitiveFS, "expected absolute path key")
}

func TestScriptKeyWithFile(t *testing.T) {
	k1 := ScriptKey("/scripts/evening.bump", 0)
	k2 := ScriptKey("/scripts/evening.bump", 1)
	assert.NotEqual(t, k1, k2)
	assert.Contains(t, k1.String(), "#bump0")
	assert.Contains(t, k2.String(), "#bump1")
}

func TestScriptKeyEmptyFile(t *testing.T) {
	assert.Equal(t, Key(""), ScriptKey("", 0))
}

func TestSyntheticScriptKey(t *testing.T) {
	k := SyntheticScriptKey("abc123")
	assert.Equal(t, Key("synthetic#abc123"), k)
}
