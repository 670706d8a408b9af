package haunt

import (
	"math/rand/v2"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func seeded() *rand.Rand {
	return rand.New(rand.NewPCG(7, 11))
}

func TestCorrupt(t *testing.T) {
	rng := seeded()
	content := strings.Repeat("abcdefghij", 10) // 100 runes

	got := Apply(KindCorruption, rng, content)
	assert.Equal(t, 100, utf8.RuneCountInString(got))

	changed := 0
	orig := []rune(content)
	for i, r := range []rune(got) {
		if r != orig[i] {
			changed++
			assert.Contains(t, corruptionGlyphs, r)
		}
	}
	assert.LessOrEqual(t, changed, 5)
	assert.Greater(t, changed, 0)
}

func TestCorrupt_ShortContentUnchanged(t *testing.T) {
	// floor(19 * 0.05) == 0
	content := strings.Repeat("x", 19)
	assert.Equal(t, content, Apply(KindCorruption, seeded(), content))
	assert.Equal(t, "", Apply(KindCorruption, seeded(), ""))
}

func TestReplace(t *testing.T) {
	content := strings.Repeat("aeiostAEIOST bcd ", 50)
	got := Apply(KindReplacement, seeded(), content)

	orig := []rune(content)
	gotRunes := []rune(got)
	assert.Len(t, gotRunes, len(orig))

	changed := 0
	for i, r := range gotRunes {
		if r == orig[i] {
			continue
		}
		changed++
		assert.Equal(t, leetMap[orig[i]], r, "position %d", i)
	}
	// 600 eligible characters at p=0.1
	assert.InDelta(t, 60, changed, 35)
}

func TestInsert(t *testing.T) {
	content := "the quick brown fox"
	got := Apply(KindInsertion, seeded(), content)

	var phrase string
	for _, p := range HauntedPhrases {
		if strings.Contains(got, p) {
			phrase = p
		}
	}
	if assert.NotEmpty(t, phrase) {
		assert.Equal(t, content, strings.Replace(got, phrase, "", 1))
		assert.False(t, strings.HasSuffix(got, phrase), "insertion never appends after the last rune")
	}
}

func TestInsert_Empty(t *testing.T) {
	got := Apply(KindInsertion, seeded(), "")
	assert.Contains(t, HauntedPhrases, got)
}

func TestApply_UnknownKind(t *testing.T) {
	assert.Equal(t, "same", Apply(Kind("exorcism"), seeded(), "same"))
}
