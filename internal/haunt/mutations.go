package haunt

import (
	"math/rand/v2"
	"strings"
)

// Kind names a mutation algorithm.
type Kind string

const (
	KindCorruption  Kind = "corruption"
	KindReplacement Kind = "replacement"
	KindInsertion   Kind = "insertion"
)

// Kinds lists every mutation kind in selection order.
var Kinds = []Kind{KindCorruption, KindReplacement, KindInsertion}

const (
	corruptionRatio = 0.05
	replacementProb = 0.1
)

// corruptionGlyphs is weighted towards the replacement character.
var corruptionGlyphs = []rune{'�', '�', '�', '�', '░', '▒', '▓', '█'}

var leetMap = map[rune]rune{
	'a': '4', 'e': '3', 'i': '1', 'o': '0', 's': '5', 't': '7',
	'A': '4', 'E': '3', 'I': '1', 'O': '0', 'S': '5', 'T': '7',
}

// HauntedPhrases are the strings an insertion mutation can splice in.
var HauntedPhrases = []string{
	"\n[CORRUPTED BY GHOST]\n",
	"\n...they are watching...\n",
	"\n👻\n",
	"\n[FILE HAUNTED]\n",
	"\n...the shadows grow...\n",
}

// Apply runs the mutation of the given kind over content.
func Apply(kind Kind, rng *rand.Rand, content string) string {
	switch kind {
	case KindCorruption:
		return corrupt(rng, content)
	case KindReplacement:
		return replace(rng, content)
	case KindInsertion:
		return insert(rng, content)
	default:
		return content
	}
}

// corrupt overwrites floor(5%) of rune positions, each picked independently,
// with a glyph.
func corrupt(rng *rand.Rand, content string) string {
	runes := []rune(content)
	count := int(float64(len(runes)) * corruptionRatio)
	for i := 0; i < count; i++ {
		pos := rng.IntN(len(runes))
		runes[pos] = corruptionGlyphs[rng.IntN(len(corruptionGlyphs))]
	}
	return string(runes)
}

// replace swaps each leet-able character with probability 0.1.
func replace(rng *rand.Rand, content string) string {
	var b strings.Builder
	b.Grow(len(content))
	for _, r := range content {
		if sub, ok := leetMap[r]; ok && rng.Float64() < replacementProb {
			b.WriteRune(sub)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// insert splices one haunted phrase at a random rune offset before the last rune.
func insert(rng *rand.Rand, content string) string {
	phrase := HauntedPhrases[rng.IntN(len(HauntedPhrases))]
	runes := []rune(content)
	if len(runes) == 0 {
		return phrase
	}
	pos := rng.IntN(len(runes))
	return string(runes[:pos]) + phrase + string(runes[pos:])
}
