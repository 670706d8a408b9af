package rewriter

import (
	"math/rand/v2"
	"strings"
	"unicode"
)

// Pass names one text transformation.
type Pass string

const (
	PassLetterSubstitution Pass = "letter_substitution"
	PassWordReversal       Pass = "word_reversal"
	PassSpectralSymbols    Pass = "spectral_symbols"
	PassGlitchText         Pass = "glitch_text"
	PassEchoEffect         Pass = "echo_effect"
)

var letterSubstitutions = map[rune]rune{
	'o': '0', 'O': '0',
	'i': '1', 'I': '1',
	'e': '3', 'E': '3',
}

var spectralSymbols = []rune{'░', '▒', '▓', '█'}

var characterCorruptions = map[rune][]rune{
	'a': {'@', 'á', 'à'},
	'e': {'€', 'é', 'è'},
	's': {'$', 'ś'},
	'l': {'|', '1'},
	't': {'†', '+'},
	'n': {'ñ', 'ń'},
	'u': {'ü', 'ú'},
	'c': {'ç', '¢'},
}

// selectPasses picks the passes for an intensity band, in application order.
func selectPasses(rng *rand.Rand, intensity float64) []Pass {
	switch {
	case intensity < 0.3:
		if rng.Float64() < 0.5 {
			return []Pass{PassLetterSubstitution}
		}
		return []Pass{PassSpectralSymbols}
	case intensity < 0.7:
		if rng.Float64() < 0.5 {
			return []Pass{PassLetterSubstitution, PassSpectralSymbols}
		}
		return []Pass{PassLetterSubstitution, PassWordReversal}
	default:
		passes := []Pass{PassLetterSubstitution, PassSpectralSymbols}
		if rng.Float64() < 0.5 {
			passes = append(passes, PassGlitchText)
		}
		if rng.Float64() < 0.3 {
			passes = append(passes, PassEchoEffect)
		}
		return passes
	}
}

func applyPass(rng *rand.Rand, p Pass, message string, intensity float64) string {
	switch p {
	case PassLetterSubstitution:
		return letterSubstitution(rng, message, intensity)
	case PassWordReversal:
		return wordReversal(rng, message, intensity)
	case PassSpectralSymbols:
		return spectralSymbolInsertion(rng, message, intensity)
	case PassGlitchText:
		return glitchText(rng, message, intensity)
	case PassEchoEffect:
		return echoEffect(message)
	default:
		return message
	}
}

// letterSubstitution maps o/i/e (either case) to 0/1/3, each with
// probability intensity*0.6.
func letterSubstitution(rng *rand.Rand, message string, intensity float64) string {
	threshold := intensity * 0.6
	var b strings.Builder
	b.Grow(len(message))
	for _, r := range message {
		if sub, ok := letterSubstitutions[r]; ok && rng.Float64() < threshold {
			b.WriteRune(sub)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// wordReversal reverses each non-whitespace token with probability
// intensity*0.3. Whitespace runs are kept as they are.
func wordReversal(rng *rand.Rand, message string, intensity float64) string {
	threshold := intensity * 0.3
	var b strings.Builder
	b.Grow(len(message))
	for _, tok := range splitKeepSpace(message) {
		if !isSpaceToken(tok) && rng.Float64() < threshold {
			b.WriteString(reverse(tok))
			continue
		}
		b.WriteString(tok)
	}
	return b.String()
}

// spectralSymbolInsertion follows each non-space rune with a shade glyph
// with probability intensity*0.15.
func spectralSymbolInsertion(rng *rand.Rand, message string, intensity float64) string {
	threshold := intensity * 0.15
	var b strings.Builder
	b.Grow(len(message) * 2)
	for _, r := range message {
		b.WriteRune(r)
		if !unicode.IsSpace(r) && rng.Float64() < threshold {
			b.WriteRune(spectralSymbols[rng.IntN(len(spectralSymbols))])
		}
	}
	return b.String()
}

// glitchText corrupts non-space runes with probability intensity*0.1, then
// duplicates them with probability intensity*0.2.
func glitchText(rng *rand.Rand, message string, intensity float64) string {
	corruptThreshold := intensity * 0.1
	duplicateThreshold := intensity * 0.2
	var b strings.Builder
	b.Grow(len(message) * 2)
	for _, r := range message {
		if unicode.IsSpace(r) {
			b.WriteRune(r)
			continue
		}
		current := r
		if rng.Float64() < corruptThreshold {
			if options, ok := characterCorruptions[unicode.ToLower(r)]; ok {
				current = options[rng.IntN(len(options))]
			}
		}
		b.WriteRune(current)
		if rng.Float64() < duplicateThreshold {
			b.WriteRune(current)
		}
	}
	return b.String()
}

// echoEffect appends "... <last word>...".
func echoEffect(message string) string {
	words := strings.Fields(message)
	if len(words) == 0 {
		return message
	}
	return message + "... " + words[len(words)-1] + "..."
}

// splitKeepSpace splits s into alternating word and whitespace tokens.
func splitKeepSpace(s string) []string {
	var tokens []string
	start := 0
	inSpace := false
	for i, r := range s {
		space := unicode.IsSpace(r)
		if i > start && space != inSpace {
			tokens = append(tokens, s[start:i])
			start = i
		}
		inSpace = space
	}
	if start < len(s) {
		tokens = append(tokens, s[start:])
	}
	return tokens
}

func isSpaceToken(tok string) bool {
	return strings.TrimSpace(tok) == ""
}

func reverse(s string) string {
	runes := []rune(s)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes)
}
