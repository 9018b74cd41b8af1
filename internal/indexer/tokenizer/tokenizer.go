// Package tokenizer turns raw document words into index terms. Words are
// split on whitespace and case-folded for ASCII letters only; punctuation is
// kept and no locale-aware folding, stemming or stop-word removal happens.
package tokenizer

import (
	"strings"
	"unicode"
)

// Token represents a single normalised term and its 1-based ordinal
// position within its document.
type Token struct {
	Term     string
	Position int
}

// Normalize lower-cases the ASCII letters A-Z and leaves every other byte
// untouched.
func Normalize(word string) string {
	for i := 0; i < len(word); i++ {
		if c := word[i]; c >= 'A' && c <= 'Z' {
			return lowerFrom(word, i)
		}
	}
	return word
}

func lowerFrom(word string, start int) string {
	var b strings.Builder
	b.Grow(len(word))
	b.WriteString(word[:start])
	for i := start; i < len(word); i++ {
		c := word[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		b.WriteByte(c)
	}
	return b.String()
}

// Valid reports whether word can become a term. Empty words and words made
// only of control characters are rejected.
func Valid(word string) bool {
	for _, r := range word {
		if !unicode.IsControl(r) {
			return true
		}
	}
	return false
}

// Fields splits text into words on runs of whitespace.
func Fields(text string) []string {
	return strings.Fields(text)
}

// Tokenize normalizes words in order and assigns each kept word the next
// ordinal, starting at 1. Invalid words are dropped without consuming an
// ordinal.
func Tokenize(words []string) []Token {
	tokens := make([]Token, 0, len(words))
	pos := 0
	for _, word := range words {
		if !Valid(word) {
			continue
		}
		pos++
		tokens = append(tokens, Token{
			Term:     Normalize(word),
			Position: pos,
		})
	}
	return tokens
}
