// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package lexicon maps transcripts to sequences of token indices and back.
//
// A Lexicon is an ordered list of characters, preceded by two reserved tokens:
// PadToken (index 0) and StopToken (index 1). The Default lexicon holds the
// 95 printable ASCII characters of Table95.
package lexicon

import (
	"strings"

	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
)

const (
	// PadToken fills encoded sequences up to their fixed length. In CTC decoding it is the blank.
	PadToken = "[PAD]"

	// StopToken marks the end of a transcript.
	StopToken = "[STOP]"

	// PadIndex is the index of PadToken in every Lexicon.
	PadIndex = 0

	// StopIndex is the index of StopToken in every Lexicon.
	StopIndex = 1

	// NumReserved is the number of reserved tokens prepended to the characters.
	NumReserved = 2
)

// table95 is the immutable list of the 95 printable ASCII characters, in lexicon order.
const table95 = "!\"#$%&'()*+,-./0123456789:;<=>?@ABCDEFGHIJKLMNOPQRSTUVWXYZ[\\]^_`abcdefghijklmnopqrstuvwxyz{|}~ "

// Table95 returns a copy of the 95 printable characters of the default lexicon, in order.
func Table95() []rune {
	return []rune(table95)
}

// ErrUnknownChar is returned when encoding a character that is not part of the lexicon.
var ErrUnknownChar = errors.New("character not in lexicon")

// Lexicon is an immutable bidirectional mapping between tokens and indices.
// It is safe for concurrent use.
type Lexicon struct {
	chars     []rune
	charToIdx map[rune]int
}

var defaultLexicon = must.M1(New(Table95()))

// Default returns the lexicon built from Table95. It is built only once.
func Default() *Lexicon {
	return defaultLexicon
}

// New creates a Lexicon with the given characters, which must be unique.
func New(chars []rune) (*Lexicon, error) {
	lex := &Lexicon{
		chars:     make([]rune, len(chars)),
		charToIdx: make(map[rune]int, len(chars)),
	}
	copy(lex.chars, chars)
	for i, r := range lex.chars {
		if prev, found := lex.charToIdx[r]; found {
			return nil, errors.Errorf("lexicon character %q repeated at positions %d and %d", r, prev, i)
		}
		lex.charToIdx[r] = i + NumReserved
	}
	return lex, nil
}

// Len returns the total number of tokens, including the reserved ones.
func (l *Lexicon) Len() int {
	return len(l.chars) + NumReserved
}

// Index returns the index of the character r, and whether it is part of the lexicon.
func (l *Lexicon) Index(r rune) (int, bool) {
	idx, found := l.charToIdx[r]
	return idx, found
}

// Contains returns whether r is one of the lexicon characters.
func (l *Lexicon) Contains(r rune) bool {
	_, found := l.charToIdx[r]
	return found
}

// Token returns the token for the index: PadToken, StopToken or a single character.
// It returns false if idx is out of range.
func (l *Lexicon) Token(idx int) (string, bool) {
	switch {
	case idx == PadIndex:
		return PadToken, true
	case idx == StopIndex:
		return StopToken, true
	case idx < 0 || idx >= l.Len():
		return "", false
	}
	return string(l.chars[idx-NumReserved]), true
}

// Filter returns text with every character not in the lexicon removed.
func (l *Lexicon) Filter(text string) string {
	return strings.Map(func(r rune) rune {
		if l.Contains(r) {
			return r
		}
		return -1
	}, text)
}
