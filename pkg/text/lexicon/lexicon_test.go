// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package lexicon

import (
	"strings"
	"testing"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLexicon(t *testing.T) {
	lex := Default()
	assert.Equal(t, 97, lex.Len())
	assert.Len(t, Table95(), 95)

	idx, found := lex.Index('!')
	require.True(t, found)
	assert.Equal(t, 2, idx)
	idx, found = lex.Index(' ')
	require.True(t, found)
	assert.Equal(t, 96, idx)
	_, found = lex.Index('é')
	assert.False(t, found)

	for idx := range lex.Len() {
		token, ok := lex.Token(idx)
		require.True(t, ok)
		if idx >= NumReserved {
			r := []rune(token)[0]
			got, _ := lex.Index(r)
			assert.Equal(t, idx, got)
		}
	}
	token, _ := lex.Token(PadIndex)
	assert.Equal(t, PadToken, token)
	token, _ = lex.Token(StopIndex)
	assert.Equal(t, StopToken, token)
	_, ok := lex.Token(97)
	assert.False(t, ok)
	_, ok = lex.Token(-1)
	assert.False(t, ok)

	assert.Equal(t, "Dat: 12/03", lex.Filter("Dat€: 12/03\t"))

	// Table95 returns a copy.
	table := Table95()
	table[0] = 'x'
	assert.Equal(t, '!', Table95()[0])

	_, err := New([]rune("abca"))
	require.Error(t, err)
}

func TestEncode(t *testing.T) {
	conv, err := NewConverter(nil, 8, CE)
	require.NoError(t, err)

	padded, raw, err := conv.Encode("ab", false)
	require.NoError(t, err)
	a, _ := Default().Index('A')
	b, _ := Default().Index('B')
	assert.Equal(t, []int{a, b, StopIndex, 0, 0, 0, 0, 0}, padded)
	assert.Equal(t, []int{a, b, StopIndex}, raw)

	// Ignored transcripts only have the stop token.
	padded, raw, err = conv.Encode("anything", true)
	require.NoError(t, err)
	assert.Equal(t, []int{StopIndex, 0, 0, 0, 0, 0, 0, 0}, padded)
	assert.Equal(t, []int{StopIndex}, raw)

	// Truncation: raw is kept whole.
	padded, raw, err = conv.Encode("0123456789", false)
	require.NoError(t, err)
	assert.Len(t, padded, 8)
	assert.Len(t, raw, 11)
	assert.Equal(t, raw[:8], padded)

	// Length is always seqLen.
	for _, text := range []string{"", "x", "1234567", "12345678", strings.Repeat("~", 100), string(Table95())} {
		padded, _, err = conv.Encode(text, false)
		require.NoError(t, err)
		assert.Len(t, padded, 8)
	}

	_, _, err = conv.Encode("naïve", false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownChar))

	err = exceptions.TryCatch[error](func() { conv.MustEncode("\n", false) })
	require.Error(t, err)

	_, err = NewConverter(nil, 0, CE)
	require.Error(t, err)
}

func TestDecodeCE(t *testing.T) {
	conv, err := NewConverter(nil, 50, CE)
	require.NoError(t, err)
	for _, text := range []string{"Hello, World!", "date: 12/03/1998", "", "a b c"} {
		padded, _ := conv.MustEncode(text, false)
		assert.Equal(t, strings.ToUpper(text), conv.MustDecode(padded))
	}

	// Without a stop token, pads are decoded as such.
	a, _ := Default().Index('A')
	assert.Equal(t, "A[PAD]", conv.MustDecode([]int{a, PadIndex}))

	_, err = conv.Decode([]int{a, 1000})
	require.Error(t, err)
}

func TestDecodeCTC(t *testing.T) {
	conv, err := NewConverter(nil, 50, CTC)
	require.NoError(t, err)
	a, _ := Default().Index('A')
	b, _ := Default().Index('B')

	// Duplicates are collapsed before blanks are removed: "A A" separated by a blank stays "AA".
	assert.Equal(t, "AB", conv.MustDecode([]int{a, a, a, b, b}))
	assert.Equal(t, "AA", conv.MustDecode([]int{a, PadIndex, a}))
	assert.Equal(t, "AB", conv.MustDecode([]int{PadIndex, a, a, PadIndex, PadIndex, b, StopIndex, a}))
	assert.Equal(t, "", conv.MustDecode(nil))
}

func TestParseDecodeMode(t *testing.T) {
	mode, err := ParseDecodeMode("ctc")
	require.NoError(t, err)
	assert.Equal(t, CTC, mode)
	assert.Equal(t, "CTC", mode.String())
	_, err = ParseDecodeMode("attention")
	require.Error(t, err)
}
