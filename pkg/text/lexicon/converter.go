// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package lexicon

import (
	"fmt"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
)

// DecodeMode selects how a predicted sequence of indices is converted back to text.
type DecodeMode int

const (
	// CE (cross-entropy) sequences are mapped index by index.
	CE DecodeMode = iota

	// CTC sequences have consecutive repeated indices collapsed and blanks (PadIndex) removed before mapping.
	CTC
)

// String implements fmt.Stringer.
func (m DecodeMode) String() string {
	switch m {
	case CE:
		return "CE"
	case CTC:
		return "CTC"
	default:
		return fmt.Sprintf("DecodeMode(%d)", int(m))
	}
}

// ParseDecodeMode converts "CE" or "CTC" (case-insensitive) to a DecodeMode.
func ParseDecodeMode(s string) (DecodeMode, error) {
	switch strings.ToUpper(s) {
	case "CE":
		return CE, nil
	case "CTC":
		return CTC, nil
	}
	return CE, errors.Errorf("unknown decode mode %q, valid values are \"CE\" and \"CTC\"", s)
}

// Converter encodes transcripts to fixed length sequences of indices, and decodes them back.
type Converter struct {
	lex    *Lexicon
	seqLen int
	mode   DecodeMode
}

// NewConverter creates a Converter for sequences of length seqLen. If lex is nil, Default() is used.
func NewConverter(lex *Lexicon, seqLen int, mode DecodeMode) (*Converter, error) {
	if lex == nil {
		lex = Default()
	}
	if seqLen <= 0 {
		return nil, errors.Errorf("sequence length must be > 0, got %d", seqLen)
	}
	if mode != CE && mode != CTC {
		return nil, errors.Errorf("invalid decode mode %s", mode)
	}
	return &Converter{lex: lex, seqLen: seqLen, mode: mode}, nil
}

// Lexicon used by the converter.
func (c *Converter) Lexicon() *Lexicon { return c.lex }

// SeqLen is the length of the padded sequences returned by Encode.
func (c *Converter) SeqLen() int { return c.seqLen }

// Mode returns the DecodeMode.
func (c *Converter) Mode() DecodeMode { return c.mode }

// Encode converts the upper-cased text followed by StopIndex to indices.
// If ignore is true the text is treated as empty, and only StopIndex is encoded.
//
// It returns padded, with exactly SeqLen() indices (truncated or right padded with PadIndex),
// and raw, with all the indices of the text plus StopIndex.
//
// A character not in the lexicon returns an error wrapping ErrUnknownChar.
func (c *Converter) Encode(text string, ignore bool) (padded, raw []int, err error) {
	if ignore {
		text = ""
	}
	text = strings.ToUpper(text)
	raw = make([]int, 0, len(text)+1)
	for pos, r := range text {
		idx, found := c.lex.Index(r)
		if !found {
			return nil, nil, errors.Wrapf(ErrUnknownChar, "character %q at byte %d of %q", r, pos, text)
		}
		raw = append(raw, idx)
	}
	raw = append(raw, StopIndex)

	padded = make([]int, c.seqLen) // Zero value is PadIndex.
	copy(padded, raw)
	return padded, raw, nil
}

// MustEncode is like Encode, but panics on error.
func (c *Converter) MustEncode(text string, ignore bool) (padded, raw []int) {
	padded, raw, err := c.Encode(text, ignore)
	if err != nil {
		exceptions.Panicf("MustEncode failed: %+v", err)
	}
	return padded, raw
}

// Decode converts indices back to text, cut at the first StopToken.
// In CTC mode, consecutive repeated indices are collapsed and PadIndex values are dropped first.
//
// An index out of the lexicon range returns an error.
func (c *Converter) Decode(indices []int) (string, error) {
	if c.mode == CTC {
		collapsed := make([]int, 0, len(indices))
		for i, idx := range indices {
			if idx != PadIndex && (i == 0 || idx != indices[i-1]) {
				collapsed = append(collapsed, idx)
			}
		}
		indices = collapsed
	}
	var sb strings.Builder
	for i, idx := range indices {
		token, found := c.lex.Token(idx)
		if !found {
			return "", errors.Errorf("index %d at position %d is out of the lexicon range [0, %d)", idx, i, c.lex.Len())
		}
		sb.WriteString(token)
	}
	text := sb.String()
	if pos := strings.Index(text, StopToken); pos != -1 {
		text = text[:pos]
	}
	return text, nil
}

// MustDecode is like Decode, but panics on error.
func (c *Converter) MustDecode(indices []int) string {
	text, err := c.Decode(indices)
	if err != nil {
		exceptions.Panicf("MustDecode failed: %+v", err)
	}
	return text
}
