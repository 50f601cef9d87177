// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package funsd parses annotations of the FUNSD (Form Understanding in Noisy Scanned Documents) dataset.
//
// Each scanned form has a JSON annotation file with a list of entities (the lines of text), each
// with its bounding box, transcript, semantic label and the words it is made of. Parse converts them
// to line-level and word-level Record values, with transcripts restricted to the characters of a lexicon.
//
// See https://guillaumejaume.github.io/FUNSD/ for details.
package funsd

import (
	"encoding/json"
	"io"
	"os"

	"github.com/gomlx/structext/pkg/doc/geometry"
	"github.com/gomlx/structext/pkg/text/lexicon"
	"github.com/pkg/errors"
)

// Document is the contents of one FUNSD annotation file.
type Document struct {
	Form []Entity `json:"form"`
}

// Entity is a semantic entity of the form, usually one line of text.
type Entity struct {
	ID      int        `json:"id"`
	Box     [4]float64 `json:"box"`
	Text    string     `json:"text"`
	Label   string     `json:"label"`
	Words   []Word     `json:"words"`
	Linking [][2]int   `json:"linking"`
}

// Word of an Entity.
type Word struct {
	Box  [4]float64 `json:"box"`
	Text string     `json:"text"`
}

// TextClass is the semantic category of a text line.
type TextClass int

const (
	Question TextClass = iota
	Answer
	Header
	Other

	// Unlabeled is the class of every word-level record.
	Unlabeled TextClass = -1
)

var textClassNames = map[string]TextClass{
	"question": Question,
	"answer":   Answer,
	"header":   Header,
	"other":    Other,
}

// ParseTextClass converts a FUNSD label ("question", "answer", "header" or "other") to its TextClass.
func ParseTextClass(label string) (TextClass, error) {
	class, found := textClassNames[label]
	if !found {
		return Unlabeled, errors.Errorf("unknown FUNSD label %q", label)
	}
	return class, nil
}

// String implements fmt.Stringer.
func (c TextClass) String() string {
	for name, class := range textClassNames {
		if class == c {
			return name
		}
	}
	return "unlabeled"
}

// Record is one annotated text region: a line or a word.
type Record struct {
	Poly   geometry.Polygon
	Text   string
	Class  TextClass
	Ignore bool
}

// Annotations of one document, at line and word level.
type Annotations struct {
	Lines, Words []Record
}

// ErrEmptyAnnotation is returned when a document has no lines or no words.
var ErrEmptyAnnotation = errors.New("annotation has no lines or no words")

// Parse reads a FUNSD JSON annotation and converts it to Annotations.
//
// Entities with an empty transcript are skipped along with their words. Transcripts are
// filtered to the characters of lex (lexicon.Default() if nil). Words are always Unlabeled.
//
// It returns ErrEmptyAnnotation if either the lines or the words are empty.
func Parse(r io.Reader, lex *lexicon.Lexicon) (*Annotations, error) {
	if lex == nil {
		lex = lexicon.Default()
	}
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, errors.Wrap(err, "failed to decode FUNSD annotation")
	}
	return FromDocument(&doc, lex)
}

// FromDocument converts an already decoded Document. See Parse.
func FromDocument(doc *Document, lex *lexicon.Lexicon) (*Annotations, error) {
	anns := &Annotations{}
	for _, entity := range doc.Form {
		if entity.Text == "" {
			continue
		}
		class, err := ParseTextClass(entity.Label)
		if err != nil {
			return nil, errors.WithMessagef(err, "entity %d", entity.ID)
		}
		anns.Lines = append(anns.Lines, Record{
			Poly:  geometry.FromBBox(entity.Box),
			Text:  lex.Filter(entity.Text),
			Class: class,
		})
		for _, word := range entity.Words {
			anns.Words = append(anns.Words, Record{
				Poly:  geometry.FromBBox(word.Box),
				Text:  lex.Filter(word.Text),
				Class: Unlabeled,
			})
		}
	}
	if len(anns.Lines) == 0 || len(anns.Words) == 0 {
		return nil, ErrEmptyAnnotation
	}
	return anns, nil
}

// ParseFile parses the FUNSD annotation file at path. See Parse.
func ParseFile(path string, lex *lexicon.Lexicon) (*Annotations, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open annotation file %q", path)
	}
	defer func() { _ = f.Close() }()
	anns, err := Parse(f, lex)
	if err != nil {
		return nil, errors.WithMessagef(err, "annotation file %q", path)
	}
	return anns, nil
}

// Sort lines and words by the given reading order.
func (a *Annotations) Sort(order geometry.ReadingOrder) {
	polyFn := func(r Record) geometry.Polygon { return r.Poly }
	geometry.SortPolygons(a.Lines, polyFn, order)
	geometry.SortPolygons(a.Words, polyFn, order)
}
