// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package funsd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gomlx/structext/pkg/doc/geometry"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleAnnotation = `{
  "form": [
    {
      "id": 0, "box": [10, 50, 110, 70], "text": "Date:", "label": "question",
      "words": [{"box": [10, 50, 60, 70], "text": "Date:"}],
      "linking": [[0, 1]]
    },
    {
      "id": 1, "box": [120, 50, 220, 70], "text": "12/03 ✓", "label": "answer",
      "words": [{"box": [120, 50, 170, 70], "text": "12/03"}, {"box": [175, 50, 220, 70], "text": "✓"}],
      "linking": [[0, 1]]
    },
    {
      "id": 2, "box": [10, 10, 300, 30], "text": "", "label": "header",
      "words": [{"box": [10, 10, 300, 30], "text": "ignored"}]
    },
    {
      "id": 3, "box": [10, 5, 300, 25], "text": "FORM", "label": "header",
      "words": [{"box": [10, 5, 300, 25], "text": "FORM"}]
    }
  ]
}`

func TestParse(t *testing.T) {
	anns, err := Parse(strings.NewReader(sampleAnnotation), nil)
	require.NoError(t, err)
	require.Len(t, anns.Lines, 3)
	require.Len(t, anns.Words, 4)

	assert.Equal(t, Record{Poly: geometry.Polygon{10, 50, 110, 50, 110, 70, 10, 70}, Text: "Date:", Class: Question}, anns.Lines[0])
	assert.Equal(t, "12/03 ", anns.Lines[1].Text, "characters outside the lexicon are filtered")
	assert.Equal(t, Answer, anns.Lines[1].Class)
	assert.Equal(t, "", anns.Words[2].Text)
	for _, w := range anns.Words {
		assert.Equal(t, Unlabeled, w.Class)
		assert.False(t, w.Ignore)
	}

	anns.Sort(geometry.TopToBottom)
	assert.Equal(t, "FORM", anns.Lines[0].Text)
	assert.Equal(t, "Date:", anns.Lines[1].Text)
	assert.Equal(t, "FORM", anns.Words[0].Text)

	anns.Sort(geometry.LeftToRight)
	assert.Equal(t, "Date:", anns.Lines[0].Text)
	assert.Equal(t, "12/03 ", anns.Lines[2].Text)
}

func TestParseEmpty(t *testing.T) {
	// All transcripts empty.
	_, err := Parse(strings.NewReader(`{"form": [{"box": [0,0,1,1], "text": "", "label": "other", "words": [{"box": [0,0,1,1], "text": "x"}]}]}`), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmptyAnnotation))

	// Lines without words.
	_, err = Parse(strings.NewReader(`{"form": [{"box": [0,0,1,1], "text": "x", "label": "other", "words": []}]}`), nil)
	assert.True(t, errors.Is(err, ErrEmptyAnnotation))

	_, err = Parse(strings.NewReader(`{"form": []}`), nil)
	assert.True(t, errors.Is(err, ErrEmptyAnnotation))
}

func TestParseErrors(t *testing.T) {
	_, err := Parse(strings.NewReader(`{"form": [{"box": [0,0,1,1], "text": "x", "label": "footer", "words": []}]}`), nil)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrEmptyAnnotation))

	_, err = Parse(strings.NewReader(`{"form": `), nil)
	require.Error(t, err)

	_, err = ParseFile(filepath.Join(t.TempDir(), "missing.json"), nil)
	require.Error(t, err)
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "0001.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleAnnotation), 0o644))
	anns, err := ParseFile(path, nil)
	require.NoError(t, err)
	assert.Len(t, anns.Lines, 3)

	require.NoError(t, os.WriteFile(path, []byte(`{"form": []}`), 0o644))
	_, err = ParseFile(path, nil)
	assert.True(t, errors.Is(err, ErrEmptyAnnotation))
}

func TestTextClass(t *testing.T) {
	for name, want := range map[string]TextClass{"question": 0, "answer": 1, "header": 2, "other": 3} {
		got, err := ParseTextClass(name)
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.Equal(t, name, got.String())
	}
	assert.Equal(t, "unlabeled", Unlabeled.String())
}

func TestSplitDirs(t *testing.T) {
	ann, img := SplitDirs("/data/funsd", TestingSubdir)
	assert.Equal(t, "/data/funsd/dataset/testing_data/annotations", ann)
	assert.Equal(t, "/data/funsd/dataset/testing_data/images", img)
}
