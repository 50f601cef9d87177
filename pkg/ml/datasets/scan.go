// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package datasets

import (
	"sync"
	"unicode/utf8"

	"github.com/gomlx/structext/internal/workerspool"
	"github.com/gomlx/structext/pkg/doc/funsd"
	"github.com/gomlx/structext/pkg/support/fsutil"
	"github.com/gomlx/structext/pkg/text/lexicon"
	"github.com/pkg/errors"
)

// Stats of a directory of annotation files.
type Stats struct {
	// Files is the number of annotation files, Valid the ones with lines and words, and Empty the others.
	Files, Valid, Empty int

	// Lines and Words are the number of regions in the valid files.
	Lines, Words int

	// Chars is the total number of (filtered) characters in the line transcripts.
	Chars int

	// MaxLineLen is the length, in characters, of the longest line transcript.
	MaxLineLen int

	// Classes counts the lines per class.
	Classes map[funsd.TextClass]int
}

func (s *Stats) merge(other *Stats) {
	s.Files += other.Files
	s.Valid += other.Valid
	s.Empty += other.Empty
	s.Lines += other.Lines
	s.Words += other.Words
	s.Chars += other.Chars
	s.MaxLineLen = max(s.MaxLineLen, other.MaxLineLen)
	for class, count := range other.Classes {
		s.Classes[class] += count
	}
}

// ScanDir parses all annotation files (*.json) in dir, in parallel, and returns their statistics.
//
// parallelism is the number of files parsed concurrently: 0 parses them sequentially, and a negative
// value uses all cores. If onFile is not nil, it is called after each file is parsed, possibly
// concurrently.
func ScanDir(dir string, lex *lexicon.Lexicon, parallelism int, onFile func(path string)) (*Stats, error) {
	if lex == nil {
		lex = lexicon.Default()
	}
	files, err := fsutil.GlobSorted(dir, "*.json")
	if err != nil {
		return nil, err
	}
	pool := workerspool.New().SetMaxParallelism(parallelism)
	paths := make(chan string)
	go func() {
		defer close(paths)
		for _, path := range files {
			paths <- path
		}
	}()

	total := &Stats{Classes: make(map[funsd.TextClass]int)}
	var mu sync.Mutex
	var firstErr error
	pool.Saturate(func() {
		local := &Stats{Classes: make(map[funsd.TextClass]int)}
		for path := range paths {
			err := scanFile(path, lex, local)
			if onFile != nil {
				onFile(path)
			}
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		}
		mu.Lock()
		total.merge(local)
		mu.Unlock()
	})
	if firstErr != nil {
		return nil, errors.WithMessagef(firstErr, "while scanning %q", dir)
	}
	return total, nil
}

func scanFile(path string, lex *lexicon.Lexicon, stats *Stats) error {
	stats.Files++
	anns, err := funsd.ParseFile(path, lex)
	if err != nil {
		if errors.Is(err, funsd.ErrEmptyAnnotation) {
			stats.Empty++
			return nil
		}
		return err
	}
	stats.Valid++
	stats.Lines += len(anns.Lines)
	stats.Words += len(anns.Words)
	for _, line := range anns.Lines {
		n := utf8.RuneCountInString(line.Text)
		stats.Chars += n
		stats.MaxLineLen = max(stats.MaxLineLen, n)
		stats.Classes[line.Class]++
	}
	return nil
}
