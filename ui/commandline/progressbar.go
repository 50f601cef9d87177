// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package commandline

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
)

// ProgressbarStyle to use. Defaults to the ASCII version.
// Consider "progressbar.ThemeUnicode" for a prettier version.
// But it requires some of the graphical symbols to be supported.
var ProgressbarStyle = progressbar.ThemeASCII

// ExtraMetricFn is any function that will give extra values to display along the progress bar.
// It is called at each update of the progress bar, and it should return a name and the current value.
type ExtraMetricFn func() (name, value string)

// ProgressBar counts items processed, e.g. files scanned or examples read.
// It is safe for concurrent use.
type ProgressBar struct {
	mu             sync.Mutex
	bar            *progressbar.ProgressBar
	count, total   int64
	extraMetricFns []ExtraMetricFn
}

// NewProgressBar creates a progress bar for total items written to w (os.Stdout if nil).
// If total < 0 the number of items is unknown and a spinner is displayed.
//
// ANSI codes are only used if the output is a terminal.
func NewProgressBar(w io.Writer, total int64, description string, extraMetrics ...ExtraMetricFn) *ProgressBar {
	if w == nil {
		w = os.Stdout
	}
	ansi := w == os.Stdout && IsTerminal()
	return &ProgressBar{
		bar: progressbar.NewOptions64(total,
			progressbar.OptionSetDescription(description),
			progressbar.OptionSetWriter(w),
			progressbar.OptionUseANSICodes(ansi),
			progressbar.OptionEnableColorCodes(ansi),
			progressbar.OptionSetTheme(ProgressbarStyle),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionOnCompletion(func() { _, _ = fmt.Fprintln(w) }),
		),
		total:          total,
		extraMetricFns: extraMetrics,
	}
}

// Add n items processed.
func (pBar *ProgressBar) Add(n int) {
	pBar.mu.Lock()
	defer pBar.mu.Unlock()
	pBar.count += int64(n)
	if len(pBar.extraMetricFns) > 0 {
		pBar.bar.Describe(pBar.extraMetrics())
	}
	_ = pBar.bar.Add(n)
}

func (pBar *ProgressBar) extraMetrics() string {
	var description string
	for _, fn := range pBar.extraMetricFns {
		name, value := fn()
		description += fmt.Sprintf("[%s=%s] ", name, value)
	}
	return description
}

// Count returns the number of items processed so far.
func (pBar *ProgressBar) Count() int64 {
	pBar.mu.Lock()
	defer pBar.mu.Unlock()
	return pBar.count
}

// Finish completes the progress bar.
func (pBar *ProgressBar) Finish() {
	pBar.mu.Lock()
	defer pBar.mu.Unlock()
	_ = pBar.bar.Finish()
}

// HumanizeCount formats counts with thousands separators, e.g.: 1234567 -> "1,234,567".
func HumanizeCount[I interface {
	uint64 | uint32 | uint16 | uint8 | int64 | int32 | int16 | int8 | int
}](n I) string {
	return humanize.Comma(int64(n))
}
