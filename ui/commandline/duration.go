// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package commandline

import (
	"time"
)

// FormatDuration pretty prints duration without a long list of decimal points: it keeps
// 3 significant digits for the sub-unit part, e.g. "1.23s", "12.3ms" or "1m2.35s".
func FormatDuration(d time.Duration) string {
	precision := time.Nanosecond
	for unit := time.Microsecond; unit <= time.Second; unit *= 1000 {
		if d >= unit {
			precision = unit / 100
		}
	}
	if d >= time.Minute {
		precision = 10 * time.Millisecond
	}
	return d.Round(precision).String()
}
