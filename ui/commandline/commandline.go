// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package commandline contains convenience UI tools for the command line: settings flags,
// progress bars and tables.
package commandline

import (
	"flag"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/gomlx/structext/pkg/config"
	"github.com/muesli/termenv"
)

// CreateSettingsFlag creates a string flag "-set" with the given default settings.
// Its value is meant to be passed to config.ApplySettings.
//
// Example usage:
//
//	func main() {
//		settings := commandline.CreateSettingsFlag("")
//		flag.Parse()
//		cfg := config.Default()
//		keys, err := config.ApplySettings(cfg, *settings)
//		if err != nil { panic(err) }
//		fmt.Println(commandline.SprintSettings(cfg, keys))
//		...
//	}
func CreateSettingsFlag(defaultSettings string) *string {
	return flag.String("set", defaultSettings,
		`Set configuration values, overriding the configuration file. `+
			`E.g.: "dataset.batch_size=4;schedule.name=polynomial;optimizer.skip_decay=pos_embed,cls_token". `+
			`Use "file:<path>" to read settings from a file.`)
}

var (
	cellStyle        = lipgloss.NewStyle().Padding(0, 1)
	keyStyle         = lipgloss.NewStyle().Align(lipgloss.Right).Padding(0, 1)
	headerStyle      = lipgloss.NewStyle().Padding(0, 1).Bold(true).Reverse(true)
	tableBorderColor = "#705090"
)

// NewTable returns a table with the style used by the command-line tools: the first column
// right-aligned and a bold header.
func NewTable(headers ...string) *lgtable.Table {
	table := lgtable.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color(tableBorderColor))).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == lgtable.HeaderRow:
				return headerStyle
			case col == 0:
				return keyStyle
			}
			return cellStyle
		})
	if len(headers) > 0 {
		table.Headers(headers...)
	}
	return table
}

// SprintSettings returns a table with the values of the configuration keys set, usually
// the keys returned by config.ApplySettings.
func SprintSettings(cfg *config.Config, keys []string) string {
	if len(keys) == 0 {
		return ""
	}
	table := NewTable("Setting", "Value")
	for _, key := range keys {
		value, err := config.Lookup(cfg, key)
		if err != nil {
			value = fmt.Sprintf("<%v>", err)
		}
		table.Row(key, value)
	}
	return table.String()
}

// IsTerminal returns whether stdout supports ANSI escape sequences, in which case progress
// bars are redrawn in place.
func IsTerminal() bool {
	return termenv.NewOutput(os.Stdout).Profile != termenv.Ascii
}
