// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"maps"
	"slices"

	"github.com/gomlx/structext/pkg/config"
	"github.com/gomlx/structext/pkg/doc/funsd"
	"github.com/gomlx/structext/pkg/ml/datasets"
	"github.com/gomlx/structext/pkg/ml/train/optimizers"
	"github.com/gomlx/structext/ui/commandline"
	"github.com/janpfeifer/must"
)

func scanDir(cfg *config.Config, onFile func(path string)) (*datasets.Stats, error) {
	return datasets.ScanDir(cfg.Dataset.DataPath, nil, cfg.Dataset.Parallelism, onFile)
}

func sprintStats(stats *datasets.Stats) string {
	table := commandline.NewTable("Statistic", "Value")
	table.Row("Files", commandline.HumanizeCount(stats.Files))
	table.Row("Valid files", commandline.HumanizeCount(stats.Valid))
	table.Row("Empty files", commandline.HumanizeCount(stats.Empty))
	table.Row("Lines", commandline.HumanizeCount(stats.Lines))
	table.Row("Words", commandline.HumanizeCount(stats.Words))
	table.Row("Characters", commandline.HumanizeCount(stats.Chars))
	table.Row("Longest line", fmt.Sprintf("%d characters", stats.MaxLineLen))
	for _, class := range slices.Sorted(maps.Keys(stats.Classes)) {
		table.Row(fmt.Sprintf("Lines %q", class), commandline.HumanizeCount(stats.Classes[class]))
	}
	return table.String()
}

func reportSchedule(cfg *config.Config, every int) {
	schedule := must.M1(optimizers.NewSchedule(cfg.Schedule))
	fmt.Println(titleStyle.Render(fmt.Sprintf("Learning rate schedule %q (%d steps)", cfg.Schedule.Name, len(schedule))))
	fmt.Println(sprintSchedule(schedule, every))
}

func sprintSchedule(schedule optimizers.Schedule, every int) string {
	table := commandline.NewTable("Step", "Learning rate")
	for step := 0; step < len(schedule); step += every {
		table.Row(commandline.HumanizeCount(step), fmt.Sprintf("%.4g", schedule.At(step)))
	}
	if last := len(schedule) - 1; last%every != 0 {
		table.Row(commandline.HumanizeCount(last), fmt.Sprintf("%.4g", schedule.At(last)))
	}
	return table.String()
}

// className returns the name of a class index of an example, as stored in sample.LabelGroup.Classes.
func className(class int64) string {
	return funsd.TextClass(class).String()
}
