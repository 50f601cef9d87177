// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// structext_data inspects the data pipeline of a structured text model: it downloads FUNSD,
// reports statistics of the annotations, dumps transformed examples and prints the
// learning rate schedule.
//
// Example:
//
//	structext_data -download ~/work/funsd -stats -dump -max_examples=3 -set="dataset.max_seq_len=64"
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/gomlx/structext/pkg/config"
	"github.com/gomlx/structext/pkg/doc/funsd"
	"github.com/gomlx/structext/pkg/support/fsutil"
	"github.com/gomlx/structext/ui/commandline"
	"github.com/janpfeifer/must"
	"k8s.io/klog/v2"
)

var (
	flagConfig   = flag.String("config", "", "YAML configuration file. If empty, the default configuration is used.")
	flagDownload = flag.String("download", "", "Directory where to download FUNSD. If set, and -data and -images are "+
		"not given, the training split of the downloaded dataset is used.")
	flagSplit = flag.String("split", funsd.TrainingSubdir, "Split of the downloaded dataset to use, "+
		"relative to the -download directory.")
	flagData   = flag.String("data", "", "Directory with the annotation files (*.json). Overrides dataset.data_path.")
	flagImages = flag.String("images", "", "Directory with the images. Overrides dataset.image_path.")

	flagStats       = flag.Bool("stats", false, "Report statistics of the annotation files.")
	flagDump        = flag.Bool("dump", false, "Dump the transformed examples as JSON lines.")
	flagMaxExamples = flag.Int("max_examples", 10, "Maximum number of examples to dump. If <= 0, dump one epoch.")
	flagSchedule    = flag.Int("schedule", 0, "If > 0, print the learning rate schedule at every N steps.")

	titleStyle = lipgloss.NewStyle().Bold(true).Padding(1, 4, 0, 4)
)

func main() {
	klog.InitFlags(nil)
	settings := commandline.CreateSettingsFlag("")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg := loadConfig(*settings)
	if *flagDownload != "" {
		baseDir := must.M1(fsutil.ReplaceTildeInDir(*flagDownload))
		must.M(funsd.Download(ctx, baseDir))
		annotationsDir, imagesDir := funsd.SplitDirs(baseDir, *flagSplit)
		if *flagData == "" {
			cfg.Dataset.DataPath = annotationsDir
		}
		if *flagImages == "" {
			cfg.Dataset.ImagePath = imagesDir
		}
	}
	if *flagData != "" {
		cfg.Dataset.DataPath = must.M1(fsutil.ReplaceTildeInDir(*flagData))
	}
	if *flagImages != "" {
		cfg.Dataset.ImagePath = must.M1(fsutil.ReplaceTildeInDir(*flagImages))
	}

	if !*flagStats && !*flagDump && *flagSchedule <= 0 {
		klog.Warningf("Nothing to do: use -stats, -dump or -schedule. See 'structext_data -help'.")
	}
	if *flagStats {
		reportStats(cfg)
	}
	if *flagDump {
		if err := dump(ctx, cfg, *flagMaxExamples); err != nil {
			klog.Errorf("Failed to dump examples: %+v", err)
			os.Exit(1)
		}
	}
	if *flagSchedule > 0 {
		reportSchedule(cfg, *flagSchedule)
	}
}

// loadConfig reads the configuration file, if given, and applies the settings.
func loadConfig(settings string) *config.Config {
	cfg := config.Default()
	if *flagConfig != "" {
		cfg = must.M1(config.Load(must.M1(fsutil.ReplaceTildeInDir(*flagConfig))))
	}
	keys, err := config.ApplySettings(cfg, settings)
	if err != nil {
		klog.Errorf("Invalid -set: %v", err)
		os.Exit(1)
	}
	if len(keys) > 0 {
		fmt.Println(titleStyle.Render("Settings"))
		fmt.Println(commandline.SprintSettings(cfg, keys))
	}
	return cfg
}

func reportStats(cfg *config.Config) {
	numFiles := len(must.M1(filepath.Glob(filepath.Join(cfg.Dataset.DataPath, "*.json"))))
	start := time.Now()
	pBar := commandline.NewProgressBar(nil, int64(numFiles), "Scanning annotations")
	stats, err := scanDir(cfg, func(string) { pBar.Add(1) })
	pBar.Finish()
	if err != nil {
		klog.Errorf("Failed to scan %q: %+v", cfg.Dataset.DataPath, err)
		os.Exit(1)
	}
	fmt.Println(titleStyle.Render(fmt.Sprintf("Annotations in %s (%s)",
		cfg.Dataset.DataPath, commandline.FormatDuration(time.Since(start)))))
	fmt.Println(sprintStats(stats))
}
