// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package funsd

import (
	"context"
	"path/filepath"

	"github.com/gomlx/structext/pkg/ml/data/downloader"
	"github.com/gomlx/structext/pkg/support/fsutil"
)

var (
	// DownloadURL of the FUNSD dataset archive.
	DownloadURL = "https://guillaumejaume.github.io/FUNSD/dataset.zip"

	// DownloadChecksum is the SHA256 of the archive. If empty it is not verified.
	DownloadChecksum = ""
)

const (
	// ZipFile is the name of the downloaded archive, saved under the base directory.
	ZipFile = "funsd.zip"

	// TrainingSubdir and TestingSubdir are the splits of the dataset, relative to the base directory.
	TrainingSubdir = "dataset/training_data"
	TestingSubdir  = "dataset/testing_data"

	// AnnotationsSubdir and ImagesSubdir are the contents of each split.
	AnnotationsSubdir = "annotations"
	ImagesSubdir      = "images"
)

// Download the FUNSD dataset into baseDir, if not there yet.
// Use SplitDirs to get the annotations and images directories of each split.
func Download(ctx context.Context, baseDir string) error {
	baseDir, err := fsutil.ReplaceTildeInDir(baseDir)
	if err != nil {
		return err
	}
	return downloader.DownloadAndUnzipIfMissing(ctx, DownloadURL,
		filepath.Join(baseDir, ZipFile), baseDir, filepath.Join(baseDir, TrainingSubdir), DownloadChecksum)
}

// SplitDirs returns the annotations and images directories of a split (TrainingSubdir or TestingSubdir)
// under baseDir.
func SplitDirs(baseDir, split string) (annotationsDir, imagesDir string) {
	return filepath.Join(baseDir, split, AnnotationsSubdir), filepath.Join(baseDir, split, ImagesSubdir)
}
