// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package downloader fetches dataset archives over HTTP and extracts them.
package downloader

import (
	"archive/zip"
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gomlx/structext/pkg/support/fsutil"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"k8s.io/klog/v2"
)

// barWriter forwards writes to w and advances the progress bar in units of barUnit bytes,
// so large files don't overflow the bar's int counter.
type barWriter struct {
	w                          io.Writer
	bar                        *progressbar.ProgressBar
	barUnit, written, advanced int64
}

func (b *barWriter) Write(p []byte) (n int, err error) {
	n, err = b.w.Write(p)
	b.written += int64(n)
	if units := b.written / b.barUnit; units > b.advanced {
		_ = b.bar.Add64(units - b.advanced)
		b.advanced = units
	}
	return
}

// CopyWithProgressBar is like io.Copy, but displays a progress bar with the amount of data copied.
// If contentLength is unknown (<= 0) a spinner is displayed instead.
func CopyWithProgressBar(dst io.Writer, src io.Reader, contentLength int64) (n int64, err error) {
	bw := &barWriter{w: dst, barUnit: 1}
	if contentLength > 0 {
		for contentLength > bw.barUnit*1024*1024 {
			bw.barUnit *= 1024
		}
	}
	total := int64(-1)
	if contentLength > 0 {
		total = (contentLength + bw.barUnit - 1) / bw.barUnit
	}
	bw.bar = progressbar.NewOptions64(total,
		progressbar.OptionSetDescription(fsutil.ByteCountIEC(max(contentLength, 0))),
		progressbar.OptionUseANSICodes(true),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetTheme(progressbar.ThemeUnicode),
		progressbar.OptionOnCompletion(func() { _, _ = os.Stderr.WriteString("\n") }),
		progressbar.OptionSetWriter(os.Stderr),
	)
	n, err = io.Copy(bw, src)
	_ = bw.bar.Finish()
	return n, err
}

// Download the contents of url to filePath, creating its directory if needed.
// The file is first written to a temporary name, and only renamed to filePath once complete.
func Download(ctx context.Context, url, filePath string, showProgressBar bool) (size int64, err error) {
	filePath, err = fsutil.ReplaceTildeInDir(filePath)
	if err != nil {
		return 0, err
	}
	if err = os.MkdirAll(filepath.Dir(filePath), 0o777); err != nil {
		return 0, errors.Wrapf(err, "failed to create the directory for %q", filePath)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid url %q", url)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, errors.Wrapf(err, "failed downloading %q", url)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return 0, errors.Errorf("failed downloading %q: %s", url, resp.Status)
	}

	tmpPath := filePath + ".partial"
	file, err := os.Create(tmpPath)
	if err != nil {
		return 0, errors.Wrapf(err, "failed creating file %q", tmpPath)
	}
	if showProgressBar {
		size, err = CopyWithProgressBar(file, resp.Body, resp.ContentLength)
	} else {
		size, err = io.Copy(file, resp.Body)
	}
	closeErr := file.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmpPath)
		return 0, errors.Wrapf(err, "downloading %q to %q", url, filePath)
	}
	if err = os.Rename(tmpPath, filePath); err != nil {
		return 0, errors.Wrapf(err, "failed to move %q to %q", tmpPath, filePath)
	}
	return size, nil
}

// DownloadIfMissing downloads url to filePath, if filePath doesn't exist yet.
//
// If checkHash (hex encoded SHA256) is given, the file is verified against it.
func DownloadIfMissing(ctx context.Context, url, filePath, checkHash string) error {
	filePath, err := fsutil.ReplaceTildeInDir(filePath)
	if err != nil {
		return err
	}
	exists, err := fsutil.FileExists(filePath)
	if err != nil {
		return err
	}
	if !exists {
		klog.Infof("Downloading %s ...", url)
		if _, err = Download(ctx, url, filePath, true); err != nil {
			return err
		}
	}
	if checkHash == "" {
		return nil
	}
	return fsutil.ValidateChecksum(filePath, checkHash)
}

// Unzip extracts zipFile under the directory baseDir. Entries that would be extracted
// outside of baseDir are rejected.
func Unzip(zipFile, baseDir string) error {
	r, err := zip.OpenReader(zipFile)
	if err != nil {
		return errors.Wrapf(err, "failed to open zip file %q", zipFile)
	}
	defer func() { _ = r.Close() }()

	baseDir = filepath.Clean(baseDir)
	for _, f := range r.File {
		target := filepath.Join(baseDir, f.Name)
		if target != baseDir && !strings.HasPrefix(target, baseDir+string(os.PathSeparator)) {
			return errors.Errorf("zip file %q has entry %q outside of the target directory", zipFile, f.Name)
		}
		if f.FileInfo().IsDir() {
			if err = os.MkdirAll(target, 0o777); err != nil {
				return errors.Wrapf(err, "failed to create directory %q", target)
			}
			continue
		}
		if err = extractFile(f, target); err != nil {
			return errors.WithMessagef(err, "while unzipping %q", zipFile)
		}
	}
	return nil
}

func extractFile(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o777); err != nil {
		return errors.Wrapf(err, "failed to create directory for %q", target)
	}
	src, err := f.Open()
	if err != nil {
		return errors.Wrapf(err, "failed to read entry %q", f.Name)
	}
	defer func() { _ = src.Close() }()
	dst, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o666)
	if err != nil {
		return errors.Wrapf(err, "failed to create %q", target)
	}
	if _, err = io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return errors.Wrapf(err, "failed to extract %q", target)
	}
	return errors.Wrapf(dst.Close(), "failed to close %q", target)
}

// DownloadAndUnzipIfMissing downloads zipFile from url, if not there yet, and then unzips it under
// unzipBaseDir if targetUnzipDir doesn't exist yet. It's an error if targetUnzipDir is not created
// by the unzipping.
//
// If checkHash is given, the zip file is verified against it.
func DownloadAndUnzipIfMissing(ctx context.Context, url, zipFile, unzipBaseDir, targetUnzipDir, checkHash string) error {
	if fsutil.IsDir(targetUnzipDir) {
		return nil
	}
	if err := DownloadIfMissing(ctx, url, zipFile, checkHash); err != nil {
		return err
	}
	if err := Unzip(zipFile, unzipBaseDir); err != nil {
		return err
	}
	if !fsutil.IsDir(targetUnzipDir) {
		return errors.Errorf("downloaded from %q and unzipped %q, but didn't get directory %q", url, zipFile, targetUnzipDir)
	}
	return nil
}
