// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package fsutil contains utilities for working with the file system.
package fsutil

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"io/fs"
	"os"
	"os/user"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
)

// FileExists returns whether the file or directory exists, or an error if the file system failed.
func FileExists(filePath string) (bool, error) {
	_, err := os.Stat(filePath)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	}
	return false, errors.Wrapf(err, "failed to stat %q", filePath)
}

// IsDir returns whether path exists and is a directory.
func IsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// ReplaceTildeInDir expands a leading "~" (current user) or "~name" (user "name") to the
// home directory. Other paths are returned unchanged.
func ReplaceTildeInDir(dir string) (string, error) {
	rest, found := strings.CutPrefix(dir, "~")
	if !found {
		return dir, nil
	}
	userName, rest, _ := strings.Cut(rest, "/")
	var home string
	if userName == "" {
		var err error
		home, err = os.UserHomeDir()
		if err != nil {
			return "", errors.Wrapf(err, "failed to find home directory for path %q", dir)
		}
	} else {
		usr, err := user.Lookup(userName)
		if err != nil {
			return "", errors.Wrapf(err, "failed to find home directory of user %q for path %q", userName, dir)
		}
		home = usr.HomeDir
	}
	return filepath.Join(home, rest), nil
}

// GlobSorted returns the files in dir matching the glob pattern, sorted by name.
// Directories are not included.
func GlobSorted(dir, pattern string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, errors.Wrapf(err, "invalid glob pattern %q", pattern)
	}
	files := matches[:0]
	for _, m := range matches {
		if IsDir(m) {
			continue
		}
		files = append(files, m)
	}
	sort.Strings(files)
	return files, nil
}

// ValidateChecksum verifies that the SHA256 of the file at filePath matches the hex encoded want.
func ValidateChecksum(filePath, want string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return errors.Wrapf(err, "failed to open %q to verify checksum", filePath)
	}
	defer func() { _ = f.Close() }()
	hasher := sha256.New()
	if _, err = io.Copy(hasher, f); err != nil {
		return errors.Wrapf(err, "failed to read %q to verify checksum", filePath)
	}
	got := hex.EncodeToString(hasher.Sum(nil))
	if got != want {
		return errors.Errorf("file %q has SHA256 checksum %q, but wanted %q", filePath, got, want)
	}
	return nil
}

// ByteCountIEC converts a byte count to string using the appropriate unit (B, KiB, MiB, GiB, ...).
func ByteCountIEC[T interface{ int | int64 | uint64 }](count T) string {
	if count < 0 {
		return "-" + humanize.IBytes(uint64(-int64(count)))
	}
	return humanize.IBytes(uint64(count))
}
