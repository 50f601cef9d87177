// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package datasets

import (
	"io"
	"math/rand/v2"
	"path/filepath"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/gomlx/structext/pkg/config"
	"github.com/gomlx/structext/pkg/doc/funsd"
	"github.com/gomlx/structext/pkg/doc/geometry"
	"github.com/gomlx/structext/pkg/ml/sample"
	"github.com/gomlx/structext/pkg/ml/transforms"
	"github.com/gomlx/structext/pkg/support/fsutil"
	"github.com/gomlx/structext/pkg/support/xslices"
	"github.com/gomlx/structext/pkg/text/lexicon"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/spatial/r2"
	"k8s.io/klog/v2"
)

// ImageExt is the extension of the image paired with each annotation file.
const ImageExt = ".png"

// ReadExample reads the annotation file annPath and its image, with the same name and extension
// ImageExt, from imageDir.
//
// Word transcripts are encoded padded to conv.SeqLen(), and line transcripts are encoded raw.
// Both word and line regions are sorted in the given order.
//
// It returns an error wrapping ErrSkipExample if the image is missing or can't be decoded, or
// if the annotation has no lines or no words. Other errors (malformed annotations) are returned as is.
func ReadExample(annPath, imageDir string, conv *lexicon.Converter, order geometry.ReadingOrder) (*sample.Example, error) {
	name := strings.TrimSuffix(filepath.Base(annPath), filepath.Ext(annPath))
	imagePath := filepath.Join(imageDir, name+ImageExt)
	exists, err := fsutil.FileExists(imagePath)
	if err != nil {
		return nil, err
	}
	if !exists {
		klog.Warningf("Dataset: image %q does not exist, skipping %q", imagePath, annPath)
		return nil, errors.Wrapf(ErrSkipExample, "missing image %q", imagePath)
	}
	img, err := imaging.Open(imagePath)
	if err != nil {
		klog.V(1).Infof("Dataset: failed to read image %q: %v", imagePath, err)
		return nil, errors.Wrapf(ErrSkipExample, "unreadable image %q", imagePath)
	}

	anns, err := funsd.ParseFile(annPath, conv.Lexicon())
	if err != nil {
		if errors.Is(err, funsd.ErrEmptyAnnotation) {
			klog.V(1).Infof("Dataset: %v", err)
			return nil, errors.Wrapf(ErrSkipExample, "empty annotation %q", annPath)
		}
		return nil, err
	}
	anns.Sort(order)

	ex := &sample.Example{
		Name:      name,
		ImagePath: imagePath,
		Image:     img,
		Ratio:     r2.Vec{X: 1, Y: 1},
	}
	for _, word := range anns.Words {
		padded, _, err := conv.Encode(word.Text, word.Ignore)
		if err != nil {
			return nil, errors.WithMessagef(err, "word in %q", annPath)
		}
		ex.Words.Append(word.Poly.Array(), padded, int64(word.Class), word.Ignore)
	}
	for _, line := range anns.Lines {
		_, raw, err := conv.Encode(line.Text, line.Ignore)
		if err != nil {
			return nil, errors.WithMessagef(err, "line in %q", annPath)
		}
		ex.Lines.Append(line.Poly.Array(), raw, int64(line.Class), line.Ignore)
	}
	return ex, nil
}

// ErrNoValidExamples is returned by an infinite dataset when a full epoch yielded no examples.
var ErrNoValidExamples = errors.New("no valid examples in dataset")

// FUNSD is a Dataset over a directory of FUNSD annotation files and the directory with their images.
//
// It is safe for concurrent use, and can be wrapped with Parallel. Each example gets its own random
// number generator for the transformations, seeded from the dataset seed, so augmentation doesn't
// depend on the order examples are processed.
type FUNSD struct {
	name       string
	cfg        config.Dataset
	files      []string
	conv       *lexicon.Converter
	order      geometry.ReadingOrder
	transforms transforms.Transform

	mu                sync.Mutex
	rng               *rand.Rand
	permutation       []int
	next              int
	pending, numValid int
	numSkipped        int
}

// NewFUNSD creates the dataset for the annotation files (*.json) in cfg.DataPath, with images in cfg.ImagePath.
// tr is applied to each example, and can be nil.
func NewFUNSD(cfg config.Dataset, tr transforms.Transform) (*FUNSD, error) {
	if !fsutil.IsDir(cfg.DataPath) {
		return nil, errors.Errorf("FUNSD data_path %q is not a directory", cfg.DataPath)
	}
	if !fsutil.IsDir(cfg.ImagePath) {
		return nil, errors.Errorf("FUNSD image_path %q is not a directory", cfg.ImagePath)
	}
	files, err := fsutil.GlobSorted(cfg.DataPath, "*.json")
	if err != nil {
		return nil, err
	}
	mode, err := lexicon.ParseDecodeMode(cfg.RecgLoss)
	if err != nil {
		return nil, err
	}
	conv, err := lexicon.NewConverter(lexicon.Default(), cfg.MaxSeqLen, mode)
	if err != nil {
		return nil, err
	}
	order, err := geometry.ParseReadingOrder(cfg.ReadingOrder)
	if err != nil {
		return nil, err
	}
	name := cfg.Name
	if name == "" {
		name = "funsd"
	}
	ds := &FUNSD{
		name:        name,
		cfg:         cfg,
		files:       files,
		conv:        conv,
		order:       order,
		transforms:  tr,
		rng:         rand.New(rand.NewPCG(uint64(cfg.Seed), uint64(len(files)))),
		permutation: xslices.Iota(0, len(files)),
	}
	ds.lockedStartEpoch()
	klog.V(1).Infof("Dataset %q: %d annotation files in %q", name, len(files), cfg.DataPath)
	return ds, nil
}

// Name implements Dataset.
func (ds *FUNSD) Name() string { return ds.name }

// NumFiles returns the number of annotation files.
func (ds *FUNSD) NumFiles() int { return len(ds.files) }

// Converter used to encode the transcripts.
func (ds *FUNSD) Converter() *lexicon.Converter { return ds.conv }

// Skipped returns the number of examples skipped so far.
func (ds *FUNSD) Skipped() int {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	return ds.numSkipped
}

// lockedStartEpoch must be called with ds.mu locked.
func (ds *FUNSD) lockedStartEpoch() {
	ds.next = 0
	if ds.cfg.Shuffle {
		ds.rng.Shuffle(len(ds.permutation), func(i, j int) {
			ds.permutation[i], ds.permutation[j] = ds.permutation[j], ds.permutation[i]
		})
	}
}

// Reset implements Dataset.
func (ds *FUNSD) Reset() {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	ds.lockedStartEpoch()
}

// nextFile returns the next annotation file and the seed for its transformations.
func (ds *FUNSD) nextFile() (string, uint64, error) {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	if ds.next >= len(ds.files) {
		if !ds.cfg.Infinite || len(ds.files) == 0 {
			return "", 0, io.EOF
		}
		if ds.numValid == 0 && ds.pending == 0 {
			return "", 0, errors.Wrapf(ErrNoValidExamples, "all %d files in %q were skipped", len(ds.files), ds.cfg.DataPath)
		}
		ds.lockedStartEpoch()
	}
	file := ds.files[ds.permutation[ds.next]]
	ds.next++
	ds.pending++
	return file, ds.rng.Uint64(), nil
}

func (ds *FUNSD) fileDone(valid, skipped bool) {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	ds.pending--
	if valid {
		ds.numValid++
	}
	if skipped {
		ds.numSkipped++
	}
}

// Yield implements Dataset.
func (ds *FUNSD) Yield() (*sample.Example, error) {
	for {
		annPath, seed, err := ds.nextFile()
		if err != nil {
			return nil, err
		}
		ex, err := ReadExample(annPath, ds.cfg.ImagePath, ds.conv, ds.order)
		if err != nil {
			skip := errors.Is(err, ErrSkipExample)
			ds.fileDone(false, skip)
			if skip {
				continue
			}
			return nil, err
		}
		if ds.transforms != nil {
			rng := rand.New(rand.NewPCG(seed, seed>>1))
			if err = ds.transforms.Apply(ex, rng); err != nil {
				ds.fileDone(false, false)
				return nil, err
			}
		}
		ds.fileDone(true, false)
		return ex, nil
	}
}
