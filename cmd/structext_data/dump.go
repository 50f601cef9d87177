// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"io"
	"os"

	"github.com/gomlx/structext/pkg/config"
	"github.com/gomlx/structext/pkg/ml/datasets"
	"github.com/gomlx/structext/pkg/ml/sample"
	"github.com/gomlx/structext/pkg/ml/transforms"
	"github.com/gomlx/structext/pkg/text/lexicon"
	"github.com/pkg/errors"
	"github.com/x448/float16"
	"k8s.io/klog/v2"
)

// exampleSummary is the JSON line dumped for each example.
type exampleSummary struct {
	Name       string     `json:"name"`
	Image      string     `json:"image"`
	Shape      [3]int     `json:"shape,omitempty"`
	Layout     string     `json:"layout,omitempty"`
	F16Bytes   int        `json:"f16_bytes,omitempty"`
	F16SHA256  string     `json:"f16_sha256,omitempty"`
	Ratio      [2]float64 `json:"ratio"`
	NumWords   int        `json:"num_words"`
	NumLines   int        `json:"num_lines"`
	Lines      []lineInfo `json:"lines"`
	IgnoreTags int        `json:"ignored_words"`
}

type lineInfo struct {
	Text  string        `json:"text"`
	Class string        `json:"class"`
	Poly  [4][2]float32 `json:"poly"`
}

func summarize(ex *sample.Example, conv *lexicon.Converter) (*exampleSummary, error) {
	s := &exampleSummary{
		Name:     ex.Name,
		Image:    ex.ImagePath,
		Ratio:    [2]float64{ex.Ratio.X, ex.Ratio.Y},
		NumWords: ex.Words.Len(),
		NumLines: ex.Lines.Len(),
	}
	if ex.Tensor != nil {
		s.Shape = ex.Tensor.Dims
		s.Layout = ex.Tensor.Layout.String()
		half := ex.Tensor.Float16()
		s.F16Bytes = 2 * len(half)
		s.F16SHA256 = float16Digest(half)
	}
	for _, ignore := range ex.Words.IgnoreTags {
		if ignore {
			s.IgnoreTags++
		}
	}
	for i, text := range ex.Lines.Texts {
		decoded, err := conv.Decode(text)
		if err != nil {
			return nil, errors.WithMessagef(err, "example %q line #%d", ex.Name, i)
		}
		s.Lines = append(s.Lines, lineInfo{Text: decoded, Class: className(ex.Lines.Classes[i]), Poly: ex.Lines.Polys[i]})
	}
	return s, nil
}

// float16Digest returns the hex SHA256 of the little-endian half-precision values.
func float16Digest(values []float16.Float16) string {
	buf := make([]byte, 0, 2*len(values))
	for _, v := range values {
		buf = binary.LittleEndian.AppendUint16(buf, v.Bits())
	}
	sum := sha256.Sum256(buf)
	return hex.EncodeToString(sum[:])
}

// dump the transformed examples of the dataset as JSON lines to stdout.
func dump(ctx context.Context, cfg *config.Config, maxExamples int) error {
	pipeline, err := transforms.Build(cfg.Transforms)
	if err != nil {
		return err
	}
	dsCfg := cfg.Dataset
	dsCfg.Infinite = false
	funsdDS, err := datasets.NewFUNSD(dsCfg, pipeline)
	if err != nil {
		return err
	}
	var ds datasets.Dataset = funsdDS
	if maxExamples > 0 {
		ds = datasets.Take(ds, maxExamples)
	}
	if dsCfg.Parallelism != 0 {
		pds := datasets.CustomParallel(ds).Parallelism(dsCfg.Parallelism).Start()
		defer pds.Cancel()
		ds = pds
	}
	batches, err := datasets.NewBatch(ds, dsCfg.BatchSize, dsCfg.DropIncomplete)
	if err != nil {
		return err
	}
	return writeBatches(ctx, os.Stdout, batches, funsdDS.Converter(), func() {
		klog.Infof("Dumped %s: %d files skipped", funsdDS.Name(), funsdDS.Skipped())
	})
}

func writeBatches(ctx context.Context, w io.Writer, batches *datasets.Batch, conv *lexicon.Converter, onEnd func()) error {
	enc := json.NewEncoder(w)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		batch, err := batches.YieldBatch()
		if err == io.EOF {
			onEnd()
			return nil
		}
		if err != nil {
			return err
		}
		for _, ex := range batch {
			s, err := summarize(ex, conv)
			if err != nil {
				return err
			}
			if err = enc.Encode(s); err != nil {
				return errors.Wrap(err, "failed to write example")
			}
		}
	}
}
