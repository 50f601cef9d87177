// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNumber(t *testing.T) {
	for s, want := range map[string]float64{
		"0.5":    0.5,
		" 1e-4 ": 1e-4,
		"1/4":    0.25,
		"3 / 2":  1.5,
		"-2":     -2,
	} {
		got, err := ParseNumber(s)
		require.NoError(t, err, "ParseNumber(%q)", s)
		assert.InDelta(t, want, got, 1e-12, "ParseNumber(%q)", s)
	}
	for _, s := range []string{"", "1/0", "2*3", "math.pi", "1/2/3", "inf", "NaN", "0.5 + 1"} {
		_, err := ParseNumber(s)
		assert.Error(t, err, "ParseNumber(%q) should fail", s)
	}
}

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(`
dataset:
  data_path: /data/annotations
  image_path: /data/images
  max_seq_len: 32
  recg_loss: CTC
transforms:
  - name: resize
    params: {size: 256}
  - name: random_erasing
    params:
      probability: "1/2"
optimizer:
  learning_rate: "1/1000"
schedule:
  name: polynomial
  total_iters: 100
  warmup_iters: 10
`))
	require.NoError(t, err)
	assert.Equal(t, "/data/annotations", cfg.Dataset.DataPath)
	assert.Equal(t, 32, cfg.Dataset.MaxSeqLen)
	assert.Equal(t, "CTC", cfg.Dataset.RecgLoss)
	assert.Equal(t, 1, cfg.Dataset.BatchSize, "default batch_size should be kept")
	assert.InDelta(t, 1e-3, cfg.Optimizer.LearningRate.Float64(), 1e-12)
	assert.InDelta(t, 0.65, cfg.Optimizer.LayerDecay.Float64(), 1e-12)
	require.Len(t, cfg.Transforms, 2)

	var params struct {
		Probability Number `yaml:"probability"`
		Attempts    int    `yaml:"attempts"`
	}
	params.Attempts = 100
	require.NoError(t, cfg.Transforms[1].DecodeParams(&params))
	assert.Equal(t, Number(0.5), params.Probability)
	assert.Equal(t, 100, params.Attempts)

	cfg, err = Parse([]byte("transforms: [{name: to_tensor, params: null}, {name: resize, params: {size: 64}}]"))
	require.NoError(t, err)
	assert.Zero(t, cfg.Transforms[0].Params.Kind)
	var resize struct {
		Size int `yaml:"size"`
	}
	require.NoError(t, cfg.Transforms[1].DecodeParams(&resize))
	assert.Equal(t, 64, resize.Size)
	_, err = Parse([]byte("transforms: [{name: resize, size: 64}]"))
	require.Error(t, err)
	_, err = Parse([]byte("transforms: [resize]"))
	require.Error(t, err)

	_, err = Parse([]byte("optimizer: {learning_rate: \"eval('1')\"}"))
	require.Error(t, err)
	_, err = Parse([]byte("dataset: {recg_loss: XYZ}"))
	require.Error(t, err)
	_, err = Parse([]byte("schedule: {total_iters: 10, warmup_iters: 20}"))
	require.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("dataset: {batch_size: 8}\n"), 0o644))
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Dataset.BatchSize)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestApplySettings(t *testing.T) {
	cfg := Default()
	keys, err := ApplySettings(cfg,
		"dataset.batch_size=4;schedule.total_iters=1_000;schedule.name=polynomial;"+
			"optimizer.beta2=99/100;optimizer.skip_decay=a,b;transforms.0.params.size=128;dataset.shuffle=false")
	require.NoError(t, err)
	assert.Len(t, keys, 7)
	assert.Equal(t, 4, cfg.Dataset.BatchSize)
	assert.Equal(t, 1000, cfg.Schedule.TotalIters)
	assert.Equal(t, "polynomial", cfg.Schedule.Name)
	assert.InDelta(t, 0.99, cfg.Optimizer.Beta2.Float64(), 1e-12)
	assert.Equal(t, []string{"a", "b"}, cfg.Optimizer.SkipDecay)
	assert.False(t, cfg.Dataset.Shuffle)
	var resize struct {
		Size int `yaml:"size"`
	}
	require.NoError(t, cfg.Transforms[0].DecodeParams(&resize))
	assert.Equal(t, 128, resize.Size)

	// Errors leave the configuration untouched.
	for _, settings := range []string{
		"dataset.unknown=1",
		"dataset.batch_size",
		"dataset.batch_size=abc",
		"dataset.batch_size=0",
		"transforms.10.name=x",
		"optimizer.learning_rate=1/0",
	} {
		_, err = ApplySettings(cfg, settings)
		assert.Error(t, err, "settings %q should fail", settings)
	}
	assert.Equal(t, 4, cfg.Dataset.BatchSize)

	// Settings from a file.
	path := filepath.Join(t.TempDir(), "settings.txt")
	require.NoError(t, os.WriteFile(path, []byte("# comment\ndataset.max_seq_len=64\n\ndataset.recg_loss=CTC\n"), 0o644))
	_, err = ApplySettings(cfg, "file:"+path)
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.Dataset.MaxSeqLen)
	assert.Equal(t, "CTC", cfg.Dataset.RecgLoss)
}

func TestLookup(t *testing.T) {
	cfg := Default()
	value, err := Lookup(cfg, "dataset.batch_size")
	require.NoError(t, err)
	assert.Equal(t, "1", value)
	value, err = Lookup(cfg, "optimizer.skip_decay")
	require.NoError(t, err)
	assert.Equal(t, "pos_embed,cls_token", value)
	value, err = Lookup(cfg, "transforms.0.name")
	require.NoError(t, err)
	assert.Equal(t, "resize", value)
	_, err = Lookup(cfg, "dataset")
	assert.Error(t, err)
	_, err = Lookup(cfg, "dataset.unknown")
	assert.Error(t, err)
}
