// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package config holds the YAML configuration of the data pipeline and of the optimizer.
//
// A configuration has 4 sections:
//
//	dataset:
//	  data_path: ~/data/funsd/training_data/annotations
//	  image_path: ~/data/funsd/training_data/images
//	  max_seq_len: 50
//	  recg_loss: CE
//	transforms:
//	  - name: resize
//	    params: {size: 512}
//	  - name: to_tensor
//	optimizer:
//	  learning_rate: 2e-4
//	  layer_decay: 0.65
//	schedule:
//	  name: cosine
//	  total_iters: 10_000
//
// Float values are Number values, and may also be given as fractions, e.g. `scale: 1/255`.
package config

import (
	"os"
	"slices"

	"github.com/gomlx/structext/pkg/support/fsutil"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration document.
type Config struct {
	Dataset    Dataset         `yaml:"dataset"`
	Transforms []TransformSpec `yaml:"transforms"`
	Optimizer  Optimizer       `yaml:"optimizer"`
	Schedule   Schedule        `yaml:"schedule"`
}

// Dataset configures how annotations and images are read.
type Dataset struct {
	Name      string `yaml:"name"`
	DataPath  string `yaml:"data_path"`
	ImagePath string `yaml:"image_path"`

	// MaxSeqLen is the fixed length of the encoded word transcripts.
	MaxSeqLen int `yaml:"max_seq_len"`

	// RecgLoss selects how predicted sequences are decoded: "CE" or "CTC".
	RecgLoss string `yaml:"recg_loss"`

	// ReadingOrder is either "top_to_bottom" or "left_to_right".
	ReadingOrder string `yaml:"reading_order"`

	BatchSize      int   `yaml:"batch_size"`
	DropIncomplete bool  `yaml:"drop_incomplete"`
	Shuffle        bool  `yaml:"shuffle"`
	Infinite       bool  `yaml:"infinite"`
	Parallelism    int   `yaml:"parallelism"`
	Seed           int64 `yaml:"seed"`
}

// TransformSpec names one transformation of the pipeline and holds its parameters,
// decoded later by the transformation itself.
type TransformSpec struct {
	Name string `yaml:"name"`

	// Params is the raw YAML of the parameters. Its Kind is 0 if there are no parameters.
	Params yaml.Node `yaml:"params,omitempty"`
}

// NewTransformSpec creates a TransformSpec with params encoded from the given value.
// params can be nil.
func NewTransformSpec(name string, params any) TransformSpec {
	spec := TransformSpec{Name: name}
	if params != nil {
		if err := spec.Params.Encode(params); err != nil {
			panic(errors.Wrapf(err, "failed to encode params for transform %q", name))
		}
	}
	return spec
}

// UnmarshalYAML implements yaml.Unmarshaler: it keeps a copy of the params node as is.
func (s *TransformSpec) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return errors.Errorf("line %d: transform must be a mapping with \"name\" and \"params\"", value.Line)
	}
	spec := TransformSpec{}
	for i := 0; i+1 < len(value.Content); i += 2 {
		key, content := value.Content[i], value.Content[i+1]
		switch key.Value {
		case "name":
			if err := content.Decode(&spec.Name); err != nil {
				return errors.Wrapf(err, "line %d: invalid transform name", content.Line)
			}
		case "params":
			if content.Tag != "!!null" {
				spec.Params = *content
			}
		default:
			return errors.Errorf("line %d: unknown transform field %q", key.Line, key.Value)
		}
	}
	*s = spec
	return nil
}

// DecodeParams decodes the transformation parameters into out, which should be a pointer
// to a struct already filled with default values.
func (s TransformSpec) DecodeParams(out any) error {
	if s.Params.Kind == 0 {
		return nil
	}
	if err := s.Params.Decode(out); err != nil {
		return errors.Wrapf(err, "invalid params for transform %q", s.Name)
	}
	return nil
}

// Optimizer configures the AdamW with layer-wise learning rate decay.
type Optimizer struct {
	// Name is "adamwdl" (with layer-wise decay) or "adamw".
	Name         string   `yaml:"name"`
	LearningRate Number   `yaml:"learning_rate"`
	WeightDecay  Number   `yaml:"weight_decay"`
	Beta1        Number   `yaml:"beta1"`
	Beta2        Number   `yaml:"beta2"`
	Epsilon      Number   `yaml:"epsilon"`
	LayerDecay   Number   `yaml:"layer_decay"`
	NumLayers    int      `yaml:"num_layers"`
	SkipDecay    []string `yaml:"skip_decay"`
}

// Schedule configures the learning rate schedule.
type Schedule struct {
	// Name is "cosine" or "polynomial".
	Name        string `yaml:"name"`
	BaseLR      Number `yaml:"base_lr"`
	FinalLR     Number `yaml:"final_lr"`
	TotalIters  int    `yaml:"total_iters"`
	WarmupIters int    `yaml:"warmup_iters"`
	StartWarmup Number `yaml:"start_warmup"`
	Power       Number `yaml:"power"`
}

var (
	validRecgLosses    = []string{"CE", "CTC"}
	validReadingOrders = []string{"top_to_bottom", "left_to_right"}
	validOptimizers    = []string{"adamwdl", "adamw"}
	validSchedules     = []string{"cosine", "polynomial"}
)

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Dataset: Dataset{
			Name:         "funsd",
			MaxSeqLen:    50,
			RecgLoss:     "CE",
			ReadingOrder: "top_to_bottom",
			BatchSize:    1,
			Shuffle:      true,
			Seed:         42,
		},
		Transforms: []TransformSpec{
			NewTransformSpec("resize", map[string]any{"size": 512}),
			NewTransformSpec("to_tensor", nil),
			NewTransformSpec("normalize", map[string]any{
				"scale": "1/255",
				"mean":  []float64{0.485, 0.456, 0.406},
				"std":   []float64{0.229, 0.224, 0.225},
			}),
			NewTransformSpec("random_erasing", map[string]any{"probability": 0.5, "mode": "const"}),
			NewTransformSpec("to_chw", nil),
		},
		Optimizer: Optimizer{
			Name:         "adamwdl",
			LearningRate: 2e-4,
			WeightDecay:  0.05,
			Beta1:        0.9,
			Beta2:        0.999,
			Epsilon:      1e-8,
			LayerDecay:   0.65,
			NumLayers:    12,
			SkipDecay:    []string{"pos_embed", "cls_token"},
		},
		Schedule: Schedule{
			Name:        "cosine",
			BaseLR:      2e-4,
			FinalLR:     1e-6,
			TotalIters:  10_000,
			WarmupIters: 500,
			Power:       1,
		},
	}
}

// Load reads the YAML configuration file at path. Values not present in the file keep their defaults.
func Load(path string) (*Config, error) {
	path, err := fsutil.ReplaceTildeInDir(path)
	if err != nil {
		return nil, err
	}
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read configuration from %q", path)
	}
	cfg, err := Parse(contents)
	if err != nil {
		return nil, errors.WithMessagef(err, "configuration file %q", path)
	}
	return cfg, nil
}

// Parse the YAML configuration on top of the Default one, and validates it.
func Parse(contents []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(contents, cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse configuration")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values of the configuration and expands "~" in the paths.
func (c *Config) Validate() error {
	var err error
	d := &c.Dataset
	if d.DataPath, err = fsutil.ReplaceTildeInDir(d.DataPath); err != nil {
		return err
	}
	if d.ImagePath, err = fsutil.ReplaceTildeInDir(d.ImagePath); err != nil {
		return err
	}
	if d.MaxSeqLen <= 0 {
		return errors.Errorf("dataset.max_seq_len must be > 0, got %d", d.MaxSeqLen)
	}
	if d.BatchSize <= 0 {
		return errors.Errorf("dataset.batch_size must be > 0, got %d", d.BatchSize)
	}
	if err = checkOneOf("dataset.recg_loss", d.RecgLoss, validRecgLosses); err != nil {
		return err
	}
	if err = checkOneOf("dataset.reading_order", d.ReadingOrder, validReadingOrders); err != nil {
		return err
	}
	for i, t := range c.Transforms {
		if t.Name == "" {
			return errors.Errorf("transforms[%d] has no name", i)
		}
	}

	o := &c.Optimizer
	if err = checkOneOf("optimizer.name", o.Name, validOptimizers); err != nil {
		return err
	}
	if o.LearningRate <= 0 {
		return errors.Errorf("optimizer.learning_rate must be > 0, got %g", o.LearningRate)
	}
	if o.WeightDecay < 0 {
		return errors.Errorf("optimizer.weight_decay must be >= 0, got %g", o.WeightDecay)
	}
	if o.Beta1 < 0 || o.Beta1 >= 1 || o.Beta2 < 0 || o.Beta2 >= 1 {
		return errors.Errorf("optimizer betas must be in [0, 1), got (%g, %g)", o.Beta1, o.Beta2)
	}
	if o.LayerDecay <= 0 || o.LayerDecay > 1 {
		return errors.Errorf("optimizer.layer_decay must be in (0, 1], got %g", o.LayerDecay)
	}
	if o.NumLayers < 0 {
		return errors.Errorf("optimizer.num_layers must be >= 0, got %d", o.NumLayers)
	}

	s := &c.Schedule
	if err = checkOneOf("schedule.name", s.Name, validSchedules); err != nil {
		return err
	}
	if s.TotalIters <= 0 {
		return errors.Errorf("schedule.total_iters must be > 0, got %d", s.TotalIters)
	}
	if s.WarmupIters > s.TotalIters {
		return errors.Errorf("schedule.warmup_iters (%d) > schedule.total_iters (%d)", s.WarmupIters, s.TotalIters)
	}
	return nil
}

func checkOneOf(field, value string, valid []string) error {
	if !slices.Contains(valid, value) {
		return errors.Errorf("invalid %s %q, valid values are %q", field, value, valid)
	}
	return nil
}
