// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package optimizers

import (
	"math"
	"testing"

	"github.com/gomlx/structext/pkg/config"
	"github.com/gomlx/structext/pkg/support/sets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinspace(t *testing.T) {
	assert.Nil(t, Linspace(0, 1, 0))
	assert.Equal(t, []float64{3}, Linspace(3, 5, 1))
	assert.InDeltaSlice(t, []float64{0, 0.25, 0.5, 0.75, 1}, Linspace(0, 1, 5), 1e-12)
}

func TestCosineSchedule(t *testing.T) {
	s, err := CosineSchedule(1.0, 0.0, 10, 0.1, 2)
	require.NoError(t, err)
	require.Len(t, s, 10)
	assert.InDelta(t, 0.1, s[0], 1e-12)
	assert.InDelta(t, 1.0, s[1], 1e-12)
	// First decay step is at base, then strictly decreasing towards final.
	assert.InDelta(t, 1.0, s[2], 1e-12)
	for i := 3; i < len(s); i++ {
		assert.Less(t, s[i], s[i-1])
		assert.Greater(t, s[i], 0.0)
	}
	assert.InDelta(t, 0.5*(1+math.Cos(math.Pi*4/8)), s[6], 1e-12)

	// No warmup.
	s, err = CosineSchedule(2.0, 1.0, 4, 0, 0)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, s[0], 1e-12)
	s, err = CosineSchedule(2.0, 1.0, 4, 0, -3)
	require.NoError(t, err)
	assert.Len(t, s, 4)

	_, err = CosineSchedule(1, 0, 5, 0, 6)
	assert.Error(t, err)
	_, err = CosineSchedule(1, 0, 0, 0, 0)
	assert.Error(t, err)
}

func TestPolynomialSchedule(t *testing.T) {
	s, err := PolynomialSchedule(1.0, 0.5, 6, 0, 2, 1)
	require.NoError(t, err)
	require.Len(t, s, 6)
	assert.InDeltaSlice(t, []float64{0, 1, 1, 0.875, 0.75, 0.625}, []float64(s), 1e-12)

	s, err = PolynomialSchedule(1.0, 0.0, 3, 0, 0, 2)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1, 4.0 / 9.0, 1.0 / 9.0}, []float64(s), 1e-12)

	_, err = PolynomialSchedule(1.0, 0.0, 3, 0, 0, -1)
	assert.Error(t, err)
}

func TestScheduleAt(t *testing.T) {
	s := Schedule{3, 2, 1}
	assert.Equal(t, 3.0, s.At(-1))
	assert.Equal(t, 2.0, s.At(1))
	assert.Equal(t, 1.0, s.At(100))
	assert.Equal(t, 0.0, Schedule(nil).At(0))
}

func TestNewSchedule(t *testing.T) {
	cfg := config.Default().Schedule
	s, err := NewSchedule(cfg)
	require.NoError(t, err)
	assert.Len(t, s, cfg.TotalIters)
	assert.InDelta(t, cfg.BaseLR.Float64(), s[cfg.WarmupIters], 1e-12)

	cfg.Name = "polynomial"
	s, err = NewSchedule(cfg)
	require.NoError(t, err)
	assert.Len(t, s, cfg.TotalIters)

	cfg.Name = "step"
	_, err = NewSchedule(cfg)
	assert.Error(t, err)
}

func TestLayerIndex(t *testing.T) {
	idx, ok := LayerIndex("backbone.blocks.11.attn.qkv.weight")
	assert.True(t, ok)
	assert.Equal(t, 11, idx)
	idx, ok = LayerIndex("blocks.0")
	assert.True(t, ok)
	assert.Equal(t, 0, idx)
	_, ok = LayerIndex("blocks.x.norm.weight")
	assert.False(t, ok)
	_, ok = LayerIndex("head.weight")
	assert.False(t, ok)
}

func TestLayerwiseDecay(t *testing.T) {
	fn := LayerwiseDecay(0.5, 2)
	assert.InDelta(t, 0.25, fn(&Param{Name: "blocks.0.mlp.weight"}), 1e-12)
	assert.InDelta(t, 0.5, fn(&Param{Name: "blocks.1.mlp.weight"}), 1e-12)
	assert.InDelta(t, 0.125, fn(&Param{Name: "patch_embed.proj.weight"}), 1e-12)
	assert.InDelta(t, 1.0, fn(&Param{Name: "head.weight"}), 1e-12)
}

func mustParam(t *testing.T, name string, shape []int, value ...float32) *Param {
	p, err := NewParam(name, shape, value)
	require.NoError(t, err)
	return p
}

func TestDecayMaskAndFilter(t *testing.T) {
	params := []*Param{
		mustParam(t, "blocks.0.mlp.weight", []int{1, 2}, 1, 2),
		mustParam(t, "blocks.0.mlp.bias", []int{2}, 1, 2),
		mustParam(t, "blocks.0.attn.scale", []int{1, 1}, 1),
		mustParam(t, "norm.weight", []int{2}, 1, 2),
		mustParam(t, "pos_embed", []int{1, 2}, 1, 2),
		mustParam(t, "teacher.head.weight", []int{1, 1}, 1),
	}
	_, err := NewParam("bad", []int{2, 2}, []float32{1})
	assert.Error(t, err)

	filtered := FilterTeacher(params)
	assert.Len(t, filtered, 5)
	mask := DecayMask(filtered, sets.Make("pos_embed"))
	assert.Equal(t, map[string]bool{
		"blocks.0.mlp.weight": true,
		"blocks.0.mlp.bias":   false,
		"blocks.0.attn.scale": true,
		"norm.weight":         false,
		"pos_embed":           false,
	}, mask)
}

func TestAdamWStep(t *testing.T) {
	p := mustParam(t, "w", []int{1, 2}, 1, -2)
	cfg := AdamWConfig{LearningRate: 0.1, Beta1: 0.9, Beta2: 0.999, Epsilon: 1e-8, WeightDecay: 0.5}
	opt, err := NewAdamWDL([]*Param{p}, cfg)
	require.NoError(t, err)

	grads := []float32{0.5, -1}
	want := []float64{1, -2}
	m := []float64{0, 0}
	v := []float64{0, 0}
	for step := 1; step <= 3; step++ {
		copy(p.Grad, grads)
		opt.Step()
		sqrt2 := math.Sqrt(1 - math.Pow(0.999, float64(step)))
		lrT := 0.1 * sqrt2 / (1 - math.Pow(0.9, float64(step)))
		for i, g32 := range grads {
			g := float64(g32)
			want[i] *= 1 - 0.1*0.5
			m[i] = 0.9*m[i] + 0.1*g
			v[i] = 0.999*v[i] + 0.001*g*g
			want[i] -= lrT * m[i] / (math.Sqrt(v[i]) + 1e-8*sqrt2)
		}
		assert.InDelta(t, want[0], float64(p.Value[0]), 1e-5)
		assert.InDelta(t, want[1], float64(p.Value[1]), 1e-5)
	}
	assert.Equal(t, 3, opt.StepCount())

	opt.ZeroGrad()
	assert.Equal(t, []float32{0, 0}, p.Grad)
}

func TestAdamWDLLayerwise(t *testing.T) {
	// With a zero-valued parameter and no weight decay, the first step moves each value by
	// exactly -lr*ratio*sign(grad) (up to epsilon).
	top := mustParam(t, "blocks.1.w", []int{1, 1}, 0)
	bottom := mustParam(t, "blocks.0.w", []int{1, 1}, 0)
	head := mustParam(t, "head.w", []int{1, 1}, 0)
	head.LRScale = 2
	params := []*Param{top, bottom, head}
	cfg := DefaultAdamWConfig()
	cfg.WeightDecay = 0
	cfg.LayerwiseDecay = 0.5
	cfg.NumLayers = 2
	opt, err := NewAdamWDL(params, cfg)
	require.NoError(t, err)
	opt.SetLearningRate(0.01)
	assert.Equal(t, 0.01, opt.LearningRate())
	for _, p := range params {
		p.Grad[0] = 3
	}
	opt.Step()
	assert.InDelta(t, -0.005, float64(top.Value[0]), 1e-6)
	assert.InDelta(t, -0.0025, float64(bottom.Value[0]), 1e-6)
	assert.InDelta(t, -0.02, float64(head.Value[0]), 1e-6)
	assert.InDelta(t, 0.02, opt.EffectiveLR(head), 1e-12)
}

func TestNewAdamWDLErrors(t *testing.T) {
	p := mustParam(t, "w", []int{1}, 1)
	for _, mod := range []func(*AdamWConfig){
		func(c *AdamWConfig) { c.LearningRate = 0 },
		func(c *AdamWConfig) { c.Beta1 = 1 },
		func(c *AdamWConfig) { c.Beta2 = -0.1 },
		func(c *AdamWConfig) { c.Epsilon = 0 },
		func(c *AdamWConfig) { c.WeightDecay = -1 },
		func(c *AdamWConfig) { c.LayerwiseDecay = 2 },
	} {
		cfg := DefaultAdamWConfig()
		mod(&cfg)
		_, err := NewAdamWDL([]*Param{p}, cfg)
		assert.Error(t, err)
	}
	p.Grad = nil
	_, err := NewAdamWDL([]*Param{p}, DefaultAdamWConfig())
	assert.Error(t, err)
}

func TestNewFromConfig(t *testing.T) {
	params := []*Param{
		mustParam(t, "blocks.11.mlp.weight", []int{1, 1}, 1),
		mustParam(t, "blocks.11.mlp.bias", []int{1}, 1),
		mustParam(t, "cls_token", []int{1, 1}, 1),
		mustParam(t, "teacher.w", []int{1, 1}, 1),
	}
	cfg := config.Default().Optimizer
	opt, err := NewFromConfig(params, cfg)
	require.NoError(t, err)
	require.Len(t, opt.Params(), 3)
	assert.True(t, opt.AppliesDecay(0))
	assert.False(t, opt.AppliesDecay(1))
	assert.False(t, opt.AppliesDecay(2))
	assert.InDelta(t, cfg.LearningRate.Float64()*cfg.LayerDecay.Float64(), opt.EffectiveLR(params[0]), 1e-12)

	cfg.Name = "adamw"
	opt, err = NewFromConfig(params, cfg)
	require.NoError(t, err)
	assert.InDelta(t, cfg.LearningRate.Float64(), opt.EffectiveLR(params[0]), 1e-12)

	cfg.Name = "sgd"
	_, err = NewFromConfig(params, cfg)
	assert.Error(t, err)
}
