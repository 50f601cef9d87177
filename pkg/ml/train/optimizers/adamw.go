// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package optimizers implements AdamW with layer-wise learning rate decay ("AdamWDL"), and the
// learning rate schedules used to train it.
//
// The optimizer works on host memory parameters (Param): the training loop computes the gradients,
// sets the learning rate of the step from a Schedule, and calls Step.
//
//	schedule, _ := optimizers.NewSchedule(cfg.Schedule)
//	opt, _ := optimizers.NewFromConfig(params, cfg.Optimizer)
//	for step := range len(schedule) {
//		computeGradients(params)
//		opt.SetLearningRate(schedule.At(step))
//		opt.Step()
//		opt.ZeroGrad()
//	}
package optimizers

import (
	"math"

	"github.com/gomlx/structext/pkg/config"
	"github.com/gomlx/structext/pkg/support/sets"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// AdamWConfig configures AdamWDL.
type AdamWConfig struct {
	LearningRate, Beta1, Beta2, Epsilon float64

	// WeightDecay is the coefficient of the decoupled weight decay.
	WeightDecay float64

	// ApplyDecay selects, by name, the parameters weight decay applies to. If nil, it applies to all.
	ApplyDecay func(name string) bool

	// ParamLR is the per-parameter learning rate strategy. If nil and LayerwiseDecay is set,
	// LayerwiseDecay(LayerwiseDecay, NumLayers) is used. If both are unset, the optimizer is a plain AdamW.
	ParamLR        ParamLRFn
	LayerwiseDecay float64
	NumLayers      int
}

// DefaultAdamWConfig returns the default configuration: plain AdamW with learning rate 1e-3,
// betas (0.9, 0.999), epsilon 1e-8 and weight decay 0.01.
func DefaultAdamWConfig() AdamWConfig {
	return AdamWConfig{
		LearningRate: 1e-3,
		Beta1:        0.9,
		Beta2:        0.999,
		Epsilon:      1e-8,
		WeightDecay:  0.01,
	}
}

// AdamWDL is AdamW with decoupled weight decay and a pluggable per-parameter learning rate.
//
// On each Step, for each parameter p with gradient g:
//
//	p = p * (1 - lr*weightDecay)                  // only if decay applies to p
//	m = beta1*m + (1-beta1)*g
//	v = beta2*v + (1-beta2)*g²
//	lr_t = lr * ParamLR(p) * sqrt(1-beta2^t) / (1-beta1^t)
//	p = p - lr_t * m / (sqrt(v) + epsilon*sqrt(1-beta2^t))
//
// The weight decay uses the learning rate before the ParamLR ratio is applied.
// It is not safe for concurrent use.
type AdamWDL struct {
	cfg     AdamWConfig
	params  []*Param
	m, v    [][]float64
	lr      float64
	step    int
	decayed []bool
}

// NewAdamWDL creates the optimizer for the given parameters.
func NewAdamWDL(params []*Param, cfg AdamWConfig) (*AdamWDL, error) {
	if cfg.LearningRate <= 0 {
		return nil, errors.Errorf("learning rate must be > 0, got %g", cfg.LearningRate)
	}
	if cfg.Beta1 < 0 || cfg.Beta1 >= 1 || cfg.Beta2 < 0 || cfg.Beta2 >= 1 {
		return nil, errors.Errorf("betas must be in [0, 1), got (%g, %g)", cfg.Beta1, cfg.Beta2)
	}
	if cfg.Epsilon <= 0 {
		return nil, errors.Errorf("epsilon must be > 0, got %g", cfg.Epsilon)
	}
	if cfg.WeightDecay < 0 {
		return nil, errors.Errorf("weight decay must be >= 0, got %g", cfg.WeightDecay)
	}
	if cfg.ParamLR == nil && cfg.LayerwiseDecay != 0 {
		if cfg.LayerwiseDecay < 0 || cfg.LayerwiseDecay > 1 {
			return nil, errors.Errorf("layer-wise decay must be in (0, 1], got %g", cfg.LayerwiseDecay)
		}
		cfg.ParamLR = LayerwiseDecay(cfg.LayerwiseDecay, cfg.NumLayers)
	}
	o := &AdamWDL{
		cfg:     cfg,
		params:  params,
		m:       make([][]float64, len(params)),
		v:       make([][]float64, len(params)),
		lr:      cfg.LearningRate,
		decayed: make([]bool, len(params)),
	}
	for i, p := range params {
		if len(p.Value) != len(p.Grad) {
			return nil, errors.Errorf("parameter %q has %d values but %d gradients", p.Name, len(p.Value), len(p.Grad))
		}
		o.m[i] = make([]float64, len(p.Value))
		o.v[i] = make([]float64, len(p.Value))
		o.decayed[i] = cfg.WeightDecay > 0 && (cfg.ApplyDecay == nil || cfg.ApplyDecay(p.Name))
	}
	return o, nil
}

// NewFromConfig creates the optimizer from the configuration, the same way models with layer-wise
// decay are usually trained: parameters of a teacher model are excluded, and weight decay doesn't
// apply to rank-1 parameters, biases and the parameters listed in cfg.SkipDecay.
func NewFromConfig(params []*Param, cfg config.Optimizer) (*AdamWDL, error) {
	params = FilterTeacher(params)
	mask := DecayMask(params, sets.Make(cfg.SkipDecay...))
	adamCfg := AdamWConfig{
		LearningRate: cfg.LearningRate.Float64(),
		Beta1:        cfg.Beta1.Float64(),
		Beta2:        cfg.Beta2.Float64(),
		Epsilon:      cfg.Epsilon.Float64(),
		WeightDecay:  cfg.WeightDecay.Float64(),
		ApplyDecay:   func(name string) bool { return mask[name] },
	}
	switch cfg.Name {
	case "adamwdl":
		adamCfg.LayerwiseDecay = cfg.LayerDecay.Float64()
		adamCfg.NumLayers = cfg.NumLayers
	case "adamw":
	default:
		return nil, errors.Errorf("unknown optimizer %q", cfg.Name)
	}
	klog.V(1).Infof("Optimizer %s: %d parameters, lr=%g, weight decay=%g, layer decay=%g",
		cfg.Name, len(params), adamCfg.LearningRate, adamCfg.WeightDecay, adamCfg.LayerwiseDecay)
	return NewAdamWDL(params, adamCfg)
}

// Params returns the parameters being optimized.
func (o *AdamWDL) Params() []*Param { return o.params }

// LearningRate returns the current learning rate.
func (o *AdamWDL) LearningRate() float64 { return o.lr }

// SetLearningRate sets the learning rate for the next steps, typically from a Schedule.
func (o *AdamWDL) SetLearningRate(lr float64) { o.lr = lr }

// StepCount returns the number of steps taken.
func (o *AdamWDL) StepCount() int { return o.step }

// AppliesDecay returns whether weight decay applies to the i-th parameter.
func (o *AdamWDL) AppliesDecay(i int) bool { return o.decayed[i] }

// EffectiveLR returns the learning rate of the Adam update of p for the current step,
// before bias correction.
func (o *AdamWDL) EffectiveLR(p *Param) float64 {
	lr := o.lr * p.lrScale()
	if o.cfg.ParamLR != nil {
		lr *= o.cfg.ParamLR(p)
	}
	return lr
}

// Step updates all parameters in place using their current gradients.
func (o *AdamWDL) Step() {
	o.step++
	beta1, beta2 := o.cfg.Beta1, o.cfg.Beta2
	correction1 := 1 - math.Pow(beta1, float64(o.step))
	sqrtCorrection2 := math.Sqrt(1 - math.Pow(beta2, float64(o.step)))
	epsilon := o.cfg.Epsilon * sqrtCorrection2
	for i, p := range o.params {
		if o.decayed[i] {
			decay := float32(1 - o.lr*p.lrScale()*o.cfg.WeightDecay)
			for j := range p.Value {
				p.Value[j] *= decay
			}
		}
		lrT := o.EffectiveLR(p) * sqrtCorrection2 / correction1
		m, v := o.m[i], o.v[i]
		for j, g32 := range p.Grad {
			g := float64(g32)
			m[j] = beta1*m[j] + (1-beta1)*g
			v[j] = beta2*v[j] + (1-beta2)*g*g
			p.Value[j] -= float32(lrT * m[j] / (math.Sqrt(v[j]) + epsilon))
		}
	}
}

// ZeroGrad sets the gradients of all parameters to zero.
func (o *AdamWDL) ZeroGrad() {
	for _, p := range o.params {
		clear(p.Grad)
	}
}
