// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package optimizers

import (
	"math"

	"github.com/gomlx/structext/pkg/config"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"k8s.io/klog/v2"
)

// Schedule holds the learning rate of each training iteration.
type Schedule []float64

// At returns the learning rate for the given step. Steps past the end of the schedule
// use the last value, and negative steps the first one. An empty schedule returns 0.
func (s Schedule) At(step int) float64 {
	if len(s) == 0 {
		return 0
	}
	return s[min(max(step, 0), len(s)-1)]
}

// Linspace returns n evenly spaced values from start to stop, both included.
// For n == 1 it returns only start.
func Linspace(start, stop float64, n int) []float64 {
	switch {
	case n <= 0:
		return nil
	case n == 1:
		return []float64{start}
	}
	return floats.Span(make([]float64, n), start, stop)
}

// warmup validates the arguments common to the schedules and returns the linear warmup part.
func warmup(base float64, totalIters int, startWarmup float64, warmupIters int) (Schedule, error) {
	if totalIters <= 0 {
		return nil, errors.Errorf("total iterations must be > 0, got %d", totalIters)
	}
	warmupIters = max(warmupIters, 0)
	if warmupIters > totalIters {
		return nil, errors.Errorf("warmup iterations (%d) > total iterations (%d)", warmupIters, totalIters)
	}
	klog.V(1).Infof("Learning rate schedule: %d warmup steps, %d total steps", warmupIters, totalIters)
	schedule := make(Schedule, 0, totalIters)
	return append(schedule, Linspace(startWarmup, base, warmupIters)...), nil
}

// CosineSchedule returns totalIters learning rates: a linear warmup from startWarmup to base
// during warmupIters iterations (none if warmupIters <= 0), followed by a cosine decay from base
// towards final.
func CosineSchedule(base, final float64, totalIters int, startWarmup float64, warmupIters int) (Schedule, error) {
	schedule, err := warmup(base, totalIters, startWarmup, warmupIters)
	if err != nil {
		return nil, err
	}
	numDecay := totalIters - len(schedule)
	for i := range numDecay {
		schedule = append(schedule, final+0.5*(base-final)*(1+math.Cos(math.Pi*float64(i)/float64(numDecay))))
	}
	return schedule, nil
}

// PolynomialSchedule returns totalIters learning rates: a linear warmup from startWarmup to base
// during warmupIters iterations (none if warmupIters <= 0), followed by a polynomial decay from
// base towards final, without cycling: (base-final) * (1-i/decaySteps)^power + final.
func PolynomialSchedule(base, final float64, totalIters int, startWarmup float64, warmupIters int, power float64) (Schedule, error) {
	if power < 0 {
		return nil, errors.Errorf("polynomial schedule power must be >= 0, got %g", power)
	}
	schedule, err := warmup(base, totalIters, startWarmup, warmupIters)
	if err != nil {
		return nil, err
	}
	decaySteps := totalIters - len(schedule)
	for i := range decaySteps {
		schedule = append(schedule, (base-final)*math.Pow(1-float64(i)/float64(decaySteps), power)+final)
	}
	return schedule, nil
}

// NewSchedule creates the schedule described by the configuration.
func NewSchedule(cfg config.Schedule) (Schedule, error) {
	switch cfg.Name {
	case "cosine":
		return CosineSchedule(cfg.BaseLR.Float64(), cfg.FinalLR.Float64(), cfg.TotalIters,
			cfg.StartWarmup.Float64(), cfg.WarmupIters)
	case "polynomial":
		return PolynomialSchedule(cfg.BaseLR.Float64(), cfg.FinalLR.Float64(), cfg.TotalIters,
			cfg.StartWarmup.Float64(), cfg.WarmupIters, cfg.Power.Float64())
	}
	return nil, errors.Errorf("unknown learning rate schedule %q", cfg.Name)
}
