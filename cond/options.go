package cond

import (
	"fmt"
	"math"
)

type Option func(*options)

type options struct {
	fullCov       bool
	fullOutputCov bool
	white         bool
	jitter        float64
	hasJitter     bool
}

func gatherOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithFullCov requests the full N×N covariance per output instead of the
// marginal variances.
func WithFullCov() Option {
	return func(o *options) { o.fullCov = true }
}

// WithFullOutputCov requests the covariance between outputs as well.
// Outputs sharing one kernel are independent, so it is diagonal.
func WithFullOutputCov() Option {
	return func(o *options) { o.fullOutputCov = true }
}

// WithWhite declares the inducing distribution to be in the whitened
// basis u = L v, with Kuu = L L^T.
func WithWhite() Option {
	return func(o *options) { o.white = true }
}

// WithJitter overrides the jitter level from the settings stack. In
// BaseConditional, where Kuu is already jittered, it only serves error
// reporting.
func WithJitter(j float64) Option {
	if j < 0 || math.IsNaN(j) || math.IsInf(j, 0) {
		panic(fmt.Sprintf("cond: jitter must be finite and non-negative, got %v", j))
	}
	return func(o *options) {
		o.jitter = j
		o.hasJitter = true
	}
}
