package kern

import (
	"fmt"
)

// Option configures a kernel at construction. Options that do not apply
// to the kernel being built make the constructor panic.
type Option func(*config)

type config struct {
	lengthscales []float64
	activeDims   []int
	period       float64
	channels     int
	normalized   bool

	hasLengthscales bool
	hasPeriod       bool
	hasChannels     bool
	hasNormalized   bool
}

func defaultConfig() config {
	return config{
		lengthscales: []float64{1.0},
		period:       1.0,
		channels:     1,
		normalized:   true,
	}
}

func gatherOptions(kernel string, allowed map[string]bool, opts []Option) config {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	check := func(set bool, name string) {
		if set && !allowed[name] {
			panic(fmt.Sprintf("kern: option %s does not apply to %s", name, kernel))
		}
	}
	check(cfg.hasLengthscales, "lengthscales")
	check(cfg.hasPeriod, "period")
	check(cfg.hasChannels, "channels")
	check(cfg.hasNormalized, "normalized")
	check(cfg.activeDims != nil, "activeDims")
	return cfg
}

// WithLengthscales sets one shared lengthscale, or one per input dimension
// (ARD).
func WithLengthscales(ls ...float64) Option {
	if len(ls) == 0 {
		panic("kern: WithLengthscales needs at least one value")
	}
	for _, l := range ls {
		if !(l > 0) {
			panic(fmt.Sprintf("kern: lengthscale must be positive, got %v", l))
		}
	}
	return func(c *config) {
		c.lengthscales = append([]float64(nil), ls...)
		c.hasLengthscales = true
	}
}

// WithActiveDims restricts the kernel to the given input columns. By
// default a kernel of input dimension D reads columns 0..D-1.
func WithActiveDims(dims ...int) Option {
	for _, d := range dims {
		if d < 0 {
			panic(fmt.Sprintf("kern: negative active dimension %d", d))
		}
	}
	return func(c *config) {
		c.activeDims = append([]int{}, dims...)
	}
}

func WithPeriod(p float64) Option {
	if !(p > 0) {
		panic(fmt.Sprintf("kern: period must be positive, got %v", p))
	}
	return func(c *config) {
		c.period = p
		c.hasPeriod = true
	}
}

// WithColourChannels sets the number of interleaved channels per pixel of
// a convolutional kernel's images.
func WithColourChannels(n int) Option {
	if n < 1 {
		panic(fmt.Sprintf("kern: colour channels must be positive, got %d", n))
	}
	return func(c *config) {
		c.channels = n
		c.hasChannels = true
	}
}

// WithNormalized controls whether a convolutional kernel averages over
// patches (the default) or sums them.
func WithNormalized(on bool) Option {
	return func(c *config) {
		c.normalized = on
		c.hasNormalized = true
	}
}
