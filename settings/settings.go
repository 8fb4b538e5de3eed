// Package settings holds the numeric configuration shared by the
// covariance computations, as a stack of scoped overrides.
//
// The only value read implicitly by the rest of the module is
// Numerics.JitterLevel, and only when a caller does not pass a jitter
// explicitly. Concurrent computations that need different jitters should
// pass them explicitly (cond.WithJitter) rather than push overrides.
//
// Pushing or popping applies the log level of the settings then in effect
// to the standard logrus logger.
package settings

import (
	"math"
	"sync"

	"github.com/lucasmaystre/sparsegp/errs"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultJitterLevel = 1e-6
	DefaultLogLevel    = "warning"
)

type Numerics struct {
	// Added to the diagonal of Kuu before factorization.
	JitterLevel float64 `yaml:"jitter_level"`
}

type Logging struct {
	Level string `yaml:"level"`
}

type Settings struct {
	Numerics Numerics `yaml:"numerics"`
	Logging  Logging  `yaml:"logging"`
}

func Default() Settings {
	return Settings{
		Numerics: Numerics{JitterLevel: DefaultJitterLevel},
		Logging:  Logging{Level: DefaultLogLevel},
	}
}

// Validate checks that the jitter is finite and non-negative and that the
// log level is known to logrus.
func (s Settings) Validate() error {
	j := s.Numerics.JitterLevel
	if j < 0 || math.IsNaN(j) || math.IsInf(j, 0) {
		return &errs.ParameterError{Op: "Validate", Name: "numerics.jitter_level", Value: j}
	}
	if _, err := log.ParseLevel(s.Logging.Level); err != nil {
		return &errs.ParameterError{Op: "Validate", Name: "logging.level", Value: s.Logging.Level, Err: err}
	}
	return nil
}

// Apply pushes the logging configuration to the standard logrus logger.
func (s Settings) Apply() error {
	lvl, err := log.ParseLevel(s.Logging.Level)
	if err != nil {
		return &errs.ParameterError{Op: "Apply", Name: "logging.level", Value: s.Logging.Level, Err: err}
	}
	log.SetLevel(lvl)
	return nil
}

var (
	mu    sync.Mutex
	stack = []Settings{Default()}
)

// Get returns the settings currently in effect.
func Get() Settings {
	mu.Lock()
	defer mu.Unlock()
	return stack[len(stack)-1]
}

// Push makes s the settings in effect until the matching Pop.
func Push(s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if err := s.Apply(); err != nil {
		return err
	}
	mu.Lock()
	stack = append(stack, s)
	depth := len(stack)
	mu.Unlock()
	log.WithFields(log.Fields{
		"jitter": s.Numerics.JitterLevel,
		"depth":  depth,
	}).Debug("settings pushed")
	return nil
}

// Pop restores the settings in effect before the last Push. The defaults
// at the bottom of the stack are never popped.
func Pop() Settings {
	mu.Lock()
	defer mu.Unlock()
	if len(stack) == 1 {
		return stack[0]
	}
	top := stack[len(stack)-1]
	stack = stack[:len(stack)-1]
	reapply()
	return top
}

// reapply applies the settings on top of the stack. Callers hold mu.
func reapply() {
	// Every entry was validated when pushed.
	_ = stack[len(stack)-1].Apply()
}

// Temp pushes s and returns a function restoring the stack to the depth it
// had before the call, which also discards overrides pushed later and
// never popped. Temp is meant for a single goroutine: a restore truncates
// the shared stack, so it also drops overrides other goroutines pushed in
// between. Concurrent callers pass cond.WithJitter instead.
//
//	restore, err := settings.Temp(s)
//	if err != nil { ... }
//	defer restore()
func Temp(s Settings) (func(), error) {
	mu.Lock()
	depth := len(stack)
	mu.Unlock()
	if err := Push(s); err != nil {
		return nil, err
	}
	return func() {
		mu.Lock()
		defer mu.Unlock()
		if len(stack) > depth {
			stack = stack[:depth]
			reapply()
		}
	}, nil
}

// JitterLevel is a shorthand for Get().Numerics.JitterLevel.
func JitterLevel() float64 {
	return Get().Numerics.JitterLevel
}
