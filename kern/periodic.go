package kern

import (
	"math"

	"gonum.org/v1/gonum/blas/blas64"
)

var (
	periodic *Periodic
	_        Kernel = periodic // Check that Periodic respects the Kernel interface.
)

// Periodic kernel,
//
//	variance * exp(-1/2 sum_d (sin(pi (x_d - y_d) / period) / l_d)^2)
type Periodic struct {
	stationary
	period float64
}

var periodicOptions = map[string]bool{"lengthscales": true, "activeDims": true, "period": true}

func NewPeriodic(inputDim int, variance float64, opts ...Option) *Periodic {
	s, cfg := newStationary("Periodic", inputDim, variance, periodicOptions, opts)
	return &Periodic{stationary: s, period: cfg.period}
}

func (k *Periodic) Kind() Kind {
	return KindPeriodic
}

func (k *Periodic) Period() float64 {
	return k.period
}

func (k *Periodic) eval(a, b []float64) float64 {
	r := 0.0
	for d, l := range k.lscales {
		s := math.Sin(math.Pi*(a[d]-b[d])/k.period) / l
		r += s * s
	}
	return k.variance * math.Exp(-0.5*r)
}

func (k *Periodic) K(x, y blas64.General) blas64.General {
	mustValidate(k, x, y)
	return cross(k.Slice(x), k.Slice(y), k.eval)
}

func (k *Periodic) KSym(x blas64.General) blas64.Symmetric {
	mustValidate(k, x)
	return symm(k.Slice(x), k.eval)
}

func (k *Periodic) KDiag(x blas64.General) blas64.Vector {
	mustValidate(k, x)
	return constVec(x.Rows, k.variance)
}
