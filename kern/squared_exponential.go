package kern

import (
	"math"

	"gonum.org/v1/gonum/blas/blas64"
)

var (
	squaredExponential *SquaredExponential
	_                  Kernel = squaredExponential // Check that SquaredExponential respects the Kernel interface.
)

// SquaredExponential (RBF) kernel, variance * exp(-r^2 / 2).
type SquaredExponential struct {
	stationary
}

func NewSquaredExponential(inputDim int, variance float64, opts ...Option) *SquaredExponential {
	s, _ := newStationary("SquaredExponential", inputDim, variance, stationaryOptions, opts)
	return &SquaredExponential{stationary: s}
}

func (k *SquaredExponential) Kind() Kind {
	return KindSquaredExponential
}

func (k *SquaredExponential) eval(a, b []float64) float64 {
	return k.variance * math.Exp(-0.5*k.scaledSqDist(a, b))
}

func (k *SquaredExponential) K(x, y blas64.General) blas64.General {
	mustValidate(k, x, y)
	return cross(k.Slice(x), k.Slice(y), k.eval)
}

func (k *SquaredExponential) KSym(x blas64.General) blas64.Symmetric {
	mustValidate(k, x)
	return symm(k.Slice(x), k.eval)
}

func (k *SquaredExponential) KDiag(x blas64.General) blas64.Vector {
	mustValidate(k, x)
	return constVec(x.Rows, k.variance)
}
