package kern

import (
	"math"

	"gonum.org/v1/gonum/blas/blas64"
)

var (
	matern12 *Matern12
	_        Kernel = matern12 // Check that Matern12 respects the Kernel interface.
)

// Matern12 (exponential) kernel, variance * exp(-r).
type Matern12 struct {
	stationary
}

func NewMatern12(inputDim int, variance float64, opts ...Option) *Matern12 {
	s, _ := newStationary("Matern12", inputDim, variance, stationaryOptions, opts)
	return &Matern12{stationary: s}
}

func (k *Matern12) Kind() Kind {
	return KindMatern12
}

func (k *Matern12) eval(a, b []float64) float64 {
	r := math.Sqrt(k.scaledSqDist(a, b))
	return k.variance * math.Exp(-r)
}

func (k *Matern12) K(x, y blas64.General) blas64.General {
	mustValidate(k, x, y)
	return cross(k.Slice(x), k.Slice(y), k.eval)
}

func (k *Matern12) KSym(x blas64.General) blas64.Symmetric {
	mustValidate(k, x)
	return symm(k.Slice(x), k.eval)
}

func (k *Matern12) KDiag(x blas64.General) blas64.Vector {
	mustValidate(k, x)
	return constVec(x.Rows, k.variance)
}
