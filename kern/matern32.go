package kern

import (
	"math"

	"gonum.org/v1/gonum/blas/blas64"
)

var (
	matern32 *Matern32
	_        Kernel = matern32 // Check that Matern32 respects the Kernel interface.
)

type Matern32 struct {
	stationary
}

func NewMatern32(inputDim int, variance float64, opts ...Option) *Matern32 {
	s, _ := newStationary("Matern32", inputDim, variance, stationaryOptions, opts)
	return &Matern32{stationary: s}
}

func (k *Matern32) Kind() Kind {
	return KindMatern32
}

// variance * (1 + sqrt(3) r) * exp(-sqrt(3) r)
func (k *Matern32) eval(a, b []float64) float64 {
	r := math.Sqrt(3 * k.scaledSqDist(a, b))
	return k.variance * (1 + r) * math.Exp(-r)
}

func (k *Matern32) K(x, y blas64.General) blas64.General {
	mustValidate(k, x, y)
	return cross(k.Slice(x), k.Slice(y), k.eval)
}

func (k *Matern32) KSym(x blas64.General) blas64.Symmetric {
	mustValidate(k, x)
	return symm(k.Slice(x), k.eval)
}

func (k *Matern32) KDiag(x blas64.General) blas64.Vector {
	mustValidate(k, x)
	return constVec(x.Rows, k.variance)
}
