package kern

import (
	"math"

	"gonum.org/v1/gonum/blas/blas64"
)

var (
	matern52 *Matern52
	_        Kernel = matern52 // Check that Matern52 respects the Kernel interface.
)

type Matern52 struct {
	stationary
}

func NewMatern52(inputDim int, variance float64, opts ...Option) *Matern52 {
	s, _ := newStationary("Matern52", inputDim, variance, stationaryOptions, opts)
	return &Matern52{stationary: s}
}

func (k *Matern52) Kind() Kind {
	return KindMatern52
}

// variance * (1 + sqrt(5) r + 5/3 r^2) * exp(-sqrt(5) r)
func (k *Matern52) eval(a, b []float64) float64 {
	r2 := k.scaledSqDist(a, b)
	r := math.Sqrt(5 * r2)
	return k.variance * (1 + r + 5.0/3.0*r2) * math.Exp(-r)
}

func (k *Matern52) K(x, y blas64.General) blas64.General {
	mustValidate(k, x, y)
	return cross(k.Slice(x), k.Slice(y), k.eval)
}

func (k *Matern52) KSym(x blas64.General) blas64.Symmetric {
	mustValidate(k, x)
	return symm(k.Slice(x), k.eval)
}

func (k *Matern52) KDiag(x blas64.General) blas64.Vector {
	mustValidate(k, x)
	return constVec(x.Rows, k.variance)
}
