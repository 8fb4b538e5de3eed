package kern

import (
	"gonum.org/v1/gonum/blas/blas64"
)

var (
	constant *Constant
	_        Kernel = constant // Check that Constant respects the Kernel interface.
)

// Constant kernel, equal to its variance for every pair of inputs.
type Constant struct {
	stationary
}

var constantOptions = map[string]bool{"activeDims": true}

func NewConstant(inputDim int, variance float64, opts ...Option) *Constant {
	s, _ := newStationary("Constant", inputDim, variance, constantOptions, opts)
	return &Constant{stationary: s}
}

func (k *Constant) Kind() Kind {
	return KindConstant
}

func (k *Constant) eval(a, b []float64) float64 {
	return k.variance
}

func (k *Constant) K(x, y blas64.General) blas64.General {
	mustValidate(k, x, y)
	return cross(x, y, k.eval)
}

func (k *Constant) KSym(x blas64.General) blas64.Symmetric {
	mustValidate(k, x)
	return symm(x, k.eval)
}

func (k *Constant) KDiag(x blas64.General) blas64.Vector {
	mustValidate(k, x)
	return constVec(x.Rows, k.variance)
}
