package kern

import (
	"github.com/lucasmaystre/sparsegp/utils"
	"gonum.org/v1/gonum/blas/blas64"
)

// Kind tags a kernel family for dispatch.
type Kind int

const (
	// KindAny matches every kernel in a dispatch registry. No kernel
	// reports it.
	KindAny Kind = iota
	KindSquaredExponential
	KindMatern12
	KindMatern32
	KindMatern52
	KindPeriodic
	KindConstant
	KindSum
	KindConvolutional
)

var kindNames = map[Kind]string{
	KindAny:                "Any",
	KindSquaredExponential: "SquaredExponential",
	KindMatern12:           "Matern12",
	KindMatern32:           "Matern32",
	KindMatern52:           "Matern52",
	KindPeriodic:           "Periodic",
	KindConstant:           "Constant",
	KindSum:                "Sum",
	KindConvolutional:      "Convolutional",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "Unknown"
}

// Kernel evaluates a covariance function on location sets, one location
// per row. Inputs failing Validate make K, KSym and KDiag panic with the
// validation error.
type Kernel interface {
	Kind() Kind

	// Validate checks that x has the columns the kernel reads.
	Validate(x blas64.General) error

	// Cross covariance, x.Rows × y.Rows.
	K(x, y blas64.General) blas64.General

	// Covariance of x with itself, x.Rows × x.Rows.
	KSym(x blas64.General) blas64.Symmetric

	// Diagonal of KSym(x).
	KDiag(x blas64.General) blas64.Vector
}

func mustValidate(k Kernel, xs ...blas64.General) {
	for _, x := range xs {
		if err := k.Validate(x); err != nil {
			panic(err)
		}
	}
}

func cross(x, y blas64.General, f func(a, b []float64) float64) blas64.General {
	out := utils.NewGeneral(x.Rows, y.Rows)
	for i := 0; i < x.Rows; i++ {
		a := utils.Row(x, i)
		row := utils.Row(out, i)
		for j := 0; j < y.Rows; j++ {
			row[j] = f(a, utils.Row(y, j))
		}
	}
	return out
}

func symm(x blas64.General, f func(a, b []float64) float64) blas64.Symmetric {
	out := utils.NewSymmetric(x.Rows)
	for i := 0; i < x.Rows; i++ {
		a := utils.Row(x, i)
		for j := i; j < x.Rows; j++ {
			v := f(a, utils.Row(x, j))
			out.Data[i*out.Stride+j] = v
			out.Data[j*out.Stride+i] = v
		}
	}
	return out
}

func constVec(n int, v float64) blas64.Vector {
	data := make([]float64, n)
	for i := range data {
		data[i] = v
	}
	return blas64.Vector{N: n, Inc: 1, Data: data}
}
