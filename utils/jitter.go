package utils

import (
	"math"

	"github.com/lucasmaystre/sparsegp/errs"
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"
)

// AddJitter returns k + jitter * I as a new matrix. The input is left
// untouched, so calling it repeatedly on the same Kuu never accumulates
// jitter. Only the triangle named by k.Uplo is read; the result stores
// both.
func AddJitter(k blas64.Symmetric, jitter float64) (blas64.Symmetric, error) {
	if jitter < 0 || math.IsNaN(jitter) || math.IsInf(jitter, 0) {
		return blas64.Symmetric{}, &errs.ParameterError{Op: "AddJitter", Name: "jitter", Value: jitter}
	}
	full := Full(k)
	for i := 0; i < k.N; i++ {
		full.Data[i*full.Stride+i] += jitter
	}
	return blas64.Symmetric{
		N:      full.Rows,
		Stride: full.Stride,
		Data:   full.Data,
		Uplo:   blas.Upper,
	}, nil
}
