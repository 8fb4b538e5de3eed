package utils

import (
	"fmt"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/mat"
)

// Zero-filled general matrix. Zero rows or columns are allowed, unlike
// with mat.NewDense.
func NewGeneral(r, c int) blas64.General {
	return blas64.General{
		Rows:   r,
		Cols:   c,
		Stride: max(1, c),
		Data:   make([]float64, r*c),
	}
}

// General matrix backed by data, in row-major order.
func GeneralFrom(r, c int, data []float64) blas64.General {
	if len(data) != r*c {
		panic(fmt.Sprintf("utils: data length %d does not match %dx%d", len(data), r, c))
	}
	return blas64.General{
		Rows:   r,
		Cols:   c,
		Stride: max(1, c),
		Data:   data,
	}
}

// Zero-filled symmetric matrix. Both triangles are kept in sync by the
// functions in this module, so the data can also be read as a general
// matrix.
func NewSymmetric(n int) blas64.Symmetric {
	return blas64.Symmetric{
		N:      n,
		Stride: max(1, n),
		Data:   make([]float64, n*n),
		Uplo:   blas.Upper,
	}
}

// Row i of g, sharing storage.
func Row(g blas64.General, i int) []float64 {
	if g.Cols == 0 {
		return nil
	}
	return g.Data[i*g.Stride : i*g.Stride+g.Cols]
}

// Copy of g restricted to the given columns, in the given order.
func SelectColumns(g blas64.General, cols []int) blas64.General {
	out := NewGeneral(g.Rows, len(cols))
	for i := 0; i < g.Rows; i++ {
		src := Row(g, i)
		dst := Row(out, i)
		for j, c := range cols {
			dst[j] = src[c]
		}
	}
	return out
}

// Deep copy of g with a compact stride.
func Clone(g blas64.General) blas64.General {
	out := NewGeneral(g.Rows, g.Cols)
	for i := 0; i < g.Rows; i++ {
		copy(Row(out, i), Row(g, i))
	}
	return out
}

// View of a symmetric matrix built by this module, with both triangles
// stored, as a general one. Use Full for matrices of unknown storage.
func AsGeneral(s blas64.Symmetric) blas64.General {
	return blas64.General{
		Rows:   s.N,
		Cols:   s.N,
		Stride: s.Stride,
		Data:   s.Data,
	}
}

// Full copies s into a general matrix, reading only the triangle named by
// s.Uplo and mirroring it.
func Full(s blas64.Symmetric) blas64.General {
	out := NewGeneral(s.N, s.N)
	for i := 0; i < s.N; i++ {
		for j := i; j < s.N; j++ {
			var v float64
			if s.Uplo == blas.Lower {
				v = s.Data[j*s.Stride+i]
			} else {
				v = s.Data[i*s.Stride+j]
			}
			out.Data[i*out.Stride+j] = v
			out.Data[j*out.Stride+i] = v
		}
	}
	return out
}

// Symmetric matrix from a square general one, averaging mirrored entries
// so that round-off asymmetry does not survive.
func Symmetrize(g blas64.General) blas64.Symmetric {
	if g.Rows != g.Cols {
		panic(fmt.Sprintf("utils: cannot symmetrize %dx%d matrix", g.Rows, g.Cols))
	}
	out := NewSymmetric(g.Rows)
	for i := 0; i < g.Rows; i++ {
		out.Data[i*out.Stride+i] = g.Data[i*g.Stride+i]
		for j := i + 1; j < g.Cols; j++ {
			v := 0.5 * (g.Data[i*g.Stride+j] + g.Data[j*g.Stride+i])
			out.Data[i*out.Stride+j] = v
			out.Data[j*out.Stride+i] = v
		}
	}
	return out
}

// Make a block diagonal matrix.
func BlockDiag(mats ...blas64.Symmetric) blas64.Symmetric {
	size := 0
	for _, m := range mats {
		size += m.N
	}
	out := NewSymmetric(size)
	offset := 0
	for _, m := range mats {
		full := Full(m)
		for i := 0; i < m.N; i++ {
			dst := out.Data[(offset+i)*out.Stride+offset:]
			copy(dst[:m.N], Row(full, i))
		}
		offset += m.N
	}
	return out
}

// Dense copies g into a gonum matrix. Panics on empty matrices, which
// gonum's mat package does not represent.
func Dense(g blas64.General) *mat.Dense {
	return mat.NewDense(g.Rows, g.Cols, Clone(g).Data)
}

// SymDense copies s into a gonum symmetric matrix, reading the triangle
// named by s.Uplo.
func SymDense(s blas64.Symmetric) *mat.SymDense {
	return mat.NewSymDense(s.N, Full(s).Data)
}

// MinEigenvalue of a symmetric matrix. ok is false if the decomposition
// failed. An empty matrix has no eigenvalues and reports +0.
func MinEigenvalue(s blas64.Symmetric) (float64, bool) {
	if s.N == 0 {
		return 0, true
	}
	var eig mat.EigenSym
	if !eig.Factorize(SymDense(s), false) {
		return 0, false
	}
	// Eigenvalues are returned in ascending order.
	return eig.Values(nil)[0], true
}
