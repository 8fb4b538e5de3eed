package feat

import (
	"math"

	"github.com/lucasmaystre/sparsegp/errs"
	"github.com/lucasmaystre/sparsegp/kern"
	"github.com/lucasmaystre/sparsegp/utils"
	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/floats"
)

// (InducingPoints, any kernel): plain kernel evaluations.

func pointsKuu(f Feature, k kern.Kernel) (blas64.Symmetric, error) {
	z := f.Z()
	if err := k.Validate(z); err != nil {
		return blas64.Symmetric{}, retag(err, "Kuu", "inducing locations")
	}
	return k.KSym(z), nil
}

func pointsKuf(f Feature, k kern.Kernel, x blas64.General) (blas64.General, error) {
	z := f.Z()
	if err := k.Validate(z); err != nil {
		return blas64.General{}, retag(err, "Kuf", "inducing locations")
	}
	if err := k.Validate(x); err != nil {
		return blas64.General{}, retag(err, "Kuf", "query points")
	}
	return k.K(z, x), nil
}

// (Multiscale, SquaredExponential): the kernel integrated against each
// location's Gaussian smoothing. With l' = l + s, inducing variables i
// and j, and c^2 = l'_i^2 + l'_j^2 - l^2,
//
//	Kuf[i, n] = var * exp(-1/2 sum_d ((x_nd - z_id) / l'_id)^2) * prod_d l_d / l'_id
//	Kuu[i, j] = var * exp(-1/2 sum_d ((z_id - z_jd) / c_ijd)^2) * prod_d l_d / c_ijd
//
// Both reduce to the squared exponential when s = 0.

func multiscaleInputs(op string, f Feature, k kern.Kernel) (
	se *kern.SquaredExponential, zmu, zlen blas64.General, err error) {
	ms := f.(*Multiscale)
	se = k.(*kern.SquaredExponential)
	if err = se.Validate(ms.Z()); err != nil {
		return nil, zmu, zlen, retag(err, op, "inducing locations")
	}
	return se, se.Slice(ms.Z()), se.Slice(ms.Scales()), nil
}

func multiscaleKuu(f Feature, k kern.Kernel) (blas64.Symmetric, error) {
	se, zmu, zlen, err := multiscaleInputs("Kuu", f, k)
	if err != nil {
		return blas64.Symmetric{}, err
	}
	ls := se.Lengthscales()
	variance := se.Variance()
	m := zmu.Rows
	// Temporary variables.
	ratios := make([]float64, len(ls))
	out := utils.NewSymmetric(m)
	for i := 0; i < m; i++ {
		zi, si := utils.Row(zmu, i), utils.Row(zlen, i)
		for j := i; j < m; j++ {
			zj, sj := utils.Row(zmu, j), utils.Row(zlen, j)
			d2 := 0.0
			for d, l := range ls {
				li, lj := l+si[d], l+sj[d]
				c := math.Sqrt(li*li + lj*lj - l*l)
				diff := (zi[d] - zj[d]) / c
				d2 += diff * diff
				ratios[d] = l / c
			}
			v := variance * math.Exp(-0.5*d2) * floats.Prod(ratios)
			out.Data[i*out.Stride+j] = v
			out.Data[j*out.Stride+i] = v
		}
	}
	return out, nil
}

func multiscaleKuf(f Feature, k kern.Kernel, x blas64.General) (blas64.General, error) {
	se, zmu, zlen, err := multiscaleInputs("Kuf", f, k)
	if err != nil {
		return blas64.General{}, err
	}
	if err := se.Validate(x); err != nil {
		return blas64.General{}, retag(err, "Kuf", "query points")
	}
	xs := se.Slice(x)
	ls := se.Lengthscales()
	variance := se.Variance()
	// Temporary variables.
	idls := make([]float64, len(ls))
	ratios := make([]float64, len(ls))
	out := utils.NewGeneral(zmu.Rows, xs.Rows)
	for i := 0; i < zmu.Rows; i++ {
		zi, si := utils.Row(zmu, i), utils.Row(zlen, i)
		for d, l := range ls {
			idls[d] = l + si[d]
			ratios[d] = l / idls[d]
		}
		scale := variance * floats.Prod(ratios)
		row := utils.Row(out, i)
		for n := 0; n < xs.Rows; n++ {
			xn := utils.Row(xs, n)
			d2 := 0.0
			for d, idl := range idls {
				diff := (xn[d] - zi[d]) / idl
				d2 += diff * diff
			}
			row[n] = scale * math.Exp(-0.5*d2)
		}
	}
	return out, nil
}

// (InducingPatch, Convolutional): inducing variables are base-process
// values at single patches, so Kuu never touches whole images and Kuf sums
// over the patches of each query image only.
//
//	Kuu[i, j] = base(z_i, z_j)
//	Kuf[i, n] = s * sum_p base(z_i, x_np)

func patchInputs(op string, f Feature, k kern.Kernel) (*kern.Convolutional, blas64.General, error) {
	conv := k.(*kern.Convolutional)
	z := f.Z()
	if z.Cols != conv.PatchDim() {
		return nil, z, errs.Shape(op, "inducing patches", z.Rows, z.Cols, -1, conv.PatchDim())
	}
	return conv, z, nil
}

func patchKuu(f Feature, k kern.Kernel) (blas64.Symmetric, error) {
	conv, z, err := patchInputs("Kuu", f, k)
	if err != nil {
		return blas64.Symmetric{}, err
	}
	return conv.Base().KSym(z), nil
}

func patchKuf(f Feature, k kern.Kernel, x blas64.General) (blas64.General, error) {
	conv, z, err := patchInputs("Kuf", f, k)
	if err != nil {
		return blas64.General{}, err
	}
	if err := conv.Validate(x); err != nil {
		return blas64.General{}, retag(err, "Kuf", "query images")
	}
	p := conv.NumPatches()
	s := conv.Scale()
	big := conv.Base().K(z, conv.Patches(x)) // M × N*P
	out := utils.NewGeneral(z.Rows, x.Rows)
	for i := 0; i < z.Rows; i++ {
		src := utils.Row(big, i)
		dst := utils.Row(out, i)
		for n := range dst {
			dst[n] = s * floats.Sum(src[n*p:(n+1)*p])
		}
	}
	return out, nil
}
