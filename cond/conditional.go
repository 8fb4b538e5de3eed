// Package cond computes the predictive distribution of a sparse GP at query
// points, given the distribution of its inducing variables.
//
// With Kmm = L L^T and A = L^-1 Kmn, the marginal of the prior is
// corrected as
//
//	mean = A'^T f
//	cov  = Knn - A^T A + (S^T A')^T (S^T A')
//
// where A' = L^-T A in the plain parameterization and A' = A when whitened,
// and S is the square root of the inducing covariance.
package cond

import (
	"errors"

	"github.com/lucasmaystre/sparsegp/errs"
	"github.com/lucasmaystre/sparsegp/feat"
	"github.com/lucasmaystre/sparsegp/kern"
	"github.com/lucasmaystre/sparsegp/settings"
	"github.com/lucasmaystre/sparsegp/utils"
	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/lapack/lapack64"
)

// Inducing is the distribution of the M inducing variables for L outputs.
// It is only read.
type Inducing struct {
	// Mean, M×L.
	Mean blas64.General

	// Square roots of the covariance, one M×M factor per output. Only the
	// lower triangle is read.
	SqrtTri []blas64.Triangular

	// Diagonal square roots, M×L. Mutually exclusive with SqrtTri. With
	// neither set the inducing variables are deterministic.
	SqrtDiag *blas64.General
}

// Prior covariance at the query points: Full when the full covariance is
// requested, Diag otherwise.
type Prior struct {
	Full blas64.Symmetric
	Diag blas64.Vector
}

// Prediction at N query points for L outputs.
type Prediction struct {
	// Mean, N×L.
	Mean blas64.General

	// Marginal variances, N×L. Unset with WithFullCov.
	Var blas64.General

	// Covariance, one N×N matrix per output. Set with WithFullCov only.
	Cov []blas64.Symmetric

	// Covariance between outputs, one L×L matrix per point. Set with
	// WithFullOutputCov in marginal mode.
	OutputCov []blas64.Symmetric

	// Joint covariance over all points and outputs, (L·N)×(L·N) with row
	// l*N + n. Set with both WithFullCov and WithFullOutputCov.
	JointCov blas64.Symmetric
}

// Conditional computes Kuu (jittered), Kuf and the prior at x for the given
// feature and kernel, then calls BaseConditional. Unless WithJitter is
// given, the jitter is read once from the settings stack.
func Conditional(x blas64.General, f feat.Feature, k kern.Kernel, in Inducing,
	opts ...Option) (Prediction, error) {
	o := gatherOptions(opts)
	jitter := o.jitter
	if !o.hasJitter {
		jitter = settings.JitterLevel()
	}
	if f == nil || k == nil {
		return Prediction{}, &errs.ParameterError{Op: "Conditional", Name: "feature or kernel", Value: nil}
	}
	if err := k.Validate(x); err != nil {
		var shapeErr *errs.ShapeMismatchError
		if errors.As(err, &shapeErr) {
			shapeErr = &errs.ShapeMismatchError{Op: "Conditional", What: "query points", Got: shapeErr.Got, Want: shapeErr.Want}
			return Prediction{}, shapeErr
		}
		return Prediction{}, err
	}
	kmm, err := feat.Kuu(f, k, jitter)
	if err != nil {
		return Prediction{}, err
	}
	kmn, err := feat.Kuf(f, k, x)
	if err != nil {
		return Prediction{}, err
	}
	var prior Prior
	if o.fullCov {
		prior.Full = k.KSym(x)
	} else {
		prior.Diag = k.KDiag(x)
	}
	all := make([]Option, 0, len(opts)+1)
	all = append(all, opts...)
	return BaseConditional(kmn, kmm, prior, in, append(all, WithJitter(jitter))...)
}

// BaseConditional computes the predictive mean and covariance from Kmn
// (M×N), an already jittered Kmm (M×M) and the prior at the query points.
// Of Kmm and prior.Full only the triangle named by their Uplo is read.
func BaseConditional(kmn blas64.General, kmm blas64.Symmetric, prior Prior, in Inducing,
	opts ...Option) (Prediction, error) {
	o := gatherOptions(opts)
	m, n := kmn.Rows, kmn.Cols
	if err := checkShapes(kmn, kmm, prior, in, o); err != nil {
		return Prediction{}, err
	}
	nOut := in.Mean.Cols
	log.WithFields(log.Fields{
		"M":       m,
		"N":       n,
		"L":       nOut,
		"white":   o.white,
		"fullCov": o.fullCov,
		"jitter":  o.jitter,
	}).Debug("computing conditional")

	a := utils.Clone(kmn)
	if m > 0 && n > 0 {
		lm, err := cholesky(kmm, o.jitter)
		if err != nil {
			return Prediction{}, err
		}
		// A = L^-1 Kmn
		blas64.Trsm(blas.Left, blas.NoTrans, 1.0, lm, a)
		pred := priorCorrection(a, prior, nOut, o)
		if !o.white {
			// A = L^-T A
			blas64.Trsm(blas.Left, blas.Trans, 1.0, lm, a)
		}
		// mean = A^T f
		if nOut > 0 {
			blas64.Gemm(blas.Trans, blas.NoTrans, 1.0, a, in.Mean, 0.0, pred.Mean)
		}
		addInducingCov(&pred, a, in, o)
		expandOutputs(&pred, o)
		return pred, nil
	}
	// Nothing to condition on, or nothing to predict.
	pred := priorCorrection(a, prior, nOut, o)
	expandOutputs(&pred, o)
	return pred, nil
}

func cholesky(kmm blas64.Symmetric, jitter float64) (blas64.Triangular, error) {
	// Factorize a copy, Kmm = L L^T.
	full := utils.Full(kmm)
	lm, ok := lapack64.Potrf(blas64.Symmetric{
		N:      full.Rows,
		Stride: full.Stride,
		Data:   full.Data,
		Uplo:   blas.Lower,
	})
	if !ok {
		log.WithFields(log.Fields{
			"M":      kmm.N,
			"jitter": jitter,
		}).Warn("cholesky of Kuu failed")
		return blas64.Triangular{}, &errs.NumericInstabilityError{
			Op:     "BaseConditional",
			Jitter: jitter,
			Size:   kmm.N,
		}
	}
	return lm, nil
}

// priorCorrection allocates the prediction and fills in Knn - A^T A for
// every output, with a = L^-1 Kmn.
func priorCorrection(a blas64.General, prior Prior, nOut int, o options) Prediction {
	m, n := a.Rows, a.Cols
	pred := Prediction{Mean: utils.NewGeneral(n, nOut)}
	if o.fullCov {
		// base = Knn - A^T A
		base := utils.Full(prior.Full)
		if m > 0 && n > 0 {
			blas64.Gemm(blas.Trans, blas.NoTrans, -1.0, a, a, 1.0, base)
		}
		pred.Cov = make([]blas64.Symmetric, nOut)
		for l := range pred.Cov {
			pred.Cov[l] = utils.Symmetrize(base)
		}
		return pred
	}
	// base = diag(Knn) - sum(A^2, 0)
	base := make([]float64, n)
	for j := 0; j < n; j++ {
		base[j] = prior.Diag.Data[j*prior.Diag.Inc]
	}
	for i := 0; i < m; i++ {
		for j, v := range utils.Row(a, i) {
			base[j] -= v * v
		}
	}
	pred.Var = utils.NewGeneral(n, nOut)
	for j := 0; j < n; j++ {
		row := utils.Row(pred.Var, j)
		for l := range row {
			row[l] = base[j]
		}
	}
	return pred
}

// addInducingCov adds (S^T A)^T (S^T A) for each output.
func addInducingCov(pred *Prediction, a blas64.General, in Inducing, o options) {
	if in.SqrtTri == nil && in.SqrtDiag == nil {
		return
	}
	m := a.Rows
	for l := 0; l < in.Mean.Cols; l++ {
		lta := utils.Clone(a)
		if in.SqrtTri != nil {
			s := lowerView(in.SqrtTri[l])
			// LTA = S^T A
			blas64.Trmm(blas.Left, blas.Trans, 1.0, s, lta)
		} else {
			q := in.SqrtDiag
			for i := 0; i < m; i++ {
				qi := q.Data[i*q.Stride+l]
				row := utils.Row(lta, i)
				for j := range row {
					row[j] *= qi
				}
			}
		}
		if o.fullCov {
			cov := utils.AsGeneral(pred.Cov[l])
			blas64.Gemm(blas.Trans, blas.NoTrans, 1.0, lta, lta, 1.0, cov)
			pred.Cov[l] = utils.Symmetrize(cov)
			continue
		}
		for i := 0; i < m; i++ {
			for j, v := range utils.Row(lta, i) {
				pred.Var.Data[j*pred.Var.Stride+l] += v * v
			}
		}
	}
}

// lowerView reads only the lower triangle of t, whatever its Uplo.
func lowerView(t blas64.Triangular) blas64.Triangular {
	return blas64.Triangular{
		N:      t.N,
		Stride: t.Stride,
		Data:   t.Data,
		Uplo:   blas.Lower,
		Diag:   blas.NonUnit,
	}
}

func expandOutputs(pred *Prediction, o options) {
	if !o.fullOutputCov {
		return
	}
	if o.fullCov {
		pred.JointCov = utils.BlockDiag(pred.Cov...)
		return
	}
	n, nOut := pred.Var.Rows, pred.Var.Cols
	pred.OutputCov = make([]blas64.Symmetric, n)
	for j := 0; j < n; j++ {
		c := utils.NewSymmetric(nOut)
		for l := 0; l < nOut; l++ {
			c.Data[l*c.Stride+l] = pred.Var.Data[j*pred.Var.Stride+l]
		}
		pred.OutputCov[j] = c
	}
}

func checkShapes(kmn blas64.General, kmm blas64.Symmetric, prior Prior, in Inducing, o options) error {
	const op = "BaseConditional"
	m, n := kmn.Rows, kmn.Cols
	if kmm.N != m {
		return errs.Shape(op, "Kmm", kmm.N, kmm.N, m, m)
	}
	if o.fullCov {
		if prior.Full.N != n {
			return errs.Shape(op, "Knn", prior.Full.N, prior.Full.N, n, n)
		}
	} else if prior.Diag.N != n {
		return &errs.ShapeMismatchError{Op: op, What: "Knn diagonal", Got: []int{prior.Diag.N}, Want: []int{n}}
	}
	if in.Mean.Rows != m {
		return errs.Shape(op, "inducing mean", in.Mean.Rows, in.Mean.Cols, m, -1)
	}
	nOut := in.Mean.Cols
	if in.SqrtTri != nil && in.SqrtDiag != nil {
		return &errs.ParameterError{Op: op, Name: "square root", Value: "both triangular and diagonal"}
	}
	if in.SqrtTri != nil {
		if len(in.SqrtTri) != nOut {
			return &errs.ShapeMismatchError{Op: op, What: "square roots", Got: []int{len(in.SqrtTri), -1, -1}, Want: []int{nOut, m, m}}
		}
		for _, s := range in.SqrtTri {
			if s.N != m {
				return &errs.ShapeMismatchError{Op: op, What: "square root", Got: []int{s.N, s.N}, Want: []int{m, m}}
			}
		}
	}
	if in.SqrtDiag != nil && (in.SqrtDiag.Rows != m || in.SqrtDiag.Cols != nOut) {
		return errs.Shape(op, "diagonal square root", in.SqrtDiag.Rows, in.SqrtDiag.Cols, m, nOut)
	}
	return nil
}
